package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alejandrodnm/updown/internal/adapters/export"
	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/application/orchestrator"
	"github.com/alejandrodnm/updown/internal/domain"
)

type listQuery struct {
	Coin   string `form:"coin"`
	Family string `form:"family"`
	Limit  int    `form:"limit,default=100" binding:"min=0,max=5000"`
	Offset int    `form:"offset" binding:"min=0"`
}

type lastTradesQuery struct {
	Limit       int  `form:"limit,default=20" binding:"min=0,max=5000"`
	WinningOnly bool `form:"winning_only"`
}

type exportQuery struct {
	Coin   string `form:"coin"`
	Family string `form:"family"`
	Format string `form:"format,default=txt" binding:"oneof=txt md"`
}

func (a *api) status(c *gin.Context) {
	var q lastTradesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatus(a.ctl.AggregateSnapshot(q.Limit)))
}

func (a *api) coins(c *gin.Context) {
	coins := make([]coinJSON, 0)
	for _, in := range a.ctl.Instruments() {
		s, err := a.ctl.Snapshot(in)
		if err != nil {
			a.fail(c, err)
			return
		}
		coins = append(coins, toCoin(s))
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

func (a *api) startCoin(c *gin.Context) {
	in, err := domain.ParseInstrument(c.Param("coin"))
	if err != nil {
		badRequest(c, err)
		return
	}
	// El engine sobrevive a la request: solo Stop lo detiene.
	if err := a.ctl.Start(context.WithoutCancel(c.Request.Context()), in); err != nil {
		a.fail(c, err)
		return
	}
	a.log.Info("engine started via api", "coin", in)
	a.coin(c, in)
}

func (a *api) stopCoin(c *gin.Context) {
	in, err := domain.ParseInstrument(c.Param("coin"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := a.ctl.Stop(in); err != nil {
		a.fail(c, err)
		return
	}
	a.log.Info("engine stopped via api", "coin", in)
	a.coin(c, in)
}

func (a *api) coin(c *gin.Context, in domain.Instrument) {
	s, err := a.ctl.Snapshot(in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCoin(s))
}

func (a *api) startAll(c *gin.Context) {
	if err := a.ctl.StartAll(context.WithoutCancel(c.Request.Context())); err != nil {
		a.fail(c, err)
		return
	}
	a.log.Info("all engines started via api")
	a.coins(c)
}

func (a *api) stopAll(c *gin.Context) {
	a.ctl.StopAll()
	a.log.Info("all engines stopped via api")
	a.coins(c)
}

func (a *api) orders(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	in, err := parseCoin(q.Coin)
	if err != nil {
		badRequest(c, err)
		return
	}
	orders, err := a.ctl.Orders(orchestrator.OrderFilter{Instrument: in, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": mapSlice(orders, toOrder), "count": len(orders)})
}

func (a *api) trades(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	f, err := tradeFilter(q.Coin, q.Family)
	if err != nil {
		badRequest(c, err)
		return
	}
	f.Limit, f.Offset = q.Limit, q.Offset
	trades, err := a.ctl.Trades(f)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": mapSlice(trades, toTrade), "count": len(trades)})
}

func (a *api) variantMetrics(c *gin.Context) {
	in, err := parseCoin(c.Query("coin"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if in == "" {
		agg := a.ctl.AggregateSnapshot(0)
		c.JSON(http.StatusOK, gin.H{"variants": mapSlice(agg.Variants, toLedger)})
		return
	}
	s, err := a.ctl.Snapshot(in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": mapSlice(s.Ledgers, toLedger)})
}

func (a *api) lastTrades(c *gin.Context) {
	var q lastTradesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	trades := a.ctl.LastTrades(q.Limit, q.WinningOnly)
	c.JSON(http.StatusOK, gin.H{"trades": mapSlice(trades, toTrade), "count": len(trades)})
}

func (a *api) exportOrders(c *gin.Context) {
	var q exportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	in, err := parseCoin(q.Coin)
	if err != nil {
		badRequest(c, err)
		return
	}
	orders, err := a.ctl.Orders(orchestrator.OrderFilter{Instrument: in})
	if err != nil {
		a.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if q.Format == "md" {
		err = export.WriteOrdersMarkdown(&buf, orders)
	} else {
		err = export.WriteOrdersTSV(&buf, orders)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	attach(c, "orders", q.Format, buf.Bytes())
}

func (a *api) exportTrades(c *gin.Context) {
	var q exportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	f, err := tradeFilter(q.Coin, q.Family)
	if err != nil {
		badRequest(c, err)
		return
	}
	trades, err := a.ctl.Trades(f)
	if err != nil {
		a.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if q.Format == "md" {
		err = export.WriteTradesMarkdown(&buf, trades)
	} else {
		err = export.WriteTradesTSV(&buf, trades)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	attach(c, "trades", q.Format, buf.Bytes())
}

func tradeFilter(coin, family string) (orchestrator.TradeFilter, error) {
	in, err := parseCoin(coin)
	if err != nil {
		return orchestrator.TradeFilter{}, err
	}
	f := orchestrator.TradeFilter{Instrument: in}
	if family != "" {
		fam, err := domain.ParseFamily(family)
		if err != nil {
			return orchestrator.TradeFilter{}, err
		}
		f.Family = fam
	}
	return f, nil
}

func attach(c *gin.Context, name, format string, body []byte) {
	contentType := "text/tab-separated-values; charset=utf-8"
	if format == "md" {
		contentType = "text/markdown; charset=utf-8"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	c.Data(http.StatusOK, contentType, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail traduce los errores del orquestador a status HTTP.
func (a *api) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrator.ErrUnknownInstrument):
		status = http.StatusNotFound
	case errors.Is(err, instrument.ErrFaulted):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		a.log.Error("api request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
