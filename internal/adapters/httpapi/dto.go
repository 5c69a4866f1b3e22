package httpapi

import (
	"strings"
	"time"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/application/orchestrator"
	"github.com/alejandrodnm/updown/internal/domain"
)

type orderJSON struct {
	ID          string    `json:"id"`
	Coin        string    `json:"coin"`
	VariantID   string    `json:"variant_id"`
	Family      string    `json:"family"`
	MarketSlug  string    `json:"market_slug"`
	MarketStart time.Time `json:"market_start"`
	Side        string    `json:"side"`
	Price       float64   `json:"price"`
	Size        float64   `json:"size"`
	LimitPrice  float64   `json:"limit_price"`
	Status      string    `json:"status"`
	FilledSize  float64   `json:"filled_size"`
	FillPct     int       `json:"fill_pct"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toOrder(o domain.SimOrder) orderJSON {
	return orderJSON{
		ID:          o.ID,
		Coin:        string(o.Instrument),
		VariantID:   o.VariantID,
		Family:      string(o.Family),
		MarketSlug:  o.MarketSlug,
		MarketStart: o.MarketStart,
		Side:        string(o.Side),
		Price:       o.Price,
		Size:        o.Size,
		LimitPrice:  o.LimitPrice,
		Status:      string(o.Status),
		FilledSize:  o.FilledSize,
		FillPct:     o.FillPct(),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

type tradeJSON struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Coin        string     `json:"coin"`
	VariantID   string     `json:"variant_id"`
	Family      string     `json:"family"`
	MarketSlug  string     `json:"market_slug"`
	MarketStart time.Time  `json:"market_start"`
	Side        string     `json:"side"`
	EntryPrice  float64    `json:"entry_price"`
	Size        float64    `json:"size"`
	FilledSize  float64    `json:"filled_size"`
	Invested    float64    `json:"invested"`
	EntryTime   time.Time  `json:"entry_time"`
	Result      string     `json:"result"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	PnL         *float64   `json:"pnl"`
}

func toTrade(t domain.Trade) tradeJSON {
	return tradeJSON{
		ID:          t.ID,
		OrderID:     t.OrderID,
		Coin:        string(t.Instrument),
		VariantID:   t.VariantID,
		Family:      string(t.Family),
		MarketSlug:  t.MarketSlug,
		MarketStart: t.MarketStart,
		Side:        string(t.Side),
		EntryPrice:  t.EntryPrice,
		Size:        t.Size,
		FilledSize:  t.FilledSize,
		Invested:    t.Invested,
		EntryTime:   t.EntryTime,
		Result:      string(t.Result),
		ResolvedAt:  t.ResolvedAt,
		PnL:         t.PnL,
	}
}

type ledgerJSON struct {
	Coin      string  `json:"coin,omitempty"`
	VariantID string  `json:"variant_id"`
	Family    string  `json:"family"`
	Threshold float64 `json:"threshold"`
	Total     int     `json:"total"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Pending   int     `json:"pending"`
	PnL       float64 `json:"pnl"`
	Invested  float64 `json:"invested"`
	WinRate   float64 `json:"win_rate"`
	ROI       float64 `json:"roi"`
}

func toLedger(l domain.VariantLedger) ledgerJSON {
	return ledgerJSON{
		Coin:      string(l.Instrument),
		VariantID: l.VariantID,
		Family:    string(l.Family),
		Threshold: l.Threshold,
		Total:     l.Total,
		Wins:      l.Wins,
		Losses:    l.Losses,
		Pending:   l.Pending,
		PnL:       l.PnL(),
		Invested:  l.Invested(),
		WinRate:   l.WinRate(),
		ROI:       l.ROI(),
	}
}

type windowJSON struct {
	Slug             string    `json:"slug"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Phase            string    `json:"phase"`
	CountdownSeconds float64   `json:"countdown_seconds"`
	Target           bool      `json:"target"`
	Winner           string    `json:"winner,omitempty"`
}

type skipJSON struct {
	Reason string `json:"reason"`
	Market string `json:"market,omitempty"`
	Error  string `json:"error,omitempty"`
}

type tickJSON struct {
	At         time.Time  `json:"at"`
	Market     string     `json:"market,omitempty"`
	Phase      string     `json:"phase,omitempty"`
	Placed     int        `json:"placed"`
	Filled     int        `json:"filled"`
	Cancelled  int        `json:"cancelled"`
	Resolved   int        `json:"resolved"`
	Skips      []skipJSON `json:"skips"`
	DurationMS int64      `json:"duration_ms"`
}

type coinJSON struct {
	Coin       string       `json:"coin"`
	Name       string       `json:"name"`
	Running    bool         `json:"running"`
	StartedAt  *time.Time   `json:"started_at"`
	Fault      string       `json:"fault,omitempty"`
	Ticks      int          `json:"ticks"`
	LastTick   *tickJSON    `json:"last_tick"`
	Windows    []windowJSON `json:"windows"`
	OpenOrders int          `json:"open_orders"`
	Trades     int          `json:"trades"`
	Pending    int          `json:"pending"`
	PnL        float64      `json:"pnl"`
}

func toCoin(s instrument.Snapshot) coinJSON {
	c := coinJSON{
		Coin:      string(s.Instrument),
		Name:      s.Instrument.DisplayName(),
		Running:   s.Running,
		StartedAt: s.StartedAt,
		Fault:     s.Fault,
		Ticks:     s.Ticks,
		Windows:   make([]windowJSON, 0, len(s.Windows)),
	}
	if s.Ticks > 0 {
		lt := s.LastTick
		tick := &tickJSON{
			At:         lt.At,
			Market:     lt.Market,
			Phase:      string(lt.Phase),
			Placed:     lt.Placed,
			Filled:     lt.Filled,
			Cancelled:  lt.Cancelled,
			Resolved:   lt.Resolved,
			Skips:      make([]skipJSON, 0, len(lt.Skips)),
			DurationMS: lt.Duration.Milliseconds(),
		}
		for _, sk := range lt.Skips {
			sj := skipJSON{Reason: string(sk.Reason), Market: sk.Market}
			if sk.Err != nil {
				sj.Error = sk.Err.Error()
			}
			tick.Skips = append(tick.Skips, sj)
		}
		c.LastTick = tick
	}
	for _, w := range s.Windows {
		c.Windows = append(c.Windows, windowJSON{
			Slug:             w.Window.Slug,
			Start:            w.Window.Start,
			End:              w.Window.End,
			Phase:            string(w.Phase),
			CountdownSeconds: w.Countdown.Seconds(),
			Target:           w.Target,
			Winner:           string(w.Window.Winner),
		})
	}
	for _, o := range s.Orders {
		if o.IsLive() {
			c.OpenOrders++
		}
	}
	for _, l := range s.Ledgers {
		c.Trades += l.Total
		c.Pending += l.Pending
		c.PnL += l.PnL()
	}
	return c
}

type totalsJSON struct {
	Trades        int     `json:"trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Pending       int     `json:"pending"`
	PnL           float64 `json:"pnl"`
	Invested      float64 `json:"invested"`
	ROI           float64 `json:"roi"`
	CoinsRunning  int     `json:"coins_running"`
	CoinsEnabled  int     `json:"coins_enabled"`
	CoinsFaulted  int     `json:"coins_faulted"`
	OpenOrders    int     `json:"open_orders"`
	TrackedMarket int     `json:"tracked_markets"`
}

type statusJSON struct {
	Totals       totalsJSON   `json:"totals"`
	Coins        []coinJSON   `json:"coins"`
	Variants     []ledgerJSON `json:"variants"`
	RecentTrades []tradeJSON  `json:"recent_trades"`
}

func toStatus(agg orchestrator.Aggregate) statusJSON {
	t := agg.Totals
	return statusJSON{
		Totals: totalsJSON{
			Trades:        t.Trades,
			Wins:          t.Wins,
			Losses:        t.Losses,
			Pending:       t.Pending,
			PnL:           t.PnL,
			Invested:      t.Invested,
			ROI:           t.ROI,
			CoinsRunning:  t.CoinsRunning,
			CoinsEnabled:  t.CoinsEnabled,
			CoinsFaulted:  t.CoinsFaulted,
			OpenOrders:    t.OpenOrders,
			TrackedMarket: t.TrackedMarket,
		},
		Coins:        mapSlice(agg.Instruments, toCoin),
		Variants:     mapSlice(agg.Variants, toLedger),
		RecentTrades: mapSlice(agg.RecentTrades, toTrade),
	}
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

// parseCoin acepta un instrumento o "" / "all" para todos.
func parseCoin(s string) (domain.Instrument, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	return domain.ParseInstrument(s)
}
