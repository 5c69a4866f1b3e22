// Package httpapi expone el control de los engines y sus datos por HTTP
// (gin): arrancar y parar instrumentos, órdenes, trades, métricas por
// variante y exportes.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/application/orchestrator"
	"github.com/alejandrodnm/updown/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// Control es lo que la API necesita del orquestador.
type Control interface {
	Instruments() []domain.Instrument
	Start(ctx context.Context, in domain.Instrument) error
	Stop(in domain.Instrument) error
	StartAll(ctx context.Context) error
	StopAll()
	Snapshot(in domain.Instrument) (instrument.Snapshot, error)
	AggregateSnapshot(limit int) orchestrator.Aggregate
	Orders(f orchestrator.OrderFilter) ([]domain.SimOrder, error)
	Trades(f orchestrator.TradeFilter) ([]domain.Trade, error)
	LastTrades(limit int, winningOnly bool) []domain.Trade
}

// Observer recibe la latencia de cada request.
type Observer interface {
	ObserveHTTP(method, path string, status int, d time.Duration)
}

// Options configura el router. Los campos nil se omiten.
type Options struct {
	Observer       Observer
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

type api struct {
	ctl Control
	log *slog.Logger
}

// NewRouter construye el router con todas las rutas de /api y /metrics.
func NewRouter(ctl Control, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &api{ctl: ctl, log: log}

	r := gin.New()
	r.Use(recovery(log), observe(opts.Observer, log))

	g := r.Group("/api")
	g.GET("/status", a.status)
	g.GET("/coins", a.coins)
	g.POST("/coins/:coin/start", a.startCoin)
	g.POST("/coins/:coin/stop", a.stopCoin)
	g.POST("/start-all", a.startAll)
	g.POST("/stop-all", a.stopAll)
	g.GET("/orders", a.orders)
	g.GET("/trades", a.trades)
	g.GET("/variant-metrics", a.variantMetrics)
	g.GET("/last-trades", a.lastTrades)
	g.GET("/export/orders", a.exportOrders)
	g.GET("/export/trades", a.exportTrades)

	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	return r
}

// Serve atiende en addr hasta que ctx se cancele y luego cierra con gracia.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("http api listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// observe registra latencia y status por ruta plantilla.
func observe(o Observer, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		d := time.Since(start)
		if o != nil {
			o.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), d)
		}
		log.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", d.String(),
		)
	}
}

func recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("http handler panic",
					"panic", r,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
