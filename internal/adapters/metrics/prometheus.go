// Package metrics expone los eventos de los engines como métricas Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/domain"
)

const namespace = "updown"

// Collector implementa instrument.Metrics sobre un registro propio.
type Collector struct {
	registry *prometheus.Registry

	ordersPlaced   *prometheus.CounterVec
	ordersFilled   *prometheus.CounterVec
	ordersClosed   *prometheus.CounterVec
	tradesResolved *prometheus.CounterVec
	tickSkips      *prometheus.CounterVec
	tickDuration   *prometheus.HistogramVec

	variantPnL      *prometheus.GaugeVec
	variantInvested *prometheus.GaugeVec
	variantPending  *prometheus.GaugeVec
	variantWinRate  *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ instrument.Metrics = (*Collector)(nil)

// New crea el collector y registra también las métricas de runtime y proceso.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{registry: reg}

	c.ordersPlaced = c.counter("orders_placed_total", "Simulated orders placed.", "coin", "variant")
	c.ordersFilled = c.counter("orders_filled_total", "Simulated orders filled.", "coin", "variant")
	c.ordersClosed = c.counter("orders_closed_total", "Simulated orders cancelled or expired.", "coin", "variant", "status")
	c.tradesResolved = c.counter("trades_resolved_total", "Trades resolved by market outcome.", "coin", "variant", "result")
	c.tickSkips = c.counter("tick_skips_total", "Tick steps skipped, by reason.", "coin", "reason")
	c.tickDuration = c.histogram("tick_duration_seconds", "Engine tick latency.", "coin")

	c.variantPnL = c.gauge("variant_pnl", "Cumulative P&L per variant.", "coin", "variant")
	c.variantInvested = c.gauge("variant_invested", "Cumulative invested volume per variant.", "coin", "variant")
	c.variantPending = c.gauge("variant_pending_trades", "Trades awaiting resolution per variant.", "coin", "variant")
	c.variantWinRate = c.gauge("variant_win_rate_percent", "Win rate over resolved trades per variant.", "coin", "variant")

	c.httpRequests = c.counter("http_requests_total", "HTTP API requests.", "method", "path", "status")
	c.httpDuration = c.histogram("http_request_duration_seconds", "HTTP API latency.", "method", "path")
	return c
}

func (c *Collector) counter(name, help string, labels ...string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	c.registry.MustRegister(cv)
	return cv
}

func (c *Collector) gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	c.registry.MustRegister(gv)
	return gv
}

func (c *Collector) histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
	c.registry.MustRegister(hv)
	return hv
}

// Handler devuelve el handler HTTP de /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OrderPlaced(in domain.Instrument, variantID string) {
	c.ordersPlaced.WithLabelValues(string(in), variantID).Inc()
}

func (c *Collector) OrderFilled(in domain.Instrument, variantID string) {
	c.ordersFilled.WithLabelValues(string(in), variantID).Inc()
}

func (c *Collector) OrderClosed(in domain.Instrument, variantID string, status domain.OrderStatus) {
	c.ordersClosed.WithLabelValues(string(in), variantID, string(status)).Inc()
}

func (c *Collector) TradeResolved(in domain.Instrument, t domain.Trade) {
	c.tradesResolved.WithLabelValues(string(in), t.VariantID, string(t.Result)).Inc()
}

func (c *Collector) TickSkipped(in domain.Instrument, reason instrument.SkipReason) {
	c.tickSkips.WithLabelValues(string(in), string(reason)).Inc()
}

func (c *Collector) TickCompleted(in domain.Instrument, d time.Duration) {
	c.tickDuration.WithLabelValues(string(in)).Observe(d.Seconds())
}

func (c *Collector) LedgerUpdated(in domain.Instrument, l domain.VariantLedger) {
	c.variantPnL.WithLabelValues(string(in), l.VariantID).Set(l.PnL())
	c.variantInvested.WithLabelValues(string(in), l.VariantID).Set(l.Invested())
	c.variantPending.WithLabelValues(string(in), l.VariantID).Set(float64(l.Pending))
	c.variantWinRate.WithLabelValues(string(in), l.VariantID).Set(l.WinRate())
}

// ObserveHTTP registra una request de la API. path es la ruta plantilla
// (":coin"), no la URL concreta.
func (c *Collector) ObserveHTTP(method, path string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
