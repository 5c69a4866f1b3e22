package instrument

import (
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// Metrics recibe los eventos del engine. La implementación Prometheus vive
// en adapters/metrics.
type Metrics interface {
	OrderPlaced(in domain.Instrument, variantID string)
	OrderFilled(in domain.Instrument, variantID string)
	OrderClosed(in domain.Instrument, variantID string, status domain.OrderStatus)
	TradeResolved(in domain.Instrument, t domain.Trade)
	TickSkipped(in domain.Instrument, reason SkipReason)
	TickCompleted(in domain.Instrument, d time.Duration)
	LedgerUpdated(in domain.Instrument, l domain.VariantLedger)
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(domain.Instrument, string)                     {}
func (nopMetrics) OrderFilled(domain.Instrument, string)                     {}
func (nopMetrics) OrderClosed(domain.Instrument, string, domain.OrderStatus) {}
func (nopMetrics) TradeResolved(domain.Instrument, domain.Trade)             {}
func (nopMetrics) TickSkipped(domain.Instrument, SkipReason)                 {}
func (nopMetrics) TickCompleted(domain.Instrument, time.Duration)            {}
func (nopMetrics) LedgerUpdated(domain.Instrument, domain.VariantLedger)     {}
