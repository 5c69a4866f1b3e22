package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// MarketDiscovery encuentra la ventana que está activa o a punto de abrir.
type MarketDiscovery interface {
	// CurrentOrNext devuelve la ventana a operar para el instrumento en now.
	// Si no hay ninguna programable devuelve domain.ErrNoMarketAvailable.
	CurrentOrNext(ctx context.Context, in domain.Instrument, now time.Time) (domain.MarketWindow, error)
}
