package ports

import (
	"context"

	"github.com/alejandrodnm/updown/internal/domain"
)

// ResolutionSource consulta el ganador de una ventana ya terminada.
type ResolutionSource interface {
	// Resolution devuelve (ganador, true) si ya está publicado, o (SideNone, false).
	Resolution(ctx context.Context, w domain.MarketWindow) (domain.Side, bool, error)
}
