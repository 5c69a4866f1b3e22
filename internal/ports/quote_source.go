package ports

import (
	"context"

	"github.com/alejandrodnm/updown/internal/domain"
)

// QuoteSource obtiene los best bids de ambos lados de una ventana.
type QuoteSource interface {
	// BestPrices devuelve Quote.Available=false si falta liquidez; no es un error.
	BestPrices(ctx context.Context, w domain.MarketWindow) (domain.Quote, error)
}
