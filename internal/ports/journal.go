package ports

import (
	"context"

	"github.com/alejandrodnm/updown/internal/domain"
)

// Journal persiste órdenes y trades simulados. Es opcional para el engine.
type Journal interface {
	SaveOrder(ctx context.Context, o domain.SimOrder) error
	SaveTrade(ctx context.Context, t domain.Trade) error
}

// JournalReader lee el histórico persistido (reportes).
type JournalReader interface {
	ListOrders(ctx context.Context, in domain.Instrument) ([]domain.SimOrder, error)
	ListTrades(ctx context.Context, in domain.Instrument) ([]domain.Trade, error)
}
