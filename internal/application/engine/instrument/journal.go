package instrument

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

const (
	journalBacklog      = 256
	journalWriteTimeout = 5 * time.Second
)

// journalBatch son las órdenes y trades que cambiaron en un tick, copiados
// al final del tick.
type journalBatch struct {
	orders []domain.SimOrder
	trades []domain.Trade
}

// journal encola lo que cambió en el tick para el writer del engine. Nunca
// bloquea al tick: con la cola llena el batch se descarta con un warn.
func (e *Engine) journal(changes *tickChanges) {
	if e.batches == nil || (len(changes.orders) == 0 && len(changes.trades) == 0) {
		return
	}
	b := journalBatch{
		orders: make([]domain.SimOrder, 0, len(changes.orders)),
		trades: make([]domain.Trade, 0, len(changes.trades)),
	}
	for _, o := range changes.orders {
		b.orders = append(b.orders, *o)
	}
	for _, t := range changes.trades {
		b.trades = append(b.trades, *t)
	}

	select {
	case e.batches <- b:
	default:
		slog.Warn("journal: backlog full, batch dropped",
			"coin", e.in,
			"orders", len(b.orders),
			"trades", len(b.trades),
		)
	}
}

// writeJournal escribe los batches en orden, fuera del tick. Best-effort:
// un fallo no afecta al estado en memoria.
func (e *Engine) writeJournal() {
	defer close(e.journalDone)
	for b := range e.batches {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		for _, o := range b.orders {
			if err := e.deps.Journal.SaveOrder(ctx, o); err != nil {
				slog.Warn("journal: save order failed", "coin", e.in, "order", o.ID, "err", err)
			}
		}
		for _, t := range b.trades {
			if err := e.deps.Journal.SaveTrade(ctx, t); err != nil {
				slog.Warn("journal: save trade failed", "coin", e.in, "trade", t.ID, "err", err)
			}
		}
		cancel()
	}
}

// Close detiene el engine y espera a que el writer vacíe la cola del journal.
// Después de Close el engine ya no journalea.
func (e *Engine) Close() {
	e.Stop()

	e.tickMu.Lock()
	batches := e.batches
	e.batches = nil
	e.tickMu.Unlock()

	if batches == nil {
		return
	}
	close(batches)
	<-e.journalDone
}
