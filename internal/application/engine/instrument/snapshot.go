package instrument

import (
	"sort"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// WindowView es una ventana seguida por el engine con su fase al publicar.
type WindowView struct {
	Window    domain.MarketWindow
	Phase     domain.Phase
	Countdown time.Duration
	Target    bool
}

// Snapshot es una foto inmutable del estado del engine tras un tick.
// Orders y Trades van de más reciente a más antiguo.
type Snapshot struct {
	Instrument domain.Instrument
	Running    bool
	StartedAt  *time.Time
	Fault      string
	Ticks      int
	LastTick   TickResult
	Windows    []WindowView
	Orders     []domain.SimOrder
	Trades     []domain.Trade
	Ledgers    []domain.VariantLedger // en el orden del VariantSet
}

// Snapshot devuelve la última foto publicada. Nunca bloquea al tick.
func (e *Engine) Snapshot() Snapshot {
	s := *e.snap.Load()
	s.Running = e.running.Load()
	s.StartedAt = e.startedAt.Load()
	s.Fault = e.Fault()
	return s
}

// Ledger devuelve el ledger publicado de una variante.
func (s Snapshot) Ledger(variantID string) (domain.VariantLedger, bool) {
	for _, l := range s.Ledgers {
		if l.VariantID == variantID {
			return l, true
		}
	}
	return domain.VariantLedger{}, false
}

// publish copia el estado privado a un Snapshot nuevo. Solo se llama
// con tickMu tomado (o desde New).
func (e *Engine) publish() {
	now := e.cfg.Now()
	s := &Snapshot{
		Instrument: e.in,
		Ticks:      e.ticks,
		LastTick:   e.last,
		Orders:     make([]domain.SimOrder, 0, len(e.orders)),
		Trades:     make([]domain.Trade, 0, len(e.trades)),
		Ledgers:    make([]domain.VariantLedger, 0, len(e.ledgers)),
		Windows:    make([]WindowView, 0, len(e.windows)),
	}
	s.LastTick.Skips = append([]Skip(nil), e.last.Skips...)

	for i := len(e.orders) - 1; i >= 0; i-- {
		s.Orders = append(s.Orders, *e.orders[i])
	}
	for i := len(e.trades) - 1; i >= 0; i-- {
		s.Trades = append(s.Trades, *e.trades[i])
	}
	for _, v := range e.variants.All() {
		s.Ledgers = append(s.Ledgers, *e.ledgers[v.ID])
	}
	for slug, tw := range e.windows {
		s.Windows = append(s.Windows, WindowView{
			Window:    tw.window,
			Phase:     domain.PhaseOf(tw.window, now, e.cfg.EntryWindow),
			Countdown: tw.window.Countdown(now),
			Target:    slug == e.target,
		})
	}
	sort.Slice(s.Windows, func(i, j int) bool {
		return s.Windows[i].Window.Start.Before(s.Windows[j].Window.Start)
	})
	e.snap.Store(s)
}
