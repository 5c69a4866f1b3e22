package instrument_test

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/domain"
)

// fakeDiscovery devuelve la ventana (o el error) configurados.
type fakeDiscovery struct {
	mu     sync.Mutex
	window domain.MarketWindow
	err    error
	calls  int
}

func (f *fakeDiscovery) set(w domain.MarketWindow, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window, f.err = w, err
}

func (f *fakeDiscovery) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDiscovery) CurrentOrNext(ctx context.Context, _ domain.Instrument, _ time.Time) (domain.MarketWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return domain.MarketWindow{}, err
	}
	return f.window, f.err
}

// fakeQuotes devuelve la quote configurada. hook, si existe, corre antes.
type fakeQuotes struct {
	mu    sync.Mutex
	quote domain.Quote
	err   error
	calls int
	hook  func(ctx context.Context) error
}

func (f *fakeQuotes) set(up, down float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quote = domain.Quote{Up: up, Down: down, Available: up > 0 && down > 0}
	f.err = nil
}

func (f *fakeQuotes) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeQuotes) BestPrices(ctx context.Context, _ domain.MarketWindow) (domain.Quote, error) {
	f.mu.Lock()
	hook := f.hook
	f.calls++
	q, err := f.quote, f.err
	f.mu.Unlock()
	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return domain.Quote{}, herr
		}
	}
	return q, err
}

// fakeResolver publica el ganador cuando ok es true. hook, si existe, corre antes.
type fakeResolver struct {
	mu     sync.Mutex
	winner domain.Side
	ok     bool
	err    error
	calls  int
	hook   func(ctx context.Context) error
}

func (f *fakeResolver) set(winner domain.Side, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winner, f.ok, f.err = winner, ok, err
}

func (f *fakeResolver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeResolver) Resolution(ctx context.Context, _ domain.MarketWindow) (domain.Side, bool, error) {
	f.mu.Lock()
	hook := f.hook
	f.calls++
	winner, ok, err := f.winner, f.ok, f.err
	f.mu.Unlock()
	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return domain.SideNone, false, herr
		}
	}
	if err != nil {
		return domain.SideNone, false, err
	}
	if !ok {
		return domain.SideNone, false, nil
	}
	return winner, true, nil
}

// memJournal guarda la última versión de cada orden y trade. Si gate no es
// nil, cada escritura espera a que se cierre.
type memJournal struct {
	mu     sync.Mutex
	orders map[string]domain.SimOrder
	trades map[string]domain.Trade
	gate   chan struct{}
}

func newMemJournal() *memJournal {
	return &memJournal{
		orders: make(map[string]domain.SimOrder),
		trades: make(map[string]domain.Trade),
	}
}

func (j *memJournal) wait() {
	if j.gate != nil {
		<-j.gate
	}
}

func (j *memJournal) SaveOrder(_ context.Context, o domain.SimOrder) error {
	j.wait()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders[o.ID] = o
	return nil
}

func (j *memJournal) SaveTrade(_ context.Context, t domain.Trade) error {
	j.wait()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades[t.ID] = t
	return nil
}

func (j *memJournal) order(id string) (domain.SimOrder, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	o, ok := j.orders[id]
	return o, ok
}

func (j *memJournal) trade(id string) (domain.Trade, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	t, ok := j.trades[id]
	return t, ok
}

// countingMetrics cuenta eventos por tipo.
type countingMetrics struct {
	mu       sync.Mutex
	placed   int
	filled   int
	closed   int
	resolved int
	skips    map[instrument.SkipReason]int
	ticks    int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{skips: make(map[instrument.SkipReason]int)}
}

func (m *countingMetrics) OrderPlaced(domain.Instrument, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed++
}

func (m *countingMetrics) OrderFilled(domain.Instrument, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filled++
}

func (m *countingMetrics) OrderClosed(domain.Instrument, string, domain.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func (m *countingMetrics) TradeResolved(domain.Instrument, domain.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved++
}

func (m *countingMetrics) TickSkipped(_ domain.Instrument, r instrument.SkipReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[r]++
}

func (m *countingMetrics) TickCompleted(domain.Instrument, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *countingMetrics) LedgerUpdated(domain.Instrument, domain.VariantLedger) {}

func (j *memJournal) size() (orders, trades int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.orders), len(j.trades)
}

// seqRand devuelve los valores en orden y repite el último.
type seqRand struct {
	mu   sync.Mutex
	vals []float64
}

func (r *seqRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vals[0]
	if len(r.vals) > 1 {
		r.vals = r.vals[1:]
	}
	return v
}

// fixedRand devuelve siempre el mismo valor.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }
