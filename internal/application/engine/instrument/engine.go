// Package instrument implementa el engine por instrumento: la máquina de
// estados que decide entradas, simula fills, sigue los trades hasta la
// resolución del mercado y mantiene los ledgers de cada variante.
package instrument

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/alejandrodnm/updown/internal/application/engine/fill"
	"github.com/alejandrodnm/updown/internal/domain"
	"github.com/alejandrodnm/updown/internal/ports"
)

const (
	DefaultInterval          = 2 * time.Second
	DefaultOrderSize         = 10.0
	DefaultRecentTrades      = 200
	DefaultResolutionRecheck = 15 * time.Second

	breakerConsecutiveFailures = 5
	breakerCooldown            = 30 * time.Second
)

// Config controla el comportamiento de un engine.
type Config struct {
	Interval          time.Duration
	TickTimeout       time.Duration // acota cada tick; 0 = Interval
	OrderSize         float64       // shares por orden
	EntryWindow       domain.EntryWindow
	RecentTrades      int           // trades resueltos retenidos para display
	ResolutionRecheck time.Duration // mínimo entre consultas de resolución por ventana; < 0 = sin throttle
	Now               func() time.Time
}

// DefaultConfig devuelve la configuración por defecto.
func DefaultConfig() Config {
	return Config{
		Interval:          DefaultInterval,
		TickTimeout:       DefaultInterval,
		OrderSize:         DefaultOrderSize,
		EntryWindow:       domain.DefaultEntryWindow(),
		RecentTrades:      DefaultRecentTrades,
		ResolutionRecheck: DefaultResolutionRecheck,
		Now:               time.Now,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = c.Interval
	}
	if c.OrderSize <= 0 {
		c.OrderSize = d.OrderSize
	}
	if c.EntryWindow == (domain.EntryWindow{}) {
		c.EntryWindow = d.EntryWindow
	}
	if c.RecentTrades <= 0 {
		c.RecentTrades = d.RecentTrades
	}
	if c.ResolutionRecheck == 0 {
		c.ResolutionRecheck = d.ResolutionRecheck
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Deps son los colaboradores del engine. Journal y Metrics son opcionales;
// con Journal el engine arranca un writer propio que escribe fuera del tick.
type Deps struct {
	Discovery ports.MarketDiscovery
	Quotes    ports.QuoteSource
	Resolver  ports.ResolutionSource
	Journal   ports.Journal
	Metrics   Metrics
	Simulator *fill.Simulator
}

// trackedWindow es una ventana con sus órdenes por variante.
// Una variante que ya tiene orden (en cualquier estado) no vuelve a entrar.
type trackedWindow struct {
	window              domain.MarketWindow
	orders              map[string]*domain.SimOrder // variantID → orden
	lastResolutionCheck time.Time
}

func (tw *trackedWindow) hasLiveOrders() bool {
	for _, o := range tw.orders {
		if o.IsLive() {
			return true
		}
	}
	return false
}

// Engine es el engine de un instrumento. Tick muta el estado privado;
// Snapshot lee la última foto publicada sin bloquear el tick.
type Engine struct {
	in       domain.Instrument
	cfg      Config
	variants domain.VariantSet
	deps     Deps
	breaker  *gobreaker.CircuitBreaker

	tickMu  sync.Mutex // serializa ticks
	windows map[string]*trackedWindow
	target  string
	orders  []*domain.SimOrder // orden de creación
	trades  []*domain.Trade    // orden de entrada
	ledgers map[string]*domain.VariantLedger
	ticks   int
	last    TickResult

	snap        atomic.Pointer[Snapshot]
	batches     chan journalBatch // nil sin Journal o tras Close
	journalDone chan struct{}

	runMu     sync.Mutex
	cancel    func()
	done      chan struct{}
	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
	fault     atomic.Pointer[string]
}

// New crea un engine para el instrumento dado.
func New(in domain.Instrument, variants domain.VariantSet, deps Deps, cfg Config) (*Engine, error) {
	if deps.Discovery == nil || deps.Quotes == nil || deps.Resolver == nil {
		return nil, fmt.Errorf("instrument.New %s: discovery, quotes and resolver are required", in)
	}
	if variants.Len() == 0 {
		return nil, fmt.Errorf("instrument.New %s: empty variant set", in)
	}
	cfg.applyDefaults()
	if deps.Simulator == nil {
		deps.Simulator = fill.New(fill.DefaultProbability, nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}

	e := &Engine{
		in:       in,
		cfg:      cfg,
		variants: variants,
		deps:     deps,
		windows:  make(map[string]*trackedWindow),
		ledgers:  make(map[string]*domain.VariantLedger, variants.Len()),
	}
	for _, v := range variants.All() {
		l := domain.NewVariantLedger(in, v)
		e.ledgers[v.ID] = &l
	}
	e.breaker = newBreaker(in)
	if deps.Journal != nil {
		e.batches = make(chan journalBatch, journalBacklog)
		e.journalDone = make(chan struct{})
		go e.writeJournal()
	}
	e.publish()
	return e, nil
}

// Instrument devuelve el instrumento del engine.
func (e *Engine) Instrument() domain.Instrument { return e.in }

// Variants devuelve el set de variantes del engine.
func (e *Engine) Variants() domain.VariantSet { return e.variants }

// Config devuelve la configuración efectiva.
func (e *Engine) Config() Config { return e.cfg }

// IsRunning indica si el loop periódico está activo.
func (e *Engine) IsRunning() bool { return e.running.Load() }

// Fault devuelve el error que detuvo el engine, o "" si no hay fallo.
func (e *Engine) Fault() string {
	if f := e.fault.Load(); f != nil {
		return *f
	}
	return ""
}

func (e *Engine) setFault(err error) {
	msg := err.Error()
	e.fault.Store(&msg)
}

// isInvariant indica si err es un defecto de lógica.
func isInvariant(err error) bool {
	return errors.Is(err, domain.ErrInvariantViolation)
}
