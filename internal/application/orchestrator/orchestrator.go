// Package orchestrator agrupa los engines por instrumento: los arranca y
// detiene de forma independiente y agrega sus snapshots para lectura.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/domain"
)

// ErrUnknownInstrument se devuelve para un instrumento sin engine registrado.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Engine es lo que el orquestador necesita de un engine de instrumento.
type Engine interface {
	Instrument() domain.Instrument
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
	Snapshot() instrument.Snapshot
}

// Orchestrator es el registro de engines. El lock solo cubre el mapa:
// Start/Stop/Snapshot de cada engine se llaman fuera de él.
type Orchestrator struct {
	mu      sync.RWMutex
	engines map[domain.Instrument]Engine
	order   []domain.Instrument
}

// New registra los engines dados. Un instrumento repetido es un error.
func New(engines ...Engine) (*Orchestrator, error) {
	o := &Orchestrator{engines: make(map[domain.Instrument]Engine, len(engines))}
	for _, e := range engines {
		in := e.Instrument()
		if _, dup := o.engines[in]; dup {
			return nil, fmt.Errorf("orchestrator.New: duplicate engine for %s", in)
		}
		o.engines[in] = e
		o.order = append(o.order, in)
	}
	sort.Slice(o.order, func(i, j int) bool { return o.order[i].Rank() < o.order[j].Rank() })
	return o, nil
}

// Instruments devuelve los instrumentos registrados.
func (o *Orchestrator) Instruments() []domain.Instrument {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.Instrument(nil), o.order...)
}

func (o *Orchestrator) engine(in domain.Instrument) (Engine, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.engines[in]
	if !ok {
		return nil, fmt.Errorf("orchestrator: %q: %w", in, ErrUnknownInstrument)
	}
	return e, nil
}

func (o *Orchestrator) all() []Engine {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Engine, 0, len(o.order))
	for _, in := range o.order {
		out = append(out, o.engines[in])
	}
	return out
}

// Start arranca el engine del instrumento. No hace nada si ya corre.
func (o *Orchestrator) Start(ctx context.Context, in domain.Instrument) error {
	e, err := o.engine(in)
	if err != nil {
		return err
	}
	return e.Start(ctx)
}

// Stop detiene el engine del instrumento conservando ledgers e histórico.
func (o *Orchestrator) Stop(in domain.Instrument) error {
	e, err := o.engine(in)
	if err != nil {
		return err
	}
	e.Stop()
	return nil
}

// StartAll arranca todos los engines. Un engine en fallo no impide que
// arranquen los demás; sus errores se devuelven juntos.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	engines := o.all()
	errs := make([]error, len(engines))
	var g errgroup.Group
	for i, e := range engines {
		g.Go(func() error {
			errs[i] = e.Start(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// StopAll detiene todos los engines y espera a que terminen.
func (o *Orchestrator) StopAll() {
	var g errgroup.Group
	for _, e := range o.all() {
		g.Go(func() error {
			e.Stop()
			return nil
		})
	}
	_ = g.Wait()
}

// Snapshot devuelve la foto del engine del instrumento.
func (o *Orchestrator) Snapshot(in domain.Instrument) (instrument.Snapshot, error) {
	e, err := o.engine(in)
	if err != nil {
		return instrument.Snapshot{}, err
	}
	return e.Snapshot(), nil
}

// Snapshots devuelve la foto de cada engine en orden de instrumento.
func (o *Orchestrator) Snapshots() []instrument.Snapshot {
	engines := o.all()
	out := make([]instrument.Snapshot, 0, len(engines))
	for _, e := range engines {
		out = append(out, e.Snapshot())
	}
	return out
}
