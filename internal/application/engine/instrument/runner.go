package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// ErrFaulted se devuelve al arrancar un engine detenido por una violación de invariante.
var ErrFaulted = errors.New("engine faulted")

// Start arranca el loop periódico del engine. Si ya corre no hace nada.
// El loop vive hasta Stop o hasta que parent se cancele.
func (e *Engine) Start(parent context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.done != nil {
		select {
		case <-e.done:
			// el loop terminó solo (fault o parent cancelado)
			e.cancel()
			e.cancel, e.done = nil, nil
		default:
			return nil
		}
	}
	if f := e.Fault(); f != "" {
		return fmt.Errorf("instrument.Start %s: %w: %s", e.in, ErrFaulted, f)
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	now := e.cfg.Now()
	e.startedAt.Store(&now)
	e.running.Store(true)

	go e.loop(ctx, done)

	slog.Info("engine started",
		"coin", e.in,
		"variants", e.variants.Len(),
		"interval", e.cfg.Interval.String(),
	)
	return nil
}

// Stop detiene el loop y espera a que el tick en curso termine.
// Si no corre no hace nada. Un Start concurrente espera a que Stop termine.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil
	slog.Info("engine stopped", "coin", e.in)
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		e.running.Store(false)
		e.startedAt.Store(nil)
	}()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	if !e.runTick(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.runTick(ctx) {
				return
			}
		}
	}
}

// runTick ejecuta un tick acotado por TickTimeout. Devuelve false si el
// loop debe terminar.
func (e *Engine) runTick(ctx context.Context) bool {
	tctx, cancel := context.WithTimeout(ctx, e.cfg.TickTimeout)
	defer cancel()

	res, err := e.safeTick(tctx, e.cfg.Now())
	switch {
	case err == nil:
		slog.Debug("tick",
			"coin", e.in,
			"market", res.Market,
			"phase", res.Phase,
			"placed", res.Placed,
			"filled", res.Filled,
			"cancelled", res.Cancelled,
			"resolved", res.Resolved,
			"skips", len(res.Skips),
		)
		return true
	case isInvariant(err):
		e.setFault(err)
		slog.Error("engine halted", "coin", e.in, "err", err)
		return false
	case ctx.Err() != nil:
		return false
	default:
		slog.Warn("tick failed", "coin", e.in, "err", err)
		return true
	}
}

// safeTick convierte un panic en una violación de invariante para que solo
// se detenga este engine.
func (e *Engine) safeTick(ctx context.Context, now time.Time) (res TickResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("instrument.Tick %s: panic: %v: %w", e.in, r, domain.ErrInvariantViolation)
		}
	}()
	return e.Tick(ctx, now)
}
