package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/alejandrodnm/updown/internal/domain"
)

// newBreaker protege a los colaboradores de un instrumento: tras varias
// fallas seguidas las llamadas fallan rápido hasta el cooldown.
func newBreaker(in domain.Instrument) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "collaborators-" + string(in),
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		// "no hay mercado" y la cancelación por Stop no son fallas del colaborador
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNoMarketAvailable) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// guarded ejecuta fn a través del breaker del engine.
// Con el breaker abierto devuelve ErrCollaboratorUnavailable sin llamar.
func guarded[T any](e *Engine, fn func() (T, error)) (T, error) {
	var zero T
	res, err := e.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w", err.Error(), domain.ErrCollaboratorUnavailable)
		}
		return zero, err
	}
	return res.(T), nil
}
