package domain

import "errors"

var (
	// ErrCollaboratorUnavailable: una llamada a discovery, quotes o resolución
	// falló o expiró. Recuperable, afecta solo al tick actual.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrNoMarketAvailable: discovery no encontró ninguna ventana programable.
	ErrNoMarketAvailable = errors.New("no market available")

	// ErrInvariantViolation indica un bug de lógica. Nunca se recupera dentro del engine.
	ErrInvariantViolation = errors.New("invariant violation")
)
