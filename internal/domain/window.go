package domain

import "time"

// Phase es la fase del ciclo de vida de una ventana vista desde el engine.
type Phase string

const (
	PhaseWaiting         Phase = "waiting"
	PhaseEntryOpen       Phase = "entry_open"
	PhaseEntryClosing    Phase = "entry_closing"
	PhaseActive          Phase = "active"
	PhaseResolvedPending Phase = "resolved_pending"
	PhaseResolved        Phase = "resolved"
)

// EntryWindow delimita, en segundos de countdown hasta End, cuándo se pueden
// colocar órdenes: End ≤ countdown ≤ Start.
type EntryWindow struct {
	Start time.Duration
	End   time.Duration
}

// DefaultEntryWindow: de 20:30 a 15:30 antes del cierre del mercado.
func DefaultEntryWindow() EntryWindow {
	return EntryWindow{Start: 1230 * time.Second, End: 930 * time.Second}
}

// PhaseOf es una función pura: mismas entradas, misma fase.
func PhaseOf(w MarketWindow, now time.Time, ew EntryWindow) Phase {
	if w.IsResolved() {
		return PhaseResolved
	}
	cd := w.Countdown(now)
	switch {
	case cd <= 0:
		return PhaseResolvedPending
	case cd > ew.Start:
		return PhaseWaiting
	case cd >= ew.End:
		return PhaseEntryOpen
	case now.Before(w.Start):
		return PhaseEntryClosing
	default:
		return PhaseActive
	}
}

// IsPastEnd indica si la ventana ya terminó (resuelta o esperando resolución).
func (p Phase) IsPastEnd() bool {
	return p == PhaseResolvedPending || p == PhaseResolved
}
