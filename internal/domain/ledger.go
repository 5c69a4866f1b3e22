package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// VariantLedger acumula los resultados de una variante en un instrumento.
// Las sumas van en decimal para no arrastrar error de float en corridas largas.
// WinRate y ROI se calculan al leer.
type VariantLedger struct {
	Instrument Instrument // vacío en el roll-up agregado
	VariantID  string
	Family     Family
	Threshold  float64

	Total   int
	Wins    int
	Losses  int
	Pending int

	pnl      decimal.Decimal
	invested decimal.Decimal
}

// NewVariantLedger crea un ledger vacío.
func NewVariantLedger(in Instrument, v Variant) VariantLedger {
	return VariantLedger{
		Instrument: in,
		VariantID:  v.ID,
		Family:     v.Family,
		Threshold:  v.Threshold,
	}
}

// RecordFill registra un trade nuevo (pending) y su capital invertido.
func (l *VariantLedger) RecordFill(t Trade) error {
	if t.VariantID != l.VariantID {
		return fmt.Errorf("domain.RecordFill: trade %s belongs to %s, ledger is %s: %w",
			t.ID, t.VariantID, l.VariantID, ErrInvariantViolation)
	}
	if !t.IsPending() {
		return fmt.Errorf("domain.RecordFill: trade %s already %s: %w", t.ID, t.Result, ErrInvariantViolation)
	}
	l.Total++
	l.Pending++
	l.invested = l.invested.Add(decimal.NewFromFloat(t.Invested))
	return l.Check()
}

// RecordResolution mueve un trade de pending a win/loss y suma su P&L.
// Se llama exactamente una vez por trade.
func (l *VariantLedger) RecordResolution(t Trade) error {
	if t.VariantID != l.VariantID {
		return fmt.Errorf("domain.RecordResolution: trade %s belongs to %s, ledger is %s: %w",
			t.ID, t.VariantID, l.VariantID, ErrInvariantViolation)
	}
	if t.IsPending() || t.PnL == nil {
		return fmt.Errorf("domain.RecordResolution: trade %s not resolved: %w", t.ID, ErrInvariantViolation)
	}
	if l.Pending == 0 {
		return fmt.Errorf("domain.RecordResolution: trade %s has no pending slot: %w", t.ID, ErrInvariantViolation)
	}
	l.Pending--
	switch t.Result {
	case ResultWin:
		l.Wins++
	case ResultLoss:
		l.Losses++
	}
	l.pnl = l.pnl.Add(decimal.NewFromFloat(*t.PnL))
	return l.Check()
}

// Check verifica Total = Wins + Losses + Pending.
func (l VariantLedger) Check() error {
	if l.Total != l.Wins+l.Losses+l.Pending {
		return fmt.Errorf("domain: ledger %s/%s total=%d wins=%d losses=%d pending=%d: %w",
			l.Instrument, l.VariantID, l.Total, l.Wins, l.Losses, l.Pending, ErrInvariantViolation)
	}
	return nil
}

// Add suma otro ledger de la misma variante (roll-up entre instrumentos).
func (l VariantLedger) Add(other VariantLedger) VariantLedger {
	out := l
	if out.VariantID == "" {
		out.VariantID = other.VariantID
		out.Family = other.Family
		out.Threshold = other.Threshold
	}
	if out.Instrument != other.Instrument {
		out.Instrument = ""
	}
	out.Total += other.Total
	out.Wins += other.Wins
	out.Losses += other.Losses
	out.Pending += other.Pending
	out.pnl = out.pnl.Add(other.pnl)
	out.invested = out.invested.Add(other.invested)
	return out
}

// PnL devuelve el P&L acumulado.
func (l VariantLedger) PnL() float64 { return l.pnl.InexactFloat64() }

// Invested devuelve el capital invertido acumulado (volumen de trading).
func (l VariantLedger) Invested() float64 { return l.invested.InexactFloat64() }

// PnLDecimal expone la suma exacta para roll-ups.
func (l VariantLedger) PnLDecimal() decimal.Decimal { return l.pnl }

// InvestedDecimal expone la suma exacta para roll-ups.
func (l VariantLedger) InvestedDecimal() decimal.Decimal { return l.invested }

// WinRate es el % de ganados sobre resueltos.
func (l VariantLedger) WinRate() float64 {
	completed := l.Wins + l.Losses
	if completed == 0 {
		return 0
	}
	return float64(l.Wins) / float64(completed) * 100
}

// ROI es pnl / invertido en %.
func (l VariantLedger) ROI() float64 {
	if l.invested.IsZero() {
		return 0
	}
	return l.pnl.Div(l.invested).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// ReplayLedgers reconstruye los ledgers por (instrumento, variante) a partir
// de trades persistidos. Variantes que ya no están en el set se reconstruyen
// con el threshold derivado del id.
func ReplayLedgers(trades []Trade, variants VariantSet) ([]VariantLedger, error) {
	type key struct {
		in Instrument
		id string
	}
	ledgers := make(map[key]*VariantLedger)
	var keys []key

	for _, t := range trades {
		k := key{t.Instrument, t.VariantID}
		l, ok := ledgers[k]
		if !ok {
			v, known := variants.Get(t.VariantID)
			if !known {
				v = Variant{ID: t.VariantID, Family: t.Family, Threshold: thresholdFromID(t.VariantID)}
			}
			nl := NewVariantLedger(t.Instrument, v)
			l = &nl
			ledgers[k] = l
			keys = append(keys, k)
		}

		entry := t
		entry.Result = ResultPending
		entry.ResolvedAt = nil
		entry.PnL = nil
		if err := l.RecordFill(entry); err != nil {
			return nil, fmt.Errorf("domain.ReplayLedgers: %w", err)
		}
		if !t.IsPending() {
			if err := l.RecordResolution(t); err != nil {
				return nil, fmt.Errorf("domain.ReplayLedgers: %w", err)
			}
		}
	}

	order := make(map[string]int, variants.Len())
	for i, v := range variants.All() {
		order[v.ID] = i
	}
	rank := func(id string) int {
		if i, ok := order[id]; ok {
			return i
		}
		return len(order)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.in != b.in {
			return a.in.Rank() < b.in.Rank()
		}
		if ra, rb := rank(a.id), rank(b.id); ra != rb {
			return ra < rb
		}
		return a.id < b.id
	})

	out := make([]VariantLedger, 0, len(keys))
	for _, k := range keys {
		out = append(out, *ledgers[k])
	}
	return out, nil
}

// thresholdFromID deriva 0.48 de "undervalued_48".
func thresholdFromID(id string) float64 {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0
	}
	return float64(n) / 100
}
