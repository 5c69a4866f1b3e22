package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TradeResult es el resultado de un trade tras la resolución del mercado.
type TradeResult string

const (
	ResultPending TradeResult = "pending"
	ResultWin     TradeResult = "win"
	ResultLoss    TradeResult = "loss"
)

// ParseTradeResult valida un resultado serializado.
func ParseTradeResult(s string) (TradeResult, error) {
	switch r := TradeResult(s); r {
	case ResultPending, ResultWin, ResultLoss:
		return r, nil
	}
	return "", fmt.Errorf("domain.ParseTradeResult: unknown result %q", s)
}

// Trade nace de una SimOrder filled y vive hasta que su ventana se resuelve.
// Inmutable tras Resolve.
type Trade struct {
	ID          string
	OrderID     string
	Instrument  Instrument
	VariantID   string
	Family      Family
	MarketSlug  string
	MarketStart time.Time
	Side        Side
	EntryPrice  float64
	Size        float64
	FilledSize  float64
	Invested    float64 // Size × EntryPrice
	EntryTime   time.Time
	Result      TradeResult
	ResolvedAt  *time.Time
	PnL         *float64 // nil mientras está pending
}

// NewTrade materializa el trade de una orden filled.
// El precio de entrada es siempre el limit price guardado en la orden.
func NewTrade(o SimOrder) (Trade, error) {
	if o.Status != OrderFilled {
		return Trade{}, fmt.Errorf("domain.NewTrade: order %s is %s, not filled: %w",
			o.ID, o.Status, ErrInvariantViolation)
	}
	return Trade{
		ID:          uuid.New().String(),
		OrderID:     o.ID,
		Instrument:  o.Instrument,
		VariantID:   o.VariantID,
		Family:      o.Family,
		MarketSlug:  o.MarketSlug,
		MarketStart: o.MarketStart,
		Side:        o.Side,
		EntryPrice:  o.LimitPrice,
		Size:        o.Size,
		FilledSize:  o.FilledSize,
		Invested:    o.Size * o.LimitPrice,
		EntryTime:   o.UpdatedAt,
		Result:      ResultPending,
	}, nil
}

// IsPending indica si el trade aún espera la resolución.
func (t Trade) IsPending() bool { return t.Result == ResultPending }

// Resolve fija win/loss y el P&L comparando el lado del trade con el ganador.
func (t *Trade) Resolve(winner Side, now time.Time) error {
	if !t.IsPending() {
		return fmt.Errorf("domain.Trade.Resolve %s: already %s: %w", t.ID, t.Result, ErrInvariantViolation)
	}
	if winner != SideUp && winner != SideDown {
		return fmt.Errorf("domain.Trade.Resolve %s: invalid winner %q", t.ID, winner)
	}
	pnl := TradePnL(t.Size, t.EntryPrice, t.Side == winner)
	if t.Side == winner {
		t.Result = ResultWin
	} else {
		t.Result = ResultLoss
	}
	resolved := now
	t.ResolvedAt = &resolved
	t.PnL = &pnl
	return nil
}

// TradePnL: size×(1−entry) si gana, −size×entry si pierde.
func TradePnL(size, entry float64, won bool) float64 {
	if won {
		return size * (1 - entry)
	}
	return -size * entry
}

// RealizedPnL devuelve el P&L o 0 si está pending.
func (t Trade) RealizedPnL() float64 {
	if t.PnL == nil {
		return 0
	}
	return *t.PnL
}
