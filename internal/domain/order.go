package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus es el ciclo de vida de una orden simulada.
// Monótono: pending → open → {filled | cancelled | expired}.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// ParseOrderStatus valida un status serializado.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderOpen, OrderFilled, OrderCancelled, OrderExpired:
		return st, nil
	}
	return "", fmt.Errorf("domain.ParseOrderStatus: unknown status %q", s)
}

// IsTerminal indica si la orden ya no puede cambiar.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderExpired
}

// SimOrder es una orden que el tester habría colocado.
type SimOrder struct {
	ID          string
	Instrument  Instrument
	VariantID   string
	Family      Family
	MarketSlug  string
	MarketStart time.Time
	Side        Side
	Price       float64 // precio cotizado al decidir la entrada
	Size        float64 // shares
	LimitPrice  float64 // precio de re-check para el second-chance fill
	Status      OrderStatus
	FilledSize  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSimOrder crea una orden en estado pending para la variante y ventana dadas.
func NewSimOrder(v Variant, w MarketWindow, side Side, price, size float64, now time.Time) SimOrder {
	return SimOrder{
		ID:          uuid.New().String(),
		Instrument:  w.Instrument,
		VariantID:   v.ID,
		Family:      v.Family,
		MarketSlug:  w.Slug,
		MarketStart: w.Start,
		Side:        side,
		Price:       price,
		Size:        size,
		LimitPrice:  price,
		Status:      OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsLive indica si la orden sigue viva (no terminal).
func (o SimOrder) IsLive() bool { return !o.Status.IsTerminal() }

// Open pasa la orden de pending a open.
func (o *SimOrder) Open(now time.Time) error {
	if o.Status != OrderPending {
		return o.badTransition(OrderOpen)
	}
	o.Status = OrderOpen
	o.UpdatedAt = now
	return nil
}

// Fill llena la orden completa. No hay fills parciales.
func (o *SimOrder) Fill(now time.Time) error {
	if o.Status.IsTerminal() {
		return o.badTransition(OrderFilled)
	}
	o.Status = OrderFilled
	o.FilledSize = o.Size
	o.UpdatedAt = now
	return nil
}

// Cancel cancela una orden viva.
func (o *SimOrder) Cancel(now time.Time) error {
	if o.Status.IsTerminal() {
		return o.badTransition(OrderCancelled)
	}
	o.Status = OrderCancelled
	o.UpdatedAt = now
	return nil
}

// Expire marca como expirada una orden viva cuya ventana ya terminó.
func (o *SimOrder) Expire(now time.Time) error {
	if o.Status.IsTerminal() {
		return o.badTransition(OrderExpired)
	}
	o.Status = OrderExpired
	o.UpdatedAt = now
	return nil
}

func (o SimOrder) badTransition(to OrderStatus) error {
	return fmt.Errorf("domain: order %s %s → %s: %w", o.ID, o.Status, to, ErrInvariantViolation)
}

// FillPct devuelve el porcentaje llenado (0 o 100, no hay parciales).
func (o SimOrder) FillPct() int {
	if o.Size <= 0 {
		return 0
	}
	return int(o.FilledSize / o.Size * 100)
}
