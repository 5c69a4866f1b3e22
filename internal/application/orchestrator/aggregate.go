package orchestrator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/domain"
)

// Aggregate es la vista combinada de todos los engines.
type Aggregate struct {
	Instruments  []instrument.Snapshot
	Variants     []domain.VariantLedger // roll-up por variante, todos los instrumentos
	RecentTrades []domain.Trade         // más reciente primero
	Totals       Totals
}

// Totals son los totales globales.
type Totals struct {
	Trades        int
	Wins          int
	Losses        int
	Pending       int
	PnL           float64
	Invested      float64
	ROI           float64 // %
	CoinsRunning  int
	CoinsEnabled  int
	CoinsFaulted  int
	OpenOrders    int
	TrackedMarket int
}

// AggregateSnapshot combina las fotos de todos los engines. limit acota
// RecentTrades; limit <= 0 no acota.
func (o *Orchestrator) AggregateSnapshot(limit int) Aggregate {
	snaps := o.Snapshots()
	agg := Aggregate{Instruments: snaps}

	byVariant := make(map[string]domain.VariantLedger)
	var ids []string
	var trades []domain.Trade
	pnl, invested := decimal.Zero, decimal.Zero

	for _, s := range snaps {
		agg.Totals.CoinsEnabled++
		if s.Running {
			agg.Totals.CoinsRunning++
		}
		if s.Fault != "" {
			agg.Totals.CoinsFaulted++
		}
		agg.Totals.TrackedMarket += len(s.Windows)
		for _, ord := range s.Orders {
			if ord.IsLive() {
				agg.Totals.OpenOrders++
			}
		}
		for _, l := range s.Ledgers {
			if cur, ok := byVariant[l.VariantID]; ok {
				byVariant[l.VariantID] = cur.Add(l)
			} else {
				byVariant[l.VariantID] = l
				ids = append(ids, l.VariantID)
			}
			agg.Totals.Trades += l.Total
			agg.Totals.Wins += l.Wins
			agg.Totals.Losses += l.Losses
			agg.Totals.Pending += l.Pending
			pnl = pnl.Add(l.PnLDecimal())
			invested = invested.Add(l.InvestedDecimal())
		}
		trades = append(trades, s.Trades...)
	}

	for _, id := range ids {
		agg.Variants = append(agg.Variants, byVariant[id])
	}
	agg.Totals.PnL = pnl.InexactFloat64()
	agg.Totals.Invested = invested.InexactFloat64()
	if invested.IsPositive() {
		agg.Totals.ROI = pnl.Div(invested).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	sortTrades(trades)
	agg.RecentTrades = page(trades, limit, 0)
	return agg
}

// OrderFilter selecciona órdenes. Instrument vacío = todos.
type OrderFilter struct {
	Instrument domain.Instrument
	Limit      int
	Offset     int
}

// Orders devuelve órdenes de más reciente a más antigua.
func (o *Orchestrator) Orders(f OrderFilter) ([]domain.SimOrder, error) {
	snaps, err := o.selected(f.Instrument)
	if err != nil {
		return nil, err
	}
	var orders []domain.SimOrder
	for _, s := range snaps {
		orders = append(orders, s.Orders...)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return page(orders, f.Limit, f.Offset), nil
}

// TradeFilter selecciona trades. Campos vacíos no filtran.
type TradeFilter struct {
	Instrument domain.Instrument
	Family     domain.Family
	Limit      int
	Offset     int
}

// Trades devuelve trades de más reciente a más antiguo.
func (o *Orchestrator) Trades(f TradeFilter) ([]domain.Trade, error) {
	snaps, err := o.selected(f.Instrument)
	if err != nil {
		return nil, err
	}
	var trades []domain.Trade
	for _, s := range snaps {
		for _, t := range s.Trades {
			if f.Family != "" && t.Family != f.Family {
				continue
			}
			trades = append(trades, t)
		}
	}
	sortTrades(trades)
	return page(trades, f.Limit, f.Offset), nil
}

// LastTrades devuelve los últimos trades de todos los instrumentos. Con
// winningOnly solo los de variantes (instrumento, variante) con P&L
// acumulado positivo.
func (o *Orchestrator) LastTrades(limit int, winningOnly bool) []domain.Trade {
	type key struct {
		in domain.Instrument
		id string
	}
	var trades []domain.Trade
	for _, s := range o.Snapshots() {
		winning := make(map[key]bool)
		for _, l := range s.Ledgers {
			if l.PnLDecimal().IsPositive() {
				winning[key{s.Instrument, l.VariantID}] = true
			}
		}
		for _, t := range s.Trades {
			if winningOnly && !winning[key{t.Instrument, t.VariantID}] {
				continue
			}
			trades = append(trades, t)
		}
	}
	sortTrades(trades)
	return page(trades, limit, 0)
}

func (o *Orchestrator) selected(in domain.Instrument) ([]instrument.Snapshot, error) {
	if in == "" {
		return o.Snapshots(), nil
	}
	s, err := o.Snapshot(in)
	if err != nil {
		return nil, err
	}
	return []instrument.Snapshot{s}, nil
}

func sortTrades(trades []domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].EntryTime.After(trades[j].EntryTime)
	})
}

// page aplica offset y limit. limit <= 0 no acota.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
