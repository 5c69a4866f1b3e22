package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// column es un campo exportable de T: nombre, cómo se escribe y cómo se lee.
type column[T any] struct {
	name string
	get  func(T) string
	set  func(*T, string) error
}

func str[T any](name string, get func(T) string, set func(*T, string)) column[T] {
	return column[T]{
		name: name,
		get:  get,
		set: func(t *T, s string) error {
			set(t, s)
			return nil
		},
	}
}

func num[T any](name string, get func(T) float64, set func(*T, float64)) column[T] {
	return column[T]{
		name: name,
		get:  func(t T) string { return formatFloat(get(t)) },
		set: func(t *T, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			set(t, v)
			return nil
		},
	}
}

func ts[T any](name string, get func(T) time.Time, set func(*T, time.Time)) column[T] {
	return column[T]{
		name: name,
		get:  func(t T) string { return formatTime(get(t)) },
		set: func(t *T, s string) error {
			v, err := parseTime(s)
			if err != nil {
				return err
			}
			set(t, v)
			return nil
		},
	}
}

// Campos en el mismo orden que domain.SimOrder.
var orderColumns = []column[domain.SimOrder]{
	str("id", func(o domain.SimOrder) string { return o.ID }, func(o *domain.SimOrder, s string) { o.ID = s }),
	str("instrument", func(o domain.SimOrder) string { return string(o.Instrument) }, func(o *domain.SimOrder, s string) { o.Instrument = domain.Instrument(s) }),
	str("variant_id", func(o domain.SimOrder) string { return o.VariantID }, func(o *domain.SimOrder, s string) { o.VariantID = s }),
	str("family", func(o domain.SimOrder) string { return string(o.Family) }, func(o *domain.SimOrder, s string) { o.Family = domain.Family(s) }),
	str("market_slug", func(o domain.SimOrder) string { return o.MarketSlug }, func(o *domain.SimOrder, s string) { o.MarketSlug = s }),
	ts("market_start", func(o domain.SimOrder) time.Time { return o.MarketStart }, func(o *domain.SimOrder, t time.Time) { o.MarketStart = t }),
	str("side", func(o domain.SimOrder) string { return string(o.Side) }, func(o *domain.SimOrder, s string) { o.Side = domain.Side(s) }),
	num("price", func(o domain.SimOrder) float64 { return o.Price }, func(o *domain.SimOrder, v float64) { o.Price = v }),
	num("size", func(o domain.SimOrder) float64 { return o.Size }, func(o *domain.SimOrder, v float64) { o.Size = v }),
	num("limit_price", func(o domain.SimOrder) float64 { return o.LimitPrice }, func(o *domain.SimOrder, v float64) { o.LimitPrice = v }),
	str("status", func(o domain.SimOrder) string { return string(o.Status) }, func(o *domain.SimOrder, s string) { o.Status = domain.OrderStatus(s) }),
	num("filled_size", func(o domain.SimOrder) float64 { return o.FilledSize }, func(o *domain.SimOrder, v float64) { o.FilledSize = v }),
	ts("created_at", func(o domain.SimOrder) time.Time { return o.CreatedAt }, func(o *domain.SimOrder, t time.Time) { o.CreatedAt = t }),
	ts("updated_at", func(o domain.SimOrder) time.Time { return o.UpdatedAt }, func(o *domain.SimOrder, t time.Time) { o.UpdatedAt = t }),
}

// Campos en el mismo orden que domain.Trade.
var tradeColumns = []column[domain.Trade]{
	str("id", func(t domain.Trade) string { return t.ID }, func(t *domain.Trade, s string) { t.ID = s }),
	str("order_id", func(t domain.Trade) string { return t.OrderID }, func(t *domain.Trade, s string) { t.OrderID = s }),
	str("instrument", func(t domain.Trade) string { return string(t.Instrument) }, func(t *domain.Trade, s string) { t.Instrument = domain.Instrument(s) }),
	str("variant_id", func(t domain.Trade) string { return t.VariantID }, func(t *domain.Trade, s string) { t.VariantID = s }),
	str("family", func(t domain.Trade) string { return string(t.Family) }, func(t *domain.Trade, s string) { t.Family = domain.Family(s) }),
	str("market_slug", func(t domain.Trade) string { return t.MarketSlug }, func(t *domain.Trade, s string) { t.MarketSlug = s }),
	ts("market_start", func(t domain.Trade) time.Time { return t.MarketStart }, func(t *domain.Trade, v time.Time) { t.MarketStart = v }),
	str("side", func(t domain.Trade) string { return string(t.Side) }, func(t *domain.Trade, s string) { t.Side = domain.Side(s) }),
	num("entry_price", func(t domain.Trade) float64 { return t.EntryPrice }, func(t *domain.Trade, v float64) { t.EntryPrice = v }),
	num("size", func(t domain.Trade) float64 { return t.Size }, func(t *domain.Trade, v float64) { t.Size = v }),
	num("filled_size", func(t domain.Trade) float64 { return t.FilledSize }, func(t *domain.Trade, v float64) { t.FilledSize = v }),
	num("invested", func(t domain.Trade) float64 { return t.Invested }, func(t *domain.Trade, v float64) { t.Invested = v }),
	ts("entry_time", func(t domain.Trade) time.Time { return t.EntryTime }, func(t *domain.Trade, v time.Time) { t.EntryTime = v }),
	str("result", func(t domain.Trade) string { return string(t.Result) }, func(t *domain.Trade, s string) { t.Result = domain.TradeResult(s) }),
	{
		name: "resolved_at",
		get: func(t domain.Trade) string {
			if t.ResolvedAt == nil {
				return ""
			}
			return formatTime(*t.ResolvedAt)
		},
		set: func(t *domain.Trade, s string) error {
			if s == "" {
				t.ResolvedAt = nil
				return nil
			}
			v, err := parseTime(s)
			if err != nil {
				return err
			}
			t.ResolvedAt = &v
			return nil
		},
	},
	{
		name: "pnl",
		get: func(t domain.Trade) string {
			if t.PnL == nil {
				return ""
			}
			return formatFloat(*t.PnL)
		},
		set: func(t *domain.Trade, s string) error {
			if s == "" {
				t.PnL = nil
				return nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			t.PnL = &v
			return nil
		},
	},
}

// formatFloat usa la representación más corta que vuelve al mismo float64.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
