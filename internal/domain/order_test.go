package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) SimOrder {
	t.Helper()
	v, err := NewVariant(FamilyUndervalued, 0.48)
	require.NoError(t, err)
	w := NewMarketWindow(BTC, "0xcond", "up", "down", testStart)
	return NewSimOrder(v, w, SideDown, 0.46, 10, testStart.Add(-250*time.Second))
}

func TestNewSimOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, OrderPending, o.Status)
	assert.Equal(t, "undervalued_48", o.VariantID)
	assert.Equal(t, BTC, o.Instrument)
	assert.Equal(t, "btc-updown-15m-1700000100", o.MarketSlug)
	assert.Equal(t, 0.46, o.LimitPrice)
	assert.True(t, o.IsLive())
	assert.Equal(t, 0, o.FillPct())
}

func TestSimOrder_Transitions(t *testing.T) {
	later := testStart.Add(-200 * time.Second)

	tests := []struct {
		name    string
		steps   []func(*SimOrder, time.Time) error
		final   OrderStatus
		wantErr bool
	}{
		{"immediate fill", []func(*SimOrder, time.Time) error{(*SimOrder).Fill}, OrderFilled, false},
		{"open then fill", []func(*SimOrder, time.Time) error{(*SimOrder).Open, (*SimOrder).Fill}, OrderFilled, false},
		{"open then cancel", []func(*SimOrder, time.Time) error{(*SimOrder).Open, (*SimOrder).Cancel}, OrderCancelled, false},
		{"open then expire", []func(*SimOrder, time.Time) error{(*SimOrder).Open, (*SimOrder).Expire}, OrderExpired, false},
		{"open twice", []func(*SimOrder, time.Time) error{(*SimOrder).Open, (*SimOrder).Open}, OrderOpen, true},
		{"cancel filled", []func(*SimOrder, time.Time) error{(*SimOrder).Fill, (*SimOrder).Cancel}, OrderFilled, true},
		{"fill cancelled", []func(*SimOrder, time.Time) error{(*SimOrder).Cancel, (*SimOrder).Fill}, OrderCancelled, true},
		{"expire expired", []func(*SimOrder, time.Time) error{(*SimOrder).Expire, (*SimOrder).Expire}, OrderExpired, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrder(t)
			var err error
			for _, step := range tt.steps {
				if err = step(&o, later); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvariantViolation)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, later, o.UpdatedAt)
			}
			assert.Equal(t, tt.final, o.Status)
		})
	}
}

func TestSimOrder_FillSetsFilledSize(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Fill(o.CreatedAt))

	assert.Equal(t, o.Size, o.FilledSize)
	assert.Equal(t, 100, o.FillPct())
	assert.False(t, o.IsLive())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("expired")
	require.NoError(t, err)
	assert.Equal(t, OrderExpired, s)

	_, err = ParseOrderStatus("partially_filled")
	assert.Error(t, err)
}
