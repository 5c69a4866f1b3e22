package export_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updown/internal/adapters/export"
	"github.com/alejandrodnm/updown/internal/domain"
)

var start = time.Unix(1_700_000_100, 0).UTC()

func sampleOrder(t *testing.T, threshold, price float64, at time.Time) domain.SimOrder {
	t.Helper()
	v, err := domain.NewVariant(domain.FamilyMomentum, threshold)
	require.NoError(t, err)
	w := domain.NewMarketWindow(domain.ETH, "0xcond", "up", "down", start)
	return domain.NewSimOrder(v, w, domain.SideDown, price, 10, at)
}

func TestOrdersTSV_RoundTrip(t *testing.T) {
	placed := start.Add(-250*time.Second + 123456789*time.Nanosecond)
	open := sampleOrder(t, 0.52, 0.53, placed)
	require.NoError(t, open.Open(placed))
	filled := sampleOrder(t, 0.54, 0.61, placed.Add(time.Second))
	require.NoError(t, filled.Fill(placed.Add(2*time.Second)))

	var buf bytes.Buffer
	require.NoError(t, export.WriteOrdersTSV(&buf, []domain.SimOrder{open, filled}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id\tinstrument\tvariant_id\tfamily\tmarket_slug\tmarket_start\tside\tprice\tsize\tlimit_price\tstatus\tfilled_size\tcreated_at\tupdated_at", lines[0])

	got, err := export.ParseOrdersTSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i, want := range []domain.SimOrder{open, filled} {
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.VariantID, got[i].VariantID)
		assert.Equal(t, want.Status, got[i].Status)
		assert.Equal(t, want.Side, got[i].Side)
		assert.Equal(t, want.Price, got[i].Price)
		assert.Equal(t, want.LimitPrice, got[i].LimitPrice)
		assert.Equal(t, want.FilledSize, got[i].FilledSize)
		assert.True(t, want.MarketStart.Equal(got[i].MarketStart))
		assert.True(t, want.CreatedAt.Equal(got[i].CreatedAt))
		assert.True(t, want.UpdatedAt.Equal(got[i].UpdatedAt))
	}
}

func TestTradesTSV_AbsentFieldsAreEmpty(t *testing.T) {
	o := sampleOrder(t, 0.52, 0.57, start.Add(-200*time.Second))
	require.NoError(t, o.Fill(o.CreatedAt))
	pending, err := domain.NewTrade(o)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteTradesTSV(&buf, []domain.Trade{pending}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 16)
	assert.Equal(t, "pending", fields[13])
	assert.Empty(t, fields[14], "resolved_at")
	assert.Empty(t, fields[15], "pnl")

	got, err := export.ParseTradesTSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ResolvedAt)
	assert.Nil(t, got[0].PnL)
	assert.True(t, got[0].IsPending())
}

func TestParseTSV_RejectsWrongHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteOrdersTSV(&buf, nil))

	_, err := export.ParseTradesTSV(&buf)
	assert.Error(t, err)
}

func TestParseTSV_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteTradesTSV(&buf, nil))

	got, err := export.ParseTradesTSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Cualquier trade resuelto sobrevive escribir y leer el TSV sin perder precisión.
func TestTradesTSV_RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("trade round-trips field for field", prop.ForAll(
		func(entry, size float64, won bool, nanos int64) bool {
			entryTime := start.Add(-time.Duration(nanos))
			v, err := domain.NewVariant(domain.FamilyUndervalued, 0.49)
			if err != nil {
				return false
			}
			w := domain.NewMarketWindow(domain.BTC, "0xcond", "up", "down", start)
			o := domain.NewSimOrder(v, w, domain.SideUp, entry, size, entryTime)
			if o.Fill(entryTime) != nil {
				return false
			}
			trade, err := domain.NewTrade(o)
			if err != nil {
				return false
			}
			winner := domain.SideDown
			if won {
				winner = domain.SideUp
			}
			if trade.Resolve(winner, start.Add(domain.WindowDuration+time.Second)) != nil {
				return false
			}

			var buf bytes.Buffer
			if export.WriteTradesTSV(&buf, []domain.Trade{trade}) != nil {
				return false
			}
			got, err := export.ParseTradesTSV(&buf)
			if err != nil || len(got) != 1 {
				return false
			}
			g := got[0]
			return g.ID == trade.ID &&
				g.OrderID == trade.OrderID &&
				g.EntryPrice == trade.EntryPrice &&
				g.Size == trade.Size &&
				g.FilledSize == trade.FilledSize &&
				g.Invested == trade.Invested &&
				g.Result == trade.Result &&
				*g.PnL == *trade.PnL &&
				g.EntryTime.Equal(trade.EntryTime) &&
				g.ResolvedAt.Equal(*trade.ResolvedAt) &&
				g.MarketStart.Equal(trade.MarketStart)
		},
		gen.Float64Range(0.01, 0.99),
		gen.Float64Range(1, 500),
		gen.Bool(),
		gen.Int64Range(int64(930*time.Second), int64(1230*time.Second)),
	))

	properties.TestingRun(t)
}

func TestWriteTradesMarkdown(t *testing.T) {
	o := sampleOrder(t, 0.52, 0.57, start.Add(-200*time.Second))
	require.NoError(t, o.Fill(o.CreatedAt))
	trade, err := domain.NewTrade(o)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteTradesMarkdown(&buf, []domain.Trade{trade}))

	out := buf.String()
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "variant_id")
	assert.Contains(t, out, "momentum_52")
	assert.Contains(t, out, trade.ID)
}
