package polymarket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updown/internal/adapters/polymarket"
	"github.com/alejandrodnm/updown/internal/domain"
)

func newTestClient(clobSrv, gammaSrv *httptest.Server) *polymarket.Client {
	clobURL := ""
	gammaURL := ""
	if clobSrv != nil {
		clobURL = clobSrv.URL
	}
	if gammaSrv != nil {
		gammaURL = gammaSrv.URL
	}
	return polymarket.NewClient(clobURL, gammaURL)
}

func testWindow() domain.MarketWindow {
	return domain.NewMarketWindow(domain.BTC, "0xcond", "tok_up", "tok_down", time.Unix(1_700_000_100, 0))
}

func bookServer(t *testing.T, books map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/book", r.URL.Path)
		book, ok := books[r.URL.Query().Get("token_id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"No orderbook exists for the requested token id"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(book)
	}))
}

func TestFetchOrderBook_SortsLevels(t *testing.T) {
	srv := bookServer(t, map[string]any{
		"tok_up": map[string]any{
			"asset_id": "tok_up",
			"bids":     []map[string]string{{"price": "0.44", "size": "100"}, {"price": "0.47", "size": "25"}, {"price": "0.45", "size": "10"}},
			"asks":     []map[string]string{{"price": "0.55", "size": "50"}, {"price": "0.50", "size": "5"}},
		},
	})
	defer srv.Close()

	client := newTestClient(srv, nil)
	book, err := client.FetchOrderBook(context.Background(), "tok_up")
	require.NoError(t, err)

	require.Len(t, book.Bids, 3)
	assert.Equal(t, "tok_up", book.TokenID)
	assert.InDelta(t, 0.47, book.BestBid(), 1e-9)
	assert.InDelta(t, 0.50, book.Asks[0].Price, 1e-9)
	assert.Greater(t, book.Bids[0].Price, book.Bids[1].Price)
	assert.Less(t, book.Asks[0].Price, book.Asks[1].Price)
}

func TestFetchOrderBook_SkipsZeroLevels(t *testing.T) {
	srv := bookServer(t, map[string]any{
		"tok_up": map[string]any{
			"bids": []map[string]string{{"price": "0", "size": "100"}, {"price": "0.40", "size": "0"}, {"price": "0.39", "size": "3"}},
		},
	})
	defer srv.Close()

	book, err := newTestClient(srv, nil).FetchOrderBook(context.Background(), "tok_up")
	require.NoError(t, err)
	require.Len(t, book.Bids, 1)
	assert.InDelta(t, 0.39, book.BestBid(), 1e-9)
}

func TestBestPrices_BothSides(t *testing.T) {
	srv := bookServer(t, map[string]any{
		"tok_up":   map[string]any{"bids": []map[string]string{{"price": "0.48", "size": "10"}, {"price": "0.46", "size": "10"}}},
		"tok_down": map[string]any{"bids": []map[string]string{{"price": "0.51", "size": "10"}}},
	})
	defer srv.Close()

	q, err := newTestClient(srv, nil).BestPrices(context.Background(), testWindow())
	require.NoError(t, err)
	assert.True(t, q.Available)
	assert.InDelta(t, 0.48, q.Up, 1e-9)
	assert.InDelta(t, 0.51, q.Down, 1e-9)
}

func TestBestPrices_NoBidsIsUnavailable(t *testing.T) {
	srv := bookServer(t, map[string]any{
		"tok_up":   map[string]any{"bids": []map[string]string{{"price": "0.48", "size": "10"}}},
		"tok_down": map[string]any{"bids": []map[string]string{}},
	})
	defer srv.Close()

	q, err := newTestClient(srv, nil).BestPrices(context.Background(), testWindow())
	require.NoError(t, err)
	assert.False(t, q.Available)
}

func TestBestPrices_ClientErrorIsCollaboratorUnavailable(t *testing.T) {
	srv := bookServer(t, map[string]any{
		"tok_up": map[string]any{"bids": []map[string]string{{"price": "0.48", "size": "10"}}},
	})
	defer srv.Close()

	_, err := newTestClient(srv, nil).BestPrices(context.Background(), testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
}

func TestBestPrices_CancelledContext(t *testing.T) {
	srv := bookServer(t, map[string]any{})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv, nil).BestPrices(ctx, testWindow())
	assert.Error(t, err)
}
