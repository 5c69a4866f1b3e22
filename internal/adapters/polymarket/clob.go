package polymarket

// clob.go: Polymarket CLOB API adapter.
//
// BestPrices pide los dos books de una ventana en paralelo. El rate limiter
// de getJSON controla el ritmo de todos los engines a la vez.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/updown/internal/domain"
)

const bookPath = "/book"

// FetchOrderBook obtiene el orderbook de un token.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	var resp bookResponse
	q := url.Values{"token_id": {tokenID}}
	if err := c.getJSON(ctx, c.bookLimiter, c.clobBase, bookPath, q, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchOrderBook %s: %w", tokenID, err)
	}
	return mapBook(tokenID, resp), nil
}

// BestPrices devuelve el best bid de Up y Down. Sin bids en algún lado la
// Quote viene con Available=false. Implementa ports.QuoteSource.
func (c *Client) BestPrices(ctx context.Context, w domain.MarketWindow) (domain.Quote, error) {
	var up, down domain.OrderBook

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		up, err = c.FetchOrderBook(gctx, w.UpTokenID)
		return err
	})
	g.Go(func() error {
		var err error
		down, err = c.FetchOrderBook(gctx, w.DownTokenID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Quote{}, fmt.Errorf("clob.BestPrices %s: %w: %w", w.Slug, domain.ErrCollaboratorUnavailable, err)
	}

	q := domain.QuoteFromBooks(up, down)
	slog.Debug("order books fetched",
		"market", w.Slug,
		"up_bids", len(up.Bids),
		"down_bids", len(down.Bids),
		"available", q.Available,
	)
	return q, nil
}
