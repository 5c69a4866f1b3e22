package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

const (
	gammaEventsPath  = "/events"
	gammaMarketsPath = "/markets"

	// buckets mirados hacia adelante desde el actual
	lookaheadBuckets = 2
	// ventanas cacheadas más viejas que esto se descartan
	cacheRetention = time.Hour
)

// FetchWindow busca un mercado por slug: primero en /events y, si no
// aparece, en /markets. found=false si Gamma no lo conoce todavía.
func (c *Client) FetchWindow(ctx context.Context, in domain.Instrument, slug string) (w domain.MarketWindow, found bool, err error) {
	q := url.Values{"slug": {slug}}

	var events []gammaEvent
	if err := c.getJSON(ctx, c.gammaLimiter, c.gammaBase, gammaEventsPath, q, &events); err != nil {
		return w, false, fmt.Errorf("gamma.FetchWindow %s: events: %w: %w", slug, domain.ErrCollaboratorUnavailable, err)
	}
	if len(events) > 0 && len(events[0].Markets) > 0 {
		w, err := mapWindow(in, slug, events[0].Markets[0])
		if err != nil {
			slog.Debug("gamma event unusable, trying markets", "slug", slug, "err", err)
		} else {
			return w, true, nil
		}
	}

	var markets []gammaMarket
	if err := c.getJSON(ctx, c.gammaLimiter, c.gammaBase, gammaMarketsPath, q, &markets); err != nil {
		return w, false, fmt.Errorf("gamma.FetchWindow %s: markets: %w: %w", slug, domain.ErrCollaboratorUnavailable, err)
	}
	if len(markets) == 0 {
		return w, false, nil
	}
	w, err = mapWindow(in, slug, markets[0])
	if err != nil {
		slog.Debug("gamma market unusable", "slug", slug, "err", err)
		return w, false, nil
	}
	return w, true, nil
}

// Tracker descubre las ventanas de cada instrumento en Gamma y consulta su
// resolución. Implementa ports.MarketDiscovery y ports.ResolutionSource.
type Tracker struct {
	client   *Client
	entryEnd time.Duration

	mu    sync.Mutex
	cache map[string]domain.MarketWindow
}

// NewTracker crea un Tracker. entryEnd es el countdown mínimo que debe
// quedarle a una ventana para ser candidata.
func NewTracker(client *Client, entryEnd time.Duration) *Tracker {
	return &Tracker{
		client:   client,
		entryEnd: entryEnd,
		cache:    make(map[string]domain.MarketWindow),
	}
}

// CurrentOrNext devuelve la primera ventana (bucket actual y los siguientes)
// a la que todavía le quedan al menos entryEnd hasta el cierre.
func (t *Tracker) CurrentOrNext(ctx context.Context, in domain.Instrument, now time.Time) (domain.MarketWindow, error) {
	t.evict(now)

	bucket := domain.BucketStart(now)
	for i := 0; i <= lookaheadBuckets; i++ {
		start := bucket.Add(time.Duration(i) * domain.WindowDuration)
		if start.Add(domain.WindowDuration).Sub(now) < t.entryEnd {
			continue
		}
		slug := in.Slug(start)

		if w, ok := t.cached(slug); ok {
			return w, nil
		}
		w, found, err := t.client.FetchWindow(ctx, in, slug)
		if err != nil {
			return domain.MarketWindow{}, err
		}
		if !found {
			slog.Debug("market not listed yet", "coin", in, "slug", slug)
			continue
		}
		t.store(w)
		return w, nil
	}
	return domain.MarketWindow{}, fmt.Errorf("gamma.CurrentOrNext %s: %w", in, domain.ErrNoMarketAvailable)
}

// Resolution vuelve a pedir la ventana a Gamma y devuelve el ganador si
// ya fue publicado.
func (t *Tracker) Resolution(ctx context.Context, w domain.MarketWindow) (domain.Side, bool, error) {
	if cw, ok := t.cached(w.Slug); ok && cw.IsResolved() {
		return cw.Winner, true, nil
	}
	fetched, found, err := t.client.FetchWindow(ctx, w.Instrument, w.Slug)
	if err != nil {
		return domain.SideNone, false, err
	}
	if !found || !fetched.IsResolved() {
		return domain.SideNone, false, nil
	}
	t.store(fetched)
	return fetched.Winner, true, nil
}

func (t *Tracker) cached(slug string) (domain.MarketWindow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.cache[slug]
	return w, ok
}

func (t *Tracker) store(w domain.MarketWindow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache[w.Slug] = w
}

func (t *Tracker) evict(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for slug, w := range t.cache {
		if now.Sub(w.End) > cacheRetention {
			delete(t.cache, slug)
		}
	}
}
