package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/updown/internal/application/engine/fill"
	"github.com/alejandrodnm/updown/internal/domain"
)

// SkipReason explica por qué un tick saltó un paso.
type SkipReason string

const (
	SkipNoMarket          SkipReason = "no_market"
	SkipDiscoveryFailed   SkipReason = "discovery_failed"
	SkipQuoteUnavailable  SkipReason = "quote_unavailable"
	SkipResolutionFailed  SkipReason = "resolution_failed"
	SkipResolutionPending SkipReason = "resolution_pending"
)

// Skip es un paso saltado en un tick. Err es nil si el colaborador
// respondió bien pero sin datos (ej. quotes sin bids).
type Skip struct {
	Reason SkipReason
	Market string
	Err    error
}

// TickResult resume un tick. Un tick con Skips no es un error: el
// siguiente tick lo vuelve a intentar.
type TickResult struct {
	At        time.Time
	Market    string // slug de la ventana objetivo, si hay
	Phase     domain.Phase
	Placed    int
	Filled    int
	Cancelled int
	Resolved  int
	Skips     []Skip
	Duration  time.Duration
}

// Skipped indica si el tick saltó por el motivo dado.
func (r TickResult) Skipped(reason SkipReason) bool {
	for _, s := range r.Skips {
		if s.Reason == reason {
			return true
		}
	}
	return false
}

func (r *TickResult) skip(reason SkipReason, market string, err error) {
	r.Skips = append(r.Skips, Skip{Reason: reason, Market: market, Err: err})
}

// tickChanges acumula lo que hay que journalear al final del tick.
type tickChanges struct {
	orders map[string]*domain.SimOrder
	trades map[string]*domain.Trade
}

func (c *tickChanges) order(o *domain.SimOrder) { c.orders[o.ID] = o }
func (c *tickChanges) trade(t *domain.Trade)    { c.trades[t.ID] = t }

// Tick ejecuta un paso discreto de la máquina de estados en dos fases.
// fetch consulta a los colaboradores (discovery, quotes, resoluciones) sin
// tocar el estado; apply sigue la ventana, cancela por cierre de entrada,
// coloca entradas y second-chance y resuelve trades. Los fallos de
// colaboradores quedan en TickResult.Skips. Si ctx se cancela (Stop) durante
// fetch, Tick devuelve el error sin haber mutado nada. También devuelve error
// ante una violación de invariante.
func (e *Engine) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	started := time.Now()
	res := TickResult{At: now}

	f, err := e.fetch(ctx, now, &res)
	if err != nil {
		return res, err
	}

	changes := &tickChanges{
		orders: make(map[string]*domain.SimOrder),
		trades: make(map[string]*domain.Trade),
	}
	if err := e.apply(now, f, &res, changes); err != nil {
		return res, err
	}
	e.prune(now)
	e.journal(changes)

	res.Duration = time.Since(started)
	for _, s := range res.Skips {
		e.deps.Metrics.TickSkipped(e.in, s.Reason)
	}
	e.deps.Metrics.TickCompleted(e.in, res.Duration)

	e.ticks++
	e.last = res
	e.publish()
	return res, nil
}

// stopped indica que el tick fue cancelado por Stop (no por timeout).
func stopped(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

// fetched es lo que respondieron los colaboradores en un tick.
type fetched struct {
	window  *domain.MarketWindow // ventana de discovery, nil si no hay una usable
	quote   *domain.Quote        // quotes de la ventana objetivo, nil si no se pidieron o no hay precios
	answers map[string]resolutionAnswer
}

type resolutionAnswer struct {
	winner domain.Side
	ok     bool
	err    error
}

func (e *Engine) fetch(ctx context.Context, now time.Time, res *TickResult) (fetched, error) {
	f := fetched{answers: make(map[string]resolutionAnswer)}

	w, err := e.discover(ctx, now, res)
	if err != nil {
		return f, err
	}
	f.window = w

	if f.quote, err = e.fetchQuote(ctx, now, w, res); err != nil {
		return f, err
	}
	if err := e.askResolutions(ctx, now, w, f.answers, res); err != nil {
		return f, err
	}
	return f, nil
}

func (e *Engine) apply(now time.Time, f fetched, res *TickResult, changes *tickChanges) error {
	if f.window != nil {
		if err := e.track(*f.window, now, res); err != nil {
			return err
		}
	}
	if err := e.closeEntries(now, res, changes); err != nil {
		return err
	}
	if f.quote != nil {
		if err := e.enter(now, *f.quote, res, changes); err != nil {
			return err
		}
	}
	return e.resolve(now, f.answers, res, changes)
}

// discover pide la ventana actual o siguiente. Fallos y ventanas
// inconsistentes quedan como skip y devuelven nil.
func (e *Engine) discover(ctx context.Context, now time.Time, res *TickResult) (*domain.MarketWindow, error) {
	w, err := guarded(e, func() (domain.MarketWindow, error) {
		return e.deps.Discovery.CurrentOrNext(ctx, e.in, now)
	})
	if stopped(ctx) {
		return nil, ctx.Err()
	}
	switch {
	case errors.Is(err, domain.ErrNoMarketAvailable):
		res.skip(SkipNoMarket, "", nil)
		slog.Debug("no market available", "coin", e.in)
		return nil, nil
	case err != nil:
		res.skip(SkipDiscoveryFailed, "", err)
		slog.Warn("market discovery failed", "coin", e.in, "err", err)
		return nil, nil
	}

	if w.Instrument != e.in || !w.End.Equal(w.Start.Add(domain.WindowDuration)) {
		err := fmt.Errorf("instrument.discover: bad window %s (%s, %s → %s): %w",
			w.Slug, w.Instrument, w.Start, w.End, domain.ErrCollaboratorUnavailable)
		res.skip(SkipDiscoveryFailed, w.Slug, err)
		slog.Warn("discovery returned inconsistent window", "coin", e.in, "market", w.Slug)
		return nil, nil
	}
	return &w, nil
}

// targetWindow es la ventana objetivo de entrada tal como quedará cuando
// apply siga a w. Sin w sigue siendo la objetivo anterior.
func (e *Engine) targetWindow(w *domain.MarketWindow) (domain.MarketWindow, bool) {
	slug := e.target
	if w != nil {
		slug = w.Slug
	}
	if tw, ok := e.windows[slug]; ok {
		target := tw.window
		if w != nil && w.IsResolved() && !target.IsResolved() {
			target.Winner = w.Winner
		}
		return target, true
	}
	if w != nil {
		return *w, true
	}
	return domain.MarketWindow{}, false
}

// fetchQuote pide precios para la ventana objetivo si está en entry_open y
// alguna variante todavía puede entrar o llenar.
func (e *Engine) fetchQuote(ctx context.Context, now time.Time, w *domain.MarketWindow, res *TickResult) (*domain.Quote, error) {
	target, ok := e.targetWindow(w)
	if !ok || domain.PhaseOf(target, now, e.cfg.EntryWindow) != domain.PhaseEntryOpen {
		return nil, nil
	}
	if !e.needsQuote(target.Slug) {
		return nil, nil
	}

	q, err := guarded(e, func() (domain.Quote, error) {
		return e.deps.Quotes.BestPrices(ctx, target)
	})
	if stopped(ctx) {
		return nil, ctx.Err()
	}
	if err != nil {
		res.skip(SkipQuoteUnavailable, target.Slug, err)
		slog.Warn("quote fetch failed", "coin", e.in, "market", target.Slug, "err", err)
		return nil, nil
	}
	if !q.Available {
		res.skip(SkipQuoteUnavailable, target.Slug, nil)
		slog.Warn("no prices", "coin", e.in, "market", target.Slug)
		return nil, nil
	}
	slog.Debug("quotes",
		"coin", e.in,
		"market", target.Slug,
		"up", fmt.Sprintf("%.2f", q.Up),
		"down", fmt.Sprintf("%.2f", q.Down),
	)
	return &q, nil
}

// needsQuote evita pedir precios si todas las variantes ya terminaron con la ventana.
func (e *Engine) needsQuote(slug string) bool {
	tw, ok := e.windows[slug]
	if !ok {
		return true
	}
	for _, v := range e.variants.All() {
		o, has := tw.orders[v.ID]
		if !has || o.Status == domain.OrderOpen {
			return true
		}
	}
	return false
}

// askResolutions consulta el ganador de las ventanas terminadas con trades
// pending, como mucho una vez cada ResolutionRecheck por ventana.
func (e *Engine) askResolutions(ctx context.Context, now time.Time, w *domain.MarketWindow, answers map[string]resolutionAnswer, res *TickResult) error {
	pending := e.pendingBySlug()
	for slug, tw := range e.windows {
		if pending[slug] == 0 || tw.window.IsResolved() {
			continue
		}
		if w != nil && w.Slug == slug && w.IsResolved() {
			continue
		}
		if !domain.PhaseOf(tw.window, now, e.cfg.EntryWindow).IsPastEnd() {
			continue
		}
		if !tw.lastResolutionCheck.IsZero() && now.Sub(tw.lastResolutionCheck) < e.cfg.ResolutionRecheck {
			continue
		}

		var a resolutionAnswer
		_, a.err = guarded(e, func() (struct{}, error) {
			var err error
			a.winner, a.ok, err = e.deps.Resolver.Resolution(ctx, tw.window)
			return struct{}{}, err
		})
		if stopped(ctx) {
			return ctx.Err()
		}
		answers[slug] = a

		switch {
		case a.err != nil:
			res.skip(SkipResolutionFailed, slug, a.err)
			slog.Warn("resolution fetch failed", "coin", e.in, "market", slug, "err", a.err)
		case !a.ok:
			res.skip(SkipResolutionPending, slug, nil)
			slog.Debug("resolution not published yet", "coin", e.in, "market", slug)
		}
	}
	return nil
}

func (e *Engine) pendingBySlug() map[string]int {
	pending := make(map[string]int)
	for _, t := range e.trades {
		if t.IsPending() {
			pending[t.MarketSlug]++
		}
	}
	return pending
}

// track empieza a seguir w (o le pasa el ganador si ya la seguía) y la
// marca como objetivo de entrada.
func (e *Engine) track(w domain.MarketWindow, now time.Time, res *TickResult) error {
	tw, ok := e.windows[w.Slug]
	if !ok {
		tw = &trackedWindow{window: w, orders: make(map[string]*domain.SimOrder)}
		e.windows[w.Slug] = tw
		slog.Info("tracking market",
			"coin", e.in,
			"market", w.Slug,
			"countdown", w.Countdown(now).Truncate(time.Second).String(),
		)
	} else if w.IsResolved() && !tw.window.IsResolved() {
		if err := tw.window.Resolve(w.Winner); err != nil {
			return err
		}
	}
	e.target = w.Slug
	res.Market = w.Slug
	res.Phase = domain.PhaseOf(tw.window, now, e.cfg.EntryWindow)
	return nil
}

// closeEntries cancela, sin mirar precio, toda orden abierta cuya ventana
// ya salió de entry_open. Si la ventana ya terminó la orden expira.
func (e *Engine) closeEntries(now time.Time, res *TickResult, changes *tickChanges) error {
	for _, tw := range e.windows {
		phase := domain.PhaseOf(tw.window, now, e.cfg.EntryWindow)
		if phase == domain.PhaseEntryOpen || phase == domain.PhaseWaiting {
			continue
		}
		for _, o := range tw.orders {
			if !o.IsLive() {
				continue
			}
			var err error
			if phase.IsPastEnd() {
				err = o.Expire(now)
			} else {
				err = o.Cancel(now)
			}
			if err != nil {
				return err
			}
			res.Cancelled++
			changes.order(o)
			e.deps.Metrics.OrderClosed(e.in, o.VariantID, o.Status)
			slog.Info("order closed at entry window end",
				"coin", e.in,
				"variant", o.VariantID,
				"market", o.MarketSlug,
				"status", o.Status,
				"limit", fmt.Sprintf("%.2f", o.LimitPrice),
			)
		}
	}
	return nil
}

// enter corre el simulador para cada variante de la ventana objetivo
// con las quotes del tick.
func (e *Engine) enter(now time.Time, q domain.Quote, res *TickResult, changes *tickChanges) error {
	tw, ok := e.windows[e.target]
	if !ok || domain.PhaseOf(tw.window, now, e.cfg.EntryWindow) != domain.PhaseEntryOpen {
		return nil
	}

	for _, v := range e.variants.All() {
		existing, has := tw.orders[v.ID]
		switch {
		case !has:
			d := e.deps.Simulator.AttemptEntry(v, q.Up, q.Down)
			if d.Kind == fill.None {
				continue
			}
			if err := e.placeOrder(tw, v, d, now, res, changes); err != nil {
				return err
			}
		case existing.Status == domain.OrderOpen:
			d := e.deps.Simulator.AttemptSecondChance(*existing, q.Price(existing.Side))
			if d.Kind != fill.Fill {
				continue
			}
			if err := e.fillOrder(existing, now, res, changes); err != nil {
				return err
			}
		}
	}
	return nil
}

// placeOrder crea la orden de una variante: NoOrder → OrderOpen o NoOrder → Filled.
func (e *Engine) placeOrder(tw *trackedWindow, v domain.Variant, d fill.Decision, now time.Time, res *TickResult, changes *tickChanges) error {
	if existing, has := tw.orders[v.ID]; has && existing.IsLive() {
		return fmt.Errorf("instrument.placeOrder %s/%s: live order %s already in %s: %w",
			e.in, v.ID, existing.ID, tw.window.Slug, domain.ErrInvariantViolation)
	}
	if phase := domain.PhaseOf(tw.window, now, e.cfg.EntryWindow); phase != domain.PhaseEntryOpen {
		return fmt.Errorf("instrument.placeOrder %s/%s: window %s is %s: %w",
			e.in, v.ID, tw.window.Slug, phase, domain.ErrInvariantViolation)
	}

	o := domain.NewSimOrder(v, tw.window, d.Side, d.Price, e.cfg.OrderSize, now)
	tw.orders[v.ID] = &o
	e.orders = append(e.orders, &o)
	changes.order(&o)
	res.Placed++
	e.deps.Metrics.OrderPlaced(e.in, v.ID)

	slog.Info("placed",
		"coin", e.in,
		"variant", v.ID,
		"market", tw.window.Slug,
		"side", d.Side,
		"price", fmt.Sprintf("%.2f", d.Price),
		"decision", d.Kind.String(),
	)

	if d.Kind == fill.Fill {
		return e.fillOrder(&o, now, res, changes)
	}
	return o.Open(now)
}

// fillOrder llena la orden y materializa el trade pending en el ledger.
func (e *Engine) fillOrder(o *domain.SimOrder, now time.Time, res *TickResult, changes *tickChanges) error {
	if err := o.Fill(now); err != nil {
		return err
	}
	t, err := domain.NewTrade(*o)
	if err != nil {
		return err
	}
	l, ok := e.ledgers[o.VariantID]
	if !ok {
		return fmt.Errorf("instrument.fillOrder %s: no ledger for %s: %w", e.in, o.VariantID, domain.ErrInvariantViolation)
	}
	if err := l.RecordFill(t); err != nil {
		return err
	}
	e.trades = append(e.trades, &t)
	changes.order(o)
	changes.trade(&t)
	res.Filled++
	e.deps.Metrics.OrderFilled(e.in, o.VariantID)
	e.deps.Metrics.LedgerUpdated(e.in, *l)

	slog.Info("filled",
		"coin", e.in,
		"variant", o.VariantID,
		"market", o.MarketSlug,
		"side", o.Side,
		"price", fmt.Sprintf("%.2f", t.EntryPrice),
		"invested", fmt.Sprintf("$%.2f", t.Invested),
	)
	return nil
}

// resolve aplica las respuestas del resolver y cierra los trades pending
// de las ventanas con ganador.
func (e *Engine) resolve(now time.Time, answers map[string]resolutionAnswer, res *TickResult, changes *tickChanges) error {
	pending := e.pendingBySlug()
	for slug, tw := range e.windows {
		if pending[slug] == 0 {
			continue
		}
		if !domain.PhaseOf(tw.window, now, e.cfg.EntryWindow).IsPastEnd() {
			continue
		}

		if !tw.window.IsResolved() {
			a, asked := answers[slug]
			if !asked {
				continue
			}
			tw.lastResolutionCheck = now
			if a.err != nil || !a.ok {
				continue
			}
			if err := tw.window.Resolve(a.winner); err != nil {
				return err
			}
			slog.Info("market resolved", "coin", e.in, "market", slug, "winner", a.winner)
		}

		if err := e.finalize(tw.window, now, res, changes); err != nil {
			return err
		}
	}
	return nil
}

// finalize cierra win/loss todos los trades pending de la ventana resuelta.
func (e *Engine) finalize(w domain.MarketWindow, now time.Time, res *TickResult, changes *tickChanges) error {
	for _, t := range e.trades {
		if !t.IsPending() || t.MarketSlug != w.Slug {
			continue
		}
		if err := t.Resolve(w.Winner, now); err != nil {
			return err
		}
		l, ok := e.ledgers[t.VariantID]
		if !ok {
			return fmt.Errorf("instrument.finalize %s: no ledger for %s: %w", e.in, t.VariantID, domain.ErrInvariantViolation)
		}
		if err := l.RecordResolution(*t); err != nil {
			return err
		}
		changes.trade(t)
		res.Resolved++
		e.deps.Metrics.TradeResolved(e.in, *t)
		e.deps.Metrics.LedgerUpdated(e.in, *l)

		slog.Info("trade resolved",
			"coin", e.in,
			"variant", t.VariantID,
			"market", t.MarketSlug,
			"side", t.Side,
			"result", t.Result,
			"pnl", fmt.Sprintf("$%.2f", t.RealizedPnL()),
		)
	}
	return nil
}

// prune suelta ventanas terminadas sin nada vivo y acota el histórico.
func (e *Engine) prune(now time.Time) {
	pending := make(map[string]bool)
	for _, t := range e.trades {
		if t.IsPending() {
			pending[t.MarketSlug] = true
		}
	}
	for slug, tw := range e.windows {
		if slug == e.target || pending[slug] || tw.hasLiveOrders() {
			continue
		}
		switch domain.PhaseOf(tw.window, now, e.cfg.EntryWindow) {
		case domain.PhaseWaiting, domain.PhaseEntryOpen:
			continue
		}
		delete(e.windows, slug)
		slog.Debug("market rolled off", "coin", e.in, "market", slug)
	}

	e.trades = trimResolved(e.trades, e.cfg.RecentTrades)
	e.orders = trimClosed(e.orders, e.cfg.RecentTrades)
}

// trimResolved conserva todos los trades pending y los últimos limit resueltos.
func trimResolved(trades []*domain.Trade, limit int) []*domain.Trade {
	resolved := 0
	for _, t := range trades {
		if !t.IsPending() {
			resolved++
		}
	}
	drop := resolved - limit
	if drop <= 0 {
		return trades
	}
	out := make([]*domain.Trade, 0, len(trades)-drop)
	for _, t := range trades {
		if drop > 0 && !t.IsPending() {
			drop--
			continue
		}
		out = append(out, t)
	}
	return out
}

// trimClosed conserva todas las órdenes vivas y las últimas limit terminadas.
func trimClosed(orders []*domain.SimOrder, limit int) []*domain.SimOrder {
	closed := 0
	for _, o := range orders {
		if !o.IsLive() {
			closed++
		}
	}
	drop := closed - limit
	if drop <= 0 {
		return orders
	}
	out := make([]*domain.SimOrder, 0, len(orders)-drop)
	for _, o := range orders {
		if drop > 0 && !o.IsLive() {
			drop--
			continue
		}
		out = append(out, o)
	}
	return out
}
