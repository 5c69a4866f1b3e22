package polymarket

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// mapWindow convierte un mercado de Gamma a domain.MarketWindow.
// El inicio de la ventana sale del sufijo del slug; End lo fija el constructor.
func mapWindow(in domain.Instrument, slug string, m gammaMarket) (domain.MarketWindow, error) {
	start, err := startFromSlug(slug)
	if err != nil {
		return domain.MarketWindow{}, err
	}

	up, down := tokenIDs(m)
	if up == "" || down == "" {
		return domain.MarketWindow{}, fmt.Errorf("mapWindow %s: missing up/down token ids", slug)
	}

	conditionID := m.ConditionID
	if conditionID == "" {
		conditionID = m.ConditionIDv2
	}

	w := domain.NewMarketWindow(in, conditionID, up, down, start)
	if w.Slug != slug {
		return domain.MarketWindow{}, fmt.Errorf("mapWindow: slug %s does not match %s", slug, w.Slug)
	}
	if winner := winnerOf(m); winner != domain.SideNone {
		if err := w.Resolve(winner); err != nil {
			return domain.MarketWindow{}, err
		}
	}
	return w, nil
}

// startFromSlug extrae el unix start de "<coin>-updown-15m-<start>".
func startFromSlug(slug string) (time.Time, error) {
	i := strings.LastIndex(slug, "-")
	if i < 0 {
		return time.Time{}, fmt.Errorf("startFromSlug: bad slug %q", slug)
	}
	secs, err := strconv.ParseInt(slug[i+1:], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("startFromSlug %q: %w", slug, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// tokenIDs busca los tokens Up/Down en tokens o, si no hay, en
// clobTokenIds emparejado con outcomes.
func tokenIDs(m gammaMarket) (up, down string) {
	if len(m.Tokens) > 0 {
		for _, t := range m.Tokens {
			switch side, _ := domain.ParseSide(t.Outcome); side {
			case domain.SideUp:
				up = t.TokenID
			case domain.SideDown:
				down = t.TokenID
			}
		}
		return up, down
	}
	for i, outcome := range m.Outcomes {
		if i >= len(m.ClobTokenIDs) {
			break
		}
		switch side, _ := domain.ParseSide(outcome); side {
		case domain.SideUp:
			up = m.ClobTokenIDs[i]
		case domain.SideDown:
			down = m.ClobTokenIDs[i]
		}
	}
	return up, down
}

// winnerOf devuelve el outcome cuyo precio final es "1", o SideNone.
func winnerOf(m gammaMarket) domain.Side {
	if len(m.Outcomes) < 2 || len(m.OutcomePrices) < 2 {
		return domain.SideNone
	}
	for i, p := range m.OutcomePrices {
		if i >= len(m.Outcomes) {
			break
		}
		if v, err := strconv.ParseFloat(p, 64); err != nil || v != 1 {
			continue
		}
		side, err := domain.ParseSide(m.Outcomes[i])
		if err != nil {
			return domain.SideNone
		}
		return side
	}
	return domain.SideNone
}

// mapBook convierte la respuesta de /book a domain.OrderBook.
func mapBook(tokenID string, raw bookResponse) domain.OrderBook {
	return domain.OrderBook{
		TokenID: tokenID,
		Bids:    mapBookEntries(raw.Bids, false),
		Asks:    mapBookEntries(raw.Asks, true),
	}
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price := domain.ParsePrice(r.Price)
		size := domain.ParsePrice(r.Size)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
