package polymarket

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// bookResponse es la respuesta de GET /book?token_id=.
type bookResponse struct {
	AssetID string         `json:"asset_id"`
	Market  string         `json:"market"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- Gamma API ---

// gammaEvent es un item de GET /events?slug=.
type gammaEvent struct {
	ID      string        `json:"id"`
	Slug    string        `json:"slug"`
	Markets []gammaMarket `json:"markets"`
}

// gammaMarket es un item de GET /markets?slug= (o de gammaEvent.Markets).
// Gamma devuelve outcomes, outcomePrices y clobTokenIds como arrays
// serializados dentro de un string JSON.
type gammaMarket struct {
	ConditionID   string       `json:"conditionId"`
	ConditionIDv2 string       `json:"condition_id"`
	Slug          string       `json:"slug"`
	Question      string       `json:"question"`
	Tokens        []gammaToken `json:"tokens"`
	ClobTokenIDs  stringList   `json:"clobTokenIds"`
	Outcomes      stringList   `json:"outcomes"`
	OutcomePrices stringList   `json:"outcomePrices"`
	Active        bool         `json:"active"`
	Closed        bool         `json:"closed"`
}

// gammaToken es la forma antigua de listar los tokens de un mercado.
type gammaToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

// stringList acepta tanto un array JSON como un string que contiene un
// array JSON. Los elementos numéricos se guardan en su forma textual.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" || trimmed == `""` {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		b = []byte(inner)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("stringList: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, strings.TrimSpace(string(r)))
	}
	*l = out
	return nil
}
