package domain

import (
	"fmt"
	"strings"
	"time"
)

// WindowDuration es la duración fija de un mercado up/down de 15 minutos.
const WindowDuration = 900 * time.Second

// Instrument identifica la cripto subyacente de un mercado up/down.
type Instrument string

const (
	BTC Instrument = "btc"
	ETH Instrument = "eth"
	SOL Instrument = "sol"
	XRP Instrument = "xrp"
)

// Instruments devuelve todos los instrumentos soportados en orden estable.
func Instruments() []Instrument {
	return []Instrument{BTC, ETH, SOL, XRP}
}

// Rank es la posición del instrumento en Instruments (desconocidos al final).
func (i Instrument) Rank() int {
	for n, known := range Instruments() {
		if i == known {
			return n
		}
	}
	return len(Instruments())
}

// ParseInstrument acepta "btc", "BTC", " eth " etc.
func ParseInstrument(s string) (Instrument, error) {
	in := Instrument(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Instruments() {
		if in == known {
			return in, nil
		}
	}
	return "", fmt.Errorf("domain.ParseInstrument: unknown instrument %q", s)
}

// DisplayName devuelve el nombre legible del instrumento.
func (i Instrument) DisplayName() string {
	switch i {
	case BTC:
		return "Bitcoin"
	case ETH:
		return "Ethereum"
	case SOL:
		return "Solana"
	case XRP:
		return "XRP"
	}
	return strings.ToUpper(string(i))
}

// Slug genera el slug del mercado de 15m que empieza en start.
func (i Instrument) Slug(start time.Time) string {
	return fmt.Sprintf("%s-updown-15m-%d", i, start.Unix())
}

// BucketStart devuelve el inicio del bucket de 15 minutos que contiene t.
func BucketStart(t time.Time) time.Time {
	secs := int64(WindowDuration / time.Second)
	return time.Unix((t.Unix()/secs)*secs, 0).UTC()
}

// Side es uno de los dos outcomes del mercado.
type Side string

const (
	SideNone Side = ""
	SideUp   Side = "Up"
	SideDown Side = "Down"
)

// ParseSide convierte el outcome de la API ("Up"/"Down", cualquier caso).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return SideUp, nil
	case "down":
		return SideDown, nil
	}
	return SideNone, fmt.Errorf("domain.ParseSide: unknown side %q", s)
}

// MarketWindow es una instancia concreta de un mercado up/down.
// Todo es inmutable salvo Winner, que pasa de SideNone a un lado una sola vez.
type MarketWindow struct {
	Slug        string
	Instrument  Instrument
	ConditionID string
	UpTokenID   string
	DownTokenID string
	Start       time.Time
	End         time.Time
	Winner      Side
}

// NewMarketWindow construye una ventana garantizando End = Start + 900s.
func NewMarketWindow(in Instrument, conditionID, upToken, downToken string, start time.Time) MarketWindow {
	start = start.UTC().Truncate(time.Second)
	return MarketWindow{
		Slug:        in.Slug(start),
		Instrument:  in,
		ConditionID: conditionID,
		UpTokenID:   upToken,
		DownTokenID: downToken,
		Start:       start,
		End:         start.Add(WindowDuration),
	}
}

// Countdown devuelve el tiempo que falta hasta End (negativo si ya pasó).
func (w MarketWindow) Countdown(now time.Time) time.Duration {
	return w.End.Sub(now)
}

// IsResolved indica si el ganador ya es conocido.
func (w MarketWindow) IsResolved() bool {
	return w.Winner != SideNone
}

// Resolve fija el ganador. Resolver dos veces con el mismo lado es idempotente;
// con un lado distinto es una violación de invariante.
func (w *MarketWindow) Resolve(winner Side) error {
	if winner != SideUp && winner != SideDown {
		return fmt.Errorf("domain.Resolve %s: invalid winner %q", w.Slug, winner)
	}
	if w.Winner != SideNone && w.Winner != winner {
		return fmt.Errorf("domain.Resolve %s: winner already %s, got %s: %w",
			w.Slug, w.Winner, winner, ErrInvariantViolation)
	}
	w.Winner = winner
	return nil
}

// TokenID devuelve el token del lado dado.
func (w MarketWindow) TokenID(side Side) string {
	if side == SideDown {
		return w.DownTokenID
	}
	return w.UpTokenID
}
