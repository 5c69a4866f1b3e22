// Package fill decide si una orden simulada se crea y si se llena.
//
// Modelo: un único Bernoulli al entrar y, si no llena,
// un re-check por tick contra el limit price guardado. Sin fills parciales y
// siempre al limit price, nunca a la quote fresca.
package fill

import (
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/updown/internal/domain"
)

// DefaultProbability es la probabilidad de fill inmediato.
const DefaultProbability = 0.7

// Kind es el tipo de decisión del simulador.
type Kind int

const (
	// None: ningún lado califica (o el second-chance no llena).
	None Kind = iota
	// Fill: la orden se llena a Decision.Price.
	Fill
	// Open: la orden queda abierta con limit price Decision.Price.
	Open
)

func (k Kind) String() string {
	switch k {
	case Fill:
		return "fill"
	case Open:
		return "open"
	}
	return "none"
}

// Decision es el resultado de un intento de entrada o de second-chance.
type Decision struct {
	Kind  Kind
	Side  domain.Side
	Price float64
}

// Rand es la fuente de aleatoriedad; *rand.Rand de math/rand/v2 la implementa.
type Rand interface {
	Float64() float64
}

// Simulator no es seguro para uso concurrente: cada engine tiene el suyo.
type Simulator struct {
	probability float64
	rng         Rand
}

// New crea un simulador. Si rng es nil usa un PCG sembrado con la hora.
func New(probability float64, rng Rand) *Simulator {
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Simulator{probability: probability, rng: rng}
}

// Probability devuelve la probabilidad configurada.
func (s *Simulator) Probability() float64 { return s.probability }

// AttemptEntry decide la entrada de una variante con las quotes actuales.
// Up se evalúa antes que Down.
func (s *Simulator) AttemptEntry(v domain.Variant, quoteUp, quoteDown float64) Decision {
	side := domain.SideNone
	price := 0.0
	switch {
	case v.Family.Qualifies(quoteUp, v.Threshold):
		side, price = domain.SideUp, quoteUp
	case v.Family.Qualifies(quoteDown, v.Threshold):
		side, price = domain.SideDown, quoteDown
	default:
		return Decision{Kind: None}
	}

	if s.rng.Float64() < s.probability {
		return Decision{Kind: Fill, Side: side, Price: price}
	}
	return Decision{Kind: Open, Side: side, Price: price}
}

// AttemptSecondChance re-evalúa una orden abierta contra la quote fresca de su lado.
// undervalued llena si quote ≤ limit; momentum si quote ≥ limit.
// El precio de fill es siempre el limit price.
func (s *Simulator) AttemptSecondChance(o domain.SimOrder, quote float64) Decision {
	if o.Status != domain.OrderOpen || quote <= 0 {
		return Decision{Kind: None, Side: o.Side}
	}
	if o.Family.Qualifies(quote, o.LimitPrice) {
		return Decision{Kind: Fill, Side: o.Side, Price: o.LimitPrice}
	}
	return Decision{Kind: None, Side: o.Side}
}
