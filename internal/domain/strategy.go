package domain

import (
	"fmt"
	"math"
	"strings"
)

// Family es la familia de estrategia de una variante.
type Family string

const (
	// FamilyUndervalued compra el lado cuyo precio está en o por debajo del threshold.
	FamilyUndervalued Family = "undervalued"
	// FamilyMomentum compra el lado cuyo precio está en o por encima del threshold.
	FamilyMomentum Family = "momentum"
)

// ParseFamily valida el nombre de una familia.
func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilyUndervalued, FamilyMomentum:
		return f, nil
	}
	return "", fmt.Errorf("domain.ParseFamily: unknown family %q", s)
}

// Qualifies indica si price cumple la condición de la familia para threshold.
func (f Family) Qualifies(price, threshold float64) bool {
	if price <= 0 {
		return false
	}
	switch f {
	case FamilyUndervalued:
		return price <= threshold
	case FamilyMomentum:
		return price >= threshold
	}
	return false
}

// Variant es una configuración inmutable family+threshold.
type Variant struct {
	ID        string
	Family    Family
	Threshold float64
}

// NewVariant valida el threshold y deriva el ID estable ("undervalued_48").
func NewVariant(family Family, threshold float64) (Variant, error) {
	if family != FamilyUndervalued && family != FamilyMomentum {
		return Variant{}, fmt.Errorf("domain.NewVariant: unknown family %q", family)
	}
	if threshold <= 0 || threshold >= 1 || math.IsNaN(threshold) {
		return Variant{}, fmt.Errorf("domain.NewVariant: threshold %v out of (0,1)", threshold)
	}
	return Variant{
		ID:        VariantID(family, threshold),
		Family:    family,
		Threshold: threshold,
	}, nil
}

// VariantID deriva el identificador de una variante.
func VariantID(family Family, threshold float64) string {
	return fmt.Sprintf("%s_%d", family, int(math.Round(threshold*100)))
}

// VariantSet es el conjunto cerrado de variantes definido al arrancar.
type VariantSet struct {
	variants []Variant
	byID     map[string]Variant
}

// NewVariantSet construye el set a partir de los thresholds de cada familia.
// Rechaza IDs duplicados.
func NewVariantSet(undervalued, momentum []float64) (VariantSet, error) {
	set := VariantSet{byID: make(map[string]Variant)}
	add := func(f Family, thresholds []float64) error {
		for _, th := range thresholds {
			v, err := NewVariant(f, th)
			if err != nil {
				return err
			}
			if _, dup := set.byID[v.ID]; dup {
				return fmt.Errorf("domain.NewVariantSet: duplicate variant %s", v.ID)
			}
			set.byID[v.ID] = v
			set.variants = append(set.variants, v)
		}
		return nil
	}
	if err := add(FamilyUndervalued, undervalued); err != nil {
		return VariantSet{}, err
	}
	if err := add(FamilyMomentum, momentum); err != nil {
		return VariantSet{}, err
	}
	if len(set.variants) == 0 {
		return VariantSet{}, fmt.Errorf("domain.NewVariantSet: no variants configured")
	}
	return set, nil
}

// DefaultVariantSet son los thresholds usados originalmente por el tester.
func DefaultVariantSet() VariantSet {
	set, _ := NewVariantSet(
		[]float64{0.49, 0.48, 0.47, 0.46},
		[]float64{0.51, 0.52, 0.53, 0.54},
	)
	return set
}

// All devuelve una copia de las variantes en orden de definición.
func (s VariantSet) All() []Variant {
	out := make([]Variant, len(s.variants))
	copy(out, s.variants)
	return out
}

// Get busca una variante por ID.
func (s VariantSet) Get(id string) (Variant, bool) {
	v, ok := s.byID[id]
	return v, ok
}

// Len devuelve el número de variantes.
func (s VariantSet) Len() int { return len(s.variants) }
