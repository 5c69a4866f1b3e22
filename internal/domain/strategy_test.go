package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamily_Qualifies(t *testing.T) {
	tests := []struct {
		family    Family
		price     float64
		threshold float64
		want      bool
	}{
		{FamilyUndervalued, 0.47, 0.48, true},
		{FamilyUndervalued, 0.48, 0.48, true},
		{FamilyUndervalued, 0.49, 0.48, false},
		{FamilyUndervalued, 0, 0.48, false},
		{FamilyMomentum, 0.53, 0.52, true},
		{FamilyMomentum, 0.52, 0.52, true},
		{FamilyMomentum, 0.51, 0.52, false},
		{Family("contrarian"), 0.5, 0.5, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.family.Qualifies(tt.price, tt.threshold),
			"%s price=%v threshold=%v", tt.family, tt.price, tt.threshold)
	}
}

func TestNewVariant(t *testing.T) {
	v, err := NewVariant(FamilyMomentum, 0.52)
	require.NoError(t, err)
	assert.Equal(t, "momentum_52", v.ID)

	v, err = NewVariant(FamilyUndervalued, 0.473)
	require.NoError(t, err)
	assert.Equal(t, "undervalued_47", v.ID)

	for _, th := range []float64{0, 1, -0.1, 1.5} {
		_, err := NewVariant(FamilyMomentum, th)
		assert.Error(t, err, "threshold %v", th)
	}
	_, err = NewVariant(Family("contrarian"), 0.5)
	assert.Error(t, err)
}

func TestNewVariantSet(t *testing.T) {
	set := DefaultVariantSet()
	require.Equal(t, 8, set.Len())
	all := set.All()
	assert.Equal(t, "undervalued_49", all[0].ID)
	assert.Equal(t, "momentum_54", all[7].ID)

	v, ok := set.Get("momentum_52")
	require.True(t, ok)
	assert.Equal(t, 0.52, v.Threshold)

	_, err := NewVariantSet([]float64{0.48, 0.48}, nil)
	assert.Error(t, err, "duplicate id")

	_, err = NewVariantSet(nil, nil)
	assert.Error(t, err, "empty set")
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily(" Momentum ")
	require.NoError(t, err)
	assert.Equal(t, FamilyMomentum, f)

	_, err = ParseFamily("contrarian")
	assert.Error(t, err)
}
