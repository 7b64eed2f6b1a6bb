package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"tannery/internal/core/types"
)

func TestConvert_Identity(t *testing.T) {
	for _, u := range All() {
		assert.Equal(t, 42.5, Convert(42.5, u, u), "identity for %s", u)
	}
}

func TestConvert_AreaFamily(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		from  Unit
		to    Unit
		want  float64
	}{
		{"square meters to square feet", 10, SquareMeter, SquareFoot, 107.639},
		{"square feet to square meters", 1, SquareFoot, SquareMeter, 0.093},
		{"square meters to square centimeters", 1, SquareMeter, SquareCentimeter, 10000},
		{"square centimeters to square meters", 25000, SquareCentimeter, SquareMeter, 2.5},
		{"square millimeters to square centimeters", 500, SquareMillimeter, SquareCentimeter, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Convert(tt.value, tt.from, tt.to), 0.0005)
		})
	}
}

func TestConvert_LengthFamily(t *testing.T) {
	assert.Equal(t, 1500.0, Convert(1.5, Meter, Millimeter))
	assert.Equal(t, 0.25, Convert(25, Centimeter, Meter))
	assert.Equal(t, 2.54, Convert(25.4, Millimeter, Centimeter))
}

func TestConvert_CrossFamilyIsZero(t *testing.T) {
	assert.Zero(t, Convert(10, SquareMeter, Meter))
	assert.Zero(t, Convert(10, Millimeter, SquareMillimeter))
}

func TestConvert_CountUnitsAreZero(t *testing.T) {
	assert.Zero(t, Convert(10, Piece, SquareMeter))
	assert.Zero(t, Convert(10, SquareMeter, Piece))
	assert.Zero(t, Convert(10, Piece, Package))
	assert.Zero(t, Convert(10, Package, Piece))
}

func TestConvert_RoundTrip(t *testing.T) {
	pairs := []struct{ a, b Unit }{
		{SquareMeter, SquareFoot},
		{SquareCentimeter, SquareMeter},
		{Meter, Millimeter},
		{Centimeter, Meter},
	}

	for _, p := range pairs {
		v := 37.25
		back := Convert(Convert(v, p.a, p.b), p.b, p.a)
		if math.Abs(back-v) > 0.01 {
			t.Errorf("round trip %s -> %s -> %s: got %v, want ~%v", p.a, p.b, p.a, back, v)
		}
	}
}

func TestConvert_RoundsToThreeDecimals(t *testing.T) {
	// 1 ft² = 0.0929025 m², must come back as 0.093
	got := Convert(1, SquareFoot, SquareMeter)
	assert.Equal(t, 0.093, got)
}

func TestConvertQuantity(t *testing.T) {
	q := types.NewQuantityFromFloat64(10) // 10 m²
	sub := ConvertQuantity(q, SquareMeter, SquareFoot)
	assert.InDelta(t, 107.639, sub.Float64(), 0.001)

	// count conversion yields zero
	assert.True(t, ConvertQuantity(q, Piece, SquareFoot).IsZero())

	// identity keeps exact fixed-point value
	assert.Equal(t, q, ConvertQuantity(q, SquareMeter, SquareMeter))
}

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyArea, FamilyOf(SquareMillimeter))
	assert.Equal(t, FamilyLength, FamilyOf(Centimeter))
	assert.Equal(t, FamilyCount, FamilyOf(Piece))
	assert.Equal(t, FamilyCount, FamilyOf(Unit("bogus")))
}

func TestValid(t *testing.T) {
	for _, u := range All() {
		assert.True(t, Valid(u))
	}
	assert.False(t, Valid(Unit("kg")))
	assert.False(t, Valid(Unit("")))
}
