// Package units provides the closed unit enumeration and conversion
// for stock quantities. Leather goods are measured either by area or
// by length; piece goods are counted and never converted.
package units

import (
	"github.com/shopspring/decimal"

	"tannery/internal/core/types"
)

// Unit is one of a fixed enumeration of measurement units.
// The set is intentionally closed: the conversion table below is the
// whole unit system, not a pluggable one.
type Unit string

const (
	// Count units (non-convertible)
	Piece   Unit = "piece"
	Package Unit = "package"

	// Area family
	SquareFoot       Unit = "ft2"
	SquareCentimeter Unit = "cm2"
	SquareMillimeter Unit = "mm2"
	SquareMeter      Unit = "m2"

	// Length family
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
)

// Family groups units that convert among each other.
type Family string

const (
	FamilyCount  Family = "count"
	FamilyArea   Family = "area"
	FamilyLength Family = "length"
)

// squareMetersPerSquareFoot is the survey definition of the square foot.
var squareMetersPerSquareFoot = decimal.RequireFromString("0.0929025")

// areaFactors map each area unit to its canonical ft² equivalent.
var areaFactors = map[Unit]decimal.Decimal{
	SquareFoot:       decimal.NewFromInt(1),
	SquareMeter:      decimal.NewFromInt(1).Div(squareMetersPerSquareFoot),
	SquareCentimeter: decimal.NewFromInt(1).Div(squareMetersPerSquareFoot).Shift(-4),
	SquareMillimeter: decimal.NewFromInt(1).Div(squareMetersPerSquareFoot).Shift(-6),
}

// lengthFactors map each length unit to its canonical meter equivalent.
var lengthFactors = map[Unit]decimal.Decimal{
	Millimeter: decimal.RequireFromString("0.001"),
	Centimeter: decimal.RequireFromString("0.01"),
	Meter:      decimal.NewFromInt(1),
}

// FamilyOf returns the conversion family of a unit.
// Unknown units report as count (non-convertible).
func FamilyOf(u Unit) Family {
	if _, ok := areaFactors[u]; ok {
		return FamilyArea
	}
	if _, ok := lengthFactors[u]; ok {
		return FamilyLength
	}
	return FamilyCount
}

// Valid reports whether u is a member of the unit enumeration.
func Valid(u Unit) bool {
	switch u {
	case Piece, Package, SquareFoot, SquareCentimeter, SquareMillimeter, SquareMeter,
		Millimeter, Centimeter, Meter:
		return true
	}
	return false
}

// All returns the full unit enumeration.
func All() []Unit {
	return []Unit{
		Piece, Package,
		SquareFoot, SquareCentimeter, SquareMillimeter, SquareMeter,
		Millimeter, Centimeter, Meter,
	}
}

// Convert converts a value between units of the same family.
//
// Same-unit is identity. Units from different families, or either unit
// being a count unit, return 0 rather than failing; callers must treat
// 0 as "not applicable" when the two units differ. Area conversions
// pivot through a canonical ft² value, length conversions through a
// canonical meter value. Results are rounded to 3 decimal places so
// floating-point noise never propagates into persisted stock figures.
func Convert(value float64, from, to Unit) float64 {
	if from == to {
		if Valid(from) {
			return value
		}
		return 0
	}

	var factors map[Unit]decimal.Decimal
	switch {
	case FamilyOf(from) == FamilyArea && FamilyOf(to) == FamilyArea:
		factors = areaFactors
	case FamilyOf(from) == FamilyLength && FamilyOf(to) == FamilyLength:
		factors = lengthFactors
	default:
		return 0
	}

	result := decimal.NewFromFloat(value).
		Mul(factors[from]).
		Div(factors[to]).
		Round(3)
	f, _ := result.Float64()
	return f
}

// ConvertQuantity converts a fixed-point stock quantity between units.
// Follows the same rules as Convert.
func ConvertQuantity(q types.Quantity, from, to Unit) types.Quantity {
	if from == to && Valid(from) {
		return q
	}
	return types.NewQuantityFromFloat64(Convert(q.Float64(), from, to))
}
