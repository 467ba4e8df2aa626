package domain

import (
	"fmt"
	"strings"
)

// WeightUnit tags the unit a weight was recorded in. Values are stored as
// entered and never normalized.
type WeightUnit string

const (
	Kilograms WeightUnit = "kg"
	Pounds    WeightUnit = "lbs"
	Stone     WeightUnit = "stone"
)

// WeightUnits lists the selectable units in display order.
var WeightUnits = []WeightUnit{Kilograms, Pounds, Stone}

const (
	kgPerLb     = 0.45359237
	lbsPerStone = 14.0
)

func (u WeightUnit) String() string {
	return string(u)
}

// Valid reports whether u is one of the known units.
func (u WeightUnit) Valid() bool {
	switch u {
	case Kilograms, Pounds, Stone:
		return true
	}
	return false
}

// ParseWeightUnit maps a unit label to a WeightUnit. "lb" is accepted as an
// alias for pounds.
func ParseWeightUnit(s string) (WeightUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kg":
		return Kilograms, nil
	case "lb", "lbs":
		return Pounds, nil
	case "st", "stone":
		return Stone, nil
	}
	return "", fmt.Errorf("unknown weight unit %q", s)
}

func toKg(v float64, u WeightUnit) float64 {
	switch u {
	case Pounds:
		return v * kgPerLb
	case Stone:
		return v * lbsPerStone * kgPerLb
	}
	return v
}

func fromKg(v float64, u WeightUnit) float64 {
	switch u {
	case Pounds:
		return v / kgPerLb
	case Stone:
		return v / kgPerLb / lbsPerStone
	}
	return v
}

// ConvertWeight converts a weight value between units.
// Returns v unchanged if from == to or if either unit is unrecognised.
func ConvertWeight(v float64, from, to WeightUnit) float64 {
	if from == to || !from.Valid() || !to.Valid() {
		return v
	}
	return fromKg(toKg(v, from), to)
}

// FormatWeight renders a weight with one decimal place.
func FormatWeight(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
