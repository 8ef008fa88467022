package kb

import (
	"math"
	"math/big"
)

const (
	standardDiameter   = 80
	miniRateFloor      = 0.05
	rednessReddish     = 2.5
	rednessNormal      = 1.0
	sebumPercentDivide = 100.0
)

// DefaultBaseline is substituted when no machine metrics exist. It encodes
// a healthy scalp so that the classifier emits no findings.
func DefaultBaseline() MachineMetrics {
	return MachineMetrics{
		HairDensity:     120,
		HairDiameter:    80,
		SebumPercentage: 10,
		FollicleHealth:  80,
		DandruffLevel:   1,
	}
}

// Normalize converts raw metrics and the observed colour into clinical indices.
// A nil metrics pointer selects DefaultBaseline. Out-of-range inputs are not clamped.
func Normalize(metrics *MachineMetrics, color Color) NormalizedIndices {
	raw := DefaultBaseline()
	if metrics != nil {
		raw = *metrics
	}
	return NormalizedIndices{
		Density:      raw.HairDensity,
		MiniRate:     MiniaturizationRate(raw.HairDiameter),
		ClogRate:     raw.SebumPercentage / sebumPercentDivide,
		RednessScore: rednessScore(color),
	}
}

// MiniaturizationRate returns 0.05 for diameters at or above the 80 standard,
// otherwise (80-diameter)/80 rounded to two decimals.
func MiniaturizationRate(diameter int) float64 {
	if diameter >= standardDiameter {
		return miniRateFloor
	}
	return round2(float64(standardDiameter-diameter) / standardDiameter)
}

func rednessScore(color Color) float64 {
	if color == ColorReddish {
		return rednessReddish
	}
	return rednessNormal
}

// round2 rounds the exact binary value of v to two decimals, ties away from
// zero, so 0.075 (stored as 0.07499...) becomes 0.07.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if v < 0 {
		return -round2(-v)
	}
	r := new(big.Rat).SetFloat64(v)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom())
	hundredths, _ := new(big.Float).SetInt(n).Float64()
	return hundredths / 100
}
