package kb

import (
	"strconv"
	"strings"
	"testing"
)

func TestMiniaturizationRate(t *testing.T) {
	tests := []struct {
		name     string
		diameter int
		want     float64
	}{
		{name: "at standard", diameter: 80, want: 0.05},
		{name: "above standard", diameter: 110, want: 0.05},
		{name: "far above standard", diameter: 1000, want: 0.05},
		{name: "sixty", diameter: 60, want: 0.25},
		{name: "sixty four hits threshold", diameter: 64, want: 0.2},
		{name: "seventy", diameter: 70, want: 0.13},
		{name: "fifty", diameter: 50, want: 0.38},
		{name: "zero", diameter: 0, want: 1},
		{name: "two rounds down below tie", diameter: 2, want: 0.97},
		{name: "fourteen rounds down below tie", diameter: 14, want: 0.82},
		{name: "twenty two rounds down below tie", diameter: 22, want: 0.72},
		{name: "forty two rounds down below tie", diameter: 42, want: 0.47},
		{name: "forty six rounds down below tie", diameter: 46, want: 0.42},
		{name: "sixty six rounds down below tie", diameter: 66, want: 0.17},
		{name: "seventy four rounds down below tie", diameter: 74, want: 0.07},
		{name: "thirty exact tie rounds up", diameter: 30, want: 0.63},
		{name: "seventy eight just above tie", diameter: 78, want: 0.03},
		{name: "negative propagates", diameter: -80, want: 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := MiniaturizationRate(tt.diameter); got != tt.want {
				t.Fatalf("MiniaturizationRate(%d) = %v, want %v", tt.diameter, got, tt.want)
			}
		})
	}
}

func TestMiniaturizationRateFloorForAllStandardDiameters(t *testing.T) {
	for d := 80; d <= 200; d++ {
		if got := MiniaturizationRate(d); got != 0.05 {
			t.Fatalf("diameter %d: expected floor 0.05, got %v", d, got)
		}
	}
}

// fixed2 rounds the full decimal expansion of v to two places, half up.
func fixed2(t *testing.T, v float64) float64 {
	t.Helper()
	digits := strconv.FormatFloat(v, 'f', 80, 64)
	dot := strings.IndexByte(digits, '.')
	whole, frac := digits[:dot], digits[dot+1:]
	cents, err := strconv.Atoi(whole + frac[:2])
	if err != nil {
		t.Fatalf("parse %q: %v", digits, err)
	}
	if frac[2] >= '5' {
		cents++
	}
	return float64(cents) / 100
}

func TestMiniaturizationRateBelowStandardMatchesDecimalRounding(t *testing.T) {
	for d := 0; d < 80; d++ {
		want := fixed2(t, float64(80-d)/80)
		if got := MiniaturizationRate(d); got != want {
			t.Fatalf("diameter %d: expected %v, got %v", d, want, got)
		}
		if got := MiniaturizationRate(d); got < 0 || got > 1 {
			t.Fatalf("diameter %d: rate %v out of [0,1]", d, got)
		}
	}
}

func TestNormalizeUsesBaselineWhenMetricsMissing(t *testing.T) {
	got := Normalize(nil, ColorNormal)
	want := NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.0}
	if got != want {
		t.Fatalf("Normalize(nil) = %+v, want %+v", got, want)
	}
}

func TestNormalizePassesDensityAndSebumThrough(t *testing.T) {
	metrics := &MachineMetrics{HairDensity: 95, HairDiameter: 60, SebumPercentage: 25, FollicleHealth: 70, DandruffLevel: 2}
	got := Normalize(metrics, ColorNormal)
	if got.Density != 95 {
		t.Fatalf("expected density 95, got %d", got.Density)
	}
	if got.MiniRate != 0.25 {
		t.Fatalf("expected miniRate 0.25, got %v", got.MiniRate)
	}
	if got.ClogRate != 0.25 {
		t.Fatalf("expected clogRate 0.25, got %v", got.ClogRate)
	}
}

func TestNormalizeDoesNotClampSebum(t *testing.T) {
	tests := []struct {
		sebum float64
		want  float64
	}{
		{sebum: 150, want: 1.5},
		{sebum: -20, want: -0.2},
		{sebum: 0, want: 0},
		{sebum: 100, want: 1},
	}
	for _, tt := range tests {
		got := Normalize(&MachineMetrics{HairDensity: 120, HairDiameter: 80, SebumPercentage: tt.sebum}, ColorNormal)
		if got.ClogRate != tt.want {
			t.Fatalf("sebum %v: expected clogRate %v, got %v", tt.sebum, tt.want, got.ClogRate)
		}
	}
}

func TestNormalizeRednessScoreIsBinary(t *testing.T) {
	tests := []struct {
		color Color
		want  float64
	}{
		{color: ColorReddish, want: 2.5},
		{color: ColorNormal, want: 1.0},
		{color: "", want: 1.0},
		{color: "unknown", want: 1.0},
	}
	for _, tt := range tests {
		if got := Normalize(nil, tt.color).RednessScore; got != tt.want {
			t.Fatalf("color %q: expected %v, got %v", tt.color, tt.want, got)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	metrics := &MachineMetrics{HairDensity: 100, HairDiameter: 70, SebumPercentage: 30}
	before := *metrics
	_ = Normalize(metrics, ColorReddish)
	if *metrics != before {
		t.Fatalf("expected metrics unchanged, got %+v", *metrics)
	}
}
