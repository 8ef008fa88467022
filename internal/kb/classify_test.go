package kb

import (
	"reflect"
	"testing"
)

func diagnosisIDs(diagnoses []Diagnosis) []DiagnosisID {
	out := make([]DiagnosisID, 0, len(diagnoses))
	for _, d := range diagnoses {
		out = append(out, d.ID)
	}
	return out
}

func TestClassify(t *testing.T) {
	healthy := NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.0}

	tests := []struct {
		name    string
		indices NormalizedIndices
		pore    PoreStatus
		want    []DiagnosisID
	}{
		{name: "healthy baseline", indices: healthy, pore: PoreClear, want: []DiagnosisID{}},
		{name: "redness", indices: NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 2.5}, pore: PoreClear, want: []DiagnosisID{DiagnosisSensitive}},
		{name: "redness threshold inclusive", indices: NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.5}, pore: PoreClear, want: []DiagnosisID{DiagnosisSensitive}},
		{name: "clog rate threshold inclusive", indices: NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.2, RednessScore: 1.0}, pore: PoreClear, want: []DiagnosisID{DiagnosisClogged}},
		{name: "clog rate just below", indices: NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.19, RednessScore: 1.0}, pore: PoreClear, want: []DiagnosisID{}},
		{name: "pore clogged alone", indices: healthy, pore: PoreClogged, want: []DiagnosisID{DiagnosisClogged}},
		{name: "mini rate threshold inclusive", indices: NormalizedIndices{Density: 120, MiniRate: 0.2, ClogRate: 0.1, RednessScore: 1.0}, pore: PoreClear, want: []DiagnosisID{DiagnosisThinning}},
		{name: "low density alone", indices: NormalizedIndices{Density: 109, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.0}, pore: PoreClear, want: []DiagnosisID{DiagnosisThinning}},
		{name: "density at threshold is healthy", indices: NormalizedIndices{Density: 110, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.0}, pore: PoreClear, want: []DiagnosisID{}},
		{name: "all three in evaluation order", indices: NormalizedIndices{Density: 120, MiniRate: 0.25, ClogRate: 0.25, RednessScore: 2.5}, pore: PoreClear, want: []DiagnosisID{DiagnosisSensitive, DiagnosisClogged, DiagnosisThinning}},
		{name: "clogged and thinning", indices: NormalizedIndices{Density: 90, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.0}, pore: PoreClogged, want: []DiagnosisID{DiagnosisClogged, DiagnosisThinning}},
		{name: "extreme ratios accepted", indices: NormalizedIndices{Density: -5, MiniRate: 3, ClogRate: -1, RednessScore: 1.0}, pore: PoreClear, want: []DiagnosisID{DiagnosisThinning}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := diagnosisIDs(Classify(tt.indices, tt.pore))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyNeverReturnsNil(t *testing.T) {
	got := Classify(NormalizedIndices{Density: 120, MiniRate: 0.05, ClogRate: 0.1, RednessScore: 1.0}, PoreClear)
	if got == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

// Severity is pinned to moderate until graded bands exist.
func TestClassifySeverityIsAlwaysModerate(t *testing.T) {
	got := Classify(NormalizedIndices{Density: 10, MiniRate: 0.9, ClogRate: 0.9, RednessScore: 2.5}, PoreClogged)
	if len(got) != 3 {
		t.Fatalf("expected 3 diagnoses, got %d", len(got))
	}
	for _, d := range got {
		if d.Severity != SeverityModerate {
			t.Fatalf("diagnosis %s: expected severity %q, got %q", d.ID, SeverityModerate, d.Severity)
		}
	}
}

func TestClassifyDiagnosisText(t *testing.T) {
	got := Classify(NormalizedIndices{Density: 100, MiniRate: 0.3, ClogRate: 0.3, RednessScore: 2.5}, PoreClear)
	want := []Diagnosis{
		{ID: DiagnosisSensitive, Name: "敏感發炎", Description: "頭皮底色偏紅且微血管擴張。", Severity: SeverityModerate},
		{ID: DiagnosisClogged, Name: "油脂阻塞", Description: "毛孔被固態油脂填平，缺乏漏斗狀凹槽。", Severity: SeverityModerate},
		{ID: DiagnosisThinning, Name: "毛囊萎縮徵兆", Description: "髮徑變細且密度低於健康基準。", Severity: SeverityModerate},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Classify() = %+v, want %+v", got, want)
	}
}
