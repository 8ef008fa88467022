package kb

const (
	rednessThreshold  = 1.5
	clogRateThreshold = 0.2
	miniRateThreshold = 0.2
	densityThreshold  = 110
)

type rule struct {
	diagnosis Diagnosis
	matches   func(NormalizedIndices, PoreStatus) bool
}

// rules are evaluated in this order. The order is part of the contract:
// composers read diagnoses in evaluation order.
var rules = []rule{
	{
		diagnosis: Diagnosis{
			ID:          DiagnosisSensitive,
			Name:        "敏感發炎",
			Description: "頭皮底色偏紅且微血管擴張。",
		},
		matches: func(idx NormalizedIndices, _ PoreStatus) bool {
			return idx.RednessScore >= rednessThreshold
		},
	},
	{
		diagnosis: Diagnosis{
			ID:          DiagnosisClogged,
			Name:        "油脂阻塞",
			Description: "毛孔被固態油脂填平，缺乏漏斗狀凹槽。",
		},
		matches: func(idx NormalizedIndices, pore PoreStatus) bool {
			return idx.ClogRate >= clogRateThreshold || pore == PoreClogged
		},
	},
	{
		diagnosis: Diagnosis{
			ID:          DiagnosisThinning,
			Name:        "毛囊萎縮徵兆",
			Description: "髮徑變細且密度低於健康基準。",
		},
		matches: func(idx NormalizedIndices, _ PoreStatus) bool {
			return idx.MiniRate >= miniRateThreshold || idx.Density < densityThreshold
		},
	},
}

// Classify evaluates every rule independently and returns the matching
// diagnoses in evaluation order. The result is never nil.
func Classify(indices NormalizedIndices, pore PoreStatus) []Diagnosis {
	out := make([]Diagnosis, 0, len(rules))
	for _, r := range rules {
		if !r.matches(indices, pore) {
			continue
		}
		d := r.diagnosis
		d.Severity = severityFor(d.ID, indices)
		out = append(out, d)
	}
	return out
}

// severityFor is constant 中度 for every finding; the enumeration keeps the
// other grades for the wire format only.
func severityFor(_ DiagnosisID, _ NormalizedIndices) Severity {
	return SeverityModerate
}
