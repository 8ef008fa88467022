// Package kb is the scalp expert-rule engine: it normalises machine metrics,
// classifies findings, composes tiered recommendations and formats them for
// the report generator. Everything here is pure and safe for concurrent use.
package kb

// Engine runs the normalise -> classify -> compose pipeline against a fixed
// set of catalogs.
type Engine struct {
	catalogs *Catalogs
	composer *Composer
}

// NewEngine builds an Engine. A nil catalogs value selects DefaultCatalogs.
func NewEngine(catalogs *Catalogs) *Engine {
	if catalogs == nil {
		catalogs = DefaultCatalogs()
	}
	return &Engine{
		catalogs: catalogs,
		composer: NewComposer(catalogs),
	}
}

// Catalogs returns the catalogs the engine was built with.
func (e *Engine) Catalogs() *Catalogs {
	return e.catalogs
}

// RunAnalysis derives indices, diagnoses and recommendations for one assessment.
func (e *Engine) RunAnalysis(input AssessmentInput) Analysis {
	indices := Normalize(input.MachineMetrics, input.Observation.Color)
	diagnoses := Classify(indices, input.Observation.PoreStatus)
	return Analysis{
		Diagnoses:         diagnoses,
		Recommendations:   e.composer.Compose(diagnoses),
		NormalizedIndices: indices,
	}
}

// FormatForGeneration renders an analysis for the external report generator.
func (e *Engine) FormatForGeneration(result Analysis) string {
	return Format(result.Recommendations.Ordered(), e.catalogs)
}
