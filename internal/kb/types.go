package kb

// Color is the consultant's observed scalp base colour.
type Color string

const (
	ColorNormal  Color = "正常"
	ColorReddish Color = "偏紅"
)

// PoreStatus is the consultant's observed pore condition.
type PoreStatus string

const (
	PoreClear   PoreStatus = "清晰"
	PoreClogged PoreStatus = "有附著物"
)

// Severity grades a diagnosis. The engine currently only emits SeverityModerate.
type Severity string

const (
	SeverityMild     Severity = "輕度"
	SeverityModerate Severity = "中度"
	SeveritySevere   Severity = "重度"
)

// DiagnosisID identifies one of the fixed findings the classifier can emit.
type DiagnosisID string

const (
	DiagnosisSensitive DiagnosisID = "SH_SENSITIVE"
	DiagnosisClogged   DiagnosisID = "SH_CLOGGED"
	DiagnosisThinning  DiagnosisID = "HL_THINNING"
)

// RecommendationType is the recommendation category.
type RecommendationType string

const (
	RecommendationProduct   RecommendationType = "PRODUCT"
	RecommendationLifestyle RecommendationType = "LIFESTYLE"
	RecommendationTreatment RecommendationType = "TREATMENT"
)

// MachineMetrics is the output contract of the image metric producer.
type MachineMetrics struct {
	HairDensity     int     `json:"hairDensity" yaml:"hairDensity"`
	HairDiameter    int     `json:"hairDiameter" yaml:"hairDiameter"`
	SebumPercentage float64 `json:"sebumPercentage" yaml:"sebumPercentage"`
	DandruffLevel   int     `json:"dandruffLevel" yaml:"dandruffLevel"`
	FollicleHealth  float64 `json:"follicleHealth" yaml:"follicleHealth"`
}

// ScalpObservation holds the consultant's manual observation fields.
type ScalpObservation struct {
	Location   string     `json:"location,omitempty" yaml:"location,omitempty"`
	Color      Color      `json:"color" yaml:"color"`
	OilLevel   string     `json:"oilLevel,omitempty" yaml:"oilLevel,omitempty"`
	PoreStatus PoreStatus `json:"poreStatus" yaml:"poreStatus"`
}

// AssessmentInput is everything the engine reads from one assessment session.
// Identity and notes are carried for callers but never affect the numbers.
type AssessmentInput struct {
	Name            string           `json:"name,omitempty" yaml:"name,omitempty"`
	AgeRange        string           `json:"ageRange,omitempty" yaml:"ageRange,omitempty"`
	Observation     ScalpObservation `json:"observation" yaml:"observation"`
	MachineMetrics  *MachineMetrics  `json:"machineMetrics,omitempty" yaml:"machineMetrics,omitempty"`
	ConsultantNotes string           `json:"consultantNotes,omitempty" yaml:"consultantNotes,omitempty"`
}

// NormalizedIndices are the clinical indices derived from raw metrics.
type NormalizedIndices struct {
	Density      int     `json:"density" yaml:"density"`
	MiniRate     float64 `json:"miniRate" yaml:"miniRate"`
	ClogRate     float64 `json:"clogRate" yaml:"clogRate"`
	RednessScore float64 `json:"rednessScore" yaml:"rednessScore"`
}

// Diagnosis is a named finding emitted when an index crosses its threshold.
type Diagnosis struct {
	ID          DiagnosisID `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Severity    Severity    `json:"severity" yaml:"severity"`
}

// Recommendation is one category's bundle. IDs reference the product
// catalog for PRODUCT and the course catalog for TREATMENT.
type Recommendation struct {
	Type    RecommendationType `json:"type" yaml:"type"`
	Title   string             `json:"title" yaml:"title"`
	Content string             `json:"content" yaml:"content"`
	IDs     []string           `json:"productIds,omitempty" yaml:"productIds,omitempty"`
}

// RecommendationSet always holds exactly one recommendation per category.
type RecommendationSet struct {
	Product   Recommendation `json:"product" yaml:"product"`
	Lifestyle Recommendation `json:"lifestyle" yaml:"lifestyle"`
	Treatment Recommendation `json:"treatment" yaml:"treatment"`
}

// Ordered returns the recommendations in report order.
func (s RecommendationSet) Ordered() []Recommendation {
	return []Recommendation{s.Product, s.Lifestyle, s.Treatment}
}

// Analysis is the full engine output for one assessment.
type Analysis struct {
	Diagnoses         []Diagnosis       `json:"diagnoses" yaml:"diagnoses"`
	Recommendations   RecommendationSet `json:"recommendations" yaml:"recommendations"`
	NormalizedIndices NormalizedIndices `json:"normalizedData" yaml:"normalizedData"`
}

// HasDiagnosis reports whether id is among the active diagnoses.
func HasDiagnosis(diagnoses []Diagnosis, id DiagnosisID) bool {
	for _, d := range diagnoses {
		if d.ID == id {
			return true
		}
	}
	return false
}
