package assessments

import (
	"time"

	"scalpcare-backend/internal/kb"
	"scalpcare-backend/internal/llm"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Image slots captured by the scope and the before/after phase.
const (
	SlotWhiteLight     = "whiteLight"
	SlotPolarizedLight = "polarizedLight"
	SlotCustom         = "custom"

	PhaseBefore = "before"
	PhaseAfter  = "after"
)

// ImageSet holds base64 data URLs as sent by the tablet.
type ImageSet struct {
	WhiteLight     string `json:"whiteLight,omitempty"`
	PolarizedLight string `json:"polarizedLight,omitempty"`
	Custom         string `json:"custom,omitempty"`
}

func (s ImageSet) slots() [][2]string {
	return [][2]string{
		{SlotWhiteLight, s.WhiteLight},
		{SlotPolarizedLight, s.PolarizedLight},
		{SlotCustom, s.Custom},
	}
}

// StoredImage points at an image saved in the object store.
type StoredImage struct {
	Slot      string `json:"slot"`
	Phase     string `json:"phase"`
	Key       string `json:"key"`
	MIMEType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// CreateInput is the body of a new assessment.
type CreateInput struct {
	kb.AssessmentInput
	Images           ImageSet             `json:"images"`
	ObservationAfter *kb.ScalpObservation `json:"observationAfter,omitempty"`
	ImagesAfter      ImageSet             `json:"imagesAfter"`
}

// Report is the generated narrative plus the generator's self-reported panel.
type Report struct {
	Text  string            `json:"reportText"`
	Panel llm.AnalysisPanel `json:"analysis"`
	Model string            `json:"model,omitempty"`
}

// Assessment is one stored assessment session.
type Assessment struct {
	ID               string               `json:"id"`
	CustomerPhone    string               `json:"customerPhone"`
	Status           string               `json:"status"`
	Input            kb.AssessmentInput   `json:"input"`
	ObservationAfter *kb.ScalpObservation `json:"observationAfter,omitempty"`
	Analysis         kb.Analysis          `json:"analysisResult"`
	PromptBlock      string               `json:"promptBlock"`
	Images           []StoredImage        `json:"images"`
	Report           *Report              `json:"report,omitempty"`
	ErrorCode        string               `json:"errorCode,omitempty"`
	ErrorMessage     string               `json:"errorMessage,omitempty"`
	RequestID        string               `json:"requestId,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
}

// Terminal reports whether no further processing will happen.
func (a Assessment) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}

// IndexDelta is to minus from for each normalised index.
type IndexDelta struct {
	Density      int     `json:"density"`
	MiniRate     float64 `json:"miniRate"`
	ClogRate     float64 `json:"clogRate"`
	RednessScore float64 `json:"rednessScore"`
}

// Snapshot summarises one side of a comparison.
type Snapshot struct {
	ID        string               `json:"id"`
	Status    string               `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
	Indices   kb.NormalizedIndices `json:"normalizedData"`
	Diagnoses []kb.DiagnosisID     `json:"diagnoses"`
}

// Comparison describes how a customer's scalp changed between two sessions.
type Comparison struct {
	From       Snapshot         `json:"from"`
	To         Snapshot         `json:"to"`
	Delta      IndexDelta       `json:"delta"`
	Resolved   []kb.Diagnosis   `json:"resolved"`
	Added      []kb.Diagnosis   `json:"added"`
	Persisting []kb.DiagnosisID `json:"persisting"`
}
