// Package llm defines the report generator boundary: the request built from
// the rule engine output, the structured result, and typed failures.
package llm

import "context"

// ImagePart is one scalp image sent alongside the prompt.
type ImagePart struct {
	Label    string
	MIMEType string
	Data     []byte
}

// ReportRequest is a single generation request.
type ReportRequest struct {
	Prompt string
	Images []ImagePart
}

// ReportResult is the sanitised generator output.
type ReportResult struct {
	ReportText string        `json:"reportText"`
	Panel      AnalysisPanel `json:"analysis"`
	Model      string        `json:"model,omitempty"`
}

// ReportGenerator produces the narrative report for one assessment.
// Implementations return *GenerationError on failure.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, req ReportRequest) (ReportResult, error)
}

// PlaceholderGenerator is used when no provider is configured.
type PlaceholderGenerator struct{}

// GenerateReport always fails with ReasonNotConfigured.
func (PlaceholderGenerator) GenerateReport(ctx context.Context, req ReportRequest) (ReportResult, error) {
	return ReportResult{}, &GenerationError{Reason: ReasonNotConfigured}
}
