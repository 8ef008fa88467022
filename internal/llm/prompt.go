package llm

import (
	_ "embed"
	"strings"
)

// DefaultConsultantNotes stands in for empty consultant notes.
const DefaultConsultantNotes = "無特殊備註"

var (
	//go:embed prompts/report_v1.txt
	reportTemplate string
	//go:embed prompts/system.txt
	systemInstruction string
)

// PromptInput carries the fields substituted into the report template.
type PromptInput struct {
	Name            string
	AgeRange        string
	ConsultantNotes string
	KBBlock         string
}

// SystemInstruction returns the provider-independent system prompt.
func SystemInstruction() string {
	return strings.TrimSpace(systemInstruction)
}

// BuildPrompt renders the report template.
func BuildPrompt(in PromptInput) string {
	notes := strings.TrimSpace(in.ConsultantNotes)
	if notes == "" {
		notes = DefaultConsultantNotes
	}
	r := strings.NewReplacer(
		"{{name}}", in.Name,
		"{{ageRange}}", in.AgeRange,
		"{{consultantNotes}}", notes,
		"{{kbResult}}", in.KBBlock,
	)
	return r.Replace(reportTemplate)
}
