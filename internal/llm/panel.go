package llm

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Panel defaults applied when the generator omits or zeroes a field.
const (
	DefaultPanelScore      = 70
	DefaultPanelStatus     = "狀態良好"
	DefaultPanelSuggestion = "建議保持清潔"
	DefaultEstimatedAge    = 30
	FallbackReportText     = "報告生成異常，請重新嘗試。"
)

// PanelMetric is one scored dimension of the generator panel.
type PanelMetric struct {
	Score      float64 `json:"score"`
	Status     string  `json:"status"`
	Suggestion string  `json:"suggestion"`
}

// AnalysisPanel is the scored summary returned next to the report text.
type AnalysisPanel struct {
	Color        PanelMetric `json:"color"`
	Pores        PanelMetric `json:"pores"`
	Density      PanelMetric `json:"density"`
	Diameter     PanelMetric `json:"diameter"`
	Sebum        PanelMetric `json:"sebum"`
	EstimatedAge float64     `json:"estimatedAge"`
}

type rawReport struct {
	ReportText any            `json:"reportText"`
	Analysis   map[string]any `json:"analysis"`
}

// ParseReport decodes a provider JSON payload into a sanitised ReportResult.
// Only undecodable JSON is an error; missing fields fall back to defaults.
func ParseReport(raw []byte) (ReportResult, error) {
	raw = []byte(stripCodeFence(string(raw)))
	var parsed rawReport
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ReportResult{}, Fail(ReasonInvalidResponse, err)
	}
	if parsed.ReportText == nil && parsed.Analysis == nil {
		return ReportResult{}, Fail(ReasonInvalidResponse, errors.New("missing reportText and analysis"))
	}
	text, _ := parsed.ReportText.(string)
	if strings.TrimSpace(text) == "" {
		text = FallbackReportText
	}
	return ReportResult{
		ReportText: text,
		Panel:      SanitizePanel(parsed.Analysis),
	}, nil
}

// SanitizePanel coerces a loosely typed panel into AnalysisPanel. Scores are
// clamped to [0,100]; zero or non-numeric scores become DefaultPanelScore.
func SanitizePanel(raw map[string]any) AnalysisPanel {
	return AnalysisPanel{
		Color:        sanitizeMetric(raw["color"]),
		Pores:        sanitizeMetric(raw["pores"]),
		Density:      sanitizeMetric(raw["density"]),
		Diameter:     sanitizeMetric(raw["diameter"]),
		Sebum:        sanitizeMetric(raw["sebum"]),
		EstimatedAge: numberOr(raw["estimatedAge"], DefaultEstimatedAge),
	}
}

func sanitizeMetric(v any) PanelMetric {
	m, _ := v.(map[string]any)
	score := numberOr(m["score"], DefaultPanelScore)
	return PanelMetric{
		Score:      math.Min(math.Max(score, 0), 100),
		Status:     stringOr(m["status"], DefaultPanelStatus),
		Suggestion: stringOr(m["suggestion"], DefaultPanelSuggestion),
	}
}

func numberOr(v any, def float64) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return def
		}
		f = parsed
	case bool:
		if n {
			f = 1
		}
	default:
		return def
	}
	if f == 0 || math.IsNaN(f) {
		return def
	}
	return f
}

func stringOr(v any, def string) string {
	switch s := v.(type) {
	case string:
		if s != "" {
			return s
		}
	case float64:
		if s != 0 {
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	case bool:
		if s {
			return "true"
		}
	}
	return def
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
