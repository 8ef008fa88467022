package llm

import (
	"errors"
	"testing"
)

func TestParseReportSanitizes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  string
		wantColor PanelMetric
		wantAge   float64
	}{
		{
			name:      "complete payload",
			raw:       `{"reportText":"r","analysis":{"color":{"score":42,"status":"泛紅","suggestion":"舒緩"},"estimatedAge":41}}`,
			wantText:  "r",
			wantColor: PanelMetric{Score: 42, Status: "泛紅", Suggestion: "舒緩"},
			wantAge:   41,
		},
		{
			name:      "zero score defaults",
			raw:       `{"reportText":"r","analysis":{"color":{"score":0}}}`,
			wantText:  "r",
			wantColor: PanelMetric{Score: DefaultPanelScore, Status: DefaultPanelStatus, Suggestion: DefaultPanelSuggestion},
			wantAge:   DefaultEstimatedAge,
		},
		{
			name:      "negative clamps to zero",
			raw:       `{"reportText":"r","analysis":{"color":{"score":-5,"status":"x","suggestion":"y"}}}`,
			wantText:  "r",
			wantColor: PanelMetric{Score: 0, Status: "x", Suggestion: "y"},
			wantAge:   DefaultEstimatedAge,
		},
		{
			name:      "numeric string score",
			raw:       `{"reportText":"r","analysis":{"color":{"score":"88"},"estimatedAge":"27"}}`,
			wantText:  "r",
			wantColor: PanelMetric{Score: 88, Status: DefaultPanelStatus, Suggestion: DefaultPanelSuggestion},
			wantAge:   27,
		},
		{
			name:      "non numeric score",
			raw:       `{"reportText":"r","analysis":{"color":{"score":"high"}}}`,
			wantText:  "r",
			wantColor: PanelMetric{Score: DefaultPanelScore, Status: DefaultPanelStatus, Suggestion: DefaultPanelSuggestion},
			wantAge:   DefaultEstimatedAge,
		},
		{
			name:      "missing report text",
			raw:       "```json\n{\"analysis\":{}}\n```",
			wantText:  FallbackReportText,
			wantColor: PanelMetric{Score: DefaultPanelScore, Status: DefaultPanelStatus, Suggestion: DefaultPanelSuggestion},
			wantAge:   DefaultEstimatedAge,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseReport([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseReport: %v", err)
			}
			if res.ReportText != tt.wantText {
				t.Fatalf("text got %q want %q", res.ReportText, tt.wantText)
			}
			if res.Panel.Color != tt.wantColor {
				t.Fatalf("color got %+v want %+v", res.Panel.Color, tt.wantColor)
			}
			if res.Panel.EstimatedAge != tt.wantAge {
				t.Fatalf("age got %v want %v", res.Panel.EstimatedAge, tt.wantAge)
			}
		})
	}
}

func TestParseReportRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"other":1}`, `[]`} {
		_, err := ParseReport([]byte(raw))
		var genErr *GenerationError
		if !errors.As(err, &genErr) || genErr.Reason != ReasonInvalidResponse {
			t.Fatalf("raw %q: expected invalid response, got %v", raw, err)
		}
	}
}

func TestSanitizePanelNilMap(t *testing.T) {
	p := SanitizePanel(nil)
	if p.Sebum.Score != DefaultPanelScore || p.EstimatedAge != DefaultEstimatedAge {
		t.Fatalf("unexpected defaults %+v", p)
	}
}
