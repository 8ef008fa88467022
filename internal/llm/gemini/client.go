// Package gemini implements llm.ReportGenerator with the Gemini SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"scalpcare-backend/internal/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-3-pro-preview"

const (
	temperature     = 0.2
	maxOutputTokens = 20000
	thinkingBudget  = 15000
)

// baseURL overrides the API endpoint when set.
var baseURL = ""

// Client generates reports through models.generateContent with a JSON response schema.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient constructs a Gemini client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: model, timeout: timeout}, nil
}

func metricSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":      {Type: genai.TypeNumber},
			"status":     {Type: genai.TypeString},
			"suggestion": {Type: genai.TypeString},
		},
		Required: []string{"score", "status", "suggestion"},
	}
}

// reportSchema mirrors llm.ReportResult: report text plus the analysis panel.
func reportSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reportText": {Type: genai.TypeString},
			"analysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"color":        metricSchema(),
					"pores":        metricSchema(),
					"density":      metricSchema(),
					"diameter":     metricSchema(),
					"sebum":        metricSchema(),
					"estimatedAge": {Type: genai.TypeNumber},
				},
				Required: []string{"color", "pores", "density", "diameter", "sebum", "estimatedAge"},
			},
		},
		Required: []string{"reportText", "analysis"},
	}
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(llm.SystemInstruction(), genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    reportSchema(),
		MaxOutputTokens:   maxOutputTokens,
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](thinkingBudget)},
	}
}

// GenerateReport sends the prompt followed by labelled inline images.
func (c *Client) GenerateReport(ctx context.Context, req llm.ReportRequest) (llm.ReportResult, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromText(img.Label), genai.NewPartFromBytes(img.Data, mime))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, generateConfig())
	if err != nil {
		return llm.ReportResult{}, classify(err)
	}
	if u := resp.UsageMetadata; u != nil {
		log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
			c.model, u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return llm.ReportResult{}, llm.Fail(llm.ReasonInvalidResponse, errors.New("gemini response missing candidates"))
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return llm.ReportResult{}, llm.Fail(llm.ReasonInvalidResponse,
			fmt.Errorf("gemini empty content (finish=%s)", resp.Candidates[0].FinishReason))
	}

	result, err := llm.ParseReport([]byte(text))
	if err != nil {
		return llm.ReportResult{}, err
	}
	result.Model = c.model
	return result, nil
}

// classify maps SDK errors onto generation failure reasons.
func classify(err error) *llm.GenerationError {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return llm.FromTransport(err)
	}
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		return llm.Fail(llm.ReasonQuotaExceeded, err)
	}
	if apiErr.Status == "DEADLINE_EXCEEDED" {
		return llm.Fail(llm.ReasonTimeout, err)
	}
	return llm.FromStatus(apiErr.Code, err)
}

var _ llm.ReportGenerator = (*Client)(nil)
