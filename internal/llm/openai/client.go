package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"scalpcare-backend/internal/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

var apiURL = "https://api.openai.com/v1/chat/completions"

const reportTemperature = float32(0.2)

// Client implements llm.ReportGenerator using OpenAI Chat Completions in
// JSON mode with image_url parts.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateReport sends the prompt and images, repairing invalid JSON once.
func (c *Client) GenerateReport(ctx context.Context, req llm.ReportRequest) (llm.ReportResult, error) {
	messages := buildMessages(req)
	content, err := c.complete(ctx, messages)
	if err != nil {
		return llm.ReportResult{}, err
	}

	result, perr := llm.ParseReport([]byte(content))
	if perr != nil {
		fix := append(messages,
			chatMessage{Role: "assistant", Content: content},
			chatMessage{Role: "user", Content: "上一個回覆不是有效的 JSON。請只輸出符合格式的 JSON 物件。"},
		)
		content, err = c.complete(ctx, fix)
		if err != nil {
			return llm.ReportResult{}, err
		}
		result, perr = llm.ParseReport([]byte(content))
		if perr != nil {
			return llm.ReportResult{}, perr
		}
	}
	result.Model = c.model
	return result, nil
}

func buildMessages(req llm.ReportRequest) []chatMessage {
	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts,
			contentPart{Type: "text", Text: img.Label},
			contentPart{Type: "image_url", ImageURL: &imageURL{
				URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			}},
		)
	}
	return []chatMessage{
		{Role: "system", Content: llm.SystemInstruction()},
		{Role: "user", Content: parts},
	}
}

// complete runs one chat call. A "temperature unsupported" rejection is
// retried once without temperature.
func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	withTemp := supportsTemperature(c.model)
	content, err := c.completeOnce(ctx, messages, withTemp)
	if err != nil && withTemp && isTemperatureUnsupported(err) {
		log.Printf("openai model=%s rejected temperature, retrying without it", c.model)
		content, err = c.completeOnce(ctx, messages, false)
	}
	return content, err
}

func (c *Client) completeOnce(ctx context.Context, messages []chatMessage, withTemp bool) (string, error) {
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if withTemp {
		temp := reportTemperature
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", llm.Fail(llm.ReasonUpstream, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", llm.Fail(llm.ReasonUpstream, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", llm.FromTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.FromTransport(err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 300 {
			return "", llm.FromStatus(resp.StatusCode, fmt.Errorf("openai status %d", resp.StatusCode))
		}
		return "", llm.Fail(llm.ReasonInvalidResponse, fmt.Errorf("openai response parse: %w", err))
	}
	if parsed.Error != nil {
		apiErr := fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
		if resp.StatusCode >= 300 {
			return "", llm.FromStatus(resp.StatusCode, apiErr)
		}
		return "", llm.Fail(llm.ReasonUpstream, apiErr)
	}
	if resp.StatusCode >= 300 {
		return "", llm.FromStatus(resp.StatusCode, fmt.Errorf("openai status %d", resp.StatusCode))
	}
	if len(parsed.Choices) == 0 {
		return "", llm.Fail(llm.ReasonInvalidResponse, errors.New("openai response missing choices"))
	}
	logUsage(c.model, parsed.Usage)

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", llm.Fail(llm.ReasonInvalidResponse, errors.New("openai response empty content"))
	}
	return content, nil
}

func logUsage(model string, u *usage) {
	if u == nil {
		log.Printf("llm response model=%s", model)
		return
	}
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// supportsTemperature is false for reasoning models and for any model listed
// in REPORT_NO_TEMPERATURE_MODELS.
func supportsTemperature(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") {
		return false
	}
	for _, denied := range strings.Split(os.Getenv("REPORT_NO_TEMPERATURE_MODELS"), ",") {
		if strings.EqualFold(strings.TrimSpace(denied), m) {
			return false
		}
	}
	return true
}

func isTemperatureUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) && genErr.Err != nil {
		msg = strings.ToLower(genErr.Err.Error())
	}
	return strings.Contains(msg, "temperature") &&
		(strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not support"))
}

var _ llm.ReportGenerator = (*Client)(nil)
