// Package gemini implements llm.Client on the Google Generative AI SDK.
package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/requestctx"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "gemini-2.5-flash"

// Client wraps a genai client. It is safe for concurrent use; a fresh
// GenerativeModel is configured per request.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient dials the Gemini API with an API key.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Generate runs one GenerateContent call.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := c.client.GenerativeModel(c.model)
	configureModel(model, req)

	resp, err := model.GenerateContent(ctx, buildParts(req)...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	logUsage(ctx, c.model, req.Task, resp)

	text := responseText(resp)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func configureModel(model *genai.GenerativeModel, req llm.Request) {
	model.SetTemperature(0)
	if s := strings.TrimSpace(req.System); s != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
}

func buildParts(req llm.Request) []genai.Part {
	parts := make([]genai.Part, 0, len(req.Media)+1)
	if req.Prompt != "" {
		parts = append(parts, genai.Text(req.Prompt))
	}
	for _, m := range req.Media {
		parts = append(parts, genai.Blob{MIMEType: m.MIMEType, Data: m.Data})
	}
	return parts
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

func logUsage(ctx context.Context, model, task string, resp *genai.GenerateContentResponse) {
	reqID := requestctx.RequestID(ctx)
	if resp == nil || resp.UsageMetadata == nil {
		log.Printf("llm response provider=gemini model=%s task=%s request_id=%s", model, task, reqID)
		return
	}
	u := resp.UsageMetadata
	log.Printf("llm response provider=gemini model=%s task=%s request_id=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, task, reqID, u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount)
}

var _ llm.Client = (*Client)(nil)
