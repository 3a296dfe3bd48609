package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers. Implementations return the raw text of the
// first candidate; callers own any JSON decoding.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn completion request.
type Request struct {
	// Task names the caller for logs and metrics, e.g. "summary" or "draft".
	Task   string
	System string
	Prompt string
	// Media is sent alongside Prompt, for OCR and data-URI documents.
	Media []Media
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Media is an inline binary attachment.
type Media struct {
	MIMEType string
	Data     []byte
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderClient) Generate(context.Context, Request) (string, error) {
	return "", ErrNotImplemented
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
