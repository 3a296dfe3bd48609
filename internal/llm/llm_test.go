package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"lexease-backend/internal/shared/telemetry"
)

func TestParseDataURI(t *testing.T) {
	media, err := ParseDataURI("data:application/pdf;base64,JVBERi0xLjQ=")
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if media.MIMEType != "application/pdf" || string(media.Data) != "%PDF-1.4" {
		t.Fatalf("unexpected media %+v", media)
	}
	if got := media.DataURI(); got != "data:application/pdf;base64,JVBERi0xLjQ=" {
		t.Fatalf("unexpected round trip %q", got)
	}

	for _, in := range []string{"Party A shall pay", "data:text/plain,hello", "data:image/png;base64,***"} {
		if _, err := ParseDataURI(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	if IsDataURI("plain legal text") {
		t.Fatalf("plain text is not a data uri")
	}
}

func TestDecodeJSONStripsFencesAndProse(t *testing.T) {
	var out struct {
		RiskyClauses []string `json:"riskyClauses"`
	}
	raw := "Here you go:\n```json\n{\"riskyClauses\": [\"Unlimited liability\"]}\n```"
	if err := DecodeJSON(raw, &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(out.RiskyClauses) != 1 || out.RiskyClauses[0] != "Unlimited liability" {
		t.Fatalf("unexpected %+v", out)
	}
	if err := DecodeJSON("not json", &out); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt(PromptQA, map[string]string{
		"document": "Party A shall pay Party B $500 within 30 days.",
		"question": "How much is owed?",
	})
	if err != nil {
		t.Fatalf("RenderPrompt: %v", err)
	}
	if !strings.Contains(out, "Party A shall pay Party B $500") || !strings.Contains(out, "How much is owed?") {
		t.Fatalf("placeholders not filled: %s", out)
	}
	if strings.Contains(out, "{{") {
		t.Fatalf("unexpected leftover placeholder: %s", out)
	}
	if _, err := RenderPrompt("missing", nil); err == nil {
		t.Fatalf("expected unknown prompt error")
	}
	for _, name := range []string{PromptSummary, PromptEntities, PromptRisks, PromptLegalQA, PromptDraft, PromptOCR, PromptFixJSON} {
		if _, ok := PromptTemplate(name); !ok {
			t.Fatalf("prompt %s not embedded", name)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), true},
		{errors.New("openai http status 503: overloaded"), true},
		{errors.New("openai http status 400: bad request"), false},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("gemini generate: rpc error: code = Unavailable"), true},
		{ErrInvalidJSON, false},
	}
	for _, tt := range tests {
		if got := ShouldRetry(tt.err); got != tt.want {
			t.Fatalf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithRetryRetriesOnceOnTransientError(t *testing.T) {
	restore := telemetry.SetOutput(&bytes.Buffer{})
	defer restore()

	calls := 0
	base := ClientFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("openai http status 502: bad gateway")
		}
		return "ok", nil
	})
	client := retryingClient{base: base, delay: time.Millisecond}

	out, err := client.Generate(context.Background(), Request{Task: "summary"})
	if err != nil || out != "ok" {
		t.Fatalf("expected success after retry, got %q %v", out, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetryDoesNotRetryPermanentError(t *testing.T) {
	calls := 0
	base := ClientFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", errors.New("openai http status 401: invalid key")
	})
	if _, err := WithRetry(base).Generate(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if _, ok := WithRetry(WithRetry(base)).(retryingClient); !ok {
		t.Fatalf("expected wrapping to be idempotent")
	}
}

func TestPlaceholderClient(t *testing.T) {
	if _, err := (PlaceholderClient{}).Generate(context.Background(), Request{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}
