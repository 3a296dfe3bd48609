package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lexease-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-5", true},
		{"gpt-5-mini", true},
		{" GPT-5o ", true},
		{"gpt-4o-mini", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isGPT5(tt.model); got != tt.want {
			t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestGenerateSendsSystemJSONAndMedia(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"riskyClauses\":[]} "}}],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`))
	}))
	defer srv.Close()

	client, err := NewClient("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Generate(context.Background(), llm.Request{
		Task:   "risks",
		System: "be careful",
		Prompt: "flag risks",
		JSON:   true,
		Media:  []llm.Media{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"riskyClauses":[]}` {
		t.Fatalf("unexpected output %q", out)
	}

	if rf, _ := captured["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", captured["response_format"])
	}
	if captured["temperature"] != float64(0) {
		t.Fatalf("expected temperature 0, got %v", captured["temperature"])
	}
	messages := captured["messages"].([]any)
	if len(messages) != 2 || messages[0].(map[string]any)["role"] != "system" {
		t.Fatalf("unexpected messages %v", messages)
	}
	parts := messages[1].(map[string]any)["content"].([]any)
	image := parts[1].(map[string]any)
	if image["type"] != "image_url" || !strings.HasPrefix(image["image_url"].(map[string]any)["url"].(string), "data:image/png;base64,") {
		t.Fatalf("unexpected image part %v", image)
	}
}

func TestGenerateOmitsTemperatureAndFormatWhenNotNeeded(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"The rent is due monthly."}}]}`))
	}))
	defer srv.Close()

	client, _ := NewClient("sk-test", "gpt-5-mini", WithBaseURL(srv.URL))
	if _, err := client.Generate(context.Background(), llm.Request{Prompt: "q"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := raw["temperature"]; ok {
		t.Fatalf("gpt-5 requests must not set temperature")
	}
	if _, ok := raw["response_format"]; ok {
		t.Fatalf("text requests must not set response_format")
	}
	if content, ok := raw["messages"].([]any)[0].(map[string]any)["content"].(string); !ok || content != "q" {
		t.Fatalf("expected plain string content, got %v", raw["messages"])
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		retryable bool
	}{
		{name: "server error", status: 503, body: `{"error":{"message":"overloaded","type":"server_error"}}`, wantErr: "openai http status 503", retryable: true},
		{name: "bad request", status: 400, body: `not json`, wantErr: "openai http status 400"},
		{name: "no choices", status: 200, body: `{"choices":[]}`, wantErr: "missing choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, _ := NewClient("sk-test", "", WithBaseURL(srv.URL))
			_, err := client.Generate(context.Background(), llm.Request{Prompt: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
			if llm.ShouldRetry(err) != tt.retryable {
				t.Fatalf("retryable=%v for %v", !tt.retryable, err)
			}
		})
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	client, _ := NewClient("sk-test", "", WithBaseURL(srv.URL))
	if _, err := client.Generate(context.Background(), llm.Request{Prompt: "x"}); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(" ", "gpt-4o-mini"); err == nil {
		t.Fatalf("expected error without api key")
	}
}
