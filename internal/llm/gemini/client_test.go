package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"lexease-backend/internal/llm"
)

func TestBuildPartsIncludesMediaBlobs(t *testing.T) {
	parts := buildParts(llm.Request{
		Prompt: "Extract the text",
		Media:  []llm.Media{{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
	})
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if text, ok := parts[0].(genai.Text); !ok || string(text) != "Extract the text" {
		t.Fatalf("unexpected text part %#v", parts[0])
	}
	blob, ok := parts[1].(genai.Blob)
	if !ok || blob.MIMEType != "image/jpeg" || len(blob.Data) != 2 {
		t.Fatalf("unexpected blob part %#v", parts[1])
	}
}

func TestConfigureModel(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureModel(model, llm.Request{System: "You are Lexy", JSON: true})
	if model.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response mime type, got %q", model.ResponseMIMEType)
	}
	if model.SystemInstruction == nil || len(model.SystemInstruction.Parts) != 1 {
		t.Fatalf("expected system instruction")
	}
	if model.Temperature == nil || *model.Temperature != 0 {
		t.Fatalf("expected temperature 0")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("{\"summary\":"), genai.Text("\"ok\"}")}},
		}},
	}
	if got := responseText(resp); got != `{"summary":"ok"}` {
		t.Fatalf("unexpected text %q", got)
	}
	if responseText(&genai.GenerateContentResponse{}) != "" {
		t.Fatalf("expected empty text without candidates")
	}
	if responseText(nil) != "" {
		t.Fatalf("expected empty text for nil response")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
