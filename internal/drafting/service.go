package drafting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/metrics"
	"lexease-backend/internal/shared/storage/object"
	"lexease-backend/internal/shared/telemetry"
)

// DraftRequest is the input for Draft.
type DraftRequest struct {
	DocumentType string `json:"documentType"`
	Language     string `json:"language"`
	UserInputs   string `json:"userInputs"`
}

// Service drafts documents from templates. Store and StorePrefix are optional;
// without a store only the catalog is used.
type Service struct {
	LLM         llm.Client
	Catalog     *Catalog
	Store       object.ObjectStore
	StorePrefix string
}

// Templates returns the catalog merged with store templates, sorted by file name.
func (s *Service) Templates(ctx context.Context) []Template {
	var catalog []Template
	if s.Catalog != nil {
		catalog = s.Catalog.Templates
	}
	if s.Store == nil || s.StorePrefix == "" {
		return merge(catalog, nil)
	}
	keys, err := s.Store.List(ctx, s.StorePrefix)
	if err != nil {
		telemetry.Warn("drafting.template_list_failed", map[string]any{
			"prefix": s.StorePrefix,
			"error":  err.Error(),
		})
		return merge(catalog, nil)
	}
	stored := make([]Template, 0, len(keys))
	for _, key := range keys {
		if t, ok := templateFromKey(s.StorePrefix, key); ok {
			stored = append(stored, t)
		}
	}
	return merge(catalog, stored)
}

// ListTemplates returns the unique template file names.
func (s *Service) ListTemplates(ctx context.Context) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, t := range s.Templates(ctx) {
		name := t.FileName()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve finds the template for documentType and language.
func (s *Service) Resolve(ctx context.Context, documentType, language string) (Template, error) {
	t, ok := resolve(s.Templates(ctx), documentType, language)
	if !ok {
		return Template{}, fmt.Errorf("%w: %s (%s)", ErrTemplateNotFound, documentType, language)
	}
	if t.Body == "" && t.Key != "" {
		body, err := object.ReadAll(ctx, s.Store, t.Key)
		if err != nil {
			return Template{}, fmt.Errorf("load template %s: %w", t.Key, err)
		}
		t.Body = string(body)
	}
	return t, nil
}

// Draft fills the resolved template with the user's details.
func (s *Service) Draft(ctx context.Context, req DraftRequest) (string, error) {
	req.DocumentType = strings.TrimSpace(req.DocumentType)
	req.Language = strings.TrimSpace(req.Language)
	if req.DocumentType == "" || req.Language == "" {
		return "", fmt.Errorf("%w: documentType and language are required", ErrValidation)
	}

	tmpl, err := s.Resolve(ctx, req.DocumentType, req.Language)
	if err != nil {
		return "", err
	}

	prompt, err := llm.RenderPrompt(llm.PromptDraft, map[string]string{
		"documentType": req.DocumentType,
		"language":     tmpl.Language,
		"template":     strings.TrimSpace(tmpl.Body),
		"details":      strings.TrimSpace(req.UserInputs),
	})
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := s.LLM.Generate(ctx, llm.Request{Task: "draft", Prompt: prompt})
	if err != nil {
		telemetry.Error("drafting.generate_failed", map[string]any{
			"document_type": req.DocumentType,
			"language":      tmpl.Language,
			"error":         err.Error(),
		})
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	draft := stripFences(out)
	if draft == "" {
		return "", fmt.Errorf("%w: empty draft", ErrGenerationFailed)
	}
	draft = finalizeDraft(draft, ParseDetails(req.UserInputs))

	metrics.IncDraftsGenerated()
	telemetry.Info("drafting.generated", map[string]any{
		"document_type": req.DocumentType,
		"template":      tmpl.FileName(),
		"language":      tmpl.Language,
		"duration_ms":   metrics.SinceMillis(start),
	})
	return draft, nil
}
