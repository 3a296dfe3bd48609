package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/requestctx"
	"lexease-backend/internal/shared/telemetry"
)

// Stage is one of the three independent analysis operations.
type Stage string

const (
	StageSummary  Stage = documents.FieldSummary
	StageEntities Stage = documents.FieldEntities
	StageRisks    Stage = documents.FieldRisks
)

// Stages lists every stage in display order.
var Stages = []Stage{StageSummary, StageEntities, StageRisks}

var errInvalidOutput = errors.New("llm output invalid")

const (
	shapeSummary  = `{"plainLanguageSummary": "<summary>"}`
	shapeEntities = `{"entities": [{"type": "<type>", "value": "<value>"}]}`
	shapeRisks    = `{"riskyClauses": ["<clause>"]}`
)

func (s *Service) summarize(ctx context.Context, text string, role Role) (documents.Summary, error) {
	prompt, err := llm.RenderPrompt(llm.PromptSummary, map[string]string{
		"role":     role.String(),
		"audience": role.Audience(),
		"document": text,
	})
	if err != nil {
		return documents.Summary{}, err
	}
	var out documents.Summary
	if err := s.generateJSON(ctx, StageSummary, prompt, shapeSummary, &out); err != nil {
		return documents.Summary{}, err
	}
	out.PlainLanguageSummary = strings.TrimSpace(out.PlainLanguageSummary)
	if out.PlainLanguageSummary == "" {
		return documents.Summary{}, fmt.Errorf("%w: empty summary", errInvalidOutput)
	}
	return out, nil
}

func (s *Service) extractEntities(ctx context.Context, text string) (documents.Entities, error) {
	prompt, err := llm.RenderPrompt(llm.PromptEntities, map[string]string{"document": text})
	if err != nil {
		return documents.Entities{}, err
	}
	var raw documents.Entities
	if err := s.generateJSON(ctx, StageEntities, prompt, shapeEntities, &raw); err != nil {
		return documents.Entities{}, err
	}
	out := documents.Entities{Entities: make([]documents.Entity, 0, len(raw.Entities))}
	for _, e := range raw.Entities {
		value := strings.TrimSpace(e.Value)
		if value == "" {
			continue
		}
		out.Entities = append(out.Entities, documents.Entity{
			Type:  strings.ToLower(strings.TrimSpace(e.Type)),
			Value: value,
		})
	}
	return out, nil
}

func (s *Service) flagRisks(ctx context.Context, text string) (documents.Risks, error) {
	prompt, err := llm.RenderPrompt(llm.PromptRisks, map[string]string{"document": text})
	if err != nil {
		return documents.Risks{}, err
	}
	var raw documents.Risks
	if err := s.generateJSON(ctx, StageRisks, prompt, shapeRisks, &raw); err != nil {
		return documents.Risks{}, err
	}
	out := documents.Risks{RiskyClauses: make([]string, 0, len(raw.RiskyClauses))}
	for _, clause := range raw.RiskyClauses {
		if clause = strings.TrimSpace(clause); clause != "" {
			out.RiskyClauses = append(out.RiskyClauses, clause)
		}
	}
	return out, nil
}

// generateJSON asks for a JSON object and decodes it into out. An undecodable
// answer gets exactly one repair request.
func (s *Service) generateJSON(ctx context.Context, stage Stage, prompt, shape string, out any) error {
	raw, err := s.LLM.Generate(ctx, llm.Request{Task: string(stage), Prompt: prompt, JSON: true})
	if err != nil {
		return fmt.Errorf("llm %s: %w", stage, err)
	}
	decodeErr := llm.DecodeJSON(raw, out)
	if decodeErr == nil {
		return nil
	}

	telemetry.Warn("analysis.json_repair", map[string]any{
		"request_id": requestctx.RequestID(ctx),
		"stage":      string(stage),
		"error":      decodeErr,
	})
	fixPrompt, err := llm.RenderPrompt(llm.PromptFixJSON, map[string]string{"shape": shape, "raw": raw})
	if err != nil {
		return err
	}
	fixed, err := s.LLM.Generate(ctx, llm.Request{Task: string(stage) + ".fix_json", Prompt: fixPrompt, JSON: true})
	if err != nil {
		return fmt.Errorf("llm %s repair: %w", stage, err)
	}
	if err := llm.DecodeJSON(fixed, out); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}
