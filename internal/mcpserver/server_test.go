package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexease-backend/internal/analyses"
	"lexease-backend/internal/documents"
	"lexease-backend/internal/drafting"
	"lexease-backend/internal/shared/telemetry"
)

type stubAnalyzer struct {
	role analyses.Role
	err  error
}

func (s *stubAnalyzer) Analyze(_ context.Context, text string, role analyses.Role) (documents.Analysis, error) {
	s.role = role
	if s.err != nil {
		return documents.Analysis{}, s.err
	}
	return documents.Analysis{
		Summary:  &documents.Summary{PlainLanguageSummary: "Pay on time."},
		Entities: &documents.Entities{Entities: []documents.Entity{{Type: "Amount", Value: "$500"}}},
		Risks:    &documents.Risks{RiskyClauses: []string{}},
	}, nil
}

type stubAnswerer struct {
	lastDocument string
	err          error
}

func (s *stubAnswerer) Ask(_ context.Context, documentText, question string) (string, error) {
	s.lastDocument = documentText
	if s.err != nil {
		return "", s.err
	}
	return "doc answer: " + question, nil
}

func (s *stubAnswerer) AskGeneral(_ context.Context, question string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "general answer: " + question, nil
}

type stubDrafter struct {
	req       drafting.DraftRequest
	err       error
	templates []string
}

func (s *stubDrafter) Draft(_ context.Context, req drafting.DraftRequest) (string, error) {
	s.req = req
	if s.err != nil {
		return "", s.err
	}
	return "DRAFT for " + req.DocumentType, nil
}

func (s *stubDrafter) ListTemplates(context.Context) []string { return s.templates }

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func quietLogs(t *testing.T) {
	t.Helper()
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)
}

func TestNewRegistersServer(t *testing.T) {
	require.NotNil(t, New(Deps{}))
}

func TestAnalyzeTextReturnsAnalysisJSON(t *testing.T) {
	analyzer := &stubAnalyzer{}
	result, err := analyzeText(Deps{Analyzer: analyzer})(context.Background(), callTool("analyze_text", map[string]any{
		"text": "Party A shall pay Party B $500.",
		"role": "lawyer",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, analyses.RoleLawyer, analyzer.role)

	var body documents.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	require.NotNil(t, body.Summary)
	assert.Equal(t, "Pay on time.", body.Summary.PlainLanguageSummary)
	assert.Equal(t, documents.StageDone, body.Stages[documents.FieldRisks])
}

func TestAnalyzeTextDefaultsRole(t *testing.T) {
	analyzer := &stubAnalyzer{}
	result, err := analyzeText(Deps{Analyzer: analyzer})(context.Background(), callTool("analyze_text", map[string]any{
		"text": "Some clause.",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, analyses.DefaultRole, analyzer.role)
}

func TestAnalyzeTextRejectsBadInput(t *testing.T) {
	handler := analyzeText(Deps{Analyzer: &stubAnalyzer{}})

	result, err := handler(context.Background(), callTool("analyze_text", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "text is required", resultText(t, result))

	result, err = handler(context.Background(), callTool("analyze_text", map[string]any{"text": "x", "role": "judge"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown role")
}

func TestAnalyzeTextSurfacesFailures(t *testing.T) {
	quietLogs(t)
	handler := analyzeText(Deps{Analyzer: &stubAnalyzer{err: fmt.Errorf("%w: document text is empty", analyses.ErrValidation)}})
	result, err := handler(context.Background(), callTool("analyze_text", map[string]any{"text": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "document text is empty")

	handler = analyzeText(Deps{Analyzer: &stubAnalyzer{err: errors.New("upstream timeout")}})
	result, err = handler(context.Background(), callTool("analyze_text", map[string]any{"text": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "analyze_text failed: upstream timeout", resultText(t, result))
}

func TestAskDocumentAndLegalQuestion(t *testing.T) {
	answerer := &stubAnswerer{}
	deps := Deps{QA: answerer}

	result, err := askDocument(deps)(context.Background(), callTool("ask_document", map[string]any{
		"document_text": "The lease ends in May.",
		"question":      "When does it end?",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "doc answer: When does it end?", resultText(t, result))
	assert.Equal(t, "The lease ends in May.", answerer.lastDocument)

	result, err = legalQuestion(deps)(context.Background(), callTool("legal_question", map[string]any{
		"question": "What is an affidavit?",
	}))
	require.NoError(t, err)
	assert.Equal(t, "general answer: What is an affidavit?", resultText(t, result))

	result, err = askDocument(deps)(context.Background(), callTool("ask_document", map[string]any{
		"document_text": "text only",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "question is required", resultText(t, result))
}

func TestDraftDocumentPassesRequest(t *testing.T) {
	drafter := &stubDrafter{}
	result, err := draftDocument(Deps{Drafter: drafter})(context.Background(), callTool("draft_document", map[string]any{
		"document_type": "affidavit",
		"language":      "hi",
		"details":       "Name: Jane Doe, Age: 30",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "DRAFT for affidavit", resultText(t, result))
	assert.Equal(t, drafting.DraftRequest{DocumentType: "affidavit", Language: "hi", UserInputs: "Name: Jane Doe, Age: 30"}, drafter.req)
}

func TestDraftDocumentTemplateNotFound(t *testing.T) {
	drafter := &stubDrafter{err: fmt.Errorf("%w: lease (en)", drafting.ErrTemplateNotFound)}
	result, err := draftDocument(Deps{Drafter: drafter})(context.Background(), callTool("draft_document", map[string]any{
		"document_type": "lease",
		"details":       "Name: X",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "lease (en)")
}

func TestListTemplates(t *testing.T) {
	result, err := listTemplates(Deps{Drafter: &stubDrafter{templates: []string{"Affidavit.txt", "NDA.txt"}}})(context.Background(), callTool("list_templates", nil))
	require.NoError(t, err)
	assert.Equal(t, "Affidavit.txt\nNDA.txt", resultText(t, result))

	result, err = listTemplates(Deps{Drafter: &stubDrafter{}})(context.Background(), callTool("list_templates", nil))
	require.NoError(t, err)
	assert.Equal(t, "No templates available.", resultText(t, result))
}

func TestToolsWithoutDependencies(t *testing.T) {
	deps := Deps{}
	cases := []struct {
		name string
		call func() (*mcp.CallToolResult, error)
	}{
		{"analyze_text", func() (*mcp.CallToolResult, error) {
			return analyzeText(deps)(context.Background(), callTool("analyze_text", map[string]any{"text": "x"}))
		}},
		{"ask_document", func() (*mcp.CallToolResult, error) {
			return askDocument(deps)(context.Background(), callTool("ask_document", map[string]any{"document_text": "x", "question": "y"}))
		}},
		{"draft_document", func() (*mcp.CallToolResult, error) {
			return draftDocument(deps)(context.Background(), callTool("draft_document", map[string]any{"document_type": "x", "details": "y"}))
		}},
		{"list_templates", func() (*mcp.CallToolResult, error) {
			return listTemplates(deps)(context.Background(), callTool("list_templates", nil))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := tc.call()
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), "not configured")
		})
	}
}
