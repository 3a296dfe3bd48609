// Package mcpserver exposes the analysis, question answering and drafting
// services as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"lexease-backend/internal/analyses"
	"lexease-backend/internal/documents"
	"lexease-backend/internal/drafting"
	"lexease-backend/internal/qa"
	"lexease-backend/internal/shared/telemetry"
)

// Analyzer runs the three analysis stages over raw text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, role analyses.Role) (documents.Analysis, error)
}

// Answerer answers questions with and without a document.
type Answerer interface {
	Ask(ctx context.Context, documentText, question string) (string, error)
	AskGeneral(ctx context.Context, question string) (string, error)
}

// Drafter produces documents from the template catalog.
type Drafter interface {
	Draft(ctx context.Context, req drafting.DraftRequest) (string, error)
	ListTemplates(ctx context.Context) []string
}

// Deps holds the services backing the tools. A nil dependency leaves its
// tools registered but failing with an error result.
type Deps struct {
	Analyzer Analyzer
	QA       Answerer
	Drafter  Drafter
	Version  string
}

// New builds an MCP server with every LexEase tool registered.
func New(deps Deps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "1.0.0"
	}
	s := server.NewMCPServer(
		"lexease",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("LexEase: plain-language analysis, Q&A and drafting for legal documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_text",
			mcp.WithDescription("Summarize a legal document, extract its entities and flag risky clauses."),
			mcp.WithString("text", mcp.Description("Full document text"), mcp.Required()),
			mcp.WithString("role", mcp.Description("Audience: layperson, lawStudent or lawyer (default layperson)")),
		),
		analyzeText(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_document",
			mcp.WithDescription("Answer a question using only the supplied document text."),
			mcp.WithString("document_text", mcp.Description("Document text or a base64 data URI"), mcp.Required()),
			mcp.WithString("question", mcp.Description("Question about the document"), mcp.Required()),
		),
		askDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("legal_question",
			mcp.WithDescription("Answer a general legal question without a document."),
			mcp.WithString("question", mcp.Description("The question"), mcp.Required()),
		),
		legalQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("draft_document",
			mcp.WithDescription("Fill a legal template with the supplied details."),
			mcp.WithString("document_type", mcp.Description("Document type, e.g. affidavit or agreement"), mcp.Required()),
			mcp.WithString("language", mcp.Description("Language: en, hi or mr (default en)")),
			mcp.WithString("details", mcp.Description("Details as 'Key: value' pairs separated by commas or newlines"), mcp.Required()),
		),
		draftDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("list_templates",
			mcp.WithDescription("List the available drafting templates."),
		),
		listTemplates(deps),
	)

	return s
}

func analyzeText(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Analyzer == nil {
			return toolError("analysis is not configured"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return toolError("text is required"), nil
		}
		role, err := analyses.ParseRole(req.GetString("role", ""))
		if err != nil {
			return toolError(err.Error()), nil
		}

		analysis, err := deps.Analyzer.Analyze(ctx, text, role)
		if err != nil {
			return toolFailure("analyze_text", err), nil
		}
		b, err := json.Marshal(documents.ToAnalysisResponse(analysis))
		if err != nil {
			return toolError(fmt.Sprintf("failed to marshal analysis: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func askDocument(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.QA == nil {
			return toolError("question answering is not configured"), nil
		}
		text, err := req.RequireString("document_text")
		if err != nil {
			return toolError("document_text is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return toolError("question is required"), nil
		}
		answer, err := deps.QA.Ask(ctx, text, question)
		if err != nil {
			return toolFailure("ask_document", err), nil
		}
		return toolText(answer), nil
	}
}

func legalQuestion(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.QA == nil {
			return toolError("question answering is not configured"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return toolError("question is required"), nil
		}
		answer, err := deps.QA.AskGeneral(ctx, question)
		if err != nil {
			return toolFailure("legal_question", err), nil
		}
		return toolText(answer), nil
	}
}

func draftDocument(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Drafter == nil {
			return toolError("drafting is not configured"), nil
		}
		docType, err := req.RequireString("document_type")
		if err != nil {
			return toolError("document_type is required"), nil
		}
		details, err := req.RequireString("details")
		if err != nil {
			return toolError("details is required"), nil
		}
		draft, err := deps.Drafter.Draft(ctx, drafting.DraftRequest{
			DocumentType: docType,
			Language:     req.GetString("language", ""),
			UserInputs:   details,
		})
		if err != nil {
			return toolFailure("draft_document", err), nil
		}
		return toolText(draft), nil
	}
}

func listTemplates(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Drafter == nil {
			return toolError("drafting is not configured"), nil
		}
		names := deps.Drafter.ListTemplates(ctx)
		if len(names) == 0 {
			return toolText("No templates available."), nil
		}
		return toolText(strings.Join(names, "\n")), nil
	}
}

// toolFailure maps service errors onto a tool error result. Validation
// messages are passed through; anything else is logged and summarized.
func toolFailure(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, analyses.ErrValidation),
		errors.Is(err, qa.ErrValidation),
		errors.Is(err, drafting.ErrValidation),
		errors.Is(err, drafting.ErrTemplateNotFound):
		return toolError(err.Error())
	}
	telemetry.Warn("mcp.tool_failed", map[string]any{"tool": tool, "error": err})
	return toolError(fmt.Sprintf("%s failed: %v", tool, err))
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
