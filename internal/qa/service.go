package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/metrics"
	"lexease-backend/internal/shared/telemetry"
)

// DocumentGetter loads a document owned by userID.
type DocumentGetter interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
}

// Service answers questions about documents and general legal questions.
type Service struct {
	LLM      llm.Client
	Messages MessagesRepo
	Docs     DocumentGetter

	now func() time.Time
}

func NewService(client llm.Client, messages MessagesRepo, docs DocumentGetter) *Service {
	return &Service{LLM: client, Messages: messages, Docs: docs, now: time.Now}
}

// Ask answers question using only documentText. documentText may be a
// base64 data URI, in which case the decoded bytes are attached as media.
func (s *Service) Ask(ctx context.Context, documentText, question string) (string, error) {
	question, err := validateQuestion(question)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(documentText) == "" {
		return "", fmt.Errorf("%w: document text is empty", ErrValidation)
	}

	req := llm.Request{Task: "qa"}
	docVar := documentText
	if llm.IsDataURI(documentText) {
		media, err := llm.ParseDataURI(documentText)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		req.Media = []llm.Media{media}
		docVar = "(attached " + media.MIMEType + " file)"
	}
	prompt, err := llm.RenderPrompt(llm.PromptQA, map[string]string{
		"document": docVar,
		"question": question,
	})
	if err != nil {
		return "", err
	}
	req.Prompt = prompt
	return s.generate(ctx, req)
}

// AskGeneral answers a legal question with no document attached.
func (s *Service) AskGeneral(ctx context.Context, question string) (string, error) {
	question, err := validateQuestion(question)
	if err != nil {
		return "", err
	}
	prompt, err := llm.RenderPrompt(llm.PromptLegalQA, map[string]string{"question": question})
	if err != nil {
		return "", err
	}
	return s.generate(ctx, llm.Request{Task: "legal_qa", Prompt: prompt})
}

// AskDocument answers against a stored document and records the exchange in
// the document's conversation log. Nothing is recorded when generation fails.
func (s *Service) AskDocument(ctx context.Context, userID, documentID, question string) (Message, error) {
	doc, err := s.Docs.Get(ctx, userID, documentID)
	if err != nil {
		return Message{}, err
	}
	if !doc.HasText() {
		return Message{}, fmt.Errorf("%w: document has no extracted text", ErrValidation)
	}
	answer, err := s.Ask(ctx, doc.DocumentText, question)
	if err != nil {
		return Message{}, err
	}

	asked := s.clock()
	userMsg := Message{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Role:       RoleUser,
		Content:    strings.TrimSpace(question),
		CreatedAt:  asked,
	}
	reply := Message{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Role:       RoleAssistant,
		Content:    answer,
		CreatedAt:  s.clock(),
	}
	if err := s.Messages.Append(ctx, userMsg, reply); err != nil {
		telemetry.Error("qa.persist_failed", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return Message{}, fmt.Errorf("%w: append messages: %w", documents.ErrPersistence, err)
	}
	return reply, nil
}

// History returns the document's conversation, oldest first.
func (s *Service) History(ctx context.Context, userID, documentID string, limit int) ([]Message, error) {
	if _, err := s.Docs.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.Messages.ListByDocument(ctx, documentID, limit)
}

func (s *Service) generate(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	out, err := s.LLM.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return "", ErrNoAnswer
		}
		telemetry.Error("qa.generate_failed", map[string]any{"task": req.Task, "error": err.Error()})
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrNoAnswer
	}
	metrics.IncQuestionsAnswered()
	telemetry.Info("qa.answered", map[string]any{
		"task":        req.Task,
		"duration_ms": metrics.SinceMillis(start),
	})
	return out, nil
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func validateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("%w: question is required", ErrValidation)
	}
	if len(q) > maxQuestionLen {
		return "", fmt.Errorf("%w: question exceeds %d characters", ErrValidation, maxQuestionLen)
	}
	return q, nil
}
