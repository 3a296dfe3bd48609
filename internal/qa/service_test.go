package qa

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/telemetry"
)

type recordingLLM struct {
	mu     sync.Mutex
	reqs   []llm.Request
	answer string
	err    error
}

func (r *recordingLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return r.answer, r.err
}

func (r *recordingLLM) calls() []llm.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]llm.Request{}, r.reqs...)
}

type failingMessages struct{ MemoryRepo }

func (failingMessages) Append(context.Context, ...Message) error {
	return errors.New("connection refused")
}

const leaseText = "The tenant shall pay rent of Rs. 20,000 on the first day of each month."

func newFixture(t *testing.T, client llm.Client) (*Service, *MemoryRepo) {
	t.Helper()
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)

	repo := documents.NewMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), documents.Document{
		ID: "doc-1", UserID: "user-1", FileName: "lease.txt", DocumentText: leaseText, CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.Create(context.Background(), documents.Document{
		ID: "blank", UserID: "user-1", FileName: "scan.png", CreatedAt: time.Now(),
	}))
	messages := NewMemoryRepo()
	return NewService(client, messages, &documents.Service{Repo: repo}), messages
}

func TestAskRendersDocumentAndQuestion(t *testing.T) {
	client := &recordingLLM{answer: "  Rent is due on the first day of each month.  "}
	svc, _ := newFixture(t, client)

	answer, err := svc.Ask(context.Background(), leaseText, "When is rent due?")
	require.NoError(t, err)
	assert.Equal(t, "Rent is due on the first day of each month.", answer)

	calls := client.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, leaseText)
	assert.Contains(t, calls[0].Prompt, "When is rent due?")
	assert.Empty(t, calls[0].Media)
}

func TestAskAttachesDataURIAsMedia(t *testing.T) {
	client := &recordingLLM{answer: "It is a rental agreement."}
	svc, _ := newFixture(t, client)

	payload := []byte("%PDF-1.4 fake")
	uri := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(payload)
	_, err := svc.Ask(context.Background(), uri, "What kind of document is this?")
	require.NoError(t, err)

	calls := client.calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Media, 1)
	assert.Equal(t, "application/pdf", calls[0].Media[0].MIMEType)
	assert.Equal(t, payload, calls[0].Media[0].Data)
	assert.NotContains(t, calls[0].Prompt, "base64")
}

func TestAskValidation(t *testing.T) {
	client := &recordingLLM{answer: "unused"}
	svc, _ := newFixture(t, client)

	tests := []struct {
		name     string
		text     string
		question string
	}{
		{"empty question", leaseText, "   "},
		{"long question", leaseText, strings.Repeat("a", maxQuestionLen+1)},
		{"empty document", "", "Who pays?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ask(context.Background(), tt.text, tt.question)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, client.calls())
}

func TestAskEmptyAnswer(t *testing.T) {
	svc, _ := newFixture(t, &recordingLLM{answer: "   "})
	_, err := svc.Ask(context.Background(), leaseText, "Who pays?")
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestAskGeneralUsesLegalAssistantPrompt(t *testing.T) {
	client := &recordingLLM{answer: "Under the Indian Contract Act, 1872..."}
	svc, _ := newFixture(t, client)

	_, err := svc.AskGeneral(context.Background(), "Is an oral contract valid?")
	require.NoError(t, err)
	calls := client.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Lexy")
	assert.Contains(t, calls[0].Prompt, "Is an oral contract valid?")
}

func TestAskDocumentRecordsConversation(t *testing.T) {
	client := &recordingLLM{answer: "On the first day of each month."}
	svc, messages := newFixture(t, client)
	ctx := context.Background()

	reply, err := svc.AskDocument(ctx, "user-1", "doc-1", " When is rent due? ")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, reply.Role)

	history, err := svc.History(ctx, "user-1", "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "When is rent due?", history[0].Content)
	assert.Equal(t, "On the first day of each month.", history[1].Content)

	last, err := messages.ListByDocument(ctx, "doc-1", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, RoleAssistant, last[0].Role)
}

func TestAskDocumentFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign document", func(t *testing.T) {
		svc, _ := newFixture(t, &recordingLLM{answer: "x"})
		_, err := svc.AskDocument(ctx, "user-2", "doc-1", "Who pays?")
		assert.ErrorIs(t, err, documents.ErrNotFound)
		_, err = svc.History(ctx, "user-2", "doc-1", 0)
		assert.ErrorIs(t, err, documents.ErrNotFound)
	})

	t.Run("no text", func(t *testing.T) {
		client := &recordingLLM{answer: "x"}
		svc, _ := newFixture(t, client)
		_, err := svc.AskDocument(ctx, "user-1", "blank", "Who pays?")
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, client.calls())
	})

	t.Run("generation failure records nothing", func(t *testing.T) {
		svc, messages := newFixture(t, &recordingLLM{err: errors.New("http status 503")})
		_, err := svc.AskDocument(ctx, "user-1", "doc-1", "Who pays?")
		require.Error(t, err)
		history, err := messages.ListByDocument(ctx, "doc-1", 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("persistence failure", func(t *testing.T) {
		svc, _ := newFixture(t, &recordingLLM{answer: "Party A."})
		svc.Messages = &failingMessages{}
		_, err := svc.AskDocument(ctx, "user-1", "doc-1", "Who pays?")
		assert.ErrorIs(t, err, documents.ErrPersistence)
	})
}
