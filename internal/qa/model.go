package qa

import (
	"errors"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a document's conversation log.
type Message struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

var (
	ErrValidation = errors.New("validation error")
	// ErrNoAnswer means the model produced no usable text.
	ErrNoAnswer = errors.New("no answer generated")
)

const maxQuestionLen = 4000
