package qa

import "context"

// MessagesRepo is an append-only log of conversation messages.
type MessagesRepo interface {
	Append(ctx context.Context, msgs ...Message) error
	// ListByDocument returns messages oldest first. limit <= 0 returns all.
	ListByDocument(ctx context.Context, documentID string, limit int) ([]Message, error)
}
