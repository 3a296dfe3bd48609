package qa

import (
	"context"
	"sync"
)

// MemoryRepo keeps messages in insertion order per document.
type MemoryRepo struct {
	mu   sync.RWMutex
	logs map[string][]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{logs: make(map[string][]Message)}
}

func (r *MemoryRepo) Append(ctx context.Context, msgs ...Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.logs[m.DocumentID] = append(r.logs[m.DocumentID], m)
	}
	return nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	log := r.logs[documentID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return append([]Message{}, log...), nil
}

var _ MessagesRepo = (*MemoryRepo)(nil)
