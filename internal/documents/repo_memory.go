package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]*Document
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs: make(map[string]*Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	doc.Analysis = cloneAnalysis(doc.Analysis)
	r.docs[doc.ID] = &doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	docs, err := r.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return Document{}, err
	}
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	return docs[0], nil
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var docs []Document
	for _, doc := range r.docs {
		if doc.UserID == userID {
			docs = append(docs, copyDoc(doc))
		}
	}
	r.mu.RUnlock()

	if offset >= len(docs) {
		return []Document{}, nil
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	delete(r.docs, documentID)
	return nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := 0
	for _, doc := range r.docs {
		if doc.UserID == guestUserID {
			doc.UserID = userID
			doc.UpdatedAt = r.now()
			moved++
		}
	}
	return moved, nil
}

func (r *MemoryRepo) UpsertSummary(ctx context.Context, documentID string, summary Summary) error {
	return r.update(ctx, documentID, func(a *Analysis) {
		a.Summary = &summary
		clearStageError(a, FieldSummary)
	})
}

func (r *MemoryRepo) UpsertEntities(ctx context.Context, documentID string, entities Entities) error {
	entities.Entities = append([]Entity{}, entities.Entities...)
	return r.update(ctx, documentID, func(a *Analysis) {
		a.Entities = &entities
		clearStageError(a, FieldEntities)
	})
}

func (r *MemoryRepo) UpsertRisks(ctx context.Context, documentID string, risks Risks) error {
	risks.RiskyClauses = append([]string{}, risks.RiskyClauses...)
	return r.update(ctx, documentID, func(a *Analysis) {
		a.Risks = &risks
		clearStageError(a, FieldRisks)
	})
}

func (r *MemoryRepo) UpsertStageError(ctx context.Context, documentID, stage, message string) error {
	return r.update(ctx, documentID, func(a *Analysis) {
		if a.Errors == nil {
			a.Errors = make(map[string]string)
		}
		a.Errors[stage] = message
	})
}

func (r *MemoryRepo) UpsertAnalysis(ctx context.Context, documentID string, analysis Analysis) error {
	next := cloneAnalysis(analysis)
	return r.update(ctx, documentID, func(a *Analysis) {
		a.Summary, a.Entities, a.Risks = next.Summary, next.Entities, next.Risks
		a.Errors = nil
	})
}

func (r *MemoryRepo) update(ctx context.Context, documentID string, fn func(*Analysis)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	fn(&doc.Analysis)
	doc.UpdatedAt = r.now()
	return nil
}

func clearStageError(a *Analysis, stage string) {
	delete(a.Errors, stage)
	if len(a.Errors) == 0 {
		a.Errors = nil
	}
}

func copyDoc(doc *Document) Document {
	out := *doc
	out.Analysis = cloneAnalysis(doc.Analysis)
	return out
}

func cloneAnalysis(a Analysis) Analysis {
	var out Analysis
	if a.Summary != nil {
		s := *a.Summary
		out.Summary = &s
	}
	if a.Entities != nil {
		e := Entities{Entities: append([]Entity{}, a.Entities.Entities...)}
		out.Entities = &e
	}
	if a.Risks != nil {
		rk := Risks{RiskyClauses: append([]string{}, a.Risks.RiskyClauses...)}
		out.Risks = &rk
	}
	if len(a.Errors) > 0 {
		out.Errors = make(map[string]string, len(a.Errors))
		for k, v := range a.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
