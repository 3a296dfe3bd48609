package documents

import "context"

// DocumentsRepo defines persistence operations for documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	GetCurrentByUser(ctx context.Context, userID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, userID, documentID string) error
	// ClaimGuest moves every document owned by guestUserID to userID and
	// returns how many moved.
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
	AnalysisSink
}

// AnalysisSink merges stage output into a stored document. Every method
// touches only its own field, so concurrent writers for different stages
// never erase each other. A successful stage write clears that stage's error.
type AnalysisSink interface {
	UpsertSummary(ctx context.Context, documentID string, summary Summary) error
	UpsertEntities(ctx context.Context, documentID string, entities Entities) error
	UpsertRisks(ctx context.Context, documentID string, risks Risks) error
	UpsertStageError(ctx context.Context, documentID, stage, message string) error
	// UpsertAnalysis writes all three results in one update and clears errors.
	UpsertAnalysis(ctx context.Context, documentID string, analysis Analysis) error
}

// Stage field names as stored under the analysis object.
const (
	FieldSummary  = "summary"
	FieldEntities = "entities"
	FieldRisks    = "risks"
)
