package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements DocumentsRepo using Postgres. Analysis lives in a single
// JSONB column and every stage writes its own path with jsonb_set.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, file_name, mime_type, size_bytes, storage_key, document_text, analysis, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, user_id, file_name, mime_type, size_bytes, storage_key, document_text, analysis, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, '{}'::jsonb, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.DocumentText,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert document: %w", ErrPersistence, err)
	}
	return nil
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, userID, documentID))
}

// GetCurrentByUser returns the latest document for a user.
func (r *PGRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, userID))
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes a document owned by userID. Messages cascade.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string) error {
	const query = `DELETE FROM documents WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return fmt.Errorf("%w: delete document: %w", ErrPersistence, err)
	}
	return requireRow(res)
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	const query = `UPDATE documents SET user_id = $1, updated_at = now() WHERE user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, guestUserID)
	if err != nil {
		return 0, fmt.Errorf("%w: claim guest documents: %w", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: claim guest documents: %w", ErrPersistence, err)
	}
	return int(n), nil
}

func (r *PGRepo) UpsertSummary(ctx context.Context, documentID string, summary Summary) error {
	return r.upsertField(ctx, documentID, FieldSummary, summary)
}

func (r *PGRepo) UpsertEntities(ctx context.Context, documentID string, entities Entities) error {
	if entities.Entities == nil {
		entities.Entities = []Entity{}
	}
	return r.upsertField(ctx, documentID, FieldEntities, entities)
}

func (r *PGRepo) UpsertRisks(ctx context.Context, documentID string, risks Risks) error {
	if risks.RiskyClauses == nil {
		risks.RiskyClauses = []string{}
	}
	return r.upsertField(ctx, documentID, FieldRisks, risks)
}

// upsertField replaces analysis.<field> and drops analysis.errors.<field>,
// leaving sibling paths untouched.
func (r *PGRepo) upsertField(ctx context.Context, documentID, field string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", field, err)
	}
	const query = `
UPDATE documents
SET analysis = jsonb_set(COALESCE(analysis, '{}'::jsonb) #- ARRAY['errors', $2::text], ARRAY[$2::text], $3::jsonb, true),
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID, field, string(payload))
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", ErrPersistence, field, err)
	}
	return requireRow(res)
}

func (r *PGRepo) UpsertStageError(ctx context.Context, documentID, stage, message string) error {
	const query = `
UPDATE documents
SET analysis = jsonb_set(
        jsonb_set(COALESCE(analysis, '{}'::jsonb), '{errors}', COALESCE(analysis->'errors', '{}'::jsonb), true),
        ARRAY['errors', $2::text], to_jsonb($3::text), true),
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID, stage, message)
	if err != nil {
		return fmt.Errorf("%w: upsert %s error: %w", ErrPersistence, stage, err)
	}
	return requireRow(res)
}

func (r *PGRepo) UpsertAnalysis(ctx context.Context, documentID string, analysis Analysis) error {
	analysis.Errors = nil
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	const query = `
UPDATE documents
SET analysis = (COALESCE(analysis, '{}'::jsonb) - 'errors') || $2::jsonb,
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID, string(payload))
	if err != nil {
		return fmt.Errorf("%w: upsert analysis: %w", ErrPersistence, err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var analysisRaw []byte
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&doc.DocumentText,
		&analysisRaw,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if len(analysisRaw) > 0 {
		if err := json.Unmarshal(analysisRaw, &doc.Analysis); err != nil {
			return Document{}, fmt.Errorf("decode analysis for %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", ErrPersistence, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
