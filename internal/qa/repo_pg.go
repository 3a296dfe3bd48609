package qa

import (
	"context"
	"database/sql"
	"fmt"
)

// PGRepo stores messages in document_messages. seq preserves insertion order
// for messages created within the same timestamp.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append messages: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO document_messages (id, document_id, role, content, created_at)
VALUES ($1, $2, $3, $4, $5)`
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx, query, m.ID, m.DocumentID, m.Role, m.Content, m.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string, limit int) ([]Message, error) {
	query := `
SELECT id, document_id, role, content, created_at FROM (
    SELECT id, document_id, role, content, created_at, seq
    FROM document_messages
    WHERE document_id = $1
    ORDER BY seq DESC
    LIMIT $2
) recent
ORDER BY seq ASC`
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.DB.QueryContext(ctx, query, documentID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ MessagesRepo = (*PGRepo)(nil)
