package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OperationJournal = (*JournalRepo)(nil)

// JournalRepo is the SQLite implementation of the OperationJournal port.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a JournalRepo over db.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Record appends an entry, assigning ID and CreatedAt when unset.
func (r *JournalRepo) Record(ctx context.Context, entry driven.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO journal (id, operation, pipeline_id, status_code, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.ID,
		entry.Operation,
		entry.PipelineID,
		entry.StatusCode,
		entry.Outcome,
		entry.Detail,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record journal entry %q: %w", entry.Operation, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]driven.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `SELECT id, operation, pipeline_id, status_code, outcome, detail, created_at
		FROM journal ORDER BY created_at DESC, id LIMIT ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []driven.JournalEntry
	for rows.Next() {
		var e driven.JournalEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Operation, &e.PipelineID, &e.StatusCode, &e.Outcome, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for entry %q: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}

	return entries, nil
}

// parseTime accepts the timestamp formats SQLite hands back depending on how
// the value was written.
func parseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
