package driven

import (
	"context"
	"time"
)

// JournalEntry is one recorded remote interaction: what was attempted,
// against which pipeline, and how it ended.
type JournalEntry struct {
	ID         string
	Operation  string
	PipelineID string
	StatusCode int
	Outcome    string
	Detail     string
	CreatedAt  time.Time
}

// OperationJournal is the driven port for the local audit trail. Every remote
// mutation (token acquire, create, trigger, delete, refresh) is recorded so an
// operator can reconstruct what the tool did to the remote tenant.
type OperationJournal interface {
	// Record appends an entry. The adapter assigns ID and CreatedAt when
	// they are zero.
	Record(ctx context.Context, entry JournalEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
}
