package transcript

import "context"

// Store is the single writer of the durable transcript record. Upsert must be
// atomic per session under concurrent callers: rewriting one session's row
// never loses rows written for other sessions.
type Store interface {
	// Upsert replaces the stored row for row.SessionID, creating it when
	// absent. Rows for other sessions are preserved unchanged.
	Upsert(ctx context.Context, row Row) error

	Close() error
}
