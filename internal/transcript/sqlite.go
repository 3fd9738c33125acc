package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the alternative transcript backend for deployments that
// outgrow the flat CSV file. Per-key atomicity comes from the database's
// upsert instead of a whole-table rewrite.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the transcript database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		session_id TEXT PRIMARY KEY,
		user_turns TEXT NOT NULL,
		assistant_turns TEXT NOT NULL,
		call_scheduled INTEGER NOT NULL,
		rating INTEGER NOT NULL,
		feedback TEXT NOT NULL,
		complete INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or replaces the row for row.SessionID.
func (s *SQLiteStore) Upsert(ctx context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userTurns, err := json.Marshal(row.UserTurns)
	if err != nil {
		return fmt.Errorf("transcript: marshal user turns: %w", err)
	}
	assistantTurns, err := json.Marshal(row.AssistantTurns)
	if err != nil {
		return fmt.Errorf("transcript: marshal assistant turns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcripts (session_id, user_turns, assistant_turns, call_scheduled, rating, feedback, complete, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			user_turns = excluded.user_turns,
			assistant_turns = excluded.assistant_turns,
			call_scheduled = excluded.call_scheduled,
			rating = excluded.rating,
			feedback = excluded.feedback,
			complete = excluded.complete,
			updated_at = CURRENT_TIMESTAMP`,
		row.SessionID, string(userTurns), string(assistantTurns),
		boolInt(row.CallScheduled), row.Rating, flatten(row.Feedback), boolInt(row.Complete),
	)
	if err != nil {
		return fmt.Errorf("transcript: upsert %s: %w", row.SessionID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
