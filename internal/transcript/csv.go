package transcript

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVStore persists transcript rows in a flat CSV file, one row per session.
// The whole-table read-merge-write runs under a single mutex so concurrent
// upserts for different sessions cannot clobber each other.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore opens (or bootstraps) the transcript file at path. A missing or
// empty file is initialized with only the header row.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create logs directory: %w", err)
	}

	store := &CSVStore{path: path}
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureHeader(); err != nil {
		return nil, err
	}
	return store, nil
}

// Upsert replaces the row for row.SessionID, preserving every other row and
// the original row order. New sessions append at the end.
func (s *CSVStore) Upsert(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureHeader(); err != nil {
		return err
	}

	records, err := s.readAll()
	if err != nil {
		return err
	}

	replaced := false
	for i, record := range records {
		if len(record) > 0 && record[0] == row.SessionID {
			records[i] = row.Record()
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, row.Record())
	}

	return s.writeAll(records)
}

// Close is a no-op; the file is opened per operation.
func (s *CSVStore) Close() error { return nil }

// ensureHeader initializes the file with the header row when it is missing or
// empty. Caller must hold the mutex.
func (s *CSVStore) ensureHeader() error {
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("transcript: stat %s: %w", s.path, err)
	}
	return s.writeAll(nil)
}

// readAll returns all data records (header excluded), padded to the full
// column set so partially written rows stay well-formed.
func (s *CSVStore) readAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("transcript: read %s: %w", s.path, err)
	}
	if len(all) <= 1 {
		return nil, nil
	}

	width := len(Header())
	records := make([][]string, 0, len(all)-1)
	for _, record := range all[1:] {
		if len(record) == 0 || record[0] == "" {
			continue
		}
		for len(record) < width {
			record = append(record, "")
		}
		records = append(records, record[:width])
	}
	return records, nil
}

// writeAll rewrites the file atomically via a temp file rename.
func (s *CSVStore) writeAll(records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".transcript-*.csv")
	if err != nil {
		return fmt.Errorf("transcript: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(Header()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("transcript: write header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("transcript: write record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("transcript: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("transcript: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("transcript: replace %s: %w", s.path, err)
	}
	return nil
}
