package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// A single writer keeps SQLite happy under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSearch inserts a saved search, assigning its ID and timestamps.
func (s *SQLiteStore) CreateSearch(search *SavedSearch) error {
	if search.ID == "" {
		search.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	search.CreatedAt = now
	search.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO saved_searches
			(id, name, tool_group, method, alleles, length_min, length_max, sequence_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		search.ID, search.Name, search.ToolGroup, search.Method, search.Alleles,
		search.LengthMin, search.LengthMax, search.SequenceText, search.CreatedAt, search.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create saved search: %w", err)
	}
	return nil
}

// GetSearch retrieves a saved search by ID.
func (s *SQLiteStore) GetSearch(id string) (*SavedSearch, error) {
	row := s.db.QueryRow(`
		SELECT id, name, tool_group, method, alleles, length_min, length_max, sequence_text, created_at, updated_at
		FROM saved_searches WHERE id = ?`, id)
	search, err := scanSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saved search %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	return search, nil
}

// ListSearches returns all saved searches, most recently updated first.
func (s *SQLiteStore) ListSearches() ([]*SavedSearch, error) {
	rows, err := s.db.Query(`
		SELECT id, name, tool_group, method, alleles, length_min, length_max, sequence_text, created_at, updated_at
		FROM saved_searches ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*SavedSearch
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %w", err)
		}
		out = append(out, search)
	}
	return out, rows.Err()
}

// UpdateSearch rewrites a saved search and bumps its updated timestamp.
func (s *SQLiteStore) UpdateSearch(search *SavedSearch) error {
	search.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE saved_searches
		SET name = ?, tool_group = ?, method = ?, alleles = ?, length_min = ?, length_max = ?, sequence_text = ?, updated_at = ?
		WHERE id = ?`,
		search.Name, search.ToolGroup, search.Method, search.Alleles,
		search.LengthMin, search.LengthMax, search.SequenceText, search.UpdatedAt, search.ID)
	if err != nil {
		return fmt.Errorf("failed to update saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saved search %s: %w", search.ID, ErrNotFound)
	}
	return nil
}

// DeleteSearch removes a saved search.
func (s *SQLiteStore) DeleteSearch(id string) error {
	res, err := s.db.Exec(`DELETE FROM saved_searches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saved search %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRun inserts a run history entry, assigning ID and submission time.
func (s *SQLiteStore) RecordRun(r *RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs
			(id, result_id, title, tool_group, method, alleles, seq_length, status, error, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ResultID, r.Title, r.ToolGroup, r.Method, r.Alleles,
		r.SeqLength, r.Status, r.Error, r.SubmittedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// CompleteRun marks a run terminal with the given status and error text.
func (s *SQLiteStore) CompleteRun(id, status, errMsg string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, errMsg, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (s *SQLiteStore) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, result_id, title, tool_group, method, alleles, seq_length, status, error, submitted_at, completed_at
		FROM runs ORDER BY submitted_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.ResultID, &r.Title, &r.ToolGroup, &r.Method,
			&r.Alleles, &r.SeqLength, &r.Status, &r.Error, &r.SubmittedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSearch(row scannable) (*SavedSearch, error) {
	var s SavedSearch
	err := row.Scan(&s.ID, &s.Name, &s.ToolGroup, &s.Method, &s.Alleles,
		&s.LengthMin, &s.LengthMax, &s.SequenceText, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
