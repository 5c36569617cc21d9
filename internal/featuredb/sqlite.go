package featuredb

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ironsheep/shapeid/internal/features"
)

const createEntriesSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL,
	f0 REAL NOT NULL, f1 REAL NOT NULL, f2 REAL NOT NULL,
	f3 REAL NOT NULL, f4 REAL NOT NULL, f5 REAL NOT NULL,
	f6 REAL NOT NULL, f7 REAL NOT NULL, f8 REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_label ON entries(label);`

// SQLiteStore keeps entries in an SQLite table ordered by insertion id.
// The table is only ever inserted into. SQLite's own locking covers
// concurrent writers in other processes.
type SQLiteStore struct {
	path   string
	db     *sql.DB
	logger *zap.Logger

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

// OpenSQLite opens (creating if necessary) the database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &NoFileError{Path: path, Err: err}
	}
	if _, err := db.Exec(createEntriesSQL); err != nil {
		db.Close()
		return nil, &NoFileError{Path: path, Err: err}
	}
	return &SQLiteStore{
		path:   path,
		db:     db,
		logger: logger.Named("featuredb"),
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func featureColumns() string {
	cols := make([]string, features.Size)
	for i := range cols {
		cols[i] = fmt.Sprintf("f%d", i)
	}
	return strings.Join(cols, ", ")
}

// Load reads every row in id order.
func (s *SQLiteStore) Load() error {
	rows, err := s.db.Query("SELECT label, " + featureColumns() + " FROM entries ORDER BY id")
	if err != nil {
		return &NoFileError{Path: s.path, Err: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		dest := []interface{}{&e.Label}
		for i := range e.Features {
			dest = append(dest, &e.Features[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return &FormatError{Record: len(entries) + 1, Reason: err.Error()}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.entries = entries
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("loaded feature database", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return nil
}

// Append inserts one row.
func (s *SQLiteStore) Append(label string, v features.Vector) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if err := ValidateVector(v); err != nil {
		return err
	}

	args := []interface{}{label}
	for _, f := range v {
		args = append(args, f)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", features.Size+1), ", ")
	query := "INSERT INTO entries (label, " + featureColumns() + ") VALUES (" + placeholders + ")"
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.loaded {
		s.entries = append(s.entries, Entry{Label: label, Features: v})
	}
	s.mu.Unlock()

	s.logger.Info("saved exemplar", zap.String("label", label), zap.String("path", s.path))
	return nil
}

// Entries returns a copy of the entries in insertion order.
func (s *SQLiteStore) Entries() ([]Entry, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...), nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
