package featuredb

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/ironsheep/shapeid/internal/features"
)

// TextStore keeps entries in a plain-text file, one record per line.
//
// The file is read in full by Load and grown one record at a time by Append.
// Appends from several processes are serialised with an advisory lock on
// "<path>.lock"; loads take the same lock in shared mode.
//
// TextStore is safe for concurrent use by multiple goroutines: one flock
// handle is shared by the store, so file access within the process is
// serialised by fileMu before the lock is taken.
type TextStore struct {
	path   string
	lock   *flock.Flock
	logger *zap.Logger

	// fileMu guards lock and the file itself.
	fileMu sync.Mutex

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

// NewTextStore returns a store backed by the file at path. The file is not
// touched until Load or Append is called.
func NewTextStore(path string, logger *zap.Logger) *TextStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger.Named("featuredb"),
	}
}

// Path returns the database file path.
func (s *TextStore) Path() string { return s.path }

// Load replaces the in-memory entries with the file's contents.
//
// A missing or unreadable file yields a *NoFileError; a malformed record a
// *FormatError. On error the previous in-memory state is kept.
func (s *TextStore) Load() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return &NoFileError{Path: s.path, Err: err}
	}
	defer f.Close()

	if err := s.lock.RLock(); err != nil {
		s.logger.Warn("reading without shared lock", zap.String("path", s.path), zap.Error(err))
	} else {
		defer s.lock.Unlock()
	}

	entries, err := Decode(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.entries = entries
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("loaded feature database", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return nil
}

// Append writes one record to the end of the file, creating it if needed.
// If the store is loaded the entry is also added to the in-memory snapshot;
// otherwise the next Entries call reads it back from disk.
func (s *TextStore) Append(label string, v features.Vector) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if err := ValidateVector(v); err != nil {
		return err
	}
	e := Entry{Label: label, Features: v}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", s.path, err)
	}
	if err := Encode(f, e); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.loaded {
		s.entries = append(s.entries, e)
	}
	s.mu.Unlock()

	s.logger.Info("saved exemplar", zap.String("label", label), zap.String("path", s.path))
	return nil
}

// Entries returns a copy of the entries in file order.
func (s *TextStore) Entries() ([]Entry, error) {
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

// Close releases the lock handle.
func (s *TextStore) Close() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.lock.Close()
}
