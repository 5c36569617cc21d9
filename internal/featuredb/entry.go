package featuredb

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/ironsheep/shapeid/internal/features"
)

var (
	// ErrNoFile matches any NoFileError via errors.Is.
	ErrNoFile = errors.New("no db file")

	// ErrInvalidLabel is returned for labels that cannot be stored as a single token.
	ErrInvalidLabel = errors.New("featuredb: label must be a non-empty token without whitespace")

	// ErrNonFiniteFeature is returned for vectors holding NaN or an infinity.
	ErrNonFiniteFeature = errors.New("featuredb: feature is not a finite number")

	// ErrNoEntries is returned by statistics that need at least one entry.
	ErrNoEntries = errors.New("featuredb: no entries")
)

// Entry is one labelled exemplar. Entries are never modified once written.
type Entry struct {
	Label    string          `json:"label"`
	Features features.Vector `json:"features"`
}

// NoFileError reports a database that is missing or cannot be read.
// Callers should treat it as "no prediction possible", not as a fatal error.
type NoFileError struct {
	Path string
	Err  error
}

func (e *NoFileError) Error() string {
	return fmt.Sprintf("no db file %s: %v", e.Path, e.Err)
}

func (e *NoFileError) Unwrap() error { return e.Err }

// Is reports true for ErrNoFile.
func (e *NoFileError) Is(target error) bool { return target == ErrNoFile }

// FormatError reports a malformed record. Record is 1-based.
type FormatError struct {
	Record int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("featuredb: record %d: %s", e.Record, e.Reason)
}

// ValidateLabel checks that label survives a whitespace-split round trip.
func ValidateLabel(label string) error {
	if label == "" || strings.IndexFunc(label, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

// ValidateVector rejects vectors that could not be decoded again or scaled.
func ValidateVector(v features.Vector) error {
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s = %v", ErrNonFiniteFeature, features.Names[i], f)
		}
	}
	return nil
}

// Store is an append-only, ordered collection of entries.
//
// Load (re)reads the whole backing store. Append adds one entry durably and
// never rewrites existing ones; it does not require a prior Load. Entries
// returns a snapshot in insertion order, loading first if nothing was loaded yet.
type Store interface {
	Load() error
	Append(label string, v features.Vector) error
	Entries() ([]Entry, error)
	Path() string
	Close() error
}
