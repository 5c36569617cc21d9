package classify

import (
	"errors"
	"fmt"
)

// Labels reported for outcomes that are not a stored class.
const (
	LabelNoFile  = "no db file"
	LabelEmpty   = "No data in db file"
	LabelUnknown = "Unknown"
)

var (
	// ErrDegenerateDatabase means every feature column has zero variance, so no
	// column can scale a distance.
	ErrDegenerateDatabase = errors.New("classify: every feature column has zero variance")

	// ErrInvalidK is returned for k < 1.
	ErrInvalidK = errors.New("classify: k must be at least 1")

	// ErrNoMatch means no entry had a comparable distance to the query, which
	// happens when the query or the database holds non-finite features.
	ErrNoMatch = errors.New("classify: no entry has a finite distance to the query")
)

// Status is the kind of outcome a classification produced.
type Status int

const (
	// Matched means Label is a stored class.
	Matched Status = iota

	// Unknown means the best class was rejected as too distant.
	Unknown

	// EmptyDatabase means the database holds no entries.
	EmptyDatabase

	// NoFile means the database could not be read.
	NoFile
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Unknown:
		return "unknown"
	case EmptyDatabase:
		return "empty_database"
	case NoFile:
		return "no_file"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one classification.
type Result struct {
	// Label is the predicted class, or one of LabelNoFile, LabelEmpty,
	// LabelUnknown.
	Label  string `json:"label"`
	Status Status `json:"status"`

	// Candidate is the best class before rejection. It equals Label when
	// Status is Matched.
	Candidate string `json:"candidate,omitempty"`

	// Distance is the winning squared scaled distance (1-NN) or the winning
	// label's summed distance (k-NN). Zero when no distance was computed.
	Distance float64 `json:"distance"`

	// Threshold is Distance divided by the sum of feature standard deviations
	// (k-NN only).
	Threshold float64 `json:"threshold,omitempty"`

	// Index is the database position of the nearest entry (1-NN), or -1.
	Index int `json:"index"`
}
