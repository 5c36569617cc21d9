package featuredb

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSQLiteStore_AppendThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	s, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries on a new database: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("new database has %d entries", len(entries))
	}

	want := []Entry{
		{Label: "square", Features: sampleVector(0)},
		{Label: "circle", Features: sampleVector(1)},
		{Label: "square", Features: sampleVector(2)},
	}
	for _, e := range want {
		if err := s.Append(e.Label, e.Features); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// The loaded snapshot tracks appends.
	got, err := s.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// A second handle reads the same rows in insertion order.
	other, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if err := other.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err = other.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reloaded mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_InvalidLabel(t *testing.T) {
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "db.sqlite"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Append("has space", sampleVector(0)); !errors.Is(err, ErrInvalidLabel) {
		t.Errorf("got %v, want ErrInvalidLabel", err)
	}

	v := sampleVector(0)
	v[0] = math.NaN()
	if err := s.Append("ok", v); !errors.Is(err, ErrNonFiniteFeature) {
		t.Errorf("got %v, want ErrNonFiniteFeature", err)
	}
}
