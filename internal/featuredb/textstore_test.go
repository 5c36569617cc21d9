package featuredb

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/shapeid/internal/features"
)

func sampleVector(seed float64) features.Vector {
	return features.Vector{
		92.5 + seed, 1.25 + seed/10,
		0.1667 + seed/100, 1.2e-5, 3.4e-9, -7.1e-10, 2.2e-19, -1.5e-13, 6.6e-19,
	}
}

func TestDecode(t *testing.T) {
	input := "" +
		"100 1 0.166 0 0 0 0 0 0 square \n" +
		"\n" +
		"78.5 1.01 0.159 1e-05 0 0 0 0 0 circle \n"

	entries, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].Label != "square" || entries[1].Label != "circle" {
		t.Errorf("labels: got %q, %q", entries[0].Label, entries[1].Label)
	}
	if entries[1].Features[0] != 78.5 || entries[1].Features[3] != 1e-5 {
		t.Errorf("features: got %v", entries[1].Features)
	}
}

func TestDecode_FormatErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantRecord int
	}{
		{"too few fields", "1 2 3 4 5 6 7 8 9 ok \n1 2 3 short \n", 2},
		{"too many fields", "1 2 3 4 5 6 7 8 9 two words \n", 1},
		{"label missing", "1 2 3 4 5 6 7 8 9 \n", 1},
		{"bad number", "\n1 2 x 4 5 6 7 8 9 bad \n", 2},
		{"NaN", "1 2 3 4 5 6 7 8 9 ok \nNaN 3 4 5 6 7 8 9 10 circle \n", 2},
		{"infinity", "1 2 3 4 5 6 7 8 +Inf inf \n", 1},
		{"spelled infinity", "1 2 3 -Infinity 5 6 7 8 9 neg \n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("got %v, want *FormatError", err)
			}
			if fe.Record != tt.wantRecord {
				t.Errorf("Record: got %d, want %d", fe.Record, tt.wantRecord)
			}
		})
	}
}

func TestEncode_Layout(t *testing.T) {
	var b strings.Builder
	err := Encode(&b, Entry{Label: "key", Features: features.Vector{1, 2, 0.5, 0, 0, 0, 0, 0, -1e-20}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := "1 2 0.5 0 0 0 0 0 -1e-20 key \n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestTextStore_AppendThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.txt")
	s := NewTextStore(path, nil)
	defer s.Close()

	v := sampleVector(0)
	if err := s.Append("square", sampleVector(3)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append("circle", v); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reader := NewTextStore(path, nil)
	defer reader.Close()
	if err := reader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entries, err := reader.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if diff := cmp.Diff(Entry{Label: "circle", Features: v}, entries[1]); diff != "" {
		t.Errorf("last entry mismatch (-want +got):\n%s", diff)
	}
}

func TestTextStore_AppendPreservesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.txt")
	existing := "1 2 3 4 5 6 7 8 9 old \n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewTextStore(path, nil)
	defer s.Close()
	if err := s.Append("new", sampleVector(1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), existing) {
		t.Errorf("existing record rewritten: %q", data)
	}

	// Never loaded before the append, so Entries reads everything from disk.
	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Label != "old" || entries[1].Label != "new" {
		t.Errorf("entries: got %+v", entries)
	}
}

func TestTextStore_LoadedAppendUpdatesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.txt")
	s := NewTextStore(path, nil)
	defer s.Close()

	if err := s.Append("a", sampleVector(0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := s.Append("b", sampleVector(1)); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Label != "b" {
		t.Errorf("entries: got %+v", entries)
	}
}

func TestTextStore_NoFile(t *testing.T) {
	s := NewTextStore(filepath.Join(t.TempDir(), "missing.txt"), nil)
	defer s.Close()

	err := s.Load()
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("Load: got %v, want ErrNoFile", err)
	}
	var nf *NoFileError
	if !errors.As(err, &nf) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("NoFileError should wrap the os error, got %v", err)
	}

	if _, err := s.Entries(); !errors.Is(err, ErrNoFile) {
		t.Errorf("Entries: got %v, want ErrNoFile", err)
	}
}

func TestTextStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.txt")
	if err := os.WriteFile(path, []byte("1 2 3 4 5 6 7 8 9 ok \n1 2 nope \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewTextStore(path, nil)
	defer s.Close()

	var fe *FormatError
	if err := s.Load(); !errors.As(err, &fe) || fe.Record != 2 {
		t.Errorf("got %v, want FormatError on record 2", err)
	}
}

func TestTextStore_InvalidLabel(t *testing.T) {
	s := NewTextStore(filepath.Join(t.TempDir(), "db.txt"), nil)
	defer s.Close()

	for _, label := range []string{"", "two words", "tab\there", "line\n"} {
		if err := s.Append(label, sampleVector(0)); !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("Append(%q): got %v, want ErrInvalidLabel", label, err)
		}
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("rejected labels must not create the file")
	}
}

func TestTextStore_NonFiniteVector(t *testing.T) {
	s := NewTextStore(filepath.Join(t.TempDir(), "db.txt"), nil)
	defer s.Close()

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		v := sampleVector(1)
		v[3] = f
		if err := s.Append("obj", v); !errors.Is(err, ErrNonFiniteFeature) {
			t.Errorf("Append(%v): got %v, want ErrNonFiniteFeature", f, err)
		}
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("rejected vectors must not create the file")
	}
}

func TestTextStore_SharedAcrossGoroutines(t *testing.T) {
	s := NewTextStore(filepath.Join(t.TempDir(), "db.txt"), nil)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := s.Append("obj", sampleVector(float64(i*10+j))); err != nil {
					t.Errorf("Append failed: %v", err)
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := s.Load(); err != nil && !errors.Is(err, ErrNoFile) {
					t.Errorf("Load failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entries, _ := s.Entries()
	if len(entries) != 80 {
		t.Errorf("entries: got %d, want 80", len(entries))
	}
}

func TestTextStore_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.txt")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate stores mimic separate processes sharing the file.
			s := NewTextStore(path, nil)
			defer s.Close()
			for j := 0; j < 10; j++ {
				if err := s.Append("obj", sampleVector(float64(i*10+j))); err != nil {
					t.Errorf("Append failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	s := NewTextStore(path, nil)
	defer s.Close()
	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 80 {
		t.Errorf("entries: got %d, want 80", len(entries))
	}
}
