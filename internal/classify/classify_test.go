package classify

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/ironsheep/shapeid/internal/featuredb"
	"github.com/ironsheep/shapeid/internal/features"
)

type sliceSource struct {
	entries []featuredb.Entry
	err     error
}

func (s sliceSource) Entries() ([]featuredb.Entry, error) { return s.entries, s.err }

// entry builds an entry that varies only in the fill column.
func entry(label string, fill float64) featuredb.Entry {
	return featuredb.Entry{Label: label, Features: features.Vector{fill, 1, 0.16, 0, 0, 0, 0, 0, 0}}
}

func query(fill float64) features.Vector {
	return entry("", fill).Features
}

func TestDistance(t *testing.T) {
	s := Scale{2, 0, 0.5}
	q := features.Vector{4, 100, 1}
	v := features.Vector{0, -100, 0}
	// (4/2)² + (1/0.5)²; column 1 has zero spread and is skipped.
	if got := s.Distance(q, v); got != 8 {
		t.Errorf("Distance: got %v, want 8", got)
	}
	if got := s.Distance(q, q); got != 0 {
		t.Errorf("Distance to itself: got %v", got)
	}
}

func TestNewScale_Degenerate(t *testing.T) {
	entries := []featuredb.Entry{entry("a", 5), entry("b", 5)}
	if _, err := NewScale(entries); !errors.Is(err, ErrDegenerateDatabase) {
		t.Errorf("got %v, want ErrDegenerateDatabase", err)
	}
}

func TestNearestNeighbor(t *testing.T) {
	src := sliceSource{entries: []featuredb.Entry{
		entry("a", 0), entry("b", 10), entry("c", 20),
	}}

	tests := []struct {
		name      string
		fill      float64
		wantLabel string
		wantIndex int
	}{
		{"exact match", 20, "c", 2},
		{"closest", 9, "b", 1},
		{"tie goes to first entry", 5, "a", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NearestNeighbor(query(tt.fill), src)
			if err != nil {
				t.Fatalf("NearestNeighbor failed: %v", err)
			}
			if res.Status != Matched || res.Label != tt.wantLabel || res.Index != tt.wantIndex {
				t.Errorf("got %+v, want %s at %d", res, tt.wantLabel, tt.wantIndex)
			}
		})
	}
}

func TestNearestNeighbor_ExactMatchHasZeroDistance(t *testing.T) {
	src := sliceSource{entries: []featuredb.Entry{entry("a", 0), entry("b", 10)}}
	res, err := NearestNeighbor(query(10), src)
	if err != nil {
		t.Fatal(err)
	}
	if res.Distance != 0 {
		t.Errorf("Distance: got %v, want 0", res.Distance)
	}
}

func TestSpecialOutcomes(t *testing.T) {
	missing := featuredb.NewTextStore(filepath.Join(t.TempDir(), "missing.txt"), nil)
	defer missing.Close()

	tests := []struct {
		name       string
		src        Source
		wantLabel  string
		wantStatus Status
	}{
		{"no file", missing, LabelNoFile, NoFile},
		{"empty", sliceSource{}, LabelEmpty, EmptyDatabase},
		{"single entry", sliceSource{entries: []featuredb.Entry{entry("only", 50)}}, "only", Matched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nn, err := NearestNeighbor(query(1), tt.src)
			if err != nil {
				t.Fatalf("NearestNeighbor failed: %v", err)
			}
			if nn.Label != tt.wantLabel || nn.Status != tt.wantStatus {
				t.Errorf("NearestNeighbor: got %+v", nn)
			}

			// A far query is never rejected when there is nothing to compare.
			knn, err := KNearestNeighbors(query(1e6), tt.src, 2, 1)
			if err != nil {
				t.Fatalf("KNearestNeighbors failed: %v", err)
			}
			if knn.Label != tt.wantLabel || knn.Status != tt.wantStatus {
				t.Errorf("KNearestNeighbors: got %+v", knn)
			}
		})
	}
}

func TestSourceErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NearestNeighbor(query(0), sliceSource{err: boom}); !errors.Is(err, boom) {
		t.Errorf("NearestNeighbor: got %v", err)
	}
	if _, err := KNearestNeighbors(query(0), sliceSource{err: boom}, 2, 1); !errors.Is(err, boom) {
		t.Errorf("KNearestNeighbors: got %v", err)
	}
}

func TestKNearestNeighbors(t *testing.T) {
	src := sliceSource{entries: []featuredb.Entry{
		entry("square", 0), entry("circle", 10), entry("square", 1), entry("circle", 11),
	}}

	res, err := KNearestNeighbors(query(0.5), src, 2, 1)
	if err != nil {
		t.Fatalf("KNearestNeighbors failed: %v", err)
	}
	if res.Status != Matched || res.Label != "square" {
		t.Errorf("near square: got %+v", res)
	}
	if res.Index != -1 {
		t.Errorf("Index: got %d, want -1", res.Index)
	}

	res, err = KNearestNeighbors(query(100), src, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Unknown || res.Label != LabelUnknown {
		t.Errorf("far query: got %+v, want Unknown", res)
	}
	if res.Candidate != "circle" {
		t.Errorf("Candidate: got %q, want circle", res.Candidate)
	}
	if res.Threshold <= 1 {
		t.Errorf("Threshold: got %v, want > 1", res.Threshold)
	}
}

func TestKNearestNeighbors_InvalidK(t *testing.T) {
	for _, k := range []int{0, -3} {
		if _, err := KNearestNeighbors(query(0), sliceSource{}, k, 1); !errors.Is(err, ErrInvalidK) {
			t.Errorf("k=%d: got %v, want ErrInvalidK", k, err)
		}
	}
}

func TestKNearestNeighbors_KLargerThanClass(t *testing.T) {
	// "lone" has one exemplar, so only that distance is summed, while the two
	// "pair" exemplars add up.
	src := sliceSource{entries: []featuredb.Entry{
		entry("pair", 4), entry("pair", 6), entry("lone", 8),
	}}
	res, err := KNearestNeighbors(query(5), src, 5, 100)
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != "pair" {
		t.Errorf("got %+v, want pair", res)
	}
}

func TestSelectLabel(t *testing.T) {
	tests := []struct {
		name      string
		distances map[string][]float64
		k         int
		wantLabel string
		wantSum   float64
	}{
		{
			name:      "tie goes to the lexicographically first label",
			distances: map[string][]float64{"square": {9, 1, 4}, "circle": {3, 2}},
			k:         2,
			wantLabel: "circle",
			wantSum:   5,
		},
		{
			name:      "k=1 uses the single best",
			distances: map[string][]float64{"square": {9, 1, 4}, "circle": {3, 2}},
			k:         1,
			wantLabel: "square",
			wantSum:   1,
		},
		{
			name:      "short class sums everything",
			distances: map[string][]float64{"a": {1, 1, 1}, "b": {2.5}},
			k:         3,
			wantLabel: "b",
			wantSum:   2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, sum, ok := selectLabel(tt.distances, tt.k)
			if !ok || label != tt.wantLabel || math.Abs(sum-tt.wantSum) > 1e-12 {
				t.Errorf("got %s %v, want %s %v", label, sum, tt.wantLabel, tt.wantSum)
			}
		})
	}
}

func TestSelectLabel_NoComparableSum(t *testing.T) {
	d := map[string][]float64{"a": {math.NaN()}, "b": {math.Inf(1), 1}}
	if label, _, ok := selectLabel(d, 2); ok {
		t.Errorf("got winner %q from non-finite sums", label)
	}
}

func TestNonFiniteQuery(t *testing.T) {
	src := sliceSource{entries: []featuredb.Entry{entry("a", 0), entry("b", 10), entry("c", 20)}}
	q := query(math.NaN())

	if res, err := NearestNeighbor(q, src); !errors.Is(err, ErrNoMatch) {
		t.Errorf("NearestNeighbor: got %+v, %v, want ErrNoMatch", res, err)
	}
	if res, err := KNearestNeighbors(q, src, 2, 1); !errors.Is(err, ErrNoMatch) {
		t.Errorf("KNearestNeighbors: got %+v, %v, want ErrNoMatch", res, err)
	}
}

func TestNonFiniteDatabase(t *testing.T) {
	bad := entry("b", 10)
	bad.Features[0] = math.NaN()
	src := sliceSource{entries: []featuredb.Entry{entry("a", 0), bad, entry("c", 20)}}

	if _, err := NearestNeighbor(query(5), src); !errors.Is(err, ErrNoMatch) {
		t.Errorf("NearestNeighbor: got %v, want ErrNoMatch", err)
	}
	if _, err := KNearestNeighbors(query(5), src, 2, 1); !errors.Is(err, ErrNoMatch) {
		t.Errorf("KNearestNeighbors: got %v, want ErrNoMatch", err)
	}
}

func TestSelectLabel_DoesNotReorderInput(t *testing.T) {
	d := map[string][]float64{"a": {3, 1, 2}}
	selectLabel(d, 2)
	if d["a"][0] != 3 || d["a"][1] != 1 {
		t.Errorf("input slice reordered: %v", d["a"])
	}
}

func TestRejects(t *testing.T) {
	tests := []struct {
		sum, sigma, mult float64
		want             bool
	}{
		{11, 10, 1, true},
		{9, 10, 1, false},
		{10, 10, 1, false},
		{15, 10, 2, false},
		{25, 10, 2, true},
	}
	for _, tt := range tests {
		if got := rejects(tt.sum, tt.sigma, tt.mult); got != tt.want {
			t.Errorf("rejects(%v, %v, %v): got %v, want %v", tt.sum, tt.sigma, tt.mult, got, tt.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	if Matched.String() != "matched" || NoFile.String() != "no_file" {
		t.Errorf("unexpected names: %s %s", Matched, NoFile)
	}
	if Status(42).String() != "Status(42)" {
		t.Errorf("unknown status: %s", Status(42))
	}
}
