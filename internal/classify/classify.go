package classify

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/shapeid/internal/featuredb"
	"github.com/ironsheep/shapeid/internal/features"
)

// Source supplies the entries to classify against.
type Source interface {
	Entries() ([]featuredb.Entry, error)
}

// Scale holds the per-column standard deviations used to scale distances.
type Scale [features.Size]float64

// NewScale computes the scale of entries. It fails with ErrDegenerateDatabase
// when no column varies.
func NewScale(entries []featuredb.Entry) (Scale, error) {
	sd, err := featuredb.StandardDeviations(entries)
	if err != nil {
		return Scale{}, err
	}
	if floats.Max(sd[:]) == 0 {
		return Scale{}, ErrDegenerateDatabase
	}
	return Scale(sd), nil
}

// Sum returns the sum of the standard deviations.
func (s Scale) Sum() float64 {
	return floats.Sum(s[:])
}

// Distance returns Σ((qᵢ−vᵢ)/σᵢ)², skipping columns whose σ is zero.
// The square root is never taken; only relative order matters.
func (s Scale) Distance(q, v features.Vector) float64 {
	var sum float64
	for i := range q {
		if s[i] == 0 {
			continue
		}
		d := (q[i] - v[i]) / s[i]
		sum += d * d
	}
	return sum
}

// prepare reads the entries and settles the outcomes that need no distance:
// unreadable database, empty database, and a single entry. done is true when
// res is final.
func prepare(src Source) (entries []featuredb.Entry, res Result, done bool, err error) {
	entries, err = src.Entries()
	if err != nil {
		if errors.Is(err, featuredb.ErrNoFile) {
			return nil, Result{Label: LabelNoFile, Status: NoFile, Index: -1}, true, nil
		}
		return nil, Result{}, true, err
	}

	switch len(entries) {
	case 0:
		return nil, Result{Label: LabelEmpty, Status: EmptyDatabase, Index: -1}, true, nil
	case 1:
		l := entries[0].Label
		return entries, Result{Label: l, Status: Matched, Candidate: l, Index: 0}, true, nil
	}
	return entries, Result{}, false, nil
}

// NearestNeighbor returns the label of the entry closest to query.
//
// A missing database yields Status NoFile and an empty one EmptyDatabase;
// neither is an error. With a single entry its label is returned without
// computing a distance. Otherwise the minimum scaled distance wins and the
// first entry reaching it breaks ties.
func NearestNeighbor(query features.Vector, src Source) (Result, error) {
	entries, res, done, err := prepare(src)
	if done || err != nil {
		return res, err
	}

	scale, err := NewScale(entries)
	if err != nil {
		return Result{}, err
	}

	best, bestDist := -1, math.Inf(1)
	for i, e := range entries {
		if d := scale.Distance(query, e.Features); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Result{}, ErrNoMatch
	}

	l := entries[best].Label
	return Result{Label: l, Status: Matched, Candidate: l, Distance: bestDist, Index: best}, nil
}

// KNearestNeighbors returns the label whose k closest exemplars have the
// smallest summed distance to query.
//
// Empty, missing and single-entry databases are handled as in NearestNeighbor.
// A label with fewer than k exemplars sums all of them. Labels are compared in
// lexicographic order and the first one reaching the minimum wins ties.
//
// The winner is rejected (Status Unknown) when its sum divided by the sum of
// the column standard deviations exceeds stdMultiplier.
func KNearestNeighbors(query features.Vector, src Source, k int, stdMultiplier float64) (Result, error) {
	if k < 1 {
		return Result{}, fmt.Errorf("%w, got %d", ErrInvalidK, k)
	}
	entries, res, done, err := prepare(src)
	if done || err != nil {
		return res, err
	}

	scale, err := NewScale(entries)
	if err != nil {
		return Result{}, err
	}

	distances := lo.MapValues(
		lo.GroupBy(entries, func(e featuredb.Entry) string { return e.Label }),
		func(group []featuredb.Entry, _ string) []float64 {
			return lo.Map(group, func(e featuredb.Entry, _ int) float64 {
				return scale.Distance(query, e.Features)
			})
		},
	)

	label, sum, ok := selectLabel(distances, k)
	if !ok {
		return Result{}, ErrNoMatch
	}
	threshold := sum / scale.Sum()

	res = Result{
		Label:     label,
		Status:    Matched,
		Candidate: label,
		Distance:  sum,
		Threshold: threshold,
		Index:     -1,
	}
	if rejects(sum, scale.Sum(), stdMultiplier) {
		res.Label = LabelUnknown
		res.Status = Unknown
	}
	return res, nil
}

// selectLabel sums the k smallest distances of each label and returns the
// label with the smallest sum, visiting labels in sorted order. ok is false
// when no sum is below +Inf, as with NaN distances.
func selectLabel(distances map[string][]float64, k int) (label string, sum float64, ok bool) {
	labels := lo.Keys(distances)
	sort.Strings(labels)

	bestLabel, bestSum := "", math.Inf(1)
	for _, l := range labels {
		d := append([]float64(nil), distances[l]...)
		sort.Float64s(d)
		n := k
		if n > len(d) {
			n = len(d)
		}
		if s := floats.Sum(d[:n]); s < bestSum {
			bestLabel, bestSum, ok = l, s, true
		}
	}
	return bestLabel, bestSum, ok
}

// rejects reports whether a candidate is too far from every class to trust.
func rejects(candidateSum, sigmaSum, stdMultiplier float64) bool {
	return candidateSum/sigmaSum > stdMultiplier
}
