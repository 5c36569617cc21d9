package featuredb

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/shapeid/internal/features"
)

// StandardDeviations returns the population standard deviation (divide by N)
// of every feature column. It needs at least one entry.
func StandardDeviations(entries []Entry) ([features.Size]float64, error) {
	var sd [features.Size]float64
	if len(entries) == 0 {
		return sd, ErrNoEntries
	}

	column := make([]float64, len(entries))
	for i := range sd {
		for j, e := range entries {
			column[j] = e.Features[i]
		}
		_, variance := stat.PopMeanVariance(column, nil)
		sd[i] = math.Sqrt(variance)
	}
	return sd, nil
}

// LabelCount is the number of exemplars stored under one label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary describes the contents of a database.
type Summary struct {
	Path               string                  `json:"path"`
	Entries            int                     `json:"entries"`
	Labels             []LabelCount            `json:"labels"`
	StandardDeviations *[features.Size]float64 `json:"standard_deviations,omitempty"`
}

// Summarize counts entries per label (sorted by label) and, when there is at
// least one entry, includes the per-column standard deviations.
func Summarize(path string, entries []Entry) Summary {
	counts := lo.CountValuesBy(entries, func(e Entry) string { return e.Label })
	labels := lo.Keys(counts)
	sort.Strings(labels)

	s := Summary{
		Path:    path,
		Entries: len(entries),
		Labels: lo.Map(labels, func(l string, _ int) LabelCount {
			return LabelCount{Label: l, Count: counts[l]}
		}),
	}
	if sd, err := StandardDeviations(entries); err == nil {
		s.StandardDeviations = &sd
	}
	return s
}
