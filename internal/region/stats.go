package region

import (
	"image"
	"math"
)

// Stats summarises one labelled region.
type Stats struct {
	ID        int             `json:"id"`
	Area      int             `json:"area"`
	Bounds    image.Rectangle `json:"bounds"` // Max is exclusive
	CentroidX float64         `json:"centroid_x"`
	CentroidY float64         `json:"centroid_y"`
}

// Describe returns area, bounding box and centroid for regions 1..regionCount,
// in ID order. Regions absent from the map are reported with zero area.
func Describe(m *Map, regionCount int) []Stats {
	stats := make([]Stats, regionCount)
	sumX := make([]float64, regionCount)
	sumY := make([]float64, regionCount)

	for i := range stats {
		stats[i].ID = i + 1
		stats[i].Bounds = image.Rect(math.MaxInt32, math.MaxInt32, math.MinInt32, math.MinInt32)
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			id := m.IDs[y*m.Width+x]
			if id == 0 || id > regionCount {
				continue
			}
			s := &stats[id-1]
			s.Area++
			sumX[id-1] += float64(x)
			sumY[id-1] += float64(y)
			if x < s.Bounds.Min.X {
				s.Bounds.Min.X = x
			}
			if y < s.Bounds.Min.Y {
				s.Bounds.Min.Y = y
			}
			if x+1 > s.Bounds.Max.X {
				s.Bounds.Max.X = x + 1
			}
			if y+1 > s.Bounds.Max.Y {
				s.Bounds.Max.Y = y + 1
			}
		}
	}

	for i := range stats {
		if stats[i].Area == 0 {
			stats[i].Bounds = image.Rectangle{}
			continue
		}
		stats[i].CentroidX = sumX[i] / float64(stats[i].Area)
		stats[i].CentroidY = sumY[i] / float64(stats[i].Area)
	}
	return stats
}
