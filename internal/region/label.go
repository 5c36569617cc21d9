package region

import (
	"errors"
	"fmt"
	"image"
)

// ErrNoRegions is returned when a region search is asked to choose among zero regions.
var ErrNoRegions = errors.New("region: no regions to choose from")

// neighbour offsets for 8-connectivity, row above, same row, row below.
var (
	offsetX = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	offsetY = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
)

// Map holds one region ID per pixel in row-major order.
//
// An ID of 0 means background (unlabelled). IDs 1..N identify the N
// connected components found by Label.
type Map struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	IDs    []int `json:"-"`
}

// NewMap allocates an all-background map.
func NewMap(width, height int) *Map {
	return &Map{
		Width:  width,
		Height: height,
		IDs:    make([]int, width*height),
	}
}

// At returns the region ID at (x, y), relative to the map origin.
func (m *Map) At(x, y int) int {
	return m.IDs[y*m.Width+x]
}

// Label flood-fills every 8-connected foreground component of img.
//
// Parameters:
//   - img: two-tone source image. It is only read.
//   - foreground: the pixel value that marks object pixels.
//
// Returns the label map and the number of regions found (0 if the image has
// no foreground pixel). The map's (0, 0) corresponds to img.Bounds().Min.
//
// # Algorithm
//
// The image is scanned in raster order. The first unlabelled foreground pixel
// of a component gets the next ID and seeds a breadth-first fill driven by an
// explicit queue. A pixel is labelled at the moment it is enqueued, so each
// pixel enters the queue at most once and the whole pass is O(pixels).
func Label(img *image.Gray, foreground uint8) (*Map, int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	m := NewMap(width, height)

	isForeground := func(x, y int) bool {
		return img.Pix[img.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)] == foreground
	}

	queue := make([]int, 0, 64)
	nextID := 1

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if m.IDs[idx] != 0 || !isForeground(x, y) {
				continue
			}

			m.IDs[idx] = nextID
			queue = append(queue[:0], idx)

			for head := 0; head < len(queue); head++ {
				px := queue[head] % width
				py := queue[head] / width

				for k := 0; k < len(offsetX); k++ {
					nx := px + offsetX[k]
					ny := py + offsetY[k]
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					nidx := ny*width + nx
					if m.IDs[nidx] == 0 && isForeground(nx, ny) {
						m.IDs[nidx] = nextID
						queue = append(queue, nidx)
					}
				}
			}
			nextID++
		}
	}

	return m, nextID - 1
}

// Areas counts pixels per region ID.
//
// The returned slice has regionCount+1 entries: index 0 is the background
// pixel count and index i is the area of region i. IDs above regionCount are
// ignored.
func (m *Map) Areas(regionCount int) []int {
	areas := make([]int, regionCount+1)
	for _, id := range m.IDs {
		if id <= regionCount {
			areas[id]++
		}
	}
	return areas
}

// Mask returns a binary image that is 255 where the map equals id and 0 elsewhere.
func (m *Map) Mask(id int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.IDs {
		if v == id {
			mask.Pix[(i/m.Width)*mask.Stride+i%m.Width] = 255
		}
	}
	return mask
}

// LargestComponent isolates the region with the most pixels.
//
// IDs 1..regionCount are scanned in increasing order and the first ID reaching
// the maximum area wins, so ties go to the region found earliest in raster
// order. The returned mask is 255 on that region and 0 elsewhere.
//
// regionCount must be at least 1; otherwise ErrNoRegions is returned.
func LargestComponent(m *Map, regionCount int) (*image.Gray, int, error) {
	if regionCount < 1 {
		return nil, 0, ErrNoRegions
	}
	if m == nil {
		return nil, 0, fmt.Errorf("region: nil label map")
	}

	areas := m.Areas(regionCount)
	largestID, largestArea := 0, 0
	for id := 1; id <= regionCount; id++ {
		if areas[id] > largestArea {
			largestID = id
			largestArea = areas[id]
		}
	}
	if largestID == 0 {
		return nil, 0, fmt.Errorf("region: map holds none of the %d regions: %w", regionCount, ErrNoRegions)
	}

	return m.Mask(largestID), largestID, nil
}
