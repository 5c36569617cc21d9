package features

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Size is the number of values in a feature Vector.
const Size = 9

// ErrEmptyMask is returned when a mask has no "on" pixel. Every ratio in the
// descriptor would divide by zero, so the caller must not extract from it.
var ErrEmptyMask = errors.New("features: mask has no foreground pixels")

// Names labels each Vector position, in order.
var Names = [Size]string{
	"fill_ratio", "aspect_ratio",
	"hu0", "hu1", "hu2", "hu3", "hu4", "hu5", "hu6",
}

// Vector is the fixed-order shape descriptor:
// [fillRatio, aspectRatio, hu0, hu1, hu2, hu3, hu4, hu5, hu6].
//
// The order is shared by the extractor, the feature database file and the
// classifier; changing it invalidates stored databases.
type Vector [Size]float64

// FillRatio is the percentage of the bounding rectangle covered by the shape.
func (v Vector) FillRatio() float64 { return v[0] }

// AspectRatio is the long side over the short side of the bounding rectangle.
func (v Vector) AspectRatio() float64 { return v[1] }

// Hu returns the seven moment invariants.
func (v Vector) Hu() [7]float64 {
	var hu [7]float64
	copy(hu[:], v[2:])
	return hu
}

// Extent selects how the bounding rectangle's extents are measured.
type Extent int

const (
	// ExtentOriented measures the minimum-area rectangle along its own sides.
	// Fill and aspect ratios do not change when the shape rotates.
	ExtentOriented Extent = iota

	// ExtentProjected projects the rotated rectangle onto the image axes:
	// rotW = |w·cos θ| + |h·sin θ|, rotH = |w·sin θ| + |h·cos θ|.
	// Kept to read databases recorded with axis-projected extents.
	ExtentProjected
)

// String returns the configuration name of the extent mode.
func (e Extent) String() string {
	switch e {
	case ExtentOriented:
		return "oriented"
	case ExtentProjected:
		return "projected"
	default:
		return fmt.Sprintf("Extent(%d)", int(e))
	}
}

// ParseExtent converts a configuration name into an Extent.
func ParseExtent(s string) (Extent, error) {
	switch s {
	case "", "oriented":
		return ExtentOriented, nil
	case "projected":
		return ExtentProjected, nil
	default:
		return 0, fmt.Errorf("features: unknown extent mode %q", s)
	}
}

// Shape is everything measured about a single-region mask.
type Shape struct {
	Vector  Vector      `json:"vector"`
	Area    int         `json:"area"`
	Moments Moments     `json:"moments"`
	Rect    RotatedRect `json:"rect"`

	// CentroidX, CentroidY locate the centre of mass in mask coordinates.
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`

	// Orientation is the axis of least central moment, in radians.
	Orientation float64 `json:"orientation"`
}

// Extractor computes feature vectors. The zero value uses ExtentOriented.
type Extractor struct {
	Extent Extent
}

// Extract computes the descriptor of mask with the default Extractor.
func Extract(mask *image.Gray) (Vector, error) {
	return Extractor{}.Extract(mask)
}

// Extract computes the descriptor of mask. See Describe.
func (e Extractor) Extract(mask *image.Gray) (Vector, error) {
	s, err := e.Describe(mask)
	if err != nil {
		return Vector{}, err
	}
	return s.Vector, nil
}

// Describe measures a mask holding exactly one region.
//
// Any non-zero pixel is "on". Steps:
//
//  1. Moments of the "on" pixels and their seven Hu invariants.
//  2. Minimum-area oriented rectangle around the "on" pixel squares.
//  3. Rectangle extents (rotW, rotH) according to e.Extent.
//  4. aspectRatio = max(rotW, rotH) / min(rotW, rotH).
//  5. fillRatio = 100 · pixelCount / (rotW · rotH).
//
// Returns ErrEmptyMask if mask has no "on" pixel.
func (e Extractor) Describe(mask *image.Gray) (*Shape, error) {
	m := ComputeMoments(mask)
	if m.M00 == 0 {
		return nil, ErrEmptyMask
	}

	rect := MinAreaRect(maskOutline(mask))
	rotW, rotH := e.extents(rect)
	if rotW <= 0 || rotH <= 0 {
		return nil, fmt.Errorf("features: degenerate bounding rectangle %.3gx%.3g", rotW, rotH)
	}

	var v Vector
	v[0] = 100 * m.M00 / (rotW * rotH)
	v[1] = math.Max(rotW, rotH) / math.Min(rotW, rotH)
	hu := m.Hu()
	copy(v[2:], hu[:])

	cx, cy := m.Centroid()
	return &Shape{
		Vector:      v,
		Area:        int(m.M00),
		Moments:     m,
		Rect:        rect,
		CentroidX:   cx,
		CentroidY:   cy,
		Orientation: m.Orientation(),
	}, nil
}

func (e Extractor) extents(r RotatedRect) (float64, float64) {
	if e.Extent != ExtentProjected {
		return r.Width, r.Height
	}

	theta := r.Angle * math.Pi / 180
	if theta <= -math.Pi/2 {
		theta += math.Pi
	} else if theta > math.Pi/2 {
		theta -= math.Pi
	}
	sin, cos := math.Sincos(theta)
	rotW := math.Abs(r.Width*cos) + math.Abs(r.Height*sin)
	rotH := math.Abs(r.Width*sin) + math.Abs(r.Height*cos)
	return rotW, rotH
}
