package features

import (
	"image"
	"math"
)

// Moments holds the image moments of a binary mask.
//
// Non-zero pixels have mass 1 and zero pixels mass 0. X is the column and Y the
// row, both relative to the mask's Bounds().Min.
type Moments struct {
	M00 float64 `json:"m00"`
	M10 float64 `json:"m10"`
	M01 float64 `json:"m01"`

	// Central moments up to third order.
	Mu20 float64 `json:"mu20"`
	Mu11 float64 `json:"mu11"`
	Mu02 float64 `json:"mu02"`
	Mu30 float64 `json:"mu30"`
	Mu21 float64 `json:"mu21"`
	Mu12 float64 `json:"mu12"`
	Mu03 float64 `json:"mu03"`
}

// ComputeMoments measures raw and central moments of mask in two passes:
// the first finds the centroid, the second accumulates central sums around it.
func ComputeMoments(mask *image.Gray) Moments {
	b := mask.Bounds()
	var m Moments

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x] == 0 {
				continue
			}
			m.M00++
			m.M10 += float64(x)
			m.M01 += float64(y - b.Min.Y)
		}
	}
	if m.M00 == 0 {
		return m
	}

	cx, cy := m.Centroid()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):]
		dy := float64(y-b.Min.Y) - cy
		for x := 0; x < b.Dx(); x++ {
			if row[x] == 0 {
				continue
			}
			dx := float64(x) - cx
			m.Mu20 += dx * dx
			m.Mu11 += dx * dy
			m.Mu02 += dy * dy
			m.Mu30 += dx * dx * dx
			m.Mu21 += dx * dx * dy
			m.Mu12 += dx * dy * dy
			m.Mu03 += dy * dy * dy
		}
	}
	return m
}

// Centroid returns the centre of mass. It is (NaN, NaN) for an empty mask.
func (m Moments) Centroid() (float64, float64) {
	return m.M10 / m.M00, m.M01 / m.M00
}

// Orientation returns the angle in radians, measured from the +X axis toward
// +Y (image rows grow downward), of the axis of least central moment.
func (m Moments) Orientation() float64 {
	return 0.5 * math.Atan2(2*m.Mu11, m.Mu20-m.Mu02)
}

// normalized returns the scale-normalized central moment eta_pq.
func (m Moments) normalized(mu float64, order int) float64 {
	return mu / math.Pow(m.M00, float64(order)/2+1)
}

// Hu returns the seven Hu moment invariants.
//
// They are built from normalized central moments up to third order and are
// invariant to translation, scale and rotation (hu6 flips sign under
// reflection).
func (m Moments) Hu() [7]float64 {
	n20 := m.normalized(m.Mu20, 2)
	n11 := m.normalized(m.Mu11, 2)
	n02 := m.normalized(m.Mu02, 2)
	n30 := m.normalized(m.Mu30, 3)
	n21 := m.normalized(m.Mu21, 3)
	n12 := m.normalized(m.Mu12, 3)
	n03 := m.normalized(m.Mu03, 3)

	t0 := n30 + n12
	t1 := n21 + n03
	q0 := t0 * t0
	q1 := t1 * t1
	d0 := n30 - 3*n12
	d1 := 3*n21 - n03

	var hu [7]float64
	hu[0] = n20 + n02
	hu[1] = (n20-n02)*(n20-n02) + 4*n11*n11
	hu[2] = d0*d0 + d1*d1
	hu[3] = q0 + q1
	hu[4] = d0*t0*(q0-3*q1) + d1*t1*(3*q0-q1)
	hu[5] = (n20-n02)*(q0-q1) + 4*n11*t0*t1
	hu[6] = d1*t0*(q0-3*q1) - d0*t1*(3*q0-q1)
	return hu
}
