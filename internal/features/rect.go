package features

import (
	"image"
	"math"
	"sort"
)

// Point is a 2D point in continuous pixel coordinates. Pixel (x, y) covers the
// unit square from (x, y) to (x+1, y+1).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RotatedRect is an oriented rectangle.
type RotatedRect struct {
	Center Point `json:"center"`

	// Width is the side length along the direction given by Angle.
	Width float64 `json:"width"`

	// Height is the side length perpendicular to Angle.
	Height float64 `json:"height"`

	// Angle is the direction of the Width side in degrees, in [-90, 90).
	Angle float64 `json:"angle"`
}

// Area returns Width × Height.
func (r RotatedRect) Area() float64 {
	return r.Width * r.Height
}

// Corners returns the four vertices in drawing order.
func (r RotatedRect) Corners() [4]Point {
	theta := r.Angle * math.Pi / 180
	ux, uy := math.Cos(theta)*r.Width/2, math.Sin(theta)*r.Width/2
	vx, vy := -math.Sin(theta)*r.Height/2, math.Cos(theta)*r.Height/2
	c := r.Center
	return [4]Point{
		{X: c.X - ux - vx, Y: c.Y - uy - vy},
		{X: c.X + ux - vx, Y: c.Y + uy - vy},
		{X: c.X + ux + vx, Y: c.Y + uy + vy},
		{X: c.X - ux + vx, Y: c.Y - uy + vy},
	}
}

// maskOutline returns the corners of the left-most and right-most "on" pixel
// of every row. Their convex hull equals the hull of all "on" pixel squares.
func maskOutline(mask *image.Gray) []Point {
	b := mask.Bounds()
	pts := make([]Point, 0, 4*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):]
		first, last := -1, -1
		for x := 0; x < b.Dx(); x++ {
			if row[x] != 0 {
				if first < 0 {
					first = x
				}
				last = x
			}
		}
		if first < 0 {
			continue
		}
		fy := float64(y - b.Min.Y)
		pts = append(pts,
			Point{X: float64(first), Y: fy},
			Point{X: float64(first), Y: fy + 1},
			Point{X: float64(last + 1), Y: fy},
			Point{X: float64(last + 1), Y: fy + 1},
		)
	}
	return pts
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the hull of pts in counter-clockwise order (monotone
// chain). Collinear points are dropped.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}
	sorted := append([]Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	hull := make([]Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// MinAreaRect returns the minimum-area rectangle enclosing pts.
//
// One side of the optimal rectangle is collinear with a hull edge, so every
// hull edge is tried as the Width direction and the smallest area wins. On a
// tie the earlier edge is kept. Fewer than two distinct points produce a
// zero-sized rectangle at the point.
func MinAreaRect(pts []Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: hull[0]}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		ex, ey := b.X-a.X, b.Y-a.Y
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		ux, uy := ex/length, ey/length

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := p.X-a.X, p.Y-a.Y
			u := px*ux + py*uy
			v := -px*uy + py*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		w, h := maxU-minU, maxV-minV
		if area := w * h; area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				Center: Point{X: a.X + cu*ux - cv*uy, Y: a.Y + cu*uy + cv*ux},
				Width:  w,
				Height: h,
				Angle:  normalizeDegrees(math.Atan2(uy, ux) * 180 / math.Pi),
			}
		}
	}
	return best
}

// normalizeDegrees folds a direction angle into [-90, 90). A side direction and
// its reverse describe the same rectangle.
func normalizeDegrees(deg float64) float64 {
	for deg >= 90 {
		deg -= 180
	}
	for deg < -90 {
		deg += 180
	}
	return deg
}
