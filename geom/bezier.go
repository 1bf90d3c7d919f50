package geom

import "fmt"

// curveSamples is the number of native-parameter samples used to build the
// arclength table for Bézier variants.
const curveSamples = 128

// Quadratic is a quadratic Bézier road segment.
type Quadratic struct {
	polyline
	Start, Control, End Point
}

// NewQuadratic builds a quadratic Bézier segment sampled densely enough to
// invert arclength within rendering tolerance.
func NewQuadratic(start, control, end Point) (*Quadratic, error) {
	pts := make([]Point, curveSamples)
	for i := range pts {
		u := float64(i) / float64(curveSamples-1)
		pts[i] = quadraticAt(start, control, end, u)
	}
	pl, err := newPolyline(pts)
	if err != nil {
		return nil, fmt.Errorf("quadratic curve: %w", err)
	}
	return &Quadratic{polyline: pl, Start: start, Control: control, End: end}, nil
}

func quadraticAt(p0, c, p1 Point, u float64) Point {
	w0 := (1 - u) * (1 - u)
	w1 := 2 * (1 - u) * u
	w2 := u * u
	return Point{
		X: w0*p0.X + w1*c.X + w2*p1.X,
		Y: w0*p0.Y + w1*c.Y + w2*p1.Y,
	}
}

// Cubic is a cubic Bézier road segment.
type Cubic struct {
	polyline
	Start, Control1, Control2, End Point
}

// NewCubic builds a cubic Bézier segment with the same sampling scheme as
// the quadratic variant.
func NewCubic(start, c1, c2, end Point) (*Cubic, error) {
	pts := make([]Point, curveSamples)
	for i := range pts {
		u := float64(i) / float64(curveSamples-1)
		pts[i] = cubicAt(start, c1, c2, end, u)
	}
	pl, err := newPolyline(pts)
	if err != nil {
		return nil, fmt.Errorf("cubic curve: %w", err)
	}
	return &Cubic{polyline: pl, Start: start, Control1: c1, Control2: c2, End: end}, nil
}

func cubicAt(p0, c1, c2, p1 Point, u float64) Point {
	v := 1 - u
	w0 := v * v * v
	w1 := 3 * v * v * u
	w2 := 3 * v * u * u
	w3 := u * u * u
	return Point{
		X: w0*p0.X + w1*c1.X + w2*c2.X + w3*p1.X,
		Y: w0*p0.Y + w1*c1.Y + w2*c2.Y + w3*p1.Y,
	}
}
