package geom

import (
	"math"
	"testing"
)

const (
	nearMTol = 1.0e-9
	nearRTol = 1.0e-9
	// Sampled curves invert arclength only as finely as their tables.
	sampleTol = 0.05
)

func testNear(t *testing.T, tag string, exp, got, tol float64) {
	t.Helper()
	if math.Abs(exp-got) > tol {
		t.Errorf("%s error: exp=%v, got=%v", tag, exp, got)
	}
}

func TestStraightLengthAndPoint(t *testing.T) {
	s, err := NewStraight(Point{0, 0}, Point{100, 0})
	if err != nil {
		t.Fatalf(err.Error())
	}
	testNear(t, "length", 100, s.Length(), nearMTol)

	p := s.Point(0.5)
	testNear(t, "mid x", 50, p.X, nearMTol)
	testNear(t, "mid y", 0, p.Y, nearMTol)

	p = s.Point(1)
	testNear(t, "end x", 100, p.X, nearMTol)
	p = s.Point(0)
	testNear(t, "start x", 0, p.X, nearMTol)

	// Out-of-range parameters clamp.
	testNear(t, "clamp low", 0, s.Point(-0.5).X, nearMTol)
	testNear(t, "clamp high", 100, s.Point(1.5).X, nearMTol)
}

func TestStraightPolylineArclength(t *testing.T) {
	// L-shaped polyline: 10 m east then 10 m north.
	s, err := NewStraight(Point{0, 0}, Point{10, 0}, Point{10, 10})
	if err != nil {
		t.Fatalf(err.Error())
	}
	testNear(t, "length", 20, s.Length(), nearMTol)

	// t=0.25 lies halfway along the first leg.
	p := s.Point(0.25)
	testNear(t, "quarter x", 5, p.X, nearMTol)
	testNear(t, "quarter y", 0, p.Y, nearMTol)

	// t=0.75 lies halfway up the second leg.
	p = s.Point(0.75)
	testNear(t, "threequarter x", 10, p.X, nearMTol)
	testNear(t, "threequarter y", 5, p.Y, nearMTol)

	testNear(t, "heading leg1", 0, s.Heading(0.25), nearRTol)
	testNear(t, "heading leg2", math.Pi/2, s.Heading(0.75), nearRTol)
	// Terminal heading clamps to the last piece tangent.
	testNear(t, "heading t=1", math.Pi/2, s.Heading(1), nearRTol)
}

func TestStraightDegenerate(t *testing.T) {
	if _, err := NewStraight(Point{1, 1}); err == nil {
		t.Error("expected error for single-point segment")
	}
	if _, err := NewStraight(Point{1, 1}, Point{1, 1}); err == nil {
		t.Error("expected error for zero-length segment")
	}
}

func TestQuadraticEndpoints(t *testing.T) {
	q, err := NewQuadratic(Point{0, 0}, Point{50, 50}, Point{100, 0})
	if err != nil {
		t.Fatalf(err.Error())
	}
	p := q.Point(0)
	testNear(t, "start x", 0, p.X, nearMTol)
	testNear(t, "start y", 0, p.Y, nearMTol)
	p = q.Point(1)
	testNear(t, "end x", 100, p.X, nearMTol)
	testNear(t, "end y", 0, p.Y, nearMTol)

	// Symmetric control point: curve apex at half arclength.
	p = q.Point(0.5)
	testNear(t, "apex x", 50, p.X, sampleTol)
	testNear(t, "apex y", 25, p.Y, sampleTol)

	// Longer than the chord, shorter than the control polygon.
	if q.Length() <= 100 {
		t.Errorf("length %v not greater than chord", q.Length())
	}
	if q.Length() >= 2*math.Hypot(50, 50) {
		t.Errorf("length %v not less than control polygon", q.Length())
	}
}

func TestQuadraticHeadingFinite(t *testing.T) {
	q, err := NewQuadratic(Point{0, 0}, Point{50, 50}, Point{100, 0})
	if err != nil {
		t.Fatalf(err.Error())
	}
	for _, tt := range []float64{0, 0.25, 0.5, 0.75, 0.999, 1} {
		h := q.Heading(tt)
		if math.IsNaN(h) || math.IsInf(h, 0) {
			t.Errorf("heading(%v) not finite: %v", tt, h)
		}
	}
	// Symmetric arch: entry climbs, exit descends at the mirrored angle.
	testNear(t, "heading symmetry", q.Heading(0), -q.Heading(1), 0.05)
}

func TestCubicArclengthRoundTrip(t *testing.T) {
	c, err := NewCubic(Point{0, 0}, Point{0, 40}, Point{100, 40}, Point{100, 0})
	if err != nil {
		t.Fatalf(err.Error())
	}
	// Distances between uniformly spaced arclength fractions accumulate to
	// the total length, each within sampling tolerance of L/n.
	const n = 20
	total := 0.0
	prev := c.Point(0)
	for i := 1; i <= n; i++ {
		p := c.Point(float64(i) / n)
		step := prev.DistanceTo(p)
		// Each step is at most the arclength share it spans.
		if step > c.Length()/n+sampleTol {
			t.Errorf("step %d too long: %v", i, step)
		}
		total += step
		prev = p
	}
	// The chordal sum approaches total arclength from below.
	if total > c.Length() {
		t.Errorf("chordal sum %v exceeds arclength %v", total, c.Length())
	}
	if total < 0.98*c.Length() {
		t.Errorf("chordal sum %v too far below arclength %v", total, c.Length())
	}
}

func TestCubicDegenerate(t *testing.T) {
	p := Point{3, 3}
	if _, err := NewCubic(p, p, p, p); err == nil {
		t.Error("expected error for collapsed cubic")
	}
}
