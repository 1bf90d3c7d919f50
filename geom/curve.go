package geom

import (
	"fmt"
	"math"
	"sort"
)

// Point is a position in world coordinates (meters).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// HeadingTo returns the heading of the vector p->q in radians.
func (p Point) HeadingTo(q Point) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X)
}

// Curve is the geometry contract shared by all segment variants.
// The parameter t in [0,1] parametrises arclength, not the native curve
// parameter: Point(0.5) is the point halfway along the curve in meters.
type Curve interface {
	// Point returns the position at arclength fraction t.
	Point(t float64) Point
	// Heading returns the tangent direction in radians at arclength
	// fraction t. At t=1 the tangent of the last sampled piece is used.
	Heading(t float64) float64
	// Length returns the total arclength in meters.
	Length() float64
	// Polyline returns the dense point sequence used for rendering and
	// endpoint queries.
	Polyline() []Point
}

// minArclength is the smallest total arclength (meters) a segment may have.
const minArclength = 1e-9

// polyline is the shared arclength machinery: an ordered point sequence
// with a cumulative-arclength table inverted by binary search.
type polyline struct {
	pts    []Point
	cum    []float64 // cum[i] = arclength from pts[0] to pts[i]
	length float64
}

func newPolyline(pts []Point) (polyline, error) {
	if len(pts) < 2 {
		return polyline{}, fmt.Errorf("polyline needs at least 2 points, got %d", len(pts))
	}
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + pts[i-1].DistanceTo(pts[i])
	}
	total := cum[len(cum)-1]
	// Sampling a curve whose control points coincide leaves only rounding
	// residue, so anything below minArclength counts as zero.
	if total <= minArclength {
		return polyline{}, fmt.Errorf("degenerate geometry: zero arclength")
	}
	return polyline{pts: pts, cum: cum, length: total}, nil
}

// pieceAt locates the sub-segment containing arclength fraction t and the
// fraction of the way through it. t outside [0,1] is clamped.
func (pl *polyline) pieceAt(t float64) (i int, frac float64) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	target := t * pl.length
	i = sort.SearchFloat64s(pl.cum, target)
	if i == 0 {
		i = 1
	}
	if i > len(pl.pts)-1 {
		i = len(pl.pts) - 1
	}
	span := pl.cum[i] - pl.cum[i-1]
	if span > 0 {
		frac = (target - pl.cum[i-1]) / span
	}
	return i, frac
}

func (pl *polyline) Point(t float64) Point {
	i, frac := pl.pieceAt(t)
	a, b := pl.pts[i-1], pl.pts[i]
	return Point{X: a.X + (b.X-a.X)*frac, Y: a.Y + (b.Y-a.Y)*frac}
}

func (pl *polyline) Heading(t float64) float64 {
	i, _ := pl.pieceAt(t)
	return pl.pts[i-1].HeadingTo(pl.pts[i])
}

func (pl *polyline) Length() float64 { return pl.length }

func (pl *polyline) Polyline() []Point { return pl.pts }

// Straight is a road segment given directly as a polyline.
type Straight struct {
	polyline
}

// NewStraight builds a straight segment from the caller-supplied points.
func NewStraight(points ...Point) (*Straight, error) {
	pl, err := newPolyline(points)
	if err != nil {
		return nil, err
	}
	return &Straight{polyline: pl}, nil
}
