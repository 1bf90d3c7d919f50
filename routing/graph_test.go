package routing

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"roadsim/backend/geom"
	"roadsim/backend/model"
)

func straight(t *testing.T, id string, pts ...geom.Point) *model.Segment {
	t.Helper()
	c, err := geom.NewStraight(pts...)
	if err != nil {
		t.Fatalf("segment %s: %v", id, err)
	}
	return model.NewSegment(c, model.SegmentMeta{ID: id})
}

func forkNetwork(t *testing.T) []*model.Segment {
	return []*model.Segment{
		straight(t, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0}),
		straight(t, "B", geom.Point{X: 10, Y: 0}, geom.Point{X: 20, Y: 0}),
		straight(t, "C", geom.Point{X: 10, Y: 0}, geom.Point{X: 10, Y: 10}),
	}
}

func TestShortestPathFork(t *testing.T) {
	segs := forkNetwork(t)
	g := Build(segs, DefaultTol)

	p, cost, ok := g.ShortestPath(0, 1)
	if !ok {
		t.Fatal("A->B unreachable")
	}
	if !reflect.DeepEqual(p, []int{0, 1}) {
		t.Errorf("A->B path=%v", p)
	}
	if math.Abs(cost-10) > 1e-9 {
		t.Errorf("A->B cost=%v, want 10", cost)
	}

	p, _, ok = g.ShortestPath(0, 2)
	if !ok || !reflect.DeepEqual(p, []int{0, 2}) {
		t.Errorf("A->C path=%v ok=%v", p, ok)
	}
}

func TestShortestPathPrefersLowerCost(t *testing.T) {
	// Two routes from A to D: via short B (10 m) or long C (30 m).
	segs := []*model.Segment{
		straight(t, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0}),
		straight(t, "B", geom.Point{X: 10, Y: 0}, geom.Point{X: 20, Y: 0}),
		straight(t, "C", geom.Point{X: 10, Y: 0}, geom.Point{X: 20, Y: 0}, geom.Point{X: 20, Y: 10}, geom.Point{X: 20, Y: 0}),
		straight(t, "D", geom.Point{X: 20, Y: 0}, geom.Point{X: 30, Y: 0}),
	}
	g := Build(segs, DefaultTol)
	p, cost, ok := g.ShortestPath(0, 3)
	if !ok {
		t.Fatal("A->D unreachable")
	}
	if !reflect.DeepEqual(p, []int{0, 1, 3}) {
		t.Errorf("path=%v, want via B", p)
	}
	if math.Abs(cost-20) > 1e-9 {
		t.Errorf("cost=%v, want 20", cost)
	}
}

func TestUnreachableWithoutRetry(t *testing.T) {
	// D starts 0.1 m from A's end: outside tol 0.05, inside 0.25.
	segs := []*model.Segment{
		straight(t, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0}),
		straight(t, "D", geom.Point{X: 10.1, Y: 0}, geom.Point{X: 30, Y: 0}),
	}
	if _, _, ok := Build(segs, DefaultTol).ShortestPath(0, 1); ok {
		t.Error("expected failure at default tolerance")
	}
	p, err := Resolve(segs, 0, 1, DefaultTol)
	if err != nil {
		t.Fatalf("retry at relaxed tolerance failed: %v", err)
	}
	if !reflect.DeepEqual(p, []int{0, 1}) {
		t.Errorf("path=%v", p)
	}
}

func TestResolveReportsEndpoints(t *testing.T) {
	segs := []*model.Segment{
		straight(t, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0}),
		straight(t, "Z", geom.Point{X: 500, Y: 500}, geom.Point{X: 600, Y: 500}),
	}
	_, err := Resolve(segs, 0, 1, DefaultTol)
	if err == nil {
		t.Fatal("expected routing error")
	}
	for _, want := range []string{`"A"`, `"Z"`, "10.000", "500.000"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestBuildDeterminism(t *testing.T) {
	segs := forkNetwork(t)
	e1 := Build(segs, DefaultTol).Edges()
	e2 := Build(segs, DefaultTol).Edges()
	if !reflect.DeepEqual(e1, e2) {
		t.Errorf("adjacency differs between builds: %v vs %v", e1, e2)
	}
	want := [][2]int{{0, 1}, {0, 2}}
	if !reflect.DeepEqual(e1, want) {
		t.Errorf("edges=%v, want %v", e1, want)
	}
}
