// Package routing builds the directed connectivity graph over segment
// endpoints and resolves shortest paths across it.
package routing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"roadsim/backend/model"
)

const (
	// DefaultTol is the endpoint snapping tolerance in meters.
	DefaultTol = 0.05
	// RetryTolFactor relaxes the tolerance on the second build attempt.
	RetryTolFactor = 5.0
)

// gridKey quantises an endpoint to the snapping grid.
type gridKey struct {
	x, y int64
}

func quantise(x, y, tol float64) gridKey {
	return gridKey{x: int64(math.Round(x / tol)), y: int64(math.Round(y / tol))}
}

// Graph is the routing graph over a fixed set of segments. Nodes are
// segment indices; an edge u->v exists when u's end endpoint coincides
// with v's start endpoint within the snapping tolerance, weighted by the
// length of v.
type Graph struct {
	Tol  float64
	segs []*model.Segment
	g    *simple.WeightedDirectedGraph
}

// Build constructs the graph for the given segments and tolerance.
func Build(segs []*model.Segment, tol float64) *Graph {
	if tol <= 0 {
		tol = DefaultTol
	}
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i := range segs {
		g.AddNode(simple.Node(i))
	}

	starts := make(map[gridKey][]int, len(segs))
	for i, s := range segs {
		p := s.StartPoint()
		k := quantise(p.X, p.Y, tol)
		starts[k] = append(starts[k], i)
	}
	for u, s := range segs {
		p := s.EndPoint()
		k := quantise(p.X, p.Y, tol)
		for _, v := range starts[k] {
			if u == v {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(int64(u)),
				T: simple.Node(int64(v)),
				W: segs[v].Length(),
			})
		}
	}
	return &Graph{Tol: tol, segs: segs, g: g}
}

// ShortestPath runs Dijkstra from segment index from to segment index to.
// The returned path includes both endpoints; ok is false when to is
// unreachable.
func (gr *Graph) ShortestPath(from, to int) (pathIdx []int, cost float64, ok bool) {
	if from < 0 || from >= len(gr.segs) || to < 0 || to >= len(gr.segs) {
		return nil, 0, false
	}
	shortest := path.DijkstraFrom(gr.g.Node(int64(from)), gr.g)
	nodes, w := shortest.To(int64(to))
	if len(nodes) == 0 || math.IsInf(w, 1) {
		return nil, 0, false
	}
	pathIdx = make([]int, len(nodes))
	for i, n := range nodes {
		pathIdx[i] = int(n.ID())
	}
	return pathIdx, w, true
}

// Edges lists every directed edge as an index pair, sorted for stable
// comparison between builds.
func (gr *Graph) Edges() [][2]int {
	var out [][2]int
	it := gr.g.Edges()
	for it.Next() {
		e := it.Edge()
		out = append(out, [2]int{int(e.From().ID()), int(e.To().ID())})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// Resolve finds the shortest path between two segments, retrying once at a
// relaxed tolerance before reporting an unreachable pair with the endpoints
// involved.
func Resolve(segs []*model.Segment, from, to int, tol float64) ([]int, error) {
	g := Build(segs, tol)
	if p, _, ok := g.ShortestPath(from, to); ok {
		return p, nil
	}
	relaxed := Build(segs, tol*RetryTolFactor)
	if p, _, ok := relaxed.ShortestPath(from, to); ok {
		return p, nil
	}
	return nil, fmt.Errorf(
		"no route from segment %s to segment %s: end endpoint (%.3f, %.3f) does not reach start endpoint (%.3f, %.3f) at tolerance %.2g or %.2g",
		describeSegment(segs, from), describeSegment(segs, to),
		segs[from].EndPoint().X, segs[from].EndPoint().Y,
		segs[to].StartPoint().X, segs[to].StartPoint().Y,
		tol, tol*RetryTolFactor)
}

func describeSegment(segs []*model.Segment, idx int) string {
	if id := segs[idx].Meta.ID; id != "" {
		return fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf("#%d", idx)
}
