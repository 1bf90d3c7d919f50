// Package sim implements the deterministic fixed-timestep traffic engine.
//
// One tick runs, in order: junction phase advance, event refresh, vehicle
// longitudinal updates (segment-index ascending, head-to-tail within each
// segment), segment handover, vehicle generation, time advance.
package sim

import (
	"fmt"
	"math"

	"roadsim/backend/geom"
	"roadsim/backend/model"
	"roadsim/backend/routing"
)

// DefaultEventLookahead is the distance in meters over which events ahead
// of a vehicle influence its speed cap.
const DefaultEventLookahead = 50.0

// RouteSpec describes how a vehicle's path through the network is chosen:
// either an explicit list of segment references (string ids or numeric
// indices), or a start/end pair resolved through the routing graph.
type RouteSpec struct {
	Path         []any
	StartSegment string
	EndSegment   string
}

// Simulation owns every segment, vehicle, event, junction and generator
// for the lifetime of a run. A single Update call is one atomic tick.
type Simulation struct {
	Segments    []*model.Segment
	segmentByID map[string]int

	// Vehicles is the sole owner of vehicle state; segment queues hold ids.
	Vehicles map[string]*model.Vehicle

	Generators  []*VehicleGenerator
	Environment []model.Attrs
	Events      []*Event
	Junctions   []*Junction

	junctionByID  map[string]*Junction
	approachState map[approachKey]*lightState

	activeEventIDs      map[string]struct{}
	segmentEventFactors map[int]float64
	segmentEventsByIdx  map[int][]eventMarker
	segmentJunctions    map[int][]approachView
	EventLookahead      float64

	graph      *routing.Graph
	graphDirty bool
	GraphTol   float64

	Seed       int64
	T          float64
	FrameCount uint64
	Dt         float64
}

// New returns an empty simulation with default timestep and tolerances.
func New() *Simulation {
	return &Simulation{
		segmentByID:    make(map[string]int),
		Vehicles:       make(map[string]*model.Vehicle),
		junctionByID:   make(map[string]*Junction),
		approachState:  make(map[approachKey]*lightState),
		activeEventIDs: make(map[string]struct{}),
		EventLookahead: DefaultEventLookahead,
		GraphTol:       routing.DefaultTol,
		Dt:             1.0 / 60.0,
	}
}

// AddSegment registers a segment, indexing its id when present. The
// routing graph is marked dirty and rebuilt lazily.
func (s *Simulation) AddSegment(seg *model.Segment) error {
	if id := seg.Meta.ID; id != "" {
		if _, dup := s.segmentByID[id]; dup {
			return fmt.Errorf("segment id %q already exists", id)
		}
		s.segmentByID[id] = len(s.Segments)
	}
	s.Segments = append(s.Segments, seg)
	s.graphDirty = true
	return nil
}

// CreateSegment builds a straight polyline segment and registers it.
func (s *Simulation) CreateSegment(points []geom.Point, meta model.SegmentMeta) (*model.Segment, error) {
	c, err := geom.NewStraight(points...)
	if err != nil {
		return nil, fmt.Errorf("segment %q: %w", meta.ID, err)
	}
	seg := model.NewSegment(c, meta)
	if err := s.AddSegment(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// CreateQuadraticBezierCurve builds a quadratic Bézier segment and
// registers it.
func (s *Simulation) CreateQuadraticBezierCurve(start, control, end geom.Point, meta model.SegmentMeta) (*model.Segment, error) {
	c, err := geom.NewQuadratic(start, control, end)
	if err != nil {
		return nil, fmt.Errorf("segment %q: %w", meta.ID, err)
	}
	seg := model.NewSegment(c, meta)
	if err := s.AddSegment(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// CreateCubicBezierCurve builds a cubic Bézier segment and registers it.
func (s *Simulation) CreateCubicBezierCurve(start, c1, c2, end geom.Point, meta model.SegmentMeta) (*model.Segment, error) {
	c, err := geom.NewCubic(start, c1, c2, end)
	if err != nil {
		return nil, fmt.Errorf("segment %q: %w", meta.ID, err)
	}
	seg := model.NewSegment(c, meta)
	if err := s.AddSegment(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// SegmentIndex resolves a segment id to its index.
func (s *Simulation) SegmentIndex(id string) (int, bool) {
	idx, ok := s.segmentByID[id]
	return idx, ok
}

// ResolvePath turns a path specification (string ids or numeric indices)
// into segment indices.
func (s *Simulation) ResolvePath(refs []any) ([]int, error) {
	resolved := make([]int, 0, len(refs))
	for _, ref := range refs {
		switch r := ref.(type) {
		case string:
			idx, ok := s.segmentByID[r]
			if !ok {
				return nil, fmt.Errorf("unknown segment id %q in path", r)
			}
			resolved = append(resolved, idx)
		case int:
			if r < 0 || r >= len(s.Segments) {
				return nil, fmt.Errorf("segment index %d out of range", r)
			}
			resolved = append(resolved, r)
		case float64: // JSON numbers decode as float64
			i := int(r)
			if i < 0 || i >= len(s.Segments) {
				return nil, fmt.Errorf("segment index %d out of range", i)
			}
			resolved = append(resolved, i)
		default:
			return nil, fmt.Errorf("unsupported path entry %v (%T)", ref, ref)
		}
	}
	return resolved, nil
}

// resolveRoute produces the vehicle's segment-index path from a RouteSpec,
// auto-routing through the graph when start/end are given.
func (s *Simulation) resolveRoute(route RouteSpec) ([]int, error) {
	if len(route.Path) > 0 {
		return s.ResolvePath(route.Path)
	}
	if route.StartSegment != "" && route.EndSegment != "" {
		from, ok := s.segmentByID[route.StartSegment]
		if !ok {
			return nil, fmt.Errorf("unknown start segment %q", route.StartSegment)
		}
		to, ok := s.segmentByID[route.EndSegment]
		if !ok {
			return nil, fmt.Errorf("unknown end segment %q", route.EndSegment)
		}
		return s.ShortestPath(from, to)
	}
	return nil, fmt.Errorf("vehicle route needs either a path or start/end segments")
}

// ShortestPath resolves a path between two segment indices, rebuilding the
// graph if segments changed since the last query.
func (s *Simulation) ShortestPath(from, to int) ([]int, error) {
	if s.graphDirty || s.graph == nil {
		s.graph = routing.Build(s.Segments, s.GraphTol)
		s.graphDirty = false
	}
	if p, _, ok := s.graph.ShortestPath(from, to); ok {
		return p, nil
	}
	// One retry at a relaxed tolerance before giving up with a diagnostic.
	return routing.Resolve(s.Segments, from, to, s.GraphTol)
}

// AddVehicle registers a vehicle whose Path is already resolved and places
// it on its first segment.
func (s *Simulation) AddVehicle(v *model.Vehicle) error {
	if _, dup := s.Vehicles[v.ID]; dup {
		return fmt.Errorf("vehicle id %q already exists", v.ID)
	}
	s.Vehicles[v.ID] = v
	if len(v.Path) > 0 {
		s.Segments[v.Path[0]].PushVehicle(v.ID)
	}
	return nil
}

// CreateVehicle builds a vehicle from a spec and route and registers it.
func (s *Simulation) CreateVehicle(spec model.VehicleSpec, route RouteSpec) (*model.Vehicle, error) {
	path, err := s.resolveRoute(route)
	if err != nil {
		return nil, fmt.Errorf("vehicle %q: %w", spec.ID, err)
	}
	v := model.NewVehicle(spec)
	v.Path = path
	if err := s.AddVehicle(v); err != nil {
		return nil, err
	}
	return v, nil
}

// AddEnvironmentObject registers an opaque static object (tree, lamp, RSU)
// carried for the renderer only.
func (s *Simulation) AddEnvironmentObject(obj model.Attrs) {
	s.Environment = append(s.Environment, obj)
}

// Run advances the simulation by the given number of ticks.
func (s *Simulation) Run(steps int) {
	for i := 0; i < steps; i++ {
		s.Update()
	}
}

// Update advances the simulation by one tick.
func (s *Simulation) Update() {
	s.updateJunctions()
	s.refreshEvents()

	// Longitudinal updates: heads drive free, followers trail their
	// predecessor in queue order.
	for segIdx, segment := range s.Segments {
		n := segment.NumVehicles()
		if n == 0 {
			continue
		}
		lead := s.Vehicles[segment.VehicleAt(0)]
		lead.VMax = lead.BaseVMax * s.speedFactor(segIdx, lead)
		lead.Update(nil, s.Dt)
		for i := 1; i < n; i++ {
			veh := s.Vehicles[segment.VehicleAt(i)]
			ahead := s.Vehicles[segment.VehicleAt(i-1)]
			veh.VMax = veh.BaseVMax * s.speedFactor(segIdx, veh)
			veh.Update(ahead, s.Dt)
		}
	}

	// Handover pass: only the head can cross, so a vehicle moves over at
	// most one boundary per tick.
	for _, segment := range s.Segments {
		id, ok := segment.Lead()
		if !ok {
			continue
		}
		veh := s.Vehicles[id]
		if veh.X < segment.Length() {
			continue
		}
		if veh.CurrentRoadIndex+1 < len(veh.Path) {
			veh.CurrentRoadIndex++
			next := veh.Path[veh.CurrentRoadIndex]
			s.Segments[next].PushVehicle(id)
		}
		veh.X = 0
		segment.PopLead()
	}

	for _, gen := range s.Generators {
		gen.update(s)
	}

	s.T += s.Dt
	s.FrameCount++
}

// speedFactor is the minimum over event restrictions ahead on the current
// and next segment and the junction factor.
func (s *Simulation) speedFactor(segIdx int, veh *model.Vehicle) float64 {
	factor := 1.0
	segLen := s.Segments[segIdx].Length()
	remaining := math.Max(0, segLen-veh.X)

	for _, m := range s.segmentEventsByIdx[segIdx] {
		distAhead := m.pos - veh.X
		if distAhead >= 0 && distAhead <= s.EventLookahead {
			factor = math.Min(factor, m.factor)
		}
	}

	if remaining <= s.EventLookahead && veh.CurrentRoadIndex+1 < len(veh.Path) {
		nextIdx := veh.Path[veh.CurrentRoadIndex+1]
		for _, m := range s.segmentEventsByIdx[nextIdx] {
			if remaining+m.pos <= s.EventLookahead {
				factor = math.Min(factor, m.factor)
			}
		}
	}

	return math.Min(factor, s.junctionFactor(segIdx, veh))
}

// ActiveEventIDs reports the ids of events active as of the last tick.
func (s *Simulation) ActiveEventIDs() map[string]struct{} {
	return s.activeEventIDs
}
