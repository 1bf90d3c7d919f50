// Package config loads JSON simulation configurations and builds engines
// from them.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"roadsim/backend/geom"
	"roadsim/backend/model"
	"roadsim/backend/sim"
)

// Auto-control tunables for quadratic curves: tangent and normal offsets
// scaled by the endpoint distance.
const (
	DefaultControlScale  = 0.35
	DefaultControlOffset = 0.25
)

// File is the top-level JSON configuration layout.
type File struct {
	Segments          []SegmentConfig   `json:"segments"`
	Vehicles          []VehicleConfig   `json:"vehicles"`
	VehicleGenerators []GeneratorConfig `json:"vehicle_generators"`
	Environment       []model.Attrs     `json:"environment"`
	Events            []EventConfig     `json:"events"`
	Junctions         []JunctionConfig  `json:"junctions"`
	UI                map[string]any    `json:"ui"`
}

// SegmentConfig describes one segment entry of any geometry type.
type SegmentConfig struct {
	Type string `json:"type"` // "segment" (default), "quadratic", "cubic"
	ID   string `json:"id"`

	Start    *[2]float64  `json:"start"`
	End      *[2]float64  `json:"end"`
	Control  *[2]float64  `json:"control"`
	Control1 *[2]float64  `json:"control_1"`
	Control2 *[2]float64  `json:"control_2"`
	Points   [][2]float64 `json:"points"`

	AutoControl   bool     `json:"auto_control"`
	ControlScale  *float64 `json:"control_scale"`
	ControlOffset *float64 `json:"control_offset"`
	ConnectFrom   string   `json:"connect_from"`
	ConnectTo     string   `json:"connect_to"`
	ConnectToEnd  bool     `json:"connect_to_end"`

	Category      string  `json:"category"`
	Material      string  `json:"material"`
	MaxSpeed      float64 `json:"max_speed"`
	Width         float64 `json:"width"`
	Color         []int   `json:"color"`
	DirectionHint string  `json:"direction_hint"`
}

func (c SegmentConfig) meta() model.SegmentMeta {
	return model.SegmentMeta{
		ID:            c.ID,
		Category:      c.Category,
		Material:      c.Material,
		MaxSpeed:      c.MaxSpeed,
		Width:         c.Width,
		Color:         c.Color,
		DirectionHint: c.DirectionHint,
	}
}

// VehicleConfig describes one explicitly placed vehicle.
type VehicleConfig struct {
	ID string `json:"id"`

	L    *float64 `json:"l"`
	S0   *float64 `json:"s0"`
	T    *float64 `json:"t"`
	VMax *float64 `json:"v_max"`
	AMax *float64 `json:"a_max"`
	BMax *float64 `json:"b_max"`

	X       *float64 `json:"x"`
	V       *float64 `json:"v"`
	Stopped bool     `json:"stopped"`

	Path         []any  `json:"path"`
	StartSegment string `json:"start_segment"`
	EndSegment   string `json:"end_segment"`

	Class string `json:"vehicle_class"`
	Color []int  `json:"color"`
	Shape string `json:"shape"`

	EngineType   string  `json:"engine_type"`
	CO2Emission  float64 `json:"co2_emission"`
	RPM          float64 `json:"rpm"`
	ACTemp       float64 `json:"ac_temp"`
	AmbientLight float64 `json:"ambient_light"`
	FogLights    bool    `json:"fog_lights"`
	RainSensor   bool    `json:"rain_sensor"`
}

func (c VehicleConfig) spec() model.VehicleSpec {
	return model.VehicleSpec{
		ID:       c.ID,
		Length:   c.L,
		MinGap:   c.S0,
		Headway:  c.T,
		MaxSpeed: c.VMax,
		MaxAccel: c.AMax,
		MaxDecel: c.BMax,
		X:        c.X,
		V:        c.V,
		Stopped:  c.Stopped,
		Class:    c.Class,
		Color:    c.Color,
		Shape:    c.Shape,
		Telemetry: model.Telemetry{
			EngineType:   c.EngineType,
			CO2Emission:  c.CO2Emission,
			RPM:          c.RPM,
			ACTemp:       c.ACTemp,
			AmbientLight: c.AmbientLight,
			FogLights:    c.FogLights,
			RainSensor:   c.RainSensor,
		},
	}
}

func (c VehicleConfig) route() sim.RouteSpec {
	return sim.RouteSpec{
		Path:         c.Path,
		StartSegment: c.StartSegment,
		EndSegment:   c.EndSegment,
	}
}

// WeightedVehicle is one (weight, template) pair of a generator, encoded
// in JSON as a two-element array.
type WeightedVehicle struct {
	Weight float64
	Config VehicleConfig
}

// UnmarshalJSON decodes the [weight, {template}] pair form.
func (w *WeightedVehicle) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("generator vehicle entry needs [weight, template], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &w.Weight); err != nil {
		return fmt.Errorf("generator vehicle weight: %w", err)
	}
	if err := json.Unmarshal(pair[1], &w.Config); err != nil {
		return fmt.Errorf("generator vehicle template: %w", err)
	}
	return nil
}

// GeneratorConfig describes one vehicle generator.
type GeneratorConfig struct {
	Rate     float64           `json:"rate"` // vehicles per minute
	Vehicles []WeightedVehicle `json:"vehicles"`
}

// EventConfig describes one timed event.
type EventConfig struct {
	ID          string   `json:"id"`
	SegmentID   string   `json:"segment_id"`
	Offset      *float64 `json:"offset"`
	StartTime   float64  `json:"start_time"`
	Duration    *float64 `json:"duration"`
	EndTime     *float64 `json:"end_time"`
	SpeedFactor *float64 `json:"speed_factor"`
	Type        string   `json:"type"`
	Color       []int    `json:"color"`
}

// ApproachConfig describes one junction approach.
type ApproachConfig struct {
	SegmentID  string   `json:"segment_id"`
	Type       string   `json:"type"`
	Offset     *float64 `json:"offset"`
	Green      *float64 `json:"green"`
	Red        *float64 `json:"red"`
	Phase      string   `json:"phase"`
	PhaseStart *float64 `json:"phase_start"`
}

// JunctionConfig describes one junction.
type JunctionConfig struct {
	ID         string           `json:"id"`
	Approaches []ApproachConfig `json:"approaches"`
}

// LoadFile parses a JSON configuration file.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	var cfg File
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// Load parses a configuration file and builds the simulation, returning
// the opaque UI settings alongside.
func Load(path string) (*sim.Simulation, map[string]any, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg.UI, nil
}

// Build constructs a simulation from a parsed configuration. Any invalid
// entry fails the whole build; no partial configuration is accepted.
func Build(cfg *File) (*sim.Simulation, error) {
	s := sim.New()

	for i, sc := range cfg.Segments {
		if err := buildSegment(s, sc); err != nil {
			return nil, fmt.Errorf("segments[%d]: %w", i, err)
		}
	}
	for i, vc := range cfg.Vehicles {
		if _, err := s.CreateVehicle(vc.spec(), vc.route()); err != nil {
			return nil, fmt.Errorf("vehicles[%d]: %w", i, err)
		}
	}
	for i, gc := range cfg.VehicleGenerators {
		specs := make([]sim.WeightedSpec, len(gc.Vehicles))
		for k, wv := range gc.Vehicles {
			specs[k] = sim.WeightedSpec{
				Weight: wv.Weight,
				Spec:   wv.Config.spec(),
				Route:  wv.Config.route(),
			}
		}
		if _, err := s.CreateVehicleGenerator(gc.Rate, specs); err != nil {
			return nil, fmt.Errorf("vehicle_generators[%d]: %w", i, err)
		}
	}
	for _, obj := range cfg.Environment {
		s.AddEnvironmentObject(obj)
	}
	for _, ec := range cfg.Events {
		ev := &sim.Event{
			ID:          ec.ID,
			SegmentID:   ec.SegmentID,
			Offset:      0.5,
			StartTime:   ec.StartTime,
			Duration:    ec.Duration,
			EndTime:     ec.EndTime,
			SpeedFactor: 1.0,
			Type:        ec.Type,
		}
		if ec.Offset != nil {
			ev.Offset = *ec.Offset
		}
		if ec.SpeedFactor != nil {
			ev.SpeedFactor = *ec.SpeedFactor
		}
		if ec.Color != nil {
			ev.Attrs = model.Attrs{"color": ec.Color}
		}
		s.AddEvent(ev)
	}
	for i, jc := range cfg.Junctions {
		j := &sim.Junction{ID: jc.ID}
		for _, ac := range jc.Approaches {
			a := sim.Approach{
				SegmentID:    ac.SegmentID,
				Type:         sim.ApproachType(ac.Type),
				InitialPhase: sim.Phase(ac.Phase),
			}
			if ac.Offset != nil {
				a.Offset = *ac.Offset
			}
			if ac.Green != nil {
				a.Green = *ac.Green
			}
			if ac.Red != nil {
				a.Red = *ac.Red
			}
			if ac.PhaseStart != nil {
				a.PhaseStart = *ac.PhaseStart
			}
			j.Approaches = append(j.Approaches, a)
		}
		if err := s.AddJunction(j); err != nil {
			return nil, fmt.Errorf("junctions[%d]: %w", i, err)
		}
	}
	return s, nil
}

func point(p *[2]float64) geom.Point {
	return geom.Point{X: p[0], Y: p[1]}
}

func buildSegment(s *sim.Simulation, sc SegmentConfig) error {
	switch sc.Type {
	case "quadratic":
		return buildQuadratic(s, sc)
	case "cubic":
		if sc.Start == nil || sc.Control1 == nil || sc.Control2 == nil || sc.End == nil {
			return fmt.Errorf("cubic segment %q requires start, control_1, control_2, end", sc.ID)
		}
		_, err := s.CreateCubicBezierCurve(point(sc.Start), point(sc.Control1), point(sc.Control2), point(sc.End), sc.meta())
		return err
	default: // straight
		pts := make([]geom.Point, 0, len(sc.Points)+2)
		for _, p := range sc.Points {
			pts = append(pts, geom.Point{X: p[0], Y: p[1]})
		}
		// Shorthand start/end for straight segments.
		if len(pts) == 0 && sc.Start != nil && sc.End != nil {
			pts = append(pts, point(sc.Start), point(sc.End))
		}
		if len(pts) == 0 {
			return fmt.Errorf("segment %q has no points/start/end defined", sc.ID)
		}
		_, err := s.CreateSegment(pts, sc.meta())
		return err
	}
}

func buildQuadratic(s *sim.Simulation, sc SegmentConfig) error {
	var start, end geom.Point
	haveStart, haveEnd := sc.Start != nil, sc.End != nil
	if haveStart {
		start = point(sc.Start)
	}
	if haveEnd {
		end = point(sc.End)
	}

	// Snap to other segments when requested.
	if sc.ConnectFrom != "" {
		p, err := endpointOf(s, sc.ConnectFrom, true)
		if err != nil {
			return err
		}
		start, haveStart = p, true
	}
	if sc.ConnectTo != "" {
		p, err := endpointOf(s, sc.ConnectTo, sc.ConnectToEnd)
		if err != nil {
			return err
		}
		end, haveEnd = p, true
	}
	if !haveStart || !haveEnd {
		return fmt.Errorf("quadratic segment %q requires start/end or connect_from/connect_to", sc.ID)
	}

	var control geom.Point
	scale := DefaultControlScale
	if sc.ControlScale != nil {
		scale = *sc.ControlScale
	}
	if sc.AutoControl || sc.Control == nil {
		lateral := DefaultControlOffset
		if sc.ControlOffset != nil {
			lateral = *sc.ControlOffset
		}
		c, err := autoQuadraticControl(s, start, end, sc.ConnectFrom, scale, lateral)
		if err != nil {
			return err
		}
		control = c
	} else {
		control = point(sc.Control)
	}

	_, err := s.CreateQuadraticBezierCurve(start, control, end, sc.meta())
	return err
}

// endpointOf returns the referenced segment's start or end endpoint.
func endpointOf(s *sim.Simulation, segID string, atEnd bool) (geom.Point, error) {
	idx, ok := s.SegmentIndex(segID)
	if !ok {
		return geom.Point{}, fmt.Errorf("cannot connect: segment id %q not found", segID)
	}
	seg := s.Segments[idx]
	if atEnd {
		return seg.EndPoint(), nil
	}
	return seg.StartPoint(), nil
}

// autoQuadraticControl derives a control point from the exit tangent of
// the reference segment (or the chord direction), offset along the tangent
// and normal in proportion to the endpoint distance. The formula matches
// the established config format; it is heuristic, not curvature-derived.
func autoQuadraticControl(s *sim.Simulation, start, end geom.Point, refSeg string, scale, lateral float64) (geom.Point, error) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return start, nil
	}

	var dirX, dirY float64
	if refSeg != "" {
		idx, ok := s.SegmentIndex(refSeg)
		if !ok {
			return geom.Point{}, fmt.Errorf("cannot get heading: segment id %q not found", refSeg)
		}
		heading := s.Segments[idx].Curve.Heading(0.999)
		dirX, dirY = math.Cos(heading), math.Sin(heading)
	} else {
		dirX, dirY = dx/dist, dy/dist
	}
	normalX, normalY := -dirY, dirX

	return geom.Point{
		X: start.X + dirX*dist*scale + normalX*dist*lateral,
		Y: start.Y + dirY*dist*scale + normalY*dist*lateral,
	}, nil
}
