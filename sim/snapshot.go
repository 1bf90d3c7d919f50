package sim

import (
	"github.com/samber/lo"

	"roadsim/backend/geom"
	"roadsim/backend/model"
)

// SegmentState is the per-tick view of one segment.
type SegmentState struct {
	Index      int      `json:"index"`
	ID         string   `json:"id,omitempty"`
	Length     float64  `json:"length"`
	VehicleIDs []string `json:"vehicle_ids"`
}

// VehicleState is the per-tick view of one vehicle.
type VehicleState struct {
	ID       string  `json:"id"`
	Segment  int     `json:"segment"`
	X        float64 `json:"x"`
	V        float64 `json:"v"`
	Class    string  `json:"vehicle_class"`
	Shape    string  `json:"shape"`
	Color    []int   `json:"color"`
	Odometer float64 `json:"odometer"`
}

// EventState is the per-tick view of one event.
type EventState struct {
	ID        string  `json:"id"`
	SegmentID string  `json:"segment_id"`
	Active    bool    `json:"active"`
	Pos       float64 `json:"pos"`
	Factor    float64 `json:"factor"`
	Type      string  `json:"type,omitempty"`
}

// ApproachState is the per-tick view of one junction approach.
type ApproachState struct {
	SegmentID string       `json:"segment_id"`
	Type      ApproachType `json:"type"`
	Offset    float64      `json:"offset"`
	Phase     Phase        `json:"phase"`
}

// JunctionState is the per-tick view of one junction.
type JunctionState struct {
	ID         string          `json:"id"`
	Approaches []ApproachState `json:"approaches"`
}

// Snapshot is an immutable view of the simulation between two ticks,
// consumed by the renderer and by tests.
type Snapshot struct {
	T          float64         `json:"t"`
	FrameCount uint64          `json:"frame_count"`
	Segments   []SegmentState  `json:"segments"`
	Vehicles   []VehicleState  `json:"vehicles"`
	Events     []EventState    `json:"events"`
	Junctions  []JunctionState `json:"junctions"`
}

// SegmentScene is the static geometry of one segment for the renderer.
type SegmentScene struct {
	Index  int               `json:"index"`
	ID     string            `json:"id,omitempty"`
	Points []geom.Point      `json:"points"`
	Length float64           `json:"length"`
	Meta   model.SegmentMeta `json:"meta"`
}

// Scene is the static world description served once per connection.
type Scene struct {
	Segments    []SegmentScene `json:"segments"`
	Environment []model.Attrs  `json:"environment"`
}

// Snapshot captures the current simulation state. The result shares no
// mutable storage with the engine.
func (s *Simulation) Snapshot() Snapshot {
	segs := lo.Map(s.Segments, func(seg *model.Segment, i int) SegmentState {
		return SegmentState{
			Index:      i,
			ID:         seg.Meta.ID,
			Length:     seg.Length(),
			VehicleIDs: seg.VehicleIDs(),
		}
	})

	vehicles := make([]VehicleState, 0, len(s.Vehicles))
	for i := range s.Segments {
		for _, id := range segs[i].VehicleIDs {
			v := s.Vehicles[id]
			vehicles = append(vehicles, VehicleState{
				ID:       v.ID,
				Segment:  i,
				X:        v.X,
				V:        v.V,
				Class:    v.Class,
				Shape:    v.Shape,
				Color:    v.Color,
				Odometer: v.Odometer,
			})
		}
	}

	events := lo.Map(s.Events, func(ev *Event, _ int) EventState {
		pos := 0.0
		if idx, ok := s.segmentByID[ev.SegmentID]; ok {
			pos = ev.Offset * s.Segments[idx].Length()
		}
		return EventState{
			ID:        ev.ID,
			SegmentID: ev.SegmentID,
			Active:    ev.Active,
			Pos:       pos,
			Factor:    ev.SpeedFactor,
			Type:      ev.Type,
		}
	})

	junctions := lo.Map(s.Junctions, func(j *Junction, _ int) JunctionState {
		return JunctionState{
			ID: j.ID,
			Approaches: lo.Map(j.Approaches, func(a Approach, _ int) ApproachState {
				phase := PhaseGreen
				if a.Type == ApproachLight {
					if st := s.approachState[approachKey{j.ID, a.SegmentID}]; st != nil {
						phase = st.phase
					}
				}
				return ApproachState{
					SegmentID: a.SegmentID,
					Type:      a.Type,
					Offset:    a.Offset,
					Phase:     phase,
				}
			}),
		}
	})

	return Snapshot{
		T:          s.T,
		FrameCount: s.FrameCount,
		Segments:   segs,
		Vehicles:   vehicles,
		Events:     events,
		Junctions:  junctions,
	}
}

// SceneDescription captures the static world for the renderer.
func (s *Simulation) SceneDescription() Scene {
	return Scene{
		Segments: lo.Map(s.Segments, func(seg *model.Segment, i int) SegmentScene {
			return SegmentScene{
				Index:  i,
				ID:     seg.Meta.ID,
				Points: seg.Curve.Polyline(),
				Length: seg.Length(),
				Meta:   seg.Meta,
			}
		}),
		Environment: s.Environment,
	}
}
