package sim

import (
	"fmt"

	"roadsim/backend/model"
)

// Event is a timed disruption (accident, roadworks, animal crossing) bound
// to a position along one segment. While active it caps the speed of
// vehicles approaching that position.
type Event struct {
	ID          string      `json:"id"`
	SegmentID   string      `json:"segment_id"`
	Offset      float64     `json:"offset"`     // position along the segment in [0,1]
	StartTime   float64     `json:"start_time"` // simulation seconds
	Duration    *float64    `json:"duration,omitempty"`
	EndTime     *float64    `json:"end_time,omitempty"`
	SpeedFactor float64     `json:"speed_factor"` // in [0,1]
	Type        string      `json:"type,omitempty"`
	Attrs       model.Attrs `json:"attrs,omitempty"`

	// Active is derived from the clock on every refresh.
	Active bool `json:"active"`
}

// eventMarker is an active event projected to an absolute segment position.
type eventMarker struct {
	pos    float64
	factor float64
	ev     *Event
}

// AddEvent registers a timed event, assigning an id when missing.
func (s *Simulation) AddEvent(ev *Event) {
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("event_%d", len(s.Events))
	}
	s.Events = append(s.Events, ev)
}

// refreshEvents recomputes the active set and the per-segment factor tables.
// Overlapping events compound conservatively: the minimum factor wins.
func (s *Simulation) refreshEvents() {
	s.segmentEventFactors = make(map[int]float64)
	s.segmentEventsByIdx = make(map[int][]eventMarker)
	active := make(map[string]struct{})

	for _, ev := range s.Events {
		end := ev.EndTime
		if end == nil && ev.Duration != nil {
			e := ev.StartTime + *ev.Duration
			end = &e
		}
		ev.Active = s.T >= ev.StartTime && (end == nil || s.T < *end)
		if !ev.Active {
			continue
		}
		active[ev.ID] = struct{}{}

		segIdx, ok := s.segmentByID[ev.SegmentID]
		if !ok {
			continue
		}
		seg := s.Segments[segIdx]
		pos := ev.Offset * seg.Length()

		current, seen := s.segmentEventFactors[segIdx]
		if !seen || ev.SpeedFactor < current {
			s.segmentEventFactors[segIdx] = ev.SpeedFactor
		}
		s.segmentEventsByIdx[segIdx] = append(s.segmentEventsByIdx[segIdx],
			eventMarker{pos: pos, factor: ev.SpeedFactor, ev: ev})
	}
	s.activeEventIDs = active
}
