package model

import (
	"github.com/gammazero/deque"

	"roadsim/backend/geom"
)

// Attrs carries renderer/telemetry metadata the core does not interpret.
type Attrs map[string]any

// SegmentMeta is the opaque descriptive metadata a segment carries.
type SegmentMeta struct {
	ID            string  `json:"id,omitempty"`
	Category      string  `json:"category,omitempty"`
	Material      string  `json:"material,omitempty"`
	MaxSpeed      float64 `json:"max_speed,omitempty"`
	Width         float64 `json:"width,omitempty"`
	Color         []int   `json:"color,omitempty"`
	DirectionHint string  `json:"direction_hint,omitempty"`
}

// Segment is one directional road piece: a curve plus the FIFO of vehicle
// ids currently on it. The queue head is the front-most vehicle (largest
// progress x); the tail is the most recent entrant.
type Segment struct {
	Curve geom.Curve
	Meta  SegmentMeta

	vehicles deque.Deque[string]
}

// NewSegment wraps a curve with empty queue state.
func NewSegment(curve geom.Curve, meta SegmentMeta) *Segment {
	return &Segment{Curve: curve, Meta: meta}
}

// Length returns the segment arclength in meters.
func (s *Segment) Length() float64 { return s.Curve.Length() }

// PushVehicle appends a vehicle id at the tail of the queue.
func (s *Segment) PushVehicle(id string) { s.vehicles.PushBack(id) }

// PopLead removes and returns the head vehicle id.
func (s *Segment) PopLead() (string, bool) {
	if s.vehicles.Len() == 0 {
		return "", false
	}
	return s.vehicles.PopFront(), true
}

// Lead returns the head vehicle id without removing it.
func (s *Segment) Lead() (string, bool) {
	if s.vehicles.Len() == 0 {
		return "", false
	}
	return s.vehicles.Front(), true
}

// Tail returns the most recently entered vehicle id.
func (s *Segment) Tail() (string, bool) {
	if s.vehicles.Len() == 0 {
		return "", false
	}
	return s.vehicles.Back(), true
}

// VehicleAt returns the i-th vehicle id from the head.
func (s *Segment) VehicleAt(i int) string { return s.vehicles.At(i) }

// NumVehicles returns the queue length.
func (s *Segment) NumVehicles() int { return s.vehicles.Len() }

// VehicleIDs returns the queue contents head-first as a fresh slice.
func (s *Segment) VehicleIDs() []string {
	ids := make([]string, s.vehicles.Len())
	for i := range ids {
		ids[i] = s.vehicles.At(i)
	}
	return ids
}

// StartPoint returns the segment's entry endpoint.
func (s *Segment) StartPoint() geom.Point {
	pts := s.Curve.Polyline()
	return pts[0]
}

// EndPoint returns the segment's exit endpoint.
func (s *Segment) EndPoint() geom.Point {
	pts := s.Curve.Polyline()
	return pts[len(pts)-1]
}
