package sim

import (
	"fmt"
	"math"

	"roadsim/backend/model"
)

// Phase is a traffic light signal state.
type Phase string

const (
	PhaseGreen Phase = "green"
	PhaseRed   Phase = "red"
)

// ApproachType is the control discipline of one junction approach.
type ApproachType string

const (
	ApproachLight ApproachType = "light"
	ApproachYield ApproachType = "yield"
)

// Approach binds one inbound segment to a junction. The configuration is
// immutable after construction; light timing state lives in the
// simulation's approach-state table.
type Approach struct {
	SegmentID string       `json:"segment_id"`
	Type      ApproachType `json:"type"`
	Offset    float64      `json:"offset"` // conflict point along the segment in [0,1]

	// Light timing (ignored for yield approaches).
	Green        float64 `json:"green,omitempty"`
	Red          float64 `json:"red,omitempty"`
	InitialPhase Phase   `json:"phase,omitempty"`
	PhaseStart   float64 `json:"phase_start,omitempty"`
}

// Junction is a controlled crossing of two or more approaches.
type Junction struct {
	ID         string     `json:"id"`
	Approaches []Approach `json:"approaches"`
}

// approachKey identifies one approach's mutable light state.
type approachKey struct {
	junctionID string
	segmentID  string
}

// lightState is the mutable phase of a light approach.
type lightState struct {
	phase      Phase
	phaseStart float64
}

// approachView is the per-tick projection of an approach onto its segment.
type approachView struct {
	junction *Junction
	segIdx   int
	offset   float64
	typ      ApproachType
	phase    Phase
}

// Distances and factors for junction-induced slowdown.
const (
	junctionSlowDist   = 40.0 // generic slowdown zone before any junction
	lightSlowDist      = 35.0 // start braking for a red light here
	lightStopDist      = 6.0  // hard stop for a red light inside this
	conflictDist       = 20.0 // another approach claims priority inside this
	baseSlowFactor     = 0.6
	redSlowFactor      = 0.4
	redStopFactor      = 0.0
	priorityStopFactor = 0.1
	yieldFactor        = 0.2
)

// AddJunction registers a junction, assigning an id when missing and
// initialising light phase state for its light approaches.
func (s *Simulation) AddJunction(j *Junction) error {
	if j.ID == "" {
		j.ID = fmt.Sprintf("junction_%d", len(s.Junctions))
	}
	if _, dup := s.junctionByID[j.ID]; dup {
		return fmt.Errorf("junction id %q already exists", j.ID)
	}
	for i := range j.Approaches {
		a := &j.Approaches[i]
		if _, ok := s.segmentByID[a.SegmentID]; !ok {
			return fmt.Errorf("junction %q approach references unknown segment id %q", j.ID, a.SegmentID)
		}
		if a.Type == "" {
			a.Type = ApproachYield
		}
		if a.Offset == 0 {
			a.Offset = 0.5
		}
		if a.Type == ApproachLight {
			if a.Green == 0 {
				a.Green = 30
			}
			if a.Red == 0 {
				a.Red = 30
			}
			phase := a.InitialPhase
			if phase == "" {
				phase = PhaseGreen
			}
			s.approachState[approachKey{j.ID, a.SegmentID}] = &lightState{
				phase:      phase,
				phaseStart: a.PhaseStart,
			}
		}
	}
	s.Junctions = append(s.Junctions, j)
	s.junctionByID[j.ID] = j
	return nil
}

// updateJunctions advances light phases and rebuilds the segment-index to
// approach mapping for this tick.
func (s *Simulation) updateJunctions() {
	s.segmentJunctions = make(map[int][]approachView)
	for _, j := range s.Junctions {
		for i := range j.Approaches {
			a := &j.Approaches[i]
			segIdx, ok := s.segmentByID[a.SegmentID]
			if !ok {
				continue
			}

			phase := PhaseGreen
			if a.Type == ApproachLight {
				st := s.approachState[approachKey{j.ID, a.SegmentID}]
				elapsed := s.T - st.phaseStart
				if st.phase == PhaseGreen && elapsed >= a.Green {
					st.phase = PhaseRed
					st.phaseStart = s.T
				} else if st.phase == PhaseRed && elapsed >= a.Red {
					st.phase = PhaseGreen
					st.phaseStart = s.T
				}
				phase = st.phase
			}

			s.segmentJunctions[segIdx] = append(s.segmentJunctions[segIdx], approachView{
				junction: j,
				segIdx:   segIdx,
				offset:   a.Offset,
				typ:      a.Type,
				phase:    phase,
			})
		}
	}
}

// junctionFactor computes the slowdown factor a vehicle on segIdx is
// subject to from junction control and precedence. Factors combine by
// minimum.
func (s *Simulation) junctionFactor(segIdx int, v *model.Vehicle) float64 {
	approaches := s.segmentJunctions[segIdx]
	if len(approaches) == 0 {
		return 1.0
	}
	seg := s.Segments[segIdx]
	segLen := seg.Length()
	factor := 1.0

	for _, appr := range approaches {
		distTo := appr.offset*segLen - v.X
		if distTo < -2 {
			continue // already passed
		}
		if distTo >= 0 && distTo <= junctionSlowDist {
			factor = math.Min(factor, baseSlowFactor)
		}
		switch appr.typ {
		case ApproachLight:
			if appr.phase != PhaseGreen && distTo >= 0 {
				if distTo <= lightStopDist {
					factor = math.Min(factor, redStopFactor)
				} else if distTo <= lightSlowDist {
					factor = math.Min(factor, redSlowFactor)
				}
			}
		default: // yield / merge with priority-to-the-right
			if distTo >= 0 {
				heading := seg.Curve.Heading(clamp01(appr.offset))
				if s.hasVehicleWithPriority(appr, segIdx, heading) {
					factor = math.Min(factor, priorityStopFactor)
				} else if distTo < junctionSlowDist {
					factor = math.Min(factor, yieldFactor)
				}
			}
		}
	}
	return factor
}

// hasVehicleWithPriority reports whether another approach at the same
// junction holds right-of-way: its lead vehicle is near the conflict point
// and its heading lies within (0, pi/2) to the right of ours.
func (s *Simulation) hasVehicleWithPriority(appr approachView, segIdx int, heading float64) bool {
	for i := range appr.junction.Approaches {
		other := &appr.junction.Approaches[i]
		otherIdx, ok := s.segmentByID[other.SegmentID]
		if !ok || otherIdx == segIdx {
			continue
		}
		// A red-light approach cannot claim priority.
		if other.Type == ApproachLight {
			if st := s.approachState[approachKey{appr.junction.ID, other.SegmentID}]; st != nil && st.phase != PhaseGreen {
				continue
			}
		}
		otherSeg := s.Segments[otherIdx]
		leadID, ok := otherSeg.Lead()
		if !ok {
			continue
		}
		lead := s.Vehicles[leadID]
		distOther := other.Offset*otherSeg.Length() - lead.X
		if distOther < -2 || distOther > conflictDist {
			continue
		}
		otherHeading := otherSeg.Curve.Heading(clamp01(other.Offset))
		d := wrapAngle(otherHeading - heading)
		if d > 0 && d < math.Pi/2 {
			return true
		}
	}
	return false
}

// wrapAngle maps an angle difference into [-pi, pi).
func wrapAngle(d float64) float64 {
	d = math.Mod(d+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d - math.Pi
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
