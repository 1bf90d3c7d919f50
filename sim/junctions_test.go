package sim

import (
	"math"
	"testing"

	"roadsim/backend/geom"
	"roadsim/backend/model"
)

func TestLightPeriodicity(t *testing.T) {
	s := New()
	mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0})
	if err := s.AddJunction(&Junction{ID: "j1", Approaches: []Approach{
		{SegmentID: "A", Type: ApproachLight, Offset: 0.5, Green: 2, Red: 3},
	}}); err != nil {
		t.Fatal(err)
	}

	phaseAt := func() Phase {
		return s.Snapshot().Junctions[0].Approaches[0].Phase
	}

	var transitions []float64
	prev := PhaseGreen
	for i := 0; i < 60*12; i++ { // 12 s
		s.Update()
		if p := phaseAt(); p != prev {
			transitions = append(transitions, s.T)
			prev = p
		}
	}
	// green(2) -> red(3) -> green(2) -> red(3) ... period 5.
	want := []float64{2, 5, 7, 10, 12}
	if len(transitions) < 4 {
		t.Fatalf("transitions=%v", transitions)
	}
	for i, w := range want[:4] {
		if math.Abs(transitions[i]-w) > 2*s.Dt {
			t.Errorf("transition %d at t=%v, want ~%v", i, transitions[i], w)
		}
	}
}

func TestRedLightStopsVehicle(t *testing.T) {
	s := New()
	mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0})
	if err := s.AddJunction(&Junction{ID: "j1", Approaches: []Approach{
		{SegmentID: "A", Type: ApproachLight, Offset: 0.5, Green: 30, Red: 30, InitialPhase: PhaseRed},
	}}); err != nil {
		t.Fatal(err)
	}
	v, err := s.CreateVehicle(model.VehicleSpec{ID: "v1"}, RouteSpec{Path: []any{"A"}})
	if err != nil {
		t.Fatal(err)
	}

	s.Run(300) // t = 5 s: inside the 35 m braking band of the red light
	if math.Abs(v.VMax-0.4*16.6) > 0.02 {
		t.Errorf("v_max(5s)=%v, want red braking cap %v", v.VMax, 0.4*16.6)
	}

	s.Run(600) // t = 15 s: stopped within the 6 m stop band
	if v.VMax != 0 {
		t.Errorf("v_max(15s)=%v, want 0 inside stop band", v.VMax)
	}
	if v.V != 0 {
		t.Errorf("v(15s)=%v, want full stop", v.V)
	}
	if v.X < 44 || v.X >= 50 {
		t.Errorf("stop position %v, want within 6 m before the light", v.X)
	}

	s.Run(930) // t = 30.5 s: phase flipped to green at t=30
	if math.Abs(v.VMax-0.6*16.6) > 0.02 {
		t.Errorf("v_max after green=%v, want base junction cap %v", v.VMax, 0.6*16.6)
	}
	s.Run(600) // vehicle clears the junction
	if v.X <= 50 && v.CurrentRoadIndex == 0 && s.Segments[0].NumVehicles() == 1 {
		t.Errorf("vehicle never passed the light, x=%v", v.X)
	}
}

func yieldScenario(t *testing.T, withOther bool) (*Simulation, *model.Vehicle) {
	t.Helper()
	s := New()
	// A heads due east; B crosses from A's right at a 53° heading.
	mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0})
	mustSegment(t, s, "B", geom.Point{X: 0, Y: -50}, geom.Point{X: 60, Y: 30})
	if err := s.AddJunction(&Junction{ID: "x", Approaches: []Approach{
		{SegmentID: "A", Type: ApproachYield, Offset: 0.5},
		{SegmentID: "B", Type: ApproachYield, Offset: 0.5},
	}}); err != nil {
		t.Fatal(err)
	}
	a, err := s.CreateVehicle(model.VehicleSpec{ID: "a", X: fptr(20)}, RouteSpec{Path: []any{"A"}})
	if err != nil {
		t.Fatal(err)
	}
	if withOther {
		if _, err := s.CreateVehicle(model.VehicleSpec{ID: "b", X: fptr(35)}, RouteSpec{Path: []any{"B"}}); err != nil {
			t.Fatal(err)
		}
	}
	s.updateJunctions()
	s.refreshEvents()
	return s, a
}

func TestYieldPriorityToTheRight(t *testing.T) {
	s, a := yieldScenario(t, true)
	idxA, _ := s.SegmentIndex("A")
	if f := s.speedFactor(idxA, a); math.Abs(f-0.1) > 1e-12 {
		t.Errorf("factor with crossing vehicle on the right = %v, want 0.1", f)
	}
}

func TestYieldWithoutConflict(t *testing.T) {
	s, a := yieldScenario(t, false)
	idxA, _ := s.SegmentIndex("A")
	if f := s.speedFactor(idxA, a); math.Abs(f-0.2) > 1e-12 {
		t.Errorf("factor inside slowdown zone = %v, want 0.2", f)
	}

	// Outside the 40 m zone no yield slowdown applies.
	a.X = 5
	if f := s.speedFactor(idxA, a); f != 1.0 {
		t.Errorf("factor beyond slowdown zone = %v, want 1.0", f)
	}
}

func TestYieldIgnoresDistantCrosser(t *testing.T) {
	s, a := yieldScenario(t, true)
	idxA, _ := s.SegmentIndex("A")
	// Push the crossing vehicle far from the conflict point.
	b := s.Vehicles["b"]
	b.X = 5 // 45 m from the conflict point, outside the 20 m window
	if f := s.speedFactor(idxA, a); math.Abs(f-0.2) > 1e-12 {
		t.Errorf("factor with distant crosser = %v, want 0.2", f)
	}
}

func TestRedLightApproachCannotClaimPriority(t *testing.T) {
	s := New()
	mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0})
	mustSegment(t, s, "B", geom.Point{X: 0, Y: -50}, geom.Point{X: 60, Y: 30})
	if err := s.AddJunction(&Junction{ID: "x", Approaches: []Approach{
		{SegmentID: "A", Type: ApproachYield, Offset: 0.5},
		{SegmentID: "B", Type: ApproachLight, Offset: 0.5, Green: 30, Red: 30, InitialPhase: PhaseRed},
	}}); err != nil {
		t.Fatal(err)
	}
	a, err := s.CreateVehicle(model.VehicleSpec{ID: "a", X: fptr(20)}, RouteSpec{Path: []any{"A"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateVehicle(model.VehicleSpec{ID: "b", X: fptr(35)}, RouteSpec{Path: []any{"B"}}); err != nil {
		t.Fatal(err)
	}
	s.updateJunctions()
	s.refreshEvents()

	idxA, _ := s.SegmentIndex("A")
	// B waits at red: A only carries the yield-zone slowdown.
	if f := s.speedFactor(idxA, a); math.Abs(f-0.2) > 1e-12 {
		t.Errorf("factor against red-light crosser = %v, want 0.2", f)
	}
}
