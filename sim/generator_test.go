package sim

import (
	"testing"

	"roadsim/backend/geom"
	"roadsim/backend/model"
)

func TestGeneratorRateGating(t *testing.T) {
	s := New()
	mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 200, Y: 0})
	gen, err := s.CreateVehicleGenerator(60, []WeightedSpec{
		{Weight: 1, Spec: model.VehicleSpec{}, Route: RouteSpec{Path: []any{"A"}}},
	})
	if err != nil {
		t.Fatal(err)
	}

	s.Run(60) // up to t just below 1 s
	if gen.Emitted() != 0 {
		t.Errorf("emitted %d before the first interval elapsed", gen.Emitted())
	}
	s.Run(1) // tick at t = 1.0 s
	if gen.Emitted() != 1 {
		t.Errorf("emitted %d at the first interval, want 1", gen.Emitted())
	}
	s.Run(60) // next interval at t = 2.0 s
	if gen.Emitted() != 2 {
		t.Errorf("emitted %d after two intervals, want 2", gen.Emitted())
	}
}

func TestGeneratorGapAbort(t *testing.T) {
	s := New()
	mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 200, Y: 0})
	// Block the entry: a stopped vehicle inside s0 + l of the start.
	blocker, err := s.CreateVehicle(model.VehicleSpec{ID: "blocker", Stopped: true, X: fptr(2)}, RouteSpec{Path: []any{"A"}})
	if err != nil {
		t.Fatal(err)
	}
	gen, err := s.CreateVehicleGenerator(60, []WeightedSpec{
		{Weight: 1, Spec: model.VehicleSpec{}, Route: RouteSpec{Path: []any{"A"}}},
	})
	if err != nil {
		t.Fatal(err)
	}

	s.Run(120) // two intervals pass while the entry is blocked
	if gen.Emitted() != 0 {
		t.Errorf("emitted %d past a blocked entry", gen.Emitted())
	}

	// Clear the gap: the pending emission lands on the next tick.
	blocker.X = 50
	s.Run(2)
	if gen.Emitted() != 1 {
		t.Errorf("emitted %d after the gap cleared, want 1", gen.Emitted())
	}
}

func TestGeneratorWeightedPickDeterminism(t *testing.T) {
	build := func() *Simulation {
		s := New()
		s.Seed = 42
		mustSegment(t, s, "A", geom.Point{X: 0, Y: 0}, geom.Point{X: 2000, Y: 0})
		if _, err := s.CreateVehicleGenerator(120, []WeightedSpec{
			{Weight: 3, Spec: model.VehicleSpec{Class: "vehicle"}, Route: RouteSpec{Path: []any{"A"}}},
			{Weight: 1, Spec: model.VehicleSpec{Class: "truck"}, Route: RouteSpec{Path: []any{"A"}}},
		}); err != nil {
			t.Fatal(err)
		}
		return s
	}

	classSeq := func(s *Simulation) []string {
		var seq []string
		for _, id := range s.Segments[0].VehicleIDs() {
			seq = append(seq, s.Vehicles[id].Class)
		}
		return seq
	}

	s1, s2 := build(), build()
	s1.Run(3600)
	s2.Run(3600)
	seq1, seq2 := classSeq(s1), classSeq(s2)
	if len(seq1) == 0 {
		t.Fatal("no vehicles emitted")
	}
	if len(seq1) != len(seq2) {
		t.Fatalf("emission counts differ: %d vs %d", len(seq1), len(seq2))
	}
	for i := range seq1 {
		if seq1[i] != seq2[i] {
			t.Fatalf("class sequences diverge at %d: %v vs %v", i, seq1, seq2)
		}
	}
}
