package sim

import (
	"fmt"
	"math/rand"

	"roadsim/backend/model"
)

// generatorSeedSalt decorrelates generator RNG streams from one another.
const generatorSeedSalt = 0x539f0a17

// emissionSlack absorbs rounding in the accumulated clock, so an elapsed
// time of exactly 60/rate seconds counts as a full interval.
const emissionSlack = 1e-9

// WeightedSpec is one template a generator can emit, with its sampling
// weight.
type WeightedSpec struct {
	Weight float64
	Spec   model.VehicleSpec
	Route  RouteSpec

	path []int // resolved at generator creation
}

// VehicleGenerator emits vehicles onto a lead segment at a configured
// rate, choosing templates by weight with a deterministic per-generator
// RNG stream.
type VehicleGenerator struct {
	Rate  float64 // vehicles per minute
	Specs []WeightedSpec

	rng          *rand.Rand
	lastEmission float64
	emitted      int
	index        int
}

// CreateVehicleGenerator validates templates (resolving their routes up
// front) and registers the generator.
func (s *Simulation) CreateVehicleGenerator(rate float64, specs []WeightedSpec) (*VehicleGenerator, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("vehicle generator rate must be positive, got %v", rate)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("vehicle generator needs at least one template")
	}
	idx := len(s.Generators)
	for i := range specs {
		path, err := s.resolveRoute(specs[i].Route)
		if err != nil {
			return nil, fmt.Errorf("generator %d template %d: %w", idx, i, err)
		}
		specs[i].path = path
		if specs[i].Weight <= 0 {
			specs[i].Weight = 1
		}
	}
	gen := &VehicleGenerator{
		Rate:  rate,
		Specs: specs,
		index: idx,
	}
	s.Generators = append(s.Generators, gen)
	return gen, nil
}

// Emitted reports how many vehicles this generator has produced.
func (g *VehicleGenerator) Emitted() int { return g.emitted }

// update attempts one emission when the rate interval has elapsed. The
// emission is silently dropped while the lead segment's newest vehicle is
// still within the entry gap.
func (g *VehicleGenerator) update(s *Simulation) {
	if g.rng == nil {
		// Seeded on first use so the engine seed can be set any time
		// before the first tick.
		g.rng = rand.New(rand.NewSource(s.Seed ^ int64(generatorSeedSalt+g.index)))
	}
	if s.T-g.lastEmission < 60.0/g.Rate-emissionSlack {
		return
	}
	tpl := g.pick()

	v := model.NewVehicle(tpl.Spec)
	v.Path = append([]int(nil), tpl.path...)
	if len(v.Path) == 0 {
		return
	}
	first := s.Segments[v.Path[0]]
	if tailID, ok := first.Tail(); ok {
		tail := s.Vehicles[tailID]
		if tail.X < v.S0+v.L {
			return // insufficient gap at the segment entry
		}
	}

	if err := s.AddVehicle(v); err != nil {
		// Id collisions only happen with explicit template ids; drop the
		// emission rather than abort the tick.
		return
	}
	g.emitted++
	g.lastEmission = s.T
}

// pick samples one template by weight.
func (g *VehicleGenerator) pick() *WeightedSpec {
	total := 0.0
	for i := range g.Specs {
		total += g.Specs[i].Weight
	}
	r := g.rng.Float64() * total
	cum := 0.0
	for i := range g.Specs {
		cum += g.Specs[i].Weight
		if r <= cum {
			return &g.Specs[i]
		}
	}
	return &g.Specs[len(g.Specs)-1]
}
