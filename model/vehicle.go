package model

import (
	"math"

	"github.com/aidarkhanov/nanoid"
)

// Default IDM parameters shared by every vehicle class.
const (
	DefaultLength   = 4.0   // m
	DefaultMinGap   = 4.0   // m, s0
	DefaultHeadway  = 1.0   // s, T
	DefaultMaxSpeed = 16.6  // m/s
	DefaultMaxAccel = 1.44  // m/s^2
	DefaultMaxDecel = 4.61  // m/s^2, comfortable braking
)

// ClassStyle is a rendering preset keyed by vehicle class.
type ClassStyle struct {
	Color []int  `json:"color"`
	Shape string `json:"shape"`
}

// ClassStyles maps vehicle classes to default rendering hints, applied when
// the configuration leaves color/shape unset.
var ClassStyles = map[string]ClassStyle{
	"vehicle": {Color: []int{0, 0, 255}, Shape: "rect"},
	"truck":   {Color: []int{255, 165, 0}, Shape: "rect"},
	"bus":     {Color: []int{0, 128, 0}, Shape: "rect"},
	"tank":    {Color: []int{128, 128, 128}, Shape: "rect"},
	"ev":      {Color: []int{0, 191, 255}, Shape: "rect"},
}

// Telemetry carries on-board-unit fields the core never interprets.
type Telemetry struct {
	EngineType   string  `json:"engine_type,omitempty"`
	CO2Emission  float64 `json:"co2_emission,omitempty"`
	RPM          float64 `json:"rpm,omitempty"`
	ACTemp       float64 `json:"ac_temp,omitempty"`
	AmbientLight float64 `json:"ambient_light,omitempty"`
	FogLights    bool    `json:"fog_lights,omitempty"`
	RainSensor   bool    `json:"rain_sensor,omitempty"`
}

// VehicleSpec holds optional overrides for a new vehicle. Nil fields take
// the package defaults above, which are the same for every class.
type VehicleSpec struct {
	ID       string
	Length   *float64 // l
	MinGap   *float64 // s0
	Headway  *float64 // T
	MaxSpeed *float64 // v_max
	MaxAccel *float64 // a_max
	MaxDecel *float64 // b_max

	X       *float64
	V       *float64
	Stopped bool

	Class string
	Color []int
	Shape string

	Telemetry Telemetry
}

// Vehicle is an individual road user following the Intelligent Driver Model.
type Vehicle struct {
	ID string `json:"id"`

	// Physical parameters.
	L    float64 `json:"l"`
	S0   float64 `json:"s0"`
	T    float64 `json:"t"`
	VMax float64 `json:"v_max"` // effective cap, rescaled every tick
	AMax float64 `json:"a_max"`
	BMax float64 `json:"b_max"`

	// BaseVMax is the baseline speed cap, immutable after construction.
	BaseVMax float64 `json:"base_v_max"`
	sqrtAB   float64

	// Routing: resolved segment indices and the cursor into them.
	Path             []int `json:"path"`
	CurrentRoadIndex int   `json:"current_road_index"`

	// Kinematics.
	X        float64 `json:"x"`
	V        float64 `json:"v"`
	A        float64 `json:"a"`
	Stopped  bool    `json:"stopped"`
	Odometer float64 `json:"odometer"`

	// Classification and rendering hints.
	Class string `json:"vehicle_class"`
	Color []int  `json:"color,omitempty"`
	Shape string `json:"shape,omitempty"`

	Telemetry Telemetry `json:"telemetry"`
}

// NewVehicle builds a vehicle from a spec, filling defaults and deriving
// the IDM interaction constant.
func NewVehicle(spec VehicleSpec) *Vehicle {
	pick := func(p *float64, def float64) float64 {
		if p != nil {
			return *p
		}
		return def
	}
	v := &Vehicle{
		ID:      spec.ID,
		L:       pick(spec.Length, DefaultLength),
		S0:      pick(spec.MinGap, DefaultMinGap),
		T:       pick(spec.Headway, DefaultHeadway),
		VMax:    pick(spec.MaxSpeed, DefaultMaxSpeed),
		AMax:    pick(spec.MaxAccel, DefaultMaxAccel),
		BMax:    pick(spec.MaxDecel, DefaultMaxDecel),
		X:       pick(spec.X, 0),
		V:       pick(spec.V, 0),
		Stopped: spec.Stopped,
		Class:   spec.Class,
		Color:   spec.Color,
		Shape:   spec.Shape,

		Telemetry: spec.Telemetry,
	}
	if v.ID == "" {
		v.ID = nanoid.New()
	}
	if v.Class == "" {
		v.Class = "vehicle"
	}
	preset := ClassStyles[v.Class]
	if v.Color == nil {
		v.Color = preset.Color
		if v.Color == nil {
			v.Color = ClassStyles["vehicle"].Color
		}
	}
	if v.Shape == "" {
		v.Shape = preset.Shape
		if v.Shape == "" {
			v.Shape = "rect"
		}
	}
	v.BaseVMax = v.VMax
	v.sqrtAB = 2 * math.Sqrt(v.AMax*v.BMax)
	return v
}

// Update advances the vehicle by one timestep. The position and velocity
// integrate with the previous acceleration first; the IDM acceleration is
// then recomputed against the optional lead vehicle on the same segment.
func (v *Vehicle) Update(lead *Vehicle, dt float64) {
	if v.V+v.A*dt < 0 {
		// The vehicle would cross zero speed mid-step: land exactly on the
		// free-flight stopping point instead (A is negative here).
		v.Odometer += -0.5 * v.V * v.V / v.A
		v.X -= 0.5 * v.V * v.V / v.A
		v.V = 0
	} else {
		v.V += v.A * dt
		dx := v.V*dt + v.A*dt*dt/2
		v.X += dx
		v.Odometer += dx
	}

	if v.VMax <= 0 {
		// A zero cap means a hard stop order (red light within stopping
		// range); the IDM ratio is undefined there, so brake outright.
		v.A = -v.BMax
		return
	}

	alpha := 0.0
	if lead != nil {
		deltaX := lead.X - v.X - lead.L
		deltaV := v.V - lead.V
		alpha = (v.S0 + math.Max(0, v.T*v.V+deltaV*v.V/v.sqrtAB)) / deltaX
	}
	v.A = v.AMax * (1 - math.Pow(v.V/v.VMax, 4) - alpha*alpha)

	if v.Stopped {
		v.A = -v.BMax * v.V / v.VMax
	}
}
