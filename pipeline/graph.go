// Package pipeline orders the solver's stages and plans substeps.
package pipeline

import "fmt"

// Stage names, in execution order.
const (
	StageVorticity            = "vorticity"
	StageAdvectVelocity       = "advect_velocity"
	StageViscosity            = "viscosity"
	StageTurbulence           = "turbulence"
	StageForces               = "forces"
	StageObstaclesPre         = "obstacles_pre"
	StageDivergence           = "divergence"
	StagePressure             = "pressure"
	StageGradientSubtract     = "gradient_subtract"
	StageVelocityBoundary     = "velocity_boundary"
	StageObstaclesPost        = "obstacles_post"
	StageAdvectDye            = "advect_dye"
	StageDyeBoundary          = "dye_boundary"
	StageObstaclesDye         = "obstacles_dye"
	StageMultiphase           = "multiphase"
	StageAdvectTemperature    = "advect_temperature"
	StageObstaclesTemperature = "obstacles_temperature"
	StageAdvectFuel           = "advect_fuel"
	StageCombustion           = "combustion"
	StageFireDye              = "fire_dye"
)

// Order lists every stage name in the order one substep runs them.
var Order = []string{
	StageVorticity,
	StageAdvectVelocity,
	StageViscosity,
	StageTurbulence,
	StageForces,
	StageObstaclesPre,
	StageDivergence,
	StagePressure,
	StageGradientSubtract,
	StageVelocityBoundary,
	StageObstaclesPost,
	StageAdvectDye,
	StageDyeBoundary,
	StageObstaclesDye,
	StageMultiphase,
	StageAdvectTemperature,
	StageObstaclesTemperature,
	StageAdvectFuel,
	StageCombustion,
	StageFireDye,
}

// Pass is one named stage. Run reads the current config and dt, issues
// zero or more kernel dispatches and swaps whatever fields it wrote.
type Pass struct {
	Name        string
	Description string
	Run         func(dt float32)
}

// PassInfo is the introspection view of a pass.
type PassInfo struct {
	Name        string
	Description string
	Enabled     bool
}

// Observer is notified as each pass starts. telemetry.PerfCollector satisfies it.
type Observer interface {
	StartPhase(name string)
}

// Graph is an ordered list of independently enable-able passes.
type Graph struct {
	passes  []Pass
	enabled []bool
	index   map[string]int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Add appends a pass, enabled. Names must be unique.
func (g *Graph) Add(p Pass) {
	if _, dup := g.index[p.Name]; dup {
		panic(fmt.Sprintf("pipeline: duplicate pass %q", p.Name))
	}
	g.index[p.Name] = len(g.passes)
	g.passes = append(g.passes, p)
	g.enabled = append(g.enabled, true)
}

// Len returns the number of passes.
func (g *Graph) Len() int {
	return len(g.passes)
}

// Passes returns metadata for every pass in order.
func (g *Graph) Passes() []PassInfo {
	out := make([]PassInfo, len(g.passes))
	for i, p := range g.passes {
		out[i] = PassInfo{Name: p.Name, Description: p.Description, Enabled: g.enabled[i]}
	}
	return out
}

// SetEnabled toggles a pass by name and reports whether it exists.
func (g *Graph) SetEnabled(name string, on bool) bool {
	i, ok := g.index[name]
	if ok {
		g.enabled[i] = on
	}
	return ok
}

// Enabled reports whether the named pass exists and is enabled.
func (g *Graph) Enabled(name string) bool {
	i, ok := g.index[name]
	return ok && g.enabled[i]
}

// Run executes every enabled pass once, in order. obs may be nil.
func (g *Graph) Run(dt float32, obs Observer) {
	for i := range g.passes {
		if !g.enabled[i] {
			continue
		}
		if obs != nil {
			obs.StartPhase(g.passes[i].Name)
		}
		g.passes[i].Run(dt)
	}
}
