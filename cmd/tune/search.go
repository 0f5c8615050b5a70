package main

import (
	"math"

	"github.com/pthm-cable/plume/config"
)

// sorGapMin is the closest the search gets to the SOR stability limit of 2.
const sorGapMin = 0.05

// PressureSettings is one candidate pressure configuration.
type PressureSettings struct {
	SORFactor float64
	Decay     float64
}

// DefaultPressureSettings is the search starting point.
var DefaultPressureSettings = PressureSettings{SORFactor: 1.6, Decay: 0.8}

// Apply selects SOR with a fixed sweep budget and writes s into cfg.
// Multigrid is disabled so the sweep budget alone sets convergence.
func (s PressureSettings) Apply(cfg *config.Config, iterations int) {
	cfg.Pressure.Solver = "sor"
	cfg.Pressure.Adaptive = false
	cfg.Pressure.Iterations = max(iterations, 1)
	cfg.Pressure.SORFactor = s.SORFactor
	cfg.Pressure.Decay = s.Decay
	cfg.Multigrid.Enabled = false
}

// The optimizer works in the unit square. The SOR axis is logarithmic in
// the gap 2-ω, so u=0 is Gauss-Seidel (ω=1) and u=1 is ω=2-sorGapMin, and
// equal steps in u matter about equally near the limit. Decay is linear.

// Decode maps unit coordinates to settings, clamping out-of-range points.
func Decode(u []float64) PressureSettings {
	su := clamp01(u[0])
	return PressureSettings{
		SORFactor: 2 - math.Pow(sorGapMin, su),
		Decay:     clamp01(u[1]),
	}
}

// Encode is the inverse of Decode for in-range settings.
func Encode(s PressureSettings) []float64 {
	gap := min(max(2-s.SORFactor, sorGapMin), 1)
	return []float64{
		math.Log(gap) / math.Log(sorGapMin),
		clamp01(s.Decay),
	}
}

// searchDim is the number of searched settings.
const searchDim = 2

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
