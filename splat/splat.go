// Package splat defines injection requests and the queue that feeds them to the solver.
package splat

import "strings"

// Falloff is the discrete falloff class of a splat.
type Falloff uint8

const (
	FalloffWide   Falloff = iota // k = 0.5
	FalloffNormal                // k = 1
	FalloffTight                 // k = 2
	FalloffSharp                 // k = 4
)

// K returns the exponent multiplier of the falloff class.
func (f Falloff) K() float32 {
	switch f {
	case FalloffWide:
		return 0.5
	case FalloffTight:
		return 2
	case FalloffSharp:
		return 4
	}
	return 1
}

// Blend selects how an injected value combines with the existing one.
type Blend uint8

const (
	BlendAdd Blend = iota
	BlendMax
	BlendMix // Linear cross-fade by falloff weight
)

// ParseBlend maps a name to a Blend, defaulting to BlendAdd.
func ParseBlend(s string) Blend {
	switch strings.ToLower(s) {
	case "max":
		return BlendMax
	case "mix", "linear":
		return BlendMix
	}
	return BlendAdd
}

// Splat is one injection request. Positions are normalized [0,1] with y up;
// DX/DY are a velocity delta in velocity-grid cells per second.
// Splats are values and are never mutated after creation.
type Splat struct {
	X, Y     float32
	DX, DY   float32
	Color    [3]float32
	Radius   float32
	Softness float32 // Multiplies radius; 0 is treated as 1
	Falloff  Falloff
	Blend    Blend

	Temperature float32 // Added to temperature when that field is enabled
	Fuel        float32 // Added to fuel when that field is enabled

	HasObstacle   bool
	Obstacle      float32 // Target mask value (0 fluid, 1 solid)
	ObstacleBlend Blend
}

// Extent returns the radius term max(radius*softness, eps) used by the weight.
func (s *Splat) Extent(eps float32) float32 {
	soft := s.Softness
	if soft <= 0 {
		soft = 1
	}
	return max(s.Radius*soft, eps)
}

// HasVelocity reports whether the splat carries a velocity delta.
func (s *Splat) HasVelocity() bool {
	return s.DX != 0 || s.DY != 0
}

// HasColor reports whether the splat carries dye.
func (s *Splat) HasColor() bool {
	return s.Color[0] != 0 || s.Color[1] != 0 || s.Color[2] != 0 || s.Blend == BlendMix
}

// Symmetry is the mirror mode applied when splats are queued.
type Symmetry uint8

const (
	SymmetryNone Symmetry = iota
	SymmetryX             // Mirror across x = 0.5
	SymmetryY             // Mirror across y = 0.5
	SymmetryXY            // Both axes, 4 copies
)

// ParseSymmetry maps a config name to a Symmetry.
func ParseSymmetry(s string) Symmetry {
	switch strings.ToLower(s) {
	case "x":
		return SymmetryX
	case "y":
		return SymmetryY
	case "xy", "quad":
		return SymmetryXY
	}
	return SymmetryNone
}

// Copies returns how many splats one raw splat expands into.
func (m Symmetry) Copies() int {
	switch m {
	case SymmetryX, SymmetryY:
		return 2
	case SymmetryXY:
		return 4
	}
	return 1
}

// Expand appends the symmetry copies of s to dst. The original comes first.
func Expand(dst []Splat, s Splat, mode Symmetry) []Splat {
	dst = append(dst, s)
	if mode == SymmetryX || mode == SymmetryXY {
		m := s
		m.X = 1 - s.X
		m.DX = -s.DX
		dst = append(dst, m)
	}
	if mode == SymmetryY || mode == SymmetryXY {
		m := s
		m.Y = 1 - s.Y
		m.DY = -s.DY
		dst = append(dst, m)
	}
	if mode == SymmetryXY {
		m := s
		m.X = 1 - s.X
		m.Y = 1 - s.Y
		m.DX = -s.DX
		m.DY = -s.DY
		dst = append(dst, m)
	}
	return dst
}
