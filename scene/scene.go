// Package scene drives scripted emitters that feed splats into a solver.
// Emitters are ECS entities: every emitter has a Position and an Emitter,
// and orbiting emitters also carry an Orbit.
package scene

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/splat"
)

// Position is an emitter location in normalized domain coordinates.
type Position struct {
	X, Y float32
}

// Emitter produces splats at a fixed rate.
type Emitter struct {
	DirX, DirY  float32 // Unit injection direction
	Force       float32 // Velocity delta along Dir
	Radius      float32
	Rate        float32 // Splats per second
	Color       [3]float32
	Temperature float32
	Fuel        float32

	accum float32 // Fractional splats carried between frames
}

// Orbit moves an emitter on a circle around a centre.
type Orbit struct {
	CX, CY float32
	Radius float32
	Speed  float32 // Radians per second
	Phase  float32
}

// Scene owns the emitter world.
type Scene struct {
	world *ecs.World

	fixedMapper *ecs.Map2[Position, Emitter]
	orbitMapper *ecs.Map3[Position, Emitter, Orbit]
	emitFilter  *ecs.Filter2[Position, Emitter]
	orbitFilter *ecs.Filter2[Position, Orbit]

	splats config.SplatsConfig
	time   float32
	count  int
}

// New builds a scene from emitter configs. Zero radius or force fall back
// to the splat defaults.
func New(emitters []config.EmitterConfig, defaults config.SplatsConfig) *Scene {
	world := ecs.NewWorld()
	s := &Scene{
		world:       world,
		fixedMapper: ecs.NewMap2[Position, Emitter](world),
		orbitMapper: ecs.NewMap3[Position, Emitter, Orbit](world),
		emitFilter:  ecs.NewFilter2[Position, Emitter](world),
		orbitFilter: ecs.NewFilter2[Position, Orbit](world),
		splats:      defaults,
	}
	for _, e := range emitters {
		s.Add(e)
	}
	return s
}

// Add creates one emitter entity.
func (s *Scene) Add(cfg config.EmitterConfig) {
	em := Emitter{
		Force:       float32(cfg.Force),
		Radius:      float32(cfg.Radius),
		Rate:        float32(cfg.Rate),
		Color:       [3]float32{float32(cfg.Color[0]), float32(cfg.Color[1]), float32(cfg.Color[2])},
		Temperature: float32(cfg.Temperature),
		Fuel:        float32(cfg.Fuel),
	}
	if em.Force == 0 {
		em.Force = float32(s.splats.Force)
	}
	if em.Radius == 0 {
		em.Radius = float32(s.splats.Radius)
	}
	em.DirX, em.DirY = normalize(float32(cfg.DirX), float32(cfg.DirY))

	pos := Position{X: float32(cfg.X), Y: float32(cfg.Y)}
	if cfg.Orbit > 0 {
		orbit := Orbit{CX: pos.X, CY: pos.Y, Radius: float32(cfg.Orbit), Speed: float32(cfg.OrbitSpeed)}
		pos = orbit.at(s.time)
		s.orbitMapper.NewEntity(&pos, &em, &orbit)
	} else {
		s.fixedMapper.NewEntity(&pos, &em)
	}
	s.count++
}

// Len returns the number of emitters.
func (s *Scene) Len() int {
	return s.count
}

// Update advances the scene by dt and appends the splats emitted during
// that interval to dst.
func (s *Scene) Update(dt float32, dst []splat.Splat) []splat.Splat {
	if dt <= 0 {
		return dst
	}
	s.time += dt
	s.moveOrbits()
	return s.emit(dt, dst)
}

func (s *Scene) moveOrbits() {
	query := s.orbitFilter.Query()
	for query.Next() {
		pos, orbit := query.Get()
		*pos = orbit.at(s.time)
	}
}

func (s *Scene) emit(dt float32, dst []splat.Splat) []splat.Splat {
	query := s.emitFilter.Query()
	for query.Next() {
		pos, em := query.Get()
		em.accum += em.Rate * dt
		for em.accum >= 1 {
			em.accum--
			dst = append(dst, splat.Splat{
				X:           pos.X,
				Y:           pos.Y,
				DX:          em.DirX * em.Force,
				DY:          em.DirY * em.Force,
				Color:       em.Color,
				Radius:      em.Radius,
				Temperature: em.Temperature,
				Fuel:        em.Fuel,
			})
		}
	}
	return dst
}

func (o *Orbit) at(t float32) Position {
	a := float64(o.Phase + o.Speed*t)
	return Position{
		X: o.CX + o.Radius*float32(math.Cos(a)),
		Y: o.CY + o.Radius*float32(math.Sin(a)),
	}
}

func normalize(x, y float32) (float32, float32) {
	l := float32(math.Hypot(float64(x), float64(y)))
	if l == 0 {
		return 0, 0
	}
	return x / l, y / l
}
