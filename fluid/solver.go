// Package fluid is the public surface of the solver: it owns the field
// registry, the compute device, the splat queue and the pass graph, and
// advances them one frame at a time.
package fluid

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/kernel"
	"github.com/pthm-cable/plume/pipeline"
	"github.com/pthm-cable/plume/splat"
	"github.com/pthm-cable/plume/telemetry"
)

// Solver limits.
const (
	maxViscositySweeps = 32
	viscosityAlpha     = 0.2 // Per-sweep diffusion; stable below 0.25
	defaultFrameDT     = 1.0 / 60.0
	maxAdvanceDT       = 0.25 // Wall-clock gap treated as a stall, not elapsed time
)

// Options configures a new Solver.
type Options struct {
	Logger *slog.Logger   // nil uses slog.Default()
	Device *device.Device // nil creates one from the device config; the solver then owns it
}

// Frame summarizes one Step call.
type Frame struct {
	Substeps   int
	DT         float32 // Per-substep dt
	Simulated  float32 // Total simulated time
	Splats     int     // Expanded splats applied this frame
	Iterations int     // Fine-grid pressure sweeps in the last substep
	Skipped    bool    // Paused or invalid dt
}

// Solver is a 2D Eulerian fluid simulation.
// It is not safe for concurrent use; one goroutine drives it.
type Solver struct {
	cfg       config.Config
	log       *slog.Logger
	dev       *device.Device
	ownDevice bool

	fields *field.Registry
	graph  *pipeline.Graph
	queue  *splat.Queue
	perf   *telemetry.PerfCollector

	// Scratch reused across frames
	drained []splat.Splat
	packed  []float32
	factors []float32

	paused     bool
	frame      int64
	simTime    float32
	lastAdv    time.Time
	iterations int
}

// New creates a solver for cfg. Fields that no enabled feature needs are
// registered but not allocated.
func New(cfg config.Config, opts Options) *Solver {
	cfg = cfg.Sanitized()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Solver{
		cfg: cfg,
		log: log,
		dev: opts.Device,
	}
	if s.dev == nil {
		s.dev = device.New(cfg.Device.Workers, cfg.Device.ParallelThreshold)
		s.ownDevice = true
	}

	s.fields = field.NewRegistry(gridSize(&cfg), dyeSize(&cfg))
	s.fields.RegisterAll(fieldDefs()...)

	s.queue = splat.NewQueue(splat.ParseSymmetry(cfg.Splats.Symmetry), cfg.Splats.MaxPerFrame)
	if cfg.Perf.Enabled {
		s.perf = telemetry.NewPerfCollector(cfg.Perf.Window, cfg.Perf.EMAAlpha)
	}
	s.graph = s.buildGraph()

	s.log.Info("solver created",
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
		"dye", fmt.Sprintf("%dx%d", cfg.Derived.DyeWidth, cfg.Derived.DyeHeight),
		"workers", s.dev.Workers(),
		"passes", s.graph.Len(),
	)
	return s
}

func gridSize(cfg *config.Config) field.Size {
	return field.Size{W: cfg.Grid.Width, H: cfg.Grid.Height}
}

func dyeSize(cfg *config.Config) field.Size {
	return field.Size{W: cfg.Derived.DyeWidth, H: cfg.Derived.DyeHeight}
}

// Step advances the simulation by dt seconds. It drains the splat queue,
// splits dt into substeps and runs the pass graph once per substep.
// A paused solver or a non-finite or non-positive dt is a no-op.
func (s *Solver) Step(dt float32) Frame {
	if s.paused {
		return Frame{Skipped: true}
	}
	plan, ok := pipeline.PlanSubsteps(dt, s.substepConfig())
	if !ok {
		return Frame{Skipped: true}
	}

	var obs pipeline.Observer
	if s.perf != nil {
		s.perf.StartTick()
		s.perf.StartPhase(telemetry.PhaseSplats)
		obs = s.perf
	}

	applied := s.applySplats()
	for i := 0; i < plan.Count; i++ {
		s.graph.Run(plan.DT, obs)
		s.simTime += plan.DT
	}

	if s.perf != nil {
		s.perf.EndTick()
	}
	s.frame++

	return Frame{
		Substeps:   plan.Count,
		DT:         plan.DT,
		Simulated:  plan.Total,
		Splats:     applied,
		Iterations: s.iterations,
	}
}

// Advance steps by the wall-clock time since the previous Advance.
// The first call and any long stall step by one nominal frame.
func (s *Solver) Advance() Frame {
	now := time.Now()
	dt := float32(defaultFrameDT)
	if !s.lastAdv.IsZero() {
		if elapsed := now.Sub(s.lastAdv).Seconds(); elapsed < maxAdvanceDT {
			dt = float32(elapsed)
		}
	}
	s.lastAdv = now
	return s.Step(dt)
}

func (s *Solver) substepConfig() pipeline.SubstepConfig {
	return pipeline.SubstepConfig{
		Enabled:    s.cfg.Substeps.Enabled,
		MaxDT:      s.cfg.Derived.SubstepMax,
		Max:        s.cfg.Substeps.Max,
		FrameMaxDT: float32(s.cfg.Time.MaxDT),
	}
}

// AddSplat queues one splat for the next frame.
func (s *Solver) AddSplat(sp splat.Splat) {
	s.queue.Push(sp)
}

// AddSplats queues several splats for the next frame.
func (s *Solver) AddSplats(list []splat.Splat) {
	s.queue.PushAll(list)
}

// QueueLen returns the number of expanded splats waiting.
func (s *Solver) QueueLen() int {
	return s.queue.Len()
}

// DroppedSplats returns how many queued splats backpressure has discarded.
func (s *Solver) DroppedSplats() uint64 {
	return s.queue.Dropped()
}

// Config returns a copy of the active configuration.
func (s *Solver) Config() config.Config {
	return s.cfg
}

// SetConfig replaces the configuration. A resolution change resizes every
// field; everything else is picked up by the passes at their next dispatch.
func (s *Solver) SetConfig(cfg config.Config) {
	cfg = cfg.Sanitized()
	prev := s.cfg
	s.cfg = cfg

	s.queue.Configure(splat.ParseSymmetry(cfg.Splats.Symmetry), cfg.Splats.MaxPerFrame)
	if cfg.Perf.Enabled && s.perf == nil {
		s.perf = telemetry.NewPerfCollector(cfg.Perf.Window, cfg.Perf.EMAAlpha)
	} else if !cfg.Perf.Enabled {
		s.perf = nil
	}
	if prev.Device != cfg.Device {
		s.log.Debug("device settings change ignored until restart", "workers", cfg.Device.Workers)
	}

	if !prev.SameResolution(&cfg) {
		s.fields.Resize(gridSize(&cfg), dyeSize(&cfg))
		s.log.Info("solver resized",
			"grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
			"dye", fmt.Sprintf("%dx%d", cfg.Derived.DyeWidth, cfg.Derived.DyeHeight),
		)
	}
}

// UpdateConfig applies fn to a copy of the active configuration and installs it.
func (s *Solver) UpdateConfig(fn func(*config.Config)) {
	cfg := s.cfg
	cfg.Scene.Emitters = append([]config.EmitterConfig(nil), s.cfg.Scene.Emitters...)
	fn(&cfg)
	cfg.Refresh()
	s.SetConfig(cfg)
}

// ApplyPatch merges a partial YAML or JSON document into the configuration.
func (s *Solver) ApplyPatch(patch []byte) error {
	cfg, err := config.Merge(s.cfg, patch)
	if err != nil {
		return err
	}
	s.SetConfig(cfg)
	return nil
}

// Resize changes the velocity and dye grid resolutions. Allocated fields
// are recreated zeroed; lazy fields never touched stay unallocated.
func (s *Solver) Resize(grid, dye field.Size) {
	s.UpdateConfig(func(c *config.Config) {
		c.Grid.Width, c.Grid.Height = grid.W, grid.H
		c.Grid.DyeWidth, c.Grid.DyeHeight = dye.W, dye.H
	})
}

// Reset zeroes every field and discards queued splats.
func (s *Solver) Reset() {
	s.fields.Clear()
	s.queue.Clear()
	s.simTime = 0
	s.frame = 0
	if s.perf != nil {
		s.perf.Reset()
	}
	s.log.Info("solver reset")
}

// Pause stops Step from advancing. It takes effect at the next frame.
func (s *Solver) Pause() { s.paused = true }

// Resume undoes Pause.
func (s *Solver) Resume() {
	s.paused = false
	s.lastAdv = time.Time{}
}

// Paused reports whether the solver is paused.
func (s *Solver) Paused() bool { return s.paused }

// FrameCount returns the number of frames stepped since creation or Reset.
func (s *Solver) FrameCount() int64 { return s.frame }

// SimTime returns the simulated seconds since creation or Reset.
func (s *Solver) SimTime() float32 { return s.simTime }

// PressureIterations returns the fine-grid sweep count of the last solve.
func (s *Solver) PressureIterations() int { return s.iterations }

// Field accessors return the current read buffer. Renderers treat them as
// read-only and must not hold them across a Step.

func (s *Solver) Velocity() *field.Buffer   { return s.fields.Read(FieldVelocity) }
func (s *Solver) Dye() *field.Buffer        { return s.fields.Read(FieldDye) }
func (s *Solver) Pressure() *field.Buffer   { return s.fields.Read(FieldPressure) }
func (s *Solver) Divergence() *field.Buffer { return s.fields.Read(FieldDivergence) }
func (s *Solver) Vorticity() *field.Buffer  { return s.fields.Read(FieldVorticity) }

// Temperature returns nil until the temperature field has been allocated.
func (s *Solver) Temperature() *field.Buffer { return s.optional(FieldTemperature) }

// Fuel returns nil until the fuel field has been allocated.
func (s *Solver) Fuel() *field.Buffer { return s.optional(FieldFuel) }

// Obstacles returns nil until an obstacle has been stamped.
func (s *Solver) Obstacles() *field.Buffer { return s.optional(FieldObstacles) }

func (s *Solver) optional(id field.ID) *field.Buffer {
	if !s.fields.IsAllocated(id) {
		return nil
	}
	return s.fields.Read(id)
}

// Buffers returns both physical buffers of a field and which one is
// current, for samplers that track double buffering themselves.
// Unallocated fields return nil buffers.
func (s *Solver) Buffers(id field.ID) (a, b *field.Buffer, current field.Tag) {
	return s.fields.Pair(id)
}

// Fields exposes the registry for introspection.
func (s *Solver) Fields() *field.Registry { return s.fields }

// Passes returns pass metadata in execution order.
func (s *Solver) Passes() []pipeline.PassInfo {
	return s.graph.Passes()
}

// SetPassEnabled toggles a pass and reports whether the name exists.
func (s *Solver) SetPassEnabled(name string, on bool) bool {
	ok := s.graph.SetEnabled(name, on)
	if !ok {
		s.log.Warn("unknown pass", "name", name)
	}
	return ok
}

// PerfStats returns per-stage timing. It is zero when perf is disabled.
func (s *Solver) PerfStats() telemetry.PerfStats {
	if s.perf == nil {
		return telemetry.PerfStats{}
	}
	return s.perf.Stats()
}

// DeviceStats returns dispatch counters.
func (s *Solver) DeviceStats() device.Stats {
	return s.dev.Stats()
}

// Measure computes whole-field statistics for telemetry.
func (s *Solver) Measure() telemetry.FieldStats {
	energy, peak := telemetry.MeasureVelocity(s.Velocity().Data)
	return telemetry.FieldStats{
		DyeMass:       float64(s.Dye().Mass()),
		KineticEnergy: energy,
		DivergenceL1:  absMass(s.Divergence().Data),
		MaxSpeed:      peak,
		Queued:        s.queue.Len(),
		Dropped:       s.queue.Dropped(),
		Iterations:    s.iterations,
	}
}

func absMass(data []float32) float64 {
	var sum float64
	for _, v := range data {
		sum += math.Abs(float64(v))
	}
	return sum
}

// Close releases the fields and, if the solver created it, the device.
func (s *Solver) Close() {
	s.fields.Dispose()
	if s.ownDevice {
		s.dev.Close()
	}
}

// obstaclesActive reports whether obstacle enforcement has anything to enforce.
func (s *Solver) obstaclesActive() bool {
	return s.cfg.Obstacles.Enabled && s.fields.IsAllocated(FieldObstacles)
}

func (s *Solver) solidWalls() bool {
	return s.cfg.Pressure.SolidWalls
}

func (s *Solver) boundaryMode() kernel.BoundaryMode {
	return kernel.ParseBoundary(s.cfg.Boundary.Mode)
}
