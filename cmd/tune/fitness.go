package main

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/fluid"
	"github.com/pthm-cable/plume/kernel"
	"github.com/pthm-cable/plume/scene"
	"github.com/pthm-cable/plume/splat"
)

// Fitness assigned to runs that blow up.
const unstableFitness = 1e9

// Frames simulated before divergence is measured.
const warmupFrames = 30

// FitnessEvaluator runs headless solvers and scores the residual
// divergence left after projection (lower = better).
type FitnessEvaluator struct {
	frames     int
	iterations int
	seeds      []int64
	baseConfig config.Config

	mu         sync.Mutex
	lastStable bool
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(frames, iterations int, seeds []int64, baseCfg config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		frames:     max(frames, warmupFrames+1),
		iterations: max(iterations, 1),
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastStable reports whether every seed of the most recent evaluation
// stayed finite.
func (fe *FitnessEvaluator) LastStable() bool {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastStable
}

// Evaluate returns the mean post-projection divergence over all seeds.
// Seeds run in parallel; each owns its solver.
func (fe *FitnessEvaluator) Evaluate(ps PressureSettings) float64 {
	cfg := fe.baseConfig
	cfg.Scene.Emitters = append([]config.EmitterConfig(nil), fe.baseConfig.Scene.Emitters...)
	ps.Apply(&cfg, fe.iterations)
	cfg.Perf.Enabled = false

	results := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(i int, seed int64) {
			defer wg.Done()
			results[i] = fe.runSeed(cfg, seed)
		}(i, seed)
	}
	wg.Wait()

	stable := true
	var sum float64
	for _, r := range results {
		if r >= unstableFitness {
			stable = false
		}
		sum += r
	}
	mean := sum / float64(len(results))

	fe.mu.Lock()
	fe.lastStable = stable
	fe.mu.Unlock()
	return mean
}

// runSeed drives one solver with the configured emitters plus a seeded
// burst of random splats, then averages the L1 divergence of the
// projected velocity over the remaining frames.
func (fe *FitnessEvaluator) runSeed(cfg config.Config, seed int64) float64 {
	dev := device.New(cfg.Device.Workers, cfg.Device.ParallelThreshold)
	defer dev.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := fluid.New(cfg, fluid.Options{Logger: quiet, Device: dev})
	defer s.Close()

	sc := scene.New(cfg.Scene.Emitters, cfg.Splats)
	rng := rand.New(rand.NewSource(seed))
	s.AddSplats(randomSplats(rng, 24, cfg.Splats))

	const dt = 1.0 / 60.0
	var buf []splat.Splat
	var div *field.Buffer
	var total float64
	measured := 0

	for f := 0; f < fe.frames; f++ {
		buf = sc.Update(dt, buf[:0])
		s.AddSplats(buf)
		s.Step(dt)

		if f < warmupFrames {
			continue
		}
		vel := s.Velocity()
		if div == nil || div.W != vel.W || div.H != vel.H {
			div = field.NewBuffer(vel.W, vel.H, field.Scalar)
		}
		kernel.Divergence(dev, div, vel, cfg.Pressure.SolidWalls)
		l1 := l1Norm(div.Data)
		if math.IsNaN(l1) || math.IsInf(l1, 0) {
			return unstableFitness
		}
		total += l1 / float64(len(div.Data))
		measured++
	}
	return total / float64(measured)
}

func randomSplats(rng *rand.Rand, n int, defaults config.SplatsConfig) []splat.Splat {
	out := make([]splat.Splat, n)
	for i := range out {
		angle := rng.Float64() * 2 * math.Pi
		out[i] = splat.Splat{
			X:      rng.Float32(),
			Y:      rng.Float32(),
			DX:     float32(math.Cos(angle) * defaults.Force * 0.1),
			DY:     float32(math.Sin(angle) * defaults.Force * 0.1),
			Color:  [3]float32{rng.Float32(), rng.Float32(), rng.Float32()},
			Radius: float32(defaults.Radius),
		}
	}
	return out
}

func l1Norm(data []float32) float64 {
	var sum float64
	for _, v := range data {
		sum += math.Abs(float64(v))
	}
	return sum
}
