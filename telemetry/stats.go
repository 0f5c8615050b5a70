package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// WindowStats holds aggregated solver statistics for a window of frames.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-"`
	WindowEndFrame   int64   `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Scheduling during window
	Frames       int     `csv:"frames"`
	Substeps     int     `csv:"substeps"`
	SubstepsMean float64 `csv:"substeps_mean"`
	StepDTMean   float64 `csv:"step_dt_mean"`
	StepDTP10    float64 `csv:"step_dt_p10"`
	StepDTP50    float64 `csv:"step_dt_p50"`
	StepDTP90    float64 `csv:"step_dt_p90"`
	Iterations   int     `csv:"pressure_iterations"` // Last pressure iteration count

	// Injection
	SplatsApplied int    `csv:"splats_applied"`
	SplatsQueued  int    `csv:"splats_queued"`
	SplatsDropped uint64 `csv:"splats_dropped"` // Cumulative

	// Field state sampled at window end
	DyeMass       float64 `csv:"dye_mass"`
	KineticEnergy float64 `csv:"kinetic_energy"`
	DivergenceL1  float64 `csv:"divergence_l1"`
	MaxSpeed      float64 `csv:"max_speed"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summarize calculates mean and percentiles of values.
func Summarize(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// FieldStats are whole-field measurements taken by the caller at flush time.
type FieldStats struct {
	DyeMass       float64
	KineticEnergy float64
	DivergenceL1  float64
	MaxSpeed      float64
	Queued        int
	Dropped       uint64
	Iterations    int
}

// MeasureVelocity returns kinetic energy (0.5*sum |u|^2) and the peak speed
// of an interleaved vec2 field.
func MeasureVelocity(data []float32) (energy, maxSpeed float64) {
	for i := 0; i+1 < len(data); i += 2 {
		u, v := float64(data[i]), float64(data[i+1])
		s2 := u*u + v*v
		energy += 0.5 * s2
		maxSpeed = max(maxSpeed, s2)
	}
	return energy, math.Sqrt(maxSpeed)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("frames", s.Frames),
		slog.Int("substeps", s.Substeps),
		slog.Float64("substeps_mean", s.SubstepsMean),
		slog.Float64("step_dt_p50", s.StepDTP50),
		slog.Int("pressure_iterations", s.Iterations),
		slog.Int("splats_applied", s.SplatsApplied),
		slog.Int("splats_queued", s.SplatsQueued),
		slog.Uint64("splats_dropped", s.SplatsDropped),
		slog.Float64("dye_mass", s.DyeMass),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("divergence_l1", s.DivergenceL1),
		slog.Float64("max_speed", s.MaxSpeed),
	)
}
