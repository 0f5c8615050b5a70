package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/plume/pipeline"
)

// PhaseSplats times splat queue draining and injection at frame start.
// All other phases are the pipeline stage names.
const PhaseSplats = "splats"

// Phases lists every phase in frame order.
var Phases = append([]string{PhaseSplats}, pipeline.Order...)

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks per-phase timing over a rolling window and as an
// exponential moving average. Substeps of one frame accumulate into the
// same phase.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string

	// Exponential moving averages
	alpha    float64
	emaTick  float64
	emaPhase map[string]float64
	emaReady bool

	// Frame timing (for graphics mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of frames to average over.
// alpha: EMA smoothing factor in (0,1]; out-of-range values use 0.1.
func NewPerfCollector(windowSize int, alpha float64) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
		alpha:         alpha,
		emaPhase:      make(map[string]float64),
	}
}

// StartTick begins timing a new frame.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current frame and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	sample := PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}

	p.updateEMA(sample)
}

func (p *PerfCollector) updateEMA(s PerfSample) {
	if !p.emaReady {
		p.emaTick = float64(s.TickDuration)
		for phase, d := range s.Phases {
			p.emaPhase[phase] = float64(d)
		}
		p.emaReady = true
		return
	}
	p.emaTick += p.alpha * (float64(s.TickDuration) - p.emaTick)
	for phase := range p.emaPhase {
		if _, ok := s.Phases[phase]; !ok {
			p.emaPhase[phase] -= p.alpha * p.emaPhase[phase]
		}
	}
	for phase, d := range s.Phases {
		p.emaPhase[phase] += p.alpha * (float64(d) - p.emaPhase[phase])
	}
}

// RecordFrame records frame timing for graphics mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// Reset discards all samples and averages.
func (p *PerfCollector) Reset() {
	clear(p.samples)
	p.writeIndex = 0
	p.sampleCount = 0
	p.emaReady = false
	p.emaTick = 0
	clear(p.emaPhase)
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	EMATickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration
	PhaseEMA map[string]time.Duration

	// Phase percentages of total tick time
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64

	// Frame timing (graphics mode)
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	phaseEMA := make(map[string]time.Duration, len(p.emaPhase))
	for phase, v := range p.emaPhase {
		phaseEMA[phase] = time.Duration(v)
	}

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:      make(map[string]time.Duration),
			PhaseEMA:      phaseEMA,
			PhasePct:      make(map[string]float64),
			FrameDuration: p.frameDuration,
			FPS:           fps,
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		EMATickDuration: time.Duration(p.emaTick),
		PhaseAvg:        phaseAvg,
		PhaseEMA:        phaseEMA,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
		FrameDuration:   p.frameDuration,
		FPS:             fps,
	}
}

// LogValue implements slog.LogValuer for structured logging.
// Phases under 0.1% of the frame are omitted.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_frame_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_frame_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_frame_us", s.MaxTickDuration.Microseconds()),
		slog.Int64("ema_frame_us", s.EMATickDuration.Microseconds()),
		slog.Float64("frames_per_sec", s.TicksPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Frame        int64   `csv:"frame"`
	AvgFrameUS   int64   `csv:"avg_frame_us"`
	MinFrameUS   int64   `csv:"min_frame_us"`
	MaxFrameUS   int64   `csv:"max_frame_us"`
	EMAFrameUS   int64   `csv:"ema_frame_us"`
	FramesPerSec float64 `csv:"frames_per_sec"`
	FPS          float64 `csv:"fps"`

	SplatsPct               float64 `csv:"splats_pct"`
	VorticityPct            float64 `csv:"vorticity_pct"`
	AdvectVelocityPct       float64 `csv:"advect_velocity_pct"`
	ViscosityPct            float64 `csv:"viscosity_pct"`
	TurbulencePct           float64 `csv:"turbulence_pct"`
	ForcesPct               float64 `csv:"forces_pct"`
	ObstaclesPrePct         float64 `csv:"obstacles_pre_pct"`
	DivergencePct           float64 `csv:"divergence_pct"`
	PressurePct             float64 `csv:"pressure_pct"`
	GradientSubtractPct     float64 `csv:"gradient_subtract_pct"`
	VelocityBoundaryPct     float64 `csv:"velocity_boundary_pct"`
	ObstaclesPostPct        float64 `csv:"obstacles_post_pct"`
	AdvectDyePct            float64 `csv:"advect_dye_pct"`
	DyeBoundaryPct          float64 `csv:"dye_boundary_pct"`
	ObstaclesDyePct         float64 `csv:"obstacles_dye_pct"`
	MultiphasePct           float64 `csv:"multiphase_pct"`
	AdvectTemperaturePct    float64 `csv:"advect_temperature_pct"`
	ObstaclesTemperaturePct float64 `csv:"obstacles_temperature_pct"`
	AdvectFuelPct           float64 `csv:"advect_fuel_pct"`
	CombustionPct           float64 `csv:"combustion_pct"`
	FireDyePct              float64 `csv:"fire_dye_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(frame int64) PerfStatsCSV {
	pct := s.PhasePct
	return PerfStatsCSV{
		Frame:        frame,
		AvgFrameUS:   s.AvgTickDuration.Microseconds(),
		MinFrameUS:   s.MinTickDuration.Microseconds(),
		MaxFrameUS:   s.MaxTickDuration.Microseconds(),
		EMAFrameUS:   s.EMATickDuration.Microseconds(),
		FramesPerSec: s.TicksPerSecond,
		FPS:          s.FPS,

		SplatsPct:               pct[PhaseSplats],
		VorticityPct:            pct[pipeline.StageVorticity],
		AdvectVelocityPct:       pct[pipeline.StageAdvectVelocity],
		ViscosityPct:            pct[pipeline.StageViscosity],
		TurbulencePct:           pct[pipeline.StageTurbulence],
		ForcesPct:               pct[pipeline.StageForces],
		ObstaclesPrePct:         pct[pipeline.StageObstaclesPre],
		DivergencePct:           pct[pipeline.StageDivergence],
		PressurePct:             pct[pipeline.StagePressure],
		GradientSubtractPct:     pct[pipeline.StageGradientSubtract],
		VelocityBoundaryPct:     pct[pipeline.StageVelocityBoundary],
		ObstaclesPostPct:        pct[pipeline.StageObstaclesPost],
		AdvectDyePct:            pct[pipeline.StageAdvectDye],
		DyeBoundaryPct:          pct[pipeline.StageDyeBoundary],
		ObstaclesDyePct:         pct[pipeline.StageObstaclesDye],
		MultiphasePct:           pct[pipeline.StageMultiphase],
		AdvectTemperaturePct:    pct[pipeline.StageAdvectTemperature],
		ObstaclesTemperaturePct: pct[pipeline.StageObstaclesTemperature],
		AdvectFuelPct:           pct[pipeline.StageAdvectFuel],
		CombustionPct:           pct[pipeline.StageCombustion],
		FireDyePct:              pct[pipeline.StageFireDye],
	}
}
