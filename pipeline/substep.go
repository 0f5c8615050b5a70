package pipeline

import "math"

// SubstepConfig bounds how one frame's elapsed time is split.
type SubstepConfig struct {
	Enabled    bool
	MaxDT      float32 // Largest single substep when enabled
	Max        int     // Most substeps per frame when enabled
	FrameMaxDT float32 // Clamp for the single step when disabled
}

// Plan is the substep schedule for one frame.
type Plan struct {
	Count int
	DT    float32 // Per-substep dt
	Total float32 // Count * DT, the simulated time
}

// PlanSubsteps splits dt into at most cfg.Max even substeps no longer than
// cfg.MaxDT. Time beyond Max*MaxDT is dropped so a stalled frame cannot
// trigger unbounded catch-up. ok is false for non-finite or non-positive dt.
func PlanSubsteps(dt float32, cfg SubstepConfig) (plan Plan, ok bool) {
	f := float64(dt)
	if math.IsNaN(f) || math.IsInf(f, 0) || dt <= 0 {
		return Plan{}, false
	}

	if !cfg.Enabled {
		if cfg.FrameMaxDT > 0 {
			dt = min(dt, cfg.FrameMaxDT)
		}
		return Plan{Count: 1, DT: dt, Total: dt}, true
	}

	maxDT := cfg.MaxDT
	if maxDT <= 0 {
		maxDT = 1.0 / 60
	}
	maxCount := max(cfg.Max, 1)

	total := min(dt, float32(maxCount)*maxDT)
	count := int(math.Ceil(float64(total / maxDT)))
	count = min(max(count, 1), maxCount)
	return Plan{Count: count, DT: total / float32(count), Total: total}, true
}

// AdaptiveIterations scales a base solver iteration count by dt/refDT so
// work tracks the actual substep size, rounded and clamped to [lo, hi].
func AdaptiveIterations(base int, dt, refDT float32, lo, hi int) int {
	hi = max(hi, lo)
	if refDT <= 0 {
		return min(max(base, lo), hi)
	}
	n := int(math.Round(float64(float32(base) * dt / refDT)))
	return min(max(n, lo), hi)
}
