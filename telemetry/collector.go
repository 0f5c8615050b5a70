package telemetry

// Collector accumulates per-frame scheduling data within a window of frames
// and produces WindowStats.
type Collector struct {
	windowFrames int64

	// Current window tracking
	windowStartFrame int64
	simTime          float64

	frames   int
	substeps int
	splats   int
	stepDTs  []float64
}

// NewCollector creates a collector that flushes every windowFrames frames.
func NewCollector(windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{windowFrames: int64(windowFrames)}
}

// RecordFrame records one simulated frame.
func (c *Collector) RecordFrame(substeps int, stepDT float32, splats int) {
	c.frames++
	c.substeps += substeps
	c.splats += splats
	c.simTime += float64(substeps) * float64(stepDT)
	if substeps > 0 {
		c.stepDTs = append(c.stepDTs, float64(stepDT))
	}
}

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(currentFrame int64) bool {
	return currentFrame-c.windowStartFrame >= c.windowFrames
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentFrame int64, fields FieldStats) WindowStats {
	mean, p10, p50, p90 := Summarize(c.stepDTs)

	var substepsMean float64
	if c.frames > 0 {
		substepsMean = float64(c.substeps) / float64(c.frames)
	}

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   currentFrame,
		SimTimeSec:       c.simTime,

		Frames:       c.frames,
		Substeps:     c.substeps,
		SubstepsMean: substepsMean,
		StepDTMean:   mean,
		StepDTP10:    p10,
		StepDTP50:    p50,
		StepDTP90:    p90,
		Iterations:   fields.Iterations,

		SplatsApplied: c.splats,
		SplatsQueued:  fields.Queued,
		SplatsDropped: fields.Dropped,

		DyeMass:       fields.DyeMass,
		KineticEnergy: fields.KineticEnergy,
		DivergenceL1:  fields.DivergenceL1,
		MaxSpeed:      fields.MaxSpeed,
	}

	// Reset for next window; simulated time keeps accumulating.
	c.windowStartFrame = currentFrame
	c.frames = 0
	c.substeps = 0
	c.splats = 0
	c.stepDTs = c.stepDTs[:0]

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int64 {
	return c.windowFrames
}
