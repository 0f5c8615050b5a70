package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	values := []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1}
	mean, p10, p50, p90 := Summarize(values)

	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}
	if math.Abs(p10-0.19) > 0.001 || math.Abs(p50-0.55) > 0.001 || math.Abs(p90-0.91) > 0.001 {
		t.Errorf("percentiles = %v %v %v", p10, p50, p90)
	}
	// Input must not be reordered
	if values[0] != 1.0 {
		t.Error("Summarize sorted its input in place")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	mean, p10, p50, p90 := Summarize(nil)
	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("expected all zeros for empty input")
	}
}

func TestMeasureVelocity(t *testing.T) {
	energy, peak := MeasureVelocity([]float32{3, 4, 0, 0, 1, 0})
	if math.Abs(energy-13) > 1e-9 {
		t.Errorf("energy = %v, want 13", energy)
	}
	if math.Abs(peak-5) > 1e-9 {
		t.Errorf("max speed = %v, want 5", peak)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(3)
	c.RecordFrame(2, 0.01, 4)
	c.RecordFrame(1, 0.02, 0)
	c.RecordFrame(0, 0, 1) // Paused or invalid frame

	if c.ShouldFlush(2) {
		t.Error("expected no flush before the window ends")
	}
	if !c.ShouldFlush(3) {
		t.Fatal("expected flush at window end")
	}

	stats := c.Flush(3, FieldStats{DyeMass: 12, Queued: 5, Dropped: 7, Iterations: 20})

	if stats.Frames != 3 || stats.Substeps != 3 || stats.SplatsApplied != 5 {
		t.Errorf("unexpected counters %+v", stats)
	}
	if math.Abs(stats.SimTimeSec-0.04) > 1e-6 {
		t.Errorf("sim time = %v, want 0.04", stats.SimTimeSec)
	}
	if math.Abs(stats.SubstepsMean-1) > 1e-9 {
		t.Errorf("substeps mean = %v, want 1", stats.SubstepsMean)
	}
	if stats.DyeMass != 12 || stats.SplatsQueued != 5 || stats.SplatsDropped != 7 || stats.Iterations != 20 {
		t.Errorf("field stats not carried over: %+v", stats)
	}

	next := c.Flush(6, FieldStats{})
	if next.WindowStartFrame != 3 || next.Frames != 0 {
		t.Errorf("expected counters reset, got %+v", next)
	}
}
