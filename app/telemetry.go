package app

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (a *App) flushTelemetry() {
	frame := a.solver.FrameCount()
	if !a.collector.ShouldFlush(frame) {
		return
	}

	stats := a.collector.Flush(frame, a.solver.Measure())
	perfStats := a.solver.PerfStats()

	if a.logStats {
		a.log.Info("stats", "window", stats)
		a.log.Info("perf", "stats", perfStats)
	}

	if err := a.output.WriteWindow(stats, perfStats); err != nil {
		a.log.Error("failed to write telemetry", "error", err)
	}

	for _, bm := range a.bookmarks.Check(stats) {
		if a.logStats {
			bm.LogBookmark()
		}
		if err := a.output.WriteBookmark(bm); err != nil {
			a.log.Error("failed to write bookmark", "error", err)
		}
	}
}
