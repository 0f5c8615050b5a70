// Package app runs a solver frame loop: scripted emitters, remote stream
// commands, telemetry windows and, in windowed mode, the raylib viewer.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/fluid"
	"github.com/pthm-cable/plume/scene"
	"github.com/pthm-cable/plume/splat"
	"github.com/pthm-cable/plume/stream"
	"github.com/pthm-cable/plume/telemetry"
)

// HeadlessDT is the fixed frame time used without a window.
const HeadlessDT = 1.0 / 60.0

// commandBuffer bounds pending stream commands between frames.
const commandBuffer = 64

// Options configures an App.
type Options struct {
	Logger      *slog.Logger
	OutputDir   string // CSV logs and config snapshot (empty = disabled)
	LogStats    bool   // Log each telemetry window via slog
	StatsWindow int    // Frames per telemetry window (0 = perf window)
	StreamAddr  string // Overrides stream.addr when non-empty
	Headless    bool
}

// App owns the solver and everything that feeds or observes it.
type App struct {
	log    *slog.Logger
	solver *fluid.Solver
	scene  *scene.Scene
	splats []splat.Splat

	// Telemetry
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
	logStats  bool

	// Stream preview
	server    *stream.Server
	cancel    context.CancelFunc
	serveDone chan error
	streamAcc float32
	pixels    []byte

	last fluid.Frame
	win  *window
}

// New builds an app. In windowed mode the raylib window must already be open.
func New(cfg config.Config, opts Options) (*App, error) {
	cfg = cfg.Sanitized()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	statsWindow := opts.StatsWindow
	if statsWindow <= 0 {
		statsWindow = cfg.Perf.Window
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir, &cfg, statsWindow)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	a := &App{
		log:       log,
		solver:    fluid.New(cfg, fluid.Options{Logger: log}),
		scene:     scene.New(cfg.Scene.Emitters, cfg.Splats),
		collector: telemetry.NewCollector(statsWindow),
		bookmarks: telemetry.NewBookmarkDetector(10),
		output:    output,
		logStats:  opts.LogStats,
	}

	addr := cfg.Stream.Addr
	if opts.StreamAddr != "" {
		addr = opts.StreamAddr
	}
	if addr != "" {
		a.startStream(addr)
	}

	if !opts.Headless {
		a.win = newWindow(&cfg)
	}

	log.Info("app started",
		"emitters", a.scene.Len(),
		"headless", opts.Headless,
		"stream", addr,
		"output_dir", opts.OutputDir,
	)
	return a, nil
}

// Solver returns the underlying solver.
func (a *App) Solver() *fluid.Solver {
	return a.solver
}

// Frame returns the frame counter.
func (a *App) Frame() int64 {
	return a.solver.FrameCount()
}

// Step runs one frame of dt seconds: stream commands, emitters, solver
// step, telemetry and the stream broadcast.
func (a *App) Step(dt float32) fluid.Frame {
	a.drainCommands()

	if !a.solver.Paused() {
		a.splats = a.scene.Update(dt, a.splats[:0])
		a.solver.AddSplats(a.splats)
	}

	f := a.solver.Step(dt)
	if !f.Skipped {
		a.collector.RecordFrame(f.Substeps, f.DT, f.Splats)
		a.flushTelemetry()
	}
	a.broadcast(dt)
	a.last = f
	return f
}

// UpdateHeadless steps one fixed-size frame.
func (a *App) UpdateHeadless() fluid.Frame {
	return a.Step(HeadlessDT)
}

// Unload stops the stream server, flushes output and releases the solver.
func (a *App) Unload() {
	a.stopStream()
	if a.win != nil {
		a.win.unload()
	}
	if err := a.output.Close(); err != nil {
		a.log.Error("closing output", "error", err)
	}
	a.solver.Close()
}
