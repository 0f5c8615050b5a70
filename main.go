package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/app"
	"github.com/pthm-cable/plume/config"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Telemetry window in frames (0 = perf window)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	serve := flag.String("serve", "", "Websocket preview address, e.g. :8080 (overrides stream.addr)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg().Sanitized()

	opts := app.Options{
		Logger:      logger,
		OutputDir:   *outputDir,
		LogStats:    *logStats,
		StatsWindow: *statsWindow,
		StreamAddr:  *serve,
		Headless:    *headless,
	}

	if *headless {
		runHeadless(cfg, opts, *maxFrames)
		return
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Plume")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	a, err := app.New(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer a.Unload()

	for !rl.WindowShouldClose() {
		a.Update()
		a.Draw()

		if *maxFrames > 0 && a.Frame() >= int64(*maxFrames) {
			break
		}
	}
}

// runHeadless steps fixed frames until interrupted or maxFrames is reached.
func runHeadless(cfg config.Config, opts app.Options, maxFrames int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Unload()

	slog.Info("starting headless simulation",
		"max_frames", maxFrames,
		"stats_window", opts.StatsWindow,
	)

	for ctx.Err() == nil {
		a.UpdateHeadless()

		if maxFrames > 0 && a.Frame() >= int64(maxFrames) {
			slog.Info("max frames reached", "frame", a.Frame())
			return
		}
	}
	slog.Info("interrupted", "frame", a.Frame())
}
