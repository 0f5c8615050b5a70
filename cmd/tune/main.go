// Package main searches for the SOR over-relaxation factor and pressure
// warm-start decay that leave the least divergence after a fixed
// iteration budget, using CMA-ES over headless solver runs.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/plume/config"
)

// evalRecord is one row of tune_log.csv.
type evalRecord struct {
	Eval      int     `csv:"eval"`
	Fitness   float64 `csv:"mean_divergence"`
	Stable    bool    `csv:"stable"`
	SORFactor float64 `csv:"sor_factor"`
	Decay     float64 `csv:"decay"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	frames := flag.Int("frames", 180, "Frames simulated per run")
	iterations := flag.Int("iterations", 10, "Fixed pressure iterations per step")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 60, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	baseCfg := *config.Cfg()

	evalSeeds := make([]int64, max(*seeds, 1))
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(*frames, *iterations, evalSeeds, baseCfg)

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		slog.Error("failed to create log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	dim := searchDim
	popSize := *population
	if popSize == 0 {
		popSize = 4 + 3*dim
	}

	evalCount := 0
	bestFitness := 1e18
	var best PressureSettings
	haveBest := false
	headerWritten := false
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			ps := Decode(x)
			fitness := evaluator.Evaluate(ps)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				best, haveBest = ps, true
			}

			rec := []evalRecord{{
				Eval:      evalCount,
				Fitness:   fitness,
				Stable:    evaluator.LastStable(),
				SORFactor: ps.SORFactor,
				Decay:     ps.Decay,
			}}
			var werr error
			if headerWritten {
				werr = gocsv.MarshalWithoutHeaders(rec, logFile)
			} else {
				werr = gocsv.Marshal(rec, logFile)
				headerWritten = true
			}
			if werr != nil {
				slog.Error("failed to write tune log", "error", werr)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(*maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			slog.Info("evaluation",
				"eval", evalCount,
				"of", *maxEvals,
				"sor_factor", ps.SORFactor,
				"decay", ps.Decay,
				"divergence", fitness,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0,
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	slog.Info("starting CMA-ES search",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", len(evalSeeds),
		"frames", *frames,
		"iterations", *iterations,
	)

	initX := Encode(DefaultPressureSettings)
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if !haveBest && result != nil {
		best, haveBest = Decode(result.X), true
	}
	if !haveBest {
		slog.Error("no evaluations completed")
		os.Exit(1)
	}

	slog.Info("search complete",
		"evaluations", evalCount,
		"elapsed", formatDuration(time.Since(startTime)),
		"best_divergence", bestFitness,
		"sor_factor", best.SORFactor,
		"decay", best.Decay,
	)

	bestCfg := baseCfg
	bestCfg.Scene.Emitters = append([]config.EmitterConfig(nil), baseCfg.Scene.Emitters...)
	best.Apply(&bestCfg, *iterations)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
		os.Exit(1)
	}
	slog.Info("best config saved", "path", configOutPath)
}
