package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/plume/config"
)

// RunInfo is the single row of run.csv describing the solver setup.
type RunInfo struct {
	Started     string `csv:"started"`
	GridW       int    `csv:"grid_w"`
	GridH       int    `csv:"grid_h"`
	DyeW        int    `csv:"dye_w"`
	DyeH        int    `csv:"dye_h"`
	Solver      string `csv:"pressure_solver"`
	Iterations  int    `csv:"pressure_iterations"`
	Adaptive    bool   `csv:"adaptive"`
	Multigrid   bool   `csv:"multigrid"`
	Substeps    bool   `csv:"substeps"`
	Strategy    string `csv:"splat_strategy"`
	Workers     int    `csv:"workers"`
	WindowSize  int    `csv:"window"`
	SolidWalls  bool   `csv:"solid_walls"`
	Obstacles   bool   `csv:"obstacles"`
	Temperature bool   `csv:"temperature"`
}

// NewRunInfo describes cfg as a run.csv row.
func NewRunInfo(cfg *config.Config, window int) RunInfo {
	return RunInfo{
		Started:     time.Now().UTC().Format(time.RFC3339),
		GridW:       cfg.Grid.Width,
		GridH:       cfg.Grid.Height,
		DyeW:        cfg.Derived.DyeWidth,
		DyeH:        cfg.Derived.DyeHeight,
		Solver:      cfg.Pressure.Solver,
		Iterations:  cfg.Pressure.Iterations,
		Adaptive:    cfg.Pressure.Adaptive,
		Multigrid:   cfg.Multigrid.Enabled,
		Substeps:    cfg.Substeps.Enabled,
		Strategy:    cfg.Splats.Strategy,
		Workers:     cfg.Device.Workers,
		WindowSize:  window,
		SolidWalls:  cfg.Pressure.SolidWalls,
		Obstacles:   cfg.Obstacles.Enabled,
		Temperature: cfg.Temperature.Enabled,
	}
}

// PassTiming is one row of passes.csv: one pass over one window.
type PassTiming struct {
	Frame int64   `csv:"frame"`
	Pass  string  `csv:"pass"`
	AvgUS int64   `csv:"avg_us"`
	EMAUS int64   `csv:"ema_us"`
	Pct   float64 `csv:"pct"`
}

// PassTimings lists the passes that ran during the window, in frame order.
func (s PerfStats) PassTimings(frame int64) []PassTiming {
	var rows []PassTiming
	for _, phase := range Phases {
		avg, ok := s.PhaseAvg[phase]
		if !ok {
			continue
		}
		rows = append(rows, PassTiming{
			Frame: frame,
			Pass:  phase,
			AvgUS: avg.Microseconds(),
			EMAUS: s.PhaseEMA[phase].Microseconds(),
			Pct:   s.PhasePct[phase],
		})
	}
	return rows
}

// csvLog appends records of one type to a CSV file, header first.
type csvLog[T any] struct {
	name   string
	f      *os.File
	header bool
}

func openLog[T any](dir, name string) (*csvLog[T], error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog[T]{name: name, f: f}, nil
}

func (l *csvLog[T]) write(records ...T) error {
	if l == nil || l.f == nil {
		return fmt.Errorf("writing %s: %w", l.logName(), os.ErrClosed)
	}
	if len(records) == 0 {
		return nil
	}
	var err error
	if l.header {
		err = gocsv.MarshalWithoutHeaders(records, l.f)
	} else {
		err = gocsv.Marshal(records, l.f)
		l.header = err == nil
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", l.name, err)
	}
	return nil
}

func (l *csvLog[T]) logName() string {
	if l == nil {
		return "log"
	}
	return l.name
}

func (l *csvLog[T]) close() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// OutputManager writes one run directory: config.yaml and run.csv at start,
// then a row per telemetry window and per bookmark.
type OutputManager struct {
	dir       string
	windows   *csvLog[WindowStats]
	perf      *csvLog[PerfStatsCSV]
	passes    *csvLog[PassTiming]
	bookmarks *csvLog[Bookmark]
}

// NewOutputManager creates dir, snapshots cfg and records the run setup.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, cfg *config.Config, window int) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := cfg.WriteYAML(filepath.Join(dir, "config.yaml")); err != nil {
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	run, err := openLog[RunInfo](dir, "run.csv")
	if err != nil {
		return nil, err
	}
	err = run.write(NewRunInfo(cfg, window))
	if cerr := run.close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	om := &OutputManager{dir: dir}
	if om.windows, err = openLog[WindowStats](dir, "telemetry.csv"); err != nil {
		return nil, err
	}
	if om.perf, err = openLog[PerfStatsCSV](dir, "perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.passes, err = openLog[PassTiming](dir, "passes.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.bookmarks, err = openLog[Bookmark](dir, "bookmarks.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

// WriteWindow appends a flushed window: flow stats to telemetry.csv, frame
// timing to perf.csv and per-pass timing to passes.csv.
func (om *OutputManager) WriteWindow(stats WindowStats, perf PerfStats) error {
	if om == nil {
		return nil
	}
	frame := stats.WindowEndFrame
	if err := om.windows.write(stats); err != nil {
		return err
	}
	if err := om.perf.write(perf.ToCSV(frame)); err != nil {
		return err
	}
	return om.passes.write(perf.PassTimings(frame)...)
}

// WriteBookmark appends a bookmark to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.write(b)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every log. Later writes fail; closing twice is a no-op.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, err := range []error{
		om.windows.close(),
		om.perf.close(),
		om.passes.close(),
		om.bookmarks.close(),
	} {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
