package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/plume/config"
)

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_EnergySpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndFrame: int64(i * 60), KineticEnergy: 10})
	}

	bookmarks := bd.Check(WindowStats{WindowEndFrame: 300, KineticEnergy: 100})
	if !hasBookmark(bookmarks, BookmarkEnergySpike) {
		t.Error("expected energy_spike bookmark")
	}
}

func TestBookmarkDetector_DyeDepleted(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndFrame: int64(i * 60), DyeMass: 500})
	}

	bookmarks := bd.Check(WindowStats{WindowEndFrame: 300, DyeMass: 20})
	if !hasBookmark(bookmarks, BookmarkDyeDepleted) {
		t.Error("expected dye_depleted bookmark")
	}

	// Peak resets, so a further small drop does not retrigger
	bookmarks = bd.Check(WindowStats{WindowEndFrame: 360, DyeMass: 18})
	if hasBookmark(bookmarks, BookmarkDyeDepleted) {
		t.Error("expected no repeated dye_depleted bookmark")
	}
}

func TestBookmarkDetector_BacklogDrop(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if bookmarks := bd.Check(WindowStats{SplatsDropped: 0}); len(bookmarks) != 0 {
		t.Errorf("expected no bookmarks, got %v", bookmarks)
	}
	bookmarks := bd.Check(WindowStats{WindowEndFrame: 60, SplatsDropped: 40, SplatsQueued: 256})
	if !hasBookmark(bookmarks, BookmarkBacklogDrop) {
		t.Fatal("expected backlog_drop bookmark")
	}
	if bookmarks := bd.Check(WindowStats{WindowEndFrame: 120, SplatsDropped: 40}); hasBookmark(bookmarks, BookmarkBacklogDrop) {
		t.Error("expected no bookmark when the drop count is unchanged")
	}
}

func TestBookmarkDetector_SettledFlow(t *testing.T) {
	bd := NewBookmarkDetector(10)

	found := false
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndFrame: int64(i * 60), KineticEnergy: 50})
		if hasBookmark(bookmarks, BookmarkSettledFlow) {
			if found {
				t.Fatal("settled_flow should trigger exactly once")
			}
			found = true
		}
	}
	if !found {
		t.Error("expected settled_flow bookmark")
	}
}

func TestOutputManagerWritesRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	cfg := config.Default()
	cfg.Multigrid.Enabled = true
	om, err := NewOutputManager(dir, &cfg, 30)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	perf := PerfStats{
		PhaseAvg: map[string]time.Duration{PhaseSplats: 2 * time.Microsecond, "pressure": 40 * time.Microsecond},
		PhaseEMA: map[string]time.Duration{"pressure": 35 * time.Microsecond},
		PhasePct: map[string]float64{"pressure": 90},
	}
	for i := 0; i < 2; i++ {
		if err := om.WriteWindow(WindowStats{WindowEndFrame: int64(i), DyeMass: 1}, perf); err != nil {
			t.Fatalf("WriteWindow: %v", err)
		}
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkEnergySpike, Frame: 3, Description: "x"}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := om.WriteBookmark(Bookmark{}); err == nil {
		t.Error("expected write after Close to fail")
	}

	lines := readLines(t, filepath.Join(dir, "telemetry.csv"))
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("expected header plus 2 rows, got %q", lines)
	}

	perfLines := readLines(t, filepath.Join(dir, "perf.csv"))
	if len(perfLines) != 3 || !strings.Contains(perfLines[0], "pressure_pct") {
		t.Errorf("unexpected perf.csv %q", perfLines)
	}

	// Two passes per window, in frame order
	passes := readLines(t, filepath.Join(dir, "passes.csv"))
	if len(passes) != 5 || passes[0] != "frame,pass,avg_us,ema_us,pct" {
		t.Fatalf("unexpected passes.csv %q", passes)
	}
	if passes[1] != "0,splats,2,0,0" || passes[2] != "0,pressure,40,35,90" {
		t.Errorf("unexpected pass rows %q", passes[1:3])
	}

	run := readLines(t, filepath.Join(dir, "run.csv"))
	if len(run) != 2 || !strings.HasPrefix(run[0], "started,grid_w,grid_h,dye_w,dye_h,pressure_solver") {
		t.Fatalf("unexpected run.csv %q", run)
	}
	want := fmt.Sprintf(",%d,%d,", cfg.Grid.Width, cfg.Grid.Height)
	if !strings.Contains(run[1], want) || !strings.Contains(run[1], ",true,") {
		t.Errorf("run row %q missing grid %s or multigrid flag", run[1], want)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("expected config snapshot: %v", err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManagerDisabled(t *testing.T) {
	cfg := config.Default()
	om, err := NewOutputManager("", &cfg, 30)
	if err != nil || om != nil {
		t.Fatalf("expected nil manager for empty dir, got %v %v", om, err)
	}
	// Nil manager methods are no-ops
	if err := om.WriteWindow(WindowStats{}, PerfStats{}); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" || om.Close() != nil {
		t.Error("expected nil manager to be inert")
	}
}
