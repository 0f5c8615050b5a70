package app

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/stream"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Grid.Width = 32
	cfg.Grid.Height = 32
	cfg.Grid.DyeWidth = 32
	cfg.Grid.DyeHeight = 32
	cfg.Device.Workers = 2
	cfg.Refresh()
	return cfg
}

func newApp(t *testing.T, opts Options) *App {
	t.Helper()
	opts.Headless = true
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(testConfig(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Unload)
	return a
}

func TestHeadlessEmittersInjectDye(t *testing.T) {
	a := newApp(t, Options{})

	for i := 0; i < 30; i++ {
		a.UpdateHeadless()
	}
	if a.Frame() != 30 {
		t.Errorf("expected 30 frames, got %d", a.Frame())
	}
	if a.Solver().Dye().Mass() <= 0 {
		t.Error("default scene should have injected dye")
	}
}

func TestPausedAppDoesNotQueueEmitterSplats(t *testing.T) {
	a := newApp(t, Options{})
	a.Solver().Pause()

	for i := 0; i < 30; i++ {
		a.UpdateHeadless()
	}
	if a.Solver().QueueLen() != 0 {
		t.Errorf("expected empty queue while paused, got %d", a.Solver().QueueLen())
	}
	if a.Frame() != 0 {
		t.Errorf("paused solver advanced to frame %d", a.Frame())
	}
}

func TestTelemetryWindowsWritten(t *testing.T) {
	dir := t.TempDir()
	a := newApp(t, Options{OutputDir: dir, StatsWindow: 5})

	for i := 0; i < 12; i++ {
		a.UpdateHeadless()
	}
	a.output.Close()

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// Header plus two windows
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d:\n%s", len(lines), data)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot missing: %v", err)
	}
}

func TestStreamCommandsReachSolver(t *testing.T) {
	a := newApp(t, Options{})
	a.server = stream.NewServer(a.log, commandBuffer)
	ts := httptest.NewServer(a.server)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "pause"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !a.Solver().Paused() {
		if time.Now().After(deadline) {
			t.Fatal("pause command never applied")
		}
		a.UpdateHeadless()
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastRespectsInterval(t *testing.T) {
	a := newApp(t, Options{})
	a.server = stream.NewServer(a.log, commandBuffer)
	ts := httptest.NewServer(a.server)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.server.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Default interval is 0.1s, so 5 frames at 1/60 stay below it
	for i := 0; i < 5; i++ {
		a.UpdateHeadless()
	}
	if a.pixels != nil {
		t.Fatal("frame broadcast before the interval elapsed")
	}
	for i := 0; i < 3; i++ {
		a.UpdateHeadless()
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f stream.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Width != 16 || f.Height != 16 || len(f.Pixels) != 16*16*3 {
		t.Errorf("unexpected frame %dx%d (%d bytes)", f.Width, f.Height, len(f.Pixels))
	}
}

func TestPaletteCyclesHue(t *testing.T) {
	var p palette
	a := p.next(0.5)
	b := p.next(2)
	if a == b {
		t.Error("expected palette to advance")
	}
	for _, c := range b {
		if c < 0 || c > paletteIntensity+1e-6 {
			t.Errorf("channel %f outside [0, %f]", c, paletteIntensity)
		}
	}
	r, g, bl := hsvToRGB(0, 1, 1)
	if r != 1 || g != 0 || bl != 0 {
		t.Errorf("hue 0 should be red, got %f %f %f", r, g, bl)
	}
}
