package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/camera"
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/renderer"
	"github.com/pthm-cable/plume/splat"
	"github.com/pthm-cable/plume/ui"
)

const controlsHelp = "LMB: dye  RMB: obstacle  MMB/wheel: pan/zoom  SPACE: pause  R: reset  P: perf  H: controls  C: camera  F11: fullscreen"

// Obstacle brush radius relative to the default splat radius.
const obstacleBrush = 6

// window holds the viewer state that only exists with a raylib window.
type window struct {
	cam      *camera.Camera
	view     *renderer.DyeView
	hud      *ui.HUD
	perf     *ui.PerfPanel
	controls *ui.ControlsPanel
	showPerf bool
	palette  palette

	screenW, screenH float32
}

func newWindow(cfg *config.Config) *window {
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	return &window{
		cam:      camera.New(w, h, cfg.Grid.Width, cfg.Grid.Height),
		view:     renderer.NewDyeView(),
		hud:      ui.NewHUD(),
		perf:     ui.NewPerfPanel(int32(w)-330, 10, 320),
		controls: ui.NewControlsPanel(10, 120, 240),
		showPerf: true,
		screenW:  w,
		screenH:  h,
	}
}

func (w *window) unload() {
	w.view.Unload()
}

// Update handles input and steps one wall-clock frame.
func (a *App) Update() {
	a.handleInput()
	a.Step(rl.GetFrameTime())
}

// handleInput processes keyboard and mouse input.
func (a *App) handleInput() {
	w := a.win
	a.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		if a.solver.Paused() {
			a.solver.Resume()
		} else {
			a.solver.Pause()
		}
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.solver.Reset()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		w.showPerf = !w.showPerf
	}
	if rl.IsKeyPressed(rl.KeyH) {
		w.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		w.cam.Reset()
	}

	cfg := a.solver.Config()
	w.cam.SetAspect(cfg.Grid.Width, cfg.Grid.Height)
	a.handleCameraInput()
	a.handleMouseSplats(&cfg)
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := a.win
	sw := float32(rl.GetScreenWidth())
	sh := float32(rl.GetScreenHeight())
	if sw == w.screenW && sh == w.screenH {
		return
	}
	w.screenW, w.screenH = sw, sh
	w.cam.Resize(sw, sh)
	w.perf.SetPosition(int32(sw)-330, 10)
}

func (a *App) handleCameraInput() {
	cam := a.win.cam
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		cam.ZoomBy(1 + 0.1*wheel)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		d := rl.GetMouseDelta()
		cam.Pan(d.X, d.Y)
	}
}

// handleMouseSplats turns left drags into dye splats and right drags into
// obstacle stamps.
func (a *App) handleMouseSplats(cfg *config.Config) {
	w := a.win
	left := rl.IsMouseButtonDown(rl.MouseButtonLeft)
	right := rl.IsMouseButtonDown(rl.MouseButtonRight)
	if !left && !right {
		return
	}
	pos := rl.GetMousePosition()
	if w.controls.Contains(pos.X, pos.Y) {
		return
	}
	x, y, inside := w.cam.ScreenToDomain(pos.X, pos.Y)
	if !inside {
		return
	}
	d := rl.GetMouseDelta()
	dx, dy := w.cam.ScreenDeltaToDomain(d.X, d.Y)
	force := float32(cfg.Splats.Force)
	radius := float32(cfg.Splats.Radius)

	if left {
		if dx == 0 && dy == 0 && !rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
			return
		}
		a.solver.AddSplat(splat.Splat{
			X:      x,
			Y:      y,
			DX:     dx * force,
			DY:     dy * force,
			Color:  w.palette.next(rl.GetFrameTime()),
			Radius: radius,
		})
		return
	}

	a.solver.AddSplat(splat.Splat{
		X:             x,
		Y:             y,
		Radius:        radius * obstacleBrush,
		Falloff:       splat.FalloffSharp,
		HasObstacle:   true,
		Obstacle:      1,
		ObstacleBlend: splat.BlendMax,
	})
}

// Draw renders the dye and the UI panels.
func (a *App) Draw() {
	w := a.win

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	w.view.Update(a.solver)
	x, y, dw, dh := w.cam.Rect()
	w.view.Draw(x, y, dw, dh)

	w.hud.Draw(ui.HUDData{
		Title:      "Plume",
		Frame:      a.solver.FrameCount(),
		SimTime:    a.solver.SimTime(),
		FPS:        rl.GetFPS(),
		Substeps:   a.last.Substeps,
		Iterations: a.solver.PressureIterations(),
		Queued:     a.solver.QueueLen(),
		Dropped:    a.solver.DroppedSplats(),
		Clients:    a.streamClients(),
		Paused:     a.solver.Paused(),
	})
	if w.showPerf {
		w.perf.Draw(a.solver.PerfStats())
	}
	w.controls.Draw(a.solver)
	w.hud.DrawControls(int32(w.screenH), controlsHelp)

	rl.EndDrawing()
}

func (a *App) streamClients() int {
	if a.server == nil {
		return 0
	}
	return a.server.Clients()
}
