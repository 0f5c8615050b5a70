package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/config"
)

// Target is the solver surface the controls drive.
type Target interface {
	Config() config.Config
	UpdateConfig(fn func(*config.Config))
	Paused() bool
	Pause()
	Resume()
	Reset()
}

const (
	sliderW  = 150
	controlH = 20
)

// ControlsPanel renders raygui controls for the most common solver settings.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point is over the visible panel, so
// mouse input there is not treated as a splat.
func (c *ControlsPanel) Contains(px, py float32) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(rl.Vector2{X: px, Y: py}, c.bounds())
}

func (c *ControlsPanel) bounds() rl.Rectangle {
	th := c.renderer.Theme
	rows := int32(12)
	return rl.Rectangle{
		X:      float32(c.x),
		Y:      float32(c.y),
		Width:  float32(c.width),
		Height: float32(rows*(controlH+6) + th.Padding*2),
	}
}

// Draw renders the panel and applies any edits to t.
func (c *ControlsPanel) Draw(t Target) {
	if !c.visible {
		return
	}
	r := c.renderer
	th := r.Theme
	b := c.bounds()
	r.DrawPanel(c.x, c.y, int32(b.Width), int32(b.Height))

	x := float32(c.x + th.Padding)
	y := float32(c.y + th.Padding)
	row := func() rl.Rectangle {
		rect := rl.Rectangle{X: x, Y: y, Width: controlH, Height: controlH}
		y += controlH + 6
		return rect
	}

	// Buttons
	bw := float32(c.width-th.Padding*3) / 2
	pauseLabel := "Pause"
	if t.Paused() {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: bw, Height: controlH}, pauseLabel) {
		if t.Paused() {
			t.Resume()
		} else {
			t.Pause()
		}
	}
	if gui.Button(rl.Rectangle{X: x + bw + float32(th.Padding), Y: y, Width: bw, Height: controlH}, "Reset") {
		t.Reset()
	}
	y += controlH + 10

	cfg := t.Config()
	before := SettingsFrom(&cfg)
	s := before

	rl.DrawText("Vorticity", int32(x), int32(y), th.FontSize, th.LabelColor)
	y += 14
	s.Vorticity = gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: sliderW, Height: controlH}, "", "", s.Vorticity, 0, 80)
	rl.DrawText(fmt.Sprintf("%.1f", s.Vorticity), int32(x+sliderW+8), int32(y+4), th.FontSize, th.ValueColor)
	y += controlH + 6

	rl.DrawText("Pressure iterations", int32(x), int32(y), th.FontSize, th.LabelColor)
	y += 14
	s.PressureIterations = gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: sliderW, Height: controlH}, "", "", s.PressureIterations, 1, 80)
	rl.DrawText(fmt.Sprintf("%d", int(s.PressureIterations+0.5)), int32(x+sliderW+8), int32(y+4), th.FontSize, th.ValueColor)
	y += controlH + 10

	s.Multigrid = gui.CheckBox(row(), "Multigrid", s.Multigrid)
	s.MacCormackVelocity = gui.CheckBox(row(), "MacCormack velocity", s.MacCormackVelocity)
	s.MacCormackDye = gui.CheckBox(row(), "MacCormack dye", s.MacCormackDye)
	s.Buoyancy = gui.CheckBox(row(), "Buoyancy", s.Buoyancy)
	s.Viscosity = gui.CheckBox(row(), "Viscosity", s.Viscosity)
	s.Turbulence = gui.CheckBox(row(), "Turbulence", s.Turbulence)

	if s != before {
		t.UpdateConfig(s.Apply)
	}
}
