package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title      string
	Frame      int64
	SimTime    float32
	FPS        int32
	Substeps   int
	Iterations int
	Queued     int
	Dropped    uint64
	Clients    int
	Paused     bool
}

// HUD renders the main heads-up display.
type HUD struct{}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Frame: %d | t=%.1fs | FPS: %d", data.Frame, data.SimTime, data.FPS),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Substeps: %d | Pressure iters: %d | Queue: %d (dropped %d)",
			data.Substeps, data.Iterations, data.Queued, data.Dropped),
		10, 55, 16, rl.LightGray,
	)
	if data.Clients > 0 {
		rl.DrawText(fmt.Sprintf("Stream clients: %d", data.Clients), 10, 75, 16, rl.SkyBlue)
	}

	if data.Paused {
		rl.DrawText("PAUSED", 10, 95, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-pass timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the panel. Phases that never ran are skipped.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	th := r.Theme

	rows := 0
	for _, phase := range telemetry.Phases {
		if _, ok := stats.PhaseAvg[phase]; ok {
			rows++
		}
	}
	height := int32(rows+2)*th.LineHeight + th.Padding*2 + 4
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + th.Padding
	y := r.DrawSectionHeader(x, p.y+th.Padding, "Pass timing")
	y = r.DrawLabelValue(x, y, "frame (ema)", stats.EMATickDuration.Round(time.Microsecond).String())

	for _, phase := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[phase]
		if !ok {
			continue
		}
		pct := stats.PhasePct[phase]
		c := th.LabelColor
		if pct > 25 {
			c = th.Hot
		} else if pct > 10 {
			c = th.Warn
		}
		rl.DrawText(
			fmt.Sprintf("%-22s %7s %5.1f%%", phase, avg.Round(time.Microsecond), pct),
			x, y, th.FontSize, c,
		)
		y += th.LineHeight
	}
}
