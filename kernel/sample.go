// Package kernel implements the solver's compute kernels.
//
// Every kernel takes explicit read and write buffers; none of them knows
// which ping-pong buffer is current. Out-of-place kernels must not be given
// the same buffer as source and destination. Pointwise kernels (documented
// as such) tolerate aliasing because each cell only reads its own index.
package kernel

import (
	"math"

	"github.com/pthm-cable/plume/field"
)

// bilinear samples channel c of b at texel position (x, y).
// Integer coordinates are cell centers; positions clamp to the grid.
func bilinear(b *field.Buffer, x, y float32, c int) float32 {
	x = clamp(x, 0, float32(b.W-1))
	y = clamp(y, 0, float32(b.H-1))
	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, b.W-1)
	y1 := min(y0+1, b.H-1)
	tx := x - float32(x0)
	ty := y - float32(y0)

	d := b.Data
	C := b.C
	a := d[(y0*b.W+x0)*C+c]
	bb := d[(y0*b.W+x1)*C+c]
	cc := d[(y1*b.W+x0)*C+c]
	dd := d[(y1*b.W+x1)*C+c]
	top := a + (bb-a)*tx
	bot := cc + (dd-cc)*tx
	return top + (bot-top)*ty
}

// bilinearVec samples up to len(out) channels at once.
func bilinearVec(b *field.Buffer, x, y float32, out []float32) {
	x = clamp(x, 0, float32(b.W-1))
	y = clamp(y, 0, float32(b.H-1))
	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, b.W-1)
	y1 := min(y0+1, b.H-1)
	tx := x - float32(x0)
	ty := y - float32(y0)

	C := b.C
	i00 := (y0*b.W + x0) * C
	i10 := (y0*b.W + x1) * C
	i01 := (y1*b.W + x0) * C
	i11 := (y1*b.W + x1) * C
	d := b.Data
	for c := 0; c < len(out) && c < C; c++ {
		top := d[i00+c] + (d[i10+c]-d[i00+c])*tx
		bot := d[i01+c] + (d[i11+c]-d[i01+c])*tx
		out[c] = top + (bot-top)*ty
	}
}

// gridMap converts texel coordinates of one grid into another grid's texels.
type gridMap struct {
	sx, sy float32
}

func newGridMap(from, to *field.Buffer) gridMap {
	return gridMap{
		sx: float32(to.W) / float32(from.W),
		sy: float32(to.H) / float32(from.H),
	}
}

func (m gridMap) apply(x, y float32) (float32, float32) {
	return (x+0.5)*m.sx - 0.5, (y+0.5)*m.sy - 0.5
}

// velocityAt samples velocity (in velocity cells/s) at a position given in
// the texels of another grid, returning it converted to that grid's texels/s.
func velocityAt(vel *field.Buffer, toVel gridMap, x, y float32) (float32, float32) {
	vx, vy := toVel.apply(x, y)
	u := bilinear(vel, vx, vy, 0)
	v := bilinear(vel, vx, vy, 1)
	return u / toVel.sx, v / toVel.sy
}

// backtrace follows the velocity field backwards from cell (x, y) with a
// midpoint (RK2) step and returns the departure point in the same texels.
func backtrace(vel *field.Buffer, toVel gridMap, x, y, dt float32) (float32, float32) {
	px, py := float32(x), float32(y)
	u1, v1 := velocityAt(vel, toVel, px, py)
	mx := px - 0.5*dt*u1
	my := py - 0.5*dt*v1
	u2, v2 := velocityAt(vel, toVel, mx, my)
	return px - dt*u2, py - dt*v2
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func exp32(v float32) float32 {
	return float32(math.Exp(float64(v)))
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// decay converts a per-second dissipation rate into a step multiplier.
func decay(rate, dt float32) float32 {
	if rate <= 0 {
		return 1
	}
	return 1 / (1 + rate*abs32(dt))
}

// edge reports whether cell (x, y) lies on the domain border.
func edge(x, y, w, h int) bool {
	return x == 0 || y == 0 || x == w-1 || y == h-1
}
