package kernel

import (
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// Residual writes rhs - (sum of neighbours - 4p) into res.
// Border cells are zero under solid walls.
func Residual(dev *device.Device, res, pressure, rhs *field.Buffer, solidWalls bool) {
	W, H := pressure.W, pressure.H
	p := pressure.Data
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				i := y*W + x
				if solidWalls && edge(x, y, W, H) {
					res.Data[i] = 0
					continue
				}
				l := p[y*W+max(x-1, 0)]
				r := p[y*W+min(x+1, W-1)]
				b := p[max(y-1, 0)*W+x]
				t := p[min(y+1, H-1)*W+x]
				res.Data[i] = rhs.Data[i] - (l + r + b + t - 4*p[i])
			}
		}
	})
}

// Restrict averages 2x2 blocks of the fine grid into the coarse grid.
func Restrict(dev *device.Device, coarse, fine *field.Buffer) {
	fw, fh := fine.W, fine.H
	dev.Dispatch(coarse.H, func(y0, y1 int) {
		for cy := y0; cy < y1; cy++ {
			fy0 := min(2*cy, fh-1)
			fy1 := min(2*cy+1, fh-1)
			for cx := 0; cx < coarse.W; cx++ {
				fx0 := min(2*cx, fw-1)
				fx1 := min(2*cx+1, fw-1)
				sum := fine.Data[fy0*fw+fx0] + fine.Data[fy0*fw+fx1] +
					fine.Data[fy1*fw+fx0] + fine.Data[fy1*fw+fx1]
				coarse.Data[cy*coarse.W+cx] = 0.25 * sum
			}
		}
	})
}

// Prolong bilinearly interpolates the coarse grid onto the fine grid.
// The caller adds the result into the fine solution.
func Prolong(dev *device.Device, fine, coarse *field.Buffer) {
	m := newGridMap(fine, coarse)
	dev.Dispatch(fine.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < fine.W; x++ {
				cx, cy := m.apply(float32(x), float32(y))
				fine.Data[y*fine.W+x] = bilinear(coarse, cx, cy, 0)
			}
		}
	})
}
