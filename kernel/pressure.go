package kernel

import (
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// Divergence writes 0.5*(uR-uL + vT-vB) of the velocity field into div.
// With solid walls the velocity beyond the border mirrors the edge cell,
// so no flux crosses the boundary.
func Divergence(dev *device.Device, div, vel *field.Buffer, solidWalls bool) {
	W, H := vel.W, vel.H
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				c := (y*W + x) * 2
				uC := vel.Data[c]
				vC := vel.Data[c+1]
				uL := vel.Data[(y*W+max(x-1, 0))*2]
				uR := vel.Data[(y*W+min(x+1, W-1))*2]
				vB := vel.Data[(max(y-1, 0)*W+x)*2+1]
				vT := vel.Data[(min(y+1, H-1)*W+x)*2+1]
				if solidWalls {
					if x == 0 {
						uL = -uC
					}
					if x == W-1 {
						uR = -uC
					}
					if y == 0 {
						vB = -vC
					}
					if y == H-1 {
						vT = -vC
					}
				}
				div.Data[y*W+x] = 0.5 * (uR - uL + vT - vB)
			}
		}
	})
}

// JacobiParams configures one relaxation sweep.
type JacobiParams struct {
	Omega      float32 // 1 is plain Jacobi
	Scale      float32 // Grid spacing squared applied to the right-hand side
	SolidWalls bool
}

func (p JacobiParams) normalized() JacobiParams {
	if p.Omega <= 0 {
		p.Omega = 1
	}
	if p.Scale <= 0 {
		p.Scale = 1
	}
	return p
}

// Jacobi runs one weighted Jacobi sweep of the pressure Poisson equation
// from src into dst with right-hand side rhs.
func Jacobi(dev *device.Device, dst, src, rhs *field.Buffer, p JacobiParams) {
	relax(dev, dst, src, rhs, p.normalized(), -1)
}

// RedBlack runs one colour of a red-black over-relaxation sweep. Cells with
// (x+y)%2 == parity are updated from src; the others are copied. Two calls
// with a swap between them make a full SOR iteration.
func RedBlack(dev *device.Device, dst, src, rhs *field.Buffer, p JacobiParams, parity int) {
	relax(dev, dst, src, rhs, p.normalized(), parity&1)
}

func relax(dev *device.Device, dst, src, rhs *field.Buffer, p JacobiParams, parity int) {
	W, H := src.W, src.H
	s := src.Data
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				i := y*W + x
				if p.SolidWalls && edge(x, y, W, H) {
					dst.Data[i] = s[interiorIndex(x, y, W, H)]
					continue
				}
				if parity >= 0 && (x+y)&1 != parity {
					dst.Data[i] = s[i]
					continue
				}
				l := s[y*W+max(x-1, 0)]
				r := s[y*W+min(x+1, W-1)]
				b := s[max(y-1, 0)*W+x]
				t := s[min(y+1, H-1)*W+x]
				est := (l + r + b + t - p.Scale*rhs.Data[i]) * 0.25
				dst.Data[i] = s[i] + p.Omega*(est-s[i])
			}
		}
	})
}

// interiorIndex returns the index of the nearest non-border cell.
func interiorIndex(x, y, w, h int) int {
	if w > 2 {
		x = min(max(x, 1), w-2)
	}
	if h > 2 {
		y = min(max(y, 1), h-2)
	}
	return y*w + x
}

// SubtractGradient writes vel - 0.5*grad(p) into dst. With solid walls the
// wall-normal component is zeroed on border cells.
func SubtractGradient(dev *device.Device, dst, vel, pressure *field.Buffer, solidWalls bool) {
	W, H := vel.W, vel.H
	p := pressure.Data
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				l := p[y*W+max(x-1, 0)]
				r := p[y*W+min(x+1, W-1)]
				b := p[max(y-1, 0)*W+x]
				t := p[min(y+1, H-1)*W+x]
				i := (y*W + x) * 2
				u := vel.Data[i] - 0.5*(r-l)
				v := vel.Data[i+1] - 0.5*(t-b)
				if solidWalls {
					if x == 0 || x == W-1 {
						u = 0
					}
					if y == 0 || y == H-1 {
						v = 0
					}
				}
				dst.Data[i] = u
				dst.Data[i+1] = v
			}
		}
	})
}
