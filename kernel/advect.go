package kernel

import (
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// Advect transports src through vel into dst with a semi-Lagrangian RK2
// backtrace and bilinear sampling, then applies dissipation.
// dst and src share a grid; vel may be on a different resolution.
func Advect(dev *device.Device, dst, src, vel *field.Buffer, dt, dissipation float32) {
	toVel := newGridMap(dst, vel)
	k := decay(dissipation, dt)
	C := src.C
	dev.Dispatch(dst.H, func(y0, y1 int) {
		var tmp [4]float32
		for y := y0; y < y1; y++ {
			for x := 0; x < dst.W; x++ {
				bx, by := backtrace(vel, toVel, float32(x), float32(y), dt)
				bilinearVec(src, bx, by, tmp[:C])
				i := (y*dst.W + x) * C
				for c := 0; c < C; c++ {
					dst.Data[i+c] = tmp[c] * k
				}
			}
		}
	})
}

// MacCormack is second-order advection: a forward step into fwd, a reverse
// step of fwd into rev, then dst = fwd + (src - rev)/2 clamped to the
// neighborhood of src around the forward departure point.
func MacCormack(dev *device.Device, dst, src, fwd, rev, vel *field.Buffer, dt, dissipation float32) {
	Advect(dev, fwd, src, vel, dt, 0)
	Advect(dev, rev, fwd, vel, -dt, 0)

	toVel := newGridMap(dst, vel)
	k := decay(dissipation, dt)
	C := src.C
	W, H := src.W, src.H
	dev.Dispatch(dst.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				bx, by := backtrace(vel, toVel, float32(x), float32(y), dt)
				bx = clamp(bx, 0, float32(W-1))
				by = clamp(by, 0, float32(H-1))
				ix0 := int(bx)
				iy0 := int(by)
				ix1 := min(ix0+1, W-1)
				iy1 := min(iy0+1, H-1)
				n00 := (iy0*W + ix0) * C
				n10 := (iy0*W + ix1) * C
				n01 := (iy1*W + ix0) * C
				n11 := (iy1*W + ix1) * C

				i := (y*W + x) * C
				for c := 0; c < C; c++ {
					a, b := src.Data[n00+c], src.Data[n10+c]
					cc, d := src.Data[n01+c], src.Data[n11+c]
					lo := min(a, b, cc, d)
					hi := max(a, b, cc, d)
					v := fwd.Data[i+c] + 0.5*(src.Data[i+c]-rev.Data[i+c])
					dst.Data[i+c] = clamp(v, lo, hi) * k
				}
			}
		}
	})
}
