package kernel

import (
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// Relax moves src toward target by rate*dt (capped at 1). Pointwise.
func Relax(dev *device.Device, dst, src *field.Buffer, target, rate, dt float32) {
	t := clamp(rate*dt, 0, 1)
	n := src.W * src.C
	dev.Dispatch(src.H, func(y0, y1 int) {
		for i := y0 * n; i < y1*n; i++ {
			dst.Data[i] = src.Data[i] + (target-src.Data[i])*t
		}
	})
}

// CombustionParams configures fuel burning.
type CombustionParams struct {
	Ignition    float32
	BurnRate    float32
	HeatRelease float32
	DT          float32
}

// Combust burns fuel wherever temperature exceeds ignition:
// burn = min(F, rate*dt), F -= burn, T += burn*heat. Pointwise; the
// temperature and fuel buffers are independent so their ping-pong
// states never need to agree.
func Combust(dev *device.Device, tempDst, fuelDst, tempSrc, fuelSrc *field.Buffer, p CombustionParams) {
	maxBurn := max(p.BurnRate*p.DT, 0)
	W := tempSrc.W
	dev.Dispatch(tempSrc.H, func(y0, y1 int) {
		for i := y0 * W; i < y1*W; i++ {
			T := tempSrc.Data[i]
			F := fuelSrc.Data[i]
			if T > p.Ignition && F > 0 {
				burn := min(F, maxBurn)
				F -= burn
				T += burn * p.HeatRelease
			}
			tempDst.Data[i] = T
			fuelDst.Data[i] = F
		}
	})
}

// FireParams configures emission of dye from hot cells.
type FireParams struct {
	Color     [3]float32
	Intensity float32
	Threshold float32
	DT        float32
}

// FireDye adds color*intensity*max(0, T-threshold)*dt to the dye. The
// temperature grid is sampled at dye cell centres.
func FireDye(dev *device.Device, dst, dye, temp *field.Buffer, p FireParams) {
	m := newGridMap(dye, temp)
	W, C := dye.W, dye.C
	k := p.Intensity * p.DT
	dev.Dispatch(dye.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				tx, ty := m.apply(float32(x), float32(y))
				heat := max(bilinear(temp, tx, ty, 0)-p.Threshold, 0) * k
				i := (y*W + x) * C
				for c := 0; c < C; c++ {
					add := float32(0)
					if c < 3 {
						add = p.Color[c] * heat
					}
					dst.Data[i+c] = dye.Data[i+c] + add
				}
			}
		}
	})
}

// Dissipate scales each channel of src by its own factor into dst.
// Channels beyond len(factors) are copied.
func Dissipate(dst, src *field.Buffer, factors []float32) {
	dst.CopyFrom(src)
	for c, k := range factors {
		dst.ScaleChannel(c, k)
	}
}
