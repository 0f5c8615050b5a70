package kernel

import (
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// MaskVelocity writes vel*(1-mask). Pointwise; mask shares the velocity grid.
func MaskVelocity(dev *device.Device, dst, vel, mask *field.Buffer) {
	W := vel.W
	dev.Dispatch(vel.H, func(y0, y1 int) {
		for i := y0 * W; i < y1*W; i++ {
			k := 1 - clamp(mask.Data[i], 0, 1)
			dst.Data[i*2] = vel.Data[i*2] * k
			dst.Data[i*2+1] = vel.Data[i*2+1] * k
		}
	})
}

// MaskScalar applies the obstacle mask to a scalar or colour field after
// advection. With hold, solid cells keep their previous value (prev);
// otherwise they are cleared. The mask is sampled at cur's cell centres.
// dst may alias prev.
func MaskScalar(dev *device.Device, dst, cur, prev, mask *field.Buffer, hold bool) {
	W, C := cur.W, cur.C
	m := newGridMap(cur, mask)
	same := cur.W == mask.W && cur.H == mask.H
	dev.Dispatch(cur.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				var a float32
				if same {
					a = mask.Data[y*W+x]
				} else {
					mx, my := m.apply(float32(x), float32(y))
					a = bilinear(mask, mx, my, 0)
				}
				a = clamp(a, 0, 1)
				i := (y*W + x) * C
				for c := 0; c < C; c++ {
					v := cur.Data[i+c]
					if hold {
						dst.Data[i+c] = lerp(v, prev.Data[i+c], a)
					} else {
						dst.Data[i+c] = v * (1 - a)
					}
				}
			}
		}
	})
}
