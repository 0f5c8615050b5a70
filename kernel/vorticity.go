package kernel

import (
	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// Curl writes the scalar vorticity 0.5*((vR-vL) - (uT-uB)) into curl.
func Curl(dev *device.Device, curl, vel *field.Buffer, solidWalls bool) {
	W, H := vel.W, vel.H
	v := vel.Data
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				i := y*W + x
				if solidWalls && edge(x, y, W, H) {
					curl.Data[i] = 0
					continue
				}
				vL := v[(y*W+max(x-1, 0))*2+1]
				vR := v[(y*W+min(x+1, W-1))*2+1]
				uB := v[(max(y-1, 0)*W+x)*2]
				uT := v[(min(y+1, H-1)*W+x)*2]
				curl.Data[i] = 0.5 * ((vR - vL) - (uT - uB))
			}
		}
	})
}

// ConfinementParams configures vorticity confinement.
type ConfinementParams struct {
	Strength   float32
	DT         float32
	LargeScale bool    // Blend in a force from a wider (+-2 cell) stencil
	LargeMix   float32 // Weight of the wide-stencil force in [0,1]
	EdgeAware  bool    // Attenuate near obstacles
}

// Confinement adds the vorticity confinement force to vel, writing dst.
// obstacles may be nil; it is only read when EdgeAware is set.
func Confinement(dev *device.Device, dst, vel, curl, obstacles *field.Buffer, p ConfinementParams) {
	W, H := vel.W, vel.H
	w := curl.Data
	at := func(x, y int) float32 {
		x = min(max(x, 0), W-1)
		y = min(max(y, 0), H-1)
		return abs32(w[y*W+x])
	}
	scale := p.Strength * p.DT
	mix := clamp(p.LargeMix, 0, 1)
	edgeAware := p.EdgeAware && obstacles != nil

	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				i := y*W + x
				omega := w[i]

				// Sobel gradient of |curl|.
				gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
					(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
				gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
					(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
				fx, fy := confine(gx, gy, omega)

				if p.LargeScale && mix > 0 {
					wx := at(x+2, y) - at(x-2, y)
					wy := at(x, y+2) - at(x, y-2)
					lx, ly := confine(wx, wy, omega)
					fx = lerp(fx, lx, mix)
					fy = lerp(fy, ly, mix)
				}

				if edgeAware {
					m := obstacles.Data[i]
					m = max(m, obstacles.Data[y*W+max(x-1, 0)])
					m = max(m, obstacles.Data[y*W+min(x+1, W-1)])
					m = max(m, obstacles.Data[max(y-1, 0)*W+x])
					m = max(m, obstacles.Data[min(y+1, H-1)*W+x])
					k := 1 - clamp(m, 0, 1)
					fx *= k
					fy *= k
				}

				dst.Data[i*2] = vel.Data[i*2] + fx*scale
				dst.Data[i*2+1] = vel.Data[i*2+1] + fy*scale
			}
		}
	})
}

// confine returns N x omega for N = g/|g|.
func confine(gx, gy, omega float32) (float32, float32) {
	inv := 1 / (sqrt32(gx*gx+gy*gy) + 1e-5)
	nx := gx * inv
	ny := gy * inv
	return ny * omega, -nx * omega
}
