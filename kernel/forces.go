package kernel

import (
	"math"

	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// BuoyancyParams configures the vertical buoyant force.
type BuoyancyParams struct {
	Strength float32
	Ambient  float32
	DT       float32
	Weights  [3]float32 // Dye channel weights; ignored for scalar sources
}

// Buoyancy adds (density - ambient)*strength*dt to the vertical velocity.
// source is either the temperature field (one channel) or dye, in which case
// density is the weighted sum of its colour channels. It is sampled at each
// velocity cell centre whatever its resolution.
func Buoyancy(dev *device.Device, dst, vel, source *field.Buffer, p BuoyancyParams) {
	W, H := vel.W, vel.H
	m := newGridMap(vel, source)
	k := p.Strength * p.DT
	dev.Dispatch(H, func(y0, y1 int) {
		var s [4]float32
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				sx, sy := m.apply(float32(x), float32(y))
				var density float32
				if source.C == 1 {
					density = bilinear(source, sx, sy, 0)
				} else {
					bilinearVec(source, sx, sy, s[:min(source.C, 3)])
					density = s[0]*p.Weights[0] + s[1]*p.Weights[1] + s[2]*p.Weights[2]
				}
				i := (y*W + x) * 2
				dst.Data[i] = vel.Data[i]
				dst.Data[i+1] = vel.Data[i+1] + (density-p.Ambient)*k
			}
		}
	})
}

// Gravity adds a constant acceleration. Pointwise.
func Gravity(dev *device.Device, dst, vel *field.Buffer, gx, gy, dt float32) {
	ax, ay := gx*dt, gy*dt
	dev.Dispatch(vel.H, func(y0, y1 int) {
		for i := y0 * vel.W * 2; i < y1*vel.W*2; i += 2 {
			dst.Data[i] = vel.Data[i] + ax
			dst.Data[i+1] = vel.Data[i+1] + ay
		}
	})
}

// TurbulenceParams configures the procedural curl-noise force.
type TurbulenceParams struct {
	Strength float32
	Scale    float32 // Base spatial frequency over the unit domain
	Speed    float32 // Temporal evolution rate
	Time     float32 // Accumulated simulation time
	DT       float32
	Octaves  int
}

// potential is a layered trigonometric stream function over normalized
// coordinates. Its curl is divergence-free.
func (p *TurbulenceParams) potential(u, v float32) float32 {
	var sum, amp float32 = 0, 1
	freq := p.Scale * 2 * math.Pi
	t := p.Time * p.Speed
	for o := 0; o < p.Octaves; o++ {
		fo := float32(o)
		a := float32(math.Sin(float64(freq*u + t*(1+0.37*fo) + 1.7*fo)))
		b := float32(math.Cos(float64(freq*v*1.31 - t*(0.71+0.23*fo) + 0.9*fo)))
		c := float32(math.Sin(float64(freq*(u+v)*0.77 + t*0.53 + 2.3*fo)))
		sum += amp * (a*b + 0.5*c)
		amp *= 0.5
		freq *= 2
	}
	return sum
}

// Turbulence adds strength*dt*curl(psi) to the velocity. Pointwise.
func Turbulence(dev *device.Device, dst, vel *field.Buffer, p TurbulenceParams) {
	if p.Octaves <= 0 || p.Scale <= 0 {
		dst.CopyFrom(vel)
		return
	}
	W, H := vel.W, vel.H
	hx := 1 / float32(W)
	hy := 1 / float32(H)
	// Normalize so the base octave's peak gradient is about one unit.
	k := p.Strength * p.DT / (p.Scale * 2 * math.Pi)
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			v := (float32(y) + 0.5) * hy
			for x := 0; x < W; x++ {
				u := (float32(x) + 0.5) * hx
				dpdy := (p.potential(u, v+hy) - p.potential(u, v-hy)) / (2 * hy)
				dpdx := (p.potential(u+hx, v) - p.potential(u-hx, v)) / (2 * hx)
				i := (y*W + x) * 2
				dst.Data[i] = vel.Data[i] + k*dpdy
				dst.Data[i+1] = vel.Data[i+1] - k*dpdx
			}
		}
	})
}

// Diffuse runs one explicit diffusion sweep: dst = src + alpha*laplacian(src).
// Neighbours clamp at the border.
func Diffuse(dev *device.Device, dst, src *field.Buffer, alpha float32) {
	W, H, C := src.W, src.H, src.C
	s := src.Data
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			yb := max(y-1, 0)
			yt := min(y+1, H-1)
			for x := 0; x < W; x++ {
				xl := max(x-1, 0)
				xr := min(x+1, W-1)
				i := (y*W + x) * C
				for c := 0; c < C; c++ {
					lap := s[(y*W+xl)*C+c] + s[(y*W+xr)*C+c] +
						s[(yb*W+x)*C+c] + s[(yt*W+x)*C+c] - 4*s[i+c]
					dst.Data[i+c] = s[i+c] + alpha*lap
				}
			}
		}
	})
}

// ViscositySweeps maps a viscosity amount to round(amount*6) sweeps of
// Diffuse, capped at limit. Amounts below 1/12 round to no sweeps.
func ViscositySweeps(amount float32, limit int) int {
	if amount <= 0 {
		return 0
	}
	n := int(amount*6 + 0.5)
	return min(n, limit)
}
