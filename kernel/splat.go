package kernel

import (
	"math"

	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/splat"
)

// Target selects which payload of a packed splat is injected into a field.
type Target uint8

const (
	TargetVelocity Target = iota
	TargetDye
	TargetTemperature
	TargetFuel
	TargetObstacle
)

// SplatParams configures splat injection.
type SplatParams struct {
	Epsilon  float32 // Weights below this are cut to zero
	TileSize int     // Tile edge in cells for the tiled strategy
}

func (p SplatParams) normalized() SplatParams {
	if p.Epsilon <= 0 {
		p.Epsilon = 1e-6
	}
	if p.TileSize <= 0 {
		p.TileSize = 16
	}
	return p
}

// payload extracts the values a record injects into target t.
// ok is false when the splat carries nothing for that target.
func payload(t Target, rec []float32, channels int) (v [4]float32, n int, blend splat.Blend, ok bool) {
	switch t {
	case TargetVelocity:
		v[0], v[1] = rec[splat.OffDX], rec[splat.OffDY]
		return v, 2, splat.BlendAdd, v[0] != 0 || v[1] != 0
	case TargetDye:
		v[0], v[1], v[2] = rec[splat.OffR], rec[splat.OffG], rec[splat.OffB]
		blend = splat.Blend(rec[splat.OffBlend])
		ok = v[0] != 0 || v[1] != 0 || v[2] != 0 || blend == splat.BlendMix
		return v, min(channels, 3), blend, ok
	case TargetTemperature:
		v[0] = rec[splat.OffTemperature]
		return v, 1, splat.BlendAdd, v[0] != 0
	case TargetFuel:
		v[0] = rec[splat.OffFuel]
		return v, 1, splat.BlendAdd, v[0] != 0
	case TargetObstacle:
		v[0] = rec[splat.OffObstacle]
		return v, 1, splat.Blend(rec[splat.OffObstacleBlend]), rec[splat.OffHasObstacle] != 0
	}
	return v, 0, splat.BlendAdd, false
}

// stamper holds the per-field constants of the weight function.
type stamper struct {
	buf     *field.Buffer
	invW    float32
	invH    float32
	aspect  float32
	eps     float32
	clamp01 bool
}

func newStamper(buf *field.Buffer, t Target, eps float32) stamper {
	return stamper{
		buf:     buf,
		invW:    1 / float32(buf.W),
		invH:    1 / float32(buf.H),
		aspect:  float32(buf.W) / float32(buf.H),
		eps:     eps,
		clamp01: t == TargetObstacle,
	}
}

// weight returns the aspect-corrected Gaussian falloff of rec at (x, y),
// or 0 below epsilon.
func (s *stamper) weight(rec []float32, x, y int) float32 {
	px := ((float32(x)+0.5)*s.invW - rec[splat.OffX]) * s.aspect
	py := (float32(y)+0.5)*s.invH - rec[splat.OffY]
	w := exp32(-(px*px + py*py) / rec[splat.OffExtent] * rec[splat.OffK])
	if w < s.eps {
		return 0
	}
	return w
}

// apply blends one weighted payload into cell (x, y).
func (s *stamper) apply(x, y int, w float32, v *[4]float32, n int, blend splat.Blend) {
	d := s.buf.Data
	i := (y*s.buf.W + x) * s.buf.C
	for c := 0; c < n; c++ {
		cur := d[i+c]
		switch blend {
		case splat.BlendMax:
			cur = max(cur, v[c]*w)
		case splat.BlendMix:
			cur = lerp(cur, v[c], w)
		default:
			cur += v[c] * w
		}
		if s.clamp01 {
			cur = clamp(cur, 0, 1)
		}
		d[i+c] = cur
	}
}

// Reach returns the half-extent in cells beyond which a record's weight is
// below eps on a grid of height h.
func Reach(rec []float32, eps float32, h int) int {
	k := rec[splat.OffK]
	if k <= 0 {
		k = 1
	}
	r2 := -float32(math.Log(float64(eps))) * rec[splat.OffExtent] / k
	if r2 <= 0 {
		return 1
	}
	return int(math.Ceil(float64(sqrt32(r2)*float32(h)))) + 1
}

// SplatTiled injects packed splats one at a time, dispatching only the
// tiles each splat's footprint covers. Splats are applied in order.
func SplatTiled(dev *device.Device, buf *field.Buffer, packed []float32, t Target, p SplatParams) {
	p = p.normalized()
	st := newStamper(buf, t, p.Epsilon)
	W, H := buf.W, buf.H
	ts := p.TileSize
	for off := 0; off+splat.Stride <= len(packed); off += splat.Stride {
		rec := packed[off : off+splat.Stride]
		v, n, blend, ok := payload(t, rec, buf.C)
		if !ok {
			continue
		}
		r := Reach(rec, p.Epsilon, H)
		cx := int(math.Floor(float64(rec[splat.OffX]*float32(W) - 0.5)))
		cy := int(math.Floor(float64(rec[splat.OffY]*float32(H) - 0.5)))
		x0, x1 := max(cx-r, 0), min(cx+r, W-1)
		y0, y1 := max(cy-r, 0), min(cy+r, H-1)
		if x0 > x1 || y0 > y1 {
			continue
		}
		for ty := y0 / ts; ty <= y1/ts; ty++ {
			for tx := x0 / ts; tx <= x1/ts; tx++ {
				tyMin, tyMax := ty*ts, min((ty+1)*ts, H)
				txMin, txMax := tx*ts, min((tx+1)*ts, W)
				dev.Tile(func() {
					for y := tyMin; y < tyMax; y++ {
						for x := txMin; x < txMax; x++ {
							if w := st.weight(rec, x, y); w > 0 {
								st.apply(x, y, w, &v, n, blend)
							}
						}
					}
				})
			}
		}
	}
}

// SplatBatch injects every packed splat in one full-field dispatch; each
// cell accumulates the splats in order.
func SplatBatch(dev *device.Device, buf *field.Buffer, packed []float32, t Target, p SplatParams) {
	p = p.normalized()
	st := newStamper(buf, t, p.Epsilon)
	count := len(packed) / splat.Stride
	if count == 0 {
		return
	}
	dev.Dispatch(buf.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.W; x++ {
				for s := 0; s < count; s++ {
					rec := packed[s*splat.Stride : (s+1)*splat.Stride]
					v, n, blend, ok := payload(t, rec, buf.C)
					if !ok {
						continue
					}
					if w := st.weight(rec, x, y); w > 0 {
						st.apply(x, y, w, &v, n, blend)
					}
				}
			}
		}
	})
}
