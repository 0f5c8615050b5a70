package app

import "math"

// Dye brightness of mouse splats. Splats accumulate, so full-intensity
// colours saturate within a few frames.
const paletteIntensity = 0.15

// palette cycles mouse splat colours through the hue wheel.
type palette struct {
	hue float32 // [0,1)
}

// Hue turns per second of dragging.
const paletteSpeed = 0.2

func (p *palette) next(dt float32) [3]float32 {
	p.hue = float32(math.Mod(float64(p.hue+dt*paletteSpeed), 1))
	r, g, b := hsvToRGB(p.hue, 1, 1)
	return [3]float32{r * paletteIntensity, g * paletteIntensity, b * paletteIntensity}
}

// hsvToRGB converts h, s, v in [0,1] to RGB in [0,1].
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	i := int(h * 6)
	f := h*6 - float32(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	}
	return v, p, q
}
