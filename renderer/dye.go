// Package renderer draws solver fields with raylib. It only reads solver
// state and never writes back.
package renderer

import (
	"image/color"

	"github.com/pthm-cable/plume/field"
)

// Obstacle overlay tint.
var obstacleTint = color.RGBA{R: 70, G: 74, B: 82, A: 255}

// Colorize converts dye into RGBA pixels with the top row first, as image
// memory expects. When mask is non-nil, solid cells are blended toward a
// neutral tint by their mask value. The mask may live on a coarser grid and
// is sampled nearest. dst is reused when large enough.
func Colorize(dst []color.RGBA, dye, mask *field.Buffer, exposure float32) []color.RGBA {
	n := dye.W * dye.H
	if cap(dst) < n {
		dst = make([]color.RGBA, n)
	}
	dst = dst[:n]

	for y := 0; y < dye.H; y++ {
		row := (dye.H - 1 - y) * dye.W
		my := 0
		if mask != nil {
			my = min(y*mask.H/dye.H, mask.H-1)
		}
		for x := 0; x < dye.W; x++ {
			var rgb [3]float32
			for c := 0; c < 3 && c < dye.C; c++ {
				rgb[c] = dye.At(x, y, c) * exposure
			}
			px := color.RGBA{R: toByte(rgb[0]), G: toByte(rgb[1]), B: toByte(rgb[2]), A: 255}
			if mask != nil {
				mx := min(x*mask.W/dye.W, mask.W-1)
				if m := mask.At(mx, my, 0); m > 0 {
					px = mix(px, obstacleTint, min(m, 1))
				}
			}
			dst[row+x] = px
		}
	}
	return dst
}

func mix(a, b color.RGBA, t float32) color.RGBA {
	l := func(x, y uint8) uint8 {
		return uint8(float32(x) + (float32(y)-float32(x))*t + 0.5)
	}
	return color.RGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: 255}
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
