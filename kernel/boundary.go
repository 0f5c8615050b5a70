package kernel

import (
	"strings"

	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
)

// BoundaryMode is the velocity condition applied at the domain border.
type BoundaryMode uint8

const (
	FreeSlip BoundaryMode = iota // Normal component zero, tangential kept
	NoSlip                       // Both components zero
	Open                         // Border copies the adjacent interior cell
)

// ParseBoundary maps a config name to a BoundaryMode.
func ParseBoundary(s string) BoundaryMode {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "no_slip", "noslip":
		return NoSlip
	case "open", "outflow":
		return Open
	}
	return FreeSlip
}

func (m BoundaryMode) String() string {
	switch m {
	case NoSlip:
		return "no_slip"
	case Open:
		return "open"
	}
	return "free_slip"
}

// VelocityBoundary copies vel into dst and enforces mode on border cells.
func VelocityBoundary(dev *device.Device, dst, vel *field.Buffer, mode BoundaryMode) {
	W, H := vel.W, vel.H
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				i := (y*W + x) * 2
				u, v := vel.Data[i], vel.Data[i+1]
				if edge(x, y, W, H) {
					switch mode {
					case FreeSlip:
						if x == 0 || x == W-1 {
							u = 0
						}
						if y == 0 || y == H-1 {
							v = 0
						}
					case NoSlip:
						u, v = 0, 0
					case Open:
						j := interiorIndex(x, y, W, H) * 2
						u, v = vel.Data[j], vel.Data[j+1]
					}
				}
				dst.Data[i] = u
				dst.Data[i+1] = v
			}
		}
	})
}

// ClearBorder copies src into dst with border cells zeroed, letting dye
// leave the domain.
func ClearBorder(dev *device.Device, dst, src *field.Buffer) {
	W, H, C := src.W, src.H, src.C
	dev.Dispatch(H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < W; x++ {
				i := (y*W + x) * C
				border := edge(x, y, W, H)
				for c := 0; c < C; c++ {
					if border {
						dst.Data[i+c] = 0
					} else {
						dst.Data[i+c] = src.Data[i+c]
					}
				}
			}
		}
	})
}
