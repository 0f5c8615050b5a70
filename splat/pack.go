package splat

// Packed layout: one record of Stride float32 per splat.
const (
	OffX = iota
	OffY
	OffDX
	OffDY
	OffR
	OffG
	OffB
	OffExtent // max(radius*softness, eps)
	OffK
	OffBlend
	OffTemperature
	OffFuel
	OffObstacle
	OffObstacleBlend
	OffHasObstacle
	offPad

	Stride
)

// Pack flattens splats into one buffer for batch injection, reusing dst.
func Pack(dst []float32, list []Splat, eps float32) []float32 {
	need := len(list) * Stride
	if cap(dst) < need {
		dst = make([]float32, need)
	}
	dst = dst[:need]
	for i := range list {
		s := &list[i]
		rec := dst[i*Stride : (i+1)*Stride]
		rec[OffX] = s.X
		rec[OffY] = s.Y
		rec[OffDX] = s.DX
		rec[OffDY] = s.DY
		rec[OffR] = s.Color[0]
		rec[OffG] = s.Color[1]
		rec[OffB] = s.Color[2]
		rec[OffExtent] = s.Extent(eps)
		rec[OffK] = s.Falloff.K()
		rec[OffBlend] = float32(s.Blend)
		rec[OffTemperature] = s.Temperature
		rec[OffFuel] = s.Fuel
		rec[OffObstacle] = s.Obstacle
		rec[OffObstacleBlend] = float32(s.ObstacleBlend)
		rec[OffHasObstacle] = 0
		if s.HasObstacle {
			rec[OffHasObstacle] = 1
		}
		rec[offPad] = 0
	}
	return dst
}
