package fluid

import (
	"strings"

	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/kernel"
	"github.com/pthm-cable/plume/splat"
)

type injectFunc func(dev *device.Device, buf *field.Buffer, packed []float32, t kernel.Target, p kernel.SplatParams)

// injector picks the splat strategy for a frame carrying n splats.
func injector(strategy string, n, threshold int) injectFunc {
	switch strings.ToLower(strategy) {
	case "tiled":
		return kernel.SplatTiled
	case "batch":
		return kernel.SplatBatch
	}
	if n >= threshold {
		return kernel.SplatBatch
	}
	return kernel.SplatTiled
}

// applySplats drains this frame's share of the queue and stamps it into
// every field it carries a payload for. Optional fields are only touched
// when their feature is enabled. Returns the number of splats drained.
func (s *Solver) applySplats() int {
	s.drained = s.queue.Drain(s.drained[:0])
	list := s.drained
	if len(list) == 0 {
		return 0
	}

	sc := &s.cfg.Splats
	eps := float32(sc.Epsilon)
	s.packed = splat.Pack(s.packed[:0], list, eps)
	inject := injector(sc.Strategy, len(list), sc.BatchThreshold)
	p := kernel.SplatParams{Epsilon: eps, TileSize: sc.TileSize}

	var vel, dye, temp, fuel, obs bool
	for i := range list {
		sp := &list[i]
		vel = vel || sp.HasVelocity()
		dye = dye || sp.HasColor()
		temp = temp || sp.Temperature != 0
		fuel = fuel || sp.Fuel != 0
		obs = obs || sp.HasObstacle
	}

	if vel {
		inject(s.dev, s.fields.Read(FieldVelocity), s.packed, kernel.TargetVelocity, p)
	}
	if dye {
		inject(s.dev, s.fields.Read(FieldDye), s.packed, kernel.TargetDye, p)
	}
	if temp && s.cfg.Temperature.Enabled {
		inject(s.dev, s.fields.Read(FieldTemperature), s.packed, kernel.TargetTemperature, p)
	}
	if fuel && s.cfg.Fuel.Enabled {
		inject(s.dev, s.fields.Read(FieldFuel), s.packed, kernel.TargetFuel, p)
	}
	if obs && s.cfg.Obstacles.Enabled {
		if !s.fields.IsAllocated(FieldObstacles) {
			s.log.Debug("allocating obstacle mask")
		}
		inject(s.dev, s.fields.Read(FieldObstacles), s.packed, kernel.TargetObstacle, p)
	}
	return len(list)
}
