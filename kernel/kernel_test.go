package kernel

import (
	"math"
	"testing"

	"github.com/pthm-cable/plume/device"
	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/splat"
)

func newDevice(t testing.TB) *device.Device {
	dev := device.New(4, 8)
	t.Cleanup(dev.Close)
	return dev
}

func fill(b *field.Buffer, fn func(x, y, c int) float32) {
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			for c := 0; c < b.C; c++ {
				b.Set(x, y, c, fn(x, y, c))
			}
		}
	}
}

func absSum(b *field.Buffer) float64 {
	var s float64
	for _, v := range b.Data {
		s += math.Abs(float64(v))
	}
	return s
}

// ---------- Advection ----------

func TestAdvectZeroVelocityIsIdentity(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(16, 16, field.Vec2)
	src := field.NewBuffer(32, 32, field.Vec4)
	dst := field.NewBuffer(32, 32, field.Vec4)
	fill(src, func(x, y, c int) float32 { return float32((x*7+y*3+c)%11) / 10 })

	Advect(dev, dst, src, vel, 1.0/60, 0)

	for i := range src.Data {
		if dst.Data[i] != src.Data[i] {
			t.Fatalf("index %d: expected %f, got %f", i, src.Data[i], dst.Data[i])
		}
	}
}

func TestAdvectTranslates(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(16, 16, field.Vec2)
	fill(vel, func(x, y, c int) float32 {
		if c == 0 {
			return 60 // one cell per 1/60 s
		}
		return 0
	})
	src := field.NewBuffer(16, 16, field.Scalar)
	dst := field.NewBuffer(16, 16, field.Scalar)
	src.Set(5, 8, 0, 1)

	Advect(dev, dst, src, vel, 1.0/60, 0)

	if got := dst.At(6, 8, 0); math.Abs(float64(got-1)) > 1e-4 {
		t.Errorf("expected value moved to x=6, got %f", got)
	}
	if got := dst.At(5, 8, 0); math.Abs(float64(got)) > 1e-4 {
		t.Errorf("expected x=5 emptied, got %f", got)
	}
}

func TestAdvectDissipation(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(8, 8, field.Vec2)
	src := field.NewBuffer(8, 8, field.Scalar)
	dst := field.NewBuffer(8, 8, field.Scalar)
	fill(src, func(x, y, c int) float32 { return 1 })

	Advect(dev, dst, src, vel, 0.5, 1)

	want := float32(1 / 1.5)
	if got := dst.At(3, 3, 0); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("expected %f after dissipation, got %f", want, got)
	}
}

func TestMacCormackStaysWithinNeighbourhood(t *testing.T) {
	dev := newDevice(t)
	const n = 32
	vel := field.NewBuffer(n, n, field.Vec2)
	fill(vel, func(x, y, c int) float32 {
		if c == 0 {
			return 37
		}
		return -11
	})
	src := field.NewBuffer(n, n, field.Scalar)
	fill(src, func(x, y, c int) float32 {
		if x >= 10 && x < 20 && y >= 10 && y < 20 {
			return 1
		}
		return 0
	})
	dst := field.NewBuffer(n, n, field.Scalar)
	fwd := field.NewBuffer(n, n, field.Scalar)
	rev := field.NewBuffer(n, n, field.Scalar)

	for step := 0; step < 10; step++ {
		MacCormack(dev, dst, src, fwd, rev, vel, 1.0/60, 0)
		src, dst = dst, src
	}

	for i, v := range src.Data {
		if v < -1e-6 || v > 1+1e-6 {
			t.Fatalf("index %d: value %f outside source range", i, v)
		}
	}
	if src.Mass() == 0 {
		t.Error("expected dye to survive advection")
	}
}

// ---------- Projection ----------

func TestProjectionIsDivergenceFree(t *testing.T) {
	dev := newDevice(t)
	const n = 64
	vel := field.NewBuffer(n, n, field.Vec2)
	fill(vel, func(x, y, c int) float32 {
		if c != 0 {
			return 0
		}
		dx := float64(x) - 31.5
		dy := float64(y) - 31.5
		return float32(10 * math.Exp(-(dx*dx+dy*dy)/128))
	})
	div := field.NewBuffer(n, n, field.Scalar)
	Divergence(dev, div, vel, false)
	before := absSum(div)
	if before == 0 {
		t.Fatal("expected initial divergence")
	}

	// Relax until the Poisson residual is small
	p := field.NewBuffer(n, n, field.Scalar)
	tmp := field.NewBuffer(n, n, field.Scalar)
	res := field.NewBuffer(n, n, field.Scalar)
	params := JacobiParams{Omega: 1, Scale: 1}
	iters := 0
	for ; iters < 20000; iters += 200 {
		for i := 0; i < 200; i++ {
			Jacobi(dev, tmp, p, div, params)
			p, tmp = tmp, p
		}
		Residual(dev, res, p, div, false)
		if absSum(res) < 1e-3*before {
			break
		}
	}

	out := field.NewBuffer(n, n, field.Vec2)
	SubtractGradient(dev, out, vel, p, false)
	Divergence(dev, div, out, false)
	after := absSum(div)

	if after > 0.03*before {
		t.Errorf("divergence not near zero after %d sweeps: before %f after %f", iters, before, after)
	}
}

func TestRedBlackMatchesJacobiFixedPoint(t *testing.T) {
	dev := newDevice(t)
	const n = 16
	rhs := field.NewBuffer(n, n, field.Scalar)
	rhs.Set(8, 8, 0, 1)
	rhs.Set(4, 4, 0, -1)
	res := field.NewBuffer(n, n, field.Scalar)

	solve := func(sor bool) float64 {
		p := field.NewBuffer(n, n, field.Scalar)
		tmp := field.NewBuffer(n, n, field.Scalar)
		for i := 0; i < 60; i++ {
			if sor {
				RedBlack(dev, tmp, p, rhs, JacobiParams{Omega: 1.6}, 0)
				p, tmp = tmp, p
				RedBlack(dev, tmp, p, rhs, JacobiParams{Omega: 1.6}, 1)
			} else {
				Jacobi(dev, tmp, p, rhs, JacobiParams{})
			}
			p, tmp = tmp, p
		}
		Residual(dev, res, p, rhs, false)
		return absSum(res)
	}

	jac := solve(false)
	sor := solve(true)
	if sor >= jac {
		t.Errorf("expected SOR residual %f below Jacobi residual %f", sor, jac)
	}
}

func TestSolidWallsCopyInterior(t *testing.T) {
	dev := newDevice(t)
	src := field.NewBuffer(6, 6, field.Scalar)
	fill(src, func(x, y, c int) float32 { return float32(x + 10*y) })
	dst := field.NewBuffer(6, 6, field.Scalar)
	rhs := field.NewBuffer(6, 6, field.Scalar)

	Jacobi(dev, dst, src, rhs, JacobiParams{SolidWalls: true})

	if got, want := dst.At(0, 3, 0), src.At(1, 3, 0); got != want {
		t.Errorf("left edge: expected %f, got %f", want, got)
	}
	if got, want := dst.At(5, 5, 0), src.At(4, 4, 0); got != want {
		t.Errorf("corner: expected %f, got %f", want, got)
	}
}

func TestSubtractGradientZeroesWallNormals(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(8, 8, field.Vec2)
	fill(vel, func(x, y, c int) float32 { return 1 })
	p := field.NewBuffer(8, 8, field.Scalar)
	out := field.NewBuffer(8, 8, field.Vec2)

	SubtractGradient(dev, out, vel, p, true)

	if out.At(0, 4, 0) != 0 || out.At(0, 4, 1) != 1 {
		t.Errorf("left wall: expected (0,1), got (%f,%f)", out.At(0, 4, 0), out.At(0, 4, 1))
	}
	if out.At(4, 7, 1) != 0 || out.At(4, 7, 0) != 1 {
		t.Errorf("top wall: expected (1,0), got (%f,%f)", out.At(4, 7, 0), out.At(4, 7, 1))
	}
}

// ---------- Multigrid ----------

func TestRestrictProlongPreserveConstants(t *testing.T) {
	dev := newDevice(t)
	fine := field.NewBuffer(17, 9, field.Scalar)
	fill(fine, func(x, y, c int) float32 { return 3 })
	coarse := field.NewBuffer(9, 5, field.Scalar)

	Restrict(dev, coarse, fine)
	for i, v := range coarse.Data {
		if v != 3 {
			t.Fatalf("coarse %d: expected 3, got %f", i, v)
		}
	}

	fill(fine, func(x, y, c int) float32 { return 0 })
	Prolong(dev, fine, coarse)
	for i, v := range fine.Data {
		if math.Abs(float64(v-3)) > 1e-6 {
			t.Fatalf("fine %d: expected 3, got %f", i, v)
		}
	}
}

func TestResidualOfExactSolutionIsZero(t *testing.T) {
	dev := newDevice(t)
	p := field.NewBuffer(8, 8, field.Scalar)
	fill(p, func(x, y, c int) float32 { return 2 })
	rhs := field.NewBuffer(8, 8, field.Scalar)
	res := field.NewBuffer(8, 8, field.Scalar)

	Residual(dev, res, p, rhs, false)

	if absSum(res) != 0 {
		t.Errorf("expected zero residual for a constant field, got %f", absSum(res))
	}
}

// ---------- Vorticity and forces ----------

func TestCurlOfRotation(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(9, 9, field.Vec2)
	// Solid-body rotation u = -y, v = x has curl 2.
	fill(vel, func(x, y, c int) float32 {
		if c == 0 {
			return -float32(y - 4)
		}
		return float32(x - 4)
	})
	curl := field.NewBuffer(9, 9, field.Scalar)
	Curl(dev, curl, vel, true)

	if got := curl.At(4, 4, 0); math.Abs(float64(got-2)) > 1e-6 {
		t.Errorf("expected curl 2, got %f", got)
	}
	if curl.At(0, 4, 0) != 0 {
		t.Errorf("expected zero curl on solid edge, got %f", curl.At(0, 4, 0))
	}
}

func TestConfinementRespectsObstacles(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(16, 16, field.Vec2)
	curl := field.NewBuffer(16, 16, field.Scalar)
	fill(curl, func(x, y, c int) float32 { return float32(x) })
	obs := field.NewBuffer(16, 16, field.Scalar)
	fill(obs, func(x, y, c int) float32 { return 1 })

	free := field.NewBuffer(16, 16, field.Vec2)
	Confinement(dev, free, vel, curl, nil, ConfinementParams{Strength: 10, DT: 0.1})
	if free.Mass() == 0 {
		t.Fatal("expected a confinement force without obstacles")
	}

	blocked := field.NewBuffer(16, 16, field.Vec2)
	Confinement(dev, blocked, vel, curl, obs, ConfinementParams{Strength: 10, DT: 0.1, EdgeAware: true})
	if blocked.Mass() != 0 {
		t.Errorf("expected no force inside obstacles, got mass %f", blocked.Mass())
	}
}

func TestBuoyancyFromDye(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(8, 8, field.Vec2)
	dye := field.NewBuffer(16, 16, field.Vec4)
	fill(dye, func(x, y, c int) float32 { return 1 })
	out := field.NewBuffer(8, 8, field.Vec2)

	Buoyancy(dev, out, vel, dye, BuoyancyParams{Strength: 2, DT: 0.5, Weights: [3]float32{0.5, 0.25, 0.25}})

	if got := out.At(3, 3, 1); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("expected vertical velocity 1, got %f", got)
	}
	if out.At(3, 3, 0) != 0 {
		t.Errorf("expected horizontal velocity unchanged, got %f", out.At(3, 3, 0))
	}
}

func TestTurbulenceIsBoundedAndNonZero(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(32, 32, field.Vec2)
	out := field.NewBuffer(32, 32, field.Vec2)
	Turbulence(dev, out, vel, TurbulenceParams{Strength: 10, Scale: 2, Speed: 1, Time: 3, DT: 0.1, Octaves: 3})

	if out.Mass() == 0 {
		t.Fatal("expected turbulence to add velocity")
	}
	for i, v := range out.Data {
		if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 10 {
			t.Fatalf("index %d: unexpected value %f", i, v)
		}
	}
}

func TestDiffusePreservesConstant(t *testing.T) {
	dev := newDevice(t)
	src := field.NewBuffer(8, 8, field.Vec2)
	fill(src, func(x, y, c int) float32 { return 5 })
	dst := field.NewBuffer(8, 8, field.Vec2)
	Diffuse(dev, dst, src, 0.2)
	for i, v := range dst.Data {
		if v != 5 {
			t.Fatalf("index %d: expected 5, got %f", i, v)
		}
	}
	if ViscositySweeps(1, 4) != 4 || ViscositySweeps(0.5, 10) != 3 || ViscositySweeps(0, 10) != 0 || ViscositySweeps(0.05, 10) != 0 {
		t.Error("unexpected viscosity sweep count")
	}
}

// ---------- Scalars ----------

func TestCombust(t *testing.T) {
	dev := newDevice(t)
	temp := field.NewBuffer(2, 1, field.Scalar)
	fuel := field.NewBuffer(2, 1, field.Scalar)
	temp.Data[0], temp.Data[1] = 2, 0
	fuel.Data[0], fuel.Data[1] = 0.5, 0.5
	tOut := field.NewBuffer(2, 1, field.Scalar)
	fOut := field.NewBuffer(2, 1, field.Scalar)

	Combust(dev, tOut, fOut, temp, fuel, CombustionParams{Ignition: 1, BurnRate: 1, HeatRelease: 3, DT: 0.1})

	if math.Abs(float64(fOut.Data[0]-0.4)) > 1e-6 || math.Abs(float64(tOut.Data[0]-2.3)) > 1e-6 {
		t.Errorf("expected burn of 0.1, got T=%f F=%f", tOut.Data[0], fOut.Data[0])
	}
	if fOut.Data[1] != 0.5 || tOut.Data[1] != 0 {
		t.Errorf("expected cold cell untouched, got T=%f F=%f", tOut.Data[1], fOut.Data[1])
	}
}

func TestRelaxTowardAmbient(t *testing.T) {
	dev := newDevice(t)
	src := field.NewBuffer(4, 4, field.Scalar)
	fill(src, func(x, y, c int) float32 { return 1 })
	Relax(dev, src, src, 0, 2, 0.25)
	if got := src.At(1, 1, 0); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestFireDye(t *testing.T) {
	dev := newDevice(t)
	dye := field.NewBuffer(4, 4, field.Vec4)
	temp := field.NewBuffer(2, 2, field.Scalar)
	fill(temp, func(x, y, c int) float32 { return 3 })
	out := field.NewBuffer(4, 4, field.Vec4)

	FireDye(dev, out, dye, temp, FireParams{Color: [3]float32{1, 0.5, 0}, Intensity: 2, Threshold: 1, DT: 0.5})

	if got := out.At(2, 2, 0); math.Abs(float64(got-2)) > 1e-6 {
		t.Errorf("expected red 2, got %f", got)
	}
	if got := out.At(2, 2, 1); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("expected green 1, got %f", got)
	}
	if out.At(2, 2, 3) != 0 {
		t.Errorf("expected alpha untouched, got %f", out.At(2, 2, 3))
	}
}

func TestDissipatePerChannel(t *testing.T) {
	src := field.NewBuffer(3, 3, field.Vec4)
	fill(src, func(x, y, c int) float32 { return 1 })
	dst := field.NewBuffer(3, 3, field.Vec4)
	Dissipate(dst, src, []float32{0.5, 1, 0.25})
	if dst.At(1, 1, 0) != 0.5 || dst.At(1, 1, 1) != 1 || dst.At(1, 1, 2) != 0.25 || dst.At(1, 1, 3) != 1 {
		t.Errorf("unexpected channels %v", dst.Data[16:20])
	}
}

// ---------- Obstacles and boundaries ----------

func TestMaskVelocity(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(4, 4, field.Vec2)
	fill(vel, func(x, y, c int) float32 { return 2 })
	mask := field.NewBuffer(4, 4, field.Scalar)
	mask.Set(1, 1, 0, 1)
	mask.Set(2, 2, 0, 0.5)

	MaskVelocity(dev, vel, vel, mask)

	if vel.At(1, 1, 0) != 0 || vel.At(2, 2, 1) != 1 || vel.At(3, 3, 0) != 2 {
		t.Errorf("unexpected masked velocity %v", vel.Data)
	}
}

func TestMaskScalarModes(t *testing.T) {
	dev := newDevice(t)
	mask := field.NewBuffer(2, 2, field.Scalar)
	fill(mask, func(x, y, c int) float32 { return 1 })
	cur := field.NewBuffer(4, 4, field.Scalar)
	fill(cur, func(x, y, c int) float32 { return 3 })
	prev := field.NewBuffer(4, 4, field.Scalar)
	fill(prev, func(x, y, c int) float32 { return 7 })

	MaskScalar(dev, prev, cur, prev, mask, true)
	if prev.At(1, 1, 0) != 7 {
		t.Errorf("hold: expected previous value 7, got %f", prev.At(1, 1, 0))
	}

	out := field.NewBuffer(4, 4, field.Scalar)
	MaskScalar(dev, out, cur, prev, mask, false)
	if out.Mass() != 0 {
		t.Errorf("clear: expected empty field, got mass %f", out.Mass())
	}
}

func TestVelocityBoundaryModes(t *testing.T) {
	dev := newDevice(t)
	vel := field.NewBuffer(6, 6, field.Vec2)
	fill(vel, func(x, y, c int) float32 { return float32(1 + c) })
	out := field.NewBuffer(6, 6, field.Vec2)

	VelocityBoundary(dev, out, vel, FreeSlip)
	if out.At(0, 3, 0) != 0 || out.At(0, 3, 1) != 2 {
		t.Errorf("free slip: unexpected left edge (%f,%f)", out.At(0, 3, 0), out.At(0, 3, 1))
	}

	VelocityBoundary(dev, out, vel, NoSlip)
	if out.At(0, 3, 0) != 0 || out.At(0, 3, 1) != 0 || out.At(2, 2, 0) != 1 {
		t.Error("no slip: expected zero border and untouched interior")
	}

	vel.Set(1, 3, 0, 9)
	VelocityBoundary(dev, out, vel, Open)
	if out.At(0, 3, 0) != 9 {
		t.Errorf("open: expected interior copy 9, got %f", out.At(0, 3, 0))
	}

	if ParseBoundary("no-slip") != NoSlip || ParseBoundary("open") != Open || ParseBoundary("") != FreeSlip {
		t.Error("unexpected boundary parse")
	}
}

func TestClearBorder(t *testing.T) {
	dev := newDevice(t)
	src := field.NewBuffer(5, 5, field.Vec4)
	fill(src, func(x, y, c int) float32 { return 1 })
	dst := field.NewBuffer(5, 5, field.Vec4)
	ClearBorder(dev, dst, src)
	if dst.Mass() != 9*4 {
		t.Errorf("expected only the 3x3 interior to remain, got mass %f", dst.Mass())
	}
}

// ---------- Splats ----------

func testSplats() []splat.Splat {
	return []splat.Splat{
		{X: 0.3, Y: 0.4, DX: 50, DY: -20, Color: [3]float32{1, 0.5, 0.25}, Radius: 0.002, Falloff: splat.FalloffNormal},
		{X: 0.35, Y: 0.45, DX: -10, Color: [3]float32{0, 1, 0}, Radius: 0.004, Softness: 1.5, Falloff: splat.FalloffTight, Blend: splat.BlendMax},
		{X: 0.7, Y: 0.2, Color: [3]float32{0.2, 0.2, 0.9}, Radius: 0.003, Falloff: splat.FalloffWide, Blend: splat.BlendMix},
		{X: 0.5, Y: 0.5, Radius: 0.01, HasObstacle: true, Obstacle: 1, Temperature: 2, Fuel: 1},
	}
}

func TestTiledMatchesBatch(t *testing.T) {
	dev := newDevice(t)
	packed := splat.Pack(nil, testSplats(), 1e-3)
	params := SplatParams{Epsilon: 1e-3, TileSize: 8}

	cases := []struct {
		name   string
		target Target
		w, h   int
		format field.Format
	}{
		{"velocity", TargetVelocity, 48, 32, field.Vec2},
		{"dye", TargetDye, 96, 64, field.Vec4},
		{"temperature", TargetTemperature, 48, 32, field.Scalar},
		{"obstacle", TargetObstacle, 48, 32, field.Scalar},
	}
	for _, tc := range cases {
		tiled := field.NewBuffer(tc.w, tc.h, tc.format)
		batch := field.NewBuffer(tc.w, tc.h, tc.format)
		fill(tiled, func(x, y, c int) float32 { return 0.1 })
		batch.CopyFrom(tiled)

		SplatTiled(dev, tiled, packed, tc.target, params)
		SplatBatch(dev, batch, packed, tc.target, params)

		for i := range tiled.Data {
			if math.Abs(float64(tiled.Data[i]-batch.Data[i])) > 1e-6 {
				t.Fatalf("%s: index %d differs: tiled %f batch %f", tc.name, i, tiled.Data[i], batch.Data[i])
			}
		}
		if tiled.Mass() == float32(0.1)*float32(len(tiled.Data)) {
			t.Errorf("%s: expected injection to change the field", tc.name)
		}
	}
}

func TestZeroSplatIsIdempotent(t *testing.T) {
	dev := newDevice(t)
	buf := field.NewBuffer(32, 32, field.Vec4)
	fill(buf, func(x, y, c int) float32 { return float32(x*y%5) / 5 })
	before := append([]float32(nil), buf.Data...)

	packed := splat.Pack(nil, []splat.Splat{{X: 0.5, Y: 0.5}}, 1e-3)
	SplatTiled(dev, buf, packed, TargetDye, SplatParams{Epsilon: 1e-3})
	SplatBatch(dev, buf, packed, TargetVelocity, SplatParams{Epsilon: 1e-3})

	for i := range before {
		if buf.Data[i] != before[i] {
			t.Fatalf("index %d changed from %f to %f", i, before[i], buf.Data[i])
		}
	}
}

func TestSplatWeightPeaksAtCentre(t *testing.T) {
	dev := newDevice(t)
	buf := field.NewBuffer(64, 32, field.Scalar)
	packed := splat.Pack(nil, []splat.Splat{{X: 0.5, Y: 0.5, Temperature: 1, Radius: 0.001}}, 1e-3)
	SplatTiled(dev, buf, packed, TargetTemperature, SplatParams{Epsilon: 1e-3, TileSize: 16})

	centre := buf.At(31, 15, 0)
	if centre <= 0.5 {
		t.Errorf("expected strong centre weight, got %f", centre)
	}
	if buf.At(31, 15, 0) != buf.At(32, 16, 0) {
		t.Errorf("expected symmetric weights about the centre")
	}
	if buf.At(0, 0, 0) != 0 {
		t.Errorf("expected far cells below epsilon to be untouched, got %f", buf.At(0, 0, 0))
	}
}

func TestObstacleSplatClamps(t *testing.T) {
	dev := newDevice(t)
	buf := field.NewBuffer(16, 16, field.Scalar)
	s := splat.Splat{X: 0.5, Y: 0.5, Radius: 0.05, HasObstacle: true, Obstacle: 1}
	packed := splat.Pack(nil, []splat.Splat{s, s, s}, 1e-3)
	SplatBatch(dev, buf, packed, TargetObstacle, SplatParams{Epsilon: 1e-3})

	for i, v := range buf.Data {
		if v < 0 || v > 1 {
			t.Fatalf("index %d: mask %f outside [0,1]", i, v)
		}
	}
}

func TestDeviceTilesOnlyCoverFootprint(t *testing.T) {
	dev := newDevice(t)
	buf := field.NewBuffer(256, 256, field.Vec2)
	packed := splat.Pack(nil, []splat.Splat{{X: 0.5, Y: 0.5, DX: 1, Radius: 0.0001}}, 1e-3)

	before := dev.Stats().Tiles
	SplatTiled(dev, buf, packed, TargetVelocity, SplatParams{Epsilon: 1e-3, TileSize: 16})
	tiles := dev.Stats().Tiles - before

	if tiles == 0 || tiles >= 256 {
		t.Errorf("expected a handful of tiles, got %d", tiles)
	}
}

func BenchmarkAdvect128(b *testing.B) {
	dev := newDevice(b)
	vel := field.NewBuffer(128, 128, field.Vec2)
	src := field.NewBuffer(256, 256, field.Vec4)
	dst := field.NewBuffer(256, 256, field.Vec4)
	fill(vel, func(x, y, c int) float32 { return 3 })
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Advect(dev, dst, src, vel, 1.0/60, 0.5)
	}
}

func BenchmarkJacobi128(b *testing.B) {
	dev := newDevice(b)
	p := field.NewBuffer(128, 128, field.Scalar)
	tmp := field.NewBuffer(128, 128, field.Scalar)
	rhs := field.NewBuffer(128, 128, field.Scalar)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Jacobi(dev, tmp, p, rhs, JacobiParams{})
		p, tmp = tmp, p
	}
}

func BenchmarkSplatBatch64(b *testing.B) {
	dev := newDevice(b)
	buf := field.NewBuffer(256, 256, field.Vec4)
	list := make([]splat.Splat, 64)
	for i := range list {
		list[i] = splat.Splat{X: float32(i) / 64, Y: 0.5, Color: [3]float32{1, 1, 1}, Radius: 0.002}
	}
	packed := splat.Pack(nil, list, 1e-3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SplatBatch(dev, buf, packed, TargetDye, SplatParams{Epsilon: 1e-3})
	}
}
