package fluid

import (
	"strings"

	"github.com/pthm-cable/plume/field"
	"github.com/pthm-cable/plume/kernel"
	"github.com/pthm-cable/plume/pipeline"
)

// buildGraph wires every stage in pipeline.Order to its pass routine.
func (s *Solver) buildGraph() *pipeline.Graph {
	g := pipeline.NewGraph()
	add := func(name, desc string, run func(dt float32)) {
		g.Add(pipeline.Pass{Name: name, Description: desc, Run: run})
	}

	add(pipeline.StageVorticity, "curl and vorticity confinement", s.passVorticity)
	add(pipeline.StageAdvectVelocity, "self-advect velocity", s.passAdvectVelocity)
	add(pipeline.StageViscosity, "explicit viscous diffusion", s.passViscosity)
	add(pipeline.StageTurbulence, "curl-noise forcing", s.passTurbulence)
	add(pipeline.StageForces, "buoyancy and gravity", s.passForces)
	add(pipeline.StageObstaclesPre, "zero velocity inside obstacles", s.passObstaclesVelocity)
	add(pipeline.StageDivergence, "velocity divergence", s.passDivergence)
	add(pipeline.StagePressure, "pressure Poisson solve", s.passPressure)
	add(pipeline.StageGradientSubtract, "project velocity", s.passGradientSubtract)
	add(pipeline.StageVelocityBoundary, "domain edge velocity", s.passVelocityBoundary)
	add(pipeline.StageObstaclesPost, "zero velocity inside obstacles", s.passObstaclesVelocity)
	add(pipeline.StageAdvectDye, "advect dye", s.passAdvectDye)
	add(pipeline.StageDyeBoundary, "dye outflow at edges", s.passDyeBoundary)
	add(pipeline.StageObstaclesDye, "hold or clear dye inside obstacles", s.passObstaclesDye)
	add(pipeline.StageMultiphase, "per-channel dye dissipation", s.passMultiphase)
	add(pipeline.StageAdvectTemperature, "advect and cool temperature", s.passAdvectTemperature)
	add(pipeline.StageObstaclesTemperature, "hold or clear temperature inside obstacles", s.passObstaclesTemperature)
	add(pipeline.StageAdvectFuel, "advect fuel", s.passAdvectFuel)
	add(pipeline.StageCombustion, "burn fuel into heat", s.passCombustion)
	add(pipeline.StageFireDye, "emit dye from hot cells", s.passFireDye)
	return g
}

func (s *Solver) passVorticity(dt float32) {
	vc := &s.cfg.Vorticity
	if !vc.Enabled || vc.Strength == 0 {
		return
	}
	velR, velW := s.fields.Both(FieldVelocity)
	curl := s.fields.Read(FieldVorticity)
	kernel.Curl(s.dev, curl, velR, s.solidWalls())

	var obstacles *field.Buffer
	if vc.EdgeAware && s.obstaclesActive() {
		obstacles = s.fields.Read(FieldObstacles)
	}
	kernel.Confinement(s.dev, velW, velR, curl, obstacles, kernel.ConfinementParams{
		Strength:   float32(vc.Strength),
		DT:         dt,
		LargeScale: vc.LargeScale,
		LargeMix:   float32(vc.LargeScaleMix),
		EdgeAware:  vc.EdgeAware,
	})
	s.fields.Swap(FieldVelocity)
}

func (s *Solver) passAdvectVelocity(dt float32) {
	ac := &s.cfg.Advection
	velR, velW := s.fields.Both(FieldVelocity)
	diss := float32(ac.VelocityDissipation)
	if ac.MacCormackVelocity {
		fwd, rev := s.ensureMacCormack(FieldVelocityMC)
		kernel.MacCormack(s.dev, velW, velR, fwd, rev, velR, dt, diss)
	} else {
		kernel.Advect(s.dev, velW, velR, velR, dt, diss)
	}
	s.fields.Swap(FieldVelocity)
}

func (s *Solver) passViscosity(dt float32) {
	vc := &s.cfg.Viscosity
	if !vc.Enabled {
		return
	}
	n := kernel.ViscositySweeps(float32(vc.Amount), maxViscositySweeps)
	for i := 0; i < n; i++ {
		r, w := s.fields.Both(FieldVelocity)
		kernel.Diffuse(s.dev, w, r, viscosityAlpha)
		s.fields.Swap(FieldVelocity)
	}
}

func (s *Solver) passTurbulence(dt float32) {
	tc := &s.cfg.Turbulence
	if !tc.Enabled || tc.Strength == 0 {
		return
	}
	r, w := s.fields.Both(FieldVelocity)
	kernel.Turbulence(s.dev, w, r, kernel.TurbulenceParams{
		Strength: float32(tc.Strength),
		Scale:    float32(tc.Scale),
		Speed:    float32(tc.Speed),
		Time:     s.simTime,
		DT:       dt,
		Octaves:  tc.Octaves,
	})
	s.fields.Swap(FieldVelocity)
}

// passForces applies buoyancy then gravity. Buoyancy reads temperature when
// configured to and the field exists, dye otherwise; never both.
func (s *Solver) passForces(dt float32) {
	bc := &s.cfg.Buoyancy
	if bc.Enabled && bc.Strength != 0 {
		source := s.buoyancySource()
		if source != nil {
			r, w := s.fields.Both(FieldVelocity)
			kernel.Buoyancy(s.dev, w, r, source, kernel.BuoyancyParams{
				Strength: float32(bc.Strength),
				Ambient:  float32(bc.Ambient),
				DT:       dt,
				Weights:  [3]float32{float32(bc.Weights[0]), float32(bc.Weights[1]), float32(bc.Weights[2])},
			})
			s.fields.Swap(FieldVelocity)
		}
	}

	gc := &s.cfg.Gravity
	if gc.Enabled && (gc.X != 0 || gc.Y != 0) {
		r, w := s.fields.Both(FieldVelocity)
		kernel.Gravity(s.dev, w, r, float32(gc.X), float32(gc.Y), dt)
		s.fields.Swap(FieldVelocity)
	}
}

func (s *Solver) buoyancySource() *field.Buffer {
	if !s.cfg.Buoyancy.UseTemperature {
		return s.fields.Read(FieldDye)
	}
	if !s.cfg.Temperature.Enabled || !s.fields.IsAllocated(FieldTemperature) {
		return nil
	}
	return s.fields.Read(FieldTemperature)
}

// passObstaclesVelocity runs both before and after the projection so the
// pressure solve cannot push flow into solids.
func (s *Solver) passObstaclesVelocity(float32) {
	if !s.obstaclesActive() {
		return
	}
	r, w := s.fields.Both(FieldVelocity)
	kernel.MaskVelocity(s.dev, w, r, s.fields.Read(FieldObstacles))
	s.fields.Swap(FieldVelocity)
}

func (s *Solver) passDivergence(float32) {
	kernel.Divergence(s.dev, s.fields.Read(FieldDivergence), s.fields.Read(FieldVelocity), s.solidWalls())
}

// passPressure warm-starts from the decayed previous pressure, then relaxes.
// With multigrid the fine-grid sweep budget is split around a coarse-grid
// correction instead of spent in one run.
func (s *Solver) passPressure(dt float32) {
	pc := &s.cfg.Pressure
	s.fields.Read(FieldPressure).Scale(float32(pc.Decay))

	n := pc.Iterations
	if pc.Adaptive {
		n = pipeline.AdaptiveIterations(pc.Iterations, dt, s.cfg.Derived.ReferenceDT, pc.MinIterations, pc.MaxIterations)
	}
	s.iterations = n

	mg := &s.cfg.Multigrid
	if !mg.Enabled {
		s.relax(n)
		return
	}
	pre := min(mg.PreSmooth, n)
	post := max(mg.PostSmooth, n-pre)
	s.relax(pre)
	s.coarseCorrection()
	s.relax(post)
	s.iterations = pre + post
}

// relax runs n fine-grid sweeps with the configured smoother.
func (s *Solver) relax(n int) {
	pc := &s.cfg.Pressure
	div := s.fields.Read(FieldDivergence)
	if strings.EqualFold(pc.Solver, "sor") {
		p := kernel.JacobiParams{Omega: float32(pc.SORFactor), SolidWalls: pc.SolidWalls}
		for i := 0; i < n; i++ {
			for parity := 0; parity < 2; parity++ {
				r, w := s.fields.Both(FieldPressure)
				kernel.RedBlack(s.dev, w, r, div, p, parity)
				s.fields.Swap(FieldPressure)
			}
		}
		return
	}
	p := kernel.JacobiParams{Omega: 1, SolidWalls: pc.SolidWalls}
	for i := 0; i < n; i++ {
		r, w := s.fields.Both(FieldPressure)
		kernel.Jacobi(s.dev, w, r, div, p)
		s.fields.Swap(FieldPressure)
	}
}

// coarseCorrection solves the residual equation on the half-resolution grid
// and adds the interpolated error into fine pressure.
func (s *Solver) coarseCorrection() {
	res, coarseRes := s.ensureMultigrid()
	walls := s.solidWalls()
	pressure := s.fields.Read(FieldPressure)

	kernel.Residual(s.dev, res, pressure, s.fields.Read(FieldDivergence), walls)
	kernel.Restrict(s.dev, coarseRes, res)

	e, _ := s.fields.Both(FieldCoarseError)
	e.Clear()
	p := kernel.JacobiParams{Omega: 1, Scale: 4, SolidWalls: walls}
	for i := 0; i < s.cfg.Multigrid.CoarseIterations; i++ {
		r, w := s.fields.Both(FieldCoarseError)
		kernel.Jacobi(s.dev, w, r, coarseRes, p)
		s.fields.Swap(FieldCoarseError)
	}

	kernel.Prolong(s.dev, res, s.fields.Read(FieldCoarseError))
	pressure.AddScaled(1, res)
}

func (s *Solver) passGradientSubtract(float32) {
	r, w := s.fields.Both(FieldVelocity)
	kernel.SubtractGradient(s.dev, w, r, s.fields.Read(FieldPressure), s.solidWalls())
	s.fields.Swap(FieldVelocity)
}

func (s *Solver) passVelocityBoundary(float32) {
	r, w := s.fields.Both(FieldVelocity)
	kernel.VelocityBoundary(s.dev, w, r, s.boundaryMode())
	s.fields.Swap(FieldVelocity)
}

func (s *Solver) passAdvectDye(dt float32) {
	ac := &s.cfg.Advection
	r, w := s.fields.Both(FieldDye)
	s.snapshotHold(FieldDyeHold, r)
	vel := s.fields.Read(FieldVelocity)
	diss := float32(ac.DyeDissipation)
	if ac.MacCormackDye {
		fwd, rev := s.ensureMacCormack(FieldDyeMC)
		kernel.MacCormack(s.dev, w, r, fwd, rev, vel, dt, diss)
	} else {
		kernel.Advect(s.dev, w, r, vel, dt, diss)
	}
	s.fields.Swap(FieldDye)
}

func (s *Solver) passDyeBoundary(float32) {
	if !s.cfg.Boundary.DyeOutflow {
		return
	}
	r, w := s.fields.Both(FieldDye)
	kernel.ClearBorder(s.dev, w, r)
	s.fields.Swap(FieldDye)
}

// passObstaclesDye masks the advected dye. Hold mode restores the snapshot
// taken before advection, so boundary clearing in between does not leak
// into solid cells.
func (s *Solver) passObstaclesDye(float32) {
	if !s.obstaclesActive() {
		return
	}
	s.maskScalar(FieldDye, FieldDyeHold)
}

func (s *Solver) passMultiphase(dt float32) {
	mc := &s.cfg.Multiphase
	if !mc.Enabled {
		return
	}
	s.factors = s.factors[:0]
	for _, rate := range mc.Dissipation {
		s.factors = append(s.factors, 1/(1+float32(rate)*dt))
	}
	r, w := s.fields.Both(FieldDye)
	kernel.Dissipate(w, r, s.factors)
	s.fields.Swap(FieldDye)
}

func (s *Solver) passAdvectTemperature(dt float32) {
	tc := &s.cfg.Temperature
	if !tc.Enabled {
		return
	}
	vel := s.fields.Read(FieldVelocity)
	r, w := s.fields.Both(FieldTemperature)
	s.snapshotHold(FieldTemperatureHold, r)
	kernel.Advect(s.dev, w, r, vel, dt, float32(tc.Dissipation))
	s.fields.Swap(FieldTemperature)

	if tc.Cooling > 0 {
		r, w = s.fields.Both(FieldTemperature)
		kernel.Relax(s.dev, w, r, float32(tc.Ambient), float32(tc.Cooling), dt)
		s.fields.Swap(FieldTemperature)
	}
}

func (s *Solver) passObstaclesTemperature(float32) {
	if !s.cfg.Temperature.Enabled || !s.fields.IsAllocated(FieldTemperature) || !s.obstaclesActive() {
		return
	}
	s.maskScalar(FieldTemperature, FieldTemperatureHold)
}

// snapshotHold copies src into the hold buffer when hold mode will need it.
func (s *Solver) snapshotHold(id field.ID, src *field.Buffer) {
	if !s.obstaclesActive() || !s.holdScalars() {
		return
	}
	s.fields.Read(id).CopyFrom(src)
}

// maskScalar masks the current buffer of id. In hold mode solid cells take
// their value from the hold snapshot, otherwise they are cleared.
func (s *Solver) maskScalar(id, hold field.ID) {
	cur, dst := s.fields.Both(id)
	prev := cur
	if s.holdScalars() && s.fields.IsAllocated(hold) {
		prev = s.fields.Read(hold)
	}
	kernel.MaskScalar(s.dev, dst, cur, prev, s.fields.Read(FieldObstacles), s.holdScalars())
	s.fields.Swap(id)
}

func (s *Solver) passAdvectFuel(dt float32) {
	fc := &s.cfg.Fuel
	if !fc.Enabled {
		return
	}
	vel := s.fields.Read(FieldVelocity)
	r, w := s.fields.Both(FieldFuel)
	kernel.Advect(s.dev, w, r, vel, dt, float32(fc.Dissipation))
	s.fields.Swap(FieldFuel)
}

// passCombustion reacts temperature and fuel. Each field is read from its
// own current buffer and written to its own next buffer, so their ping-pong
// states are independent and need no alignment.
func (s *Solver) passCombustion(dt float32) {
	if !s.combustionReady() {
		return
	}
	cc := &s.cfg.Combustion
	tr, tw := s.fields.Both(FieldTemperature)
	fr, fw := s.fields.Both(FieldFuel)
	kernel.Combust(s.dev, tw, fw, tr, fr, kernel.CombustionParams{
		Ignition:    float32(cc.Ignition),
		BurnRate:    float32(cc.BurnRate),
		HeatRelease: float32(cc.HeatRelease),
		DT:          dt,
	})
	s.fields.Swap(FieldTemperature)
	s.fields.Swap(FieldFuel)
}

func (s *Solver) combustionReady() bool {
	return s.cfg.Combustion.Enabled &&
		s.cfg.Temperature.Enabled && s.fields.IsAllocated(FieldTemperature) &&
		s.cfg.Fuel.Enabled && s.fields.IsAllocated(FieldFuel)
}

func (s *Solver) passFireDye(dt float32) {
	fc := &s.cfg.FireDye
	if !fc.Enabled || !s.cfg.Combustion.Enabled ||
		!s.cfg.Temperature.Enabled || !s.fields.IsAllocated(FieldTemperature) {
		return
	}
	r, w := s.fields.Both(FieldDye)
	kernel.FireDye(s.dev, w, r, s.fields.Read(FieldTemperature), kernel.FireParams{
		Color:     [3]float32{float32(fc.Color[0]), float32(fc.Color[1]), float32(fc.Color[2])},
		Intensity: float32(fc.Intensity),
		Threshold: float32(fc.Threshold),
		DT:        dt,
	})
	s.fields.Swap(FieldDye)
}

func (s *Solver) holdScalars() bool {
	return strings.EqualFold(s.cfg.Obstacles.DyeMode, "hold")
}

// ensureMacCormack returns the forward and reverse scratch buffers of a
// MacCormack pair, allocating them on first use.
func (s *Solver) ensureMacCormack(id field.ID) (fwd, rev *field.Buffer) {
	if !s.fields.IsAllocated(id) {
		s.log.Debug("allocating maccormack scratch", "field", id)
		s.fields.Read(id)
	}
	a, b, _ := s.fields.Pair(id)
	return a, b
}

// ensureMultigrid allocates the multigrid buffers on first use and returns
// the fine residual and coarse right-hand side.
func (s *Solver) ensureMultigrid() (res, coarseRes *field.Buffer) {
	if !s.fields.IsAllocated(FieldCoarseError) {
		size := s.fields.Size(FieldCoarseError)
		s.log.Debug("allocating multigrid level", "coarse", size)
	}
	s.fields.Read(FieldCoarseError)
	return s.fields.Read(FieldResidual), s.fields.Read(FieldCoarseResidual)
}
