package fluid

import "github.com/pthm-cable/plume/field"

// Field IDs.
const (
	FieldVelocity        field.ID = "velocity"
	FieldDye             field.ID = "dye"
	FieldPressure        field.ID = "pressure"
	FieldDivergence      field.ID = "divergence"
	FieldVorticity       field.ID = "vorticity"
	FieldObstacles       field.ID = "obstacles"
	FieldTemperature     field.ID = "temperature"
	FieldFuel            field.ID = "fuel"
	FieldResidual        field.ID = "residual"
	FieldCoarseResidual  field.ID = "coarse_residual"
	FieldCoarseError     field.ID = "coarse_error"
	FieldVelocityMC      field.ID = "velocity_mc"
	FieldDyeMC           field.ID = "dye_mc"
	FieldDyeHold         field.ID = "dye_hold"
	FieldTemperatureHold field.ID = "temperature_hold"
)

// coarseScale is the resolution of the multigrid coarse level.
const coarseScale = 0.5

// fieldDefs lists every field the solver registers at construction.
// Lazy fields have no storage until a stage first touches them.
func fieldDefs() []field.Def {
	return []field.Def{
		{ID: FieldVelocity, Format: field.Vec2, Grid: field.GridVelocity, PingPong: true},
		{ID: FieldDye, Format: field.Vec3, Grid: field.GridDye, PingPong: true},
		{ID: FieldPressure, Format: field.Scalar, Grid: field.GridVelocity, PingPong: true},
		{ID: FieldDivergence, Format: field.Scalar, Grid: field.GridVelocity},
		{ID: FieldVorticity, Format: field.Scalar, Grid: field.GridVelocity},

		// Single-buffer mask; splats stamp it in place.
		{ID: FieldObstacles, Format: field.Scalar, Grid: field.GridVelocity, Lazy: true},

		{ID: FieldTemperature, Format: field.Scalar, Grid: field.GridVelocity, PingPong: true, Lazy: true},
		{ID: FieldFuel, Format: field.Scalar, Grid: field.GridVelocity, PingPong: true, Lazy: true},

		// Multigrid. residual also holds the prolongated correction.
		{ID: FieldResidual, Format: field.Scalar, Grid: field.GridVelocity, Lazy: true},
		{ID: FieldCoarseResidual, Format: field.Scalar, Grid: field.GridVelocity, Scale: coarseScale, Lazy: true},
		{ID: FieldCoarseError, Format: field.Scalar, Grid: field.GridVelocity, Scale: coarseScale, PingPong: true, Lazy: true},

		// MacCormack scratch: buffer A holds the forward step, B the reverse.
		{ID: FieldVelocityMC, Format: field.Vec2, Grid: field.GridVelocity, PingPong: true, Lazy: true},
		{ID: FieldDyeMC, Format: field.Vec3, Grid: field.GridDye, PingPong: true, Lazy: true},

		// Pre-advection snapshots restored under solid cells in hold mode.
		{ID: FieldDyeHold, Format: field.Vec3, Grid: field.GridDye, Lazy: true},
		{ID: FieldTemperatureHold, Format: field.Scalar, Grid: field.GridVelocity, Lazy: true},
	}
}
