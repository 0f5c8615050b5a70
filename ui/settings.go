package ui

import "github.com/pthm-cable/plume/config"

// Settings is the subset of the config the controls panel edits.
type Settings struct {
	Vorticity          float32
	PressureIterations float32
	Multigrid          bool
	MacCormackVelocity bool
	MacCormackDye      bool
	Buoyancy           bool
	Viscosity          bool
	Turbulence         bool
}

// SettingsFrom reads the editable values from cfg.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Vorticity:          float32(cfg.Vorticity.Strength),
		PressureIterations: float32(cfg.Pressure.Iterations),
		Multigrid:          cfg.Multigrid.Enabled,
		MacCormackVelocity: cfg.Advection.MacCormackVelocity,
		MacCormackDye:      cfg.Advection.MacCormackDye,
		Buoyancy:           cfg.Buoyancy.Enabled,
		Viscosity:          cfg.Viscosity.Enabled,
		Turbulence:         cfg.Turbulence.Enabled,
	}
}

// Apply writes s into cfg. Iterations round to the nearest integer.
func (s Settings) Apply(cfg *config.Config) {
	cfg.Vorticity.Strength = float64(s.Vorticity)
	cfg.Vorticity.Enabled = s.Vorticity > 0
	cfg.Pressure.Iterations = int(s.PressureIterations + 0.5)
	cfg.Multigrid.Enabled = s.Multigrid
	cfg.Advection.MacCormackVelocity = s.MacCormackVelocity
	cfg.Advection.MacCormackDye = s.MacCormackDye
	cfg.Buoyancy.Enabled = s.Buoyancy
	cfg.Viscosity.Enabled = s.Viscosity
	cfg.Turbulence.Enabled = s.Turbulence
}
