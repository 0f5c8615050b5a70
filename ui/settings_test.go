package ui

import (
	"testing"

	"github.com/pthm-cable/plume/config"
)

func TestSettingsRoundTrip(t *testing.T) {
	cfg := config.Default()
	s := SettingsFrom(&cfg)

	s.Vorticity = 12.5
	s.PressureIterations = 31.6
	s.Multigrid = !s.Multigrid
	s.Apply(&cfg)

	if cfg.Vorticity.Strength != 12.5 || !cfg.Vorticity.Enabled {
		t.Errorf("vorticity not applied: %+v", cfg.Vorticity)
	}
	if cfg.Pressure.Iterations != 32 {
		t.Errorf("expected iterations rounded to 32, got %d", cfg.Pressure.Iterations)
	}
	if got := SettingsFrom(&cfg); got.Multigrid != s.Multigrid {
		t.Error("multigrid toggle lost")
	}
}

func TestSettingsZeroVorticityDisables(t *testing.T) {
	cfg := config.Default()
	s := SettingsFrom(&cfg)
	s.Vorticity = 0
	s.Apply(&cfg)

	if cfg.Vorticity.Enabled {
		t.Error("zero strength should disable confinement")
	}
}
