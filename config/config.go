// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all solver configuration parameters.
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Time        TimeConfig        `yaml:"time"`
	Substeps    SubstepsConfig    `yaml:"substeps"`
	Device      DeviceConfig      `yaml:"device"`
	Advection   AdvectionConfig   `yaml:"advection"`
	Pressure    PressureConfig    `yaml:"pressure"`
	Multigrid   MultigridConfig   `yaml:"multigrid"`
	Vorticity   VorticityConfig   `yaml:"vorticity"`
	Viscosity   ViscosityConfig   `yaml:"viscosity"`
	Buoyancy    BuoyancyConfig    `yaml:"buoyancy"`
	Gravity     GravityConfig     `yaml:"gravity"`
	Turbulence  TurbulenceConfig  `yaml:"turbulence"`
	Temperature TemperatureConfig `yaml:"temperature"`
	Fuel        FuelConfig        `yaml:"fuel"`
	Combustion  CombustionConfig  `yaml:"combustion"`
	FireDye     FireDyeConfig     `yaml:"fire_dye"`
	Multiphase  MultiphaseConfig  `yaml:"multiphase"`
	Obstacles   ObstaclesConfig   `yaml:"obstacles"`
	Boundary    BoundaryConfig    `yaml:"boundary"`
	Splats      SplatsConfig      `yaml:"splats"`
	Perf        PerfConfig        `yaml:"perf"`
	Scene       SceneConfig       `yaml:"scene"`
	Stream      StreamConfig      `yaml:"stream"`
	Screen      ScreenConfig      `yaml:"screen"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds simulation grid dimensions.
// The dye grid may be finer than the velocity grid.
type GridConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	DyeWidth  int `yaml:"dye_width"`  // 0 = same as width
	DyeHeight int `yaml:"dye_height"` // 0 = same as height
}

// TimeConfig bounds the elapsed time a single frame may simulate.
type TimeConfig struct {
	MaxDT float64 `yaml:"max_dt"` // Clamp for a single unsubstepped frame
}

// SubstepsConfig controls splitting a frame into several stable steps.
type SubstepsConfig struct {
	Enabled bool    `yaml:"enabled"`
	DTMax   float64 `yaml:"dt_max"` // Largest dt one substep may take
	Max     int     `yaml:"max"`    // Upper bound on substeps per frame
}

// DeviceConfig holds compute device parameters.
type DeviceConfig struct {
	Workers           int `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int `yaml:"parallel_threshold"` // Rows below this run inline
}

// AdvectionConfig holds transport parameters.
type AdvectionConfig struct {
	VelocityDissipation float64 `yaml:"velocity_dissipation"` // Per second
	DyeDissipation      float64 `yaml:"dye_dissipation"`      // Per second
	MacCormackVelocity  bool    `yaml:"maccormack_velocity"`
	MacCormackDye       bool    `yaml:"maccormack_dye"`
}

// PressureConfig holds projection solver parameters.
type PressureConfig struct {
	Iterations    int     `yaml:"iterations"`
	Solver        string  `yaml:"solver"`     // "jacobi" or "sor"
	SORFactor     float64 `yaml:"sor_factor"` // Over-relaxation weight for "sor"
	Decay         float64 `yaml:"decay"`      // Warm-start multiplier applied before solving
	Adaptive      bool    `yaml:"adaptive"`
	ReferenceDT   float64 `yaml:"reference_dt"`
	MinIterations int     `yaml:"min_iterations"`
	MaxIterations int     `yaml:"max_iterations"`
	SolidWalls    bool    `yaml:"solid_walls"`
}

// MultigridConfig holds the two-level V-cycle parameters.
type MultigridConfig struct {
	Enabled          bool `yaml:"enabled"`
	PreSmooth        int  `yaml:"pre_smooth"`
	CoarseIterations int  `yaml:"coarse_iterations"`
	PostSmooth       int  `yaml:"post_smooth"`
}

// VorticityConfig holds confinement parameters.
type VorticityConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Strength      float64 `yaml:"strength"`
	LargeScale    bool    `yaml:"large_scale"`
	LargeScaleMix float64 `yaml:"large_scale_mix"`
	EdgeAware     bool    `yaml:"edge_aware"`
}

// ViscosityConfig holds explicit diffusion parameters.
type ViscosityConfig struct {
	Enabled bool    `yaml:"enabled"`
	Amount  float64 `yaml:"amount"` // Sweeps = round(amount*6)
}

// BuoyancyConfig holds buoyancy parameters.
type BuoyancyConfig struct {
	Enabled        bool       `yaml:"enabled"`
	Strength       float64    `yaml:"strength"`
	Ambient        float64    `yaml:"ambient"`
	Weights        [3]float64 `yaml:"weights"` // Per-channel dye density weights
	UseTemperature bool       `yaml:"use_temperature"`
}

// GravityConfig holds a constant body force.
type GravityConfig struct {
	Enabled bool    `yaml:"enabled"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
}

// TurbulenceConfig holds curl-noise parameters.
type TurbulenceConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Strength float64 `yaml:"strength"`
	Scale    float64 `yaml:"scale"` // Base spatial frequency across the domain
	Speed    float64 `yaml:"speed"` // Animation rate
	Octaves  int     `yaml:"octaves"`
}

// TemperatureConfig holds temperature transport parameters.
type TemperatureConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Dissipation float64 `yaml:"dissipation"`
	Cooling     float64 `yaml:"cooling"` // Relaxation rate toward ambient
	Ambient     float64 `yaml:"ambient"`
}

// FuelConfig holds fuel transport parameters.
type FuelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Dissipation float64 `yaml:"dissipation"`
}

// CombustionConfig holds reaction parameters.
type CombustionConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Ignition    float64 `yaml:"ignition"`     // Temperature threshold
	BurnRate    float64 `yaml:"burn_rate"`    // Fuel consumed per second
	HeatRelease float64 `yaml:"heat_release"` // Temperature gained per unit fuel
}

// FireDyeConfig holds temperature-to-colour injection parameters.
type FireDyeConfig struct {
	Enabled   bool       `yaml:"enabled"`
	Intensity float64    `yaml:"intensity"`
	Threshold float64    `yaml:"threshold"`
	Color     [3]float64 `yaml:"color"`
}

// MultiphaseConfig holds per-channel dye dissipation.
type MultiphaseConfig struct {
	Enabled     bool       `yaml:"enabled"`
	Dissipation [3]float64 `yaml:"dissipation"`
}

// ObstaclesConfig holds solid mask parameters.
type ObstaclesConfig struct {
	Enabled bool   `yaml:"enabled"`
	DyeMode string `yaml:"dye_mode"` // "hold" or "clear"
}

// BoundaryConfig holds domain edge behaviour.
type BoundaryConfig struct {
	Mode       string `yaml:"mode"`        // "free_slip", "no_slip" or "open"
	DyeOutflow bool   `yaml:"dye_outflow"` // Clear dye at the edges
}

// SplatsConfig holds injection and queue parameters.
type SplatsConfig struct {
	MaxPerFrame    int     `yaml:"max_per_frame"` // 0 = unlimited
	Symmetry       string  `yaml:"symmetry"`      // "none", "x", "y", "xy"
	Strategy       string  `yaml:"strategy"`      // "tiled", "batch", "auto"
	BatchThreshold int     `yaml:"batch_threshold"`
	TileSize       int     `yaml:"tile_size"`
	Epsilon        float64 `yaml:"epsilon"` // Weight below which a splat is ignored
	Radius         float64 `yaml:"radius"`  // Default radius for generated splats
	Force          float64 `yaml:"force"`   // Default force scale for generated splats
}

// PerfConfig holds timing parameters.
type PerfConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Window   int     `yaml:"window"`
	EMAAlpha float64 `yaml:"ema_alpha"`
}

// SceneConfig lists scripted emitters.
type SceneConfig struct {
	Emitters []EmitterConfig `yaml:"emitters"`
}

// EmitterConfig defines one emitter entity.
type EmitterConfig struct {
	X           float64    `yaml:"x"`
	Y           float64    `yaml:"y"`
	Orbit       float64    `yaml:"orbit"` // Orbit radius (0 = fixed)
	OrbitSpeed  float64    `yaml:"orbit_speed"`
	DirX        float64    `yaml:"dir_x"`
	DirY        float64    `yaml:"dir_y"`
	Force       float64    `yaml:"force"`
	Radius      float64    `yaml:"radius"`
	Rate        float64    `yaml:"rate"` // Splats per second
	Color       [3]float64 `yaml:"color"`
	Temperature float64    `yaml:"temperature"`
	Fuel        float64    `yaml:"fuel"`
}

// StreamConfig holds websocket preview parameters.
type StreamConfig struct {
	Addr       string  `yaml:"addr"`
	Interval   float64 `yaml:"interval"`   // Seconds between frames
	Downsample int     `yaml:"downsample"` // Integer reduction of the dye grid
}

// ScreenConfig holds windowed viewer parameters.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DyeWidth    int
	DyeHeight   int
	ReferenceDT float32
	SubstepMax  float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		// The embedded file is part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return *cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// Merge applies a partial YAML (or JSON) document over a copy of base.
// Fields absent from patch keep their values from base.
func Merge(base Config, patch []byte) (Config, error) {
	out := base
	// Slices are shared by the shallow copy; detach them before yaml reuses them.
	out.Scene.Emitters = append([]EmitterConfig(nil), base.Scene.Emitters...)
	if err := yaml.Unmarshal(patch, &out); err != nil {
		return base, fmt.Errorf("parsing config patch: %w", err)
	}
	out.computeDerived()
	return out, nil
}

// Refresh recomputes derived values after in-place edits.
func (c *Config) Refresh() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Grid.Width < 1 {
		c.Grid.Width = 1
	}
	if c.Grid.Height < 1 {
		c.Grid.Height = 1
	}

	// Dye grid defaults to the velocity grid
	c.Derived.DyeWidth = c.Grid.DyeWidth
	if c.Derived.DyeWidth <= 0 {
		c.Derived.DyeWidth = c.Grid.Width
	}
	c.Derived.DyeHeight = c.Grid.DyeHeight
	if c.Derived.DyeHeight <= 0 {
		c.Derived.DyeHeight = c.Grid.Height
	}

	c.Derived.ReferenceDT = float32(c.Pressure.ReferenceDT)
	if c.Derived.ReferenceDT <= 0 {
		c.Derived.ReferenceDT = 1.0 / 60.0
	}
	c.Derived.SubstepMax = float32(c.Substeps.DTMax)
	if c.Derived.SubstepMax <= 0 {
		c.Derived.SubstepMax = 1.0 / 60.0
	}
}

// Sanitized returns a copy with iteration counts and rates clamped to safe ranges.
// Configuration is trusted input; out-of-range values are clamped, never rejected.
func (c Config) Sanitized() Config {
	c.Pressure.Iterations = max(c.Pressure.Iterations, 1)
	c.Pressure.MinIterations = max(c.Pressure.MinIterations, 1)
	c.Pressure.MaxIterations = max(c.Pressure.MaxIterations, c.Pressure.MinIterations)
	c.Pressure.SORFactor = clampF(c.Pressure.SORFactor, 0.05, 1.95)
	c.Pressure.Decay = clampF(c.Pressure.Decay, 0, 1)
	c.Multigrid.PreSmooth = max(c.Multigrid.PreSmooth, 0)
	c.Multigrid.PostSmooth = max(c.Multigrid.PostSmooth, 0)
	c.Multigrid.CoarseIterations = max(c.Multigrid.CoarseIterations, 1)
	c.Substeps.Max = max(c.Substeps.Max, 1)
	c.Turbulence.Octaves = min(max(c.Turbulence.Octaves, 1), 8)
	c.Vorticity.LargeScaleMix = clampF(c.Vorticity.LargeScaleMix, 0, 1)
	c.Viscosity.Amount = max(c.Viscosity.Amount, 0)
	c.Advection.VelocityDissipation = max(c.Advection.VelocityDissipation, 0)
	c.Advection.DyeDissipation = max(c.Advection.DyeDissipation, 0)
	c.Temperature.Dissipation = max(c.Temperature.Dissipation, 0)
	c.Temperature.Cooling = max(c.Temperature.Cooling, 0)
	c.Fuel.Dissipation = max(c.Fuel.Dissipation, 0)
	for i := range c.Multiphase.Dissipation {
		c.Multiphase.Dissipation[i] = max(c.Multiphase.Dissipation[i], 0)
	}
	c.Splats.MaxPerFrame = max(c.Splats.MaxPerFrame, 0)
	c.Splats.TileSize = max(c.Splats.TileSize, 1)
	c.Splats.BatchThreshold = max(c.Splats.BatchThreshold, 1)
	if c.Splats.Epsilon <= 0 || math.IsNaN(c.Splats.Epsilon) {
		c.Splats.Epsilon = 1e-3
	}
	c.Perf.EMAAlpha = clampF(c.Perf.EMAAlpha, 0.001, 1)
	c.Stream.Downsample = max(c.Stream.Downsample, 1)
	c.Screen.Width = max(c.Screen.Width, 320)
	c.Screen.Height = max(c.Screen.Height, 240)
	c.computeDerived()
	return c
}

// SameResolution reports whether two configs describe the same grids.
func (c *Config) SameResolution(o *Config) bool {
	return c.Grid.Width == o.Grid.Width && c.Grid.Height == o.Grid.Height &&
		c.Derived.DyeWidth == o.Derived.DyeWidth && c.Derived.DyeHeight == o.Derived.DyeHeight
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func clampF(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
