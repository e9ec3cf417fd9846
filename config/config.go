// Package config loads the liquidhero configuration with viper.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	css "github.com/mazznoer/csscolorparser"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"liquidhero/liquid"
)

var ErrInvalid = errors.New("invalid config")

const EnvPrefix = "LIQUIDHERO"

type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Window     WindowConfig     `mapstructure:"window" yaml:"window"`
	Textures   TexturesConfig   `mapstructure:"textures" yaml:"textures"`
	Fallback   FallbackConfig   `mapstructure:"fallback" yaml:"fallback"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Display    DisplayConfig    `mapstructure:"display" yaml:"display"`
	Metaball   MetaballConfig   `mapstructure:"metaball" yaml:"metaball"`
	Dev        DevConfig        `mapstructure:"dev" yaml:"dev"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// file output, rotated by lumberjack
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type WindowConfig struct {
	Width     int    `mapstructure:"width" yaml:"width"`
	Height    int    `mapstructure:"height" yaml:"height"`
	Title     string `mapstructure:"title" yaml:"title"`
	Resizable bool   `mapstructure:"resizable" yaml:"resizable"`
	Vsync     bool   `mapstructure:"vsync" yaml:"vsync"`
	TPS       int    `mapstructure:"tps" yaml:"tps"`
}

type TexturesConfig struct {
	First    string        `mapstructure:"first" yaml:"first"`
	Second   string        `mapstructure:"second" yaml:"second"`
	MaxSize  int           `mapstructure:"max_size" yaml:"max_size"`
	MaxBytes int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type FallbackConfig struct {
	Color string `mapstructure:"color" yaml:"color"`
	Image string `mapstructure:"image" yaml:"image"`
}

type SimulationConfig struct {
	Mode            string        `mapstructure:"mode" yaml:"mode"`
	FieldSize       int           `mapstructure:"field_size" yaml:"field_size"`
	Decay           float64       `mapstructure:"decay" yaml:"decay"`
	Blur            float64       `mapstructure:"blur" yaml:"blur"`
	BrushRadius     float64       `mapstructure:"brush_radius" yaml:"brush_radius"`
	BrushStrength   float64       `mapstructure:"brush_strength" yaml:"brush_strength"`
	FalloffExponent float64       `mapstructure:"falloff_exponent" yaml:"falloff_exponent"`
	Quiescence      time.Duration `mapstructure:"quiescence" yaml:"quiescence"`
}

type DisplayConfig struct {
	RevealLow          float64 `mapstructure:"reveal_low" yaml:"reveal_low"`
	RevealHigh         float64 `mapstructure:"reveal_high" yaml:"reveal_high"`
	MixLow             float64 `mapstructure:"mix_low" yaml:"mix_low"`
	MixHigh            float64 `mapstructure:"mix_high" yaml:"mix_high"`
	NoiseScale         float64 `mapstructure:"noise_scale" yaml:"noise_scale"`
	NoiseAmount        float64 `mapstructure:"noise_amount" yaml:"noise_amount"`
	DistortionStrength float64 `mapstructure:"distortion_strength" yaml:"distortion_strength"`
	FlowFrequency      float64 `mapstructure:"flow_frequency" yaml:"flow_frequency"`
	MaxPixelRatio      float64 `mapstructure:"max_pixel_ratio" yaml:"max_pixel_ratio"`
}

type MetaballConfig struct {
	Count         int     `mapstructure:"count" yaml:"count"`
	Stiffness     float64 `mapstructure:"stiffness" yaml:"stiffness"`
	StiffnessStep float64 `mapstructure:"stiffness_step" yaml:"stiffness_step"`
	Damping       float64 `mapstructure:"damping" yaml:"damping"`
	DampingStep   float64 `mapstructure:"damping_step" yaml:"damping_step"`
	Radius        float64 `mapstructure:"radius" yaml:"radius"`
	RadiusStep    float64 `mapstructure:"radius_step" yaml:"radius_step"`
	MaskLow       float64 `mapstructure:"mask_low" yaml:"mask_low"`
	MaskHigh      float64 `mapstructure:"mask_high" yaml:"mask_high"`
	Aberration    float64 `mapstructure:"aberration" yaml:"aberration"`
	Glow          float64 `mapstructure:"glow" yaml:"glow"`
}

type DevConfig struct {
	HotReload  bool   `mapstructure:"hot_reload" yaml:"hot_reload"`
	ShaderDir  string `mapstructure:"shader_dir" yaml:"shader_dir"`
	PProf      bool   `mapstructure:"pprof" yaml:"pprof"`
	PProfAddr  string `mapstructure:"pprof_addr" yaml:"pprof_addr"`
	ShowDebug  bool   `mapstructure:"show_debug" yaml:"show_debug"`
	Screenshot string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// SetDefaults registers every default on v.
// Simulation and display defaults come from liquid.DefaultParams.
func SetDefaults(v *viper.Viper) {
	p := liquid.DefaultParams()

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "liquidhero")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", false)

	v.SetDefault("window.width", 960)
	v.SetDefault("window.height", 600)
	v.SetDefault("window.title", "liquidhero")
	v.SetDefault("window.resizable", true)
	v.SetDefault("window.vsync", true)
	v.SetDefault("window.tps", 60)

	v.SetDefault("textures.first", "assets/casual.png")
	v.SetDefault("textures.second", "assets/racing.png")
	v.SetDefault("textures.max_size", 2048)
	v.SetDefault("textures.max_bytes", 32<<20)
	v.SetDefault("textures.timeout", 15*time.Second)

	v.SetDefault("fallback.color", "#111111")
	v.SetDefault("fallback.image", "")

	v.SetDefault("simulation.mode", string(p.Mode))
	v.SetDefault("simulation.field_size", p.FieldSize)
	v.SetDefault("simulation.decay", p.Decay)
	v.SetDefault("simulation.blur", p.Blur)
	v.SetDefault("simulation.brush_radius", p.BrushRadius)
	v.SetDefault("simulation.brush_strength", p.BrushStrength)
	v.SetDefault("simulation.falloff_exponent", p.FalloffExponent)
	v.SetDefault("simulation.quiescence", p.Quiescence)

	v.SetDefault("display.reveal_low", p.RevealLow)
	v.SetDefault("display.reveal_high", p.RevealHigh)
	v.SetDefault("display.mix_low", p.MixLow)
	v.SetDefault("display.mix_high", p.MixHigh)
	v.SetDefault("display.noise_scale", p.NoiseScale)
	v.SetDefault("display.noise_amount", p.NoiseAmount)
	v.SetDefault("display.distortion_strength", p.DistortionStrength)
	v.SetDefault("display.flow_frequency", p.FlowFrequency)
	v.SetDefault("display.max_pixel_ratio", p.MaxPixelRatio)

	v.SetDefault("metaball.count", p.Metaball.Count)
	v.SetDefault("metaball.stiffness", p.Metaball.Stiffness)
	v.SetDefault("metaball.stiffness_step", p.Metaball.StiffnessStep)
	v.SetDefault("metaball.damping", p.Metaball.Damping)
	v.SetDefault("metaball.damping_step", p.Metaball.DampingStep)
	v.SetDefault("metaball.radius", p.Metaball.Radius)
	v.SetDefault("metaball.radius_step", p.Metaball.RadiusStep)
	v.SetDefault("metaball.mask_low", p.Metaball.MaskLow)
	v.SetDefault("metaball.mask_high", p.Metaball.MaskHigh)
	v.SetDefault("metaball.aberration", p.Metaball.Aberration)
	v.SetDefault("metaball.glow", p.Metaball.Glow)

	v.SetDefault("dev.hot_reload", false)
	v.SetDefault("dev.shader_dir", "gpu/shaders")
	v.SetDefault("dev.pprof", false)
	v.SetDefault("dev.pprof_addr", "localhost:6060")
	v.SetDefault("dev.show_debug", false)
	v.SetDefault("dev.screenshot_dir", ".")
}

// NewDefaultConfig returns the config built from defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg := &Config{}
	// defaults always decode
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads path (or ./liquidhero.yaml when path is empty) plus
// LIQUIDHERO_* environment variables on top of the defaults.
// A missing default config file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("liquidhero")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Params maps the simulation, display and metaball sections.
func (c *Config) Params() liquid.Params {
	return liquid.Params{
		Mode:      liquid.Mode(c.Simulation.Mode),
		FieldSize: c.Simulation.FieldSize,

		Decay:           c.Simulation.Decay,
		Blur:            c.Simulation.Blur,
		BrushRadius:     c.Simulation.BrushRadius,
		BrushStrength:   c.Simulation.BrushStrength,
		FalloffExponent: c.Simulation.FalloffExponent,
		Quiescence:      c.Simulation.Quiescence,

		RevealLow:  c.Display.RevealLow,
		RevealHigh: c.Display.RevealHigh,
		MixLow:     c.Display.MixLow,
		MixHigh:    c.Display.MixHigh,

		NoiseScale:         c.Display.NoiseScale,
		NoiseAmount:        c.Display.NoiseAmount,
		DistortionStrength: c.Display.DistortionStrength,
		FlowFrequency:      c.Display.FlowFrequency,

		MaxPixelRatio: c.Display.MaxPixelRatio,

		Metaball: liquid.MetaballParams{
			Count:         c.Metaball.Count,
			Stiffness:     c.Metaball.Stiffness,
			StiffnessStep: c.Metaball.StiffnessStep,
			Damping:       c.Metaball.Damping,
			DampingStep:   c.Metaball.DampingStep,
			Radius:        c.Metaball.Radius,
			RadiusStep:    c.Metaball.RadiusStep,
			MaskLow:       c.Metaball.MaskLow,
			MaskHigh:      c.Metaball.MaskHigh,
			Aberration:    c.Metaball.Aberration,
			Glow:          c.Metaball.Glow,
		},
	}
}

// ParamsYAML dumps the simulation, display and metaball sections in the
// same layout as the config file, ready to be pasted into one.
func (c *Config) ParamsYAML() ([]byte, error) {
	doc := struct {
		Simulation SimulationConfig `yaml:"simulation"`
		Display    DisplayConfig    `yaml:"display"`
		Metaball   MetaballConfig   `yaml:"metaball"`
	}{
		Simulation: c.Simulation,
		Display:    c.Display,
		Metaball:   c.Metaball,
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return out, nil
}

// FallbackColor parses fallback.color as a css color.
func (c *Config) FallbackColor() (color.NRGBA, error) {
	parsed, err := css.Parse(c.Fallback.Color)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: fallback.color: %v", ErrInvalid, err)
	}

	q := func(v float64) uint8 {
		return uint8(math.Round(255 * liquid.Clamp(v, 0, 1)))
	}
	return color.NRGBA{R: q(parsed.R), G: q(parsed.G), B: q(parsed.B), A: q(parsed.A)}, nil
}

func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Window.TPS <= 0 {
		return fmt.Errorf("%w: window.tps must be a positive integer", ErrInvalid)
	}
	if c.Textures.First == "" || c.Textures.Second == "" {
		return fmt.Errorf("%w: textures.first and textures.second are required", ErrInvalid)
	}
	if c.Textures.MaxSize < 0 {
		return fmt.Errorf("%w: textures.max_size is negative", ErrInvalid)
	}
	if _, err := c.FallbackColor(); err != nil {
		return err
	}

	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logger.format must be console or json, got %q", ErrInvalid, c.Logger.Format)
	}

	return nil
}
