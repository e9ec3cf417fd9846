package liquid

import (
	"errors"
	"fmt"
	"time"
)

type Mode string

const (
	// ModeTrail stamps pointer segments into a decaying, blurred field.
	ModeTrail Mode = "trail"
	// ModeMetaball writes the thresholded influence of a chain of
	// spring-followed blobs into the field.
	ModeMetaball Mode = "metaball"
)

var ErrInvalidParams = errors.New("invalid params")

// Params holds every constant the simulation and display passes use.
// The same values are fed to the Kage shaders as uniforms.
type Params struct {
	Mode Mode `yaml:"mode"`

	// FieldSize is the width and height of the trail field in cells.
	// It never follows the display size.
	FieldSize int `yaml:"field_size"`

	Decay           float64       `yaml:"decay"`
	Blur            float64       `yaml:"blur"`
	BrushRadius     float64       `yaml:"brush_radius"`
	BrushStrength   float64       `yaml:"brush_strength"`
	FalloffExponent float64       `yaml:"falloff_exponent"`
	Quiescence      time.Duration `yaml:"quiescence"`

	RevealLow  float64 `yaml:"reveal_low"`
	RevealHigh float64 `yaml:"reveal_high"`
	MixLow     float64 `yaml:"mix_low"`
	MixHigh    float64 `yaml:"mix_high"`

	NoiseScale         float64 `yaml:"noise_scale"`
	NoiseAmount        float64 `yaml:"noise_amount"`
	DistortionStrength float64 `yaml:"distortion_strength"`
	FlowFrequency      float64 `yaml:"flow_frequency"`

	MaxPixelRatio float64 `yaml:"max_pixel_ratio"`

	Metaball MetaballParams `yaml:"metaball"`
}

type MetaballParams struct {
	Count int `yaml:"count"`

	// i-th ball gets Stiffness - i*StiffnessStep and so on
	Stiffness     float64 `yaml:"stiffness"`
	StiffnessStep float64 `yaml:"stiffness_step"`
	Damping       float64 `yaml:"damping"`
	DampingStep   float64 `yaml:"damping_step"`

	// radii are in field uv units
	Radius     float64 `yaml:"radius"`
	RadiusStep float64 `yaml:"radius_step"`

	MaskLow  float64 `yaml:"mask_low"`
	MaskHigh float64 `yaml:"mask_high"`

	// Aberration shifts the red and blue channels of the second texture
	// apart by this much uv. Glow brightens the edge of the reveal.
	Aberration float64 `yaml:"aberration"`
	Glow       float64 `yaml:"glow"`
}

// MaxMetaballs is the size of the ball uniform array in the simulation shader.
const MaxMetaballs = 8

func DefaultParams() Params {
	return Params{
		Mode:      ModeTrail,
		FieldSize: 256,

		Decay:           0.98,
		Blur:            0.3,
		BrushRadius:     0.06,
		BrushStrength:   0.6,
		FalloffExponent: 2,
		Quiescence:      100 * time.Millisecond,

		RevealLow:  0.0,
		RevealHigh: 0.5,
		MixLow:     0.1,
		MixHigh:    0.8,

		NoiseScale:         2.0,
		NoiseAmount:        0.3,
		DistortionStrength: 0.15,
		FlowFrequency:      8.0,

		MaxPixelRatio: 2,

		Metaball: MetaballParams{
			Count:         5,
			Stiffness:     0.15,
			StiffnessStep: 0.02,
			Damping:       0.85,
			DampingStep:   0.02,
			Radius:        0.1,
			RadiusStep:    0.01,
			MaskLow:       0.8,
			MaskHigh:      1.2,
			Aberration:    0.002,
			Glow:          0.2,
		},
	}
}

// RevealEffects returns the aberration and glow the display pass applies.
// Both are zero outside of ModeMetaball.
func (p Params) RevealEffects() (aberration, glow float64) {
	if p.Mode != ModeMetaball {
		return 0, 0
	}
	return p.Metaball.Aberration, p.Metaball.Glow
}

func (p Params) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
	}

	switch p.Mode {
	case ModeTrail, ModeMetaball:
	default:
		return invalid("unknown mode %q", p.Mode)
	}

	if p.FieldSize < 8 {
		return invalid("field size %d is smaller than 8", p.FieldSize)
	}
	if !(p.Decay > 0 && p.Decay < 1) {
		return invalid("decay %v must be in (0, 1)", p.Decay)
	}
	if p.Blur < 0 || p.Blur > 1 {
		return invalid("blur %v must be in [0, 1]", p.Blur)
	}
	if p.BrushRadius <= 0 {
		return invalid("brush radius %v must be positive", p.BrushRadius)
	}
	if p.BrushStrength < 0 {
		return invalid("brush strength %v is negative", p.BrushStrength)
	}
	if p.FalloffExponent <= 0 {
		return invalid("falloff exponent %v must be positive", p.FalloffExponent)
	}
	if p.Quiescence <= 0 {
		return invalid("quiescence %v must be positive", p.Quiescence)
	}
	if p.RevealLow < 0 || p.RevealLow >= p.RevealHigh {
		return invalid("reveal thresholds %v..%v", p.RevealLow, p.RevealHigh)
	}
	if p.MixLow < 0 || p.MixLow >= p.MixHigh {
		return invalid("mix thresholds %v..%v", p.MixLow, p.MixHigh)
	}
	if p.MaxPixelRatio < 1 {
		return invalid("max pixel ratio %v is less than 1", p.MaxPixelRatio)
	}

	if p.Mode == ModeMetaball {
		mb := p.Metaball
		if mb.Count <= 0 || mb.Count > MaxMetaballs {
			return invalid("metaball count %d must be in [1, %d]", mb.Count, MaxMetaballs)
		}
		if mb.MaskLow >= mb.MaskHigh {
			return invalid("metaball mask %v..%v", mb.MaskLow, mb.MaskHigh)
		}
		last := f64(mb.Count - 1)
		if mb.Radius-last*mb.RadiusStep <= 0 {
			return invalid("metaball radius reaches zero")
		}
		if mb.Damping+last*mb.DampingStep >= 1 {
			return invalid("metaball damping reaches 1")
		}
		if mb.Aberration < 0 || mb.Glow < 0 {
			return invalid("metaball aberration %v and glow %v can't be negative", mb.Aberration, mb.Glow)
		}
	}

	return nil
}
