package liquid

import (
	"image"
	"image/color"
	"math"
)

// CoverScale returns the per axis uv scale that fits an image with
// imageAspect over a container with containerAspect without letterboxing.
// The shorter container axis maps 1:1 and the longer one gets cropped.
func CoverScale(containerAspect, imageAspect float64) FPoint {
	scale := FPt(1, 1)
	if containerAspect > imageAspect {
		scale.Y = imageAspect / containerAspect
	} else if containerAspect < imageAspect {
		scale.X = containerAspect / imageAspect
	}
	return scale
}

// CoverUV maps screen uv into image uv using scale from CoverScale.
// An axis with scale 1 is passed through untouched.
func CoverUV(uv, scale FPoint) FPoint {
	if scale.X != 1 {
		uv.X = (uv.X-0.5)*scale.X + 0.5
	}
	if scale.Y != 1 {
		uv.Y = (uv.Y-0.5)*scale.Y + 0.5
	}
	return uv
}

// SampleNRGBA returns the bilinearly filtered, straight alpha color at uv
// with channels in [0, 1]. uv has y pointing up. Edges are clamped.
func SampleNRGBA(img *image.NRGBA, uv FPoint) [4]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	fx := uv.X*f64(w) - 0.5
	fy := (1-uv.Y)*f64(h) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))

	tx := fx - f64(x0)
	ty := fy - f64(y0)

	at := func(x, y int) [4]float64 {
		x = Clamp(x, 0, w-1) + b.Min.X
		y = Clamp(y, 0, h-1) + b.Min.Y
		i := img.PixOffset(x, y)
		return [4]float64{
			f64(img.Pix[i+0]) / 255,
			f64(img.Pix[i+1]) / 255,
			f64(img.Pix[i+2]) / 255,
			f64(img.Pix[i+3]) / 255,
		}
	}

	c00 := at(x0, y0)
	c10 := at(x0+1, y0)
	c01 := at(x0, y0+1)
	c11 := at(x0+1, y0+1)

	var out [4]float64
	for i := range out {
		out[i] = Lerp(Lerp(c00[i], c10[i], tx), Lerp(c01[i], c11[i], tx), ty)
	}
	return out
}

// DisplayInput is what the display pass reads.
type DisplayInput struct {
	Field  *Field
	First  Texture
	Second Texture

	// Aspect is the display width over height.
	Aspect float64
}

// Reveal returns the smoothed field intensity at uv and the final
// blend factor between the two textures, plus the noise used for both.
func Reveal(field *Field, uv, noisePos FPoint, p Params) (intensity, mix, noise float64) {
	intensity = Smoothstep(p.RevealLow, p.RevealHigh, field.Sample(uv))

	noise = FBM(noisePos.Scale(p.NoiseScale).Add(FPt(intensity*1.5, intensity*1.5)))

	// noise is weighted by the intensity so an empty field never reveals
	mix = Smoothstep(p.MixLow, p.MixHigh, intensity+(noise-0.5)*p.NoiseAmount*intensity)

	return intensity, mix, noise
}

// Shade computes one output pixel. uv is screen space with y up.
// The returned color has straight alpha.
func Shade(uv FPoint, in DisplayInput, p Params) [4]float64 {
	uvA := CoverUV(uv, CoverScale(in.Aspect, in.First.Aspect))
	uvB := CoverUV(uv, CoverScale(in.Aspect, in.Second.Aspect))

	intensity, mix, n := Reveal(in.Field, uv, uvA, p)

	if intensity > 0 {
		strength := p.DistortionStrength * intensity
		phase := n*4 + intensity*4
		flow := FPt(
			math.Sin(uvA.Y*p.FlowFrequency+phase),
			math.Cos(uvA.X*p.FlowFrequency+phase),
		).Scale(strength)

		uvA = uvA.Add(flow)
		uvB = uvB.Add(flow)
	}

	aberration, glow := p.RevealEffects()

	a := SampleNRGBA(in.First.Image, uvA)
	b := SampleNRGBA(in.Second.Image, uvB)
	if aberration > 0 {
		shift := FPt(aberration, 0)
		b[0] = SampleNRGBA(in.Second.Image, uvB.Add(shift))[0]
		b[2] = SampleNRGBA(in.Second.Image, uvB.Sub(shift))[2]
	}

	var out [4]float64
	for i := range out {
		out[i] = Lerp(a[i], b[i], mix)
	}

	if glow > 0 {
		edge := EdgeGlow(mix, glow)
		for i := range 3 {
			out[i] += edge
		}
	}

	if !inUnit(uvA) || !inUnit(uvB) {
		out[3] = 0
	}

	return out
}

// EdgeGlow is the light added where the reveal is half way, mix 0.5.
func EdgeGlow(mix, glow float64) float64 {
	return math.Pow(1-math.Abs(mix*2-1), 8) * glow
}

func inUnit(uv FPoint) bool {
	return uv.X >= 0 && uv.X <= 1 && uv.Y >= 0 && uv.Y <= 1
}

// ToNRGBA quantizes a straight alpha color from Shade.
func ToNRGBA(c [4]float64) color.NRGBA {
	q := func(v float64) uint8 {
		return uint8(Clamp(math.Round(v*255), 0, 255))
	}
	return color.NRGBA{q(c[0]), q(c[1]), q(c[2]), q(c[3])}
}

// PixelUV returns the screen uv of the center of pixel (x, y)
// in a w by h image whose row 0 is the top.
func PixelUV(x, y, w, h int) FPoint {
	return FPt(
		(f64(x)+0.5)/f64(w),
		1-(f64(y)+0.5)/f64(h),
	)
}

// Compose renders the whole frame into dst.
func Compose(dst *image.NRGBA, in DisplayInput, p Params) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()

	if in.Aspect <= 0 {
		in.Aspect = f64(w) / f64(h)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := ToNRGBA(Shade(PixelUV(x, y, w, h), in, p))
			dst.SetNRGBA(b.Min.X+x, b.Min.Y+y, c)
		}
	}
}
