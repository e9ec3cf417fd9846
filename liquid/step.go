package liquid

import (
	"fmt"
	"math"
)

// StepInput is everything besides the field and Params that a
// simulation step reads. It is a snapshot taken once per frame.
type StepInput struct {
	Pointer PointerState

	// Aspect is the display width over height.
	// Distances are measured with x scaled by it so brushes stay round on screen.
	Aspect float64

	// Balls is only read in ModeMetaball.
	Balls []Metaball
}

// Stamp returns the intensity the brush adds at distance d from the stroke.
func Stamp(d float64, p Params) float64 {
	if d >= p.BrushRadius {
		return 0
	}
	fall := 1 - Smoothstep(0, p.BrushRadius, d)
	return math.Pow(fall, p.FalloffExponent) * p.BrushStrength
}

func aspectScale(pt FPoint, aspect float64) FPoint {
	if aspect <= 0 {
		return pt
	}
	return FPt(pt.X*aspect, pt.Y)
}

// Step advances the field by one frame, reading src and writing dst.
//
//  1. blur with the four axis neighbors
//  2. decay
//  3. stamp the pointer segment (or the metaball mask)
//  4. clamp to [0, 1] and round down to 16 bits, like the render targets
//
// src and dst must be different fields of the same size.
func Step(src, dst *Field, in StepInput, p Params) {
	if src == dst {
		panic("liquid: Step reads and writes the same field")
	}
	if src.W != dst.W || src.H != dst.H {
		panic(fmt.Sprintf("liquid: field size mismatch %dx%d != %dx%d", src.W, src.H, dst.W, dst.H))
	}

	ptr := in.Pointer
	segA := aspectScale(ptr.Prev, in.Aspect)
	segB := aspectScale(ptr.Pos, in.Aspect)

	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			v := f64(src.At(x, y))

			if p.Blur > 0 {
				avg := (f64(src.At(x-1, y)) +
					f64(src.At(x+1, y)) +
					f64(src.At(x, y-1)) +
					f64(src.At(x, y+1))) * 0.25
				v = Lerp(v, avg, p.Blur)
			}

			v *= p.Decay

			uv := src.CellCenter(x, y)

			switch p.Mode {
			case ModeMetaball:
				v = max(v, MetaballMask(uv, in.Balls, in.Aspect, p.Metaball))
			default:
				if ptr.Moving {
					d := SegmentDistance(aspectScale(uv, in.Aspect), segA, segB)
					v += Stamp(d, p)
				}
			}

			dst.Set(x, y, f32(Quantize(v)))
		}
	}
}
