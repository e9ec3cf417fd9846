package liquid

import (
	"math"
)

// The functions below are mirrored in the display shader.
// Keep both in sync.

func hash(p FPoint) float64 {
	return Fract(math.Sin(p.X*12.9898+p.Y*78.233) * 43758.5453)
}

// ValueNoise is smooth value noise in [0, 1).
func ValueNoise(p FPoint) float64 {
	i := FPt(math.Floor(p.X), math.Floor(p.Y))
	f := FPt(p.X-i.X, p.Y-i.Y)

	// hermite curve
	f = FPt(f.X*f.X*(3-2*f.X), f.Y*f.Y*(3-2*f.Y))

	a := hash(i)
	b := hash(i.Add(FPt(1, 0)))
	c := hash(i.Add(FPt(0, 1)))
	d := hash(i.Add(FPt(1, 1)))

	return Lerp(Lerp(a, b, f.X), Lerp(c, d, f.X), f.Y)
}

// FBM sums three octaves of ValueNoise. Result is in [0, 0.875).
func FBM(p FPoint) float64 {
	v := 0.0
	v += 0.5 * ValueNoise(p)
	p = p.Scale(2)
	v += 0.25 * ValueNoise(p)
	p = p.Scale(2)
	v += 0.125 * ValueNoise(p)
	return v
}
