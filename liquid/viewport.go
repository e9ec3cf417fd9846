package liquid

import (
	"image"
	"math"
)

// Viewport is the size of the drawing surface in layout pixels
// plus the device pixel ratio of the screen it is on.
type Viewport struct {
	Width, Height int
	PixelRatio    float64
}

// RenderSize returns the size of the drawing buffer.
// The pixel ratio is capped at maxRatio.
func (v Viewport) RenderSize(maxRatio float64) (int, int) {
	ratio := v.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	if maxRatio > 0 {
		ratio = min(ratio, maxRatio)
	}

	w := int(math.Ceil(f64(v.Width) * ratio))
	h := int(math.Ceil(f64(v.Height) * ratio))

	return max(w, 1), max(h, 1)
}

func (v Viewport) Aspect() float64 {
	if v.Height <= 0 {
		return 1
	}
	return f64(v.Width) / f64(v.Height)
}

func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

// Texture is a source image for the display pass.
type Texture struct {
	Image  *image.NRGBA
	Aspect float64
	Source string
}

func NewTexture(img *image.NRGBA, source string) Texture {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	aspect := 1.0
	if h > 0 {
		aspect = f64(w) / f64(h)
	}
	return Texture{
		Image:  img,
		Aspect: aspect,
		Source: source,
	}
}
