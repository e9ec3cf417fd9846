package liquid

import (
	"fmt"
	"image"
	"math"
)

// Field values live in RGBA8 render targets as 16 bit fixed point,
// high byte in R and low byte in G. Packing rounds down so that a
// decaying value always reaches zero instead of getting stuck.
// The simulation shader does the same.

const packScale = 65535

// Quantize rounds v down onto the grid PackValue stores, so the cpu
// field holds exactly what the render targets can.
func Quantize(v float64) float64 {
	return math.Floor(Clamp(v, 0, 1)*packScale) / packScale
}

func PackValue(v float64) (hi, lo uint8) {
	q := uint16(math.Floor(Clamp(v, 0, 1) * packScale))
	return uint8(q >> 8), uint8(q)
}

func UnpackValue(hi, lo uint8) float64 {
	return f64(uint16(hi)<<8|uint16(lo)) / packScale
}

// UnpackField decodes RGBA pixels read back from a field render target.
// Image row 0 is the top, so rows are flipped into field order.
func UnpackField(pix []byte, w, h int) (*Field, error) {
	if len(pix) != w*h*4 {
		return nil, fmt.Errorf("liquid: got %d bytes for a %dx%d field", len(pix), w, h)
	}

	f := NewField(w, h)
	for row := 0; row < h; row++ {
		y := h - 1 - row
		for x := 0; x < w; x++ {
			i := (row*w + x) * 4
			f.Set(x, y, f32(UnpackValue(pix[i], pix[i+1])))
		}
	}
	return f, nil
}

// PackField is the inverse of UnpackField.
func PackField(f *Field) []byte {
	pix := make([]byte, f.W*f.H*4)
	for row := 0; row < f.H; row++ {
		y := f.H - 1 - row
		for x := 0; x < f.W; x++ {
			i := (row*f.W + x) * 4
			pix[i], pix[i+1] = PackValue(f64(f.At(x, y)))
			pix[i+3] = 0xff
		}
	}
	return pix
}

// FieldGray16 renders f as a 16 bit grayscale image, top row first.
func FieldGray16(f *Field) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.W, f.H))
	for row := 0; row < f.H; row++ {
		y := f.H - 1 - row
		for x := 0; x < f.W; x++ {
			i := img.PixOffset(x, row)
			img.Pix[i], img.Pix[i+1] = PackValue(f64(f.At(x, y)))
		}
	}
	return img
}
