package liquid

import (
	"fmt"
	"math"
)

// Field is the trail field: a grid of intensities in [0, 1].
// Row 0 is the bottom row, matching the y-up field space.
type Field struct {
	W, H int
	Data []float32
}

func NewField(w, h int) *Field {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("liquid: invalid field size %dx%d", w, h))
	}
	return &Field{
		W:    w,
		H:    h,
		Data: make([]float32, w*h),
	}
}

func (f *Field) At(x, y int) float32 {
	x = Clamp(x, 0, f.W-1)
	y = Clamp(y, 0, f.H-1)
	return f.Data[y*f.W+x]
}

func (f *Field) Set(x, y int, v float32) {
	f.Data[y*f.W+x] = v
}

// CellCenter returns the field space position of cell (x, y).
func (f *Field) CellCenter(x, y int) FPoint {
	return FPt((f64(x)+0.5)/f64(f.W), (f64(y)+0.5)/f64(f.H))
}

// Sample returns the bilinearly filtered value at field space uv.
// Outside of the field the edge values are used.
func (f *Field) Sample(uv FPoint) float64 {
	fx := uv.X*f64(f.W) - 0.5
	fy := uv.Y*f64(f.H) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))

	tx := fx - f64(x0)
	ty := fy - f64(y0)

	v00 := f64(f.At(x0, y0))
	v10 := f64(f.At(x0+1, y0))
	v01 := f64(f.At(x0, y0+1))
	v11 := f64(f.At(x0+1, y0+1))

	return Lerp(Lerp(v00, v10, tx), Lerp(v01, v11, tx), ty)
}

func (f *Field) Max() float32 {
	var m float32
	for _, v := range f.Data {
		m = max(m, v)
	}
	return m
}

func (f *Field) Fill(v float32) {
	for i := range f.Data {
		f.Data[i] = v
	}
}

func (f *Field) Equal(g *Field) bool {
	if f.W != g.W || f.H != g.H {
		return false
	}
	for i := range f.Data {
		if f.Data[i] != g.Data[i] {
			return false
		}
	}
	return true
}
