package pipeline

import (
	"errors"
	"image"

	"liquidhero/liquid"
	"liquidhero/loader"
)

var ErrNoSurface = errors.New("no surface to render to")

// Software is a Backend that runs both passes on the cpu.
// It is slow but exact and needs no graphics context.
type Software struct {
	params liquid.Params
	pair   loader.Pair

	fields [2]*liquid.Field
	frame  *image.NRGBA
	view   liquid.Viewport
}

func NewSoftware(pair loader.Pair, params liquid.Params, view liquid.Viewport) (*Software, error) {
	if pair.First.Image == nil || pair.Second.Image == nil {
		return nil, errors.New("software backend: missing texture")
	}
	if view.Empty() {
		return nil, ErrNoSurface
	}

	s := &Software{
		params: params,
		pair:   pair,
	}
	for i := range s.fields {
		s.fields[i] = liquid.NewField(params.FieldSize, params.FieldSize)
	}
	s.Resize(view)

	return s, nil
}

// SoftwareFactory is a BackendFactory for Software.
func SoftwareFactory(pair loader.Pair, params liquid.Params, view liquid.Viewport) (Backend, error) {
	return NewSoftware(pair, params, view)
}

func (s *Software) Simulate(src, dst int, in liquid.StepInput) {
	liquid.Step(s.fields[src], s.fields[dst], in, s.params)
}

func (s *Software) Present(front int) {
	liquid.Compose(s.frame, liquid.DisplayInput{
		Field:  s.fields[front],
		First:  s.pair.First,
		Second: s.pair.Second,
		Aspect: s.view.Aspect(),
	}, s.params)
}

func (s *Software) Resize(view liquid.Viewport) {
	s.view = view

	w, h := view.RenderSize(s.params.MaxPixelRatio)
	if s.frame != nil && s.frame.Bounds().Dx() == w && s.frame.Bounds().Dy() == h {
		return
	}
	s.frame = image.NewNRGBA(image.Rect(0, 0, w, h))
}

func (s *Software) Dispose() {
	s.fields = [2]*liquid.Field{}
	s.frame = nil
}

// Field returns field slot i.
func (s *Software) Field(i int) *liquid.Field {
	return s.fields[i]
}

// Frame is the last presented frame.
func (s *Software) Frame() *image.NRGBA {
	return s.frame
}
