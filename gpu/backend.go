// Package gpu runs the reveal effect on the gpu with ebitengine.
//
// Both field buffers are unmanaged RGBA8 images holding 16 bit fixed
// point values. The simulation pass writes one of them with BlendCopy
// while reading the other. The display pass reads the front field and
// both textures and writes the frame image, which the game then draws
// to the screen.
package gpu

import (
	"errors"
	"image"

	eb "github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"liquidhero/liquid"
	"liquidhero/loader"
	"liquidhero/pipeline"
)

type Backend struct {
	shaders *Shaders
	params  liquid.Params

	fields [2]*eb.Image
	frame  *eb.Image

	textureA *eb.Image
	textureB *eb.Image
	aspectA  float64
	aspectB  float64

	view liquid.Viewport

	simUniforms     map[string]any
	displayUniforms map[string]any
	balls           []float32

	logger *zap.Logger
}

// NewFactory returns a BackendFactory building Backends that use shaders.
// The shaders are read at build time, so swapping them with SetShaders
// affects later frames.
func NewFactory(shaders func() *Shaders, logger *zap.Logger) pipeline.BackendFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(pair loader.Pair, params liquid.Params, view liquid.Viewport) (pipeline.Backend, error) {
		s := shaders()
		if s == nil {
			return nil, errors.New("gpu: shaders are not available")
		}
		return NewBackend(s, pair, params, view, logger)
	}
}

func NewBackend(
	shaders *Shaders,
	pair loader.Pair,
	params liquid.Params,
	view liquid.Viewport,
	logger *zap.Logger,
) (*Backend, error) {
	if pair.First.Image == nil || pair.Second.Image == nil {
		return nil, errors.New("gpu: missing texture")
	}
	if view.Empty() {
		return nil, pipeline.ErrNoSurface
	}

	b := &Backend{
		shaders: shaders,
		params:  params,

		textureA: eb.NewImageFromImage(pair.First.Image),
		textureB: eb.NewImageFromImage(pair.Second.Image),
		aspectA:  pair.First.Aspect,
		aspectB:  pair.Second.Aspect,

		simUniforms:     make(map[string]any),
		displayUniforms: make(map[string]any),
		balls:           make([]float32, liquid.MaxMetaballs*4),

		logger: logger,
	}

	rect := image.Rect(0, 0, params.FieldSize, params.FieldSize)
	for i := range b.fields {
		b.fields[i] = eb.NewImageWithOptions(rect, &eb.NewImageOptions{Unmanaged: true})
	}

	b.setStaticUniforms()
	b.Resize(view)

	return b, nil
}

// SetShaders swaps in freshly reloaded shaders.
func (b *Backend) SetShaders(shaders *Shaders) {
	b.shaders = shaders
}

func (b *Backend) setStaticUniforms() {
	p := b.params

	u := b.simUniforms
	u["FieldSize"] = float32(p.FieldSize)
	u["Decay"] = float32(p.Decay)
	u["Blur"] = float32(p.Blur)
	u["BrushRadius"] = float32(p.BrushRadius)
	u["BrushStrength"] = float32(p.BrushStrength)
	u["FalloffExponent"] = float32(p.FalloffExponent)
	u["MaskLow"] = float32(p.Metaball.MaskLow)
	u["MaskHigh"] = float32(p.Metaball.MaskHigh)
	if p.Mode == liquid.ModeMetaball {
		u["Mode"] = float32(1)
	} else {
		u["Mode"] = float32(0)
	}

	u = b.displayUniforms
	u["FieldSize"] = float32(p.FieldSize)
	u["AspectA"] = float32(b.aspectA)
	u["AspectB"] = float32(b.aspectB)
	u["RevealLow"] = float32(p.RevealLow)
	u["RevealHigh"] = float32(p.RevealHigh)
	u["MixLow"] = float32(p.MixLow)
	u["MixHigh"] = float32(p.MixHigh)
	u["NoiseScale"] = float32(p.NoiseScale)
	u["NoiseAmount"] = float32(p.NoiseAmount)
	u["DistortionStrength"] = float32(p.DistortionStrength)
	u["FlowFrequency"] = float32(p.FlowFrequency)

	aberration, glow := p.RevealEffects()
	u["Aberration"] = float32(aberration)
	u["Glow"] = float32(glow)
}

func (b *Backend) Simulate(src, dst int, in liquid.StepInput) {
	b.setStepUniforms(in)

	op := &DrawRectShaderOptions{}
	op.Uniforms = b.simUniforms
	op.Images[0] = b.fields[src]

	BeginBlend(eb.BlendCopy)
	DrawRectShader(b.fields[dst], b.params.FieldSize, b.params.FieldSize, b.shaders.Sim, op)
	EndBlend()
}

func (b *Backend) setStepUniforms(in liquid.StepInput) {
	u := b.simUniforms
	u["Aspect"] = float32(in.Aspect)
	u["Pointer"] = []float32{float32(in.Pointer.Pos.X), float32(in.Pointer.Pos.Y)}
	u["PrevPointer"] = []float32{float32(in.Pointer.Prev.X), float32(in.Pointer.Prev.Y)}
	if in.Pointer.Moving {
		u["Moving"] = float32(1)
	} else {
		u["Moving"] = float32(0)
	}

	count := min(len(in.Balls), liquid.MaxMetaballs)
	clear(b.balls)
	for i := 0; i < count; i++ {
		ball := in.Balls[i]
		b.balls[i*4+0] = float32(ball.Pos.X)
		b.balls[i*4+1] = float32(ball.Pos.Y)
		b.balls[i*4+2] = float32(ball.Radius)
	}
	u["Balls"] = b.balls
	u["BallCount"] = float32(count)
}

func (b *Backend) Present(front int) {
	b.setPresentUniforms()

	op := &DrawTrianglesShaderOptions{}
	op.Uniforms = b.displayUniforms
	op.Images[0] = b.fields[front]
	op.Images[1] = b.textureA
	op.Images[2] = b.textureB

	fw, fh := b.frame.Bounds().Dx(), b.frame.Bounds().Dy()
	n := float32(b.params.FieldSize)
	vertices, indices := quad(float32(fw), float32(fh), n, n)

	BeginBlend(eb.BlendCopy)
	DrawTrianglesShader(b.frame, vertices, indices, b.shaders.Display, op)
	EndBlend()
}

func (b *Backend) setPresentUniforms() {
	b.displayUniforms["Aspect"] = float32(b.view.Aspect())
}

func (b *Backend) Resize(view liquid.Viewport) {
	b.view = view

	w, h := view.RenderSize(b.params.MaxPixelRatio)
	if b.frame != nil {
		if b.frame.Bounds().Dx() == w && b.frame.Bounds().Dy() == h {
			return
		}
		b.frame.Deallocate()
	}

	b.frame = eb.NewImageWithOptions(image.Rect(0, 0, w, h), &eb.NewImageOptions{Unmanaged: true})

	b.logger.Debug("frame target replaced", zap.Int("width", w), zap.Int("height", h))
}

func (b *Backend) Dispose() {
	for i, f := range b.fields {
		if f != nil {
			f.Deallocate()
			b.fields[i] = nil
		}
	}
	for _, img := range []*eb.Image{b.frame, b.textureA, b.textureB} {
		if img != nil {
			img.Deallocate()
		}
	}
	b.frame = nil
	b.textureA = nil
	b.textureB = nil
}

// Frame is the image the last Present wrote.
func (b *Backend) Frame() *eb.Image {
	return b.frame
}

// ReadField reads field slot i back from the gpu.
// It must be called from Update or Draw.
func (b *Backend) ReadField(i int) (*liquid.Field, error) {
	n := b.params.FieldSize
	pix := make([]byte, n*n*4)
	b.fields[i].ReadPixels(pix)
	return liquid.UnpackField(pix, n, n)
}
