package main

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	eb "github.com/hajimehoshi/ebiten/v2"
	ebi "github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"liquidhero/config"
	"liquidhero/gpu"
	"liquidhero/liquid"
	"liquidhero/loader"
	"liquidhero/pipeline"
)

type App struct {
	ctx    context.Context
	cfg    *config.Config
	fs     afero.Fs
	logger *zap.Logger

	clock    *liquid.TickClock
	pipeline *pipeline.Pipeline
	input    *PointerInput

	shaders   *gpu.Shaders
	shaderErr error

	fallbackColor color.NRGBA
	placeholder   *eb.Image

	renderScale float64

	ShowDebugConsole bool
}

func NewApp(ctx context.Context, cfg *config.Config, fs afero.Fs, logger *zap.Logger) (*App, error) {
	a := &App{
		ctx:    ctx,
		cfg:    cfg,
		fs:     fs,
		logger: logger,

		clock: liquid.NewTickClock(cfg.Window.TPS),
		input: NewPointerInput(),

		renderScale: 1,

		ShowDebugConsole: cfg.Dev.ShowDebug,
	}

	clr, err := cfg.FallbackColor()
	if err != nil {
		return nil, err
	}
	a.fallbackColor = clr

	// a shader that doesn't compile leaves the pipeline in the failed
	// state showing the fallback, the app itself keeps running
	a.shaders, a.shaderErr = gpu.LoadShaders()
	if a.shaderErr != nil {
		logger.Warn("failed to load shaders", zap.Error(a.shaderErr))
	}

	p, err := pipeline.New(pipeline.Options{
		Params: cfg.Params(),
		Clock:  a.clock,
		Factory: gpu.NewFactory(func() *gpu.Shaders {
			return a.shaders
		}, logger.Named("gpu")),
		Logger: logger.Named("pipeline"),
	})
	if err != nil {
		return nil, err
	}
	a.pipeline = p

	ld := loader.New(fs, nil, loader.Options{
		MaxSize:  cfg.Textures.MaxSize,
		Timeout:  cfg.Textures.Timeout,
		MaxBytes: cfg.Textures.MaxBytes,
	}, logger.Named("loader"))

	err = p.Start(ctx, func(ctx context.Context) (loader.Pair, error) {
		return ld.LoadPair(ctx, cfg.Textures.First, cfg.Textures.Second)
	})
	if err != nil {
		return nil, err
	}

	if cfg.Fallback.Image != "" {
		tex, err := ld.Load(ctx, cfg.Fallback.Image)
		if err != nil {
			logger.Warn("failed to load fallback image", zap.Error(err))
		} else {
			a.placeholder = eb.NewImageFromImage(tex.Image)
		}
	}

	return a, nil
}

func (a *App) Update() error {
	ClearDebugMsgs()

	select {
	case <-a.ctx.Done():
		return eb.Termination
	default:
	}

	a.clock.Tick()

	fpsStr := fmt.Sprintf("%.2f", eb.ActualFPS())
	tpsStr := fmt.Sprintf("%.2f", eb.ActualTPS())

	DebugPrint("FPS", fpsStr)
	DebugPrint("TPS", tpsStr)

	// ==========================
	// hotkeys
	// ==========================
	if ebi.IsKeyJustPressed(ShowDebugConsoleKey) {
		a.ShowDebugConsole = !a.ShowDebugConsole
	}

	if a.cfg.Dev.HotReload && ebi.IsKeyJustPressed(ReloadShadersKey) {
		a.reloadShaders()
	}

	if ebi.IsKeyJustPressed(CopyParamsKey) {
		if out, err := a.cfg.ParamsYAML(); err == nil {
			ClipboardWriteText(string(out))
			a.logger.Info("params copied to clipboard")
		} else {
			a.logger.Warn("failed to copy params", zap.Error(err))
		}
	}

	// ==========================
	// pipeline
	// ==========================
	a.input.Update(a.pipeline, a.renderScale)

	a.pipeline.Poll()
	a.pipeline.Frame()

	if ebi.IsKeyJustPressed(ScreenshotKey) {
		a.screenshot()
	}

	ptr := a.pipeline.Tracker().Snapshot(a.clock.Now())

	DebugPrint("state", a.pipeline.State())
	DebugPrint("frames", a.pipeline.Frames())
	DebugPrintf("pointer", "%.3f, %.3f moving=%v", ptr.Pos.X, ptr.Pos.Y, ptr.Moving)
	DebugPrint("front", a.pipeline.Front())
	view := a.pipeline.Viewport()
	DebugPrintf("view", "%dx%d @%.2f", view.Width, view.Height, view.PixelRatio)
	if err := a.pipeline.Err(); err != nil {
		DebugPrint("error", err)
	}
	if a.shaderErr != nil {
		DebugPrint("shader", a.shaderErr)
	}

	return nil
}

func (a *App) gpuBackend() *gpu.Backend {
	if b, ok := a.pipeline.Backend().(*gpu.Backend); ok {
		return b
	}
	return nil
}

func (a *App) reloadShaders() {
	shaders, err := gpu.ReloadShaders(a.fs, a.cfg.Dev.ShaderDir)
	if err != nil {
		a.shaderErr = err
		a.logger.Warn("failed to reload shaders", zap.Error(err))
		return
	}

	old := a.shaders
	a.shaders = shaders
	a.shaderErr = nil

	if b := a.gpuBackend(); b != nil {
		b.SetShaders(shaders)
	}
	if old != nil {
		old.Deallocate()
	}

	a.logger.Info("shaders reloaded", zap.String("dir", a.cfg.Dev.ShaderDir))
}

func (a *App) screenshot() {
	b := a.gpuBackend()
	if b == nil {
		return
	}

	name, err := TakeScreenshot(a.fs, a.cfg.Dev.Screenshot, b.Frame())
	if err != nil {
		a.logger.Warn("failed to take screenshot", zap.Error(err))
		return
	}

	// the trail field goes next to it
	fieldName := strings.TrimSuffix(name, ".png") + "-field.png"
	field, err := b.ReadField(a.pipeline.Front())
	if err == nil {
		err = writePNG(a.fs, fieldName, liquid.FieldGray16(field))
	}
	if err != nil {
		a.logger.Warn("failed to save field", zap.Error(err))
	}

	a.logger.Info("screenshot saved",
		zap.String("file", name),
		zap.String("field", fieldName),
	)
}

func (a *App) Draw(dst *eb.Image) {
	if b := a.gpuBackend(); b != nil && a.pipeline.State() == pipeline.StateReady {
		dst.DrawImage(b.Frame(), nil)
	} else {
		dst.Fill(a.fallbackColor)
		if a.placeholder != nil && a.pipeline.State() == pipeline.StateFailed {
			drawCover(dst, a.placeholder)
		}
	}

	if a.ShowDebugConsole {
		DrawDebugMsgs(dst)
	}
}

// drawCover draws img over dst scaled to cover it, centered.
func drawCover(dst, img *eb.Image) {
	dw, dh := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())
	iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())

	scale := max(dw/iw, dh/ih)

	op := &eb.DrawImageOptions{}
	op.GeoM.Translate(-iw*0.5, -ih*0.5)
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(dw*0.5, dh*0.5)
	op.Filter = eb.FilterLinear

	dst.DrawImage(img, op)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	view := liquid.Viewport{
		Width:      outsideWidth,
		Height:     outsideHeight,
		PixelRatio: eb.Monitor().DeviceScaleFactor(),
	}
	a.pipeline.Resize(view)

	w, h := view.RenderSize(a.cfg.Display.MaxPixelRatio)
	if outsideWidth > 0 {
		a.renderScale = float64(w) / float64(outsideWidth)
	}

	return w, h
}

func (a *App) Dispose() {
	a.pipeline.Dispose()
	if a.shaders != nil {
		a.shaders.Deallocate()
	}
}
