package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidhero/liquid"
	"liquidhero/loader"
	"liquidhero/misc"
	"liquidhero/pipeline"
)

type renderFlags struct {
	frames int
	stroke int
	from   string
	to     string
	out    string
	every  int
	width  int
	height int
	ratio  float64
}

func newRenderCmd(c *cli) *cobra.Command {
	f := renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames on the cpu along a scripted pointer stroke",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, c, f)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.frames, "frames", 60, "number of frames to run")
	flags.IntVar(&f.stroke, "stroke", 30, "number of frames the stroke lasts")
	flags.StringVar(&f.from, "from", "0.2,0.5", "stroke start in field space (x,y with y up)")
	flags.StringVar(&f.to, "to", "0.8,0.5", "stroke end in field space")
	flags.StringVarP(&f.out, "out", "o", "frames", "output directory")
	flags.IntVar(&f.every, "every", 0, "write every n-th frame, 0 writes only the last")
	flags.IntVar(&f.width, "width", 0, "surface width (default window width)")
	flags.IntVar(&f.height, "height", 0, "surface height (default window height)")
	flags.Float64Var(&f.ratio, "ratio", 1, "device pixel ratio")

	return cmd
}

func runRender(cmd *cobra.Command, c *cli, f renderFlags) error {
	cfg := c.cfg
	logger := misc.Logger().Named("render")
	fs := afero.NewOsFs()

	from, err := parsePoint(f.from)
	if err != nil {
		return err
	}
	to, err := parsePoint(f.to)
	if err != nil {
		return err
	}
	if f.frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", f.frames)
	}

	view := liquid.Viewport{
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		PixelRatio: f.ratio,
	}
	if f.width > 0 {
		view.Width = f.width
	}
	if f.height > 0 {
		view.Height = f.height
	}

	if err := fs.MkdirAll(f.out, 0755); err != nil {
		return err
	}

	clock := liquid.NewTickClock(cfg.Window.TPS)

	p, err := pipeline.New(pipeline.Options{
		Params:  cfg.Params(),
		Clock:   clock,
		Factory: pipeline.SoftwareFactory,
		Logger:  logger.Named("pipeline"),
	})
	if err != nil {
		return err
	}
	defer p.Dispose()

	ld := loader.New(fs, nil, loader.Options{
		MaxSize:  cfg.Textures.MaxSize,
		Timeout:  cfg.Textures.Timeout,
		MaxBytes: cfg.Textures.MaxBytes,
	}, logger.Named("loader"))

	ctx := cmd.Context()
	p.Resize(view)
	if err := p.Start(ctx, func(ctx context.Context) (loader.Pair, error) {
		return ld.LoadPair(ctx, cfg.Textures.First, cfg.Textures.Second)
	}); err != nil {
		return err
	}

	frameName := func(i int) string {
		return filepath.Join(f.out, fmt.Sprintf("frame-%04d.png", i))
	}

	timer := liquid.NewProfTimer("render")

	err = p.Run(ctx, pipeline.RunOptions{
		Ticker: clock,
		Trace: pipeline.LineTrace{
			From:   from,
			To:     to,
			Frames: f.stroke,
		},
		Frames: f.frames,
		OnFrame: func(i int) error {
			last := i == f.frames-1
			if !last && (f.every <= 0 || i%f.every != 0) {
				return nil
			}
			sw := p.Backend().(*pipeline.Software)
			return writePNG(fs, frameName(i), sw.Frame())
		},
	})

	if p.State() == pipeline.StateFailed {
		clr, cerr := cfg.FallbackColor()
		if cerr == nil {
			w, h := view.RenderSize(cfg.Display.MaxPixelRatio)
			path := filepath.Join(f.out, "fallback.png")
			if werr := writePNG(fs, path, loader.Placeholder(clr, w, h)); werr == nil {
				logger.Warn("wrote fallback frame", zap.String("file", path))
			}
		}
		return err
	}
	if err != nil {
		return err
	}

	logger.Info("render done",
		zap.Uint64("frames", p.Frames()),
		zap.String("out", f.out),
		zap.Duration(timer.Name, timer.Elapsed()),
	)

	return nil
}

// parsePoint parses "x,y".
func parsePoint(s string) (liquid.FPoint, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return liquid.FPoint{}, fmt.Errorf("point %q is not of the form x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return liquid.FPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return liquid.FPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	return liquid.FPt(x, y), nil
}
