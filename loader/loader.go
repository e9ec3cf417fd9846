// Package loader fetches and decodes the two source textures.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"liquidhero/liquid"
)

var (
	ErrUnsupportedSource = errors.New("unsupported texture source")
	ErrEmptyImage        = errors.New("image has no pixels")
)

// Pair is the two faces the display pass blends between.
type Pair struct {
	First  liquid.Texture
	Second liquid.Texture
}

type Options struct {
	// MaxSize caps the longest side of a decoded texture. 0 means no cap.
	MaxSize int

	// Timeout bounds a whole LoadPair call. 0 means no timeout.
	Timeout time.Duration

	// MaxBytes caps how much is read from a single source. 0 means no cap.
	MaxBytes int64
}

// Loader reads textures from a file system or over http.
type Loader struct {
	Fs      afero.Fs
	Client  *http.Client
	Options Options

	logger *zap.Logger
}

func New(fs afero.Fs, client *http.Client, options Options, logger *zap.Logger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		Fs:      fs,
		Client:  client,
		Options: options,
		logger:  logger,
	}
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadPair loads both textures concurrently.
// The first error cancels the other load.
func (l *Loader) LoadPair(ctx context.Context, first, second string) (Pair, error) {
	if l.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Options.Timeout)
		defer cancel()
	}

	var pair Pair

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tex, err := l.Load(ctx, first)
		pair.First = tex
		return err
	})
	g.Go(func() error {
		tex, err := l.Load(ctx, second)
		pair.Second = tex
		return err
	})

	if err := g.Wait(); err != nil {
		return Pair{}, err
	}

	return pair, nil
}

// Load fetches, decodes and normalizes a single texture.
func (l *Loader) Load(ctx context.Context, source string) (liquid.Texture, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return liquid.Texture{}, fmt.Errorf("failed to read %q: %w", source, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return liquid.Texture{}, fmt.Errorf("failed to decode %q: %w", source, err)
	}

	if img.Bounds().Empty() {
		return liquid.Texture{}, fmt.Errorf("%q: %w", source, ErrEmptyImage)
	}

	nrgba := Normalize(img, l.Options.MaxSize)

	l.logger.Debug("texture loaded",
		zap.String("source", source),
		zap.String("format", format),
		zap.Int("width", nrgba.Bounds().Dx()),
		zap.Int("height", nrgba.Bounds().Dy()),
	)

	// aspect comes from the natural size, not the possibly scaled one
	tex := liquid.NewTexture(nrgba, source)
	tex.Aspect = float64(img.Bounds().Dx()) / float64(img.Bounds().Dy())

	return tex, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, ErrUnsupportedSource
	}

	var r io.ReadCloser

	if isURL(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		res, err := l.Client.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", res.Status)
		}
		r = res.Body
	} else if strings.Contains(source, "://") {
		return nil, ErrUnsupportedSource
	} else {
		path, err := homedir.Expand(source)
		if err != nil {
			return nil, err
		}
		f, err := l.Fs.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	var reader io.Reader = r
	if l.Options.MaxBytes > 0 {
		reader = io.LimitReader(r, l.Options.MaxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if l.Options.MaxBytes > 0 && int64(len(data)) > l.Options.MaxBytes {
		return nil, fmt.Errorf("source is bigger than %d bytes", l.Options.MaxBytes)
	}

	// a file read doesn't watch ctx, check once it's done
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

// Normalize converts img to NRGBA with its origin at (0, 0).
// If maxSize > 0 and the image is bigger, it is scaled down keeping its aspect.
func Normalize(img image.Image, maxSize int) *image.NRGBA {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()

	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			h = max(1, h*maxSize/w)
			w = maxSize
		} else {
			w = max(1, w*maxSize/h)
			h = maxSize
		}

		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
		return dst
	}

	if nrgba, ok := img.(*image.NRGBA); ok && src.Min == (image.Point{}) {
		return nrgba
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), img, src.Min, xdraw.Src)
	return dst
}

// Placeholder is the static image shown when the textures can't be used.
func Placeholder(clr color.Color, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(clr), image.Point{}, xdraw.Src)
	return img
}
