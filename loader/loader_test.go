package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func memFs(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, data, 0644))
	}
	return fs
}

func TestLoadFromFs(t *testing.T) {
	fs := memFs(t, map[string][]byte{
		"/img/casual.png": encodePNG(t, 40, 20),
	})
	l := New(fs, nil, Options{}, nil)

	tex, err := l.Load(context.Background(), "/img/casual.png")
	require.NoError(t, err)

	assert.Equal(t, "/img/casual.png", tex.Source)
	assert.InDelta(t, 2.0, tex.Aspect, 1e-12)
	assert.Equal(t, image.Rect(0, 0, 40, 20), tex.Image.Bounds())
	assert.Equal(t, color.NRGBA{3, 7, 100, 255}, tex.Image.NRGBAAt(3, 7))
}

func TestLoadPairOverHTTP(t *testing.T) {
	first := encodePNG(t, 30, 30)
	second := encodePNG(t, 60, 30)

	mux := http.NewServeMux()
	mux.HandleFunc("/first.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(first)
	})
	mux.HandleFunc("/second.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(second)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := srv.Client()
	defer client.CloseIdleConnections()

	l := New(afero.NewMemMapFs(), client, Options{Timeout: 5 * time.Second}, nil)

	pair, err := l.LoadPair(context.Background(), srv.URL+"/first.png", srv.URL+"/second.png")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, pair.First.Aspect, 1e-12)
	assert.InDelta(t, 2.0, pair.Second.Aspect, 1e-12)
}

func TestLoadErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := srv.Client()
	defer client.CloseIdleConnections()

	fs := memFs(t, map[string][]byte{
		"/garbage.png": []byte("definitely not a png"),
		"/ok.png":      encodePNG(t, 4, 4),
	})
	l := New(fs, client, Options{}, nil)

	t.Run("missing file", func(t *testing.T) {
		_, err := l.Load(context.Background(), "/nope.png")
		assert.Error(t, err)
	})

	t.Run("bad data", func(t *testing.T) {
		_, err := l.Load(context.Background(), "/garbage.png")
		assert.ErrorIs(t, err, image.ErrFormat)
	})

	t.Run("http status", func(t *testing.T) {
		_, err := l.Load(context.Background(), srv.URL+"/racing.png")
		assert.ErrorContains(t, err, "404")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := l.Load(context.Background(), "ftp://example.com/a.png")
		assert.ErrorIs(t, err, ErrUnsupportedSource)

		_, err = l.Load(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnsupportedSource)
	})

	t.Run("one bad source fails the pair", func(t *testing.T) {
		_, err := l.LoadPair(context.Background(), "/ok.png", "/nope.png")
		assert.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := l.Load(ctx, "/ok.png")
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("too big", func(t *testing.T) {
		big := New(fs, client, Options{MaxBytes: 8}, nil)
		_, err := big.Load(context.Background(), "/ok.png")
		assert.ErrorContains(t, err, "bigger than")
	})
}

func TestNormalize(t *testing.T) {
	t.Run("offset origin", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(10, 10, 14, 12))
		src.Set(10, 10, color.RGBA{255, 0, 0, 255})

		out := Normalize(src, 0)
		assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
		assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(0, 0))
	})

	t.Run("downscale keeps aspect", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 400, 100))
		out := Normalize(src, 100)
		assert.Equal(t, image.Rect(0, 0, 100, 25), out.Bounds())

		tall := image.NewNRGBA(image.Rect(0, 0, 50, 200))
		out = Normalize(tall, 100)
		assert.Equal(t, image.Rect(0, 0, 25, 100), out.Bounds())
	})

	t.Run("already normalized is reused", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		assert.Same(t, src, Normalize(src, 0))
	})
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(color.NRGBA{10, 20, 30, 255}, 3, 2)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, img.NRGBAAt(2, 1))
}
