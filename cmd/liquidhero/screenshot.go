package main

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"time"

	eb "github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"

	"liquidhero/misc"
)

// ImageImageFromEbImage reads img back from the gpu.
// It must be called from Update or Draw.
func ImageImageFromEbImage(img *eb.Image) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	img.ReadPixels(rgba.Pix)
	return rgba
}

func writePNG(fs afero.Fs, path string, img image.Image) error {
	buffer := &bytes.Buffer{}
	if err := png.Encode(buffer, img); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, buffer.Bytes(), 0644)
}

// TakeScreenshot saves img under dir and returns the file name.
func TakeScreenshot(fs afero.Fs, dir string, img *eb.Image) (string, error) {
	timeStr := time.Now().Format("0102150405")

	path, err := misc.UniqueFileName(fs, filepath.Join(dir, "pic-"+timeStr), ".png")
	if err != nil {
		return "", err
	}

	if err := writePNG(fs, path, ImageImageFromEbImage(img)); err != nil {
		return "", err
	}

	return path, nil
}
