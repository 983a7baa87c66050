package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"golang.org/x/image/tiff"
)

// saveImage encodes img by the extension of path, resized to thumbWidth when
// it is set, and returns the time spent
func saveImage(path string, img image.Image, thumbWidth int) (time.Duration, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff":
	default:
		return 0, fmt.Errorf("unsupported output format %q", ext)
	}

	start := time.Now()
	if thumbWidth > 0 && thumbWidth != img.Bounds().Dx() {
		img = resize.Resize(uint(thumbWidth), 0, img, resize.Lanczos3)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case ".png":
		err = png.Encode(f, img)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return time.Since(start), nil
}
