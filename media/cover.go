package media

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	CoverJpegQuality = 85
	PlaceholderSize  = 300
)

var placeholderGray = color.NRGBA{R: 200, G: 200, B: 200, A: 255}

// RenderCover decodes an album image and writes a JPEG whose longest side is
// at most maxSize. Smaller images are not upscaled.
func RenderCover(w io.Writer, src io.Reader, maxSize int) error {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode cover source: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("invalid cover dimensions: %dx%d", b.Dx(), b.Dy())
	}
	if b.Dx() > maxSize || b.Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(CoverJpegQuality)); err != nil {
		return fmt.Errorf("cover encoding failed: %w", err)
	}
	return nil
}

// Placeholder is the gray square shown for albums without a usable image.
func Placeholder() image.Image {
	return imaging.New(PlaceholderSize, PlaceholderSize, placeholderGray)
}

// RenderPlaceholder writes the placeholder as JPEG.
func RenderPlaceholder(w io.Writer) error {
	if err := imaging.Encode(w, Placeholder(), imaging.JPEG, imaging.JPEGQuality(CoverJpegQuality)); err != nil {
		return fmt.Errorf("placeholder encoding failed: %w", err)
	}
	return nil
}
