package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"thumbsweep/internal/geometry"
	"thumbsweep/internal/thumbnail"
)

// ErrUnsupportedOutput is returned when a derivative name has an extension
// no encoder can produce.
var ErrUnsupportedOutput = errors.New("unsupported output format")

// Render applies one option to a decoded source. The returned image is the
// finished derivative at its final canvas size.
func Render(src *Source, opt thumbnail.Option) (*image.NRGBA, error) {
	spec := geometry.SpecFor(opt, src.Width, src.Height)

	layout, err := geometry.Plan(src.Width, src.Height, spec)
	if err != nil {
		return nil, err
	}

	switch opt.Method {
	case thumbnail.MethodFixedSize:
		bg, err := backgroundFor(opt.BackgroundColor)
		if err != nil {
			return nil, err
		}
		scaled := imaging.Resize(src.Image, layout.ScaledWidth, layout.ScaledHeight, imaging.Lanczos)
		canvas := imaging.New(layout.CanvasWidth, layout.CanvasHeight, bg)
		return imaging.Overlay(canvas, scaled, image.Pt(layout.OffsetX, layout.OffsetY), 1.0), nil

	case thumbnail.MethodFixedWidth, thumbnail.MethodFixedHeight:
		return imaging.Resize(src.Image, layout.CanvasWidth, layout.CanvasHeight, imaging.Lanczos), nil

	case thumbnail.MethodCrop:
		scaled := imaging.Resize(src.Image, layout.ScaledWidth, layout.ScaledHeight, imaging.Lanczos)
		window := image.Rect(layout.OffsetX, layout.OffsetY,
			layout.OffsetX+layout.CanvasWidth, layout.OffsetY+layout.CanvasHeight)
		return imaging.Crop(scaled, window), nil
	}

	// Plan rejects unknown methods first
	return nil, fmt.Errorf("%w: %q", geometry.ErrUnsupportedMethod, opt.Method)
}

// Encode writes img in the format implied by the extension of name. JPEG
// honours quality; WebP needs libvips.
func Encode(w io.Writer, img image.Image, name string, quality int) error {
	if strings.EqualFold(path.Ext(name), ".webp") {
		data, err := EncodeWebPWithVips(img, quality)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnsupportedOutput, name, err)
		}
		_, err = w.Write(data)
		return err
	}

	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, name)
	}

	return imaging.Encode(w, img, format, imaging.JPEGQuality(quality))
}
