package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
)

const (
	// MaxImageDimension is the maximum width or height we'll resample from.
	// Larger sources are downscaled right after decoding.
	MaxImageDimension = 8192

	// MaxImagePixels is the maximum total pixels (width * height) we'll keep
	// in memory. 40MP is ~160MB as NRGBA.
	MaxImagePixels = 40_000_000
)

// ErrUndecodable is returned when neither the Go decoders nor libvips can
// read a source.
var ErrUndecodable = errors.New("unsupported or corrupt image")

// Source is a decoded original. Width and Height are the dimensions of the
// original file, which may be larger than Image if it was constrained.
type Source struct {
	Image  image.Image
	Width  int
	Height int
	Format string
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(data []byte) (*ImageDimensions, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}

// constrainedSize returns the size a width x height image should be reduced
// to so it fits both limits, and whether any reduction is needed.
func constrainedSize(width, height, maxDimension, maxPixels int) (int, int, bool) {
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return width, height, false
	}

	targetWidth, targetHeight := width, height

	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}

	if targetPixels := targetWidth * targetHeight; targetPixels > maxPixels {
		scale := float64(maxPixels) / float64(targetPixels)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	return max(targetWidth, 1), max(targetHeight, 1), true
}

// DecodeConstrained decodes an encoded image, applying EXIF orientation and
// downscaling it if it exceeds the size limits. Formats the Go decoders do
// not understand (HEIC, AVIF, JPEG XL) are handed to libvips when available.
func DecodeConstrained(data []byte, name string, maxDimension, maxPixels int) (*Source, error) {
	_, format, err := GetImageDimensions(data)
	if err != nil {
		logging.Debug("Go decoders cannot read %s (%v), trying libvips", name, err)
		return decodeWithVipsFallback(data, name, maxDimension, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		logging.Debug("imaging.Decode failed for %s: %v, trying libvips", name, err)
		return decodeWithVipsFallback(data, name, maxDimension, maxPixels)
	}
	metrics.SourceDecodeTotal.WithLabelValues(format, "imaging").Inc()

	// Bounds rather than the header size: auto-orientation may swap the axes
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	src := &Source{Image: img, Width: width, Height: height, Format: format}

	if tw, th, needed := constrainedSize(width, height, maxDimension, maxPixels); needed {
		logging.Info("Constraining large image %s from %dx%d to %dx%d", name, width, height, tw, th)
		src.Image = imaging.Resize(img, tw, th, imaging.Lanczos)
	}

	return src, nil
}

func decodeWithVipsFallback(data []byte, name string, maxDimension, maxPixels int) (*Source, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("%w: %s", ErrUndecodable, name)
	}

	src, err := DecodeWithVips(data, maxDimension, maxPixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, name, err)
	}
	return src, nil
}
