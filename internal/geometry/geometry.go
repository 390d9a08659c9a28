package geometry

import (
	"errors"
	"fmt"
	"math"

	"thumbsweep/internal/thumbnail"
)

var (
	// ErrUnsupportedMethod means the option carries a method outside the four
	// known ones. Callers must stop generating for the item.
	ErrUnsupportedMethod = errors.New("unsupported resize method")

	// ErrInvalidDimensions is returned for non-positive source or target sizes.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// Spec is a resize request with dimensions already defaulted.
type Spec struct {
	Method thumbnail.Method
	Width  int
	Height int
	Anchor thumbnail.Anchor
}

// Layout describes how a source of a given size maps onto the output.
//
// For FixedSize, Offset is where the scaled image is pasted on the canvas.
// For Crop, Offset is the origin of the canvas-sized window inside the
// scaled image. FixedWidth and FixedHeight have a zero offset.
type Layout struct {
	CanvasWidth  int
	CanvasHeight int
	ScaledWidth  int
	ScaledHeight int
	Scale        float64
	OffsetX      int
	OffsetY      int
}

// Scale returns the single scale factor a method applies to a source.
func Scale(method thumbnail.Method, srcW, srcH, targetW, targetH float64) (float64, error) {
	if srcW <= 0 || srcH <= 0 {
		return 0, fmt.Errorf("%w: source %gx%g", ErrInvalidDimensions, srcW, srcH)
	}

	switch method {
	case thumbnail.MethodFixedSize:
		if targetW <= 0 || targetH <= 0 {
			return 0, fmt.Errorf("%w: fixed size needs width and height, got %gx%g", ErrInvalidDimensions, targetW, targetH)
		}
		return math.Min(targetW/srcW, targetH/srcH), nil
	case thumbnail.MethodFixedWidth:
		if targetW <= 0 {
			return 0, fmt.Errorf("%w: fixed width needs a width, got %g", ErrInvalidDimensions, targetW)
		}
		return targetW / srcW, nil
	case thumbnail.MethodFixedHeight:
		if targetH <= 0 {
			return 0, fmt.Errorf("%w: fixed height needs a height, got %g", ErrInvalidDimensions, targetH)
		}
		return targetH / srcH, nil
	case thumbnail.MethodCrop:
		if targetW <= 0 || targetH <= 0 {
			return 0, fmt.Errorf("%w: crop needs width and height, got %gx%g", ErrInvalidDimensions, targetW, targetH)
		}
		return math.Max(targetW/srcW, targetH/srcH), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
}

// AnchorOffset returns the origin of the kept region for the given excess on
// each axis: 0 at the start edge, excess/2 when centred, excess at the end edge.
func AnchorOffset(anchor thumbnail.Anchor, excessW, excessH float64) (x, y float64) {
	h, v := anchor.Axes()
	return alignOffset(h, excessW), alignOffset(v, excessH)
}

func alignOffset(a thumbnail.Align, excess float64) float64 {
	switch a {
	case thumbnail.AlignStart:
		return 0
	case thumbnail.AlignEnd:
		return excess
	default:
		return excess / 2
	}
}

// Clamp limits v to [0, max(0, upper)].
func Clamp(v, upper float64) float64 {
	if upper < 0 {
		upper = 0
	}
	return math.Max(0, math.Min(v, upper))
}

// Plan computes the raster layout for resizing a srcW x srcH image.
func Plan(srcW, srcH int, spec Spec) (Layout, error) {
	sw, sh := float64(srcW), float64(srcH)
	tw, th := float64(spec.Width), float64(spec.Height)

	scale, err := Scale(spec.Method, sw, sh, tw, th)
	if err != nil {
		return Layout{}, err
	}

	scaledW := atLeastOne(math.Round(sw * scale))
	scaledH := atLeastOne(math.Round(sh * scale))
	layout := Layout{Scale: scale, ScaledWidth: scaledW, ScaledHeight: scaledH}

	switch spec.Method {
	case thumbnail.MethodFixedSize:
		layout.ScaledWidth = min(scaledW, spec.Width)
		layout.ScaledHeight = min(scaledH, spec.Height)
		layout.CanvasWidth = spec.Width
		layout.CanvasHeight = spec.Height
		layout.OffsetX = (spec.Width - layout.ScaledWidth) / 2
		layout.OffsetY = (spec.Height - layout.ScaledHeight) / 2

	case thumbnail.MethodFixedWidth:
		layout.ScaledWidth = spec.Width
		layout.CanvasWidth = spec.Width
		layout.CanvasHeight = scaledH

	case thumbnail.MethodFixedHeight:
		layout.ScaledHeight = spec.Height
		layout.CanvasWidth = scaledW
		layout.CanvasHeight = spec.Height

	case thumbnail.MethodCrop:
		layout.ScaledWidth = max(scaledW, spec.Width)
		layout.ScaledHeight = max(scaledH, spec.Height)
		layout.CanvasWidth = spec.Width
		layout.CanvasHeight = spec.Height

		excessW := float64(layout.ScaledWidth - spec.Width)
		excessH := float64(layout.ScaledHeight - spec.Height)
		x, y := AnchorOffset(spec.Anchor, excessW, excessH)
		layout.OffsetX = int(Clamp(math.Floor(x), excessW))
		layout.OffsetY = int(Clamp(math.Floor(y), excessH))
	}

	return layout, nil
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

// SpecFor applies the defaulting rule for options: a missing width or height
// is replaced by the source dimension on that axis.
func SpecFor(opt thumbnail.Option, srcW, srcH int) Spec {
	spec := Spec{Method: opt.Method, Width: srcW, Height: srcH, Anchor: opt.Anchor}
	if opt.Width != nil {
		spec.Width = *opt.Width
	}
	if opt.Height != nil {
		spec.Height = *opt.Height
	}
	return spec
}
