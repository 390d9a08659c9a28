package svg

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"thumbsweep/internal/geometry"
	"thumbsweep/internal/thumbnail"
)

// rootAttrs parses an output document and returns the root attributes.
func rootAttrs(t *testing.T, content []byte) map[string]string {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		t.Fatalf("output is not valid XML: %v\n%s", err, content)
	}
	attrs := map[string]string{}
	for _, a := range doc.Root().Attr {
		attrs[a.Key] = a.Value
	}
	return attrs
}

func cropOption(w, h int, anchor thumbnail.Anchor) thumbnail.Option {
	return thumbnail.Option{Method: thumbnail.MethodCrop, Width: thumbnail.IntPtr(w), Height: thumbnail.IntPtr(h), Anchor: anchor}
}

func TestResizeFixedWidthKeepsViewBox(t *testing.T) {
	in := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100"><rect width="10" height="10"/></svg>`)

	res, err := Resize(in, thumbnail.Option{Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(100)})
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}

	attrs := rootAttrs(t, res.Content)
	if attrs["width"] != "100" || attrs["height"] != "50" {
		t.Errorf("size = %s x %s, want 100 x 50", attrs["width"], attrs["height"])
	}
	if attrs["viewBox"] != "0 0 200 100" {
		t.Errorf("viewBox = %q, want unchanged", attrs["viewBox"])
	}
	if !strings.Contains(string(res.Content), `<rect width="10" height="10"/>`) {
		t.Errorf("drawing content was altered:\n%s", res.Content)
	}
}

func TestResizeFixedHeightAndFixedSize(t *testing.T) {
	in := []byte(`<svg width="300px" height="150px" viewBox="0 0 300 150"/>`)

	res, err := Resize(in, thumbnail.Option{Method: thumbnail.MethodFixedHeight, Height: thumbnail.IntPtr(50)})
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	if res.Width != 100 || res.Height != 50 {
		t.Errorf("fixed height = %dx%d, want 100x50", res.Width, res.Height)
	}

	res, err = Resize(in, thumbnail.Option{Method: thumbnail.MethodFixedSize, Width: thumbnail.IntPtr(64), Height: thumbnail.IntPtr(64)})
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	attrs := rootAttrs(t, res.Content)
	if attrs["width"] != "64" || attrs["height"] != "64" || attrs["viewBox"] != "0 0 300 150" {
		t.Errorf("fixed size attrs = %v", attrs)
	}
}

func TestResizeCropBottomRight(t *testing.T) {
	in := []byte(`<svg width="200" height="200" viewBox="0 0 200 200"/>`)

	res, err := Resize(in, cropOption(100, 100, thumbnail.AnchorBottomRight))
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	attrs := rootAttrs(t, res.Content)
	if attrs["viewBox"] != "100 100 100 100" {
		t.Errorf("viewBox = %q, want \"100 100 100 100\"", attrs["viewBox"])
	}
	if attrs["width"] != "100" || attrs["height"] != "100" {
		t.Errorf("size = %s x %s, want 100 x 100", attrs["width"], attrs["height"])
	}
}

func TestResizeCropUpscaleClamps(t *testing.T) {
	in := []byte(`<svg width="100" height="100" viewBox="0 0 100 100"/>`)

	for _, anchor := range thumbnail.Anchors {
		t.Run(string(anchor), func(t *testing.T) {
			res, err := Resize(in, cropOption(200, 200, anchor))
			if err != nil {
				t.Fatalf("Resize() error: %v", err)
			}
			attrs := rootAttrs(t, res.Content)
			if attrs["viewBox"] != "0 0 100 100" {
				t.Errorf("viewBox = %q, want \"0 0 100 100\"", attrs["viewBox"])
			}
			if attrs["width"] != "200" || attrs["height"] != "200" {
				t.Errorf("size = %s x %s, want 200 x 200", attrs["width"], attrs["height"])
			}
		})
	}
}

func TestResizeCropAnchors(t *testing.T) {
	in := []byte(`<svg viewBox="10 20 300 200"/>`)

	tests := []struct {
		anchor thumbnail.Anchor
		want   string
	}{
		{thumbnail.AnchorTopLeft, "10 20 100 100"},
		{thumbnail.AnchorTop, "110 20 100 100"},
		{thumbnail.AnchorCenter, "110 70 100 100"},
		{thumbnail.AnchorRight, "210 70 100 100"},
		{thumbnail.AnchorBottomLeft, "10 120 100 100"},
		{thumbnail.AnchorBottomRight, "210 120 100 100"},
	}

	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			res, err := Resize(in, cropOption(100, 100, tt.anchor))
			if err != nil {
				t.Fatalf("Resize() error: %v", err)
			}
			if got := res.ViewBox.String(); got != tt.want {
				t.Errorf("viewBox = %q, want %q", got, tt.want)
			}
		})
	}
}

// Target wider than the content but shorter: each axis clamps on its own.
func TestResizeCropClampsAxesIndependently(t *testing.T) {
	in := []byte(`<svg viewBox="0 0 100 300"/>`)

	res, err := Resize(in, cropOption(200, 100, thumbnail.AnchorCenter))
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	if got := res.ViewBox.String(); got != "0 100 100 100" {
		t.Errorf("viewBox = %q, want \"0 100 100 100\"", got)
	}
	if res.Width != 200 || res.Height != 100 {
		t.Errorf("size = %dx%d, want 200x100", res.Width, res.Height)
	}
}

func TestResizeSynthesizesViewBox(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "from width and height", in: `<svg width="40" height="30"/>`, want: "0 0 40 30"},
		{name: "units stripped", in: `<svg width="40.4mm" height="29.6mm"/>`, want: "0 0 40 30"},
		{name: "defaults", in: `<svg/>`, want: "0 0 100 100"},
		{name: "invalid viewBox replaced", in: `<svg width="50" height="20" viewBox="junk"/>`, want: "0 0 50 20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resize([]byte(tt.in), thumbnail.Option{Method: thumbnail.MethodFixedWidth, Width: thumbnail.IntPtr(10)})
			if err != nil {
				t.Fatalf("Resize() error: %v", err)
			}
			if got := rootAttrs(t, res.Content)["viewBox"]; got != tt.want {
				t.Errorf("viewBox = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResizeNullDimensionsUseEffectiveSize(t *testing.T) {
	// No width/height attributes: effective size comes from the viewBox
	in := []byte(`<svg viewBox="0 0 80 40"/>`)

	res, err := Resize(in, thumbnail.Option{Method: thumbnail.MethodFixedSize})
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	if res.Width != 80 || res.Height != 40 {
		t.Errorf("size = %dx%d, want 80x40", res.Width, res.Height)
	}
}

func TestResizeMalformedReturnsOriginal(t *testing.T) {
	inputs := []string{
		`<svg width="10"`,
		`not xml at all`,
		``,
		`<html><body/></html>`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			res, err := Resize([]byte(in), cropOption(10, 10, thumbnail.AnchorCenter))
			if err != nil {
				t.Fatalf("Resize() error: %v", err)
			}
			if !res.Unchanged {
				t.Error("Unchanged = false, want true")
			}
			if string(res.Content) != in {
				t.Errorf("content = %q, want original %q", res.Content, in)
			}
		})
	}
}

func TestResizeErrors(t *testing.T) {
	in := []byte(`<svg viewBox="0 0 10 10"/>`)

	_, err := Resize(in, thumbnail.Option{Method: "Skew", Width: thumbnail.IntPtr(5), Height: thumbnail.IntPtr(5)})
	if !errors.Is(err, geometry.ErrUnsupportedMethod) {
		t.Errorf("unknown method error = %v, want ErrUnsupportedMethod", err)
	}

	_, err = Resize(in, cropOption(0, 5, thumbnail.AnchorCenter))
	if !errors.Is(err, geometry.ErrInvalidDimensions) {
		t.Errorf("zero crop error = %v, want ErrInvalidDimensions", err)
	}
}

// The vector and raster engines agree on scale factors and anchor offsets.
func TestGeometryParityWithRaster(t *testing.T) {
	sizes := [][2]int{{200, 100}, {100, 200}, {640, 480}, {50, 50}}
	for _, src := range sizes {
		for _, method := range []thumbnail.Method{thumbnail.MethodFixedSize, thumbnail.MethodFixedWidth, thumbnail.MethodFixedHeight} {
			opt := thumbnail.Option{Method: method, Width: thumbnail.IntPtr(120), Height: thumbnail.IntPtr(90)}
			in := []byte(fmt.Sprintf(`<svg width="%d" height="%d"/>`, src[0], src[1]))

			res, err := Resize(in, opt)
			if err != nil {
				t.Fatalf("Resize() error: %v", err)
			}
			layout, err := geometry.Plan(src[0], src[1], geometry.SpecFor(opt, src[0], src[1]))
			if err != nil {
				t.Fatalf("Plan() error: %v", err)
			}
			if res.Scale != layout.Scale {
				t.Errorf("%s %v: svg scale %g != raster scale %g", method, src, res.Scale, layout.Scale)
			}
			if res.Width != layout.CanvasWidth || res.Height != layout.CanvasHeight {
				t.Errorf("%s %v: svg %dx%d != raster canvas %dx%d", method, src, res.Width, res.Height, layout.CanvasWidth, layout.CanvasHeight)
			}
		}
	}

	// With a unit crop scale both engines crop the same excess
	for _, anchor := range thumbnail.Anchors {
		opt := cropOption(100, 100, anchor)
		res, err := Resize([]byte(`<svg viewBox="0 0 200 100"/>`), opt)
		if err != nil {
			t.Fatalf("Resize() error: %v", err)
		}
		layout, err := geometry.Plan(200, 100, geometry.SpecFor(opt, 200, 100))
		if err != nil {
			t.Fatalf("Plan() error: %v", err)
		}
		if int(res.ViewBox.MinX) != layout.OffsetX || int(res.ViewBox.MinY) != layout.OffsetY {
			t.Errorf("%s: svg origin (%g,%g) != raster offset (%d,%d)", anchor, res.ViewBox.MinX, res.ViewBox.MinY, layout.OffsetX, layout.OffsetY)
		}
	}
}
