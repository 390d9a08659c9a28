package svg

import (
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"thumbsweep/internal/geometry"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/thumbnail"
)

// Result is the outcome of resizing one SVG document.
type Result struct {
	// Content is the rewritten document, or the input untouched when
	// Unchanged is set.
	Content []byte

	// Unchanged marks a document that could not be parsed as SVG. Callers
	// should treat it as a warning, not a failure.
	Unchanged bool

	Width   int
	Height  int
	ViewBox ViewBox

	// Scale is the factor applied to the nominal size (1 for Crop, which
	// changes the visible region instead).
	Scale float64
}

// document wraps the root svg element.
type document struct {
	doc  *etree.Document
	root *etree.Element
}

func parse(content []byte) (*document, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		logging.Debug("SVG parse failed: %v", err)
		return nil, false
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, false
	}
	return &document{doc: doc, root: root}, true
}

func (d *document) dimension(name string) (int, bool) {
	attr := d.root.SelectAttr(name)
	if attr == nil {
		return 0, false
	}
	return ParseDimension(attr.Value)
}

// ensureViewBox gives the root a viewBox of "0 0 W H" built from its width
// and height (DefaultDimension when absent) unless it already has a valid one.
func (d *document) ensureViewBox() ViewBox {
	if vb, ok := ParseViewBox(d.root.SelectAttrValue("viewBox", "")); ok {
		return vb
	}

	w, ok := d.dimension("width")
	if !ok {
		w = DefaultDimension
	}
	h, ok := d.dimension("height")
	if !ok {
		h = DefaultDimension
	}

	vb := ViewBox{Width: float64(w), Height: float64(h)}
	d.root.CreateAttr("viewBox", vb.String())
	return vb
}

// effectiveSize is the nominal size: width/height attributes first, then the
// viewBox, then DefaultDimension.
func (d *document) effectiveSize(vb ViewBox) (int, int) {
	w, ok := d.dimension("width")
	if !ok {
		w = roundPositive(vb.Width)
	}
	h, ok := d.dimension("height")
	if !ok {
		h = roundPositive(vb.Height)
	}
	return w, h
}

func roundPositive(f float64) int {
	if n := int(math.Round(f)); n > 0 {
		return n
	}
	return DefaultDimension
}

func (d *document) setSize(w, h int) {
	d.root.CreateAttr("width", strconv.Itoa(w))
	d.root.CreateAttr("height", strconv.Itoa(h))
}

// Resize applies one option to an SVG document by rewriting width, height and
// viewBox. Unparseable input is returned unchanged with Result.Unchanged set.
// An unknown method or a FixedSize/Crop option without positive dimensions
// is an error.
func Resize(content []byte, opt thumbnail.Option) (Result, error) {
	d, ok := parse(content)
	if !ok {
		return Result{Content: content, Unchanged: true}, nil
	}

	vb := d.ensureViewBox()
	curW, curH := d.effectiveSize(vb)
	spec := geometry.SpecFor(opt, curW, curH)

	var res Result
	switch opt.Method {
	case thumbnail.MethodFixedSize, thumbnail.MethodFixedWidth, thumbnail.MethodFixedHeight:
		layout, err := geometry.Plan(curW, curH, spec)
		if err != nil {
			return Result{}, err
		}
		d.setSize(layout.CanvasWidth, layout.CanvasHeight)
		res = Result{Width: layout.CanvasWidth, Height: layout.CanvasHeight, ViewBox: vb, Scale: layout.Scale}

	case thumbnail.MethodCrop:
		if spec.Width <= 0 || spec.Height <= 0 {
			return Result{}, fmt.Errorf("%w: crop needs width and height, got %dx%d",
				geometry.ErrInvalidDimensions, spec.Width, spec.Height)
		}
		cropped := cropViewBox(vb, float64(spec.Width), float64(spec.Height), spec.Anchor)
		d.root.CreateAttr("viewBox", cropped.String())
		d.setSize(spec.Width, spec.Height)
		res = Result{Width: spec.Width, Height: spec.Height, ViewBox: cropped, Scale: 1}

	default:
		return Result{}, fmt.Errorf("%w: %q", geometry.ErrUnsupportedMethod, opt.Method)
	}

	out, err := d.doc.WriteToBytes()
	if err != nil {
		return Result{}, fmt.Errorf("failed to serialize svg: %w", err)
	}
	res.Content = out
	return res, nil
}

// cropViewBox shrinks vb to the target region around the anchor. The region
// never grows past the current content box, and each axis is clamped on its
// own, width first.
func cropViewBox(vb ViewBox, targetW, targetH float64, anchor thumbnail.Anchor) ViewBox {
	cropW := min(targetW, vb.Width)
	cropH := min(targetH, vb.Height)

	x, y := geometry.AnchorOffset(anchor, vb.Width-cropW, vb.Height-cropH)
	x = geometry.Clamp(x, vb.Width-cropW)
	y = geometry.Clamp(y, vb.Height-cropH)

	return ViewBox{
		MinX:   vb.MinX + x,
		MinY:   vb.MinY + y,
		Width:  cropW,
		Height: cropH,
	}
}
