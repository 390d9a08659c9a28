package svg

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultDimension is used when neither width/height nor a viewBox say how
// big the drawing is.
const DefaultDimension = 100

// leadingNumber matches the numeric prefix of a length such as "12.5px".
// The exponent needs digits so "2em" parses as 2.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ViewBox is the parsed form of the viewBox attribute.
type ViewBox struct {
	MinX, MinY    float64
	Width, Height float64
}

// ParseViewBox parses "minX minY width height"; commas and any whitespace
// separate the numbers. Width and height must be positive.
func ParseViewBox(s string) (ViewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, false
	}

	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return ViewBox{}, false
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return ViewBox{}, false
	}

	return ViewBox{MinX: v[0], MinY: v[1], Width: v[2], Height: v[3]}, true
}

// String formats the viewBox with the shortest exact number representation.
func (v ViewBox) String() string {
	return formatNumber(v.MinX) + " " + formatNumber(v.MinY) + " " +
		formatNumber(v.Width) + " " + formatNumber(v.Height)
}

func formatNumber(f float64) string {
	if f == 0 {
		// Avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseDimension reads a width or height attribute. Trailing units are
// stripped and the value is rounded to the nearest integer. Values that do
// not start with a positive number are reported as missing.
func ParseDimension(s string) (int, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}

	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	rounded := int(math.Round(n))
	if rounded <= 0 {
		return 0, false
	}
	return rounded, true
}
