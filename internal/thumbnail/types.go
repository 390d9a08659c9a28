package thumbnail

import (
	"fmt"
	"strings"
	"time"
)

// Method is the resize method an option applies.
type Method string

const (
	// MethodFixedSize fits the image inside width x height and pads the rest.
	MethodFixedSize Method = "FixedSize"
	// MethodFixedWidth scales to the target width, height follows the aspect ratio.
	MethodFixedWidth Method = "FixedWidth"
	// MethodFixedHeight scales to the target height, width follows the aspect ratio.
	MethodFixedHeight Method = "FixedHeight"
	// MethodCrop fills width x height and crops the overflow around the anchor.
	MethodCrop Method = "Crop"
)

// Valid reports whether m is one of the four supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodFixedSize, MethodFixedWidth, MethodFixedHeight, MethodCrop:
		return true
	}
	return false
}

// ParseMethod accepts method names case-insensitively.
func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{MethodFixedSize, MethodFixedWidth, MethodFixedHeight, MethodCrop} {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown resize method %q", s)
}

// Anchor is one of the nine reference points of a 3x3 grid.
type Anchor string

// Anchor positions. Center on both axes is plain Center.
const (
	AnchorTopLeft     Anchor = "TopLeft"
	AnchorTop         Anchor = "Top"
	AnchorTopRight    Anchor = "TopRight"
	AnchorLeft        Anchor = "Left"
	AnchorCenter      Anchor = "Center"
	AnchorRight       Anchor = "Right"
	AnchorBottomLeft  Anchor = "BottomLeft"
	AnchorBottom      Anchor = "Bottom"
	AnchorBottomRight Anchor = "BottomRight"
)

// Anchors lists every anchor in row-major order.
var Anchors = []Anchor{
	AnchorTopLeft, AnchorTop, AnchorTopRight,
	AnchorLeft, AnchorCenter, AnchorRight,
	AnchorBottomLeft, AnchorBottom, AnchorBottomRight,
}

// ParseAnchor accepts anchor names case-insensitively. An empty string is Center.
func ParseAnchor(s string) (Anchor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AnchorCenter, nil
	}
	for _, a := range Anchors {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown anchor position %q", s)
}

// Align describes where an anchor sits on one axis.
type Align int

// Alignments along a single axis.
const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// Axes splits the anchor into its horizontal and vertical alignment.
// Unknown values behave like Center.
func (a Anchor) Axes() (horizontal, vertical Align) {
	switch a {
	case AnchorTopLeft:
		return AlignStart, AlignStart
	case AnchorTop:
		return AlignCenter, AlignStart
	case AnchorTopRight:
		return AlignEnd, AlignStart
	case AnchorLeft:
		return AlignStart, AlignCenter
	case AnchorRight:
		return AlignEnd, AlignCenter
	case AnchorBottomLeft:
		return AlignStart, AlignEnd
	case AnchorBottom:
		return AlignCenter, AlignEnd
	case AnchorBottomRight:
		return AlignEnd, AlignEnd
	default:
		return AlignCenter, AlignCenter
	}
}

// DefaultQuality is used when an option leaves Quality at zero.
const DefaultQuality = 90

// Option is one derivative definition.
type Option struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Suffix          string  `json:"suffix"`
	Method          Method  `json:"method"`
	Width           *int    `json:"width,omitempty"`
	Height          *int    `json:"height,omitempty"`
	BackgroundColor *string `json:"backgroundColor,omitempty"`
	Anchor          Anchor  `json:"anchor"`
	Quality         int     `json:"quality"`
}

// EncodeQuality returns Quality clamped to 1..100, or DefaultQuality when unset.
func (o Option) EncodeQuality() int {
	switch {
	case o.Quality <= 0:
		return DefaultQuality
	case o.Quality > 100:
		return 100
	default:
		return o.Quality
	}
}

// OptionCriteria narrows an option search. Empty fields match everything.
type OptionCriteria struct {
	IDs    []string
	Suffix string
}

// Task identifies one storage subtree to process.
type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	WorkPath  string     `json:"workPath"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	OptionIDs []string   `json:"optionIds"`
}

// ChangeType classifies an original relative to the last run.
type ChangeType string

// Change classifications.
const (
	ChangeAdded     ChangeType = "Added"
	ChangeModified  ChangeType = "Modified"
	ChangeUnchanged ChangeType = "Unchanged"
)

// ImageChange is produced by the change detector for one original file.
type ImageChange struct {
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	ModifiedAt time.Time  `json:"modifiedAt"`
	Change     ChangeType `json:"change"`
}

// GenerationResult is the outcome of generating every option for one source.
type GenerationResult struct {
	SourceURL     string   `json:"sourceUrl"`
	GeneratedURLs []string `json:"generatedUrls"`
	Errors        []string `json:"errors,omitempty"`
}

// AddError records a failure for the derivative at url.
func (r *GenerationResult) AddError(url string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", url, err))
}

// TaskProgress is the running state exposed to observers during a run.
type TaskProgress struct {
	RunID          string    `json:"runId"`
	Message        string    `json:"message"`
	TotalCount     int       `json:"totalCount"`
	ProcessedCount int       `json:"processedCount"`
	Errors         []string  `json:"errors"`
	StartedAt      time.Time `json:"startedAt"`
	Done           bool      `json:"done"`
}

// Snapshot returns a copy that is safe to hand to another goroutine.
func (p TaskProgress) Snapshot() TaskProgress {
	p.Errors = append([]string(nil), p.Errors...)
	return p
}

// IntPtr is a small helper for building options in code and tests.
func IntPtr(v int) *int {
	return &v
}
