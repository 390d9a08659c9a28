package formats

import (
	"path"
	"sort"
	"strings"
)

// RasterExtensions are the pixel formats the raster engine can both read and
// write back in the same format.
var RasterExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// VectorExtensions are handled by the SVG engine.
var VectorExtensions = map[string]bool{
	".svg": true,
}

var mimeTypes = map[string]string{
	".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png",
	".gif": "image/gif", ".bmp": "image/bmp", ".webp": "image/webp",
	".tif": "image/tiff", ".tiff": "image/tiff", ".svg": "image/svg+xml",
}

// Ext returns the lower-cased extension of a URL, including the dot.
func Ext(url string) string {
	return strings.ToLower(path.Ext(url))
}

// GetMimeType returns the MIME type for an extension.
func GetMimeType(ext string) string {
	if mime, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// DefaultExtensions is every extension some engine supports, sorted.
func DefaultExtensions() []string {
	exts := make([]string, 0, len(RasterExtensions)+len(VectorExtensions))
	for ext := range RasterExtensions {
		exts = append(exts, ext)
	}
	for ext := range VectorExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ParseList splits a comma or space separated extension list such as
// "jpg, .PNG svg" into normalized ".ext" form. Duplicates are dropped.
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })

	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		ext := normalize(f)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

func normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Service is the allow-list consulted before any engine sees a file.
type Service struct {
	allowed map[string]bool
}

// NewService builds an allow-list. An empty list allows DefaultExtensions.
func NewService(extensions []string) *Service {
	if len(extensions) == 0 {
		extensions = DefaultExtensions()
	}
	allowed := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		if ext := normalize(e); ext != "" {
			allowed[ext] = true
		}
	}
	return &Service{allowed: allowed}
}

// IsAllowed reports whether the URL's extension is on the allow-list.
func (s *Service) IsAllowed(url string) bool {
	return s.allowed[Ext(url)]
}

// Extensions returns the allow-list, sorted.
func (s *Service) Extensions() []string {
	out := make([]string, 0, len(s.allowed))
	for ext := range s.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
