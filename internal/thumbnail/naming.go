package thumbnail

import (
	"path"
	"sort"
	"strings"
)

// InsertBeforeExtension inserts token between the base name and the extension
// of a slash-separated URL: "a/photo.jpg" + "_sm" -> "a/photo_sm.jpg".
func InsertBeforeExtension(url, token string) string {
	ext := path.Ext(url)
	if ext == "" || strings.HasSuffix(url, "/") {
		return url + token
	}
	return strings.TrimSuffix(url, ext) + token + ext
}

// DerivativeURL returns where the derivative of original for suffix lives.
func DerivativeURL(original, suffix string) string {
	return InsertBeforeExtension(original, "_"+suffix)
}

// IsDerivative reports whether a file name carries any of the suffixes.
// The check is a plain substring match on "_" + suffix, so it also rejects
// names that only contain the token in the middle.
func IsDerivative(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if s == "" {
			continue
		}
		if strings.Contains(name, "_"+s) {
			return true
		}
	}
	return false
}

// SortedSuffixes returns the distinct non-empty suffixes of options, sorted.
func SortedSuffixes(options []Option) []string {
	seen := make(map[string]bool, len(options))
	out := make([]string, 0, len(options))
	for _, o := range options {
		if o.Suffix == "" || seen[o.Suffix] {
			continue
		}
		seen[o.Suffix] = true
		out = append(out, o.Suffix)
	}
	sort.Strings(out)
	return out
}
