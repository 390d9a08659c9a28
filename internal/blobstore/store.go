package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a URL does not name an existing blob or folder.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidPath is returned for URLs that escape the store root.
	ErrInvalidPath = errors.New("invalid blob path")
)

// Entry is a file returned by Search.
type Entry struct {
	Name       string
	URL        string
	ModifiedAt time.Time
}

// Listing is the result of a single-level folder search.
type Listing struct {
	Files      []Entry
	Subfolders []string // folder URLs, usable as the folder argument of Search
}

// Info describes a single blob. A missing blob is reported with Exists false
// and a nil error.
type Info struct {
	Exists     bool
	Name       string
	URL        string
	ModifiedAt time.Time
}

// Store is hierarchical blob storage addressed by slash-separated URLs
// relative to the store root.
type Store interface {
	OpenRead(ctx context.Context, url string) (io.ReadCloser, error)

	// OpenWrite returns a writer whose content becomes visible at url only
	// when Close returns nil.
	OpenWrite(ctx context.Context, url string) (io.WriteCloser, error)

	// Search lists the direct children of folder. Files are filtered to names
	// containing keyword (case-insensitive); an empty keyword matches all.
	Search(ctx context.Context, folder, keyword string) (Listing, error)

	GetInfo(ctx context.Context, url string) (Info, error)
}
