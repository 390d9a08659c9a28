package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"thumbsweep/internal/filesystem"
	"thumbsweep/internal/logging"
)

// Local is a Store backed by a directory tree, typically an NFS or hostPath
// volume mounted into the container.
type Local struct {
	root  string
	retry filesystem.RetryConfig
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", abs, err)
	}
	return &Local{root: abs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the absolute directory backing the store.
func (l *Local) Root() string {
	return l.root
}

// CleanURL normalizes a blob URL: forward slashes, no leading slash, no dot
// segments. The root folder is "".
func CleanURL(url string) (string, error) {
	url = strings.ReplaceAll(url, "\\", "/")
	for _, seg := range strings.Split(url, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, url)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+url), "/")
	return cleaned, nil
}

// URLFor converts an absolute filesystem path below the root into a blob URL.
func (l *Local) URLFor(fullPath string) (string, error) {
	rel, err := filepath.Rel(l.root, fullPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is outside %s", ErrInvalidPath, fullPath, l.root)
	}
	return filepath.ToSlash(rel), nil
}

func (l *Local) resolve(url string) (string, string, error) {
	cleaned, err := CleanURL(url)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(cleaned)), cleaned, nil
}

// OpenRead opens a blob for reading.
func (l *Local) OpenRead(ctx context.Context, url string) (io.ReadCloser, error) {
	full, _, err := l.resolve(url)
	if err != nil {
		return nil, err
	}
	f, err := filesystem.OpenWithRetry(ctx, full, l.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	return f, nil
}

// OpenWrite creates a hidden temp file next to the target; Close renames it
// into place so readers never observe a partial derivative.
func (l *Local) OpenWrite(ctx context.Context, url string) (io.WriteCloser, error) {
	full, cleaned, err := l.resolve(url)
	if err != nil {
		return nil, err
	}
	if cleaned == "" {
		return nil, fmt.Errorf("%w: cannot write to the root folder", ErrInvalidPath)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create folder for %s: %w", url, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", url, err)
	}

	return &atomicWriter{ctx: ctx, file: tmp, target: full, retry: l.retry}, nil
}

type atomicWriter struct {
	ctx    context.Context
	file   *os.File
	target string
	retry  filesystem.RetryConfig
	failed bool
	closed bool
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		w.failed = true
	}
	return n, err
}

func (w *atomicWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	tmpName := w.file.Name()
	if err := w.file.Close(); err != nil {
		removeTemp(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if w.failed {
		removeTemp(tmpName)
		return fmt.Errorf("write to %s failed", w.target)
	}
	if err := filesystem.RenameWithRetry(w.ctx, tmpName, w.target, w.retry); err != nil {
		removeTemp(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", w.target, err)
	}
	return nil
}

func removeTemp(name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("failed to remove temp file %s: %v", name, err)
	}
}

// Search lists one folder level. Hidden entries are skipped.
func (l *Local) Search(ctx context.Context, folder, keyword string) (Listing, error) {
	full, cleaned, err := l.resolve(folder)
	if err != nil {
		return Listing{}, err
	}

	entries, err := filesystem.ReadDirWithRetry(ctx, full, l.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, fmt.Errorf("%w: folder %s", ErrNotFound, folder)
		}
		return Listing{}, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	keyword = strings.ToLower(keyword)
	var listing Listing

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		url := path.Join(cleaned, name)

		if entry.IsDir() {
			listing.Subfolders = append(listing.Subfolders, url)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(name), keyword) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Listing{}, fmt.Errorf("failed to stat %s: %w", url, err)
		}

		listing.Files = append(listing.Files, Entry{
			Name:       name,
			URL:        url,
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.Strings(listing.Subfolders)
	sort.Slice(listing.Files, func(i, j int) bool { return listing.Files[i].URL < listing.Files[j].URL })

	return listing, nil
}

// GetInfo stats a blob.
func (l *Local) GetInfo(ctx context.Context, url string) (Info, error) {
	full, cleaned, err := l.resolve(url)
	if err != nil {
		return Info{}, err
	}

	info, err := filesystem.StatWithRetry(ctx, full, l.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{URL: cleaned, Name: path.Base(cleaned)}, nil
		}
		return Info{}, fmt.Errorf("failed to stat %s: %w", url, err)
	}
	if info.IsDir() {
		return Info{URL: cleaned, Name: path.Base(cleaned)}, nil
	}

	return Info{
		Exists:     true,
		Name:       info.Name(),
		URL:        cleaned,
		ModifiedAt: info.ModTime().UTC(),
	}, nil
}
