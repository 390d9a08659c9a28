package router

import (
	"context"
	"fmt"
	"io"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/logging"
)

func readSource(ctx context.Context, store blobstore.Store, url string) ([]byte, error) {
	r, err := store.OpenRead(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logging.Warn("failed to close source %s: %v", url, err)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}

// writeDerivative stores a fully encoded derivative.
func writeDerivative(ctx context.Context, store blobstore.Store, url string, data []byte) error {
	w, err := store.OpenWrite(ctx, url)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", url, err)
	}
	return w.Close()
}
