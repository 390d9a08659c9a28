package changes

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/metrics"
)

type collector struct {
	mu    sync.Mutex
	files []blobstore.Entry
}

func (c *collector) add(entries []blobstore.Entry) {
	c.mu.Lock()
	c.files = append(c.files, entries...)
	c.mu.Unlock()
}

// enumerate lists every file below root. Each subfolder is scanned on its
// own goroutine while the worker limit allows, and inline otherwise.
func (d *Detector) enumerate(ctx context.Context, root string) ([]blobstore.Entry, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	c := &collector{}
	g.Go(func() error {
		return d.walk(gctx, g, root, c)
	})

	if err := g.Wait(); err != nil {
		// Report cancellation of the caller as-is, not the group's derived error
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return c.files, nil
}

func (d *Detector) walk(ctx context.Context, g *errgroup.Group, folder string, c *collector) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	listing, err := d.store.Search(ctx, folder, "")
	if err != nil {
		return err
	}
	metrics.ScanFoldersVisited.Inc()
	c.add(listing.Files)

	for _, sub := range listing.Subfolders {
		fn := func() error { return d.walk(ctx, g, sub, c) }
		if !g.TryGo(fn) {
			if err := fn(); err != nil {
				return err
			}
		}
	}
	return nil
}
