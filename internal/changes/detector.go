package changes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/diffcache"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/thumbnail"
	"thumbsweep/internal/workers"
)

// ErrCountUnsupported is returned by detectors that cannot report a total
// ahead of paging. The orchestrator then runs without a total.
var ErrCountUnsupported = errors.New("change count not supported")

// OptionLookup finds configured thumbnail options.
type OptionLookup interface {
	SearchAll(ctx context.Context, criteria thumbnail.OptionCriteria) ([]thumbnail.Option, error)
}

// AllowList is the extension allow-list applied to every enumerated file.
type AllowList interface {
	IsAllowed(url string) bool
}

// Detector computes and memoizes the change set of a task.
type Detector struct {
	store   blobstore.Store
	options OptionLookup
	allowed AllowList
	cache   *diffcache.Cache[[]thumbnail.ImageChange]
	workers int
}

// NewDetector creates a detector. A nil cache gets a private one.
func NewDetector(store blobstore.Store, options OptionLookup, allowed AllowList, cache *diffcache.Cache[[]thumbnail.ImageChange]) *Detector {
	if cache == nil {
		cache = diffcache.New[[]thumbnail.ImageChange]()
	}
	return &Detector{
		store:   store,
		options: options,
		allowed: allowed,
		cache:   cache,
		workers: workers.ForIO(16),
	}
}

// SetWorkers overrides the number of folders scanned concurrently.
func (d *Detector) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	d.workers = n
}

// GetChanges returns a page of the task's changes. A nil changedSince
// classifies every original as Added. take <= 0 returns everything from
// skip onward.
func (d *Detector) GetChanges(ctx context.Context, task thumbnail.Task, changedSince *time.Time, skip, take int) ([]thumbnail.ImageChange, error) {
	all, err := d.changes(ctx, task, changedSince)
	if err != nil {
		return nil, err
	}

	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return nil, nil
	}
	end := len(all)
	if take > 0 && skip+take < end {
		end = skip + take
	}

	page := make([]thumbnail.ImageChange, end-skip)
	copy(page, all[skip:end])
	return page, nil
}

// GetChangeCount returns the number of changes GetChanges would page through.
func (d *Detector) GetChangeCount(ctx context.Context, task thumbnail.Task, changedSince *time.Time) (int, error) {
	all, err := d.changes(ctx, task, changedSince)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Invalidate drops the memoized result for the task and timestamp, for any
// option set.
func (d *Detector) Invalidate(task thumbnail.Task, changedSince *time.Time) {
	prefix := keyPrefix(task.WorkPath, changedSince)
	if n := d.cache.InvalidateFunc(func(k string) bool { return strings.HasPrefix(k, prefix) }); n > 0 {
		logging.Debug("Change detector: invalidated %d cached scan(s) for %s", n, task.WorkPath)
	}
}

// InvalidateAll drops every memoized result. Wired to option changes.
func (d *Detector) InvalidateAll() {
	if n := d.cache.InvalidateAll(); n > 0 {
		logging.Debug("Change detector: invalidated all %d cached scan(s)", n)
	}
}

func (d *Detector) changes(ctx context.Context, task thumbnail.Task, changedSince *time.Time) ([]thumbnail.ImageChange, error) {
	all, err := d.options.SearchAll(ctx, thumbnail.OptionCriteria{})
	if err != nil {
		return nil, fmt.Errorf("failed to load thumbnail options: %w", err)
	}

	required := taskOptions(task, all)
	key := cacheKey(task.WorkPath, changedSince, thumbnail.SortedSuffixes(required))

	return d.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]thumbnail.ImageChange, error) {
		return d.scan(ctx, task, changedSince, thumbnail.SortedSuffixes(all), thumbnail.SortedSuffixes(required))
	})
}

// taskOptions returns the task's options in task order, or every option when
// the task names none.
func taskOptions(task thumbnail.Task, all []thumbnail.Option) []thumbnail.Option {
	if len(task.OptionIDs) == 0 {
		return all
	}
	byID := make(map[string]thumbnail.Option, len(all))
	for _, o := range all {
		byID[o.ID] = o
	}
	out := make([]thumbnail.Option, 0, len(task.OptionIDs))
	for _, id := range task.OptionIDs {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

func keyPrefix(workPath string, changedSince *time.Time) string {
	since := ""
	if changedSince != nil {
		since = changedSince.UTC().Format(time.RFC3339Nano)
	}
	return workPath + "|" + since + "|"
}

func cacheKey(workPath string, changedSince *time.Time, suffixes []string) string {
	return keyPrefix(workPath, changedSince) + strings.Join(suffixes, ",")
}

// scan enumerates the work path and classifies every original.
func (d *Detector) scan(ctx context.Context, task thumbnail.Task, changedSince *time.Time, allSuffixes, required []string) ([]thumbnail.ImageChange, error) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.ScansTotal.WithLabelValues(status).Inc()
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	files, err := d.enumerate(ctx, task.WorkPath)
	if err != nil {
		status = "error"
		if ctx.Err() != nil {
			status = "cancelled"
		}
		return nil, err
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.URL] = true
	}

	var changed []thumbnail.ImageChange
	for _, f := range files {
		if !d.allowed.IsAllowed(f.URL) {
			continue
		}
		if thumbnail.IsDerivative(f.Name, allSuffixes) {
			metrics.ScanFilesClassified.WithLabelValues("derivative").Inc()
			continue
		}

		kind := classify(f, changedSince, required, present)
		metrics.ScanFilesClassified.WithLabelValues(string(kind)).Inc()
		if kind == thumbnail.ChangeUnchanged {
			continue
		}

		changed = append(changed, thumbnail.ImageChange{
			Name:       f.Name,
			URL:        f.URL,
			ModifiedAt: f.ModifiedAt,
			Change:     kind,
		})
	}

	sort.Slice(changed, func(i, j int) bool { return changed[i].URL < changed[j].URL })

	logging.Info("Scanned %s: %d file(s), %d change(s) in %v",
		displayPath(task.WorkPath), len(files), len(changed), time.Since(start))

	return changed, nil
}

func classify(f blobstore.Entry, changedSince *time.Time, required []string, present map[string]bool) thumbnail.ChangeType {
	if changedSince == nil {
		return thumbnail.ChangeAdded
	}
	for _, suffix := range required {
		if !present[thumbnail.DerivativeURL(f.URL, suffix)] {
			return thumbnail.ChangeAdded
		}
	}
	if !f.ModifiedAt.Before(*changedSince) {
		return thumbnail.ChangeModified
	}
	return thumbnail.ChangeUnchanged
}

func displayPath(workPath string) string {
	if workPath == "" {
		return "/"
	}
	return workPath
}
