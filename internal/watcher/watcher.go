package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"thumbsweep/internal/changes"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/thumbnail"
)

// DefaultDebounce is how long the watcher waits after the last event before
// it queues a run.
const DefaultDebounce = 2 * time.Second

// Enqueuer accepts run requests.
type Enqueuer interface {
	Enqueue(req runner.Request) bool
}

// TaskLister lists the configured tasks.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]thumbnail.Task, error)
}

// URLMapper converts absolute paths below the store root into blob URLs.
type URLMapper interface {
	Root() string
	URLFor(fullPath string) (string, error)
}

// Config wires a Watcher to the rest of the service.
type Config struct {
	Store    URLMapper
	Tasks    TaskLister
	Options  changes.OptionLookup
	Allowed  changes.AllowList
	Runner   Enqueuer
	Debounce time.Duration
}

type eventKind int

const (
	kindFile eventKind = iota
	kindDir
	kindRemoved
)

// Watcher watches the store root recursively.
type Watcher struct {
	cfg Config
	fs  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]eventKind
	timer   *time.Timer
	ctx     context.Context
	stopped bool

	wg sync.WaitGroup
}

// New creates a watcher. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	if cfg.Store == nil || cfg.Tasks == nil || cfg.Options == nil || cfg.Runner == nil {
		return nil, errors.New("watcher: store, tasks, options and runner are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		fs:      fsw,
		pending: make(map[string]eventKind),
	}, nil
}

// Start adds every directory under the store root and begins processing
// events. ctx bounds the task and option lookups made when a batch flushes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	count, err := w.addTree(w.cfg.Store.Root())
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Store.Root(), err)
	}
	logging.Info("Watcher started, watching %d directories", count)
	metrics.WatchedDirectories.Set(float64(count))

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop closes the underlying watcher and drops any unflushed events.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = make(map[string]eventKind)
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	metrics.WatchedDirectories.Set(0)
	return err
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fs.Add(p); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", p, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	url, err := w.cfg.Store.URLFor(event.Name)
	if err != nil || url == "" || hidden(url) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			n, err := w.addTree(event.Name)
			if err != nil {
				logging.Warn("failed to watch new directory %s: %v", event.Name, err)
				metrics.WatcherErrors.Inc()
			}
			if n > 0 {
				logging.Debug("Added %d new directories to watcher under %s", n, url)
				metrics.WatchedDirectories.Add(float64(n))
			}
			w.record(url, kindDir)
			return
		}
		w.recordFile(url, kindFile)

	case event.Has(fsnotify.Write):
		w.recordFile(url, kindFile)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.recordFile(url, kindRemoved)
	}
}

// hidden reports whether any segment of a store URL starts with a dot. The
// store root itself may live under a dot folder.
func hidden(url string) bool {
	for _, seg := range strings.Split(url, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (w *Watcher) recordFile(url string, kind eventKind) {
	if w.cfg.Allowed != nil && !w.cfg.Allowed.IsAllowed(url) {
		return
	}
	w.record(url, kind)
}

// record adds url to the pending batch and restarts the debounce timer.
func (w *Watcher) record(url string, kind eventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	// A file that is written and removed in one window counts as whatever
	// happened last.
	w.pending[url] = kind

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]eventKind)
	ctx := w.ctx
	w.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	tasks, err := w.cfg.Tasks.ListTasks(ctx)
	if err != nil {
		logging.Error("Watcher: failed to list tasks: %v", err)
		return
	}
	options, err := w.cfg.Options.SearchAll(ctx, thumbnail.OptionCriteria{})
	if err != nil {
		logging.Error("Watcher: failed to load options: %v", err)
		return
	}

	ids := affectedTasks(batch, tasks, thumbnail.SortedSuffixes(options))
	if len(ids) == 0 {
		return
	}

	logging.Info("Watcher: %d change(s) affect task(s) %s", len(batch), strings.Join(ids, ", "))
	if !w.cfg.Runner.Enqueue(runner.Request{TaskIDs: ids, Trigger: runner.TriggerEvent}) {
		logging.Debug("Watcher: runner stopped, dropping event batch")
	}
}

// affectedTasks returns the sorted ids of tasks that contain at least one
// relevant url from batch.
func affectedTasks(batch map[string]eventKind, tasks []thumbnail.Task, suffixes []string) []string {
	hit := make(map[string]bool)
	for url, kind := range batch {
		derivative := thumbnail.IsDerivative(path.Base(url), suffixes)
		switch kind {
		case kindFile:
			if derivative {
				continue
			}
		case kindRemoved:
			if !derivative {
				continue
			}
		}

		for _, t := range tasks {
			if hit[t.ID] {
				continue
			}
			if within(t.WorkPath, url) || (kind == kindDir && within(url, t.WorkPath)) {
				hit[t.ID] = true
			}
		}
	}

	ids := make([]string, 0, len(hit))
	for id := range hit {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// within reports whether url is folder itself or lies below it.
func within(folder, url string) bool {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return true
	}
	return url == folder || strings.HasPrefix(url, folder+"/")
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
