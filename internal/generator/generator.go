package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"thumbsweep/internal/changes"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/router"
	"thumbsweep/internal/thumbnail"
)

// DefaultBatchSize is the page size used when none is configured.
const DefaultBatchSize = 50

// ChangeSource pages through the changes of a task.
type ChangeSource interface {
	GetChanges(ctx context.Context, task thumbnail.Task, changedSince *time.Time, skip, take int) ([]thumbnail.ImageChange, error)

	// GetChangeCount may return changes.ErrCountUnsupported.
	GetChangeCount(ctx context.Context, task thumbnail.Task, changedSince *time.Time) (int, error)

	Invalidate(task thumbnail.Task, changedSince *time.Time)
}

// HandlerSelector picks the handler for a source URL.
type HandlerSelector interface {
	Select(ctx context.Context, url string) (router.Handler, bool)
}

// TaskStore records completed passes.
type TaskStore interface {
	UpdateLastRun(ctx context.Context, taskID string, lastRun time.Time) error
}

// Pauser blocks while generation should back off, e.g. under memory pressure.
type Pauser interface {
	WaitIfPaused(ctx context.Context) error
}

// ProgressFunc receives a snapshot of the run after each page.
type ProgressFunc func(thumbnail.TaskProgress)

// Generator is the orchestrator.
type Generator struct {
	changes   ChangeSource
	router    HandlerSelector
	options   changes.OptionLookup
	tasks     TaskStore
	pauser    Pauser
	batchSize int
	now       func() time.Time
}

// Config wires a Generator.
type Config struct {
	Changes   ChangeSource
	Router    HandlerSelector
	Options   changes.OptionLookup
	Tasks     TaskStore
	Pauser    Pauser // optional
	BatchSize int    // DefaultBatchSize when <= 0
}

// New creates a generator.
func New(cfg Config) *Generator {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Generator{
		changes:   cfg.Changes,
		router:    cfg.Router,
		options:   cfg.Options,
		tasks:     cfg.Tasks,
		pauser:    cfg.Pauser,
		batchSize: batch,
		now:       time.Now,
	}
}

// ProcessTasks generates derivatives for every change in tasks. With
// regenerate set, every original is treated as Added regardless of LastRun.
//
// Per-item failures are collected in the progress record. Storage and
// orchestration errors stop the run and are returned; cancellation returns
// ctx.Err() unwrapped.
func (g *Generator) ProcessTasks(ctx context.Context, tasks []thumbnail.Task, regenerate bool, progress ProgressFunc) (err error) {
	runStart := g.now().UTC()
	p := &thumbnail.TaskProgress{
		RunID:     uuid.NewString(),
		Message:   "Counting changes",
		StartedAt: runStart,
		Errors:    []string{},
	}
	report := func() {
		if progress != nil {
			progress(p.Snapshot())
		}
	}

	logging.Info("Run %s: processing %d task(s) (regenerate=%v)", p.RunID, len(tasks), regenerate)

	defer func() {
		p.Done = true
		switch {
		case err == nil:
			p.Message = fmt.Sprintf("Completed: %d item(s), %d error(s)", p.ProcessedCount, len(p.Errors))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			p.Message = "Cancelled"
		default:
			p.Message = fmt.Sprintf("Failed: %v", err)
		}
		report()
		logging.Info("Run %s: %s in %v", p.RunID, p.Message, time.Since(runStart))
	}()

	total, err := g.countChanges(ctx, tasks, regenerate)
	if err != nil {
		return err
	}
	p.TotalCount = total
	p.Message = "Processing"
	report()

	for _, task := range tasks {
		if err := g.processTask(ctx, task, changedSince(task, regenerate), runStart, p, report); err != nil {
			return err
		}
	}
	return nil
}

func changedSince(task thumbnail.Task, regenerate bool) *time.Time {
	if regenerate {
		return nil
	}
	return task.LastRun
}

// countChanges sums the change counts up front. A detector that cannot count
// leaves the total at zero.
func (g *Generator) countChanges(ctx context.Context, tasks []thumbnail.Task, regenerate bool) (int, error) {
	total := 0
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := g.changes.GetChangeCount(ctx, task, changedSince(task, regenerate))
		if errors.Is(err, changes.ErrCountUnsupported) {
			return 0, nil
		}
		if err != nil {
			return 0, contextOr(ctx, fmt.Errorf("failed to count changes for task %s: %w", task.ID, err))
		}
		total += n
	}
	return total, nil
}

func (g *Generator) processTask(ctx context.Context, task thumbnail.Task, since *time.Time, runStart time.Time, p *thumbnail.TaskProgress, report func()) error {
	defer g.changes.Invalidate(task, since)

	options, err := g.taskOptions(ctx, task)
	if err != nil {
		return contextOr(ctx, err)
	}
	if len(options) == 0 {
		logging.Warn("Task %s has no thumbnail options, skipping", task.ID)
		return nil
	}

	logging.Info("Task %s: scanning %q with %d option(s)", task.ID, task.WorkPath, len(options))

	skip := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := g.changes.GetChanges(ctx, task, since, skip, g.batchSize)
		if err != nil {
			return contextOr(ctx, fmt.Errorf("failed to list changes for task %s: %w", task.ID, err))
		}
		if len(page) == 0 {
			break
		}

		for _, item := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if g.pauser != nil {
				if err := g.pauser.WaitIfPaused(ctx); err != nil {
					return err
				}
			}
			g.processItem(ctx, item, options, p)
		}

		skip += len(page)
		p.Message = fmt.Sprintf("Processing %s", taskLabel(task))
		report()
	}

	if err := g.tasks.UpdateLastRun(ctx, task.ID, runStart); err != nil {
		return contextOr(ctx, fmt.Errorf("failed to record last run for task %s: %w", task.ID, err))
	}
	logging.Info("Task %s: completed, %d item(s) processed", task.ID, skip)
	return nil
}

func (g *Generator) processItem(ctx context.Context, item thumbnail.ImageChange, options []thumbnail.Option, p *thumbnail.TaskProgress) {
	p.ProcessedCount++

	h, ok := g.router.Select(ctx, item.URL)
	if !ok {
		metrics.ItemsProcessed.WithLabelValues("unhandled").Inc()
		p.Errors = append(p.Errors, fmt.Sprintf("%s: no handler", item.URL))
		logging.Warn("No handler for %s", item.URL)
		return
	}

	res := h.GenerateThumbnails(ctx, item.URL, options)
	if len(res.Errors) > 0 {
		metrics.ItemsProcessed.WithLabelValues("failed").Inc()
		p.Errors = append(p.Errors, res.Errors...)
		return
	}
	metrics.ItemsProcessed.WithLabelValues("ok").Inc()
	logging.Debug("%s (%s): %d derivative(s) via %s", item.URL, item.Change, len(res.GeneratedURLs), h.Name())
}

// taskOptions resolves the task's option ids in task order. A task without
// ids uses every configured option.
func (g *Generator) taskOptions(ctx context.Context, task thumbnail.Task) ([]thumbnail.Option, error) {
	found, err := g.options.SearchAll(ctx, thumbnail.OptionCriteria{IDs: task.OptionIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load options for task %s: %w", task.ID, err)
	}
	if len(task.OptionIDs) == 0 {
		return found, nil
	}

	byID := make(map[string]thumbnail.Option, len(found))
	for _, o := range found {
		byID[o.ID] = o
	}
	ordered := make([]thumbnail.Option, 0, len(task.OptionIDs))
	for _, id := range task.OptionIDs {
		o, ok := byID[id]
		if !ok {
			logging.Warn("Task %s references unknown option %s", task.ID, id)
			continue
		}
		ordered = append(ordered, o)
	}
	return ordered, nil
}

// contextOr prefers the context's own error so cancellation is never wrapped.
func contextOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func taskLabel(task thumbnail.Task) string {
	if task.Name != "" {
		return task.Name
	}
	return task.ID
}
