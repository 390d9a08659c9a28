package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"thumbsweep/internal/generator"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/thumbnail"
)

// Triggers label where a run request came from.
const (
	TriggerSweep  = "sweep"
	TriggerEvent  = "event"
	TriggerManual = "manual"
)

// Processor runs generation over a set of tasks.
type Processor interface {
	ProcessTasks(ctx context.Context, tasks []thumbnail.Task, regenerate bool, progress generator.ProgressFunc) error
}

// TaskSource resolves the tasks a request names.
type TaskSource interface {
	ListTasks(ctx context.Context) ([]thumbnail.Task, error)
	GetTasks(ctx context.Context, ids []string) ([]thumbnail.Task, error)
}

// Request asks for one run. An empty TaskIDs means every task.
type Request struct {
	TaskIDs    []string `json:"taskIds"`
	Regenerate bool     `json:"regenerate"`
	Trigger    string   `json:"-"`
}

func (r Request) all() bool { return len(r.TaskIDs) == 0 }

// merge folds o into r. Both must share the Regenerate flag.
func (r Request) merge(o Request) Request {
	if r.all() || o.all() {
		r.TaskIDs = nil
		return r
	}
	seen := make(map[string]bool, len(r.TaskIDs)+len(o.TaskIDs))
	var ids []string
	for _, id := range append(append([]string{}, r.TaskIDs...), o.TaskIDs...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	r.TaskIDs = ids
	return r
}

// Runner owns the run queue.
type Runner struct {
	proc  Processor
	tasks TaskSource

	mu       sync.Mutex
	queue    []Request
	progress thumbnail.TaskProgress
	hasRun   bool
	running  bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	cron      *cron.Cron
	onSweep   func(ctx context.Context, finished time.Time)
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a stopped runner.
func New(proc Processor, tasks TaskSource) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		proc:   proc,
		tasks:  tasks,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// OnSweepComplete registers fn to run after each successful sweep.
func (r *Runner) OnSweepComplete(fn func(ctx context.Context, finished time.Time)) {
	r.onSweep = fn
}

// EnableSweep schedules a full incremental run on a standard five-field cron
// schedule. Call before Start.
func (r *Runner) EnableSweep(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		r.Enqueue(Request{Trigger: TriggerSweep})
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	r.cron = c
	logging.Info("Scheduled sweep: %s", schedule)
	return nil
}

// Start launches the worker and the sweep schedule.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.loop()
		if r.cron != nil {
			r.cron.Start()
		}
	})
}

// Stop cancels the in-flight run, drops pending requests and waits for the
// worker to exit.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		if r.cron != nil {
			<-r.cron.Stop().Done()
		}
		r.cancel()
		if r.started.Load() {
			<-r.done
		}

		r.mu.Lock()
		r.queue = nil
		metrics.RunQueueLength.Set(0)
		r.mu.Unlock()
	})
}

// Enqueue adds a request, merging it with a pending request that has the
// same Regenerate flag. It returns false once the runner is stopped.
func (r *Runner) Enqueue(req Request) bool {
	if r.ctx.Err() != nil {
		return false
	}
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}

	r.mu.Lock()
	merged := false
	for i, pending := range r.queue {
		if pending.Regenerate == req.Regenerate {
			r.queue[i] = pending.merge(req)
			merged = true
			break
		}
	}
	if !merged {
		r.queue = append(r.queue, req)
	}
	metrics.RunQueueLength.Set(float64(len(r.queue)))
	r.mu.Unlock()

	if merged {
		logging.Debug("Run request (%s) merged into a pending run", req.Trigger)
	}

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// Progress returns the latest progress and whether any run has reported yet.
func (r *Runner) Progress() (thumbnail.TaskProgress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress.Snapshot(), r.hasRun
}

// IsRunning reports whether a run is executing.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Pending returns the number of queued requests.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		req, ok := r.next()
		if !ok {
			return
		}
		if err := r.execute(r.ctx, req); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Run (%s) failed: %v", req.Trigger, err)
		}
	}
}

func (r *Runner) next() (Request, bool) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			req := r.queue[0]
			r.queue = r.queue[1:]
			metrics.RunQueueLength.Set(float64(len(r.queue)))
			r.mu.Unlock()
			return req, true
		}
		r.mu.Unlock()

		select {
		case <-r.wake:
		case <-r.ctx.Done():
			return Request{}, false
		}
	}
}

// RunNow executes req on the calling goroutine, bypassing the queue. Used by
// one-shot CLI runs.
func (r *Runner) RunNow(ctx context.Context, req Request) error {
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}
	return r.execute(ctx, req)
}

func (r *Runner) execute(ctx context.Context, req Request) (err error) {
	start := time.Now()

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	metrics.RunInProgress.Set(1)

	defer func() {
		status := "success"
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = "cancelled"
		case err != nil:
			status = "error"
		}
		metrics.RunsTotal.WithLabelValues(req.Trigger, status).Inc()
		metrics.RunDuration.Observe(time.Since(start).Seconds())
		metrics.RunLastTimestamp.SetToCurrentTime()
		metrics.RunInProgress.Set(0)

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	tasks, err := r.resolve(ctx, req)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		logging.Info("Run (%s): no tasks configured", req.Trigger)
		return nil
	}

	err = r.proc.ProcessTasks(ctx, tasks, req.Regenerate, r.setProgress)
	if err == nil && req.Trigger == TriggerSweep && r.onSweep != nil {
		r.onSweep(ctx, time.Now())
	}
	return err
}

func (r *Runner) resolve(ctx context.Context, req Request) ([]thumbnail.Task, error) {
	if req.all() {
		return r.tasks.ListTasks(ctx)
	}
	return r.tasks.GetTasks(ctx, req.TaskIDs)
}

func (r *Runner) setProgress(p thumbnail.TaskProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = p
	r.hasRun = true
}
