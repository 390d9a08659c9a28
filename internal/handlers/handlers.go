package handlers

import (
	"context"
	"time"

	"thumbsweep/internal/metrics"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/thumbnail"
)

// RunController is the part of the runner the API drives.
type RunController interface {
	Enqueue(req runner.Request) bool
	Progress() (thumbnail.TaskProgress, bool)
	IsRunning() bool
	Pending() int
}

// Store is the part of the task store the API reads.
type Store interface {
	ListTasks(ctx context.Context) ([]thumbnail.Task, error)
	GetTasks(ctx context.Context, ids []string) ([]thumbnail.Task, error)
	SearchAll(ctx context.Context, criteria thumbnail.OptionCriteria) ([]thumbnail.Option, error)
	GetLastSweep(ctx context.Context) (time.Time, error)
	GetStats() metrics.Stats
}

type Handlers struct {
	runner    RunController
	store     Store
	startTime time.Time
}

func New(r RunController, store Store) *Handlers {
	return &Handlers{
		runner:    r,
		store:     store,
		startTime: time.Now(),
	}
}
