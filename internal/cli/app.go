package cli

import (
	"context"
	"fmt"
	"time"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/changes"
	"thumbsweep/internal/database"
	"thumbsweep/internal/formats"
	"thumbsweep/internal/generator"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/media"
	"thumbsweep/internal/memory"
	"thumbsweep/internal/router"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/startup"
	"thumbsweep/internal/taskconfig"
	"thumbsweep/internal/workers"
)

// app is the generation pipeline shared by serve and run.
type app struct {
	config   *startup.Config
	db       *database.Database
	store    *blobstore.Local
	allowed  *formats.Service
	detector *changes.Detector
	monitor  *memory.Monitor
	runner   *runner.Runner
}

func openDatabase(ctx context.Context, config *startup.Config) (*database.Database, error) {
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))
	return db, nil
}

func importTasks(ctx context.Context, db *database.Database, path string) error {
	defs, err := taskconfig.Load(path)
	if err != nil {
		return err
	}
	if err := taskconfig.Sync(ctx, db, defs); err != nil {
		return err
	}
	startup.LogTaskImport(path, len(defs.Options), len(defs.Tasks))
	return nil
}

// newApp opens the task store, syncs TASKS_FILE when set and wires the
// detector, router, generator and runner together.
func newApp(ctx context.Context, config *startup.Config) (*app, error) {
	db, err := openDatabase(ctx, config)
	if err != nil {
		return nil, err
	}

	a := &app{config: config, db: db}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	if a.config.TasksFile != "" {
		if err := importTasks(ctx, a.db, a.config.TasksFile); err != nil {
			return err
		}
	}

	store, err := blobstore.NewLocal(a.config.StorageDir)
	if err != nil {
		return err
	}
	a.store = store
	a.allowed = formats.NewService(a.config.AllowedExtensions)

	vipsWorkers := workers.ForCPU(0)
	if err := media.InitVips(vipsWorkers); err != nil {
		logging.Warn("WebP output and HEIC/AVIF input are disabled: %v", err)
	}
	startup.LogGeneratorInit(a.allowed.Extensions(), a.config.BatchSize, vipsWorkers)

	rt := router.New(a.allowed)
	rt.Register(router.NewSVGHandler(store), router.PrioritySVG)
	rt.Register(router.NewRasterHandler(store), router.PriorityRaster)

	a.detector = changes.NewDetector(store, a.db, a.allowed, nil)
	a.db.OnOptionsChanged(a.detector.InvalidateAll)

	a.monitor = memory.NewMonitor(memory.DefaultConfig())

	gen := generator.New(generator.Config{
		Changes:   a.detector,
		Router:    rt,
		Options:   a.db,
		Tasks:     a.db,
		Pauser:    a.monitor,
		BatchSize: a.config.BatchSize,
	})

	a.runner = runner.New(gen, a.db)
	a.runner.OnSweepComplete(func(ctx context.Context, finished time.Time) {
		if err := a.db.SetLastSweep(ctx, finished); err != nil {
			logging.Warn("Failed to record sweep time: %v", err)
		}
	})
	return nil
}

// Close stops the runner and memory monitor and closes the database.
func (a *app) Close() {
	if a.runner != nil {
		a.runner.Stop()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if err := a.db.Close(); err != nil {
		logging.Warn("Failed to close database: %v", err)
	}
}
