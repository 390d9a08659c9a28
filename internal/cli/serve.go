package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"thumbsweep/internal/handlers"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/media"
	"thumbsweep/internal/memory"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/middleware"
	"thumbsweep/internal/runner"
	"thumbsweep/internal/startup"
	"thumbsweep/internal/watcher"
	"thumbsweep/internal/workers"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the sweep schedule and the storage watcher",
	Long: `Start the long-running service. Runs are queued from three places:

  sweep:  the SWEEP_SCHEDULE cron schedule (and once at startup)
  event:  new or changed originals seen by the storage watcher
  manual: POST /api/run {"taskIds":[],"regenerate":false}

Progress is available at GET /api/progress and Prometheus metrics at
GET /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	startTime := time.Now()

	startup.LogMemoryConfig(memory.ApplyBudget(workers.ForCPU(0)))

	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if servePort != "" {
		config.Port = servePort
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, config)
	if err != nil {
		return err
	}
	defer media.ShutdownVips()
	defer a.Close()

	a.monitor.Start()

	collector := metrics.NewCollector(a.db, time.Minute)
	collector.Start()
	defer collector.Stop()

	if config.SweepEnabled {
		if err := a.runner.EnableSweep(config.SweepSchedule); err != nil {
			return err
		}
	}
	startup.LogRunnerInit(config)
	a.runner.Start()
	if config.SweepEnabled {
		a.runner.Enqueue(runner.Request{Trigger: runner.TriggerSweep})
	}

	var w *watcher.Watcher
	if config.WatchEnabled {
		w, err = watcher.New(watcher.Config{
			Store:    a.store,
			Tasks:    a.db,
			Options:  a.db,
			Allowed:  a.allowed,
			Runner:   a.runner,
			Debounce: config.WatchDebounce,
		})
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			logging.Warn("Storage watcher disabled: %v", err)
			w = nil
		}
	}

	h := handlers.New(a.runner, a.db)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogRequests, config.LogHealthChecks)

	var handler http.Handler = router
	if config.LogRequests {
		loggingConfig := middleware.DefaultLoggingConfig()
		loggingConfig.LogHealthChecks = config.LogHealthChecks
		handler = middleware.Logger(loggingConfig)(handler)
	}

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	}

	shutdown(srv, w, a)
	return nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health and info
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/progress", h.GetProgress).Methods(http.MethodGet)
	api.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/options", h.ListOptions).Methods(http.MethodGet)
	api.HandleFunc("/run", h.TriggerRun).Methods(http.MethodPost)

	return r
}

func shutdown(srv *http.Server, w *watcher.Watcher, a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if w != nil {
		startup.LogShutdownStep("Stopping storage watcher")
		if err := w.Stop(); err != nil {
			logging.Warn("Watcher shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Storage watcher stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping runner")
	a.runner.Stop()
	startup.LogShutdownStepComplete("Runner stopped")

	startup.LogShutdownComplete()
}
