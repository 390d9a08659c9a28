package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbsweep_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbsweep_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	TasksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_tasks_total",
			Help: "Number of configured thumbnail tasks",
		},
	)

	OptionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_options_total",
			Help: "Number of configured thumbnail options",
		},
	)
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_runs_total",
			Help: "Total number of generation runs by trigger and outcome",
		},
		[]string{"trigger", "status"}, // trigger: "sweep", "event", "manual"; status: "success", "error", "cancelled"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbsweep_run_duration_seconds",
			Help:    "Duration of generation runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_run_in_progress",
			Help: "Whether a generation run is currently executing (1 = running, 0 = idle)",
		},
	)

	RunLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_run_last_timestamp",
			Help: "Unix timestamp of the last completed run",
		},
	)

	RunQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_run_queue_length",
			Help: "Number of run requests waiting to execute",
		},
	)

	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_items_processed_total",
			Help: "Total number of changed originals processed by the orchestrator",
		},
		[]string{"status"}, // "ok", "failed", "unhandled"
	)
)

// Generation metrics
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_generations_total",
			Help: "Total number of derivative generations",
		},
		[]string{"engine", "method", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbsweep_generation_duration_seconds",
			Help:    "Time to generate all derivatives of one source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"engine"},
	)

	SourceDecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_source_decode_total",
			Help: "Source image decodes by format and decoder",
		},
		[]string{"format", "decoder"}, // decoder: "imaging", "vips"
	)

	SourceDecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_source_decode_errors_total",
			Help: "Source images that could not be loaded",
		},
		[]string{"engine"},
	)

	SVGSoftFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_svg_soft_failures_total",
			Help: "SVG sources returned unmodified because they could not be parsed",
		},
	)
)

// Change detector metrics
var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_scans_total",
			Help: "Total number of storage scans performed by the change detector",
		},
		[]string{"status"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbsweep_scan_duration_seconds",
			Help:    "Storage scan and diff duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	ScanFoldersVisited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_scan_folders_visited_total",
			Help: "Folders enumerated by the change detector",
		},
	)

	ScanFilesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_scan_files_classified_total",
			Help: "Files classified by the change detector",
		},
		[]string{"class"}, // "derivative", "Added", "Modified", "Unchanged"
	)
)

// Diff cache metrics
var (
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_diff_cache_hits_total",
			Help: "Change detector lookups served from the diff cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_diff_cache_misses_total",
			Help: "Change detector lookups that had to scan storage",
		},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_diff_cache_invalidations_total",
			Help: "Diff cache entries removed",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_diff_cache_entries",
			Help: "Diff cache entries currently held",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_filesystem_retry_attempts_total",
			Help: "Retries issued after a stale file handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbsweep_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration including retries",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_memory_paused",
			Help: "Whether generation is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_memory_gc_pauses_total",
			Help: "Times generation was paused for memory pressure",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbsweep_watcher_events_total",
			Help: "Filesystem events seen by the blob-created trigger",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbsweep_watcher_errors_total",
			Help: "Filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbsweep_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbsweep_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
