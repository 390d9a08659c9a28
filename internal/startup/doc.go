// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - STORAGE_DIR: Blob store root holding originals and derivatives (default: /data)
//   - DATABASE_DIR: Directory for the SQLite task store (default: /database)
//   - PORT: HTTP server port for the API, health and metrics (default: 8080)
//   - BATCH_SIZE: Changed items fetched per page during a run (default: 50)
//   - SWEEP_ENABLED: Run a scheduled incremental sweep (default: true)
//   - SWEEP_SCHEDULE: Five-field cron schedule for the sweep (default: 0 */6 * * *)
//   - WATCH_ENABLED: Queue runs from filesystem events (default: true)
//   - WATCH_DEBOUNCE: Quiet period before a watched change queues a run (default: 2s)
//   - ALLOWED_EXTENSIONS: Comma-separated extensions eligible for thumbnails
//   - TASKS_FILE: Optional YAML task definitions synced at startup
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_REQUESTS: Log API requests (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - SCAN_WORKERS: Parallel folder listings during a scan
//   - MEMORY_LIMIT, MEMORY_RATIO, VIPS_MEMORY_RESERVE, GOMEMLIMIT: heap and libvips budget, see package memory
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
