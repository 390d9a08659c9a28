package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"thumbsweep/internal/formats"
	"thumbsweep/internal/generator"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/memory"
	"thumbsweep/internal/watcher"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// DefaultSweepSchedule runs an incremental sweep every six hours.
const DefaultSweepSchedule = "0 */6 * * *"

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	StorageDir        string
	DatabaseDir       string
	Port              string
	BatchSize         int
	SweepEnabled      bool
	SweepSchedule     string
	WatchEnabled      bool
	WatchDebounce     time.Duration
	AllowedExtensions []string
	TasksFile         string
	LogRequests       bool
	LogHealthChecks   bool

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	storageDir := getEnv("STORAGE_DIR", "/data")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	batchSize := getEnvInt("BATCH_SIZE", generator.DefaultBatchSize)
	sweepEnabled := getEnvBool("SWEEP_ENABLED", true)
	sweepSchedule := getEnv("SWEEP_SCHEDULE", DefaultSweepSchedule)
	watchEnabled := getEnvBool("WATCH_ENABLED", true)
	watchDebounceStr := getEnv("WATCH_DEBOUNCE", watcher.DefaultDebounce.String())
	allowedStr := getEnv("ALLOWED_EXTENSIONS", "")
	tasksFile := getEnv("TASKS_FILE", "")
	logRequests := getEnvBool("LOG_REQUESTS", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)

	logging.Info("  STORAGE_DIR:         %s", storageDir)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  BATCH_SIZE:          %d", batchSize)
	logging.Info("  SWEEP_ENABLED:       %v", sweepEnabled)
	logging.Info("  SWEEP_SCHEDULE:      %s", sweepSchedule)
	logging.Info("  WATCH_ENABLED:       %v", watchEnabled)
	logging.Info("  WATCH_DEBOUNCE:      %s", watchDebounceStr)
	logging.Info("  ALLOWED_EXTENSIONS:  %s", valueOrDefault(allowedStr))
	logging.Info("  TASKS_FILE:          %s", valueOrDefault(tasksFile))
	logging.Info("  LOG_REQUESTS:        %v", logRequests)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if batchSize <= 0 {
		logging.Warn("  Invalid BATCH_SIZE, using default: %d", generator.DefaultBatchSize)
		batchSize = generator.DefaultBatchSize
	}

	watchDebounce, err := time.ParseDuration(watchDebounceStr)
	if err != nil || watchDebounce <= 0 {
		logging.Warn("  Invalid WATCH_DEBOUNCE, using default: %s", watcher.DefaultDebounce)
		watchDebounce = watcher.DefaultDebounce
	}

	if sweepEnabled {
		if _, err := cron.ParseStandard(sweepSchedule); err != nil {
			return nil, fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", sweepSchedule, err)
		}
	}

	var allowed []string
	if allowedStr != "" {
		allowed = formats.ParseList(allowedStr)
		if len(allowed) == 0 {
			return nil, fmt.Errorf("ALLOWED_EXTENSIONS %q lists no extensions", allowedStr)
		}
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	storageDir, err = filepath.Abs(storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory path: %w", err)
	}
	logging.Info("  Storage directory (absolute): %s", storageDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	// Storage must exist and be writable; derivatives are written next to originals.
	if err := ensureDirectory(storageDir, "storage"); err != nil {
		return nil, fmt.Errorf("storage directory error: %w", err)
	}
	if err := testWriteAccess(storageDir); err != nil {
		return nil, fmt.Errorf("storage directory is not writable: %w", err)
	}
	logging.Info("  [OK] Storage directory is writable")

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if tasksFile != "" {
		tasksFile, err = filepath.Abs(tasksFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tasks file path: %w", err)
		}
	}

	config := &Config{
		StorageDir:        storageDir,
		DatabaseDir:       databaseDir,
		Port:              port,
		BatchSize:         batchSize,
		SweepEnabled:      sweepEnabled,
		SweepSchedule:     sweepSchedule,
		WatchEnabled:      watchEnabled,
		WatchDebounce:     watchDebounce,
		AllowedExtensions: allowed,
		TasksFile:         tasksFile,
		LogRequests:       logRequests,
		LogHealthChecks:   logHealthChecks,
		DatabasePath:      filepath.Join(databaseDir, "thumbsweep.db"),
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Sweep:    %s", enabledString(config.SweepEnabled))
	logging.Info("    Watcher:  %s", enabledString(config.WatchEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func valueOrDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogTaskImport logs the result of syncing a task definitions file
func LogTaskImport(path string, options, tasks int) {
	logging.Info("  [OK] Imported %d option(s) and %d task(s) from %s", options, tasks, path)
}

// LogMemoryConfig logs how the container limit was split between the Go heap
// and libvips
func LogMemoryConfig(budget memory.Budget) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !budget.Applied() {
		logging.Info("  GOMEMLIMIT:      not configured")
		return
	}

	logging.Info("  Source:          %s", budget.Source)
	logging.Info("  GOMEMLIMIT:      %s", memory.FormatBytes(budget.HeapLimit))
	if budget.ContainerLimit > 0 {
		logging.Info("  Container limit: %s (ratio %.2f)", memory.FormatBytes(budget.ContainerLimit), budget.Ratio)
		logging.Info("  libvips reserve: %s", memory.FormatBytes(budget.VipsReserve))
	}
}

// LogGeneratorInit logs the generation pipeline setup
func LogGeneratorInit(extensions []string, batchSize, vipsWorkers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("GENERATOR INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Extensions:      %s", strings.Join(extensions, ", "))
	logging.Info("  Batch size:      %d", batchSize)
	logging.Info("  libvips workers: %d", vipsWorkers)
}

// LogRunnerInit logs the run queue and its triggers
func LogRunnerInit(config *Config) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("RUNNER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if config.SweepEnabled {
		logging.Info("  Sweep schedule:  %s", config.SweepSchedule)
	} else {
		logging.Info("  Sweep:           DISABLED")
	}
	if config.WatchEnabled {
		logging.Info("  Watch debounce:  %s", config.WatchDebounce)
	} else {
		logging.Info("  Watcher:         DISABLED")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., the metrics handler)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the request logging switches and, at debug level, every
// registered route sorted by path
func LogHTTPRoutes(router *mux.Router, logRequests, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		sort.SliceStable(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  Request logging: %s", enabledString(logRequests))
	logging.Info("  Health checks:   %s", enabledString(logHealthChecks))
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	StartupDuration time.Duration
}

// LogServerStarted logs the listening port and the endpoints operators use
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED in %v", config.StartupDuration)
	logging.Info("------------------------------------------------------------")
	logging.Info("  Progress:        GET  :%s/api/progress", config.Port)
	logging.Info("  Trigger run:     POST :%s/api/run", config.Port)
	logging.Info("  Health:          GET  :%s/health", config.Port)
	logging.Info("  Metrics:         GET  :%s/metrics", config.Port)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
  _   _                     _
 | |_| |__  _   _ _ __ ___ | |__  _____      _____  ___ _ __
 | __| '_ \| | | | '_ ' _ \| '_ \/ __\ \ /\ / / _ \/ _ \ '_ \
 | |_| | | | |_| | | | | | | |_) \__ \\ V  V /  __/  __/ |_) |
  \__|_| |_|\__,_|_| |_| |_|_.__/|___/ \_/\_/ \___|\___| .__/
                                                       |_|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
