// Package metrics provides Prometheus instrumentation for thumbsweep.
//
// All metrics are registered through promauto and prefixed with
// "thumbsweep_". They are exposed on /metrics by the handlers package.
//
// # Metric Categories
//
//   - HTTP: request counts and latency for the control API
//   - Database: query counts and latency, configured task and option totals
//   - Run: orchestrator runs by trigger and outcome, items processed
//   - Generation: derivatives produced per engine and method, decode errors
//   - Change detector: scans, folders visited, files per classification
//   - Diff cache: hits, misses, invalidations and live entries
//   - Filesystem: NFS stale-handle retries per operation
//   - Memory: usage ratio and pause state of the memory monitor
//   - Watcher: filesystem events feeding the blob-created trigger
//
// InitializeMetrics pre-populates label combinations so dashboards see every
// series from the first scrape. Collector refreshes the configuration gauges
// from a StatsProvider on an interval.
package metrics
