// Package main provides the entry point for thumbsweep.
//
// thumbsweep generates thumbnail derivatives for images kept in a blob store.
// A task maps a folder of the store to a list of thumbnail options; every run
// processes only the originals added or modified since the task last ran, plus
// any original that is missing one of its derivatives.
//
// # Application Lifecycle
//
// The serve command follows a structured initialization sequence:
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT or GOMEMLIMIT
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Database Initialization: Opens the SQLite task store and syncs TASKS_FILE
//  4. Component Initialization:
//     - libvips: WebP output and HEIC/AVIF decoding
//     - Router: SVG and raster handlers behind the allowed-format check
//     - Change Detector: Scans task folders, memoized per run
//     - Generator: Pages through changes and writes derivatives
//     - Runner: Single worker draining sweep, event and manual run requests
//     - Watcher: Queues runs for new originals and removed derivatives
//  5. HTTP Server Setup: Health, progress, run trigger and metrics endpoints
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, cancels the in-flight run
//
// # Commands
//
//	thumbsweep serve                      long-running service
//	thumbsweep run [--task id] [--regenerate]
//	thumbsweep import tasks.yaml          sync options and tasks
//	thumbsweep version
package main
