// Package workers sizes goroutine pools from the container CPU allowance.
//
// The change detector fans folder enumeration out across ForIO workers, and
// libvips is started with ForCPU threads. Set SCAN_WORKERS to pin the count
// when the storage backend cannot take the default parallelism.
package workers
