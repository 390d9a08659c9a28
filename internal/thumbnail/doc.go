// Package thumbnail holds the domain model shared by the change detector,
// the format router and the generation orchestrator: tasks, derivative
// options, change records, per-item results and run progress.
package thumbnail
