// Package generator runs thumbnail generation for a set of tasks.
//
// For each task it pages through the change detector's results, routes every
// changed original to a format handler, and aggregates progress and errors
// into a thumbnail.TaskProgress that is reported after each page. Items are
// processed one at a time so only one decoded source is held in memory.
//
// A task whose pages are exhausted has its LastRun stamped with the run's
// start time. Cancellation stops the run before the next page or item and is
// returned as the context error; LastRun is left untouched. The task's
// memoized scan is always released when the task ends.
package generator
