// Package runner serializes generation runs.
//
// Requests from the HTTP API, the filesystem watcher and the cron sweep are
// queued and executed one at a time by a single worker goroutine, so two
// runs never touch the same task concurrently. Pending requests with the
// same regenerate flag are merged. The latest progress record is kept for
// the API.
package runner
