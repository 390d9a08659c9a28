// Package changes decides which originals under a task's work path need
// their derivatives generated.
//
// A scan enumerates the whole subtree, drops every file whose name carries
// a configured derivative suffix, and classifies the remaining originals as
// Added, Modified or Unchanged relative to a timestamp. A missing derivative
// for any of the task's options makes an original Added even when its own
// timestamp is old. Only the non-Unchanged entries are returned, sorted by
// URL.
//
// Results are memoized in a diffcache.Cache so that the count and every
// page requested during one run share a single scan. The orchestrator
// invalidates the entry when the task finishes; option changes invalidate
// everything.
package changes
