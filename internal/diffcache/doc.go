// Package diffcache memoizes expensive per-key computations for the length
// of a generation run.
//
// Concurrent callers asking for the same key share one computation. Only
// successful results are stored, so a cancelled or failed scan never leaves
// a partial entry behind, and a computation that finishes after its key was
// invalidated is returned to its callers but not kept.
package diffcache
