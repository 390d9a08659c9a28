/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

Storage trees processed by thumbsweep often live on NFS or SMB mounts. Those return
ESTALE (stale file handle) when a file is replaced on the server while a client holds
a handle to it, which is common when another process is uploading originals during a
scan. The local blob store routes every stat, open, readdir and rename through this
package so such transient failures do not abort a whole run.

# Usage

	info, err := filesystem.StatWithRetry(ctx, "/nfs/photos/a.jpg", filesystem.DefaultRetryConfig())

	entries, err := filesystem.ReadDirWithRetry(ctx, "/nfs/photos", filesystem.DefaultRetryConfig())

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only ESTALE triggers retries. All other errors fail immediately. Backoff sleeps
end early when the context is cancelled.

# Metrics

Each operation records thumbsweep_filesystem_* metrics labelled by operation
(stat, open, readdir, rename).
*/
package filesystem
