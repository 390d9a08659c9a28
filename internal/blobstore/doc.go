// Package blobstore defines the hierarchical storage the thumbnail pipeline
// reads originals from and writes derivatives to, along with a local
// directory implementation.
//
// URLs are slash-separated paths relative to the store root ("photos/a.jpg").
// Leading slashes are ignored and ".." segments are rejected with
// ErrInvalidPath. Filesystem calls go through the filesystem package so NFS
// stale-handle errors are retried.
package blobstore
