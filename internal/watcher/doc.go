// Package watcher turns filesystem activity under the blob store root into
// targeted generation runs.
//
// Events are collected for a debounce window, then mapped to the tasks whose
// work path contains them. New or rewritten originals queue their task.
// Derivatives that are written are ignored, while a removed derivative
// queues its task so that the missing size is regenerated.
package watcher
