// Package taskconfig loads thumbnail options and tasks from a YAML file and
// syncs them into the task store.
package taskconfig
