// Package database provides SQLite storage for thumbnail tasks and options.
//
// It holds:
//   - Thumbnail options (the derivative definitions and their suffixes)
//   - Tasks, their work paths, ordered option lists and last successful run
//   - A small key/value metadata table for service bookkeeping
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization. Option changes are announced
// to registered hooks so cached scans can be dropped.
package database
