// Package logging provides the leveled logger used across thumbsweep.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-file scan and resize decisions)
//   - INFO: General operational messages (run start/finish, configuration)
//   - WARN: Warning conditions (unreadable folders, soft SVG failures)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is read once from DEBUG or LOG_LEVEL and can be overridden with
// SetLevel, which the --log-level flag uses.
package logging
