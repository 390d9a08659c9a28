// Package formats is the allowed-format service: an extension allow-list
// checked before any engine is asked to handle a file, plus the extension
// tables the engines register for.
package formats
