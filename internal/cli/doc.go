// Package cli implements the thumbsweep command line: the long-running
// service, one-shot runs and task definition imports.
package cli
