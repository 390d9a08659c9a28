// Package handlers provides HTTP request handlers for the thumbsweep API.
//
// It includes handlers for:
//   - Health and liveness checks
//   - Listing tasks and options
//   - Queueing generation runs and reading their progress
//   - Version information and Prometheus metrics
package handlers
