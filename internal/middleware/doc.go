// Package middleware provides HTTP middleware for the thumbsweep API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request counters and latency histograms keyed by route template
package middleware
