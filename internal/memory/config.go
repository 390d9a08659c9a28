package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"thumbsweep/internal/logging"
)

const (
	// DefaultHeapRatio is the share of the container limit offered to the Go heap.
	DefaultHeapRatio = 0.85

	// VipsReservePerWorker is the off-heap headroom kept back for each libvips
	// thread. A decoded source plus its resize buffers fits comfortably.
	VipsReservePerWorker int64 = 48 << 20

	minHeapLimit int64 = 64 << 20
)

// Budget describes how the container limit was split between the Go heap and
// libvips. A zero HeapLimit means no limit was applied.
type Budget struct {
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or ""
	ContainerLimit int64
	HeapLimit      int64
	VipsReserve    int64
	Ratio          float64
}

// Applied reports whether the process runs with a memory limit.
func (b Budget) Applied() bool {
	return b.HeapLimit > 0
}

// HeapLimitFor returns the Go heap limit for a container: the ratio share,
// lowered further when libvips needs more than the remainder. It never drops
// below 64 MiB unless the container itself is smaller.
func HeapLimitFor(container int64, ratio float64, vipsReserve int64) int64 {
	heap := int64(float64(container) * ratio)
	if rest := container - vipsReserve; rest < heap {
		heap = rest
	}
	if heap < minHeapLimit {
		heap = min(minHeapLimit, container)
	}
	return heap
}

// ApplyBudget sets GOMEMLIMIT for a process running vipsWorkers libvips
// threads. Call it before the first image is decoded.
//
// Environment variables:
//   - GOMEMLIMIT: used as-is when set
//   - MEMORY_LIMIT: container limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO: heap share of MEMORY_LIMIT (default 0.85)
//   - VIPS_MEMORY_RESERVE: bytes kept for libvips (default 48 MiB per worker)
func ApplyBudget(vipsWorkers int) Budget {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		limit := debug.SetMemoryLimit(-1)
		if limit <= 0 || limit == math.MaxInt64 {
			logging.Warn("GOMEMLIMIT %q is not in effect", env)
			return Budget{}
		}
		return Budget{Source: "GOMEMLIMIT", HeapLimit: limit}
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, running without a heap limit")
		return Budget{}
	}
	container, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || container <= 0 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", raw)
		return Budget{}
	}

	b := Budget{
		Source:         "MEMORY_LIMIT",
		ContainerLimit: container,
		Ratio:          heapRatio(),
		VipsReserve:    vipsReserve(vipsWorkers),
	}
	b.HeapLimit = HeapLimitFor(container, b.Ratio, b.VipsReserve)
	debug.SetMemoryLimit(b.HeapLimit)
	return b
}

func heapRatio() float64 {
	raw := os.Getenv("MEMORY_RATIO")
	if raw == "" {
		return DefaultHeapRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("Ignoring MEMORY_RATIO %q, using %.2f", raw, DefaultHeapRatio)
		return DefaultHeapRatio
	}
	return ratio
}

func vipsReserve(workers int) int64 {
	if raw := os.Getenv("VIPS_MEMORY_RESERVE"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && n >= 0 {
			return n
		}
		logging.Warn("Ignoring VIPS_MEMORY_RESERVE %q", raw)
	}
	if workers < 1 {
		workers = 1
	}
	return int64(workers) * VipsReservePerWorker
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
