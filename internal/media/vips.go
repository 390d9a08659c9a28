package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
)

// ErrVipsUnavailable is returned by operations that need libvips when it has
// not been initialized.
var ErrVipsUnavailable = errors.New("libvips not available")

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
	vipsShutDown    bool

	vipsStartup = vips.Startup
)

// vipsLogSettings maps the application log level onto libvips' own logging.
func vipsLogSettings(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	forward := func(threshold vips.LogLevel) func(string, vips.LogLevel, string) {
		return func(domain string, level vips.LogLevel, msg string) {
			if level > threshold {
				return
			}
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	}

	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, forward(vips.LogLevelDebug)
	case logging.LevelInfo:
		return vips.LogLevelWarning, forward(vips.LogLevelWarning)
	case logging.LevelWarn:
		return vips.LogLevelError, forward(vips.LogLevelError)
	default:
		return vips.LogLevelCritical, forward(vips.LogLevelCritical)
	}
}

// InitVips starts libvips with the given thread count. It should be called
// once at startup; later calls are no-ops. The returned error wraps
// ErrVipsUnavailable when libvips could not be started, in which case the
// pure Go decoders keep working.
func InitVips(concurrency int) error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}
	if vipsShutDown {
		return fmt.Errorf("%w: cannot restart after shutdown", ErrVipsUnavailable)
	}

	// Logging must be configured before Startup
	level, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	err := startVips(&vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVipsUnavailable, err)
	}

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s, threads: %d)", vips.Version, concurrency)
	return nil
}

// startVips converts the panic govips raises when vips_init fails.
func startVips(config *vips.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("startup failed: %v", r)
		}
	}()
	vipsStartup(config)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		vipsShutDown = true
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// DecodeWithVips decodes a buffer libvips understands, applies EXIF rotation,
// shrinks it to the size limits and hands it back as an image.Image.
func DecodeWithVips(data []byte, maxDimension, maxPixels int) (*Source, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips auto-rotate failed: %w", err)
	}

	format := vips.ImageTypes[ref.Format()]
	width, height := ref.Width(), ref.Height()

	if tw, th, needed := constrainedSize(width, height, maxDimension, maxPixels); needed {
		logging.Info("Constraining large %s image from %dx%d to %dx%d", format, width, height, tw, th)
		if err := ref.Thumbnail(tw, th, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	// Round-trip through PNG so the alpha channel survives
	pngBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}

	metrics.SourceDecodeTotal.WithLabelValues(format, "vips").Inc()
	return &Source{Image: img, Width: width, Height: height, Format: format}, nil
}

// EncodeWebPWithVips encodes img as WebP. The Go ecosystem has no pure WebP
// encoder, so this is the only path that can write .webp derivatives.
func EncodeWebPWithVips(img image.Image, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to stage image for vips: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load staged image: %w", err)
	}
	defer ref.Close()

	params := vips.NewWebpExportParams()
	params.Quality = quality

	out, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("vips webp export failed: %w", err)
	}
	return out, nil
}
