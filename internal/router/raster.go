package router

import (
	"bytes"
	"context"
	"errors"
	"time"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/formats"
	"thumbsweep/internal/geometry"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/media"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/thumbnail"
)

// RasterHandler generates derivatives of pixel images.
type RasterHandler struct {
	store        blobstore.Store
	maxDimension int
	maxPixels    int
}

// NewRasterHandler creates a raster handler reading from and writing to store.
func NewRasterHandler(store blobstore.Store) *RasterHandler {
	return &RasterHandler{
		store:        store,
		maxDimension: media.MaxImageDimension,
		maxPixels:    media.MaxImagePixels,
	}
}

// Name implements Handler.
func (h *RasterHandler) Name() string { return "raster" }

// CanHandle implements Handler.
func (h *RasterHandler) CanHandle(_ context.Context, url string) bool {
	return formats.RasterExtensions[formats.Ext(url)]
}

// GenerateThumbnails decodes the source once and renders every option from it.
func (h *RasterHandler) GenerateThumbnails(ctx context.Context, sourceURL string, options []thumbnail.Option) thumbnail.GenerationResult {
	start := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues("raster").Observe(time.Since(start).Seconds())
	}()

	result := thumbnail.GenerationResult{SourceURL: sourceURL}

	data, err := readSource(ctx, h.store, sourceURL)
	if err != nil {
		metrics.SourceDecodeErrors.WithLabelValues("raster").Inc()
		result.AddError(sourceURL, err)
		return result
	}

	src, err := media.DecodeConstrained(data, sourceURL, h.maxDimension, h.maxPixels)
	if err != nil {
		metrics.SourceDecodeErrors.WithLabelValues("raster").Inc()
		logging.Warn("Skipping %s: %v", sourceURL, err)
		result.AddError(sourceURL, err)
		return result
	}

	for _, opt := range options {
		if err := ctx.Err(); err != nil {
			result.AddError(sourceURL, err)
			break
		}

		dest := thumbnail.DerivativeURL(sourceURL, opt.Suffix)
		err := h.generate(ctx, src, opt, dest)
		recordGeneration("raster", opt.Method, err)

		if err != nil {
			result.AddError(dest, err)
			if errors.Is(err, geometry.ErrUnsupportedMethod) {
				logging.Error("Option %s has unsupported method %q, stopping %s", opt.ID, opt.Method, sourceURL)
				break
			}
			logging.Warn("Failed to generate %s: %v", dest, err)
			continue
		}

		result.GeneratedURLs = append(result.GeneratedURLs, dest)
		logging.Debug("Generated %s", dest)
	}

	return result
}

func (h *RasterHandler) generate(ctx context.Context, src *media.Source, opt thumbnail.Option, dest string) error {
	img, err := media.Render(src, opt)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := media.Encode(&buf, img, dest, opt.EncodeQuality()); err != nil {
		return err
	}

	return writeDerivative(ctx, h.store, dest, buf.Bytes())
}

func recordGeneration(engine string, method thumbnail.Method, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationsTotal.WithLabelValues(engine, string(method), status).Inc()
}
