package router

import (
	"context"
	"errors"
	"time"

	"thumbsweep/internal/blobstore"
	"thumbsweep/internal/formats"
	"thumbsweep/internal/geometry"
	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
	"thumbsweep/internal/svg"
	"thumbsweep/internal/thumbnail"
)

// SVGHandler generates derivatives of vector images by rewriting attributes.
type SVGHandler struct {
	store blobstore.Store
}

// NewSVGHandler creates an SVG handler reading from and writing to store.
func NewSVGHandler(store blobstore.Store) *SVGHandler {
	return &SVGHandler{store: store}
}

// Name implements Handler.
func (h *SVGHandler) Name() string { return "svg" }

// CanHandle implements Handler.
func (h *SVGHandler) CanHandle(_ context.Context, url string) bool {
	return formats.VectorExtensions[formats.Ext(url)]
}

// GenerateThumbnails writes one rewritten copy of the document per option.
// A document that cannot be parsed is copied through unchanged with a
// warning, so its derivatives exist and it is not retried every run.
func (h *SVGHandler) GenerateThumbnails(ctx context.Context, sourceURL string, options []thumbnail.Option) thumbnail.GenerationResult {
	start := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues("svg").Observe(time.Since(start).Seconds())
	}()

	result := thumbnail.GenerationResult{SourceURL: sourceURL}

	content, err := readSource(ctx, h.store, sourceURL)
	if err != nil {
		metrics.SourceDecodeErrors.WithLabelValues("svg").Inc()
		result.AddError(sourceURL, err)
		return result
	}

	warned := false
	for _, opt := range options {
		if err := ctx.Err(); err != nil {
			result.AddError(sourceURL, err)
			break
		}

		dest := thumbnail.DerivativeURL(sourceURL, opt.Suffix)

		res, err := svg.Resize(content, opt)
		if err == nil {
			if res.Unchanged && !warned {
				warned = true
				metrics.SVGSoftFailures.Inc()
				logging.Warn("SVG %s could not be parsed, copying it unchanged", sourceURL)
			}
			err = writeDerivative(ctx, h.store, dest, res.Content)
		}
		recordGeneration("svg", opt.Method, err)

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
