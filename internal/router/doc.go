// Package router picks the engine for each source file.
//
// A Router holds handlers in priority order behind an allowed-format check.
// SVGHandler (PrioritySVG) and RasterHandler (PriorityRaster) are the
// built-ins; more can be registered or removed at runtime:
//
//	r := router.New(formats.NewService(nil))
//	r.Register(router.NewSVGHandler(store), router.PrioritySVG)
//	r.Register(router.NewRasterHandler(store), router.PriorityRaster)
//
//	if h, ok := r.Select(ctx, "photos/a.jpg"); ok {
//	    result := h.GenerateThumbnails(ctx, "photos/a.jpg", options)
//	}
package router
