// Package svg is the vector engine. It resizes SVG documents by rewriting the
// root element's width, height and viewBox attributes; the drawing itself is
// never touched.
//
// FixedSize, FixedWidth and FixedHeight change only the nominal size, using
// the same plan as the raster engine. Crop shrinks the viewBox to the
// anchored region and sets the nominal size to the target.
//
// Documents that are not well-formed XML or whose root is not <svg> come back
// unchanged with Result.Unchanged set, so a bad file never fails a batch.
package svg
