// Package media is the raster engine: it decodes originals, resamples them
// with the shared geometry plan, and encodes derivatives.
//
// Decoding goes through imaging (with EXIF auto-orientation) and the
// golang.org/x/image decoders for WebP, BMP and TIFF. Sources the Go
// decoders cannot read are handed to libvips when InitVips has been called.
// Oversized sources are downscaled right after decoding so a single huge
// original cannot exhaust memory; Source keeps the original dimensions so
// the derivative geometry is unaffected.
//
// Encoding follows the derivative's extension. JPEG honours the option's
// quality, and WebP output requires libvips.
package media
