// Package geometry holds the resize arithmetic shared by the raster and SVG
// engines, so both produce the same canvas for the same option.
//
// Plan turns a source size and a Spec into a Layout:
//
//	FixedSize    canvas is the target; the source fits inside, centred
//	FixedWidth   width is the target; height keeps the aspect ratio
//	FixedHeight  height is the target; width keeps the aspect ratio
//	Crop         canvas is the target; the source fills it and the anchor
//	             picks which part survives
//
// AnchorOffset maps one of the nine anchors onto an excess width and height:
// the start edge gives 0, the centre half the excess, the end edge all of it.
// Offsets are clamped into the scaled image.
package geometry
