// Package features turns a single-region binary mask into a compact shape
// descriptor.
//
// The descriptor is a Vector of nine values in a fixed order:
//
//	[fillRatio, aspectRatio, hu0, hu1, hu2, hu3, hu4, hu5, hu6]
//
// fillRatio and aspectRatio come from the minimum-area oriented rectangle
// around the shape; hu0..hu6 are the Hu moment invariants. Pixels are treated
// as unit squares, so a solid axis-aligned block fills its rectangle exactly
// (fillRatio 100) and aspectRatio is never below 1.
package features
