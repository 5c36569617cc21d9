// Package region labels the connected components of a two-tone image.
//
// The input is an *image.Gray in which every pixel holds one of two values,
// foreground or background. The caller picks the foreground value; any other
// value is background. Labeling produces a Map of the same dimensions where
// 0 marks background and a positive ID marks the component a pixel belongs to.
//
// # Connectivity
//
// Components are 8-connected: two foreground pixels are neighbours when they
// share an edge or a corner.
//
// # Ordering
//
// IDs are assigned in raster order (top to bottom, left to right) of the first
// pixel encountered in each component, starting at 1. Functions that pick one
// region among several (LargestComponent) scan IDs in increasing order and keep
// the first one found, so results are deterministic.
//
// # Preconditions
//
// LargestComponent needs at least one region. Passing a region count of 0 is a
// caller error and is reported as ErrNoRegions rather than an empty mask.
package region
