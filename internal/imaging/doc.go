// Package imaging turns camera frames into binary images and draws the
// results of shape recognition back onto them.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Preprocessing
//
// Preprocess runs the fixed chain resize, blur, grey, threshold, invert and
// morphological cleanup, keeping every stage so callers can display any of
// them. The final stage is a two-tone *image.Gray (0 and 255) whose white
// pixels are the foreground handed to region labelling.
//
// # Rendering
//
// ColorizeRegions paints a region map in distinct colours and Annotate draws
// the oriented rectangle, the axis of least central moment and the predicted
// label over a frame. EncodePNG packages any result for JSON transport.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual operations are
// stateless and can be called concurrently on different images.
package imaging
