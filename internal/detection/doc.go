// Package detection extracts straight line segments from images.
//
// # Pipeline
//
//  1. Edge Detection: imaging.Canny produces a binary edge map
//  2. Line Extraction: HoughLinesP, the progressive probabilistic Hough
//     transform, groups edge pixels into finite segments
//
// # Backends
//
// A Backend bundles both steps. The native backend is pure Go and always
// registered. Building with the gocv tag also registers "opencv", which
// delegates to OpenCV through gocv.io/x/gocv. Backends are selected by name
// with Lookup.
//
// # Determinism
//
// HoughLinesP visits edge points in a pseudo-random order drawn from a seeded
// source, so the same image and parameters always produce the same segments.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Performance Considerations
//
// Every edge point votes across all angle bins, so cost grows with
// edge density times angular resolution. Consumed points are removed from the
// accumulator as segments are found, which keeps dense straight edges cheap.
package detection
