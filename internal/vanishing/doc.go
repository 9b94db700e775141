// Package vanishing estimates the dominant vanishing point of a single image.
//
// Segments produced by a detection.Backend are filtered by angle and capped by
// length (Filter), every pair of surviving lines is intersected and each
// in-frame intersection is scored by its perpendicular distance to all lines
// (FindVanishingPoint), and the best candidate is validated against the image
// bounds (Validate). Detector wires those stages together and implements
// Strategy, the capability shared with the multi vanishing point adapter.
//
// All outcomes that mean "no vanishing point" are reported as errors that
// satisfy IsNotFound.
package vanishing
