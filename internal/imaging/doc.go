// Package imaging provides the raster side of vanishing point detection:
// loading images, extracting binary edge maps, and rendering annotations.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Edge Extraction
//
// Canny converts an image to 8-bit intensity and applies the classic
// gradient / non-maximum suppression / hysteresis pipeline. The default
// thresholds are 100 and 300 on the L1 Sobel magnitude.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty or nil images
//   - File I/O errors during image loading
//   - Unsupported output formats or encoding errors during saving
package imaging
