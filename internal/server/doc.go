// Package server exposes the vanishing point pipeline as MCP (Model Context
// Protocol) tools.
//
// Requests arrive as newline-delimited JSON-RPC 2.0 messages on stdin and
// responses leave on stdout, so anything logged must go to stderr. The
// methods understood are initialize, notifications/initialized, tools/list,
// tools/call and ping.
//
// # Tools
//
// The tools follow the pipeline, so a client can look at each stage that
// feeds an estimate:
//   - image_load, image_dimensions: file metadata
//   - image_edge_detect: the Canny edge map as a base64 PNG
//   - image_detect_segments: probabilistic Hough segments
//   - vp_find: the vanishing point(s), error and supporting lines
//   - vp_annotate: vp_find plus the annotated image
//
// Arguments a client leaves unset take their value from the server's
// [config.Config], so the tools and the batch command agree on defaults.
// A frame with no vanishing point is a successful call returning found=false
// and a reason; only bad input and I/O failures are errors (code -32000,
// with the Go error text in data).
//
// Decoded images are cached by path for the life of the process.
package server
