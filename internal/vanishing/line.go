package vanishing

import (
	"math"

	"github.com/ironsheep/vanishing-point/internal/detection"
)

// Segment is an endpoint pair in image pixel coordinates, y growing downward.
type Segment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// FromDetection converts integer detector output to Segments, preserving order.
func FromDetection(segments []detection.Segment) []Segment {
	out := make([]Segment, len(segments))
	for i, s := range segments {
		out[i] = Segment{
			X1: float64(s.X1), Y1: float64(s.Y1),
			X2: float64(s.X2), Y2: float64(s.Y2),
		}
	}
	return out
}

// Length returns the Euclidean distance between the endpoints.
func (s Segment) Length() float64 {
	return math.Hypot(s.X2-s.X1, s.Y2-s.Y1)
}

// Line is a segment that passed the angle filter, with its supporting line
// y = M*x + C. M is always finite.
type Line struct {
	Segment
	M      float64 `json:"slope"`
	C      float64 `json:"intercept"`
	Length float64 `json:"length"`
	// AngleDegrees is atan(M) in degrees.
	AngleDegrees float64 `json:"angle_degrees"`
}

// NewLine builds the line through s. ok is false for vertical segments.
func NewLine(s Segment) (Line, bool) {
	if s.X1 == s.X2 {
		return Line{}, false
	}
	m := (s.Y2 - s.Y1) / (s.X2 - s.X1)
	return Line{
		Segment:      s,
		M:            m,
		C:            s.Y1 - m*s.X1,
		Length:       s.Length(),
		AngleDegrees: math.Atan(m) * 180 / math.Pi,
	}, true
}

// Point is an image-plane position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
