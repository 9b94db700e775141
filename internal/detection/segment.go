package detection

import "math"

// Segment is a detected straight segment given by its endpoints in image
// pixel coordinates.
type Segment struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Length returns the Euclidean distance between the endpoints.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.X2-s.X1), float64(s.Y2-s.Y1))
}

// AngleDegrees returns the direction of the segment in (-180, 180] degrees,
// measured with y growing downward.
func (s Segment) AngleDegrees() float64 {
	return math.Atan2(float64(s.Y2-s.Y1), float64(s.X2-s.X1)) * 180 / math.Pi
}
