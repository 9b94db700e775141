package detection

import (
	"image"
	"math"

	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// Line describes a detected segment for reporting.
type Line struct {
	Segment
	Length       float64 `json:"length"`
	AngleDegrees float64 `json:"angle_degrees"`
}

// LinesResult contains detected segments.
type LinesResult struct {
	Backend string `json:"backend"`
	Lines   []Line `json:"lines"`
	Count   int    `json:"count"`
}

// DetectLines runs backend b on img and reports every segment with its
// length and direction rounded to one decimal place.
func DetectLines(b Backend, img image.Image, canny imaging.CannyParams, hough HoughParams) (*LinesResult, error) {
	segments, err := b.Segments(img, canny, hough)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, Line{
			Segment:      s,
			Length:       math.Round(s.Length()*10) / 10,
			AngleDegrees: math.Round(s.AngleDegrees()*10) / 10,
		})
	}

	return &LinesResult{
		Backend: b.Name(),
		Lines:   lines,
		Count:   len(lines),
	}, nil
}
