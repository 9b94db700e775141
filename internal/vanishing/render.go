package vanishing

import (
	"fmt"
	"image"

	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// DrawResult returns a copy of img with the supporting lines (when drawLines
// is set) and a filled marker at the vanishing point.
func DrawResult(img image.Image, r *Result, style imaging.Style, drawLines bool) *image.NRGBA {
	var strokes []imaging.Stroke
	if drawLines {
		strokes = strokesFor(r.Lines)
	}
	marks := []imaging.Mark{{X: r.Point.X, Y: r.Point.Y}}
	return imaging.Annotate(img, strokes, marks, style)
}

// DrawEstimate renders any Strategy's estimate. Points outside the image are
// skipped. Estimates with several points label each one "VP1", "VP2", ...
// by its position in e.Points.
func DrawEstimate(img image.Image, e *Estimate, style imaging.Style, drawLines bool) *image.NRGBA {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var strokes []imaging.Stroke
	if drawLines {
		strokes = strokesFor(e.Lines)
	}
	var marks []imaging.Mark
	for i, p := range e.Points {
		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		m := imaging.Mark{X: p.X, Y: p.Y}
		if len(e.Points) > 1 {
			m.Label = fmt.Sprintf("VP%d", i+1)
		}
		marks = append(marks, m)
	}
	return imaging.Annotate(img, strokes, marks, style)
}

func strokesFor(lines []Line) []imaging.Stroke {
	strokes := make([]imaging.Stroke, len(lines))
	for i, l := range lines {
		strokes[i] = imaging.Stroke{X1: l.X1, Y1: l.Y1, X2: l.X2, Y2: l.Y2}
	}
	return strokes
}
