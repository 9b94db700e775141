package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Stroke is a straight segment to draw. Coordinates are 0-based from the
// image's top-left corner, like EdgeMap.
type Stroke struct {
	X1, Y1, X2, Y2 float64
}

// Mark is a point marker with an optional text label.
type Mark struct {
	X, Y  float64
	Label string
}

// Style controls how strokes and marks are rendered.
type Style struct {
	MarkColor     color.RGBA
	StrokeColor   color.RGBA
	LabelColor    color.RGBA
	MarkerRadius  int
	LineThickness int
}

// DefaultStyle draws red markers of radius 10, blue 2px lines and green labels.
func DefaultStyle() Style {
	return Style{
		MarkColor:     color.RGBA{255, 0, 0, 255},
		StrokeColor:   color.RGBA{0, 0, 255, 255},
		LabelColor:    color.RGBA{0, 255, 0, 255},
		MarkerRadius:  10,
		LineThickness: 2,
	}
}

// ParseColor parses "#RRGGBB" (or "RRGGBB") into an opaque color.
func ParseColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Annotate returns a copy of img with every stroke drawn first and every mark
// on top. Marks outside the image are skipped; strokes are clipped.
func Annotate(img image.Image, strokes []Stroke, marks []Mark, style Style) *image.NRGBA {
	out := imaging.Clone(img)

	for _, s := range strokes {
		drawLine(out, s.X1, s.Y1, s.X2, s.Y2, style.LineThickness, style.StrokeColor)
	}
	for _, m := range marks {
		x, y := int(m.X), int(m.Y)
		fillCircle(out, x, y, style.MarkerRadius, style.MarkColor)
		if m.Label != "" {
			drawLabel(out, x+10, y+10, m.Label, style.LabelColor)
		}
	}
	return out
}

// EncodePNGBase64 encodes img as PNG and returns it base64-encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fillCircle paints a filled disc of radius r centred at (cx, cy).
func fillCircle(img *image.NRGBA, cx, cy, r int, c color.RGBA) {
	b := img.Bounds()
	if r < 1 {
		r = 1
	}
	x0, x1 := clamp(cx-r, b.Min.X, b.Max.X-1), clamp(cx+r, b.Min.X, b.Max.X-1)
	y0, y1 := clamp(cy-r, b.Min.Y, b.Max.Y-1), clamp(cy+r, b.Min.Y, b.Max.Y-1)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, color.NRGBA(c))
			}
		}
	}
}

// drawLine draws a segment of the given thickness by stamping squares along it.
func drawLine(img *image.NRGBA, x1, y1, x2, y2 float64, thickness int, c color.RGBA) {
	if thickness < 1 {
		thickness = 1
	}
	b := img.Bounds()
	steps := int(math.Ceil(math.Max(math.Abs(x2-x1), math.Abs(y2-y1))))
	if steps == 0 {
		steps = 1
	}
	lo := -(thickness - 1) / 2
	hi := thickness / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := int(math.Round(x1 + t*(x2-x1)))
		py := int(math.Round(y1 + t*(y2-y1)))
		for dy := lo; dy <= hi; dy++ {
			for dx := lo; dx <= hi; dx++ {
				x, y := px+dx, py+dy
				if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
					img.SetNRGBA(x, y, color.NRGBA(c))
				}
			}
		}
	}
}

// drawLabel draws text with its baseline-left corner near (x, y+ascent).
func drawLabel(img *image.NRGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}
