package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ff0000", color.RGBA{255, 0, 0, 255}, false},
		{"00ff00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF", color.RGBA{0, 0, 255, 255}, false},
		{"", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseColor(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnnotate_MarkAndStroke(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{0, 0, 0, 255})
	style := DefaultStyle()

	out := Annotate(img,
		[]Stroke{{X1: 0, Y1: 80, X2: 99, Y2: 80}},
		[]Mark{{X: 50, Y: 40}},
		style)

	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), img.Bounds())
	}

	// Marker centre and a point inside the radius are red.
	for _, p := range []image.Point{{50, 40}, {55, 44}} {
		if c := out.NRGBAAt(p.X, p.Y); c.R != 255 || c.G != 0 || c.B != 0 {
			t.Errorf("marker pixel %v: got %v, want red", p, c)
		}
	}
	// Outside the radius stays black.
	if c := out.NRGBAAt(50, 55); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("pixel outside marker: got %v, want black", c)
	}
	// Stroke is blue and 2px thick.
	for _, y := range []int{80, 81} {
		if c := out.NRGBAAt(20, y); c.B != 255 || c.R != 0 {
			t.Errorf("stroke pixel (20,%d): got %v, want blue", y, c)
		}
	}
	// Source is untouched.
	if r, _, _, _ := img.At(50, 40).RGBA(); r != 0 {
		t.Error("Annotate modified the source image")
	}
}

func TestAnnotate_Label(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{0, 0, 0, 255})
	style := DefaultStyle()
	style.MarkerRadius = 2

	out := Annotate(img, nil, []Mark{{X: 20, Y: 20, Label: "VP1"}}, style)

	green := 0
	for y := 30; y < 30+13; y++ {
		for x := 30; x < 30+7*3; x++ {
			if c := out.NRGBAAt(x, y); c.G == 255 && c.R == 0 {
				green++
			}
		}
	}
	if green == 0 {
		t.Error("label should draw green pixels below-right of the marker")
	}
}

func TestAnnotate_OutOfBoundsMark(t *testing.T) {
	img := createInMemoryImage(20, 20, color.RGBA{0, 0, 0, 255})

	// Must not panic; the disc is clipped.
	out := Annotate(img, []Stroke{{X1: -50, Y1: -50, X2: 70, Y2: 70}}, []Mark{{X: 200, Y: 5}}, DefaultStyle())
	if out.Bounds().Dx() != 20 {
		t.Errorf("width: got %d, want 20", out.Bounds().Dx())
	}
}

func TestEncodePNGBase64(t *testing.T) {
	s, err := EncodePNGBase64(createInMemoryImage(4, 4, color.White))
	if err != nil {
		t.Fatalf("EncodePNGBase64 failed: %v", err)
	}
	if s == "" {
		t.Error("encoded string is empty")
	}
}
