// Package calib reads camera calibration files and projects 3D vanishing
// directions onto the image plane.
//
// A calibration file holds one labelled row per line, whitespace separated:
//
//	P0: 7.215377e+02 0.000000e+00 6.095593e+02 ...
//	P2: 7.215377e+02 0.000000e+00 6.095593e+02 4.485728e+01 ...
//
// Only the 12-value "P2:" row (the 3x4 projection matrix of the left color
// camera) is required. Other rows are kept but not interpreted.
package calib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ProjectionRow is the label of the row holding the projection matrix.
const ProjectionRow = "P2:"

// Calibration is a parsed calibration file.
type Calibration struct {
	// P is the 3x4 projection matrix from the P2 row.
	P *mat.Dense
	// Rows holds every labelled row as read, keyed without the trailing colon.
	Rows map[string][]float64
}

// Load reads and parses the calibration file at path.
func Load(path string) (*Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse reads calibration rows from r.
func Parse(r io.Reader) (*Calibration, error) {
	c := &Calibration{Rows: make(map[string][]float64)}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		label := fields[0]
		values := make([]float64, 0, len(fields)-1)
		for _, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q in row %s", lineNo, s, label)
			}
			values = append(values, v)
		}
		c.Rows[strings.TrimSuffix(label, ":")] = values

		if label == ProjectionRow {
			if len(values) != 12 {
				return nil, fmt.Errorf("line %d: %s needs 12 values, got %d", lineNo, ProjectionRow, len(values))
			}
			c.P = mat.NewDense(3, 4, values)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}
	if c.P == nil {
		return nil, fmt.Errorf("missing %s row", ProjectionRow)
	}
	return c, nil
}

// PathFor returns the calibration file expected for imagePath: the image's
// base name with a .txt extension, inside dir.
func PathFor(dir, imagePath string) string {
	base := filepath.Base(imagePath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
}

// PrincipalPoint returns (P[0][2], P[1][2]).
func (c *Calibration) PrincipalPoint() (float64, float64) {
	return c.P.At(0, 2), c.P.At(1, 2)
}

// FocalLength returns P[0][0].
func (c *Calibration) FocalLength() float64 {
	return c.P.At(0, 0)
}

// Intrinsics is the pinhole model used to project vanishing directions.
type Intrinsics struct {
	FocalLength float64
	PrincipalX  float64
	PrincipalY  float64
}

// Intrinsics derives the pinhole camera from the projection matrix.
func (c *Calibration) Intrinsics() Intrinsics {
	px, py := c.PrincipalPoint()
	return Intrinsics{FocalLength: c.FocalLength(), PrincipalX: px, PrincipalY: py}
}

// K returns the 3x3 camera matrix with square pixels and no skew.
func (in Intrinsics) K() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		in.FocalLength, 0, in.PrincipalX,
		0, in.FocalLength, in.PrincipalY,
		0, 0, 1,
	})
}

// Project maps a 3D direction to pixels as f*(x/z, y/z) + principal point.
// ok is false when the direction is parallel to the image plane.
func (in Intrinsics) Project(d r3.Vec) (x, y float64, ok bool) {
	if d.Z == 0 {
		return 0, 0, false
	}
	var p mat.VecDense
	p.MulVec(in.K(), mat.NewVecDense(3, []float64{d.X / d.Z, d.Y / d.Z, 1}))
	return p.AtVec(0), p.AtVec(1), true
}
