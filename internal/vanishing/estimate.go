package vanishing

import (
	"fmt"
	"math"
	"sort"
)

// DefaultParallelEpsilon is the slope difference below which two lines are
// treated as parallel.
const DefaultParallelEpsilon = 1e-9

// EstimatorOptions tunes FindVanishingPoint.
type EstimatorOptions struct {
	// ParallelEpsilon skips pairs with |m1-m2| <= ParallelEpsilon. Zero still
	// skips exactly equal slopes.
	ParallelEpsilon float64
}

// DefaultEstimatorOptions returns the options used by the pipeline.
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{ParallelEpsilon: DefaultParallelEpsilon}
}

// Candidate is an intersection of two lines and its consensus error: the root
// of the summed squared perpendicular distances to every line.
type Candidate struct {
	Point
	Error float64 `json:"error"`
}

// FindVanishingPoint intersects every pair of lines and returns the in-frame
// intersection with the lowest consensus error. Only points strictly inside
// (0, width) x (0, height) are considered.
//
// The result does not depend on the order of lines: each pair is evaluated in
// a canonical order, distances are summed smallest first, and equal errors are
// resolved by the lower (x, y).
//
// ErrNoIntersection is returned when no pair qualifies.
func FindVanishingPoint(lines []Line, width, height int, opts EstimatorOptions) (*Candidate, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	eps := opts.ParallelEpsilon
	if eps < 0 {
		eps = 0
	}
	w, h := float64(width), float64(height)

	var best *Candidate
	dist := make([]float64, len(lines))
	for i := 0; i < len(lines); i++ {
		for j := i + 1; j < len(lines); j++ {
			a, b := lines[i], lines[j]
			if math.Abs(a.M-b.M) <= eps {
				continue
			}
			if b.M < a.M || (b.M == a.M && b.C < a.C) {
				a, b = b, a
			}

			x0 := (a.C - b.C) / (b.M - a.M)
			y0 := a.M*x0 + a.C
			if !(x0 > 0 && x0 < w && y0 > 0 && y0 < h) {
				continue
			}

			for k, l := range lines {
				dist[k] = squaredDistance(l, x0, y0)
			}
			c := Candidate{Point: Point{X: x0, Y: y0}, Error: consensusError(dist)}
			if best == nil || better(c, *best) {
				best = &c
			}
		}
	}

	if best == nil {
		return nil, ErrNoIntersection
	}
	return best, nil
}

// squaredDistance returns the squared distance from (x0, y0) to the foot of
// its perpendicular on l. A horizontal line has a vertical perpendicular, so
// the foot is (x0, C).
func squaredDistance(l Line, x0, y0 float64) float64 {
	var fx, fy float64
	if l.M == 0 {
		fx, fy = x0, l.C
	} else {
		pm := -1 / l.M
		pc := y0 - pm*x0
		fx = (l.C - pc) / (pm - l.M)
		fy = pm*fx + pc
	}
	dx, dy := fx-x0, fy-y0
	return dx*dx + dy*dy
}

// consensusError sorts d in place and returns the root of its sum.
func consensusError(d []float64) float64 {
	sort.Float64s(d)
	var sum float64
	for _, v := range d {
		sum += v
	}
	return math.Sqrt(sum)
}

func better(c, than Candidate) bool {
	if c.Error != than.Error {
		return c.Error < than.Error
	}
	if c.X != than.X {
		return c.X < than.X
	}
	return c.Y < than.Y
}

// Validate applies the final bounds check: a nil candidate, x >= width or
// y >= height all mean no vanishing point.
func Validate(c *Candidate, width, height int) error {
	if c == nil {
		return ErrNoIntersection
	}
	if c.X >= float64(width) || c.Y >= float64(height) {
		return fmt.Errorf("%w: (%.2f, %.2f) in %dx%d", ErrOutOfBounds, c.X, c.Y, width, height)
	}
	return nil
}
