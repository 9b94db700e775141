package detection

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// Default probabilistic Hough parameters for vanishing point detection.
const (
	DefaultRho           = 1.0
	DefaultTheta         = math.Pi / 180
	DefaultThreshold     = 110
	DefaultMinLineLength = 10
	DefaultMaxLineGap    = 15

	// DefaultSeed fixes the edge-point visiting order so detection is repeatable.
	DefaultSeed int64 = 0xFFFFFFFF
)

// fixed-point shift used when stepping along a candidate line
const walkShift = 16

// HoughParams configures HoughLinesP.
type HoughParams struct {
	// Rho is the distance resolution of the accumulator in pixels.
	Rho float64
	// Theta is the angular resolution of the accumulator in radians.
	Theta float64
	// Threshold is the minimum accumulator vote count for a line.
	Threshold int
	// MinLineLength is the minimum extent, along x or y, of an accepted segment.
	MinLineLength int
	// MaxLineGap is the largest run of non-edge pixels bridged within one segment.
	MaxLineGap int
	// MaxSegments stops detection after this many segments. Zero means no limit.
	MaxSegments int
	// Seed drives the order in which edge points are visited.
	Seed int64
}

// DefaultHoughParams returns the parameters used by the vanishing point pipeline.
func DefaultHoughParams() HoughParams {
	return HoughParams{
		Rho:           DefaultRho,
		Theta:         DefaultTheta,
		Threshold:     DefaultThreshold,
		MinLineLength: DefaultMinLineLength,
		MaxLineGap:    DefaultMaxLineGap,
		Seed:          DefaultSeed,
	}
}

// Validate reports parameter combinations HoughLinesP cannot run with.
func (p HoughParams) Validate() error {
	if p.Rho <= 0 {
		return fmt.Errorf("rho must be positive, got %v", p.Rho)
	}
	if p.Theta <= 0 || p.Theta > math.Pi {
		return fmt.Errorf("theta must be in (0, pi], got %v", p.Theta)
	}
	if p.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %d", p.Threshold)
	}
	if p.MinLineLength < 0 || p.MaxLineGap < 0 || p.MaxSegments < 0 {
		return fmt.Errorf("min line length, max line gap and max segments must not be negative")
	}
	return nil
}

// HoughLinesP extracts straight segments from a binary edge map with the
// progressive probabilistic Hough transform.
//
// Edge points are visited in a pseudo-random order seeded by p.Seed. Each point
// votes into a (theta, rho) accumulator; once its strongest bin reaches
// p.Threshold, the line through that bin is walked in both directions from the
// point, bridging gaps of up to p.MaxLineGap pixels. Walked pixels are removed
// from further consideration, and when the segment is long enough their votes
// are withdrawn so the same line is not reported twice.
//
// Output order follows detection order. The edge map is not modified.
func HoughLinesP(edges *imaging.EdgeMap, p HoughParams) ([]Segment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	width, height := edges.Width, edges.Height
	if width == 0 || height == 0 {
		return nil, nil
	}

	numAngle := int(math.Round(math.Pi / p.Theta))
	if numAngle < 1 {
		numAngle = 1
	}
	numRho := int(math.Round(float64((width+height)*2+1) / p.Rho))
	rhoOffset := (numRho - 1) / 2

	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for n := 0; n < numAngle; n++ {
		angle := float64(n) * p.Theta
		cosT[n] = math.Cos(angle) / p.Rho
		sinT[n] = math.Sin(angle) / p.Rho
	}

	acc := make([]int32, numAngle*numRho)
	mask := make([]bool, width*height)
	points := make([][2]int, 0, edges.Count())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges.Pix[y*width+x] != 0 {
				mask[y*width+x] = true
				points = append(points, [2]int{x, y})
			}
		}
	}

	vote := func(x, y int, delta int32) {
		fx, fy := float64(x), float64(y)
		for n := 0; n < numAngle; n++ {
			r := int(math.RoundToEven(fx*cosT[n]+fy*sinT[n])) + rhoOffset
			acc[n*numRho+r] += delta
		}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	var segments []Segment

	for count := len(points); count > 0; count-- {
		idx := rng.Intn(count)
		x, y := points[idx][0], points[idx][1]
		points[idx] = points[count-1]

		// already consumed by an earlier line
		if !mask[y*width+x] {
			continue
		}

		maxVal := int32(p.Threshold - 1)
		maxN := -1
		fx, fy := float64(x), float64(y)
		for n := 0; n < numAngle; n++ {
			r := int(math.RoundToEven(fx*cosT[n]+fy*sinT[n])) + rhoOffset
			i := n*numRho + r
			acc[i]++
			if acc[i] > maxVal {
				maxVal = acc[i]
				maxN = n
			}
		}
		if maxN < 0 {
			continue
		}

		w := newWalker(x, y, -sinT[maxN], cosT[maxN])

		var ends [2][2]int
		for k := 0; k < 2; k++ {
			gap := 0
			w.reset(k)
			for {
				px, py := w.pos()
				if px < 0 || px >= width || py < 0 || py >= height {
					break
				}
				if mask[py*width+px] {
					gap = 0
					ends[k] = [2]int{px, py}
				} else if gap++; gap > p.MaxLineGap {
					break
				}
				w.step()
			}
		}

		good := abs(ends[1][0]-ends[0][0]) >= p.MinLineLength ||
			abs(ends[1][1]-ends[0][1]) >= p.MinLineLength

		for k := 0; k < 2; k++ {
			w.reset(k)
			for {
				px, py := w.pos()
				if mask[py*width+px] {
					if good {
						vote(px, py, -1)
					}
					mask[py*width+px] = false
				}
				if px == ends[k][0] && py == ends[k][1] {
					break
				}
				w.step()
			}
		}

		if good {
			segments = append(segments, Segment{
				X1: ends[0][0], Y1: ends[0][1],
				X2: ends[1][0], Y2: ends[1][1],
			})
			if p.MaxSegments > 0 && len(segments) >= p.MaxSegments {
				break
			}
		}
	}

	return segments, nil
}

// walker steps along a line in fixed point. The major axis advances one
// pixel per step; the minor axis accumulates a 16.16 fraction.
type walker struct {
	x0, y0   int
	dx0, dy0 int
	xMajor   bool

	x, y, dx, dy int
}

// newWalker starts at pixel (x, y) heading along direction (a, b).
func newWalker(x, y int, a, b float64) *walker {
	w := &walker{x0: x, y0: y}
	if math.Abs(a) > math.Abs(b) {
		w.xMajor = true
		w.dx0 = 1
		if a < 0 {
			w.dx0 = -1
		}
		w.dy0 = int(math.RoundToEven(b * (1 << walkShift) / math.Abs(a)))
		w.y0 = (y << walkShift) + (1 << (walkShift - 1))
	} else {
		w.dy0 = 1
		if b < 0 {
			w.dy0 = -1
		}
		w.dx0 = int(math.RoundToEven(a * (1 << walkShift) / math.Abs(b)))
		w.x0 = (x << walkShift) + (1 << (walkShift - 1))
	}
	return w
}

// reset rewinds to the start point; direction 1 walks backwards.
func (w *walker) reset(direction int) {
	w.x, w.y, w.dx, w.dy = w.x0, w.y0, w.dx0, w.dy0
	if direction > 0 {
		w.dx, w.dy = -w.dx, -w.dy
	}
}

func (w *walker) step() {
	w.x += w.dx
	w.y += w.dy
}

func (w *walker) pos() (int, int) {
	if w.xMajor {
		return w.x, w.y >> walkShift
	}
	return w.x >> walkShift, w.y
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
