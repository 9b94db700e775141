package vanishing

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/vanishing-point/internal/detection"
	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// SingleStrategyName names the Detector strategy.
const SingleStrategyName = "single"

// Result is the outcome of Detector.Detect.
type Result struct {
	Point Point   `json:"point"`
	Error float64 `json:"error"`
	// Lines are the filtered lines the point was estimated from.
	Lines []Line `json:"lines"`
	// Segments is the number of raw segments before filtering.
	Segments int `json:"segments"`
	Width    int `json:"width"`
	Height   int `json:"height"`
}

// Detector runs edge extraction, line detection, filtering, estimation and
// validation on one image. A Detector holds no per-image state and is safe
// for concurrent use.
type Detector struct {
	Backend   detection.Backend
	Canny     imaging.CannyParams
	Hough     detection.HoughParams
	Filter    FilterPolicy
	Estimator EstimatorOptions
}

// NewDetector returns a Detector on the native backend with default parameters.
func NewDetector() *Detector {
	return &Detector{
		Backend:   detection.Native{},
		Canny:     imaging.DefaultCannyParams(),
		Hough:     detection.DefaultHoughParams(),
		Filter:    DefaultFilterPolicy(),
		Estimator: DefaultEstimatorOptions(),
	}
}

// Detect finds the vanishing point of img. Errors satisfying IsNotFound mean
// the image was processed but has no vanishing point.
func (d *Detector) Detect(img image.Image) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if err := d.Filter.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	backend := d.Backend
	if backend == nil {
		backend = detection.Native{}
	}
	raw, err := backend.Segments(img, d.Canny, d.Hough)
	if err != nil {
		return nil, fmt.Errorf("line detection failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoLines
	}

	lines := Filter(FromDetection(raw), d.Filter)
	best, err := FindVanishingPoint(lines, width, height, d.Estimator)
	if err != nil {
		return nil, err
	}
	if err := Validate(best, width, height); err != nil {
		return nil, err
	}

	return &Result{
		Point:    best.Point,
		Error:    best.Error,
		Lines:    lines,
		Segments: len(raw),
		Width:    width,
		Height:   height,
	}, nil
}

// Name implements Strategy.
func (d *Detector) Name() string { return SingleStrategyName }

// Estimate implements Strategy using f.Image.
func (d *Detector) Estimate(ctx context.Context, f Frame) (*Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := d.Detect(f.Image)
	if err != nil {
		return nil, err
	}
	return &Estimate{
		Strategy: SingleStrategyName,
		Points:   []Point{r.Point},
		Lines:    r.Lines,
		Error:    r.Error,
	}, nil
}
