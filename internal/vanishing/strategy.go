package vanishing

import (
	"context"
	"image"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironsheep/vanishing-point/internal/calib"
)

// Frame is one image handed to a Strategy.
type Frame struct {
	// Path is the source file. Strategies that read the file themselves need it.
	Path  string
	Image image.Image
	// Calibration is optional; strategies that need it fail without it.
	Calibration *calib.Calibration
}

// Estimate is a Strategy's answer for one frame.
type Estimate struct {
	Strategy string `json:"strategy"`
	// Points are image-plane vanishing points, possibly outside the frame.
	Points []Point `json:"points"`
	// Directions are the 3D vanishing directions behind Points, when known.
	Directions []r3.Vec `json:"directions,omitempty"`
	// Lines are the supporting lines used by the single point estimator.
	Lines []Line `json:"lines,omitempty"`
	// Error is the consensus error of a single point estimate.
	Error float64 `json:"error,omitempty"`
}

// Strategy is a vanishing point estimation method.
type Strategy interface {
	Name() string
	Estimate(ctx context.Context, f Frame) (*Estimate, error)
}
