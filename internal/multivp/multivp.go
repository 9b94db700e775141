// Package multivp adapts an external multi vanishing point detector to the
// vanishing.Strategy interface.
//
// The detector itself is a black box: given an image, a minimum segment
// length, a seed and the camera intrinsics it returns 3D vanishing
// directions. This package projects those directions onto the image plane
// with the calibration's pinhole model.
package multivp

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironsheep/vanishing-point/internal/calib"
	"github.com/ironsheep/vanishing-point/internal/vanishing"
)

// StrategyName names the multi vanishing point strategy.
const StrategyName = "multi"

// Defaults for the external detector.
const (
	DefaultLengthThreshold = 60
	DefaultSeed            = 1337
)

// ErrNoCalibration is returned for frames without a calibration.
var ErrNoCalibration = errors.New("calibration required")

// Params is what the external detector is given besides the image.
type Params struct {
	LengthThreshold float64
	PrincipalX      float64
	PrincipalY      float64
	FocalLength     float64
	Seed            int64
}

// Detector finds 3D vanishing directions in the image at path.
type Detector interface {
	FindVPs(ctx context.Context, path string, p Params) ([]r3.Vec, error)
}

// Strategy runs a Detector and projects its directions.
type Strategy struct {
	Detector        Detector
	LengthThreshold float64
	Seed            int64
}

// NewStrategy returns a Strategy with the default length threshold and seed.
func NewStrategy(d Detector) *Strategy {
	return &Strategy{Detector: d, LengthThreshold: DefaultLengthThreshold, Seed: DefaultSeed}
}

// Name implements vanishing.Strategy.
func (s *Strategy) Name() string { return StrategyName }

// Estimate implements vanishing.Strategy. The frame must carry a Path and a
// Calibration. Directions parallel to the image plane have no projection and
// are dropped; Points and Directions stay index aligned.
func (s *Strategy) Estimate(ctx context.Context, f vanishing.Frame) (*vanishing.Estimate, error) {
	if f.Calibration == nil {
		return nil, ErrNoCalibration
	}
	if f.Path == "" {
		return nil, fmt.Errorf("multi vanishing point detection needs an image path")
	}
	in := f.Calibration.Intrinsics()

	dirs, err := s.Detector.FindVPs(ctx, f.Path, Params{
		LengthThreshold: s.LengthThreshold,
		PrincipalX:      in.PrincipalX,
		PrincipalY:      in.PrincipalY,
		FocalLength:     in.FocalLength,
		Seed:            s.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("multi vanishing point detector failed: %w", err)
	}

	est := Project(dirs, in)
	if len(est.Points) == 0 {
		return nil, fmt.Errorf("%w: detector returned no usable directions", vanishing.ErrNoIntersection)
	}
	return est, nil
}

// Project maps directions to image points.
func Project(dirs []r3.Vec, in calib.Intrinsics) *vanishing.Estimate {
	est := &vanishing.Estimate{Strategy: StrategyName}
	for _, d := range dirs {
		x, y, ok := in.Project(d)
		if !ok {
			continue
		}
		est.Points = append(est.Points, vanishing.Point{X: x, Y: y})
		est.Directions = append(est.Directions, d)
	}
	return est
}
