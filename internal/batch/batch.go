// Package batch runs a vanishing point strategy over a directory of images
// and writes annotated copies of the images where a point was found.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/vanishing-point/internal/calib"
	"github.com/ironsheep/vanishing-point/internal/imaging"
	"github.com/ironsheep/vanishing-point/internal/store"
	"github.com/ironsheep/vanishing-point/internal/vanishing"
)

// Runner processes every image directly inside InputDir.
type Runner struct {
	InputDir  string
	OutputDir string
	// CalibrationDir holds <image stem>.txt calibration files. Optional.
	CalibrationDir string
	// RequireCalibration skips images without a calibration file.
	RequireCalibration bool
	// Extensions defaults to imaging.DefaultExtensions.
	Extensions []string

	Strategy  vanishing.Strategy
	Style     imaging.Style
	DrawLines bool
	// Workers bounds parallel images; values below 1 mean one.
	Workers int

	// Store, when set, receives a run record and one row per image.
	Store *store.Store
	Cache *imaging.ImageCache

	// Logf receives progress lines. Defaults to log.Printf.
	Logf func(format string, v ...interface{})
}

// Summary counts the outcome of a run. Results are in file name order.
type Summary struct {
	RunID     string
	Processed int
	Found     int
	NotFound  int
	Failed    int
	Skipped   int
	Results   []store.Detection
}

// Run processes all images. Per-image failures are counted and logged and do
// not stop the run; setup errors and context cancellation do.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.InputDir == "" || r.OutputDir == "" {
		return nil, fmt.Errorf("input and output directories are required")
	}
	if r.Strategy == nil {
		return nil, fmt.Errorf("no strategy configured")
	}
	files, err := imaging.ListImages(r.InputDir, r.Extensions)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sum := &Summary{Results: make([]store.Detection, len(files))}
	if r.Store != nil {
		if sum.RunID, err = r.Store.BeginRun(r.Strategy.Name(), r.InputDir, r.OutputDir); err != nil {
			return nil, err
		}
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			d, err := r.process(gctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			sum.tally(d)
			sum.Results[i] = d
			mu.Unlock()
			if r.Store != nil && d.Status != "" {
				return r.Store.Record(sum.RunID, d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	// skipped images leave an empty slot
	results := sum.Results[:0]
	for _, d := range sum.Results {
		if d.Status != "" {
			results = append(results, d)
		}
	}
	sum.Results = results

	if r.Store != nil {
		if err := r.Store.FinishRun(sum.RunID, sum.Processed, sum.Found, sum.NotFound, sum.Failed); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (s *Summary) tally(d store.Detection) {
	switch d.Status {
	case store.StatusFound:
		s.Found++
	case store.StatusNotFound:
		s.NotFound++
	case store.StatusFailed:
		s.Failed++
	default:
		s.Skipped++
		return
	}
	s.Processed++
}

// process handles one image. A returned error aborts the run; every other
// outcome is reported in the Detection. An empty Status means skipped.
func (r *Runner) process(ctx context.Context, path string) (store.Detection, error) {
	name := filepath.Base(path)
	d := store.Detection{Image: name}
	if err := ctx.Err(); err != nil {
		return d, err
	}

	frame := vanishing.Frame{Path: path}
	if r.CalibrationDir != "" {
		c, err := calib.Load(calib.PathFor(r.CalibrationDir, path))
		switch {
		case errors.Is(err, os.ErrNotExist):
			if r.RequireCalibration {
				r.logf("Calibration file not found for image: %s", name)
				return d, nil
			}
		case err != nil:
			r.logf("Failed to read calibration for %s: %v", name, err)
			return r.failed(d, err), nil
		default:
			frame.Calibration = c
		}
	}

	img, err := r.load(path)
	if err != nil {
		r.logf("Failed to read %s", path)
		return r.failed(d, err), nil
	}
	frame.Image = img
	b := img.Bounds()
	d.Width, d.Height = b.Dx(), b.Dy()
	r.logf("Processing %s, size: %dx%d", name, d.Width, d.Height)

	est, err := r.Strategy.Estimate(ctx, frame)
	switch {
	case vanishing.IsNotFound(err):
		r.logf("No vanishing point detected for %s", name)
		d.Status = store.StatusNotFound
		d.Message = err.Error()
		return d, nil
	case err != nil && ctx.Err() != nil:
		return d, ctx.Err()
	case err != nil:
		r.logf("Vanishing point estimation failed for %s: %v", name, err)
		return r.failed(d, err), nil
	}

	d.Status = store.StatusFound
	d.Points = est.Points
	d.Error = est.Error
	d.Lines = len(est.Lines)

	out := filepath.Join(r.OutputDir, name)
	annotated := vanishing.DrawEstimate(img, est, r.Style, r.DrawLines)
	if err := imaging.Save(out, annotated); err != nil {
		r.logf("Failed to save %s: %v", out, err)
		return r.failed(d, err), nil
	}
	d.OutputPath = out
	r.logf("Saved processed image to %s", out)
	return d, nil
}

func (r *Runner) load(path string) (image.Image, error) {
	if r.Cache == nil {
		return imaging.Load(path)
	}
	defer r.Cache.Evict(path)
	return r.Cache.Load(path)
}

func (r *Runner) failed(d store.Detection, err error) store.Detection {
	d.Status = store.StatusFailed
	d.Message = err.Error()
	return d
}

func (r *Runner) logf(format string, v ...interface{}) {
	if r.Logf != nil {
		r.Logf(format, v...)
		return
	}
	log.Printf(format, v...)
}
