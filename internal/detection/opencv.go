//go:build gocv

package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// OpenCVBackendName selects the gocv backend. It is only registered in
// binaries built with the gocv tag.
const OpenCVBackendName = "opencv"

// OpenCV runs cv::Canny and cv::HoughLinesP through gocv.
//
// HoughParams.Seed has no effect here; OpenCV uses its own fixed RNG state.
// BlurSigma maps to a Gaussian blur with an automatically sized kernel.
type OpenCV struct{}

// Name implements Backend.
func (OpenCV) Name() string { return OpenCVBackendName }

// Segments implements Backend.
func (OpenCV) Segments(img image.Image, canny imaging.CannyParams, hough HoughParams) ([]Segment, error) {
	if err := hough.Validate(); err != nil {
		return nil, err
	}

	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	if canny.BlurSigma > 0 {
		gocv.GaussianBlur(gray, &gray, image.Point{}, canny.BlurSigma, canny.BlurSigma, gocv.BorderDefault)
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, float32(canny.Low), float32(canny.High))

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines,
		float32(hough.Rho), float32(hough.Theta), hough.Threshold,
		float32(hough.MinLineLength), float32(hough.MaxLineGap))

	segments := make([]Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		segments = append(segments, Segment{X1: int(v[0]), Y1: int(v[1]), X2: int(v[2]), Y2: int(v[3])})
		if hough.MaxSegments > 0 && len(segments) >= hough.MaxSegments {
			break
		}
	}
	return segments, nil
}

func init() {
	Register(OpenCV{})
}
