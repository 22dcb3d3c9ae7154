/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package starextract

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/observerly/iris/pkg/fits"
	"github.com/observerly/iris/pkg/photometry"
	stats "github.com/observerly/iris/pkg/statistics"

	"github.com/observerly/skyguide/pkg/extract"
)

/*****************************************************************************************************************/

// Extractor is the default, iris-backed implementation of extract.Extractor. It reads
// a 16-bit FITS frame, detects bright pixels via photometry.StarsExtractor the same
// way the plate solver's asterism pipeline does, then derives a half-flux radius and
// ellipticity for each detected star from the pixel data in a window around its
// centroid.
type Extractor struct {
	// Radius is the pixel radius of the detection aperture passed to the underlying
	// star detector.
	Radius float32

	// Sigma is the number of robust standard deviations above background a pixel must
	// exceed to be considered a candidate star.
	Sigma float32

	// MaxStars caps how many of the brightest detections are returned (and have HFR/
	// ellipticity computed), to bound the per-tick cost of a full-frame exposure.
	MaxStars int
}

/*****************************************************************************************************************/

// NewExtractor constructs an Extractor with the teacher's own defaults for radius and
// detection sigma (mirroring internal/solver.RunSolver's plate-solver parameters).
func NewExtractor() *Extractor {
	return &Extractor{
		Radius:   16,
		Sigma:    2.5,
		MaxStars: 64,
	}
}

/*****************************************************************************************************************/

func (e *Extractor) Extract(imagePath string) (extract.Result, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return extract.Result{}, fmt.Errorf("failed to open image: %w", err)
	}

	defer file.Close()

	// Assume a 16-bit image with no offset, matching the camera's image format
	// contract:
	fit := fits.NewFITSImage(2, 0, 0, 65535)

	if err := fit.Read(file); err != nil {
		return extract.Result{}, fmt.Errorf("failed to read FITS image: %w", err)
	}

	width := int(fit.Header.Naxis1)
	height := int(fit.Header.Naxis2)

	data := fit.Data

	s := stats.NewStats(data, fit.ADU, width)

	location, scale := s.FastApproxSigmaClippedMedianAndQn()

	sexp := photometry.NewStarsExtractor(data, width, height, e.Radius, fit.ADU)
	sexp.Threshold = location + scale*e.Sigma

	detections := sexp.GetBrightPixels()

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Intensity > detections[j].Intensity
	})

	if len(detections) > e.MaxStars {
		detections = detections[:e.MaxStars]
	}

	stars := make([]extract.Star, 0, len(detections))

	for _, d := range detections {
		x, y := float64(d.X), float64(d.Y)

		hfr, ellipticity := measureHFRAndEllipticity(data, width, height, x, y, int(e.Radius))

		stars = append(stars, extract.Star{
			X:           x,
			Y:           y,
			Peak:        float64(d.Intensity),
			Flux:        windowFlux(data, width, height, x, y, int(e.Radius)),
			HFR:         hfr,
			Ellipticity: ellipticity,
		})
	}

	return extract.Result{
		Stars:     stars,
		MeanHFR:   meanHFR(stars),
		MedianHFR: medianHFR(stars),
	}, nil
}

/*****************************************************************************************************************/

// windowFlux sums the pixel values in a square window of half-width radius centred
// on (cx, cy), clamped to the image bounds.
func windowFlux(data []float32, width, height int, cx, cy float64, radius int) float64 {
	flux := 0.0

	x0, x1, y0, y1 := windowBounds(width, height, cx, cy, radius)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			flux += float64(data[y*width+x])
		}
	}

	return flux
}

/*****************************************************************************************************************/

// measureHFRAndEllipticity returns the half-flux radius (the radius enclosing half the total flux
// in the window) and an ellipticity measure derived from the window's second
// intensity moments, the two quantities the half-flux-radius (HFR) focus metric and
// star-scoring shape term depend on.
func measureHFRAndEllipticity(data []float32, width, height int, cx, cy float64, radius int) (hfr, ellipticity float64) {
	x0, x1, y0, y1 := windowBounds(width, height, cx, cy, radius)

	totalFlux := 0.0

	var sumXX, sumYY, sumXY float64

	type sample struct {
		r, flux float64
	}

	samples := make([]sample, 0, (x1-x0)*(y1-y0))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := float64(data[y*width+x])

			if v <= 0 {
				continue
			}

			dx := float64(x) - cx
			dy := float64(y) - cy

			totalFlux += v
			sumXX += v * dx * dx
			sumYY += v * dy * dy
			sumXY += v * dx * dy

			samples = append(samples, sample{r: math.Hypot(dx, dy), flux: v})
		}
	}

	if totalFlux <= 0 || len(samples) == 0 {
		return 0, 0
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].r < samples[j].r
	})

	half := totalFlux / 2

	accumulated := 0.0

	for _, s := range samples {
		accumulated += s.flux

		if accumulated >= half {
			hfr = s.r
			break
		}
	}

	// Second-moment based ellipticity, 1 = perfectly round, 0 = a line:
	ixx := sumXX / totalFlux
	iyy := sumYY / totalFlux
	ixy := sumXY / totalFlux

	trace := ixx + iyy
	det := ixx*iyy - ixy*ixy

	if trace <= 0 {
		return hfr, 0
	}

	discriminant := math.Max(trace*trace/4-det, 0)

	lambda1 := trace/2 + math.Sqrt(discriminant)
	lambda2 := trace/2 - math.Sqrt(discriminant)

	if lambda1 <= 0 {
		return hfr, 0
	}

	semiMinor := math.Sqrt(math.Max(lambda2, 0))
	semiMajor := math.Sqrt(lambda1)

	if semiMajor == 0 {
		return hfr, 0
	}

	ellipticity = semiMinor / semiMajor

	return hfr, ellipticity
}

/*****************************************************************************************************************/

// windowBounds clamps a square window of half-width radius centred on (cx, cy) to
// the image bounds [0,width) x [0,height).
func windowBounds(width, height int, cx, cy float64, radius int) (x0, x1, y0, y1 int) {
	x0 = int(cx) - radius
	x1 = int(cx) + radius
	y0 = int(cy) - radius
	y1 = int(cy) + radius

	if x0 < 0 {
		x0 = 0
	}

	if y0 < 0 {
		y0 = 0
	}

	if x1 > width {
		x1 = width
	}

	if y1 > height {
		y1 = height
	}

	return x0, x1, y0, y1
}

/*****************************************************************************************************************/

func meanHFR(stars []extract.Star) float64 {
	if len(stars) == 0 {
		return 0
	}

	sum := 0.0

	for _, s := range stars {
		sum += s.HFR
	}

	return sum / float64(len(stars))
}

/*****************************************************************************************************************/

func medianHFR(stars []extract.Star) float64 {
	n := len(stars)

	if n == 0 {
		return 0
	}

	values := make([]float64, n)

	for i, s := range stars {
		values[i] = s.HFR
	}

	sort.Float64s(values)

	if n%2 == 1 {
		return values[n/2]
	}

	return (values[n/2-1] + values[n/2]) / 2
}

/*****************************************************************************************************************/
