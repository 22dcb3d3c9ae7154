/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package starextract

/*****************************************************************************************************************/

import (
	"math"
	"testing"

	"github.com/observerly/skyguide/pkg/extract"
)

/*****************************************************************************************************************/

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

/*****************************************************************************************************************/

// syntheticStarImage renders a radially symmetric Gaussian-ish star of the given
// peak and sigma (in pixels) at (cx, cy) in a width x height background-zero image.
func syntheticStarImage(width, height int, cx, cy, peak, sigma float64) []float32 {
	data := make([]float32, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			r2 := dx*dx + dy*dy

			data[y*width+x] = float32(peak * math.Exp(-r2/(2*sigma*sigma)))
		}
	}

	return data
}

/*****************************************************************************************************************/

func TestMeasureHFRAndEllipticitySymmetricStar(t *testing.T) {
	width, height := 64, 64
	cx, cy := 32.0, 32.0

	data := syntheticStarImage(width, height, cx, cy, 1000, 4)

	hfr, ellipticity := measureHFRAndEllipticity(data, width, height, cx, cy, 16)

	if hfr <= 0 {
		t.Fatalf("expected a positive HFR for a real star, got %v", hfr)
	}

	// A radially symmetric star should measure close to circular (ellipticity near 1):
	if !almostEqual(ellipticity, 1, 0.05) {
		t.Errorf("expected near-circular ellipticity for a symmetric star, got %v", ellipticity)
	}
}

/*****************************************************************************************************************/

func TestMeasureHFREmptyWindowIsZero(t *testing.T) {
	width, height := 16, 16
	data := make([]float32, width*height)

	hfr, ellipticity := measureHFRAndEllipticity(data, width, height, 8, 8, 4)

	if hfr != 0 || ellipticity != 0 {
		t.Errorf("expected zero HFR/ellipticity for an empty window, got hfr=%v ellipticity=%v", hfr, ellipticity)
	}
}

/*****************************************************************************************************************/

func TestWindowFluxSumsOnlyWithinBounds(t *testing.T) {
	width, height := 8, 8
	data := make([]float32, width*height)

	for i := range data {
		data[i] = 1
	}

	flux := windowFlux(data, width, height, 0, 0, 2)

	// Window clamped to [0,2)x[0,2), i.e. 4 pixels of value 1:
	if !almostEqual(flux, 4, 1e-9) {
		t.Errorf("expected clamped-window flux of 4, got %v", flux)
	}
}

/*****************************************************************************************************************/

func TestMeanAndMedianHFR(t *testing.T) {
	stars := []extract.Star{
		{HFR: 1.0},
		{HFR: 2.0},
		{HFR: 3.0},
	}

	if mean := meanHFR(stars); !almostEqual(mean, 2.0, 1e-9) {
		t.Errorf("expected mean HFR of 2.0, got %v", mean)
	}

	if median := medianHFR(stars); !almostEqual(median, 2.0, 1e-9) {
		t.Errorf("expected median HFR of 2.0, got %v", median)
	}
}

/*****************************************************************************************************************/

func TestMeanAndMedianHFREmpty(t *testing.T) {
	if mean := meanHFR(nil); mean != 0 {
		t.Errorf("expected zero mean HFR for no stars, got %v", mean)
	}

	if median := medianHFR(nil); median != 0 {
		t.Errorf("expected zero median HFR for no stars, got %v", median)
	}
}

/*****************************************************************************************************************/
