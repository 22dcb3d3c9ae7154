/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package platesolve

/*****************************************************************************************************************/

import (
	"math"
	"testing"
)

/*****************************************************************************************************************/

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

/*****************************************************************************************************************/

func TestPixelScaleDegKnownGeometry(t *testing.T) {
	// A 25.4mm wide sensor over 4000 pixels with a 600mm focal length:
	scale := pixelScaleDeg(25.4, 4000, 600)

	pixelSizeMM := 25.4 / 4000
	expected := math.Atan(pixelSizeMM/600) * 180 / math.Pi

	if !almostEqual(scale, expected, 1e-12) {
		t.Errorf("pixelScaleDeg mismatch: got %v, want %v", scale, expected)
	}

	if scale <= 0 {
		t.Errorf("expected a positive pixel scale, got %v", scale)
	}
}

/*****************************************************************************************************************/

func TestPixelScaleDegZeroPixelCount(t *testing.T) {
	scale := pixelScaleDeg(25.4, 0, 600)

	if scale != 0 {
		t.Errorf("expected zero pixel scale for zero pixel count, got %v", scale)
	}
}

/*****************************************************************************************************************/
