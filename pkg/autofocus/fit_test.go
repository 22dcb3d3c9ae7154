/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package autofocus

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

// TestFitOnParabola covers Scenario A: a clean parabola centred at 5000.
func TestFitOnParabola(t *testing.T) {
	samples := []Sample{
		NewSample(4000, []float64{3.5}),
		NewSample(4500, []float64{2.4}),
		NewSample(5000, []float64{1.2}),
		NewSample(5500, []float64{2.3}),
		NewSample(6000, []float64{3.4}),
	}

	fit, err := Fit(samples, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !fit.Valid {
		t.Fatalf("expected a valid fit, got %+v", fit)
	}

	if !almostEqual(fit.BestPosition, 5000, 10) {
		t.Errorf("expected bestPosition ≈ 5000, got %v", fit.BestPosition)
	}

	if fit.RSquared <= 0.99 {
		t.Errorf("expected R² > 0.99, got %v", fit.RSquared)
	}
}

/*****************************************************************************************************************/

// TestFitRejectedFallsBackToInterpolation covers Scenario B: a nearly flat sample
// set where |a| is below epsilon, so the engine should fall back to the
// minimum-HFR sample rather than trust the parabola.
func TestFitRejectedFallsBackToInterpolation(t *testing.T) {
	samples := []Sample{
		NewSample(4000, []float64{3.5}),
		NewSample(4500, []float64{3.4}),
		NewSample(5000, []float64{3.3}),
		NewSample(5500, []float64{3.45}),
		NewSample(6000, []float64{3.6}),
	}

	fit, err := Fit(samples, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := fit
	if !result.Valid {
		result = Interpolate(samples)
	}

	if result.BestPosition != 5000 {
		t.Errorf("expected bestPosition = 5000, got %v", result.BestPosition)
	}

	if result.MinHFR != 3.3 {
		t.Errorf("expected minHFR = 3.3, got %v", result.MinHFR)
	}
}

/*****************************************************************************************************************/

func TestFilterOutliersKeepsAllBelowThreeSamples(t *testing.T) {
	samples := []Sample{
		NewSample(1000, []float64{1}),
		NewSample(2000, []float64{100}),
	}

	filtered := filterOutliers(samples)

	if len(filtered) != 2 {
		t.Errorf("expected both samples kept when n < 3, got %d", len(filtered))
	}
}

/*****************************************************************************************************************/

func TestFilterOutliersRemovesSpike(t *testing.T) {
	samples := []Sample{
		NewSample(1000, []float64{2.0}),
		NewSample(2000, []float64{2.1}),
		NewSample(3000, []float64{1.9}),
		NewSample(4000, []float64{2.0}),
		NewSample(5000, []float64{50.0}),
	}

	filtered := filterOutliers(samples)

	for _, s := range filtered {
		if s.HFR == 50.0 {
			t.Errorf("expected the 50.0 spike to be filtered out, got %+v", filtered)
		}
	}
}

/*****************************************************************************************************************/

func TestNewSampleComputesMeanHFR(t *testing.T) {
	s := NewSample(5000, []float64{1.0, 2.0, 3.0})

	if s.HFR != 2.0 {
		t.Errorf("expected mean HFR = 2.0, got %v", s.HFR)
	}

	if len(s.Measurements) != 3 {
		t.Errorf("expected 3 measurements retained, got %d", len(s.Measurements))
	}
}

/*****************************************************************************************************************/
