/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package polaralign

/*****************************************************************************************************************/

import (
	"math"
	"testing"

	"github.com/observerly/skyguide/pkg/spherical"
)

/*****************************************************************************************************************/

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

/*****************************************************************************************************************/

// TestCalculateDeviationThreePointPoleFit covers Scenario C: three plate-solved
// points near the northern celestial pole should recover a fake pole within 0.5° of
// (0°, 90°) with confidence above 0.8 and both deviations below 0.5°.
func TestCalculateDeviationThreePointPoleFit(t *testing.T) {
	points := [3]spherical.Equatorial{
		{RA: 0, Dec: 80},
		{RA: 15, Dec: 80},
		{RA: 30, Dec: 80},
	}

	truePole := spherical.Equatorial{RA: 0, Dec: 90}

	result, err := CalculateDeviationWithRMSBound(points, truePole, 0.25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Valid {
		t.Fatalf("expected a valid fit")
	}

	fakePoleVec := spherical.ToVector(result.FakePole)
	truePoleVec := spherical.ToVector(truePole)

	distDeg := spherical.GreatCircleDistanceDeg(fakePoleVec, truePoleVec)

	if distDeg > 0.5 {
		t.Errorf("expected fake pole within 0.5° of true pole, got %v°", distDeg)
	}

	if result.Confidence <= 0.8 {
		t.Errorf("expected confidence > 0.8, got %v", result.Confidence)
	}

	if math.Abs(result.AzimuthDeviationDeg) > 0.5 {
		t.Errorf("expected azimuth deviation below 0.5°, got %v", result.AzimuthDeviationDeg)
	}

	if math.Abs(result.AltitudeDeviationDeg) > 0.5 {
		t.Errorf("expected altitude deviation below 0.5°, got %v", result.AltitudeDeviationDeg)
	}
}

/*****************************************************************************************************************/

// TestCalculateDeviationDegenerateGeometry covers Scenario E: three coincident
// points must reject with the bad-geometry sentinel.
func TestCalculateDeviationDegenerateGeometry(t *testing.T) {
	points := [3]spherical.Equatorial{
		{RA: 10, Dec: 40},
		{RA: 10, Dec: 40},
		{RA: 10, Dec: 40},
	}

	truePole := spherical.Equatorial{RA: 0, Dec: 90}

	_, err := CalculateDeviationWithRMSBound(points, truePole, 0.25)
	if err == nil {
		t.Fatalf("expected an error for coincident points")
	}
}

/*****************************************************************************************************************/

func TestCalculateDeviationRejectsHighRMSResidual(t *testing.T) {
	points := [3]spherical.Equatorial{
		{RA: 0, Dec: 70},
		{RA: 15, Dec: 80},
		{RA: 30, Dec: 60},
	}

	truePole := spherical.Equatorial{RA: 0, Dec: 90}

	_, err := CalculateDeviationWithRMSBound(points, truePole, 0.01)
	if err == nil {
		t.Fatalf("expected the tight RMS bound to reject a noisy fit")
	}
}

/*****************************************************************************************************************/

func TestFakePoleSameHemisphereAsTruePole(t *testing.T) {
	points := [3]spherical.Equatorial{
		{RA: 0, Dec: 80},
		{RA: 15, Dec: 80},
		{RA: 30, Dec: 80},
	}

	truePole := spherical.Equatorial{RA: 0, Dec: 90}

	result, err := CalculateDeviation(points, truePole)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fakePoleVec := spherical.ToVector(result.FakePole)
	truePoleVec := spherical.ToVector(truePole)

	if dot := fakePoleVec.X*truePoleVec.X + fakePoleVec.Y*truePoleVec.Y + fakePoleVec.Z*truePoleVec.Z; dot < 0 {
		t.Errorf("expected fake pole to be in the same hemisphere as the true pole, dot = %v", dot)
	}
}

/*****************************************************************************************************************/

func TestTangentPlaneGuidanceZeroAtTarget(t *testing.T) {
	s := spherical.ToVector(spherical.Equatorial{RA: 10, Dec: 40})

	offset := TangentPlaneGuidance(s, s)

	if !almostEqual(offset.MagnitudeDeg, 0, 1e-6) {
		t.Errorf("expected zero offset when S equals the target, got %v", offset.MagnitudeDeg)
	}
}

/*****************************************************************************************************************/

func TestTargetPointIdentityWhenFakePoleEqualsTruePole(t *testing.T) {
	s := spherical.ToVector(spherical.Equatorial{RA: 10, Dec: 40})
	pole := spherical.ToVector(spherical.Equatorial{RA: 0, Dec: 90})

	target := TargetPoint(s, pole, pole)

	if spherical.GreatCircleDistanceDeg(s, target) > 1e-9 {
		t.Errorf("expected target to equal s when fake pole already equals true pole")
	}
}

/*****************************************************************************************************************/
