/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package polaralign

/*****************************************************************************************************************/

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/observerly/skyguide/pkg/spherical"
)

/*****************************************************************************************************************/

// errBadGeometry is the internal sentinel CalculateDeviation returns on coincident
// points or a degenerate circle fit; engine.go wraps it into the BadGeometry Kind.
var errBadGeometry = errors.New("three-point fit is degenerate")

/*****************************************************************************************************************/

// minCoincidentSeparationDeg is the pair-separation below which two measurement
// points are treated as coincident rather than merely close.
const minCoincidentSeparationDeg = 0.01

/*****************************************************************************************************************/

// DeviationResult is the geometric alignment result: the mount's measured rotation
// axis ("fake pole"), its azimuth/altitude offset from the true pole expressed in
// the true pole's tangent plane, and a confidence score.
type DeviationResult struct {
	FakePole             spherical.Equatorial
	AzimuthDeviationDeg  float64
	AltitudeDeviationDeg float64
	Confidence           float64
	Valid                bool
}

/*****************************************************************************************************************/

// CalculateDeviation fits a spherical small circle through the three plate-solved
// principal points and expresses its normal's offset from the true pole in the true
// pole's tangent plane, following the method: fit the circle's normal c_hat, pick the
// hemisphere nearest the true pole, compute the circle-fit RMS residual, and log-map
// c_hat into (east, north) coordinates at the true pole.
func CalculateDeviation(points [3]spherical.Equatorial, truePole spherical.Equatorial) (DeviationResult, error) {
	q0 := spherical.ToVector(points[0])
	q1 := spherical.ToVector(points[1])
	q2 := spherical.ToVector(points[2])

	separations := []float64{
		spherical.GreatCircleDistanceDeg(q0, q1),
		spherical.GreatCircleDistanceDeg(q1, q2),
		spherical.GreatCircleDistanceDeg(q0, q2),
	}

	minSeparation := separations[0]
	for _, s := range separations[1:] {
		if s < minSeparation {
			minSeparation = s
		}
	}

	if minSeparation < minCoincidentSeparationDeg {
		return DeviationResult{}, errBadGeometry
	}

	cHat := spherical.Unit(r3.Cross(r3.Sub(q0, q1), r3.Sub(q0, q2)))

	if cHat == (spherical.Vector{}) {
		return DeviationResult{}, errBadGeometry
	}

	pTrue := spherical.ToVector(truePole)

	if r3.Dot(cHat, pTrue) < 0 {
		cHat = r3.Scale(-1, cHat)
	}

	angles := [3]float64{
		spherical.GreatCircleDistance(cHat, q0),
		spherical.GreatCircleDistance(cHat, q1),
		spherical.GreatCircleDistance(cHat, q2),
	}

	radius := (angles[0] + angles[1] + angles[2]) / 3

	rmsResidual := 0.0
	for _, a := range angles {
		d := a - radius
		rmsResidual += d * d
	}
	rmsResidual = math.Sqrt(rmsResidual / 3)

	east, north := spherical.EastNorthBasis(pTrue)

	du, dv := spherical.LogMap(pTrue, east, north, cHat)

	azimuthDeviationDeg := spherical.RadiansToDegrees(du)
	altitudeDeviationDeg := spherical.RadiansToDegrees(dv)

	if math.IsNaN(azimuthDeviationDeg) || math.IsNaN(altitudeDeviationDeg) ||
		math.IsInf(azimuthDeviationDeg, 0) || math.IsInf(altitudeDeviationDeg, 0) {
		return DeviationResult{}, errBadGeometry
	}

	meanAngle := radius
	ratio := 0.0
	if meanAngle != 0 {
		ratio = rmsResidual / meanAngle
	}

	spreadGain := minSeparation / 5
	if spreadGain > 1 {
		spreadGain = 1
	}
	if spreadGain < 0 {
		spreadGain = 0
	}

	confidence := (1 / (1 + ratio*ratio)) * spreadGain

	return DeviationResult{
		FakePole:             spherical.ToEquatorial(cHat),
		AzimuthDeviationDeg:  azimuthDeviationDeg,
		AltitudeDeviationDeg: altitudeDeviationDeg,
		Confidence:           confidence,
		Valid:                true,
	}, nil
}

/*****************************************************************************************************************/

// CalculateDeviationWithRMSBound is CalculateDeviation, additionally rejecting fits
// whose circle RMS residual exceeds maxRMSDeg — the stricter "always reject on
// RMS > threshold" collinearity policy.
func CalculateDeviationWithRMSBound(points [3]spherical.Equatorial, truePole spherical.Equatorial, maxRMSDeg float64) (DeviationResult, error) {
	q0 := spherical.ToVector(points[0])
	q1 := spherical.ToVector(points[1])
	q2 := spherical.ToVector(points[2])

	cHat := spherical.Unit(r3.Cross(r3.Sub(q0, q1), r3.Sub(q0, q2)))

	if cHat != (spherical.Vector{}) {
		pTrue := spherical.ToVector(truePole)
		if r3.Dot(cHat, pTrue) < 0 {
			cHat = r3.Scale(-1, cHat)
		}

		angles := [3]float64{
			spherical.GreatCircleDistanceDeg(cHat, q0),
			spherical.GreatCircleDistanceDeg(cHat, q1),
			spherical.GreatCircleDistanceDeg(cHat, q2),
		}

		radius := (angles[0] + angles[1] + angles[2]) / 3

		rmsResidual := 0.0
		for _, a := range angles {
			d := a - radius
			rmsResidual += d * d
		}
		rmsResidual = math.Sqrt(rmsResidual / 3)

		if rmsResidual > maxRMSDeg {
			return DeviationResult{}, errBadGeometry
		}
	}

	return CalculateDeviation(points, truePole)
}

/*****************************************************************************************************************/

// TargetPoint constructs the minimum-rotation mapping that carries the fake pole c
// onto the true pole p (Rodrigues formula) and applies it to the current solved
// position s, producing the fixed guidance target.
func TargetPoint(s, c, p spherical.Vector) spherical.Vector {
	return spherical.MapPoint(s, c, p)
}

/*****************************************************************************************************************/

// GuideOffset is the tangent-plane offset from the current solved position to the
// fixed target, expressed in degrees with a magnitude and compass bearing.
type GuideOffset struct {
	OffsetEastDeg  float64
	OffsetNorthDeg float64
	MagnitudeDeg   float64
	BearingDeg     float64
}

/*****************************************************************************************************************/

// TangentPlaneGuidance builds an east-north basis at the current solved point S and
// returns the log-map offset to the fixed target T.
func TangentPlaneGuidance(s, target spherical.Vector) GuideOffset {
	east, north := spherical.EastNorthBasis(s)

	u, v := spherical.LogMap(s, east, north, target)

	offsetEastDeg := spherical.RadiansToDegrees(u)
	offsetNorthDeg := spherical.RadiansToDegrees(v)

	return GuideOffset{
		OffsetEastDeg:  offsetEastDeg,
		OffsetNorthDeg: offsetNorthDeg,
		MagnitudeDeg:   math.Hypot(offsetEastDeg, offsetNorthDeg),
		BearingDeg:     spherical.BearingDeg(u, v),
	}
}

/*****************************************************************************************************************/
