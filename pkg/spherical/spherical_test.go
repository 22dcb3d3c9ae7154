/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package spherical

/*****************************************************************************************************************/

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

/*****************************************************************************************************************/

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

/*****************************************************************************************************************/

func TestToVectorAndBackRoundTrips(t *testing.T) {
	cases := []Equatorial{
		{RA: 0, Dec: 0},
		{RA: 90, Dec: 45},
		{RA: 180, Dec: -45},
		{RA: 270.5, Dec: 88.9},
		{RA: 359.9, Dec: -88.9},
	}

	for _, eq := range cases {
		v := ToVector(eq)
		back := ToEquatorial(v)

		if !almostEqual(back.RA, eq.RA, 1e-6) {
			t.Errorf("RA round-trip: got %v, want %v", back.RA, eq.RA)
		}

		if !almostEqual(back.Dec, eq.Dec, 1e-6) {
			t.Errorf("Dec round-trip: got %v, want %v", back.Dec, eq.Dec)
		}
	}
}

/*****************************************************************************************************************/

func TestGreatCircleDistanceIsSymmetric(t *testing.T) {
	p := ToVector(Equatorial{RA: 10, Dec: 20})
	q := ToVector(Equatorial{RA: 50, Dec: -10})

	pq := GreatCircleDistance(p, q)
	qp := GreatCircleDistance(q, p)

	// 1 µdeg in radians:
	epsilon := 1e-6 * math.Pi / 180

	if !almostEqual(pq, qp, epsilon) {
		t.Errorf("GreatCircleDistance not symmetric: d(p,q)=%v d(q,p)=%v", pq, qp)
	}
}

/*****************************************************************************************************************/

func TestGreatCircleDistanceZeroForIdenticalPoints(t *testing.T) {
	p := ToVector(Equatorial{RA: 123.4, Dec: 56.7})

	d := GreatCircleDistance(p, p)

	if !almostEqual(d, 0, 1e-12) {
		t.Errorf("expected zero distance, got %v", d)
	}
}

/*****************************************************************************************************************/

func TestRotationMappingIdentityWhenAligned(t *testing.T) {
	p := ToVector(Equatorial{RA: 0, Dec: 90})

	axis, theta := RotationMapping(p, p)

	if theta != 0 {
		t.Errorf("expected zero rotation angle, got %v", theta)
	}

	if r3.Norm(axis) == 0 {
		t.Errorf("expected a well-defined identity axis")
	}
}

/*****************************************************************************************************************/

func TestRotationMappingAntipodal(t *testing.T) {
	c := ToVector(Equatorial{RA: 0, Dec: 90})
	p := ToVector(Equatorial{RA: 0, Dec: -90})

	axis, theta := RotationMapping(c, p)

	if !almostEqual(theta, math.Pi, 1e-9) {
		t.Errorf("expected 180 degree rotation, got %v radians", theta)
	}

	if !almostEqual(r3.Dot(axis, c), 0, 1e-9) {
		t.Errorf("expected axis perpendicular to c, got dot=%v", r3.Dot(axis, c))
	}
}

/*****************************************************************************************************************/

func TestMapPointCarriesFakePoleOntoTruePole(t *testing.T) {
	c := ToVector(Equatorial{RA: 10, Dec: 85})
	p := ToVector(Equatorial{RA: 0, Dec: 90})

	mapped := MapPoint(c, c, p)

	d := GreatCircleDistance(mapped, p)

	if !almostEqual(d, 0, 1e-9) {
		t.Errorf("MapPoint(c,c,p) should equal p, distance was %v", d)
	}
}

/*****************************************************************************************************************/

func TestLogMapExpMapRoundTrips(t *testing.T) {
	s := ToVector(Equatorial{RA: 45, Dec: 30})
	q := ToVector(Equatorial{RA: 45.1, Dec: 30.05})

	east, north := EastNorthBasis(s)

	u, v := LogMap(s, east, north, q)

	recovered := ExpMap(s, east, north, u, v)

	d := GreatCircleDistance(recovered, q)

	if d > 1e-6 {
		t.Errorf("LogMap/ExpMap round-trip error too large: %v radians", d)
	}
}

/*****************************************************************************************************************/

func TestEastNorthBasisOrthonormal(t *testing.T) {
	s := ToVector(Equatorial{RA: 123, Dec: 12})

	east, north := EastNorthBasis(s)

	if !almostEqual(r3.Norm(east), 1, 1e-9) {
		t.Errorf("east not unit length: %v", r3.Norm(east))
	}

	if !almostEqual(r3.Norm(north), 1, 1e-9) {
		t.Errorf("north not unit length: %v", r3.Norm(north))
	}

	if !almostEqual(r3.Dot(east, north), 0, 1e-9) {
		t.Errorf("east/north not orthogonal: dot=%v", r3.Dot(east, north))
	}

	if !almostEqual(r3.Dot(east, s), 0, 1e-9) {
		t.Errorf("east not tangent to s: dot=%v", r3.Dot(east, s))
	}
}

/*****************************************************************************************************************/

func TestBearingDegNorth(t *testing.T) {
	bearing := BearingDeg(0, 1)

	if !almostEqual(bearing, 0, 1e-9) {
		t.Errorf("expected bearing 0 for due north offset, got %v", bearing)
	}
}

/*****************************************************************************************************************/

func TestBearingDegEast(t *testing.T) {
	bearing := BearingDeg(1, 0)

	if !almostEqual(bearing, 90, 1e-9) {
		t.Errorf("expected bearing 90 for due east offset, got %v", bearing)
	}
}

/*****************************************************************************************************************/
