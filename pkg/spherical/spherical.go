/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package spherical

/*****************************************************************************************************************/

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

/*****************************************************************************************************************/

// Vector is a unit 3-vector representation of a celestial direction, the internal
// representation used once geometric operations (distance, rotation, tangent-plane
// projection) are needed, rather than doing RA/Dec arithmetic as if it were Cartesian.
type Vector = r3.Vec

/*****************************************************************************************************************/

// Equatorial is a celestial direction expressed in right ascension / declination, both
// in degrees, with ra ∈ [0, 360) and dec ∈ [−90, +90].
type Equatorial struct {
	RA  float64
	Dec float64
}

/*****************************************************************************************************************/

// ToVector converts an Equatorial direction to a unit 3-vector:
// p = (cos δ cos α, cos δ sin α, sin δ)
func ToVector(eq Equatorial) Vector {
	ra := eq.RA * math.Pi / 180
	dec := eq.Dec * math.Pi / 180

	cosDec := math.Cos(dec)

	return Vector{
		X: cosDec * math.Cos(ra),
		Y: cosDec * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

/*****************************************************************************************************************/

// ToEquatorial converts a unit 3-vector back to an Equatorial direction, normalising
// RA into [0, 360).
func ToEquatorial(p Vector) Equatorial {
	dec := math.Asin(clip(p.Z, -1, 1))
	ra := math.Atan2(p.Y, p.X) * 180 / math.Pi

	if ra < 0 {
		ra += 360
	}

	return Equatorial{
		RA:  ra,
		Dec: dec * 180 / math.Pi,
	}
}

/*****************************************************************************************************************/

// clip restricts a value to the closed interval [lo, hi], guarding the inverse
// trigonometric calls (Acos/Asin) against floating-point drift outside [-1, 1].
func clip(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}

	if value > hi {
		return hi
	}

	return value
}

/*****************************************************************************************************************/

// GreatCircleDistance returns the angular distance in radians between two unit
// vectors: arccos(clip(p·q, −1, 1)). Symmetric in p and q.
func GreatCircleDistance(p, q Vector) float64 {
	return math.Acos(clip(r3.Dot(p, q), -1, 1))
}

/*****************************************************************************************************************/

// GreatCircleDistanceDeg is GreatCircleDistance expressed in degrees.
func GreatCircleDistanceDeg(p, q Vector) float64 {
	return GreatCircleDistance(p, q) * 180 / math.Pi
}

/*****************************************************************************************************************/

// Unit normalises v to a unit vector. Returns the zero vector if v has zero norm,
// rather than producing NaNs, so degenerate inputs fail later checks explicitly
// instead of propagating silently.
func Unit(v Vector) Vector {
	n := r3.Norm(v)

	if n == 0 {
		return Vector{}
	}

	return r3.Scale(1/n, v)
}

/*****************************************************************************************************************/

// Rotate applies the Rodrigues rotation formula, rotating v about the unit axis k by
// angle theta (radians):
//
//	v_rot = v·cosθ + (k×v)·sinθ + k·(k·v)·(1−cosθ)
func Rotate(v, k Vector, theta float64) Vector {
	cosT := math.Cos(theta)
	sinT := math.Sin(theta)

	term1 := r3.Scale(cosT, v)
	term2 := r3.Scale(sinT, r3.Cross(k, v))
	term3 := r3.Scale(r3.Dot(k, v)*(1-cosT), k)

	return r3.Add(r3.Add(term1, term2), term3)
}

/*****************************************************************************************************************/

// epsilon bounds how close two unit vectors must be (via their dot product) to 1 or
// −1 before they are treated as coincident or antipodal for rotation purposes.
const epsilon = 1e-9

/*****************************************************************************************************************/

// RotationMapping returns the minimum-rotation axis and angle that maps unit vector c
// onto unit vector p, via the Rodrigues construction. If c and p already coincide, the
// returned angle is zero and the axis is arbitrary (the identity rotation). If c and p
// are antipodal, the rotation is 180° about any axis perpendicular to c.
func RotationMapping(c, p Vector) (axis Vector, theta float64) {
	d := r3.Dot(c, p)

	if d >= 1-epsilon {
		return Vector{X: 0, Y: 0, Z: 1}, 0
	}

	if d <= -1+epsilon {
		return Unit(AnyPerpendicular(c)), math.Pi
	}

	axis = Unit(r3.Cross(c, p))
	theta = math.Acos(clip(d, -1, 1))

	return axis, theta
}

/*****************************************************************************************************************/

// MapPoint maps a point s from the fake-pole frame into the true-pole frame, using the
// minimum rotation that carries c (fake pole) onto p (true pole):
//
//	target = R·s
func MapPoint(s, c, p Vector) Vector {
	axis, theta := RotationMapping(c, p)

	if theta == 0 {
		return s
	}

	return Rotate(s, axis, theta)
}

/*****************************************************************************************************************/

// AnyPerpendicular returns an arbitrary unit vector perpendicular to v, used when v
// and its target are antipodal and the rotation axis is otherwise undetermined.
func AnyPerpendicular(v Vector) Vector {
	// Pick whichever of the world X or Z axes is least aligned with v, to avoid a
	// near-zero cross product:
	ref := Vector{X: 1, Y: 0, Z: 0}

	if math.Abs(v.X) > 0.9 {
		ref = Vector{X: 0, Y: 0, Z: 1}
	}

	return Unit(r3.Cross(v, ref))
}

/*****************************************************************************************************************/

// EastNorthBasis builds an orthonormal (east, north) tangent-plane basis at the unit
// vector s, following the convention north = normalise(cross(cross(s, ẑ), s)),
// east = normalise(cross(north, s)).
func EastNorthBasis(s Vector) (east, north Vector) {
	zHat := Vector{X: 0, Y: 0, Z: 1}

	north = Unit(r3.Cross(r3.Cross(s, zHat), s))

	// At the poles, cross(s, ẑ) is zero; fall back to a fixed basis since east/north
	// are not well-defined there:
	if north == (Vector{}) {
		north = Vector{X: 0, Y: 1, Z: 0}
	}

	east = Unit(r3.Cross(north, s))

	return east, north
}

/*****************************************************************************************************************/

// LogMap projects the point q onto the tangent plane at base point s, using the
// (east, north) basis, returning (u_east, v_north) in radians. This is the inverse of
// ExpMap: for q near s the result approximates the great-circle offset in a locally
// flat 2-D frame.
func LogMap(s Vector, east, north Vector, q Vector) (u, v float64) {
	d := GreatCircleDistance(s, q)

	if d == 0 {
		return 0, 0
	}

	// Project q onto the tangent plane direction at s:
	sinD := math.Sin(d)

	if sinD == 0 {
		return 0, 0
	}

	// Component of q orthogonal to s, scaled by the angular distance over sin(d) so
	// that small angles recover the Euclidean tangent-plane offset:
	qPerp := r3.Sub(q, r3.Scale(r3.Dot(s, q), s))
	qPerp = r3.Scale(d/sinD, qPerp)

	u = r3.Dot(qPerp, east)
	v = r3.Dot(qPerp, north)

	return u, v
}

/*****************************************************************************************************************/

// ExpMap is the inverse of LogMap: given a base point s, its (east, north) basis, and a
// tangent-plane offset (u, v) in radians, returns the corresponding point on the unit
// sphere.
func ExpMap(s Vector, east, north Vector, u, v float64) Vector {
	mag := math.Hypot(u, v)

	if mag == 0 {
		return s
	}

	direction := r3.Add(r3.Scale(u/mag, east), r3.Scale(v/mag, north))

	return r3.Add(r3.Scale(math.Cos(mag), s), r3.Scale(math.Sin(mag), direction))
}

/*****************************************************************************************************************/

// RadiansToArcminutes converts an angle in radians to arcminutes.
func RadiansToArcminutes(rad float64) float64 {
	return rad * 180 / math.Pi * 60
}

/*****************************************************************************************************************/

// RadiansToDegrees converts an angle in radians to degrees.
func RadiansToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

/*****************************************************************************************************************/

// DegreesToRadians converts an angle in degrees to radians.
func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

/*****************************************************************************************************************/

// BearingDeg returns the compass bearing (0° = north, clockwise positive) of a
// tangent-plane offset (u_east, v_north).
func BearingDeg(uEast, vNorth float64) float64 {
	bearing := math.Atan2(uEast, vNorth) * 180 / math.Pi

	if bearing < 0 {
		bearing += 360
	}

	return bearing
}

/*****************************************************************************************************************/
