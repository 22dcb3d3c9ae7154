/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package spherical

/*****************************************************************************************************************/

import (
	"math"
	"time"
)

/*****************************************************************************************************************/

// JulianDay returns the Julian Day number for t (converted to UTC internally), using
// the standard Meeus Gregorian-calendar formula. No Julian-calendar branch is carried:
// every timestamp this engine ever computes from is the live UTC clock, always long
// after the Gregorian reform of 1582, so the original's calendar-branch logic would
// never execute (see DESIGN.md, Open Question i).
func JulianDay(t time.Time) float64 {
	t = t.UTC()

	year := t.Year()
	month := int(t.Month())
	day := float64(t.Day()) +
		(float64(t.Hour())+float64(t.Minute())/60+float64(t.Second())/3600+float64(t.Nanosecond())/3.6e12)/24

	if month <= 2 {
		year--
		month += 12
	}

	a := math.Floor(float64(year) / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + day + b - 1524.5

	return jd
}

/*****************************************************************************************************************/

// GreenwichMeanSiderealTimeDeg returns GMST in degrees [0, 360) for the instant t,
// via the standard IAU polynomial in Julian centuries since J2000.0.
func GreenwichMeanSiderealTimeDeg(t time.Time) float64 {
	jd := JulianDay(t)

	centuries := (jd - 2451545.0) / 36525.0

	gmst := 280.46061837 +
		360.98564736629*(jd-2451545.0) +
		0.000387933*centuries*centuries -
		centuries*centuries*centuries/38710000.0

	gmst = math.Mod(gmst, 360)

	if gmst < 0 {
		gmst += 360
	}

	return gmst
}

/*****************************************************************************************************************/

// LocalSiderealTime returns the local sidereal time in degrees [0, 360) at the given
// instant and observer longitude (degrees, east-positive), folding in
// computeHomeRAHours / computeHAHours's LST dependency from the original mount state.
func LocalSiderealTime(t time.Time, longitudeDeg float64) float64 {
	lst := GreenwichMeanSiderealTimeDeg(t) + longitudeDeg

	lst = math.Mod(lst, 360)

	if lst < 0 {
		lst += 360
	}

	return lst
}

/*****************************************************************************************************************/

// HourAngle returns the hour angle in degrees of a target right ascension (degrees)
// at the given instant and observer longitude, folding RA into [0, 360) — the
// generalisation of the original's computeHAHours.
func HourAngle(t time.Time, longitudeDeg, raDeg float64) float64 {
	lst := LocalSiderealTime(t, longitudeDeg)

	ha := lst - raDeg

	ha = math.Mod(ha, 360)

	if ha < -180 {
		ha += 360
	}

	if ha > 180 {
		ha -= 360
	}

	return ha
}

/*****************************************************************************************************************/

// precessionRAArcsecPerYear / precessionDecArcsecPerYear are the mean precession rates
// from the J2000.0 epoch used to advance the celestial pole's coordinates (50.29″/year
// in RA, 20.04″/year in DEC per spec).
const (
	precessionRAArcsecPerYear  = 50.29
	precessionDecArcsecPerYear = 20.04
)

/*****************************************************************************************************************/

// j2000Epoch is the reference instant for precession, 2000-01-01T12:00:00Z.
var j2000Epoch = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

/*****************************************************************************************************************/

// TruePole computes the celestial pole direction for the given hemisphere at instant
// t, precessing forward from J2000.0 at the standard rate. northern selects (ra=0°,
// dec=+90°) precessed in DEC toward the pole; southern mirrors with (ra=180°,
// dec=−90°). The caller is expected to cache the result per session, since the true
// pole only moves ~0.14″/day in RA and ~0.055″/day in DEC.
func TruePole(t time.Time, northernHemisphere bool) Equatorial {
	years := t.Sub(j2000Epoch).Hours() / 24 / 365.25

	raShiftDeg := years * precessionRAArcsecPerYear / 3600
	decShiftDeg := years * precessionDecArcsecPerYear / 3600

	if northernHemisphere {
		ra := math.Mod(raShiftDeg, 360)

		if ra < 0 {
			ra += 360
		}

		return Equatorial{RA: ra, Dec: 90 - decShiftDeg}
	}

	ra := math.Mod(180+raShiftDeg, 360)

	if ra < 0 {
		ra += 360
	}

	return Equatorial{RA: ra, Dec: -90 + decShiftDeg}
}

/*****************************************************************************************************************/
