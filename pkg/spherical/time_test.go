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
	"time"
)

/*****************************************************************************************************************/

func TestJulianDayJ2000Epoch(t *testing.T) {
	// J2000.0 is, by definition, JD 2451545.0:
	jd := JulianDay(j2000Epoch)

	if !almostEqual(jd, 2451545.0, 1e-6) {
		t.Errorf("JulianDay(J2000) = %v, want 2451545.0", jd)
	}
}

/*****************************************************************************************************************/

func TestJulianDayIncreasesByOnePerDay(t *testing.T) {
	t0 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	jd0 := JulianDay(t0)
	jd1 := JulianDay(t1)

	if !almostEqual(jd1-jd0, 1.0, 1e-9) {
		t.Errorf("expected one day of JD between consecutive midnights, got %v", jd1-jd0)
	}
}

/*****************************************************************************************************************/

func TestGreenwichMeanSiderealTimeDegInRange(t *testing.T) {
	gmst := GreenwichMeanSiderealTimeDeg(time.Now().UTC())

	if gmst < 0 || gmst >= 360 {
		t.Errorf("GMST out of range [0,360): %v", gmst)
	}
}

/*****************************************************************************************************************/

func TestLocalSiderealTimeWrapsLongitude(t *testing.T) {
	now := time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC)

	lst0 := LocalSiderealTime(now, 0)
	lst360 := LocalSiderealTime(now, 360)

	if !almostEqual(lst0, lst360, 1e-9) {
		t.Errorf("LST should be periodic in longitude: lst0=%v lst360=%v", lst0, lst360)
	}
}

/*****************************************************************************************************************/

func TestHourAngleZeroAtLocalMeridian(t *testing.T) {
	now := time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC)

	lst := LocalSiderealTime(now, 15)

	ha := HourAngle(now, 15, lst)

	if !almostEqual(ha, 0, 1e-9) {
		t.Errorf("hour angle of a target at the meridian should be zero, got %v", ha)
	}
}

/*****************************************************************************************************************/

func TestHourAngleBounded(t *testing.T) {
	now := time.Now().UTC()

	for _, ra := range []float64{0, 90, 180, 270, 359} {
		ha := HourAngle(now, 0, ra)

		if math.Abs(ha) > 180 {
			t.Errorf("hour angle out of [-180,180]: %v", ha)
		}
	}
}

/*****************************************************************************************************************/

func TestTruePoleNorthernAtJ2000(t *testing.T) {
	pole := TruePole(j2000Epoch, true)

	if !almostEqual(pole.RA, 0, 1e-9) {
		t.Errorf("expected RA 0 at J2000, got %v", pole.RA)
	}

	if !almostEqual(pole.Dec, 90, 1e-9) {
		t.Errorf("expected Dec 90 at J2000, got %v", pole.Dec)
	}
}

/*****************************************************************************************************************/

func TestTruePoleSouthernAtJ2000(t *testing.T) {
	pole := TruePole(j2000Epoch, false)

	if !almostEqual(pole.RA, 180, 1e-9) {
		t.Errorf("expected RA 180 at J2000, got %v", pole.RA)
	}

	if !almostEqual(pole.Dec, -90, 1e-9) {
		t.Errorf("expected Dec -90 at J2000, got %v", pole.Dec)
	}
}

/*****************************************************************************************************************/

func TestTruePoleDriftsWithPrecession(t *testing.T) {
	later := j2000Epoch.AddDate(26, 0, 0)

	pole := TruePole(later, true)

	if pole.Dec >= 90 {
		t.Errorf("expected Dec to have precessed below 90, got %v", pole.Dec)
	}

	if almostEqual(pole.Dec, 90, 1e-4) {
		t.Errorf("expected a measurable precession shift after 26 years, got %v", pole.Dec)
	}
}

/*****************************************************************************************************************/
