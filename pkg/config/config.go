/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package config

/*****************************************************************************************************************/

import "time"

/*****************************************************************************************************************/

// Config is the configuration blob read at session start: site location, optics
// geometry, and every operator-settable tunable for the Auto-Focus and
// Polar-Alignment engines. There is no file-backed persistence; the (out-of-scope)
// session host is responsible for constructing one of these, exactly as
// `internal/solver.AstrometryCommand` binds cobra flags directly to package vars
// today.
type Config struct {
	// Site geometry, required by the true-pole computation and the plate solver's
	// focal-length/sensor-geometry hints.
	LatitudeDeg        float64
	LongitudeDeg       float64
	FocalLengthMM      float64
	SensorWidthMM      float64
	SensorHeightMM     float64
	NorthernHemisphere bool

	// Auto-Focus tunables.
	HFRThreshold           float64
	CoarseStep             int
	FineStep               int
	ShotsPerPositionCoarse int
	ShotsPerPositionFine   int
	DefaultExposureSeconds float64
	StepPct                float64
	MinStepPct             float64
	MaxSearchShots         int
	MaxRetry               int
	MinRSquared            float64
	BestPositionTolerance  int
	MoveTolerance          int
	StuckTimeout           time.Duration
	MoveTimeout            time.Duration

	// FineExposureROIPx, when non-zero, sizes a square region of interest centred on
	// the brightest star found during CHECKING_STARS, applied to every exposure taken
	// in FINE_ADJUSTMENT. Zero disables ROI cropping and exposes the full frame.
	FineExposureROIPx int

	// Polar-Alignment tunables.
	DecRotationAngleDeg           float64
	RARotationAngleDeg            float64
	FinalVerificationThresholdDeg float64

	// SolveMode1MaxOffsetDeg / SolveMode2MaxOffsetDeg gate the plate solver's search
	// mode during capture-and-solve and guiding: mode 2 (field of view + hint) within
	// SolveMode2MaxOffsetDeg of the current deviation estimate, mode 1 (field of
	// view only) within SolveMode1MaxOffsetDeg, else a blind solve.
	SolveMode1MaxOffsetDeg float64
	SolveMode2MaxOffsetDeg float64

	// SmallDeviationThresholdDeg / LargeDeviationThresholdDeg are exposed, documented
	// tunables for the confidence weighting between a Jacobian-based and a non-linear
	// adjustment mapping; upstream never documented their production defaults, so they
	// are carried as configuration with these defaults rather than wired into a guessed
	// blending policy (see DESIGN.md, Open Question ii).
	SmallDeviationThresholdDeg float64
	LargeDeviationThresholdDeg float64

	// MaxPoleFitRMSDeg bounds the three-point small-circle fit's residual before
	// CALC_DEVIATION rejects it as BadGeometry (see DESIGN.md, Open Question iii).
	MaxPoleFitRMSDeg float64
}

/*****************************************************************************************************************/

// NewDefaultConfig returns a Config populated with the documented defaults from the
// original mount-state tunables, for use when the session host has not overridden
// a value.
func NewDefaultConfig() Config {
	return Config{
		HFRThreshold:           3.0,
		CoarseStep:             50,
		FineStep:               10,
		ShotsPerPositionCoarse: 1,
		ShotsPerPositionFine:   3,
		DefaultExposureSeconds: 2.0,
		StepPct:                0.1,
		MinStepPct:             0.01,
		MaxSearchShots:         20,
		MaxRetry:               3,
		MinRSquared:            0.8,
		BestPositionTolerance:  5,
		MoveTolerance:          5,
		StuckTimeout:           10 * time.Second,
		MoveTimeout:            300 * time.Second,

		DecRotationAngleDeg:           20,
		RARotationAngleDeg:            30,
		FinalVerificationThresholdDeg: 0.05,
		SolveMode1MaxOffsetDeg:        5,
		SolveMode2MaxOffsetDeg:        1,
		SmallDeviationThresholdDeg:    0.5,
		LargeDeviationThresholdDeg:    5.0,
		MaxPoleFitRMSDeg:              0.25,

		NorthernHemisphere: true,
	}
}

/*****************************************************************************************************************/

func (c *Config) SetHFRThreshold(v float64) { c.HFRThreshold = v }

/*****************************************************************************************************************/

func (c *Config) SetCoarseStep(v int) { c.CoarseStep = v }

/*****************************************************************************************************************/

func (c *Config) SetFineStep(v int) { c.FineStep = v }

/*****************************************************************************************************************/

func (c *Config) SetFineExposureROIPx(v int) { c.FineExposureROIPx = v }

/*****************************************************************************************************************/

func (c *Config) SetShotsPerPosition(coarse, fine int) {
	c.ShotsPerPositionCoarse = coarse
	c.ShotsPerPositionFine = fine
}

/*****************************************************************************************************************/

func (c *Config) SetDefaultExposureSeconds(v float64) { c.DefaultExposureSeconds = v }

/*****************************************************************************************************************/

func (c *Config) SetFocalLengthMM(v float64) { c.FocalLengthMM = v }

/*****************************************************************************************************************/

func (c *Config) SetSensorGeometryMM(width, height float64) {
	c.SensorWidthMM = width
	c.SensorHeightMM = height
}

/*****************************************************************************************************************/

func (c *Config) SetLatitudeDeg(v float64) {
	c.LatitudeDeg = v
	c.NorthernHemisphere = v >= 0
}

/*****************************************************************************************************************/

func (c *Config) SetLongitudeDeg(v float64) { c.LongitudeDeg = v }

/*****************************************************************************************************************/

func (c *Config) SetVerificationThresholdDeg(v float64) { c.FinalVerificationThresholdDeg = v }

/*****************************************************************************************************************/
