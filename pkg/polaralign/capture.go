/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package polaralign

/*****************************************************************************************************************/

import (
	"math"
	"time"

	"github.com/observerly/skyguide/pkg/device"
	"github.com/observerly/skyguide/pkg/engine"
	"github.com/observerly/skyguide/pkg/solve"
	"github.com/observerly/skyguide/pkg/spherical"
)

/*****************************************************************************************************************/

const retryStageCapture = "capture"

/*****************************************************************************************************************/

const maxRecentGuides = 50

/*****************************************************************************************************************/

// slewWait tracks an in-flight mount slew: polled at 1 Hz via Status(), treating
// "Idle" as arrival.
type slewWait struct {
	startedAt  time.Time
	timeout    time.Duration
	lastPoll   time.Time
	onComplete func() error
}

/*****************************************************************************************************************/

func (e *Engine) pollSlew(now time.Time) error {
	s := e.slew

	if !s.lastPoll.IsZero() && now.Sub(s.lastPoll) < time.Second {
		return nil
	}

	s.lastPoll = now

	status, err := e.Mount.Status()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read mount status"))
	}

	if status == device.Idle {
		e.slew = nil
		return s.onComplete()
	}

	if now.Sub(s.startedAt) >= s.timeout {
		e.slew = nil
		return e.fail(engine.Fatal(engine.MoveTimeout, "mount did not reach target position in time"))
	}

	return nil
}

/*****************************************************************************************************************/

// captureWait tracks an in-flight exposure, polled via IsCaptureEnd() each tick and
// capped at the 30s exposure-wait timeout.
type captureWait struct {
	startedAt time.Time
	timeout   time.Duration
	onEnd     func(imagePath string, ok bool) error
}

/*****************************************************************************************************************/

func (e *Engine) pollCapture(now time.Time) error {
	c := e.capture

	if now.Sub(c.startedAt) > c.timeout {
		e.capture = nil
		return c.onEnd("", false)
	}

	if !e.Camera.IsCaptureEnd() {
		return nil
	}

	path, ok := e.Camera.LastImagePath()

	e.capture = nil

	return c.onEnd(path, ok)
}

/*****************************************************************************************************************/

// tickCapture is the capture-and-solve unit for measurement stages 1–3: expose
// (short or long), wait for completion, invoke the plate solver with the mode
// selected by selectMode, and either record the result or fall through to the
// long-exposure / avoidance branch.
func (e *Engine) tickCapture(stage int, long bool) error {
	seconds := e.Config.DefaultExposureSeconds
	if long {
		seconds *= longExposureMultiplier
	}

	ok, err := e.Camera.StartExposure(seconds)
	if err != nil || !ok {
		return e.onCaptureFailed(stage, long)
	}

	e.capture = &captureWait{
		startedAt: e.now(),
		timeout:   30 * time.Second,
		onEnd: func(imagePath string, captureOK bool) error {
			if !captureOK {
				return e.onCaptureFailed(stage, long)
			}

			attempt := 1
			if long {
				attempt = 2
			}

			params := e.solveParams(attempt)

			record, err := e.Solver.Solve(imagePath, params)
			if err != nil {
				return e.onCaptureFailed(stage, long)
			}

			return e.onCaptureSolved(stage, record)
		},
	}

	return nil
}

/*****************************************************************************************************************/

func (e *Engine) onCaptureSolved(stage int, record solve.Record) error {
	e.points[stage-1] = record
	e.baseline = spherical.Equatorial{RA: record.RA, Dec: record.Dec}

	e.Base.ResetRetry(retryStageCapture)

	switch stage {
	case 1:
		e.setState(StateSlewRAFirst, "", 0)
	case 2:
		e.setState(StateSlewRASecond, "", 0)
	case 3:
		e.setState(StateCalcDeviation, "", 0)
	}

	return nil
}

/*****************************************************************************************************************/

func (e *Engine) onCaptureFailed(stage int, long bool) error {
	if !long {
		var longState State

		switch stage {
		case 1:
			longState = StateCapture1LongExposure
		case 2:
			longState = StateCapture2LongExposure
		case 3:
			longState = StateCapture3LongExposure
		}

		e.setState(longState, "", 0)

		return nil
	}

	if e.avoidUsed[stage] {
		return e.fail(engine.Fatal(engine.ObstructionFatal, "obstacle avoidance already attempted for this capture stage"))
	}

	e.avoidUsed[stage] = true

	return e.beginAvoidance(stage)
}

/*****************************************************************************************************************/

// beginAvoidance issues the one-shot obstacle-avoidance move for the given capture
// stage, then retries the (short-exposure) capture once the move completes.
func (e *Engine) beginAvoidance(stage int) error {
	hours, dec, err := e.Mount.GetRADec()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read mount position"))
	}

	if err := e.Mount.SetOnCoordSet(device.Slew); err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not set mount coordinate frame"))
	}

	var targetHours, targetDec float64
	var avoidState, retryState State

	switch stage {
	case 1:
		// Mirror DEC across the pole.
		sign := 1.0
		if e.Config.NorthernHemisphere {
			sign = -1.0
		}
		targetHours = hours
		targetDec = dec - 2*sign*e.Config.DecRotationAngleDeg
		if targetDec > 90 {
			targetDec = 90
		}
		if targetDec < -90 {
			targetDec = -90
		}
		avoidState = StateCapture1Avoid
		retryState = StateCapture1
	case 2:
		targetHours = hours - 2*e.Config.RARotationAngleDeg/15
		targetDec = dec
		avoidState = StateCapture2Avoid
		retryState = StateCapture2
		e.capture2Avoided = true
	case 3:
		e.capture3Sign = -e.capture3Sign
		targetHours = hours + e.capture3Sign*(e.Config.RARotationAngleDeg/2)/15
		targetDec = dec
		avoidState = StateCapture3Avoid
		retryState = StateCapture3
	}

	ok, err := e.Mount.SlewJNow(targetHours, targetDec)
	if err != nil || !ok {
		return e.fail(engine.Fatal(engine.MoveTimeout, "mount rejected avoidance slew"))
	}

	e.setState(avoidState, "", 0)

	e.slew = &slewWait{
		startedAt: e.now(),
		timeout:   60 * time.Second,
		onComplete: func() error {
			e.setState(retryState, "", 0)
			return nil
		},
	}

	return nil
}

/*****************************************************************************************************************/

// solveParams selects the solver mode per the last-known-offset distance: mode 2
// (field of view + hint) when the last solved position is within
// solveMode2MaxOffsetDeg of the current deviation estimate; mode 1 (field of view)
// when within solveMode1MaxOffsetDeg; else blind. Hints are only ever supplied from
// the second attempt onward.
func (e *Engine) solveParams(attempt int) solve.Params {
	params := solve.Params{
		Mode:           solve.Blind,
		FocalLengthMM:  e.Config.FocalLengthMM,
		SensorWidthMM:  e.Config.SensorWidthMM,
		SensorHeightMM: e.Config.SensorHeightMM,
	}

	if attempt < 2 || e.baseline == (spherical.Equatorial{}) {
		return params
	}

	offsetDeg := 0.0
	if e.deviation.Valid {
		offsetDeg = magnitude(e.deviation.AzimuthDeviationDeg, e.deviation.AltitudeDeviationDeg)
	}

	if offsetDeg <= e.Config.SolveMode2MaxOffsetDeg {
		params.Mode = solve.FieldOfViewWithHint
		params.HintRA = e.baseline.RA
		params.HintDec = e.baseline.Dec
		return params
	}

	if offsetDeg <= e.Config.SolveMode1MaxOffsetDeg {
		params.Mode = solve.FieldOfView
		params.HintRA = e.baseline.RA
		params.HintDec = e.baseline.Dec
	}

	return params
}

/*****************************************************************************************************************/

func magnitude(a, b float64) float64 {
	return math.Hypot(a, b)
}

/*****************************************************************************************************************/
