/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package polaralign

/*****************************************************************************************************************/

import (
	"time"

	"github.com/observerly/skyguide/pkg/engine"
	"github.com/observerly/skyguide/pkg/events"
	"github.com/observerly/skyguide/pkg/solve"
	"github.com/observerly/skyguide/pkg/spherical"
)

/*****************************************************************************************************************/

// tickCalcDeviation fits the three-point small circle, caches the fake pole and the
// fixed guidance target, and transitions to GUIDE_LOOP.
func (e *Engine) tickCalcDeviation() error {
	points := [3]spherical.Equatorial{
		{RA: e.points[0].RA, Dec: e.points[0].Dec},
		{RA: e.points[1].RA, Dec: e.points[1].Dec},
		{RA: e.points[2].RA, Dec: e.points[2].Dec},
	}

	result, err := CalculateDeviationWithRMSBound(points, e.truePole, e.Config.MaxPoleFitRMSDeg)
	if err != nil {
		return e.fail(engine.Fatal(engine.BadGeometry, "three-point fit is degenerate, retry with a wider RA spread"))
	}

	e.deviation = result
	e.fakePoleVec = spherical.ToVector(result.FakePole)

	truePoleVec := spherical.ToVector(e.truePole)
	lastSolved := spherical.ToVector(points[2])

	e.target = TargetPoint(lastSolved, e.fakePoleVec, truePoleVec)

	e.setState(StateGuideLoop, "", 0)

	return nil
}

/*****************************************************************************************************************/

// tickGuideLoop runs one capture-solve-guide cycle: expose, solve, recompute the
// tangent-plane offset to the fixed target, and emit a PolarGuideData event. Once
// the offset falls below finalVerificationThresholdDeg, transitions to FINAL_VERIFY.
func (e *Engine) tickGuideLoop() error {
	return e.captureAndGuide(func(offset GuideOffset) error {
		if offset.MagnitudeDeg < e.Config.FinalVerificationThresholdDeg {
			e.finalVerifyAttempts = 0
			e.setState(StateFinalVerify, "", 0)
		}

		return nil
	})
}

/*****************************************************************************************************************/

// tickFinalVerify repeats a single capture-solve up to three times, completing
// successfully once the distance-to-target is confirmed below threshold again.
func (e *Engine) tickFinalVerify() error {
	return e.captureAndGuide(func(offset GuideOffset) error {
		if offset.MagnitudeDeg < e.Config.FinalVerificationThresholdDeg {
			e.setState(StateCompleted, "", 100)
			e.Base.End()
			return nil
		}

		e.finalVerifyAttempts++

		if e.finalVerifyAttempts >= 3 {
			e.setState(StateGuideLoop, "", 0)
			return nil
		}

		return nil
	})
}

/*****************************************************************************************************************/

// captureAndGuide is the shared capture-solve-offset-emit cycle used by both
// GUIDE_LOOP and FINAL_VERIFY; onOffset decides the resulting transition. Two
// consecutive capture/solve failures is fatal (CaptureFailed), mirroring the
// Auto-Focus engine's retryCaptureOrFail policy.
func (e *Engine) captureAndGuide(onOffset func(GuideOffset) error) error {
	ok, err := e.Camera.StartExposure(e.Config.DefaultExposureSeconds)
	if err != nil || !ok {
		return e.retryGuideCaptureOrFail()
	}

	e.capture = &captureWait{
		startedAt: e.now(),
		timeout:   30 * time.Second,
		onEnd: func(imagePath string, captureOK bool) error {
			if !captureOK {
				return e.retryGuideCaptureOrFail()
			}

			record, err := e.Solver.Solve(imagePath, e.solveParams(2))
			if err != nil {
				return e.retryGuideCaptureOrFail()
			}

			return e.onGuideSolved(record, onOffset)
		},
	}

	return nil
}

/*****************************************************************************************************************/

const maxGuideCaptureRetries = 2

func (e *Engine) retryGuideCaptureOrFail() error {
	attempts := e.Base.Retry(retryStageCapture)

	if attempts >= maxGuideCaptureRetries {
		return e.fail(engine.Fatal(engine.CaptureFailed, "capture or solve failed twice in a row during guiding"))
	}

	return nil
}

/*****************************************************************************************************************/

func (e *Engine) onGuideSolved(record solve.Record, onOffset func(GuideOffset) error) error {
	e.Base.ResetRetry(retryStageCapture)

	s := spherical.ToVector(spherical.Equatorial{RA: record.RA, Dec: record.Dec})
	e.baseline = spherical.Equatorial{RA: record.RA, Dec: record.Dec}

	offset := TangentPlaneGuidance(s, e.target)

	var corners [4]events.Corner
	for i, c := range record.Corner {
		corners[i] = events.Corner{RA: c.RA, Dec: c.Dec}
	}

	targetEq := spherical.ToEquatorial(e.target)
	truePoleEq := e.truePole

	guide := events.NewPolarGuideData(
		record.RA, record.Dec,
		corners,
		targetEq.RA, targetEq.Dec,
		offset.OffsetEastDeg, offset.OffsetNorthDeg,
		e.deviation.FakePole.RA, e.deviation.FakePole.Dec,
		truePoleEq.RA, truePoleEq.Dec,
	)

	e.recentGuides = append(e.recentGuides, guide)
	if len(e.recentGuides) > maxRecentGuides {
		e.recentGuides = e.recentGuides[len(e.recentGuides)-maxRecentGuides:]
	}

	e.emit(events.KindPolarGuideData, guide)

	return onOffset(offset)
}

/*****************************************************************************************************************/
