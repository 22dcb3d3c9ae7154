/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package autofocus

/*****************************************************************************************************************/

import (
	"math"
	"time"

	"github.com/observerly/skyguide/pkg/config"
	"github.com/observerly/skyguide/pkg/device"
	"github.com/observerly/skyguide/pkg/engine"
	"github.com/observerly/skyguide/pkg/events"
	"github.com/observerly/skyguide/pkg/extract"
)

/*****************************************************************************************************************/

// State enumerates the Auto-Focus engine's state machine, following the search →
// coarse/fine sweep → parabolic fit → seek-to-best flow.
type State string

/*****************************************************************************************************************/

const (
	StateIdle                 State = "IDLE"
	StateCheckingStars        State = "CHECKING_STARS"
	StateLargeRangeSearch     State = "LARGE_RANGE_SEARCH"
	StateCoarseAdjustment     State = "COARSE_ADJUSTMENT"
	StateFineAdjustment       State = "FINE_ADJUSTMENT"
	StateFittingData          State = "FITTING_DATA"
	StateMovingToBestPosition State = "MOVING_TO_BEST_POSITION"
	StateCompleted            State = "COMPLETED"
	StateError                State = "ERROR"
)

/*****************************************************************************************************************/

const retryStageCapture = "capture"

/*****************************************************************************************************************/

// moveWait tracks an in-flight focuser move: the movement-complete policy polls
// AbsolutePosition() on every tick and declares completion, stuck, or timeout.
type moveWait struct {
	target         int
	startedAt      time.Time
	lastPosition   int
	lastChangeAt   time.Time
	tolerance      int
	timeout        time.Duration
	fatalOnTimeout bool
	onComplete     func(finalPosition int, stuck bool) error
}

/*****************************************************************************************************************/

// captureWait tracks an in-flight exposure: polled via IsCaptureEnd() every tick,
// capped at the per-operation exposure timeout.
type captureWait struct {
	startedAt  time.Time
	timeout    time.Duration
	onComplete func(imagePath string) error
}

/*****************************************************************************************************************/

// Engine drives a focuser and camera to the position of minimum star HFR.
type Engine struct {
	engine.Base

	Camera    device.Camera
	Focuser   device.Focuser
	Extractor extract.Extractor
	Config    config.Config
	Events    chan<- events.Event

	state State

	posMin, posMax, posStep int

	samples []Sample
	stage   string // "coarse" or "fine"

	roiX, roiY int
	roiValid   bool

	searchDirection int
	searchStepPct   float64
	searchShots     int

	fit FitResult

	move    *moveWait
	capture *captureWait
}

/*****************************************************************************************************************/

// NewEngine constructs an Engine bound to the given device facade, star extractor,
// and configuration. events may be nil, in which case state/log/completion events
// are dropped on the floor (used by tests that only assert on returned errors).
func NewEngine(camera device.Camera, focuser device.Focuser, extractor extract.Extractor, cfg config.Config, ev chan<- events.Event) *Engine {
	return &Engine{
		Camera:    camera,
		Focuser:   focuser,
		Extractor: extractor,
		Config:    cfg,
		Events:    ev,
		state:     StateIdle,
	}
}

/*****************************************************************************************************************/

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

/*****************************************************************************************************************/

// Samples returns the focus samples collected so far in the current run.
func (e *Engine) Samples() []Sample {
	return e.samples
}

/*****************************************************************************************************************/

// FitResult returns the cached fit from the most recently completed FITTING_DATA
// stage.
func (e *Engine) FitResult() FitResult {
	return e.fit
}

/*****************************************************************************************************************/

func (e *Engine) emit(kind events.Kind, data any) {
	if e.Events == nil {
		return
	}

	select {
	case e.Events <- events.Event{Kind: kind, Data: data}:
	default:
	}
}

/*****************************************************************************************************************/

func (e *Engine) setState(s State, message string, percent float64) {
	e.state = s
	e.emit(events.KindStateChanged, events.StateChanged{
		Component: "autofocus",
		State:     string(s),
		Message:   message,
		Percent:   percent,
	})
}

/*****************************************************************************************************************/

// Start snapshots the focuser range, clears samples, and transitions to
// CHECKING_STARS. Fails with AlreadyRunning if already active, or DeviceUnavailable
// if any device handle is nil.
func (e *Engine) Start(now time.Time) error {
	if e.IsRunning() {
		return engine.Fatal(engine.AlreadyRunning, "auto-focus engine is already running")
	}

	if e.Camera == nil || e.Focuser == nil {
		return engine.Fatal(engine.DeviceUnavailable, "camera or focuser handle is nil")
	}

	min, max, step := e.Focuser.PositionRange()

	e.posMin, e.posMax, e.posStep = min, max, step
	e.samples = nil
	e.move = nil
	e.capture = nil

	e.Base.Begin(now)
	e.setState(StateCheckingStars, "", 0)

	return nil
}

/*****************************************************************************************************************/

// Stop is idempotent: it aborts any in-flight exposure and focuser motion, and
// transitions to IDLE without clearing telemetry fields, so late callbacks still
// find valid samples/fit data.
func (e *Engine) Stop() {
	if !e.IsRunning() {
		return
	}

	if e.Camera != nil {
		_, _ = e.Camera.AbortExposure()
	}

	if e.Focuser != nil {
		_, _ = e.Focuser.Abort()
	}

	e.move = nil
	e.capture = nil

	e.Base.End()
	e.setState(StateIdle, "stopped", 0)
}

/*****************************************************************************************************************/

// Tick advances the state machine by one step. It validates devices, services any
// pending move or capture, and otherwise dispatches to the current state's handler.
func (e *Engine) Tick(now time.Time) error {
	if !e.IsRunning() {
		return nil
	}

	if e.Camera == nil || e.Focuser == nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "camera or focuser handle became nil"))
	}

	if e.move != nil {
		return e.pollMove(now)
	}

	if e.capture != nil {
		return e.pollCapture(now)
	}

	switch e.state {
	case StateCheckingStars:
		return e.tickCheckingStars(now)
	case StateLargeRangeSearch:
		return e.tickLargeRangeSearch(now)
	case StateCoarseAdjustment:
		return e.tickAdjustment(now, "coarse")
	case StateFineAdjustment:
		return e.tickAdjustment(now, "fine")
	case StateFittingData:
		return e.tickFittingData()
	default:
		return nil
	}
}

/*****************************************************************************************************************/

func (e *Engine) fail(err error) error {
	kind := engine.KindOf(err)

	e.emit(events.KindErrorOccurred, events.ErrorOccurred{Code: string(kind), Text: err.Error()})

	if e.Focuser != nil {
		_, _ = e.Focuser.Abort()
	}

	if e.Camera != nil {
		_, _ = e.Camera.AbortExposure()
	}

	e.move = nil
	e.capture = nil

	e.setState(StateError, err.Error(), 0)
	e.emit(events.KindAutoFocusCompleted, events.AutoFocusCompleted{Success: false})

	e.Base.End()

	return err
}

/*****************************************************************************************************************/

// startExposure issues a non-blocking exposure and schedules onComplete to run once
// IsCaptureEnd() reports true, with a CaptureFailed retry/backoff policy on failure
// and a 30s exposure-wait timeout.
func (e *Engine) startExposure(seconds float64, onComplete func(imagePath string) error) error {
	ok, err := e.Camera.StartExposure(seconds)
	if err != nil || !ok {
		return e.retryCaptureOrFail(onComplete, seconds)
	}

	e.capture = &captureWait{
		startedAt:  time.Now(),
		timeout:    30 * time.Second,
		onComplete: onComplete,
	}

	return nil
}

/*****************************************************************************************************************/

func (e *Engine) retryCaptureOrFail(onComplete func(imagePath string) error, seconds float64) error {
	attempts := e.Base.Retry(retryStageCapture)

	if attempts > e.Config.MaxRetry {
		return e.fail(engine.Fatal(engine.CaptureFailed, "exposure failed after max retries"))
	}

	backoff := time.Duration(attempts) * 500 * time.Millisecond

	time.Sleep(backoff)

	return e.startExposure(seconds, onComplete)
}

/*****************************************************************************************************************/

func (e *Engine) pollCapture(now time.Time) error {
	c := e.capture

	if now.Sub(c.startedAt) > c.timeout {
		e.capture = nil
		return e.retryCaptureOrFail(c.onComplete, e.Config.DefaultExposureSeconds)
	}

	if !e.Camera.IsCaptureEnd() {
		return nil
	}

	path, ok := e.Camera.LastImagePath()
	if !ok {
		e.capture = nil
		return e.retryCaptureOrFail(c.onComplete, e.Config.DefaultExposureSeconds)
	}

	e.Base.ResetRetry(retryStageCapture)
	e.capture = nil

	return c.onComplete(path)
}

/*****************************************************************************************************************/

// moveFocuser issues an absolute move and schedules onComplete once the movement-
// complete policy declares arrival, stuck, or timeout. The general move path scales
// tolerance with distance off Config.MoveTolerance and declares stuck after
// Config.StuckTimeout; best, set only by the MOVING_TO_BEST_POSITION transition,
// selects the fixed Config.BestPositionTolerance/Config.MoveTimeout confirmation
// policy instead, and treats a timeout as fatal rather than proceeding stuck.
func (e *Engine) moveFocuser(target int, best bool, onComplete func(finalPosition int, stuck bool) error) error {
	if target < e.posMin {
		target = e.posMin
	}

	if target > e.posMax {
		target = e.posMax
	}

	current, err := e.Focuser.AbsolutePosition()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read focuser position"))
	}

	distance := target - current
	if distance < 0 {
		distance = -distance
	}

	var tolerance int
	var timeout time.Duration

	if best {
		tolerance = e.Config.BestPositionTolerance
		timeout = e.Config.MoveTimeout
	} else {
		tolerance = e.Config.MoveTolerance
		if distance > 50 {
			tolerance = distance / 10
		}

		timeout = time.Duration(distance/10+1) * time.Second
		if timeout > e.Config.MoveTimeout {
			timeout = e.Config.MoveTimeout
		}
	}

	fatalOnTimeout := best

	ok, err := e.Focuser.MoveAbsolute(target)
	if err != nil || !ok {
		return e.fail(engine.Fatal(engine.MoveTimeout, "focuser rejected move command"))
	}

	now := time.Now()

	e.move = &moveWait{
		target:         target,
		startedAt:      now,
		lastPosition:   current,
		lastChangeAt:   now,
		tolerance:      tolerance,
		timeout:        timeout,
		fatalOnTimeout: fatalOnTimeout,
		onComplete:     onComplete,
	}

	return nil
}

/*****************************************************************************************************************/

func (e *Engine) pollMove(now time.Time) error {
	m := e.move

	current, err := e.Focuser.AbsolutePosition()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read focuser position"))
	}

	diff := current - m.target
	if diff < 0 {
		diff = -diff
	}

	if diff <= m.tolerance {
		e.move = nil
		return m.onComplete(current, false)
	}

	if current != m.lastPosition {
		m.lastPosition = current
		m.lastChangeAt = now
	}

	stuck := now.Sub(m.lastChangeAt) >= e.Config.StuckTimeout
	timedOut := now.Sub(m.startedAt) >= m.timeout

	if stuck || timedOut {
		e.move = nil

		if m.fatalOnTimeout {
			return e.fail(engine.Fatal(engine.MoveTimeout, "focuser did not reach target position in time"))
		}

		return m.onComplete(current, true)
	}

	return nil
}

/*****************************************************************************************************************/

// tickCheckingStars takes one full-frame exposure, runs the Star Extractor, and
// routes to LARGE_RANGE_SEARCH (no stars), COARSE_ADJUSTMENT (HFR above threshold),
// or FINE_ADJUSTMENT.
func (e *Engine) tickCheckingStars(now time.Time) error {
	return e.startExposure(e.Config.DefaultExposureSeconds, func(imagePath string) error {
		result, err := e.Extractor.Extract(imagePath)
		if err != nil {
			return e.retryCaptureOrFail(func(imagePath string) error { return e.finishCheckingStars(imagePath) }, e.Config.DefaultExposureSeconds)
		}

		return e.finishCheckingStarsResult(result)
	})
}

/*****************************************************************************************************************/

func (e *Engine) finishCheckingStars(imagePath string) error {
	result, err := e.Extractor.Extract(imagePath)
	if err != nil {
		return e.fail(engine.Fatal(engine.NoStarsFound, "star extraction failed"))
	}

	return e.finishCheckingStarsResult(result)
}

/*****************************************************************************************************************/

func (e *Engine) finishCheckingStarsResult(result extract.Result) error {
	if len(result.Stars) == 0 {
		e.searchDirection = 0
		e.searchStepPct = e.Config.StepPct
		e.searchShots = 0

		e.setState(StateLargeRangeSearch, "no stars detected, searching", 0)

		return nil
	}

	meanHFR := scoredMeanHFR(result)

	e.samples = nil

	if star, ok := brightestStar(result); ok {
		e.roiX, e.roiY = int(star.X), int(star.Y)
		e.roiValid = true
	} else {
		e.roiValid = false
	}

	if meanHFR > e.Config.HFRThreshold {
		e.stage = "coarse"
		e.setState(StateCoarseAdjustment, "", 0)
	} else {
		e.stage = "fine"
		e.setState(StateFineAdjustment, "", 0)
	}

	return nil
}

/*****************************************************************************************************************/

// brightestStar returns the highest-peak star in result, used to centre the
// FINE_ADJUSTMENT region of interest when FineExposureROIPx is configured.
func brightestStar(result extract.Result) (extract.Star, bool) {
	if len(result.Stars) == 0 {
		return extract.Star{}, false
	}

	best := result.Stars[0]
	for _, s := range result.Stars[1:] {
		if s.Peak > best.Peak {
			best = s
		}
	}

	return best, true
}

/*****************************************************************************************************************/

// scoredMeanHFR computes the mean HFR of the top-N highest-confidence stars using
// the CHECKING_STARS scoring formula.
func scoredMeanHFR(result extract.Result) float64 {
	stars := result.Stars

	maxPeak := 0.0
	for _, s := range stars {
		if s.Peak > maxPeak {
			maxPeak = s.Peak
		}
	}

	type scored struct {
		hfr   float64
		score float64
	}

	scoredStars := make([]scored, 0, len(stars))

	for _, s := range stars {
		normalisedPeak := 0.0
		if maxPeak > 0 {
			normalisedPeak = s.Peak / maxPeak
		}

		hfrGoodness := 1 / (1 + s.HFR)
		centrality := 1.0
		shape := s.Ellipticity

		score := extract.Score(normalisedPeak, hfrGoodness, centrality, shape)

		scoredStars = append(scoredStars, scored{hfr: s.HFR, score: score})
	}

	topN := 5
	if len(scoredStars) < topN {
		topN = len(scoredStars)
	}

	for i := 0; i < topN; i++ {
		best := i
		for j := i + 1; j < len(scoredStars); j++ {
			if scoredStars[j].score > scoredStars[best].score {
				best = j
			}
		}
		scoredStars[i], scoredStars[best] = scoredStars[best], scoredStars[i]
	}

	sum := 0.0
	for i := 0; i < topN; i++ {
		sum += scoredStars[i].hfr
	}

	if topN == 0 {
		return result.MeanHFR
	}

	return sum / float64(topN)
}

/*****************************************************************************************************************/

// tickLargeRangeSearch moves the focuser by ±stepPct·(max−min) toward the farther
// endpoint first, halving the step and reversing direction at each endpoint,
// bounded below by minStepPct, until stars are found or maxSearchShots is spent.
func (e *Engine) tickLargeRangeSearch(now time.Time) error {
	if e.searchShots >= e.Config.MaxSearchShots {
		return e.fail(engine.Fatal(engine.NoStarsFound, "no stars found within the search budget"))
	}

	current, err := e.Focuser.AbsolutePosition()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read focuser position"))
	}

	if e.searchDirection == 0 {
		towardMax := e.posMax - current
		towardMin := current - e.posMin

		if towardMax >= towardMin {
			e.searchDirection = 1
		} else {
			e.searchDirection = -1
		}
	}

	span := e.posMax - e.posMin
	step := int(e.searchStepPct * float64(span))

	target := current + e.searchDirection*step

	if target >= e.posMax || target <= e.posMin {
		e.searchDirection = -e.searchDirection
		e.searchStepPct /= 2
		if e.searchStepPct < e.Config.MinStepPct {
			e.searchStepPct = e.Config.MinStepPct
		}
	}

	return e.moveFocuser(target, false, func(finalPosition int, stuck bool) error {
		return e.startExposure(e.Config.DefaultExposureSeconds, func(imagePath string) error {
			e.searchShots++

			result, err := e.Extractor.Extract(imagePath)
			if err != nil || len(result.Stars) == 0 {
				return nil
			}

			e.setState(StateCheckingStars, "stars found", 0)

			return nil
		})
	})
}

/*****************************************************************************************************************/

// tickAdjustment drives one coarse or fine sweep position: move, capture
// shotsPerPosition exposures, append a sample, and transition to FITTING_DATA once
// five positions have been collected.
func (e *Engine) tickAdjustment(now time.Time, stage string) error {
	step := e.Config.CoarseStep
	shots := e.Config.ShotsPerPositionCoarse

	nextState := StateCoarseAdjustment

	if stage == "fine" {
		step = e.Config.FineStep
		shots = e.Config.ShotsPerPositionFine
		nextState = StateFineAdjustment
	}

	const sampleCount = 5

	index := len(e.samples)

	if index >= sampleCount {
		e.setState(StateFittingData, "", 0)
		return nil
	}

	if err := e.applyROIForStage(stage); err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not set camera frame for stage"))
	}

	current, err := e.Focuser.AbsolutePosition()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read focuser position"))
	}

	// Centre the sweep on the starting position: the first sample moves
	// sampleCount/2 steps inward, and each later sample moves one step outward from
	// the previous one, so the sweep covers start-2*step ... start+2*step.
	offset := step
	if index == 0 {
		offset = -(sampleCount / 2) * step
	}
	target := current + offset

	return e.moveFocuser(target, false, func(finalPosition int, stuck bool) error {
		return e.collectShots(finalPosition, shots, nil, func(measurements []float64) error {
			e.samples = append(e.samples, NewSample(finalPosition, measurements))

			if len(e.samples) >= sampleCount {
				e.setState(StateFittingData, "", 0)
			} else {
				e.setState(nextState, "", float64(len(e.samples))/float64(sampleCount)*100)
			}

			return nil
		})
	})
}

/*****************************************************************************************************************/

// applyROIForStage crops every subsequent exposure to a FineExposureROIPx square
// centred on the brightest star found during CHECKING_STARS when entering
// FINE_ADJUSTMENT, and restores the full frame for every other stage.
func (e *Engine) applyROIForStage(stage string) error {
	size := e.Config.FineExposureROIPx

	if stage != "fine" || size <= 0 || !e.roiValid {
		_, err := e.Camera.ResetFrame()
		return err
	}

	x := e.roiX - size/2
	y := e.roiY - size/2

	_, err := e.Camera.SetROI(x, y, size, size)
	return err
}

/*****************************************************************************************************************/

// collectShots takes `remaining` exposures at the current focuser position,
// accumulating HFR measurements, then invokes onDone.
func (e *Engine) collectShots(position int, remaining int, measurements []float64, onDone func([]float64) error) error {
	if remaining == 0 {
		return onDone(measurements)
	}

	return e.startExposure(e.Config.DefaultExposureSeconds, func(imagePath string) error {
		result, err := e.Extractor.Extract(imagePath)
		if err != nil {
			return e.fail(engine.Fatal(engine.NoStarsFound, "star extraction failed mid-sweep"))
		}

		hfr := result.MedianHFR
		if hfr == 0 {
			hfr = result.MeanHFR
		}

		return e.collectShots(position, remaining-1, append(measurements, hfr), onDone)
	})
}

/*****************************************************************************************************************/

// tickFittingData runs the quadratic fit and either proceeds to
// MOVING_TO_BEST_POSITION or falls back to the minimum-HFR sample.
func (e *Engine) tickFittingData() error {
	fit, err := Fit(e.samples, e.Config.MinRSquared)
	if err != nil {
		return e.fail(engine.Fatal(engine.NoStarsFound, "focus fit failed"))
	}

	if !fit.Valid {
		fit = Interpolate(e.samples)
	}

	e.fit = fit

	target := int(math.Round(fit.BestPosition))

	e.setState(StateMovingToBestPosition, "", 0)

	return e.moveFocuser(target, true, func(finalPosition int, stuck bool) error {
		e.emit(events.KindAutoFocusCompleted, events.AutoFocusCompleted{
			Success:      true,
			BestPosition: finalPosition,
			MinHFR:       e.fit.MinHFR,
		})

		e.setState(StateCompleted, "", 100)
		e.Base.End()

		return nil
	})
}

/*****************************************************************************************************************/
