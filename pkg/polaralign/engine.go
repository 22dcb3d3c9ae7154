/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package polaralign

/*****************************************************************************************************************/

import (
	"time"

	"github.com/observerly/skyguide/pkg/config"
	"github.com/observerly/skyguide/pkg/device"
	"github.com/observerly/skyguide/pkg/engine"
	"github.com/observerly/skyguide/pkg/events"
	"github.com/observerly/skyguide/pkg/solve"
	"github.com/observerly/skyguide/pkg/spherical"
)

/*****************************************************************************************************************/

// State enumerates the Polar-Alignment engine's state machine: three measurement
// captures (each with a long-exposure retry and a one-shot obstacle-avoidance
// retry), a three-point pole fit, and an iterative tangent-plane guidance loop.
type State string

/*****************************************************************************************************************/

const (
	StateIdle            State = "IDLE"
	StateInit            State = "INIT"
	StateCheckPolarPoint State = "CHECK_POLAR_POINT"
	StateMoveDecAway     State = "MOVE_DEC_AWAY"
	StateWaitDec         State = "WAIT_DEC"

	StateCapture1             State = "CAPTURE_1"
	StateCapture1LongExposure State = "CAPTURE_1_LONG_EXPOSURE"
	StateCapture1Avoid        State = "CAPTURE_1_AVOID"

	StateSlewRAFirst State = "SLEW_RA_FIRST"
	StateWaitRAFirst State = "WAIT_RA_FIRST"

	StateCapture2             State = "CAPTURE_2"
	StateCapture2LongExposure State = "CAPTURE_2_LONG_EXPOSURE"
	StateCapture2Avoid        State = "CAPTURE_2_AVOID"

	StateSlewRASecond State = "SLEW_RA_SECOND"
	StateWaitRASecond State = "WAIT_RA_SECOND"

	StateCapture3             State = "CAPTURE_3"
	StateCapture3LongExposure State = "CAPTURE_3_LONG_EXPOSURE"
	StateCapture3Avoid        State = "CAPTURE_3_AVOID"

	StateCalcDeviation State = "CALC_DEVIATION"
	StateGuideLoop     State = "GUIDE_LOOP"
	StateFinalVerify   State = "FINAL_VERIFY"
	StatePaused        State = "PAUSED"
	StateCompleted     State = "COMPLETED"
	StateError         State = "ERROR"
)

/*****************************************************************************************************************/

const longExposureMultiplier = 3

/*****************************************************************************************************************/

// Engine drives a mount and camera through three measurement points, fits the
// mount's rotation axis, and guides manual mechanical adjustment toward the true
// celestial pole.
type Engine struct {
	engine.Base

	Mount  device.Mount
	Camera device.Camera
	Solver solve.Solver
	Config config.Config
	Events chan<- events.Event

	state            State
	stateBeforePause State

	needsDecMove bool

	truePole         spherical.Equatorial
	truePoleComputed bool

	points [3]solve.Record

	baseline spherical.Equatorial // last successfully solved position

	avoidUsed [4]bool // one-shot avoidance tracker, indexed by capture stage (1..3)

	capture2Avoided bool
	capture3Sign    float64

	deviation   DeviationResult
	fakePoleVec spherical.Vector
	target      spherical.Vector

	recentGuides []events.PolarGuideData

	finalVerifyAttempts int

	slew    *slewWait
	capture *captureWait

	paused bool

	now func() time.Time
}

/*****************************************************************************************************************/

// NewEngine constructs an Engine bound to the given device facade, plate solver,
// and configuration.
func NewEngine(mount device.Mount, camera device.Camera, solver solve.Solver, cfg config.Config, ev chan<- events.Event) *Engine {
	return &Engine{
		Mount:        mount,
		Camera:       camera,
		Solver:       solver,
		Config:       cfg,
		Events:       ev,
		state:        StateIdle,
		capture3Sign: 1,
		now:          time.Now,
	}
}

/*****************************************************************************************************************/

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

/*****************************************************************************************************************/

// Deviation returns the most recently computed geometric alignment result.
func (e *Engine) Deviation() DeviationResult {
	return e.deviation
}

/*****************************************************************************************************************/

// RecentGuides returns the guide-record history accumulated so far in GUIDE_LOOP,
// most recent last.
func (e *Engine) RecentGuides() []events.PolarGuideData {
	return e.recentGuides
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
		Component: "polaralign",
		State:     string(s),
		Message:   message,
		Percent:   percent,
	})
}

/*****************************************************************************************************************/

// Start validates device handles and the site configuration, computes (or reuses) the
// cached true pole, and transitions to INIT.
func (e *Engine) Start(now time.Time) error {
	if e.IsRunning() {
		return engine.Fatal(engine.AlreadyRunning, "polar-alignment engine is already running")
	}

	if e.Mount == nil || e.Camera == nil || e.Solver == nil {
		return engine.Fatal(engine.DeviceUnavailable, "mount, camera, or solver handle is nil")
	}

	if !e.truePoleComputed {
		e.truePole = spherical.TruePole(now, e.Config.NorthernHemisphere)
		e.truePoleComputed = true
	}

	e.points = [3]solve.Record{}
	e.avoidUsed = [4]bool{}
	e.capture2Avoided = false
	e.capture3Sign = 1
	e.recentGuides = nil
	e.slew = nil
	e.capture = nil
	e.paused = false

	e.Base.Begin(now)
	e.setState(StateInit, "", 0)

	return nil
}

/*****************************************************************************************************************/

// Stop aborts any in-flight motion/exposure and transitions to IDLE, emitting a
// terminal UserCancelled completion if the engine was mid-run.
func (e *Engine) Stop() {
	if !e.IsRunning() {
		return
	}

	wasRunning := e.state != StateIdle && e.state != StateCompleted && e.state != StateError

	if e.Mount != nil {
		_, _ = e.Mount.AbortMotion()
	}

	if e.Camera != nil {
		_, _ = e.Camera.AbortExposure()
	}

	e.slew = nil
	e.capture = nil

	e.Base.End()

	if wasRunning {
		e.emit(events.KindErrorOccurred, events.ErrorOccurred{Code: string(engine.UserCancelled), Text: "cancelled by operator"})
	}

	e.setState(StateIdle, "stopped", 0)
}

/*****************************************************************************************************************/

// Pause suspends the engine at its current state without aborting in-flight motion;
// Resume returns to that state. Both are no-ops outside GUIDE_LOOP/FINAL_VERIFY,
// which are the only states a manual adjustment pause makes sense in.
func (e *Engine) Pause() {
	if e.state != StateGuideLoop && e.state != StateFinalVerify {
		return
	}

	e.stateBeforePause = e.state
	e.paused = true
	e.setState(StatePaused, "", 0)
}

/*****************************************************************************************************************/

func (e *Engine) Resume() {
	if e.state != StatePaused {
		return
	}

	e.paused = false
	e.setState(e.stateBeforePause, "", 0)
}

/*****************************************************************************************************************/

func (e *Engine) fail(err error) error {
	kind := engine.KindOf(err)

	e.emit(events.KindErrorOccurred, events.ErrorOccurred{Code: string(kind), Text: err.Error()})

	if e.Mount != nil {
		_, _ = e.Mount.AbortMotion()
	}

	if e.Camera != nil {
		_, _ = e.Camera.AbortExposure()
	}

	e.slew = nil
	e.capture = nil

	e.setState(StateError, err.Error(), 0)
	e.Base.End()

	return err
}

/*****************************************************************************************************************/

// Tick advances the state machine by one step.
func (e *Engine) Tick(now time.Time) error {
	if !e.IsRunning() || e.paused {
		return nil
	}

	if e.Mount == nil || e.Camera == nil || e.Solver == nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "mount, camera, or solver handle became nil"))
	}

	if e.slew != nil {
		return e.pollSlew(now)
	}

	if e.capture != nil {
		return e.pollCapture(now)
	}

	switch e.state {
	case StateInit:
		return e.tickInit()
	case StateCheckPolarPoint:
		return e.tickCheckPolarPoint()
	case StateMoveDecAway:
		return e.tickMoveDecAway()
	case StateCapture1:
		return e.tickCapture(1, false)
	case StateCapture1LongExposure:
		return e.tickCapture(1, true)
	case StateSlewRAFirst:
		return e.tickSlewRA(1)
	case StateCapture2:
		return e.tickCapture(2, false)
	case StateCapture2LongExposure:
		return e.tickCapture(2, true)
	case StateSlewRASecond:
		return e.tickSlewRA(2)
	case StateCapture3:
		return e.tickCapture(3, false)
	case StateCapture3LongExposure:
		return e.tickCapture(3, true)
	case StateCalcDeviation:
		return e.tickCalcDeviation()
	case StateGuideLoop:
		return e.tickGuideLoop()
	case StateFinalVerify:
		return e.tickFinalVerify()
	default:
		return nil
	}
}

/*****************************************************************************************************************/

func (e *Engine) tickInit() error {
	e.setState(StateCheckPolarPoint, "", 0)
	return nil
}

/*****************************************************************************************************************/

// tickCheckPolarPoint reads the current RA/Dec and, if within 5° of the pole, flags
// that the engine must first move away from it before measuring.
func (e *Engine) tickCheckPolarPoint() error {
	_, dec, err := e.Mount.GetRADec()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read mount position"))
	}

	if dec < 0 {
		dec = -dec
	}

	if dec >= 85 {
		e.needsDecMove = true
		e.setState(StateMoveDecAway, "", 0)
		return nil
	}

	e.setState(StateCapture1, "", 0)

	return nil
}

/*****************************************************************************************************************/

// tickMoveDecAway slews DEC toward the equator by decRotationAngle, clipped to
// [−90°, +90°].
func (e *Engine) tickMoveDecAway() error {
	hours, dec, err := e.Mount.GetRADec()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read mount position"))
	}

	delta := e.Config.DecRotationAngleDeg
	if e.Config.NorthernHemisphere {
		delta = -delta
	}

	target := dec + delta

	if target > 90 {
		target = 90
	}

	if target < -90 {
		target = -90
	}

	if err := e.Mount.SetOnCoordSet(device.Slew); err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not set mount coordinate frame"))
	}

	ok, err := e.Mount.SlewJNow(hours, target)
	if err != nil || !ok {
		return e.fail(engine.Fatal(engine.MoveTimeout, "mount rejected DEC-away slew"))
	}

	e.setState(StateWaitDec, "", 0)

	e.slew = &slewWait{
		startedAt: e.now(),
		timeout:   60 * time.Second,
		onComplete: func() error {
			e.setState(StateCapture1, "", 0)
			return nil
		},
	}

	return nil
}

/*****************************************************************************************************************/

func (e *Engine) tickSlewRA(afterStage int) error {
	hours, dec, err := e.Mount.GetRADec()
	if err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not read mount position"))
	}

	delta := e.Config.RARotationAngleDeg

	if afterStage == 2 && e.capture2Avoided {
		delta = -delta
	}

	targetHours := hours + delta/15

	if err := e.Mount.SetOnCoordSet(device.Slew); err != nil {
		return e.fail(engine.Fatal(engine.DeviceUnavailable, "could not set mount coordinate frame"))
	}

	ok, err := e.Mount.SlewJNow(targetHours, dec)
	if err != nil || !ok {
		return e.fail(engine.Fatal(engine.MoveTimeout, "mount rejected RA slew"))
	}

	var waitState, nextCaptureState State

	if afterStage == 1 {
		waitState = StateWaitRAFirst
		nextCaptureState = StateCapture2
	} else {
		waitState = StateWaitRASecond
		nextCaptureState = StateCapture3
	}

	e.setState(waitState, "", 0)

	e.slew = &slewWait{
		startedAt: e.now(),
		timeout:   60 * time.Second,
		onComplete: func() error {
			e.setState(nextCaptureState, "", 0)
			return nil
		},
	}

	return nil
}

/*****************************************************************************************************************/
