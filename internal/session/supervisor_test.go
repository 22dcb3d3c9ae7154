/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package session

/*****************************************************************************************************************/

import (
	"context"
	"testing"
	"time"

	"github.com/observerly/skyguide/pkg/config"
	"github.com/observerly/skyguide/pkg/device"
	"github.com/observerly/skyguide/pkg/events"
	"github.com/observerly/skyguide/pkg/extract"
	"github.com/observerly/skyguide/pkg/solve"
)

/*****************************************************************************************************************/

type stubCamera struct{}

func (stubCamera) StartExposure(seconds float64) (bool, error) { return true, nil }
func (stubCamera) AbortExposure() (bool, error)                { return true, nil }
func (stubCamera) ResetFrame() (bool, error)                   { return true, nil }
func (stubCamera) SetROI(x, y, w, h int) (bool, error)         { return true, nil }
func (stubCamera) LastImagePath() (string, bool)               { return "", false }
func (stubCamera) IsCaptureEnd() bool                          { return false }

/*****************************************************************************************************************/

type stubFocuser struct{}

func (stubFocuser) PositionRange() (int, int, int)       { return 0, 1000, 1 }
func (stubFocuser) AbsolutePosition() (int, error)       { return 500, nil }
func (stubFocuser) SetDirection(inward bool) (bool, error) { return true, nil }
func (stubFocuser) MoveRelative(steps int) (bool, error) { return true, nil }
func (stubFocuser) MoveAbsolute(position int) (bool, error) { return true, nil }
func (stubFocuser) Abort() (bool, error)                 { return true, nil }

/*****************************************************************************************************************/

type stubMount struct{}

func (stubMount) GetRADec() (float64, float64, error)               { return 0, 40, nil }
func (stubMount) SetOnCoordSet(frame device.MountCoordinateFrame) error { return nil }
func (stubMount) SlewJNow(hours, deg float64) (bool, error)          { return true, nil }
func (stubMount) SyncJNow(hours, deg float64) (bool, error)          { return true, nil }
func (stubMount) AbortMotion() (bool, error)                         { return true, nil }
func (stubMount) Status() (device.MountStatus, error)                { return device.Idle, nil }

/*****************************************************************************************************************/

type stubExtractor struct{}

func (stubExtractor) Extract(imagePath string) (extract.Result, error) {
	return extract.Result{}, nil
}

/*****************************************************************************************************************/

type stubSolver struct{}

func (stubSolver) Solve(imagePath string, params solve.Params) (solve.Record, error) {
	return solve.Record{}, nil
}

/*****************************************************************************************************************/

func newTestSupervisor() *Supervisor {
	return NewSupervisor(stubMount{}, stubCamera{}, stubFocuser{}, stubExtractor{}, stubSolver{}, config.NewDefaultConfig())
}

/*****************************************************************************************************************/

func TestNewSupervisorWiresBothEngines(t *testing.T) {
	s := newTestSupervisor()

	if s.AutoFocus == nil || s.PolarAlign == nil {
		t.Fatal("expected both engines to be constructed")
	}
}

/*****************************************************************************************************************/

func TestSubscribeReceivesFanOutEvents(t *testing.T) {
	s := newTestSupervisor()

	sub := s.Subscribe(8)
	defer s.Unsubscribe(sub)

	if err := s.AutoFocus.Start(time.Now()); err != nil {
		t.Fatalf("unexpected error starting autofocus: %v", err)
	}

	select {
	case ev := <-sub:
		if _, ok := ev.Data.(events.StateChanged); !ok {
			t.Fatalf("expected a StateChanged event, got %#v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a fanned-out event")
	}
}

/*****************************************************************************************************************/

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := newTestSupervisor()

	sub := s.Subscribe(8)
	s.Unsubscribe(sub)

	if err := s.AutoFocus.Start(time.Now()); err != nil {
		t.Fatalf("unexpected error starting autofocus: %v", err)
	}

	select {
	case ev := <-sub:
		t.Fatalf("expected no event after unsubscribe, got %#v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

/*****************************************************************************************************************/

func TestRunAutoFocusFailsFastWhenAlreadyRunning(t *testing.T) {
	s := newTestSupervisor()

	if err := s.AutoFocus.Start(time.Now()); err != nil {
		t.Fatalf("unexpected error on first start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := s.RunAutoFocus(ctx); err == nil {
		t.Fatal("expected RunAutoFocus to fail when the engine is already running")
	}
}

/*****************************************************************************************************************/

func TestRunPolarAlignmentRespectsContextCancellation(t *testing.T) {
	s := newTestSupervisor()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.RunPolarAlignment(ctx); err == nil {
		t.Fatal("expected RunPolarAlignment to return an error once the context deadline is exceeded")
	}
}

/*****************************************************************************************************************/

func TestNewRunIDsAreUniqueAndCanonicallySized(t *testing.T) {
	a := newRunID()
	b := newRunID()

	if a == b {
		t.Fatal("expected distinct run IDs")
	}

	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("expected canonical 26-character ULIDs, got %d and %d", len(a), len(b))
	}
}

/*****************************************************************************************************************/
