/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package engine

/*****************************************************************************************************************/

import (
	"errors"
	"testing"
	"time"
)

/*****************************************************************************************************************/

func TestBeginEndIsRunning(t *testing.T) {
	var b Base

	if b.IsRunning() {
		t.Fatal("expected fresh Base to not be running")
	}

	now := time.Now()
	b.Begin(now)

	if !b.IsRunning() {
		t.Fatal("expected Base to be running after Begin")
	}

	if !b.StartedAt().Equal(now) {
		t.Fatalf("StartedAt mismatch: got %v, want %v", b.StartedAt(), now)
	}

	b.End()

	if b.IsRunning() {
		t.Fatal("expected Base to not be running after End")
	}
}

/*****************************************************************************************************************/

func TestEndIsIdempotent(t *testing.T) {
	var b Base

	b.Begin(time.Now())
	b.End()
	b.End()

	if b.IsRunning() {
		t.Fatal("expected repeated End calls to remain not-running")
	}
}

/*****************************************************************************************************************/

func TestStartStopStartYieldsSameInitialState(t *testing.T) {
	var b Base

	first := time.Now()
	b.Begin(first)
	running1 := b.IsRunning()
	b.End()

	second := first.Add(time.Second)
	b.Begin(second)
	running2 := b.IsRunning()

	if running1 != running2 {
		t.Fatal("expected identical running state across restart")
	}
}

/*****************************************************************************************************************/

func TestRetryIncrementsPerStage(t *testing.T) {
	var b Base
	b.Begin(time.Now())

	if got := b.Retry("capture"); got != 1 {
		t.Fatalf("expected first retry to be 1, got %d", got)
	}

	if got := b.Retry("capture"); got != 2 {
		t.Fatalf("expected second retry to be 2, got %d", got)
	}

	if got := b.Retry("solve"); got != 1 {
		t.Fatalf("expected independent stage counter, got %d", got)
	}

	b.ResetRetry("capture")

	if got := b.Retry("capture"); got != 1 {
		t.Fatalf("expected retry counter reset, got %d", got)
	}
}

/*****************************************************************************************************************/

func TestFatalAndKindOf(t *testing.T) {
	err := Fatal(NoStarsFound, "check seeing/focus")

	if KindOf(err) != NoStarsFound {
		t.Fatalf("expected KindOf to recover NoStarsFound, got %v", KindOf(err))
	}

	if !errors.Is(err, ErrNoStarsFound) {
		t.Fatal("expected errors.Is to match the NoStarsFound sentinel")
	}

	if errors.Is(err, ErrCaptureFailed) {
		t.Fatal("expected errors.Is to not match an unrelated sentinel")
	}
}

/*****************************************************************************************************************/

func TestKindOfNonEngineError(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Fatal("expected KindOf of a non-engine error to be empty")
	}
}

/*****************************************************************************************************************/
