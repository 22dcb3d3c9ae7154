/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package engine

/*****************************************************************************************************************/

import (
	"errors"
	"fmt"
)

/*****************************************************************************************************************/

// Kind enumerates the fatal-error taxonomy shared by the Auto-Focus and Polar-
// Alignment engines.
type Kind string

/*****************************************************************************************************************/

const (
	DeviceUnavailable Kind = "DeviceUnavailable"
	CaptureFailed     Kind = "CaptureFailed"
	SolveFailed       Kind = "SolveFailed"
	NoStarsFound      Kind = "NoStarsFound"
	MoveTimeout       Kind = "MoveTimeout"
	BadGeometry       Kind = "BadGeometry"
	ObstructionFatal  Kind = "ObstructionFatal"
	UserCancelled     Kind = "UserCancelled"
	AlreadyRunning    Kind = "AlreadyRunning"
)

/*****************************************************************************************************************/

// Error wraps a Kind with a human-readable message, satisfying errors.Is against the
// corresponding sentinel (Err<Kind>) below regardless of the message text.
type Error struct {
	Kind    Kind
	Message string
}

/*****************************************************************************************************************/

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

/*****************************************************************************************************************/

// Is reports whether target is a sentinel for the same Kind, so callers can write
// errors.Is(err, engine.ErrCaptureFailed) regardless of the specific message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	if !ok {
		return false
	}

	return e.Kind == t.Kind
}

/*****************************************************************************************************************/

// Fatal constructs the wrapped error an engine returns on a fatal state transition.
func Fatal(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

/*****************************************************************************************************************/

// KindOf recovers the Kind from a fatal engine error, for populating the
// ErrorOccurred event's code field. Returns the empty Kind if err was not produced
// by Fatal.
func KindOf(err error) Kind {
	var e *Error

	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

/*****************************************************************************************************************/

// Sentinel errors, one per Kind, for errors.Is comparisons against a Fatal-
// constructed error (matching on Kind, not message, via Error.Is above).
var (
	ErrDeviceUnavailable = &Error{Kind: DeviceUnavailable}
	ErrCaptureFailed     = &Error{Kind: CaptureFailed}
	ErrSolveFailed       = &Error{Kind: SolveFailed}
	ErrNoStarsFound      = &Error{Kind: NoStarsFound}
	ErrMoveTimeout       = &Error{Kind: MoveTimeout}
	ErrBadGeometry       = &Error{Kind: BadGeometry}
	ErrObstructionFatal  = &Error{Kind: ObstructionFatal}
	ErrUserCancelled     = &Error{Kind: UserCancelled}
	ErrAlreadyRunning    = &Error{Kind: AlreadyRunning}
)

/*****************************************************************************************************************/
