/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package device

/*****************************************************************************************************************/

// MountCoordinateFrame selects how a slew/sync command interprets its target.
type MountCoordinateFrame int

/*****************************************************************************************************************/

const (
	Track MountCoordinateFrame = iota
	Slew
	Sync
)

/*****************************************************************************************************************/

// MountStatus is the coarse motion state reported by the mount.
type MountStatus string

/*****************************************************************************************************************/

const (
	Idle   MountStatus = "Idle"
	Moving MountStatus = "Moving"
)

/*****************************************************************************************************************/

// Camera is the uniform operation set the Auto-Focus and Polar-Alignment engines use
// to expose frames. Every call is non-blocking: completion is observed by polling
// IsCaptureEnd()/LastImagePath(), never by callback.
type Camera interface {
	StartExposure(seconds float64) (bool, error)
	AbortExposure() (bool, error)
	ResetFrame() (bool, error)
	SetROI(x, y, w, h int) (bool, error)
	LastImagePath() (string, bool)
	IsCaptureEnd() bool
}

/*****************************************************************************************************************/

// Focuser is the uniform operation set for the motorised focuser.
type Focuser interface {
	PositionRange() (min, max, step int)
	AbsolutePosition() (int, error)
	SetDirection(inward bool) (bool, error)
	MoveRelative(steps int) (bool, error)
	MoveAbsolute(position int) (bool, error)
	Abort() (bool, error)
}

/*****************************************************************************************************************/

// Mount is the uniform operation set for the equatorial mount.
type Mount interface {
	GetRADec() (hours, deg float64, err error)
	SetOnCoordSet(frame MountCoordinateFrame) error
	SlewJNow(hours, deg float64) (bool, error)
	SyncJNow(hours, deg float64) (bool, error)
	AbortMotion() (bool, error)
	Status() (MountStatus, error)
}

/*****************************************************************************************************************/
