/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package events

/*****************************************************************************************************************/

import "github.com/observerly/sidera/pkg/humanize"

/*****************************************************************************************************************/

// Kind identifies which of the five outbound event payloads an Event carries.
type Kind string

/*****************************************************************************************************************/

const (
	KindStateChanged       Kind = "StateChanged"
	KindLogMessage         Kind = "LogMessage"
	KindErrorOccurred      Kind = "ErrorOccurred"
	KindAutoFocusCompleted Kind = "AutoFocusCompleted"
	KindPolarGuideData     Kind = "PolarGuideData"
)

/*****************************************************************************************************************/

// Event is the single envelope type emitted on a session's fan-out channel; the
// concrete payload lives in Data and is one of the Kind* structs below.
type Event struct {
	Kind Kind
	Data any
}

/*****************************************************************************************************************/

// StateChanged reports an engine's state machine transition.
type StateChanged struct {
	Component string
	State     string
	Message   string
	Percent   float64
}

/*****************************************************************************************************************/

// LogLevel mirrors the engines' internal log severities.
type LogLevel string

/*****************************************************************************************************************/

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

/*****************************************************************************************************************/

// LogMessage is a free-text diagnostic line, used in place of writing to stdout.
type LogMessage struct {
	Level LogLevel
	Text  string
}

/*****************************************************************************************************************/

// ErrorOccurred reports a terminal or recoverable fault, with Code carrying the
// engine.Kind string so subscribers can branch without importing pkg/engine.
type ErrorOccurred struct {
	Code string
	Text string
}

/*****************************************************************************************************************/

// AutoFocusCompleted is the Auto-Focus engine's terminal event.
type AutoFocusCompleted struct {
	Success      bool
	BestPosition int
	MinHFR       float64
}

/*****************************************************************************************************************/

// Corner is one of the four plate-solved frame corners reported alongside a
// polar-alignment guide update.
type Corner struct {
	RA  float64
	Dec float64
}

/*****************************************************************************************************************/

// PolarGuideData is emitted on every polar-alignment solve/adjust cycle, carrying
// both the raw offsets (for programmatic consumers) and pre-formatted sexagesimal
// strings (for a human-facing guide display).
type PolarGuideData struct {
	CurrentRA  float64
	CurrentDEC float64

	Corner [4]Corner

	TargetRA  float64
	TargetDEC float64

	OffsetEastDeg  float64
	OffsetNorthDeg float64

	GuideTextRA  string
	GuideTextDEC string

	FakePoleRA  float64
	FakePoleDEC float64

	TruePoleRA  float64
	TruePoleDEC float64
}

/*****************************************************************************************************************/

// NewPolarGuideData formats GuideTextRA/GuideTextDEC from the raw east and north
// offsets, both in degrees-minutes-seconds notation, for the engine's guide display.
func NewPolarGuideData(
	currentRA, currentDEC float64,
	corner [4]Corner,
	targetRA, targetDEC float64,
	offsetEastDeg, offsetNorthDeg float64,
	fakePoleRA, fakePoleDEC float64,
	truePoleRA, truePoleDEC float64,
) PolarGuideData {
	return PolarGuideData{
		CurrentRA:      currentRA,
		CurrentDEC:     currentDEC,
		Corner:         corner,
		TargetRA:       targetRA,
		TargetDEC:      targetDEC,
		OffsetEastDeg:  offsetEastDeg,
		OffsetNorthDeg: offsetNorthDeg,
		GuideTextRA:    humanize.FormatDecimalToDMS(offsetEastDeg, "%s%d°%d'%.1f\""),
		GuideTextDEC:   humanize.FormatDecimalToDMS(offsetNorthDeg, "%s%d°%d'%.1f\""),
		FakePoleRA:     fakePoleRA,
		FakePoleDEC:    fakePoleDEC,
		TruePoleRA:     truePoleRA,
		TruePoleDEC:    truePoleDEC,
	}
}

/*****************************************************************************************************************/
