/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package solve

/*****************************************************************************************************************/

// Mode selects how much prior knowledge the Solver is given about the image's
// pointing: 0 is a blind catalog search, 1 additionally bounds the search radius by
// the supplied field of view, and 2 further centres that search on a last-known
// RA/Dec hint.
type Mode int

/*****************************************************************************************************************/

const (
	Blind Mode = iota
	FieldOfView
	FieldOfViewWithHint
)

/*****************************************************************************************************************/

// Corner is one of the four RA/Dec corners of a solved image.
type Corner struct {
	RA  float64
	Dec float64
}

/*****************************************************************************************************************/

// Record is the plate-solve result for a single image: the principal point, the four
// image corners, and the field dimensions used to derive them.
type Record struct {
	RA             float64
	Dec            float64
	Corner         [4]Corner
	FieldWidthDeg  float64
	FieldHeightDeg float64
}

/*****************************************************************************************************************/

// Params bundles the per-call hints a Solver accepts alongside the image itself.
type Params struct {
	Mode           Mode
	FocalLengthMM  float64
	SensorWidthMM  float64
	SensorHeightMM float64
	HintRA         float64
	HintDec        float64
}

/*****************************************************************************************************************/

// Solver is the plate-solving contract: given an image file path and hints, return
// the image's celestial coordinates and the RA/Dec of its four corners.
type Solver interface {
	Solve(imagePath string, params Params) (Record, error)
}

/*****************************************************************************************************************/
