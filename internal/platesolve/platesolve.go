/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package platesolve

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"os"

	"github.com/observerly/iris/pkg/fits"

	"github.com/observerly/skyguide/internal/utils"
	"github.com/observerly/skyguide/pkg/fov"
	"github.com/observerly/skyguide/pkg/geometry"
	"github.com/observerly/skyguide/pkg/solve"
	"github.com/observerly/skyguide/pkg/solver"
)

/*****************************************************************************************************************/

// blindSearchRadiusDeg is the catalog search radius used when no field-of-view or
// position hint bounds the search, matching the teacher solver's original fixed
// radius.
const blindSearchRadiusDeg = 2.0

/*****************************************************************************************************************/

// defaultLengthRatioTolerance / defaultAngleTolerance are the asterism-matching
// tolerances, carried over from the teacher's own astrometry CLI defaults
// (`internal/solver.AstrometryCommand`'s `--length-ratio-tolerance` /
// `--angle-tolerance` flags).
const (
	defaultLengthRatioTolerance = 0.025
	defaultAngleTolerance       = 0.5
)

/*****************************************************************************************************************/

// Solver adapts the teacher's catalog-based asterism-matching plate solver
// (pkg/solver, pkg/wcs, pkg/fov, pkg/catalog) into the solve.Solver contract,
// implementing the three solve-mode policies by varying the catalog search centre
// and radius.
type Solver struct {
	// ExtractionThreshold caps how many of the brightest detected stars are used for
	// asterism matching.
	ExtractionThreshold float64

	// DetectionRadius / DetectionSigma configure the underlying star detector.
	DetectionRadius float32
	DetectionSigma  float32

	// LengthRatioTolerance / AngleTolerance bound asterism-invariant-feature
	// matching.
	LengthRatioTolerance float64
	AngleTolerance       float64
}

/*****************************************************************************************************************/

// NewSolver constructs a Solver with the teacher CLI's own defaults.
func NewSolver() *Solver {
	return &Solver{
		ExtractionThreshold:  32,
		DetectionRadius:      16,
		DetectionSigma:       2.5,
		LengthRatioTolerance: defaultLengthRatioTolerance,
		AngleTolerance:       defaultAngleTolerance,
	}
}

/*****************************************************************************************************************/

func (s *Solver) Solve(imagePath string, params solve.Params) (solve.Record, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return solve.Record{}, fmt.Errorf("failed to open image: %w", err)
	}

	defer file.Close()

	fit := fits.NewFITSImage(2, 0, 0, 65535)

	if err := fit.Read(file); err != nil {
		return solve.Record{}, fmt.Errorf("failed to read FITS image: %w", err)
	}

	width := float64(fit.Header.Naxis1)
	height := float64(fit.Header.Naxis2)

	if params.SensorWidthMM <= 0 || params.SensorHeightMM <= 0 || params.FocalLengthMM <= 0 {
		return solve.Record{}, fmt.Errorf("focal length and sensor geometry hints are required")
	}

	pixelScale := fov.PixelScale{
		X: pixelScaleDeg(params.SensorWidthMM, width, params.FocalLengthMM),
		Y: pixelScaleDeg(params.SensorHeightMM, height, params.FocalLengthMM),
	}

	centerRA, centerDec, radius, err := searchWindow(fit, width, height, pixelScale, params)
	if err != nil {
		return solve.Record{}, err
	}

	ps, err := solver.NewPlateSolver(solver.GAIA, fit, solver.Params{
		RA:                  centerRA,
		Dec:                 centerDec,
		PixelScale:          (pixelScale.X + pixelScale.Y) / 2,
		ExtractionThreshold: s.ExtractionThreshold,
		Radius:              s.DetectionRadius,
		Sigma:               s.DetectionSigma,
		CatalogRadius:       radius,
	})
	if err != nil {
		return solve.Record{}, fmt.Errorf("failed to initialise plate solver: %w", err)
	}

	tolerance := geometry.InvariantFeatureTolerance{
		LengthRatio: s.LengthRatioTolerance,
		Angle:       s.AngleTolerance,
	}

	solution, err := ps.Solve(tolerance)
	if err != nil {
		return solve.Record{}, fmt.Errorf("plate solve failed: %w", err)
	}

	principal := solution.PixelToEquatorialCoordinate(width/2, height/2)

	corners := [4]solve.Corner{}

	pixelCorners := [4][2]float64{{0, 0}, {width, 0}, {0, height}, {width, height}}

	for i, c := range pixelCorners {
		eq := solution.PixelToEquatorialCoordinate(c[0], c[1])
		corners[i] = solve.Corner{RA: eq.RA, Dec: eq.Dec}
	}

	return solve.Record{
		RA:             principal.RA,
		Dec:            principal.Dec,
		Corner:         corners,
		FieldWidthDeg:  pixelScale.X * width,
		FieldHeightDeg: pixelScale.Y * height,
	}, nil
}

/*****************************************************************************************************************/

// pixelScaleDeg converts a sensor dimension (mm) and its pixel count, plus the focal
// length (mm), into a per-pixel angular scale in degrees via the small-angle
// approximation.
func pixelScaleDeg(sensorDimensionMM, pixelCount, focalLengthMM float64) float64 {
	if pixelCount <= 0 {
		return 0
	}

	pixelSizeMM := sensorDimensionMM / pixelCount

	return math.Atan(pixelSizeMM/focalLengthMM) * 180 / math.Pi
}

/*****************************************************************************************************************/

// searchWindow implements the three solve-mode policies by choosing the catalog
// search centre and radius: mode Blind searches the full fixed radius centred on the
// image's own FITS header pointing; mode FieldOfView narrows the radius to the
// image's actual field of view; mode FieldOfViewWithHint further recentres the
// search on the caller's last-known RA/Dec.
func searchWindow(
	fit *fits.FITSImage,
	width, height float64,
	pixelScale fov.PixelScale,
	params solve.Params,
) (ra, dec, radius float64, err error) {
	headerRA, raErr := utils.ResolveOrExtractRAFromHeaders(float32(math.NaN()), fit.Header)
	headerDec, decErr := utils.ResolveOrExtractDecFromHeaders(float32(math.NaN()), fit.Header)

	switch params.Mode {
	case solve.FieldOfViewWithHint:
		if params.HintRA == 0 && params.HintDec == 0 {
			return 0, 0, 0, fmt.Errorf("solve mode FieldOfViewWithHint requires a non-zero RA/Dec hint")
		}

		return params.HintRA, params.HintDec, fov.GetRadialExtent(width, height, pixelScale), nil

	case solve.FieldOfView:
		if raErr != nil || decErr != nil {
			return 0, 0, 0, fmt.Errorf("solve mode FieldOfView requires an approximate pointing in the FITS header")
		}

		return float64(headerRA), float64(headerDec), fov.GetRadialExtent(width, height, pixelScale), nil

	default:
		if raErr != nil || decErr != nil {
			if params.HintRA == 0 && params.HintDec == 0 {
				return 0, 0, 0, fmt.Errorf("no pointing hint available for a blind solve")
			}

			return params.HintRA, params.HintDec, blindSearchRadiusDeg, nil
		}

		return float64(headerRA), float64(headerDec), blindSearchRadiusDeg, nil
	}
}

/*****************************************************************************************************************/
