/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cmd

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/observerly/skyguide/pkg/autofocus"
	"github.com/observerly/skyguide/pkg/config"
	"github.com/observerly/skyguide/pkg/extract"
)

/*****************************************************************************************************************/

var (
	AutoFocusTrueBestPosition int
	AutoFocusSeedHFR          float64
)

/*****************************************************************************************************************/

// AutoFocusCommand runs the Auto-Focus engine dry-run: no real camera or focuser is
// attached, instead a simulated focuser reports a synthetic HFR that follows a
// parabola centred on AutoFocusTrueBestPosition, the same shape the curve-fitting
// stage in pkg/autofocus.Fit expects to recover.
var AutoFocusCommand = &cobra.Command{
	Use:   "autofocus",
	Short: "autofocus",
	Long:  "Dry-run the Auto-Focus engine against a simulated focuser sweep, with no camera or focuser hardware attached.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.NewDefaultConfig()

		focuser := &simulatedFocuser{min: 0, max: 4000, step: 1, position: 2000}
		camera := &simulatedCamera{}
		extractor := &simulatedExtractor{
			truePosition: AutoFocusTrueBestPosition,
			seedHFR:      AutoFocusSeedHFR,
			focuser:      focuser,
		}

		engine := autofocus.NewEngine(camera, focuser, extractor, cfg, nil)

		if err := engine.Start(time.Now()); err != nil {
			fmt.Println("failed to start auto-focus engine:", err)
			return
		}

		lastState := engine.State()

		for i := 0; i < 10_000; i++ {
			if err := engine.Tick(time.Now()); err != nil {
				fmt.Println("auto-focus engine failed:", err)
				return
			}

			if engine.State() != lastState {
				fmt.Printf("[%04d] %s -> %s\n", i, lastState, engine.State())
				lastState = engine.State()
			}

			if engine.State() == autofocus.StateCompleted || engine.State() == autofocus.StateError {
				break
			}
		}

		result := engine.FitResult()

		fmt.Printf(
			"best position: %.1f, min HFR: %.3f, R²: %.4f, valid: %v\n",
			result.BestPosition, result.MinHFR, result.RSquared, result.Valid,
		)
	},
}

/*****************************************************************************************************************/

func init() {
	AutoFocusCommand.Flags().IntVarP(
		&AutoFocusTrueBestPosition,
		"true-best-position",
		"",
		2500,
		"The simulated focuser position at which HFR is minimised",
	)

	AutoFocusCommand.Flags().Float64VarP(
		&AutoFocusSeedHFR,
		"seed-hfr",
		"",
		1.2,
		"The simulated best-focus HFR at the true best position",
	)
}

/*****************************************************************************************************************/

// simulatedFocuser is an in-memory device.Focuser: motion completes instantly, with
// no backlash or stuck behaviour, since the dry run exercises the engine's decision
// logic rather than its timeout handling.
type simulatedFocuser struct {
	min, max, step int
	position       int
}

func (f *simulatedFocuser) PositionRange() (int, int, int) { return f.min, f.max, f.step }
func (f *simulatedFocuser) AbsolutePosition() (int, error) { return f.position, nil }
func (f *simulatedFocuser) SetDirection(inward bool) (bool, error) { return true, nil }

func (f *simulatedFocuser) MoveRelative(steps int) (bool, error) {
	f.position += steps
	return true, nil
}

func (f *simulatedFocuser) MoveAbsolute(position int) (bool, error) {
	f.position = position
	return true, nil
}

func (f *simulatedFocuser) Abort() (bool, error) { return true, nil }

/*****************************************************************************************************************/

// simulatedCamera is an in-memory device.Camera: every exposure completes
// immediately, returning a nonexistent image path that simulatedExtractor never
// actually opens.
type simulatedCamera struct{}

func (c *simulatedCamera) StartExposure(seconds float64) (bool, error) { return true, nil }
func (c *simulatedCamera) AbortExposure() (bool, error)                { return true, nil }
func (c *simulatedCamera) ResetFrame() (bool, error)                   { return true, nil }
func (c *simulatedCamera) SetROI(x, y, w, h int) (bool, error)         { return true, nil }
func (c *simulatedCamera) LastImagePath() (string, bool)               { return "simulated.fits", true }
func (c *simulatedCamera) IsCaptureEnd() bool                          { return true }

/*****************************************************************************************************************/

// simulatedExtractor stands in for star extraction: it reports a synthetic HFR that
// follows the parabola a.(x-truePosition)² + seedHFR, so the fitting stage recovers
// truePosition as its best position when truePosition lies inside the sampled sweep,
// the same invariant Fit's own tests check against a literal quadratic sample set.
// A vertex outside the sampled positions is rejected by Fit, which then falls back
// to the lowest-HFR sample.
type simulatedExtractor struct {
	truePosition int
	seedHFR      float64
	focuser      *simulatedFocuser
}

const simulatedParabolaCoefficient = 0.0004

func (e *simulatedExtractor) Extract(imagePath string) (extract.Result, error) {
	dx := float64(e.focuser.position - e.truePosition)
	hfr := simulatedParabolaCoefficient*dx*dx + e.seedHFR

	return extract.Result{
		Stars: []extract.Star{
			{X: 512, Y: 512, Peak: 40000, Flux: 1e6, HFR: math.Max(hfr, 0.1), Ellipticity: 0.95},
		},
		MeanHFR:   hfr,
		MedianHFR: hfr,
	}, nil
}

/*****************************************************************************************************************/
