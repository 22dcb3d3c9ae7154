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

	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/observerly/skyguide/pkg/config"
	"github.com/observerly/skyguide/pkg/device"
	"github.com/observerly/skyguide/pkg/polaralign"
	"github.com/observerly/skyguide/pkg/solve"
	"github.com/observerly/skyguide/pkg/spherical"
)

/*****************************************************************************************************************/

var (
	PolarAlignMisalignmentArcmin float64
	PolarAlignDiagramOutput      string
)

/*****************************************************************************************************************/

// PolarAlignCommand runs the Polar-Alignment engine dry-run: no real mount or
// camera is attached, instead a simulated mount reports a commanded RA/Dec while a
// simulated solver reports the actual sky position the misaligned polar axis would
// really be pointing at, a fixed small-circle displacement around a synthetic fake
// pole offset from the true pole by PolarAlignMisalignmentArcmin.
var PolarAlignCommand = &cobra.Command{
	Use:   "polaralign",
	Short: "polaralign",
	Long:  "Dry-run the Polar-Alignment engine against a simulated polar-axis misalignment, with no mount or camera hardware attached.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.NewDefaultConfig()

		mount := &simulatedMount{raHours: 1, decDeg: 40, status: device.Idle}
		camera := &simulatedCamera{}
		solver := &simulatedPolarSolver{
			mount: mount,
			fakePole: spherical.Equatorial{
				RA:  0,
				Dec: 90 - PolarAlignMisalignmentArcmin/60,
			},
		}

		engine := polaralign.NewEngine(mount, camera, solver, cfg, nil)

		if err := engine.Start(time.Now()); err != nil {
			fmt.Println("failed to start polar-alignment engine:", err)
			return
		}

		lastState := engine.State()

		for i := 0; i < 10_000; i++ {
			if err := engine.Tick(time.Now()); err != nil {
				fmt.Println("polar-alignment engine failed:", err)
				return
			}

			if engine.State() != lastState {
				fmt.Printf("[%04d] %s -> %s\n", i, lastState, engine.State())
				lastState = engine.State()
			}

			if engine.State() == polaralign.StateCompleted || engine.State() == polaralign.StateError {
				break
			}

			// COMPLETED/ERROR aside, a guide loop runs indefinitely in production; the
			// dry run stops once enough guide history has accumulated to render.
			if len(engine.RecentGuides()) >= 8 {
				break
			}
		}

		deviation := engine.Deviation()

		fmt.Printf(
			"azimuth deviation: %.3f°, altitude deviation: %.3f°, confidence: %.2f\n",
			deviation.AzimuthDeviationDeg, deviation.AltitudeDeviationDeg, deviation.Confidence,
		)

		if PolarAlignDiagramOutput != "" {
			if err := renderGuideDiagram(engine, PolarAlignDiagramOutput); err != nil {
				fmt.Println("failed to render guide diagram:", err)
			} else {
				fmt.Println("wrote guide diagram to", PolarAlignDiagramOutput)
			}
		}
	},
}

/*****************************************************************************************************************/

func init() {
	PolarAlignCommand.Flags().Float64VarP(
		&PolarAlignMisalignmentArcmin,
		"misalignment-arcmin",
		"",
		30,
		"The simulated polar-axis misalignment, in arcminutes, from the true celestial pole",
	)

	PolarAlignCommand.Flags().StringVarP(
		&PolarAlignDiagramOutput,
		"diagram",
		"",
		"",
		"If set, write a PNG guide diagram of the accumulated offset history to this path",
	)
}

/*****************************************************************************************************************/

// simulatedMount is an in-memory device.Mount: slews complete instantly and
// GetRADec/SlewJNow/SyncJNow simply read and write the commanded position, with no
// backlash or settling time.
type simulatedMount struct {
	raHours, decDeg float64
	status          device.MountStatus
}

func (m *simulatedMount) GetRADec() (float64, float64, error) { return m.raHours, m.decDeg, nil }
func (m *simulatedMount) SetOnCoordSet(frame device.MountCoordinateFrame) error { return nil }

func (m *simulatedMount) SlewJNow(hours, deg float64) (bool, error) {
	m.raHours, m.decDeg = hours, deg
	m.status = device.Idle
	return true, nil
}

func (m *simulatedMount) SyncJNow(hours, deg float64) (bool, error) {
	m.raHours, m.decDeg = hours, deg
	return true, nil
}

func (m *simulatedMount) AbortMotion() (bool, error)          { return true, nil }
func (m *simulatedMount) Status() (device.MountStatus, error) { return m.status, nil }

/*****************************************************************************************************************/

// simulatedPolarSolver reports the sky position a polar axis displaced to fakePole
// would really be pointing at, given the mount's commanded RA/Dec: treating the
// commanded (RA, Dec) as a colatitude/azimuth pair measured around the true pole and
// re-centring it on fakePole via the same Rodrigues rotation TargetPoint uses
// reproduces the physical effect a misaligned mount has on the stars it captures — a
// small circle around the real rotation axis, which the three-point capture stage is
// designed to recover.
type simulatedPolarSolver struct {
	mount    *simulatedMount
	fakePole spherical.Equatorial
}

func (s *simulatedPolarSolver) Solve(imagePath string, params solve.Params) (solve.Record, error) {
	raDeg, decDeg, err := s.mount.GetRADec()
	if err != nil {
		return solve.Record{}, err
	}

	local := spherical.ToVector(spherical.Equatorial{RA: raDeg * 15, Dec: decDeg})

	trueNorth := spherical.ToVector(spherical.Equatorial{RA: 0, Dec: 90})
	fakePole := spherical.ToVector(s.fakePole)

	solved := spherical.MapPoint(local, trueNorth, fakePole)
	eq := spherical.ToEquatorial(solved)

	const fieldHalfWidthDeg = 0.8

	return solve.Record{
		RA:  eq.RA,
		Dec: eq.Dec,
		Corner: [4]solve.Corner{
			{RA: eq.RA - fieldHalfWidthDeg, Dec: eq.Dec - fieldHalfWidthDeg},
			{RA: eq.RA + fieldHalfWidthDeg, Dec: eq.Dec - fieldHalfWidthDeg},
			{RA: eq.RA - fieldHalfWidthDeg, Dec: eq.Dec + fieldHalfWidthDeg},
			{RA: eq.RA + fieldHalfWidthDeg, Dec: eq.Dec + fieldHalfWidthDeg},
		},
		FieldWidthDeg:  2 * fieldHalfWidthDeg,
		FieldHeightDeg: 2 * fieldHalfWidthDeg,
	}, nil
}

/*****************************************************************************************************************/

// renderGuideDiagram draws the accumulated guide-loop offset history as a scatter of
// points converging toward the origin (the guide target), using fogleman/gg for a
// simple operator-facing debug visualisation rather than a full sky-chart render.
func renderGuideDiagram(engine *polaralign.Engine, outputPath string) error {
	const size = 512
	const scalePxPerArcmin = 20.0

	dc := gg.NewContext(size, size)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	centreX, centreY := float64(size)/2, float64(size)/2

	dc.SetRGB(0.8, 0.8, 0.8)
	dc.DrawLine(centreX, 0, centreX, size)
	dc.DrawLine(0, centreY, size, centreY)
	dc.Stroke()

	dc.SetRGB(0.1, 0.6, 0.1)
	dc.DrawCircle(centreX, centreY, 4)
	dc.Fill()

	guides := engine.RecentGuides()

	for i, guide := range guides {
		x := centreX + guide.OffsetEastDeg*60*scalePxPerArcmin
		y := centreY - guide.OffsetNorthDeg*60*scalePxPerArcmin

		shade := float64(i+1) / float64(len(guides))
		dc.SetRGBA(0.8, 0.2, 0.2, math.Max(shade, 0.2))
		dc.DrawCircle(x, y, 3)
		dc.Fill()
	}

	return dc.SavePNG(outputPath)
}

/*****************************************************************************************************************/
