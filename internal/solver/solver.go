/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package solver

/*****************************************************************************************************************/

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/observerly/iris/pkg/fits"
	"github.com/observerly/skyguide/internal/utils"
	"github.com/observerly/skyguide/pkg/geometry"
	"github.com/observerly/skyguide/pkg/solver"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var (
	InputFileLocation string
	RA                float32
	Dec               float32
	PixelScaleX       float64
	PixelScaleY       float64
	LengthRatioTol    float64
	AngleTol          float64
)

/*****************************************************************************************************************/

func getFilePathStem(file *os.File) string {
	path := file.Name()
	// Get the directory where the file is located (e.g. "./samples")
	directory := filepath.Dir(path)
	// Get the full filename (e.g. "astrometry.fits")
	base := filepath.Base(path)
	// Extract the extension (e.g. ".fits")
	extension := filepath.Ext(base)
	// Remove the extension from the filename (e.g. "astrometry"):
	name := strings.TrimSuffix(base, extension)
	// Return the filepath stem (e.g. "./samples/astrometry")
	return filepath.Join(directory, name)
}

/*****************************************************************************************************************/

var AstrometryCommand = &cobra.Command{
	Use:   "astrometry",
	Short: "astrometry",
	Long:  "Perform a catalog-based astrometric plate solve on a FITS image.",
	Run: func(cmd *cobra.Command, args []string) {
		// Attempt to open the file from the given filepath and validate it exists:
		inputFile, err := os.Open(InputFileLocation)
		if err != nil {
			fmt.Println("failed to open input file:", err)
			cmd.Usage()
			return
		}

		fmt.Println("Input File Location:", InputFileLocation)

		// Defer closing the input file:
		defer inputFile.Close()

		params := RunSolverParams{
			InputFile:   inputFile,
			RA:          RA,
			Dec:         Dec,
			PixelScaleX: PixelScaleX,
			PixelScaleY: PixelScaleY,
			LengthRatio: LengthRatioTol,
			Angle:       AngleTol,
		}

		// Attempt to run the solver with the given parameters:
		err = RunSolver(params)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	},
}

/*****************************************************************************************************************/

func init() {
	// Add the input flag to the astrometry command for reading the file from some input location:
	// example usage: --input ./astrometry.fits or -i ./astrometry.fits
	AstrometryCommand.Flags().StringVarP(
		&InputFileLocation,
		"input",
		"i",
		"",
		"The input file location on the filesystem",
	)
	AstrometryCommand.MarkFlagRequired("input")

	// Add the approximated point equatorial coordinate RA to the astrometry command for setting the approximate RA:
	// example usage: --ra 98.6
	AstrometryCommand.Flags().Float32VarP(
		&RA,
		"ra",
		"",
		float32(math.NaN()),
		"The approximate right ascension of the image",
	)

	// Add the approximated point equatorial coordinate dec to the astrometry command for setting the approximate dec:
	// example usage: --dec 2.5
	AstrometryCommand.Flags().Float32VarP(
		&Dec,
		"dec",
		"",
		float32(math.NaN()),
		"The approximate declination of the image",
	)

	// Add the pixel scale X flag to the astrometry command for setting the pixel scale in the x-axis:
	// example usage: --pixel-scale-x 0.000540 or -x 0.000540
	AstrometryCommand.Flags().Float64VarP(
		&PixelScaleX,
		"pixel-scale-x",
		"x",
		math.Inf(-1),
		"The pixel scale in the x-axis of the image",
	)

	// Add the pixel scale Y flag to the astrometry command for setting the pixel scale in the y-axis:
	// example usage: --pixel-scale-y 0.000540 or -y 0.000540
	AstrometryCommand.Flags().Float64VarP(
		&PixelScaleY,
		"pixel-scale-y",
		"y",
		math.Inf(-1),
		"The pixel scale in the y-axis of the image",
	)

	// Add the length ratio tolerance flag to the astrometry command for asterism matching:
	// example usage: --length-ratio-tolerance 0.025
	AstrometryCommand.Flags().Float64VarP(
		&LengthRatioTol,
		"length-ratio-tolerance",
		"",
		0.025,
		"The invariant side-length ratio tolerance for asterism matching",
	)

	// Add the angle tolerance flag to the astrometry command for asterism matching:
	// example usage: --angle-tolerance 0.5
	AstrometryCommand.Flags().Float64VarP(
		&AngleTol,
		"angle-tolerance",
		"",
		0.5,
		"The invariant angle tolerance (in degrees) for asterism matching",
	)
}

/*****************************************************************************************************************/

type RunSolverParams struct {
	InputFile   *os.File `json:"inputFile"`
	RA          float32  `json:"ra"`
	Dec         float32  `json:"dec"`
	PixelScaleX float64  `json:"pixelScaleX"`
	PixelScaleY float64  `json:"pixelScaleY"`
	LengthRatio float64  `json:"lengthRatio"`
	Angle       float64  `json:"angle"`
}

/*****************************************************************************************************************/

func RunSolver(params RunSolverParams) error {
	// Assume an image of 2x2 pixels with 16-bit depth, and no offset:
	fit := fits.NewFITSImage(2, 0, 0, 65535)

	// Read in our exposure data into the image:
	err := fit.Read(params.InputFile)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// Attempt to get the RA header from the FITS file, or resolve the user's input:
	ra, err := utils.ResolveOrExtractRAFromHeaders(params.RA, fit.Header)
	if err != nil {
		return fmt.Errorf("failed to resolve or extract RA from headers: %w", err)
	}

	fmt.Printf("Right Ascension: %v°\n", ra)

	// Attempt to get the Dec header from the FITS file, or resolve the user's input:
	dec, err := utils.ResolveOrExtractDecFromHeaders(params.Dec, fit.Header)
	if err != nil {
		return fmt.Errorf("failed to resolve or extract Dec from headers: %w", err)
	}

	fmt.Printf("Declination: %v°\n", dec)

	pixelScaleX := math.Abs(params.PixelScaleX)
	if pixelScaleX == 0 || math.IsInf(pixelScaleX, 0) {
		return fmt.Errorf("pixel scale x is required and must be non-zero")
	}

	pixelScaleY := math.Abs(params.PixelScaleY)
	if pixelScaleY == 0 || math.IsInf(pixelScaleY, 0) {
		return fmt.Errorf("pixel scale y is required and must be non-zero")
	}

	fmt.Printf("Pixel Scale X: %v, Pixel Scale Y: %v\n", pixelScaleX, pixelScaleY)

	// Attempt to create a new PlateSolver, which performs the catalog radial search and the
	// bright-pixel star extraction concurrently:
	ps, err := solver.NewPlateSolver(solver.GAIA, fit, solver.Params{
		RA:                  float64(ra),
		Dec:                 float64(dec),
		PixelScale:          (pixelScaleX + pixelScaleY) / 2,
		ExtractionThreshold: 32,
		Radius:              16,
		Sigma:               2.5,
	})
	if err != nil {
		return fmt.Errorf("failed to create plate solver: %w", err)
	}

	tolerance := geometry.InvariantFeatureTolerance{
		LengthRatio: params.LengthRatio,
		Angle:       params.Angle,
	}

	wcs, err := ps.Solve(tolerance)
	if err != nil {
		return fmt.Errorf("plate solve failed: %w", err)
	}

	fmt.Printf("CRPIX1: %.6f\n", wcs.CRPIX1)
	fmt.Printf("CRPIX2: %.6f\n", wcs.CRPIX2)
	fmt.Printf("CRVAL1: %.6f\n", wcs.CRVAL1)
	fmt.Printf("CRVAL2: %.6f\n", wcs.CRVAL2)
	fmt.Printf("CD1_1:  %.6f\n", wcs.CD1_1)
	fmt.Printf("CD1_2:  %.6f\n", wcs.CD1_2)
	fmt.Printf("CD2_1:  %.6f\n", wcs.CD2_1)
	fmt.Printf("CD2_2:  %.6f\n", wcs.CD2_2)

	// Get the filepath stem where the file is located (e.g. "./samples/astrometry" from
	// "./samples/astrometry.fits"):
	wcsOutputFileStem := getFilePathStem(params.InputFile)

	// Join directory with the new filename and extension for the JSON output file:
	wcsOutputFile, err := os.Create(fmt.Sprintf("%s.wcs.json", wcsOutputFileStem))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	// Defer closing the output file:
	defer wcsOutputFile.Close()

	// Attempt to write the WCS solution to the output file:
	encoder := json.NewEncoder(wcsOutputFile)
	// Set the indentation for the JSON encoder:
	encoder.SetIndent("", "\t")
	if err := encoder.Encode(wcs); err != nil {
		return fmt.Errorf("failed to encode WCS solution to JSON: %w", err)
	}

	fmt.Printf("Solution written to: %s\n", wcsOutputFile.Name())

	// Return nil if the solver ran successfully:
	return nil
}

/*****************************************************************************************************************/
