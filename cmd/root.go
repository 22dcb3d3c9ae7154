/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cmd

/*****************************************************************************************************************/

import (
	"github.com/observerly/skyguide/internal/solver"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var rootCommand = &cobra.Command{
	Use:   "skyguide",
	Short: "skyguide is a command-line tool for astrometric plate solving, auto-focus, and polar alignment.",
	Long:  "skyguide is a command-line tool for astrometric plate solving, auto-focus, and polar alignment of an astrophotography mount.",
}

/*****************************************************************************************************************/

func init() {
	rootCommand.AddCommand(solver.AstrometryCommand)
	rootCommand.AddCommand(AutoFocusCommand)
	rootCommand.AddCommand(PolarAlignCommand)
}

/*****************************************************************************************************************/

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		panic(err)
	}
}

/*****************************************************************************************************************/
