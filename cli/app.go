// Package cli contains the shapegen command line app.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"
	generalFlagQuiet  = "quiet"

	sampleFlagDim                    = "dim"
	sampleFlagResolution             = "resolution"
	sampleFlagPrecondition           = "precondition"
	sampleFlagPreconditionResolution = "precondition-resolution"
	sampleFlagRandom                 = "random"
	sampleFlagTemperature            = "temperature"
	sampleFlagSeed                   = "seed"
	sampleFlagCount                  = "count"
	sampleFlagOutput                 = "output"

	inspectFlagResolution = "resolution"
)

// NewApp returns a new app with the shapegen commands, Writer set to out, and ErrWriter set
// to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "shapegen",
		Usage:           "sample and inspect octree encoded shapes",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      generalFlagConfig,
				Aliases:   []string{"c"},
				Usage:     "load configuration from `FILE`",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    generalFlagQuiet,
				Aliases: []string{"q"},
				Usage:   "do not show progress",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sample",
				Usage:     "sample shapes layer by layer up to a target resolution",
				UsageText: "shapegen sample --resolution 32 [--precondition grid.ppm] [other options]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     sampleFlagResolution,
						Aliases:  []string{"r"},
						Usage:    "target resolution, a power of two",
						Required: true,
					},
					&cli.IntFlag{
						Name:  sampleFlagDim,
						Usage: "spatial dimension when no config file is given",
						Value: 2,
					},
					&cli.StringFlag{
						Name:      sampleFlagPrecondition,
						Usage:     "grid `FILE` to start from (.json, .ppm or .pcd)",
						TakesFile: true,
					},
					&cli.IntFlag{
						Name:  sampleFlagPreconditionResolution,
						Usage: "resolution the precondition is encoded at",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  sampleFlagRandom,
						Usage: "start from a random coarse grid",
					},
					&cli.Float64Flag{
						Name:        sampleFlagTemperature,
						Aliases:     []string{"t"},
						Usage:       "sampling temperature, 0 is greedy",
						DefaultText: "from config",
					},
					&cli.Uint64Flag{
						Name:        sampleFlagSeed,
						Usage:       "random seed",
						DefaultText: "from config",
					},
					&cli.IntFlag{
						Name:  sampleFlagCount,
						Usage: "number of shapes to sample in parallel",
						Value: 1,
					},
					&cli.StringFlag{
						Name:        sampleFlagOutput,
						Aliases:     []string{"o"},
						Usage:       "output `FILE`, indexed when sampling more than one shape",
						DefaultText: "shape.ppm in 2D, shape.pcd in 3D",
						TakesFile:   true,
					},
				},
				Action: SampleAction,
			},
			{
				Name:      "inspect",
				Usage:     "print the octree layers of a grid file",
				ArgsUsage: "<grid file>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        inspectFlagResolution,
						Aliases:     []string{"r"},
						Usage:       "resolution to encode at",
						DefaultText: "grid side",
					},
				},
				Action: InspectAction,
			},
			{
				Name:      "roundtrip",
				Usage:     "encode and decode a grid file and check nothing changed",
				ArgsUsage: "<grid file>",
				Action:    RoundTripAction,
			},
		},
	}
}
