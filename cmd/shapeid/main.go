// Command shapeid recognizes 2D objects in images by their shape.
//
// It learns labelled exemplars into a feature database and classifies new
// images against it with nearest-neighbour matching. The serve command runs
// the same operations as an MCP server over stdin/stdout.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "shapeid: %v\n", err)
		os.Exit(1)
	}
}

const (
	flagConfig   = "config"
	flagDB       = "db"
	flagDriver   = "db-driver"
	flagLogLevel = "log-level"
	flagLabel    = "label"
	flagView     = "view"
	flagOut      = "out"
)

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "shapeid %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
	}

	return &cli.App{
		Name:            "shapeid",
		Usage:           "learn and recognize 2D objects by their shape",
		Version:         Version,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (YAML)",
				EnvVars: []string{"SHAPEID_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagDB,
				Usage: "feature database `PATH` (overrides database.path)",
			},
			&cli.StringFlag{
				Name:  flagDriver,
				Usage: "feature database driver: text or sqlite (overrides database.driver)",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level: debug, info, warn or error (overrides log_level)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "classify the largest object in each image",
				ArgsUsage: "IMAGE...",
				Action:    classifyAction,
			},
			{
				Name:      "learn",
				Usage:     "add the largest object in each image to the database",
				ArgsUsage: "IMAGE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagLabel,
						Aliases:  []string{"l"},
						Usage:    "class `NAME` (one word, no whitespace)",
						Required: true,
					},
				},
				Action: learnAction,
			},
			{
				Name:      "features",
				Usage:     "print the shape descriptor of the largest object",
				ArgsUsage: "IMAGE",
				Action:    featuresAction,
			},
			{
				Name:      "regions",
				Usage:     "list the foreground regions of an image",
				ArgsUsage: "IMAGE",
				Action:    regionsAction,
			},
			{
				Name:      "render",
				Usage:     "write one pipeline stage of an image as PNG",
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagView,
						Value: "annotated",
						Usage: "stage to render: annotated, raw, threshold, cleaned, regions or object",
					},
					&cli.StringFlag{
						Name:     flagOut,
						Aliases:  []string{"o"},
						Usage:    "output `FILE`",
						Required: true,
					},
				},
				Action: renderAction,
			},
			{
				Name:  "db",
				Usage: "inspect the feature database",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "print entry counts and feature standard deviations",
						Action: dbStatsAction,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "run the MCP server over stdin/stdout",
				Action: serveAction,
			},
		},
	}
}
