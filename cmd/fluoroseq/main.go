package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// main is separated from application to help with testing, matching the
// teacher's poly/main.go split.
func main() {
	run(os.Args)
}

// run is separated from main and application for debugging's sake.
func run(args []string) {
	app := application()
	if err := app.Run(args); err != nil {
		log.Fatal(err)
	}
}

// application defines the fluoroseq command tree: three classification
// modes, one Baum-Welch fit iteration, and the synthetic-radiometry
// simulator supplemented from original_source.
func application() *cli.App {
	return &cli.App{
		Name:  "fluoroseq",
		Usage: "Classify fluorosequencing radiometries against a dye-sequence library.",

		Commands: []*cli.Command{
			{
				Name:  "classify",
				Usage: "Classify radiometries against a dye-sequence library.",
				Subcommands: []*cli.Command{
					{
						Name:   "hmm",
						Usage:  "Classify every radiometry against the full library using only the HMM engine.",
						Flags:  classifyFlags(),
						Action: classifyHMMCommand,
					},
					{
						Name:   "ann",
						Usage:  "Classify using only the k-NN pre-filter's top choice (no HMM refinement).",
						Flags:  append(classifyFlags(), knnFlags()...),
						Action: classifyANNCommand,
					},
					{
						Name:   "hybrid",
						Usage:  "Pre-filter a short list, then refine it with the HMM engine.",
						Flags:  append(classifyFlags(), knnFlags()...),
						Action: classifyHybridCommand,
					},
				},
			},
			{
				Name:   "fit",
				Usage:  "Run one Baum-Welch iteration over a radiometry/dye-seq dataset.",
				Flags:  fitFlags(),
				Action: fitCommand,
			},
			{
				Name:  "simulate",
				Usage: "Generate synthetic data from a sequencing model.",
				Subcommands: []*cli.Command{
					{
						Name:   "rad",
						Usage:  "Generate synthetic radiometries from a dye-sequence library and a model.",
						Flags:  simulateFlags(),
						Action: simulateRadCommand,
					},
				},
			},
		},
	}
}
