package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"mriespirit/internal/cli"
	"mriespirit/pkg/cfl"
	"mriespirit/pkg/config"
	"mriespirit/pkg/poisson"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	yy := flag.Int("Y", 128, "Size of dimension 1 (phase 1)")
	zz := flag.Int("Z", 128, "Size of dimension 2 (phase 2)")
	accY := flag.Float64("y", 1, "Acceleration along dimension 1")
	accZ := flag.Float64("z", 1, "Acceleration along dimension 2")
	vd := flag.Bool("v", false, "Variable density")
	vdAmount := flag.Float64("V", 0, "Variable density amount")
	elliptical := flag.Bool("e", false, "Elliptical scanning")
	classes := flag.Int("T", 1, "Number of interleaved sample classes")
	random := flag.Int("R", 0, "Draw this many uniform random points instead")
	minDist := flag.Float64("D", 1/1.275, "Minimum distance at acceleration 1")
	calib := flag.Int("C", 0, "Size of the fully sampled calibration region")
	noMask := flag.Bool("m", false, "Write the coordinate list instead of a mask")
	seed := flag.Uint64("s", 1, "Random seed")
	stats := flag.Bool("stats", false, "Print nearest-neighbour spacing statistics")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <outfile>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cli.Exclusive(flag.CommandLine, poisson.ErrConfig, "v", "V"); err != nil {
		log.Fatalf("Invalid argument: %v", err)
	}

	s := &cfg.Sampling
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "Y":
			s.Y = *yy
		case "Z":
			s.Z = *zz
		case "y":
			s.AccelY = *accY
		case "z":
			s.AccelZ = *accZ
		case "v":
			if *vd {
				s.VarDensity = 20
			}
		case "V":
			s.VarDensity = *vdAmount
		case "e":
			s.Elliptical = *elliptical
		case "T":
			s.Classes = *classes
		case "D":
			s.MinDistance = *minDist
		case "C":
			s.CalibSize = *calib
		case "m":
			s.Mask = !*noMask
		case "s":
			s.Seed = *seed
		}
	})

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}
	compression, err := cfg.Compression()
	if err != nil {
		log.Fatalf("Invalid output configuration: %v", err)
	}

	params := cfg.PoissonParams()
	params.Logger = logger
	if *random > 0 {
		params.Random = true
		params.RandomPoints = *random
	}

	pat, err := poisson.Generate(&params)
	if err != nil {
		log.Fatalf("Failed to generate sampling pattern: %v", err)
	}

	out := pat.Mask
	if out == nil {
		out = pat.Samples
	}
	if err := cfl.Write(flag.Arg(0), out, compression); err != nil {
		log.Fatalf("Failed to write sampling pattern: %v", err)
	}

	fmt.Println(pat.Summary())
	if *stats {
		mean, std := pat.Spacing()
		fmt.Printf("nearest-neighbour spacing: %.3f ± %.3f\n", mean, std)
	}
}
