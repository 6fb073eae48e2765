package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mriespirit/internal/cli"
	"mriespirit/pkg/calib"
	"mriespirit/pkg/cfl"
	"mriespirit/pkg/config"
)

func main() {
	// Parse command line arguments; set flags override the config file
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	threshold := flag.Float64("t", 0.001, "Singular value threshold")
	numSV := flag.Int("n", -1, "Number of kernels to keep")
	percentSV := flag.Float64("p", -1, "Percentage of kernels to keep")
	crop := flag.Float64("c", 0.8, "Crop the sensitivities where the eigenvalue is below this value")
	kernel := flag.String("k", "6:6:6", "Kernel size x:y:z")
	calSize := flag.String("r", "24:24:24", "Calibration region size x:y:z")
	maps := flag.Int("m", 2, "Number of maps to compute")
	soft := flag.Bool("S", false, "Soft-crop the sensitivities")
	weighting := flag.Bool("W", false, "Soft-weight the singular vectors")
	noIntensity := flag.Bool("I", false, "Disable intensity normalization")
	rotPhase := flag.Bool("P", false, "Fix the phase relative to the first principal component")
	dense := flag.Bool("O", false, "Use the direct eigensolver instead of orthogonal iteration")
	gpu := flag.Bool("g", false, "Use the GPU eigensolver")
	firstPart := flag.Bool("1", false, "Only compute the small-grid covariance (first part)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <kspace> <sensitivities> [<ev-maps>]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 && flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cli.Exclusive(flag.CommandLine, calib.ErrSelection, "t", "n", "p"); err != nil {
		log.Fatalf("Invalid argument: %v", err)
	}

	cc := &cfg.Calibration
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cc.Threshold, cc.NumSV, cc.PercentSV = *threshold, calib.Unset, calib.Unset
		case "n":
			cc.Threshold, cc.NumSV, cc.PercentSV = calib.Unset, *numSV, calib.Unset
		case "p":
			cc.Threshold, cc.NumSV, cc.PercentSV = calib.Unset, calib.Unset, *percentSV
		case "c":
			cc.Crop = *crop
		case "k":
			cc.KernelSize, flagErr = cli.ParseDims(*kernel)
		case "r":
			cc.CalibSize, flagErr = cli.ParseDims(*calSize)
		case "m":
			cc.Maps = *maps
		case "S":
			cc.SoftCrop = *soft
		case "W":
			cc.Weighting = *weighting
		case "I":
			cc.Intensity = !*noIntensity
		case "P":
			cc.RotPhase = *rotPhase
		case "O":
			cc.OrthIter = !*dense
		}
	})
	if flagErr != nil {
		log.Fatalf("Invalid argument: %v", flagErr)
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}
	conf, err := cfg.CalibConf()
	if err != nil {
		log.Fatalf("Invalid calibration configuration: %v", err)
	}
	conf.UseGPU = *gpu
	conf.Logger = logger

	compression, err := cfg.Compression()
	if err != nil {
		log.Fatalf("Invalid output configuration: %v", err)
	}

	kspace, err := cfl.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load k-space: %v", err)
	}
	if len(kspace.Dims) > 4 {
		if kspace, err = kspace.Reshape(kspace.Dims[:4]...); err != nil {
			log.Fatalf("k-space must have dims (x, y, z, channels): %v", err)
		}
	}

	cal, err := calib.ExtractCalibrationRegion(kspace, cc.CalibSize)
	if err != nil {
		log.Fatalf("Failed to extract calibration region: %v", err)
	}
	fmt.Printf("Calibration region: %v\n", cal.Dims[:3])

	startTime := time.Now()

	if *firstPart {
		cov, svals, err := calib.CalOne(&conf, cal)
		if err != nil {
			log.Fatalf("Calibration failed: %v", err)
		}
		if err := cfl.Write(flag.Arg(1), cov, compression); err != nil {
			log.Fatalf("Failed to write covariance: %v", err)
		}
		fmt.Printf("Covariance %v written in %.2f seconds (largest singular value %g)\n",
			cov.Dims, time.Since(startTime).Seconds(), svals[0])
		return
	}

	out := [3]int{kspace.Dims[0], kspace.Dims[1], kspace.Dims[2]}
	res, err := calib.Calib(&conf, out, cc.Maps, cal, nil)
	if err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}

	if err := cfl.Write(flag.Arg(1), res.Maps, compression); err != nil {
		log.Fatalf("Failed to write sensitivities: %v", err)
	}
	if flag.NArg() == 3 {
		if err := cfl.Write(flag.Arg(2), res.Values, compression); err != nil {
			log.Fatalf("Failed to write eigenvalue maps: %v", err)
		}
	}
	if cfg.Output.SaveValues {
		if err := cfl.WriteNpy(flag.Arg(1)+"_ev.npy", res.Values); err != nil {
			log.Printf("Warning: Failed to save eigenvalue maps: %v", err)
		}
	}

	kept := 0
	for _, s := range res.Spectrum {
		if s > 0 {
			kept++
		}
	}
	fmt.Printf("\nCalibration completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("- Maps: %v\n", res.Maps.Dims)
	fmt.Printf("- Non-zero singular values: %d of %d\n", kept, len(res.Spectrum))
	fmt.Printf("- Used %d cores for processing\n", conf.NumWorkers)
}
