package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"mriespirit/pkg/calib"
	"mriespirit/pkg/cfl"
	"mriespirit/pkg/config"
	"mriespirit/pkg/linalg"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	crop := flag.Float64("c", 0.8, "Crop the sensitivities where the eigenvalue is below this value")
	maps := flag.Int("m", 2, "Number of maps to compute")
	soft := flag.Bool("S", false, "Soft-crop the sensitivities")
	dense := flag.Bool("O", false, "Use the direct eigensolver instead of orthogonal iteration")
	gpu := flag.Bool("g", false, "Use the GPU eigensolver")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] x y z <covariance> <sensitivities> [<ev-maps>]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 5 && flag.NArg() != 6 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cc := &cfg.Calibration
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "c":
			cc.Crop = *crop
		case "m":
			cc.Maps = *maps
		case "S":
			cc.SoftCrop = *soft
		case "O":
			cc.OrthIter = !*dense
		}
	})

	var out [3]int
	for i := range out {
		n, err := strconv.Atoi(flag.Arg(i))
		if err != nil || n < 1 {
			log.Fatalf("Invalid output size %q", flag.Arg(i))
		}
		out[i] = n
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

	cov, err := cfl.Load(flag.Arg(3))
	if err != nil {
		log.Fatalf("Failed to load covariance: %v", err)
	}
	if len(cov.Dims) > 4 {
		if cov, err = cov.Reshape(cov.Dims[:4]...); err != nil {
			log.Fatalf("Covariance must have dims (x, y, z, packed): %v", err)
		}
	}
	fmt.Printf("Channels: %d\n", linalg.ChannelsFromPacked(cov.Dim(3)))

	em, err := calib.CalTwo(&conf, out, cc.Maps, cov, nil)
	if err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}
	if err := calib.PostProcess(&conf, em, nil, false); err != nil {
		log.Fatalf("Post-processing failed: %v", err)
	}

	if err := cfl.Write(flag.Arg(4), em.Maps, compression); err != nil {
		log.Fatalf("Failed to write sensitivities: %v", err)
	}
	if flag.NArg() == 6 {
		if err := cfl.Write(flag.Arg(5), em.Values, compression); err != nil {
			log.Fatalf("Failed to write eigenvalue maps: %v", err)
		}
	}
	fmt.Println("Done.")
}
