// Package config provides configuration loading and management for the
// calibration and sampling tools. It handles loading configuration from YAML
// files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"mriespirit/internal/models"
	"mriespirit/pkg/calib"
	"mriespirit/pkg/cfl"
	"mriespirit/pkg/poisson"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Calibration parameters
	Calibration struct {
		// KernelSize is the calibration kernel window (kx, ky, kz)
		KernelSize [3]int `yaml:"kernelSize"`

		// CalibSize is the centred calibration region cut from k-space
		CalibSize [3]int `yaml:"calibSize"`

		// Maps is the number of eigenvector maps computed per voxel
		Maps int `yaml:"maps"`

		// Exactly one of NumSV, PercentSV and Threshold may be set; -1
		// disables a field
		NumSV     int     `yaml:"numSV"`
		PercentSV float64 `yaml:"percentSV"`
		Threshold float64 `yaml:"threshold"`

		// Crop is the eigenvalue threshold for cropping the maps
		Crop     float64 `yaml:"crop"`
		SoftCrop bool    `yaml:"softCrop"`

		Weighting bool    `yaml:"weighting"`
		Perturb   float64 `yaml:"perturb"`
		Intensity bool    `yaml:"intensity"`
		RotPhase  bool    `yaml:"rotPhase"`
		OrthIter  bool    `yaml:"orthIter"`

		// Strategy is "gram" or "svd"
		Strategy string `yaml:"strategy"`

		// Order is "signal" or "null"
		Order string `yaml:"order"`

		Seed uint64 `yaml:"seed"`
	} `yaml:"calibration"`

	// Sampling pattern parameters
	Sampling struct {
		Y           int     `yaml:"y"`
		Z           int     `yaml:"z"`
		AccelY      float64 `yaml:"accelY"`
		AccelZ      float64 `yaml:"accelZ"`
		VarDensity  float64 `yaml:"varDensity"`
		Elliptical  bool    `yaml:"elliptical"`
		Classes     int     `yaml:"classes"`
		MinDistance float64 `yaml:"minDistance"`
		CalibSize   int     `yaml:"calibSize"`
		Mask        bool    `yaml:"mask"`
		Seed        uint64  `yaml:"seed"`
	} `yaml:"sampling"`

	// Output parameters
	Output struct {
		// Compression of written data files: "none", "zstd" or "lz4"
		Compression string `yaml:"compression"`

		// SaveValues also writes the eigenvalue maps as a NumPy file
		SaveValues bool `yaml:"saveValues"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of "debug", "info", "warn" and "error"
		Level string `yaml:"level"`

		// Format is "text" or "json"
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default calibration parameters
	conf := calib.DefaultConf()
	cfg.Calibration.KernelSize = conf.KernelDims
	cfg.Calibration.CalibSize = [3]int{24, 24, 24}
	cfg.Calibration.Maps = 2
	cfg.Calibration.NumSV = conf.Selection.NumSV
	cfg.Calibration.PercentSV = conf.Selection.PercentSV
	cfg.Calibration.Threshold = conf.Selection.Threshold
	cfg.Calibration.Crop = conf.Crop
	cfg.Calibration.SoftCrop = conf.SoftCrop
	cfg.Calibration.Weighting = conf.Weighting
	cfg.Calibration.Perturb = conf.Perturb
	cfg.Calibration.Intensity = conf.Intensity
	cfg.Calibration.RotPhase = conf.RotPhase
	cfg.Calibration.OrthIter = conf.OrthIter
	cfg.Calibration.Strategy = conf.Strategy.String()
	cfg.Calibration.Order = conf.Order.String()

	// Set default sampling parameters
	params := poisson.DefaultParams()
	cfg.Sampling.Y = params.Y
	cfg.Sampling.Z = params.Z
	cfg.Sampling.AccelY = params.AccelY
	cfg.Sampling.AccelZ = params.AccelZ
	cfg.Sampling.Classes = params.Classes
	cfg.Sampling.MinDistance = params.MinDistance
	cfg.Sampling.Mask = params.Mask
	cfg.Sampling.Seed = params.Seed

	cfg.Output.Compression = "none"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// CalibConf converts the calibration section to a calib.Conf.
func (c *Config) CalibConf() (calib.Conf, error) {
	cc := &c.Calibration
	conf := calib.DefaultConf()

	conf.KernelDims = cc.KernelSize
	conf.Selection = calib.Selection{
		NumSV:     cc.NumSV,
		PercentSV: cc.PercentSV,
		Threshold: cc.Threshold,
	}
	conf.Crop = cc.Crop
	conf.SoftCrop = cc.SoftCrop
	conf.Weighting = cc.Weighting
	conf.Perturb = cc.Perturb
	conf.Intensity = cc.Intensity
	conf.RotPhase = cc.RotPhase
	conf.OrthIter = cc.OrthIter
	conf.Seed = cc.Seed
	conf.NumWorkers = c.Processing.NumCores

	switch cc.Strategy {
	case "", "gram":
		conf.Strategy = calib.KernelGram
	case "svd":
		conf.Strategy = calib.KernelSVD
	default:
		return conf, fmt.Errorf("unknown kernel strategy %q", cc.Strategy)
	}

	switch cc.Order {
	case "", "signal":
		conf.Order = models.SignalSpace
	case "null":
		conf.Order = models.NullSpace
	default:
		return conf, fmt.Errorf("unknown kernel order %q", cc.Order)
	}

	return conf, nil
}

// PoissonParams converts the sampling section to poisson.Params.
func (c *Config) PoissonParams() poisson.Params {
	s := &c.Sampling
	return poisson.Params{
		Y:           s.Y,
		Z:           s.Z,
		AccelY:      s.AccelY,
		AccelZ:      s.AccelZ,
		VarDensity:  s.VarDensity,
		Elliptical:  s.Elliptical,
		Classes:     s.Classes,
		MinDistance: s.MinDistance,
		CalibSize:   s.CalibSize,
		Mask:        s.Mask,
		Seed:        s.Seed,
	}
}

// Compression returns the configured data file compression.
func (c *Config) Compression() (cfl.Compression, error) {
	return cfl.ParseCompression(c.Output.Compression)
}
