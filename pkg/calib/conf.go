// Package calib implements ESPIRiT calibration: the kernel basis of the
// calibration matrix, the image-space covariance of the kernels, the
// point-wise eigendecomposition into sensitivity maps and the post-processing
// of those maps.
//
// Uecker M, Lai P, Murphy MJ, Virtue P, Elad M, Pauly JM, Vasanawala SS,
// Lustig M. ESPIRiT - An Eigenvalue Approach to Autocalibrating Parallel MRI:
// Where SENSE meets GRAPPA. Magn Reson Med, 71:990-1001 (2014)
package calib

import (
	"fmt"
	"log/slog"

	"mriespirit/internal/models"
	"mriespirit/pkg/linalg"
)

// Unset marks a Selection field as not in use.
const Unset = -1

// KernelStrategy selects how the kernel basis is computed.
type KernelStrategy int

const (
	// KernelGram forms AᴴA of the calibration matrix A directly and
	// eigendecomposes it.
	KernelGram KernelStrategy = iota

	// KernelSVD forms the calibration matrix explicitly and computes its SVD.
	KernelSVD
)

// String returns the configuration name of the strategy.
func (s KernelStrategy) String() string {
	switch s {
	case KernelGram:
		return "gram"
	case KernelSVD:
		return "svd"
	default:
		return "unknown"
	}
}

// Selection chooses how many kernels are kept. Exactly one field must differ
// from Unset.
type Selection struct {
	// NumSV keeps a fixed number of kernels
	NumSV int

	// PercentSV keeps this percentage of all kernels
	PercentSV float64

	// Threshold keeps kernels whose singular value relative to the largest
	// exceeds √Threshold
	Threshold float64
}

// Conf is the calibration configuration. Build one with DefaultConf and
// adjust the fields; it is not modified by the calibration.
type Conf struct {
	// KernelDims is the calibration kernel window (kx, ky, kz)
	KernelDims [3]int

	Selection Selection

	// Crop is the eigenvalue threshold for cropping the maps
	Crop float64

	// SoftCrop selects the smooth crop weight instead of a hard threshold
	SoftCrop bool

	// Weighting scales the kernels by soft-thresholded singular values
	Weighting bool

	// Perturb adds noise of this norm to every kernel when > 0
	Perturb float64

	// Intensity enables L1 intensity normalization of the maps
	Intensity bool

	// RotPhase fixes the phase relative to the first principal component of
	// the calibration data instead of the first channel
	RotPhase bool

	// OrthIter selects orthogonal iteration instead of the direct
	// eigensolver
	OrthIter bool

	// UseGPU requests the accelerated eigensolver, which this build does
	// not provide
	UseGPU bool

	Strategy KernelStrategy
	Order    models.KernelOrder

	// Seed seeds the random perturbation
	Seed uint64

	// NumWorkers bounds the goroutines of the per-voxel loops (0: NumCPU)
	NumWorkers int

	// Logger receives progress messages; slog.Default() when nil
	Logger *slog.Logger
}

// DefaultConf returns the standard ESPIRiT configuration: a 6×6×6 kernel,
// threshold selection at 0.001, crop 0.8, intensity normalization and
// orthogonal iteration.
func DefaultConf() Conf {
	return Conf{
		KernelDims: [3]int{6, 6, 6},
		Selection: Selection{
			NumSV:     Unset,
			PercentSV: Unset,
			Threshold: 0.001,
		},
		Crop:      0.8,
		Perturb:   -1,
		Intensity: true,
		OrthIter:  true,
		Strategy:  KernelGram,
		Order:     models.SignalSpace,
	}
}

func (c *Conf) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// SolverFor returns the point-wise eigensolver selected by conf.
func SolverFor(conf *Conf) (linalg.Eigensolver, error) {
	if conf.UseGPU {
		return nil, fmt.Errorf("%w: GPU eigensolver", ErrUnsupported)
	}
	if conf.OrthIter {
		return linalg.OrthIter{Iterations: 30}, nil
	}
	return linalg.Dense{}, nil
}
