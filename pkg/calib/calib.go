package calib

import (
	"fmt"

	"mriespirit/internal/models"
	"mriespirit/pkg/multind"
)

// Result is the output of a full calibration.
type Result struct {
	models.EigenMaps

	// Spectrum holds the singular values of the calibration matrix in
	// descending order
	Spectrum []float64
}

// ExtractCalibrationRegion crops a centred (size[0], size[1], size[2])
// region of all channels from k-space data with dims (x, y, z, channels).
// Axes of size 1 are kept as they are.
func ExtractCalibrationRegion(kspace *multind.Array, size [3]int) (*multind.Array, error) {
	if len(kspace.Dims) < 4 || multind.Size(kspace.Dims[4:]) != 1 {
		return nil, fmt.Errorf("%w: k-space %v needs (x, y, z, channels)", ErrDimensions, kspace.Dims)
	}

	dims := []int{size[0], size[1], size[2], kspace.Dims[3]}
	for i := 0; i < 3; i++ {
		if kspace.Dims[i] == 1 {
			dims[i] = 1
		}
		if dims[i] < 1 || dims[i] > kspace.Dims[i] {
			return nil, fmt.Errorf("%w: calibration region %v larger than k-space %v", ErrDimensions, size, kspace.Dims)
		}
	}

	src, err := kspace.Reshape(kspace.Dims[:4]...)
	if err != nil {
		return nil, err
	}
	cal := multind.New(dims...)
	if err := multind.ResizeCenter(cal, src); err != nil {
		return nil, err
	}
	return cal, nil
}

// CalOne computes the small-grid image covariance of a calibration region
// together with the calibration spectrum.
func CalOne(conf *Conf, cal *multind.Array) (*multind.Array, []float64, error) {
	if len(cal.Dims) >= 3 {
		conf = fitKernel(conf, cal)
	}
	basis, svals, err := ComputeKernels(conf, cal)
	if err != nil {
		return nil, nil, err
	}

	conf.logger().Debug("Image covariance", "dims", CovarianceDims(conf.KernelDims, cal.Dims[3]), "kernels", basis.Count)
	cov, err := ComputeImageCovariance(basis, conf.NumWorkers)
	if err != nil {
		return nil, nil, err
	}
	return cov, svals, nil
}

// CalTwo interpolates a small-grid covariance to the (x, y, z) grid out and
// computes maps eigenvectors per voxel, optionally restricted to mask.
func CalTwo(conf *Conf, out [3]int, maps int, cov *multind.Array, mask *models.Mask) (*models.EigenMaps, error) {
	solver, err := SolverFor(conf)
	if err != nil {
		return nil, err
	}
	log := conf.logger()

	log.Debug("Resize", "from", cov.Dims, "to", out)
	big, err := SincZeropad(out, cov)
	if err != nil {
		return nil, err
	}

	log.Debug("Point-wise eigen-decomposition", "maps", maps, "orthiter", conf.OrthIter)
	return EigenMaps(big, maps, mask, solver, conf.NumWorkers)
}

// Calib runs the complete calibration on a region with dims
// (x, y, z, channels): kernel basis, image covariance, point-wise
// eigendecomposition on the (x, y, z) grid out, intensity normalization,
// cropping and phase fixing. mask may be nil.
func Calib(conf *Conf, out [3]int, maps int, cal *multind.Array, mask *models.Mask) (*Result, error) {
	if len(cal.Dims) >= 3 {
		conf = fitKernel(conf, cal)
	}
	if err := checkCalibrationRegion(conf.KernelDims, cal); err != nil {
		return nil, err
	}
	channels := cal.Dims[3]
	if maps < 1 || maps > channels {
		return nil, fmt.Errorf("%w: %d maps for %d channels", ErrDimensions, maps, channels)
	}
	if _, err := SolverFor(conf); err != nil {
		return nil, err
	}
	cd := CovarianceDims(conf.KernelDims, channels)
	if err := checkZeropad(out, cd[:3]); err != nil {
		return nil, err
	}
	if mask != nil && mask.Dims != out {
		return nil, fmt.Errorf("%w: mask %v for grid %v", ErrDimensions, mask.Dims, out)
	}

	var rot [][]complex128
	if conf.RotPhase {
		var err error
		if rot, err = CoilCompressionRotation(cal); err != nil {
			return nil, err
		}
	}

	cov, svals, err := CalOne(conf, cal)
	if err != nil {
		return nil, err
	}

	em, err := CalTwo(conf, out, maps, cov, mask)
	if err != nil {
		return nil, err
	}

	if err := PostProcess(conf, em, phaseReference(conf, rot), true); err != nil {
		return nil, err
	}

	return &Result{EigenMaps: *em, Spectrum: svals}, nil
}
