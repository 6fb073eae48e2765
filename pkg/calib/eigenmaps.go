package calib

import (
	"fmt"

	"mriespirit/internal/models"
	"mriespirit/internal/parallel"
	"mriespirit/pkg/linalg"
	"mriespirit/pkg/multind"
)

// EigenMaps decomposes the packed covariance (x, y, z, C(C+1)/2) at every
// voxel selected by mask (nil selects all) and keeps the maps leading
// eigenvectors and eigenvalues. Voxels outside the mask are zero.
func EigenMaps(cov *multind.Array, maps int, mask *models.Mask, solver linalg.Eigensolver, workers int) (*models.EigenMaps, error) {
	if len(cov.Dims) != 4 {
		return nil, fmt.Errorf("%w: covariance %v needs (x, y, z, packed)", ErrDimensions, cov.Dims)
	}
	xx, yy, zz := cov.Dims[0], cov.Dims[1], cov.Dims[2]
	channels := linalg.ChannelsFromPacked(cov.Dims[3])
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d is not a packed channel count", ErrDimensions, cov.Dims[3])
	}
	if maps < 1 || maps > channels {
		return nil, fmt.Errorf("%w: %d maps for %d channels", ErrDimensions, maps, channels)
	}
	if mask != nil && mask.Dims != [3]int{xx, yy, zz} {
		return nil, fmt.Errorf("%w: mask %v for grid %v", ErrDimensions, mask.Dims, cov.Dims[:3])
	}

	vox := xx * yy * zz
	cosize := cov.Dims[3]

	out := &models.EigenMaps{
		Maps:   multind.New(xx, yy, zz, channels, maps),
		Values: multind.New(xx, yy, zz, 1, maps),
	}

	err := parallel.ForErr(vox, workers, func(v int) error {
		if mask != nil && !mask.Data[v] {
			return nil
		}

		packed := make([]complex128, cosize)
		for l := range packed {
			packed[l] = cov.Data[l*vox+v]
		}
		h := linalg.UnpackTri(channels, packed)

		vals, vecs, err := solver.Eigen(h, maps)
		if err != nil {
			return fmt.Errorf("voxel %d: %w", v, err)
		}

		// solvers return ascending eigenvalues; output map 0 is the largest
		top := len(vals) - 1
		for u := 0; u < maps; u++ {
			ru := top - u
			for c := 0; c < channels; c++ {
				out.Maps.Data[(u*channels+c)*vox+v] = vecs[ru][c]
			}
			out.Values.Data[u*vox+v] = complex(vals[ru], 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
