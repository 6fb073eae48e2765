package models

import (
	"mriespirit/pkg/multind"
)

// KernelOrder selects which end of the calibration spectrum the kernel
// basis keeps.
type KernelOrder int

const (
	// SignalSpace keeps the leading (largest singular value) vectors.
	SignalSpace KernelOrder = iota

	// NullSpace keeps the trailing vectors in ascending order. The image
	// covariance is then formed from the complement.
	NullSpace
)

// String returns the configuration name of the order.
func (o KernelOrder) String() string {
	switch o {
	case SignalSpace:
		return "signal"
	case NullSpace:
		return "null"
	default:
		return "unknown"
	}
}

// KernelBasis holds the kernels derived from the calibration matrix
type KernelBasis struct {
	// Kernels has dims (kx, ky, kz, channels, N) with N = kx*ky*kz*channels
	Kernels *multind.Array

	// Count is the number of leading kernels (along the last dimension)
	// used by the image covariance
	Count int

	// Order records which part of the spectrum the leading kernels span
	Order KernelOrder
}

// KernelDims returns the kernel window (kx, ky, kz).
func (b *KernelBasis) KernelDims() [3]int {
	return [3]int{b.Kernels.Dim(0), b.Kernels.Dim(1), b.Kernels.Dim(2)}
}

// Channels returns the number of receive channels.
func (b *KernelBasis) Channels() int { return b.Kernels.Dim(3) }

// EigenMaps is the output of the point-wise eigendecomposition
type EigenMaps struct {
	// Maps has dims (x, y, z, channels, maps). Map 0 belongs to the largest
	// eigenvalue at every voxel.
	Maps *multind.Array

	// Values has dims (x, y, z, 1, maps) and holds the eigenvalues as real
	// parts
	Values *multind.Array
}

// Voxels returns the number of spatial locations.
func (e *EigenMaps) Voxels() int {
	return e.Maps.Dim(0) * e.Maps.Dim(1) * e.Maps.Dim(2)
}

// Channels returns the number of channels.
func (e *EigenMaps) Channels() int { return e.Maps.Dim(3) }

// NumMaps returns the number of maps per voxel.
func (e *EigenMaps) NumMaps() int { return e.Maps.Dim(4) }

// Mask selects the voxels of a (x, y, z) grid that are processed
type Mask struct {
	Dims [3]int
	Data []bool
}

// NewMask returns a mask with every voxel selected.
func NewMask(x, y, z int) *Mask {
	m := &Mask{Dims: [3]int{x, y, z}, Data: make([]bool, x*y*z)}
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}
