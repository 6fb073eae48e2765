package calib

import (
	"fmt"

	"mriespirit/pkg/multind"
)

// checkCalibrationRegion validates a (x, y, z, channels) calibration region
// against the kernel window.
func checkCalibrationRegion(kdims [3]int, cal *multind.Array) error {
	if len(cal.Dims) < 4 {
		return fmt.Errorf("%w: calibration region %v needs (x, y, z, channels)", ErrDimensions, cal.Dims)
	}
	if multind.Size(cal.Dims[4:]) != 1 {
		return fmt.Errorf("%w: calibration region %v has extra dimensions", ErrDimensions, cal.Dims)
	}
	if cal.Dims[3] < 1 {
		return fmt.Errorf("%w: calibration region %v has no channels", ErrDimensions, cal.Dims)
	}
	for i := 0; i < 3; i++ {
		if kdims[i] < 1 || kdims[i] > cal.Dims[i] {
			return fmt.Errorf("%w: kernel %v does not fit calibration region %v", ErrDimensions, kdims, cal.Dims)
		}
	}
	return nil
}

// calibrationMatrix builds the Hankel-structured calibration matrix of the
// region: one row per placement of the kernel window fully inside the
// region, one column per (kx, ky, kz, channel) window element with kx
// fastest. The result is row-major.
func calibrationMatrix(kdims [3]int, cal *multind.Array) (rows, cols int, a []complex128) {
	cx, cy, cz, channels := cal.Dims[0], cal.Dims[1], cal.Dims[2], cal.Dims[3]
	kx, ky, kz := kdims[0], kdims[1], kdims[2]

	px, py, pz := cx-kx+1, cy-ky+1, cz-kz+1
	rows = px * py * pz
	cols = kx * ky * kz * channels
	a = make([]complex128, rows*cols)

	r := 0
	for z := 0; z < pz; z++ {
		for y := 0; y < py; y++ {
			for x := 0; x < px; x++ {
				row := a[r*cols : (r+1)*cols]
				col := 0
				for c := 0; c < channels; c++ {
					for dz := 0; dz < kz; dz++ {
						for dy := 0; dy < ky; dy++ {
							base := ((c*cz+z+dz)*cy+y+dy)*cx + x
							copy(row[col:col+kx], cal.Data[base:base+kx])
							col += kx
						}
					}
				}
				r++
			}
		}
	}
	return rows, cols, a
}

// fitKernel returns conf with the kernel window collapsed to 1 on every
// axis where the calibration region has extent 1, so 2-D data works with a
// 3-D default kernel. conf itself is returned when nothing changes.
func fitKernel(conf *Conf, cal *multind.Array) *Conf {
	kdims := conf.KernelDims
	for i := 0; i < 3; i++ {
		if cal.Dim(i) == 1 {
			kdims[i] = 1
		}
	}
	if kdims == conf.KernelDims {
		return conf
	}
	c := *conf
	c.KernelDims = kdims
	return &c
}
