package calib

import "errors"

var (
	// ErrDimensions is returned when array dimensions violate a
	// precondition (kernel larger than the calibration region, odd
	// covariance grid, target grid smaller than the source, ...).
	ErrDimensions = errors.New("calib: invalid dimensions")

	// ErrSelection is returned when not exactly one kernel selection mode is
	// set, or when the set value is out of range.
	ErrSelection = errors.New("calib: exactly one of numsv, percentsv and threshold must be set")

	// ErrNoSignal is returned when the largest singular value of the
	// calibration matrix is not positive.
	ErrNoSignal = errors.New("calib: no signal")

	// ErrUnsupported is returned for options this build does not implement.
	ErrUnsupported = errors.New("calib: unsupported option")
)
