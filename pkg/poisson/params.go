// Package poisson generates Poisson-disc k-space undersampling patterns: a
// point process with a minimum distance between samples, optionally with
// variable density, anisotropic acceleration, an elliptical boundary,
// interleaved sample classes and a fully sampled calibration square.
package poisson

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrConfig is returned for invalid generator parameters.
var ErrConfig = errors.New("poisson: invalid parameters")

// Params configures Generate.
type Params struct {
	// Y and Z are the grid sizes of the two phase-encoding dimensions
	Y, Z int

	// AccelY and AccelZ are the acceleration factors along Y and Z (>= 1)
	AccelY, AccelZ float64

	// VarDensity > 0 spreads samples towards the k-space periphery
	VarDensity float64

	// Elliptical keeps samples inside the inscribed ellipse instead of the
	// full rectangle
	Elliptical bool

	// Classes is the number of interleaved sample classes (T)
	Classes int

	// Random draws RandomPoints uniform points without distance enforcement
	Random       bool
	RandomPoints int

	// MinDistance is the minimum sample distance in grid units at
	// acceleration 1
	MinDistance float64

	// CalibSize is the edge length of the fully sampled centre square
	CalibSize int

	// Mask rasterizes the pattern; otherwise only the coordinate list is
	// produced
	Mask bool

	Seed uint64

	// Logger receives progress messages; slog.Default() when nil
	Logger *slog.Logger
}

// DefaultParams returns the parameters of an unaccelerated 128×128 mask
// with the standard minimum distance of 1/1.275.
func DefaultParams() Params {
	return Params{
		Y:           128,
		Z:           128,
		AccelY:      1,
		AccelZ:      1,
		Classes:     1,
		MinDistance: 1 / 1.275,
		Mask:        true,
		Seed:        1,
	}
}

func (p *Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Validate checks the parameters for consistency.
func (p *Params) Validate() error {
	switch {
	case p.Y < 1 || p.Z < 1:
		return fmt.Errorf("%w: grid %dx%d", ErrConfig, p.Y, p.Z)
	case p.AccelY < 1 || p.AccelZ < 1:
		return fmt.Errorf("%w: acceleration %gx%g below 1", ErrConfig, p.AccelY, p.AccelZ)
	case p.Classes < 1:
		return fmt.Errorf("%w: %d classes", ErrConfig, p.Classes)
	case p.VarDensity < 0:
		return fmt.Errorf("%w: variable density %g", ErrConfig, p.VarDensity)
	case p.Random && p.RandomPoints < 1:
		return fmt.Errorf("%w: random mode needs a positive number of points", ErrConfig)
	case !p.Random && p.MinDistance <= 0:
		return fmt.Errorf("%w: minimum distance %g", ErrConfig, p.MinDistance)
	case p.CalibSize < 0:
		return fmt.Errorf("%w: calibration size %d", ErrConfig, p.CalibSize)
	case p.CalibSize > 0 && !p.Mask:
		return fmt.Errorf("%w: calibration region requires mask output", ErrConfig)
	case p.CalibSize > p.Y || p.CalibSize > p.Z:
		return fmt.Errorf("%w: calibration size %d exceeds grid %dx%d", ErrConfig, p.CalibSize, p.Y, p.Z)
	}
	return nil
}
