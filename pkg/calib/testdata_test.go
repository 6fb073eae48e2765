package calib

import (
	"io"
	"log/slog"
	"math"
	"math/cmplx"

	"mriespirit/pkg/multind"
)

// quietConf returns the default configuration with logging discarded.
func quietConf() Conf {
	c := DefaultConf()
	c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c.NumWorkers = 4
	return c
}

// phantom returns coil images (n, n, 1, channels) of a disc of radius 0.35·n
// seen through smooth Gaussian coil profiles placed on a circle, and the
// true sensitivities.
func phantom(n, channels int) (img, sens *multind.Array) {
	img = multind.New(n, n, 1, channels)
	sens = multind.New(n, n, 1, channels)

	sigma := 0.6 * float64(n)
	for c := 0; c < channels; c++ {
		angle := 2 * math.Pi * float64(c) / float64(channels)
		cx := 0.5 * float64(n) * math.Cos(angle)
		cy := 0.5 * float64(n) * math.Sin(angle)
		phase := cmplx.Exp(complex(0, angle))

		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				px := float64(x - n/2)
				py := float64(y - n/2)
				d2 := (px-cx)*(px-cx) + (py-cy)*(py-cy)
				s := complex(math.Exp(-d2/(2*sigma*sigma)), 0) * phase
				sens.Set(s, x, y, 0, c)

				if px*px+py*py <= 0.35*0.35*float64(n*n) {
					img.Set(s, x, y, 0, c)
				}
			}
		}
	}
	return img, sens
}

// phantomKSpace returns the centred k-space of the phantom.
func phantomKSpace(n, channels int) (kspace, sens *multind.Array) {
	img, sens := phantom(n, channels)
	img.FFT(multind.FlagX | multind.FlagY)
	return img, sens
}
