package multind

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Axis flags select the dimensions a transform runs over.
const (
	FlagX uint = 1 << iota
	FlagY
	FlagZ

	// FlagsSpatial selects the three spatial dimensions.
	FlagsSpatial = FlagX | FlagY | FlagZ
)

// FFT performs an in-place centered forward FFT over the dimensions selected
// by flags. The sample at index n/2 is treated as the origin on both sides of
// the transform. The transform is not normalized.
func (a *Array) FFT(flags uint) {
	a.fftAxes(flags, false)
}

// IFFT performs an in-place centered inverse FFT over the dimensions selected
// by flags. Like FFT it is not normalized, so FFT followed by IFFT scales the
// data by the product of the transformed lengths.
func (a *Array) IFFT(flags uint) {
	a.fftAxes(flags, true)
}

func (a *Array) fftAxes(flags uint, inverse bool) {
	for ax := range a.Dims {
		if flags&(1<<uint(ax)) == 0 || a.Dims[ax] <= 1 {
			continue
		}
		a.fftAxis(ax, inverse)
	}
}

// fftAxis transforms every line along dimension ax. The lines are shifted so
// that index n/2 maps to frequency zero before the transform and shifted back
// afterwards.
func (a *Array) fftAxis(ax int, inverse bool) {
	n := a.Dims[ax]
	str := Strides(a.Dims)
	stride := str[ax]

	// Create a new FFT object from Gonum
	fft := fourier.NewCmplxFFT(n)

	line := make([]complex128, n)
	out := make([]complex128, n)

	outer := append([]int(nil), a.Dims...)
	outer[ax] = 1

	half := n / 2
	loop(outer, func(pos []int) {
		base := 0
		for i, p := range pos {
			base += p * str[i]
		}

		// ifftshift while gathering the line
		for k := 0; k < n; k++ {
			line[k] = a.Data[base+((k+half)%n)*stride]
		}

		if inverse {
			fft.Sequence(out, line)
		} else {
			fft.Coefficients(out, line)
		}

		// fftshift while scattering the result
		for k := 0; k < n; k++ {
			a.Data[base+k*stride] = out[(k+n-half)%n]
		}
	})
}
