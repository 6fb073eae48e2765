package cfl

import (
	"fmt"
	"slices"

	"github.com/kshedden/gonpy"

	"mriespirit/pkg/multind"
)

// WriteNpy exports the real parts of a to a NumPy .npy file. The NumPy
// shape is the reversed dimension list, so the C-ordered file holds the
// elements in the array's own order.
func WriteNpy(path string, a *multind.Array) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("write npy %s: %w", path, err)
	}

	shape := slices.Clone(a.Dims)
	slices.Reverse(shape)
	w.Shape = shape
	w.Version = 2

	data := make([]float64, a.Size())
	for i, v := range a.Data {
		data[i] = real(v)
	}
	if err := w.WriteFloat64(data); err != nil {
		return fmt.Errorf("write npy %s: %w", path, err)
	}
	return nil
}
