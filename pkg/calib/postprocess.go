package calib

import (
	"fmt"
	"math"
	"math/cmplx"

	"mriespirit/internal/models"
	"mriespirit/internal/parallel"
	"mriespirit/pkg/linalg"
)

// scurve is 0 below -1, 1 above 1 and rises smoothly in between.
func scurve(x float64) float64 {
	if x <= -1 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return 0.5 * (1 + 2*x/(1+x*x))
}

// CropWeight is the soft crop weight of eigenvalue val at crop threshold
// crth.
func CropWeight(crth, val float64) float64 {
	return scurve((math.Sqrt(val) - crth) / (1 - crth))
}

// CropThreshold is the hard crop weight: 0 for val <= crth, 1 otherwise.
func CropThreshold(crth, val float64) float64 {
	if val <= crth {
		return 0
	}
	return 1
}

// NormalizeL1 divides the channels of every map at every voxel by their L1
// norm. With rescale the result is multiplied by √channels. Voxels whose
// maps are zero are left alone.
func NormalizeL1(em *models.EigenMaps, rescale bool, workers int) {
	vox := em.Voxels()
	channels := em.Channels()
	maps := em.NumMaps()
	data := em.Maps.Data

	post := 1.0
	if rescale {
		post = math.Sqrt(float64(channels))
	}

	parallel.For(vox, workers, func(v int) {
		for u := 0; u < maps; u++ {
			var nrm float64
			for c := 0; c < channels; c++ {
				nrm += cmplx.Abs(data[(u*channels+c)*vox+v])
			}
			if nrm == 0 {
				continue
			}
			s := complex(post/nrm, 0)
			for c := 0; c < channels; c++ {
				data[(u*channels+c)*vox+v] *= s
			}
		}
	})
}

// CropSensitivities multiplies every map at every voxel by the crop weight
// of that map's eigenvalue, using CropWeight when soft is set and
// CropThreshold otherwise.
func CropSensitivities(em *models.EigenMaps, soft bool, crth float64, workers int) {
	weight := CropThreshold
	if soft {
		weight = CropWeight
	}

	vox := em.Voxels()
	channels := em.Channels()
	maps := em.NumMaps()
	data := em.Maps.Data

	parallel.For(vox, workers, func(v int) {
		for u := 0; u < maps; u++ {
			w := complex(weight(crth, cmplx.Abs(em.Values.Data[u*vox+v])), 0)
			for c := 0; c < channels; c++ {
				data[(u*channels+c)*vox+v] *= w
			}
		}
	})
}

// FixPhase removes the arbitrary phase of the eigenvectors: every map at
// every voxel is rotated so that Σ_c ref_c·m_c is real and non-negative.
// ref holds combination weights and is not conjugated. A nil ref uses the
// first channel.
func FixPhase(em *models.EigenMaps, ref []complex128, workers int) error {
	vox := em.Voxels()
	channels := em.Channels()
	maps := em.NumMaps()
	data := em.Maps.Data

	if ref == nil {
		ref = make([]complex128, channels)
		ref[0] = 1
	}
	if len(ref) != channels {
		return fmt.Errorf("%w: phase reference of length %d for %d channels", ErrDimensions, len(ref), channels)
	}

	parallel.For(vox, workers, func(v int) {
		for u := 0; u < maps; u++ {
			var p complex128
			for c := 0; c < channels; c++ {
				p += ref[c] * data[(u*channels+c)*vox+v]
			}
			a := cmplx.Abs(p)
			if a == 0 {
				continue
			}
			rot := cmplx.Conj(p) / complex(a, 0)
			for c := 0; c < channels; c++ {
				data[(u*channels+c)*vox+v] *= rot
			}
		}
	})
	return nil
}

// PostProcess applies the configured intensity normalization, cropping and
// phase fixing to em in place. ref is the phase reference (nil: first
// channel) and rescale multiplies the normalized maps by √channels.
func PostProcess(conf *Conf, em *models.EigenMaps, ref []complex128, rescale bool) error {
	log := conf.logger()

	if conf.Intensity {
		log.Debug("Normalize")
		NormalizeL1(em, rescale, conf.NumWorkers)
	}

	log.Debug("Crop maps", "crop", conf.Crop, "soft", conf.SoftCrop)
	CropSensitivities(em, conf.SoftCrop, conf.Crop, conf.NumWorkers)

	log.Debug("Fix phase")
	return FixPhase(em, ref, conf.NumWorkers)
}

// phaseReference returns the reference weights used by FixPhase for conf:
// the leading coil compression row when RotPhase is set, nil (first
// channel) otherwise.
func phaseReference(conf *Conf, rot [][]complex128) []complex128 {
	if !conf.RotPhase || len(rot) == 0 {
		return nil
	}
	ref := append([]complex128(nil), rot[0]...)
	if n := linalg.Norm(ref); n > 0 {
		for i := range ref {
			ref[i] /= complex(n, 0)
		}
	}
	return ref
}
