package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/convlstm/internal/tensor"
)

// KaimingUniform initializes weights from U(-bound, bound) with
//
//	bound = sqrt(6 / ((1 + a²) * fan_in))
//
// where a is the negative slope of the following rectifier. With
// a = sqrt(5) this is PyTorch's default for Conv2d weights, bound = 1/sqrt(fan_in).
//
// A nil rng uses the global math/rand source.
func KaimingUniform[B tensor.Backend](fanIn int, a float64, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / ((1 + a*a) * float64(fanIn)))
	return tensor.Uniform[float32](shape, -bound, bound, rng, backend)
}

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform[float32](shape, -bound, bound, rng, backend)
}

// Zeros creates a float32 tensor filled with zeros.
//
// This is commonly used for bias and initial-state initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones creates a float32 tensor filled with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}

// fillUniform overwrites t in place with values from U(-bound, bound).
func fillUniform[B tensor.Backend](t *tensor.Tensor[float32, B], bound float64, rng *rand.Rand) {
	fresh := tensor.Uniform[float32](t.Shape(), -bound, bound, rng, t.Backend())
	copy(t.Data(), fresh.Data())
}

// fill overwrites t in place with value.
func fill[B tensor.Backend](t *tensor.Tensor[float32, B], value float32) {
	data := t.Data()
	for i := range data {
		data[i] = value
	}
}
