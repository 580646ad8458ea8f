package autodiff_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/convlstm/internal/autodiff"
	"github.com/born-ml/convlstm/internal/backend/cpu"
	"github.com/born-ml/convlstm/internal/tensor"
)

type (
	adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]
	tensor64  = tensor.Tensor[float64, adBackend]
)

// lossFn maps inputs to a single-element loss.
type lossFn func(xs []*tensor64) *tensor64

// checkGradients compares autodiff gradients of f against central finite
// differences for every element of every input.
func checkGradients(t *testing.T, f lossFn, shapes ...tensor.Shape) {
	t.Helper()

	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(7))

	inputs := make([]*tensor64, len(shapes))
	for i, shape := range shapes {
		inputs[i] = tensor.Uniform[float64](shape, -1, 1, rng, backend)
	}

	backend.Tape().StartRecording()
	loss := f(inputs)
	grads := autodiff.Backward(loss, backend)
	backend.Tape().StopRecording()
	backend.Tape().Clear()

	const eps = 1e-6
	for i, x := range inputs {
		grad, ok := grads[x.Raw()]
		require.Truef(t, ok, "no gradient for input %d", i)
		require.Equal(t, x.Shape(), grad.Shape(), "input %d gradient shape", i)

		data := x.Raw().AsFloat64()
		for j := range data {
			orig := data[j]
			data[j] = orig + eps
			plus := f(inputs).Item()
			data[j] = orig - eps
			minus := f(inputs).Item()
			data[j] = orig

			numerical := (plus - minus) / (2 * eps)
			require.InDeltaf(t, numerical, grad.AsFloat64()[j], 1e-5,
				"input %d element %d", i, j)
		}
	}
}

func TestGradient_SigmoidTanhMul(t *testing.T) {
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		return xs[0].Sigmoid().Mul(xs[1].Tanh()).Sum()
	}, tensor.Shape{2, 3}, tensor.Shape{2, 3})
}

func TestGradient_BroadcastAffine(t *testing.T) {
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		y := xs[0].Mul(xs[1]).Add(xs[2])
		return y.Mul(y).Sum()
	}, tensor.Shape{2, 3, 2, 2}, tensor.Shape{1, 3, 1, 1}, tensor.Shape{1, 3, 1, 1})
}

func TestGradient_SubRsqrt(t *testing.T) {
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		d := xs[0].Sub(xs[1])
		return d.Mul(d).AddScalar(1).Rsqrt().Sum()
	}, tensor.Shape{3, 2}, tensor.Shape{3, 2})
}

func TestGradient_MeanVariance(t *testing.T) {
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		mean := xs[0].MeanDim(-1, true)
		centered := xs[0].Sub(mean)
		variance := centered.Mul(centered).MeanDim(-1, true)
		normed := centered.Mul(variance.AddScalar(1e-5).Rsqrt())
		return normed.Mul(xs[1]).Sum()
	}, tensor.Shape{2, 6}, tensor.Shape{2, 6})
}

func TestGradient_SumDimReshapeExpand(t *testing.T) {
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		s := xs[0].SumDim(1, false).Reshape(2, 1)
		e := s.Expand(tensor.Shape{2, 4})
		return e.Mul(xs[1]).Tanh().Sum()
	}, tensor.Shape{2, 3}, tensor.Shape{2, 4})
}

func TestGradient_CatChunk(t *testing.T) {
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		joined := tensor.Cat([]*tensor64{xs[0], xs[1]}, 1)
		parts := joined.Chunk(3, 1)
		return parts[0].Sigmoid().Mul(parts[2]).Sum()
	}, tensor.Shape{1, 2, 2, 2}, tensor.Shape{1, 1, 2, 2})
}

func TestGradient_Conv2D(t *testing.T) {
	params := tensor.Conv2DParams{Stride: [2]int{1, 1}, Padding: [2]int{1, 1}}
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		return xs[0].Conv2D(xs[1], params).Tanh().Sum()
	}, tensor.Shape{2, 2, 4, 4}, tensor.Shape{3, 2, 3, 3})
}

func TestGradient_Conv2DRectangularKernel(t *testing.T) {
	params := tensor.Conv2DParams{Stride: [2]int{1, 1}, Padding: [2]int{0, 1}}
	checkGradients(t, func(xs []*tensor64) *tensor64 {
		y := xs[0].Conv2D(xs[1], params)
		return y.Mul(y).Sum()
	}, tensor.Shape{1, 2, 3, 5}, tensor.Shape{2, 2, 1, 3})
}
