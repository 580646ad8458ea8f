package ops

import "github.com/born-ml/convlstm/internal/tensor"

// MeanDimOp represents output = mean(x, dim).
//
// Backward pass:
//
//	grad_x = broadcast(outputGrad) / size(dim)
type MeanDimOp struct {
	input   *tensor.RawTensor
	dim     int
	keepDim bool
	output  *tensor.RawTensor
}

// NewMeanDimOp creates a new MeanDimOp.
func NewMeanDimOp(input *tensor.RawTensor, dim int, keepDim bool, output *tensor.RawTensor) *MeanDimOp {
	return &MeanDimOp{input: input, dim: dim, keepDim: keepDim, output: output}
}

// Backward computes the input gradient.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	size := shape[normalizeDim(op.dim, len(shape))]
	grad := expandReduced(outputGrad, shape, op.dim, op.keepDim, backend)
	return []*tensor.RawTensor{backend.MulScalar(grad, 1/float64(size))}
}

// Inputs returns the input tensor.
func (op *MeanDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor {
	return op.output
}
