package ops

import "github.com/born-ml/convlstm/internal/tensor"

// SumOp represents a full reduction: output = sum(x), a 0-D tensor.
// Backward: every input element receives the scalar output gradient.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward computes the input gradient.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Expand(outputGrad, op.input.Shape())}
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}

// SumDimOp represents a reduction along one dimension.
//
// Backward: the output gradient is broadcast back along the reduced
// dimension (restoring it first when keepDim was false).
type SumDimOp struct {
	input   *tensor.RawTensor
	dim     int
	keepDim bool
	output  *tensor.RawTensor
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(input *tensor.RawTensor, dim int, keepDim bool, output *tensor.RawTensor) *SumDimOp {
	return &SumDimOp{input: input, dim: dim, keepDim: keepDim, output: output}
}

// Backward computes the input gradient.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{expandReduced(outputGrad, op.input.Shape(), op.dim, op.keepDim, backend)}
}

// Inputs returns the input tensor.
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}

// expandReduced broadcasts a gradient of a reduction along dim back to inputShape.
func expandReduced(grad *tensor.RawTensor, inputShape tensor.Shape, dim int, keepDim bool, backend tensor.Backend) *tensor.RawTensor {
	dim = normalizeDim(dim, len(inputShape))
	if !keepDim {
		kept := inputShape.Clone()
		kept[dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return backend.Expand(grad, inputShape)
}
