package ops

import "github.com/born-ml/convlstm/internal/tensor"

// RsqrtOp represents output = 1/sqrt(x).
//
// Backward pass:
//
//	d(x^-1/2)/dx = -0.5 * x^-3/2 = -0.5 * output^3
type RsqrtOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewRsqrtOp creates a new RsqrtOp.
func NewRsqrtOp(input, output *tensor.RawTensor) *RsqrtOp {
	return &RsqrtOp{input: input, output: output}
}

// Backward computes the input gradient.
func (op *RsqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	cube := backend.Mul(backend.Mul(op.output, op.output), op.output)
	local := backend.MulScalar(cube, -0.5)
	return []*tensor.RawTensor{backend.Mul(outputGrad, local)}
}

// Inputs returns the input tensor.
func (op *RsqrtOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *RsqrtOp) Output() *tensor.RawTensor {
	return op.output
}
