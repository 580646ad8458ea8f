package ops

import "github.com/born-ml/convlstm/internal/tensor"

// SigmoidOp represents output = 1/(1+exp(-x)).
//
// Backward pass uses the saved output:
//
//	d(sigmoid(x))/dx = sigmoid(x) * (1 - sigmoid(x))
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

// Backward computes the input gradient.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// s - s*s == s*(1-s)
	local := backend.Sub(op.output, backend.Mul(op.output, op.output))
	return []*tensor.RawTensor{backend.Mul(outputGrad, local)}
}

// Inputs returns the input tensor.
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}
