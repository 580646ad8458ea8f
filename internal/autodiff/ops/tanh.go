package ops

import "github.com/born-ml/convlstm/internal/tensor"

// TanhOp represents output = tanh(x).
//
// Backward pass uses the saved output:
//
//	d(tanh(x))/dx = 1 - tanh(x)^2
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{input: input, output: output}
}

// Backward computes the input gradient.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	sq := backend.Mul(op.output, op.output)
	local := backend.AddScalar(backend.MulScalar(sq, -1), 1)
	return []*tensor.RawTensor{backend.Mul(outputGrad, local)}
}

// Inputs returns the input tensor.
func (op *TanhOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TanhOp) Output() *tensor.RawTensor {
	return op.output
}
