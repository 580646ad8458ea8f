package ops

import "github.com/born-ml/convlstm/internal/tensor"

// CatOp represents a concatenation operation along a dimension.
//
// Backward: the output gradient is split along dim at the input boundaries
// and each input receives its own slice.
//
// Example:
//
//	inputs: x[N,3,H,W], h[N,5,H,W] along dim=1
//	gradOutput: [N,8,H,W]
//	grad_x = gradOutput[:, 0:3], grad_h = gradOutput[:, 3:8]
type CatOp struct {
	inputs []*tensor.RawTensor // Input tensors that were concatenated
	dim    int                 // Dimension along which concatenation happened
	output *tensor.RawTensor   // Concatenated output tensor
}

// NewCatOp creates a new cat operation.
func NewCatOp(inputs []*tensor.RawTensor, dim int, output *tensor.RawTensor) *CatOp {
	return &CatOp{
		inputs: append([]*tensor.RawTensor(nil), inputs...),
		dim:    normalizeDim(dim, len(output.Shape())),
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes gradients for the input tensors.
func (op *CatOp) Backward(gradOutput *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		size := in.Shape()[op.dim]
		grads[i] = narrow(gradOutput, op.dim, offset, size)
		offset += size
	}
	return grads
}
