package ops

import "github.com/born-ml/convlstm/internal/tensor"

// Conv2DOp represents output = Conv2D(input, kernel, params).
//
// Backward pass:
//   - grad_input = Conv2DInputBackward(input, kernel, outputGrad)
//   - grad_kernel = Conv2DKernelBackward(input, kernel, outputGrad)
type Conv2DOp struct {
	input  *tensor.RawTensor
	kernel *tensor.RawTensor
	params tensor.Conv2DParams
	output *tensor.RawTensor
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel *tensor.RawTensor, params tensor.Conv2DParams, output *tensor.RawTensor) *Conv2DOp {
	return &Conv2DOp{input: input, kernel: kernel, params: params, output: output}
}

// Backward computes gradients for the input and the kernel.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput := backend.Conv2DInputBackward(op.input, op.kernel, outputGrad, op.params)
	gradKernel := backend.Conv2DKernelBackward(op.input, op.kernel, outputGrad, op.params)
	return []*tensor.RawTensor{gradInput, gradKernel}
}

// Inputs returns [input, kernel].
func (op *Conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

// Output returns the convolution output.
func (op *Conv2DOp) Output() *tensor.RawTensor {
	return op.output
}
