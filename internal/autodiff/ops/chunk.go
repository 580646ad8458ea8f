package ops

import (
	"fmt"

	"github.com/born-ml/convlstm/internal/tensor"
)

// ChunkOp represents a chunk operation that splits a tensor into n equal parts.
//
// Backward concatenates all output gradients back together along dim:
//
//	gradInput = Cat([gradOutput1, gradOutput2, ...], dim)
type ChunkOp struct {
	input   *tensor.RawTensor   // Input tensor that was chunked
	dim     int                 // Dimension along which chunking happened
	outputs []*tensor.RawTensor // Output chunk tensors
}

// NewChunkOp creates a new chunk operation.
func NewChunkOp(input *tensor.RawTensor, dim int, outputs []*tensor.RawTensor) *ChunkOp {
	return &ChunkOp{
		input:   input,
		dim:     dim,
		outputs: outputs,
	}
}

// Inputs returns the input tensor.
func (op *ChunkOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the first output tensor. The tape uses Outputs for
// multi-output operations.
func (op *ChunkOp) Output() *tensor.RawTensor {
	return op.outputs[0]
}

// Outputs returns all output tensors (implements MultiOutputOperation).
func (op *ChunkOp) Outputs() []*tensor.RawTensor {
	return op.outputs
}

// Backward is not used for multi-output operations; the tape calls BackwardMulti.
func (op *ChunkOp) Backward(_ *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	panic("ChunkOp.Backward: multi-output operations require BackwardMulti")
}

// BackwardMulti computes the input gradient given gradients for every chunk.
func (op *ChunkOp) BackwardMulti(gradOutputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if len(gradOutputs) != len(op.outputs) {
		panic(fmt.Sprintf("ChunkOp.BackwardMulti: expected %d gradients, got %d", len(op.outputs), len(gradOutputs)))
	}
	return []*tensor.RawTensor{backend.Cat(gradOutputs, op.dim)}
}
