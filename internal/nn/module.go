// Package nn implements neural network modules for the ConvLSTM cell.
//
// This package provides building blocks for recurrent convolutional models:
//   - Module interface: Base interface for stateless layers
//   - Parameter: Trainable parameters with gradient tracking
//   - Conv2D: 2D convolution with per-axis stride and padding
//   - GroupNorm: Group normalization over channel groups
//   - Activations: Sigmoid, Tanh
//   - Loss functions: MSE
//   - ConvLSTMCell: the gated recurrent update over image-like frames
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
// Trainable tensors are enumerated explicitly so an external optimizer can
// update them; nothing is registered implicitly.
package nn

import (
	"github.com/born-ml/convlstm/internal/tensor"
)

// Module is the base interface for single-input neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// The recurrent ConvLSTMCell is not a Module: its step takes and returns
// explicit state.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	//
	// Returns an empty slice for modules without trainable parameters
	// (e.g., activation functions).
	Parameters() []*Parameter[B]
}
