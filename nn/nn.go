// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/convlstm/internal/nn"
	"github.com/born-ml/convlstm/internal/tensor"
)

// Module interface defines the common interface for neural network layers.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// CollectGrads attaches gradients from a Backward result to params.
func CollectGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	nn.CollectGrads(params, grads)
}

// ConvLSTM

// Defaults applied when the corresponding ConvLSTMConfig field is zero.
const (
	DefaultNormGroups  = nn.DefaultNormGroups
	DefaultNormEpsilon = nn.DefaultNormEpsilon
)

// ConvLSTMConfig holds the construction parameters of a ConvLSTMCell.
type ConvLSTMConfig = nn.ConvLSTMConfig

// ConvLSTMCell is a convolutional LSTM cell.
type ConvLSTMCell[B tensor.Backend] = nn.ConvLSTMCell[B]

// State is the (hidden, cell) pair carried between steps.
type State[B tensor.Backend] = nn.State[B]

// Gates holds the four activated gates of one step.
type Gates[B tensor.Backend] = nn.Gates[B]

// NewConvLSTMCell validates cfg and creates a cell.
//
// Example:
//
//	backend := cpu.New()
//	cell, err := nn.NewConvLSTMCell(nn.ConvLSTMConfig{
//	    InputShape:  [3]int{1, 64, 64},
//	    HiddenC:     64,
//	    KernelShape: [2]int{5, 5},
//	}, backend)
func NewConvLSTMCell[B tensor.Backend](cfg ConvLSTMConfig, backend B) (*ConvLSTMCell[B], error) {
	return nn.NewConvLSTMCell(cfg, backend)
}

// Unroll steps cell over frames and returns every hidden output and the final state.
// A nil initial state starts from the cell's learnable initial state.
func Unroll[B tensor.Backend](
	cell *ConvLSTMCell[B],
	frames []*tensor.Tensor[float32, B],
	initial *State[B],
) ([]*tensor.Tensor[float32, B], State[B], error) {
	return nn.Unroll(cell, frames, initial)
}

// Layers

// Conv2D represents a 2D convolutional layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a new 2D convolutional layer.
//
// Example:
//
//	// in=3, out=32, kernel 3x5, stride 1, padding (1, 2), with bias
//	conv := nn.NewConv2D(3, 32, [2]int{3, 5}, [2]int{1, 1}, [2]int{1, 2}, true, backend)
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding [2]int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernel, stride, padding, useBias, backend)
}

// GroupNorm normalizes groups of channels per sample.
type GroupNorm[B tensor.Backend] = nn.GroupNorm[B]

// NewGroupNorm creates a group normalization layer. numChannels must be
// divisible by numGroups.
func NewGroupNorm[B tensor.Backend](numGroups, numChannels int, epsilon float32, backend B) *GroupNorm[B] {
	return nn.NewGroupNorm(numGroups, numChannels, epsilon, backend)
}

// Activations

// Sigmoid represents the sigmoid activation function.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a new Sigmoid activation layer.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh represents the hyperbolic tangent activation function.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a new Tanh activation layer.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Loss functions

// MSELoss represents the mean squared error loss.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates a new MSE loss function.
//
// Example:
//
//	criterion := nn.NewMSELoss(backend)
//	loss := criterion.Forward(hidden, target)
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return nn.NewMSELoss(backend)
}

// Initialization

// KaimingUniform draws from U(-bound, bound) with bound = sqrt(6 / ((1 + a²) * fanIn)).
func KaimingUniform[B tensor.Backend](fanIn int, a float64, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.KaimingUniform(fanIn, a, shape, rng, backend)
}

// Xavier draws from the Glorot uniform distribution.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, rng, backend)
}

// Errors

var (
	// ErrInvalidConfig is wrapped by every configuration error.
	ErrInvalidConfig = nn.ErrInvalidConfig
	// ErrShapeMismatch is wrapped by every tensor shape error.
	ErrShapeMismatch = nn.ErrShapeMismatch
	// ErrMissingParameter reports a state dict without a required parameter.
	ErrMissingParameter = nn.ErrMissingParameter
)

// ConfigError describes an invalid ConvLSTMConfig field.
type ConfigError = nn.ConfigError

// ShapeError describes a tensor whose shape does not match the cell.
type ShapeError = nn.ShapeError
