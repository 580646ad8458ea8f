package nn

import (
	"fmt"

	"github.com/born-ml/convlstm/internal/tensor"
)

// GroupNorm applies Group Normalization over a [N, C, *] input.
//
// Channels are split into numGroups contiguous groups; each (sample, group)
// slice is normalized with its own mean and biased variance, then scaled
// and shifted per channel:
//
//	Y = gamma * (X - mean) / sqrt(var + eps) + beta
//
// Example:
//
//	norm := nn.NewGroupNorm(32, 128, 1e-5, backend)
//	output := norm.Forward(gates) // [N, 128, H, W] -> [N, 128, H, W]
type GroupNorm[B tensor.Backend] struct {
	Gamma   *Parameter[B] // learnable scale [num_channels]
	Beta    *Parameter[B] // learnable shift [num_channels]
	Epsilon float32       // numerical stability constant

	numGroups   int
	numChannels int
	backend     B
}

// NewGroupNorm creates a new GroupNorm layer with gamma = 1 and beta = 0.
//
// Panics if numChannels is not divisible by numGroups.
func NewGroupNorm[B tensor.Backend](numGroups, numChannels int, epsilon float32, backend B) *GroupNorm[B] {
	if numGroups <= 0 || numChannels <= 0 {
		panic(fmt.Sprintf("groupnorm: invalid groups=%d, channels=%d", numGroups, numChannels))
	}
	if numChannels%numGroups != 0 {
		panic(fmt.Sprintf("groupnorm: %d channels not divisible into %d groups", numChannels, numGroups))
	}

	return &GroupNorm[B]{
		Gamma:       NewParameter("weight", Ones(tensor.Shape{numChannels}, backend)),
		Beta:        NewParameter("bias", Zeros(tensor.Shape{numChannels}, backend)),
		Epsilon:     epsilon,
		numGroups:   numGroups,
		numChannels: numChannels,
		backend:     backend,
	}
}

// Forward applies GroupNorm to the input tensor.
//
// Algorithm:
//  1. Reshape [N, C, *] -> [N, G, C/G * prod(*)]
//  2. mean and variance along the last dimension (keepdim=true)
//  3. x_norm = (x - mean) * rsqrt(variance + epsilon)
//  4. Reshape back and apply per-channel gamma and beta
func (g *GroupNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("groupnorm: expected input [N, C, ...], got %v", shape))
	}
	if shape[1] != g.numChannels {
		panic(fmt.Sprintf("groupnorm: input channels %d != expected %d", shape[1], g.numChannels))
	}

	n := shape[0]
	grouped := x.Reshape(n, g.numGroups, shape.NumElements()/(n*g.numGroups))

	mean := grouped.MeanDim(-1, true)
	centered := grouped.Sub(mean)
	variance := centered.Mul(centered).MeanDim(-1, true)
	normed := centered.Mul(variance.AddScalar(g.Epsilon).Rsqrt())

	// gamma/beta [C] -> [1, C, 1, ..., 1]
	affineShape := make([]int, len(shape))
	for i := range affineShape {
		affineShape[i] = 1
	}
	affineShape[1] = g.numChannels

	out := normed.Reshape(shape...)
	return out.Mul(g.Gamma.Tensor().Reshape(affineShape...)).Add(g.Beta.Tensor().Reshape(affineShape...))
}

// Parameters returns the learnable parameters (gamma and beta).
func (g *GroupNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{g.Gamma, g.Beta}
}

// NumGroups returns the number of channel groups.
func (g *GroupNorm[B]) NumGroups() int {
	return g.numGroups
}

// String returns a string representation of the layer.
func (g *GroupNorm[B]) String() string {
	return fmt.Sprintf("GroupNorm(%d, %d, eps=%g)", g.numGroups, g.numChannels, g.Epsilon)
}
