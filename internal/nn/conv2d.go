package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/convlstm/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: output = Conv2D(input, weight) + bias
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Stride and padding are given per axis, height first:
//
//	out_h = (height + 2*padding[0] - kernel_h) / stride[0] + 1
//	out_w = (width  + 2*padding[1] - kernel_w) / stride[1] + 1
//
// Example:
//
//	// 3x5 kernel with "same" padding
//	conv := nn.NewConv2D(8, 16, [2]int{3, 5}, [2]int{1, 1}, [2]int{1, 2}, true, backend)
//	output := conv.Forward(input) // [N, 16, H, W]
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	params      tensor.Conv2DParams
	useBias     bool

	weight *Parameter[B] // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter[B] // [out_channels] or nil

	backend B
}

// NewConv2D creates a new 2D convolutional layer initialized like PyTorch's
// Conv2d: Kaiming-uniform weights and U(-1/sqrt(fan_in), 1/sqrt(fan_in)) bias.
//
// Panics on non-positive channels, kernel or stride, or negative padding.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding [2]int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernel[0] <= 0 || kernel[1] <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernel[0], kernel[1]))
	}
	params := tensor.Conv2DParams{Stride: stride, Padding: padding}
	if err := params.Validate(); err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}

	weightShape := tensor.Shape{outChannels, inChannels, kernel[0], kernel[1]}
	c := &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernel,
		params:      params,
		useBias:     useBias,
		weight:      NewParameter("weight", Zeros(weightShape, backend)),
		backend:     backend,
	}
	if useBias {
		c.bias = NewParameter("bias", Zeros(tensor.Shape{outChannels}, backend))
	}

	c.ResetParameters(nil)
	return c
}

// ResetParameters re-draws weights and bias in place from rng.
// A nil rng uses the global math/rand source.
func (c *Conv2D[B]) ResetParameters(rng *rand.Rand) {
	fanIn := c.inChannels * c.kernelSize[0] * c.kernelSize[1]
	w := KaimingUniform(fanIn, math.Sqrt(5), c.weight.Shape(), rng, c.backend)
	copy(c.weight.Tensor().Data(), w.Data())

	if c.useBias {
		fillUniform(c.bias.Tensor(), 1/math.Sqrt(float64(fanIn)), rng)
	}
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	output := input.Conv2D(c.weight.Tensor(), c.params)

	if c.useBias {
		// [out_channels] -> [1, out_channels, 1, 1] for broadcasting
		output = output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1))
	}

	return output
}

// Parameters returns all trainable parameters.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.useBias {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Weight returns the kernel parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, or nil when the layer has none.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// String returns a string representation of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=(%d, %d), stride=(%d, %d), padding=(%d, %d), bias=%v)",
		c.inChannels, c.outChannels,
		c.kernelSize[0], c.kernelSize[1],
		c.params.Stride[0], c.params.Stride[1],
		c.params.Padding[0], c.params.Padding[1],
		c.useBias)
}

// InChannels returns the number of input channels.
func (c *Conv2D[B]) InChannels() int {
	return c.inChannels
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// KernelSize returns the kernel size [height, width].
func (c *Conv2D[B]) KernelSize() [2]int {
	return c.kernelSize
}

// Params returns the stride and padding.
func (c *Conv2D[B]) Params() tensor.Conv2DParams {
	return c.params
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (c *Conv2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH, outW := c.params.OutputSize(inputH, inputW, c.kernelSize[0], c.kernelSize[1])
	return [2]int{outH, outW}
}
