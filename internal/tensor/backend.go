package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Operations never modify their operands and panic with an "op: detail"
// message when given tensors of the wrong rank, shape or dtype.
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise)
	Rsqrt(x *RawTensor) *RawTensor // reciprocal square root (1/sqrt(x))
	Sigmoid(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                            // total sum (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension

	// Shape and manipulation operations
	Reshape(x *RawTensor, newShape Shape) *RawTensor // view, no copy
	Expand(x *RawTensor, shape Shape) *RawTensor      // broadcast to shape
	Cat(tensors []*RawTensor, dim int) *RawTensor     // concatenate along dimension
	Chunk(x *RawTensor, n, dim int) []*RawTensor      // split into n equal parts

	// Convolution over NCHW input with an [C_out, C_in, kH, kW] kernel.
	Conv2D(input, kernel *RawTensor, params Conv2DParams) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, params Conv2DParams) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, params Conv2DParams) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
