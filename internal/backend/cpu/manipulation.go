package cpu

import (
	"fmt"

	"github.com/born-ml/convlstm/internal/tensor"
)

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	c := backend.Cat([]*RawTensor{x, h}, 1) // [2,3,8,8] + [2,5,8,8] -> [2,8,8,8]
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += tShape[d]
			} else if tShape[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, tShape[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim
	result := cpu.newResult("cat", outShape, dtype)

	// Row-major layout: for each outer index every input contributes one
	// contiguous block of size[dim]*inner elements.
	elem := dtype.Size()
	outer, _, inner := splitAtDim(outShape, dim)
	dst := result.Data()
	outRow := totalDim * inner * elem
	offset := 0
	for _, t := range tensors {
		block := t.Shape()[dim] * inner * elem
		src := t.Data()
		for o := 0; o < outer; o++ {
			copy(dst[o*outRow+offset:o*outRow+offset+block], src[o*block:(o+1)*block])
		}
		offset += block
	}

	return result
}

// Chunk splits tensor into n equal parts along the specified dimension.
//
// The dimension size must be divisible by n. Each part is a fresh copy.
//
// Example:
//
//	parts := backend.Chunk(gates, 4, 1) // [2,16,8,8] -> 4 x [2,4,8,8]
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	if n <= 0 {
		panic(fmt.Sprintf("chunk: n must be positive, got %d", n))
	}

	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("chunk: dimension %d out of range for %dD tensor", dim, ndim))
	}

	dimSize := shape[dim]
	if dimSize%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d size %d not divisible by %d", dim, dimSize, n))
	}

	chunkShape := shape.Clone()
	chunkShape[dim] = dimSize / n

	elem := x.DType().Size()
	outer, _, inner := splitAtDim(shape, dim)
	block := chunkShape[dim] * inner * elem
	srcRow := dimSize * inner * elem
	src := x.Data()

	results := make([]*tensor.RawTensor, n)
	for i := range results {
		part := cpu.newResult("chunk", chunkShape, x.DType())
		dst := part.Data()
		for o := 0; o < outer; o++ {
			start := o*srcRow + i*block
			copy(dst[o*block:(o+1)*block], src[start:start+block])
		}
		results[i] = part
	}

	return results
}

// Expand broadcasts the tensor to a new shape.
// Input dimensions must be 1 or equal to the target; leading dimensions may be added.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	xShape := x.Shape()

	if len(newShape) < len(xShape) {
		panic(fmt.Sprintf("expand: new shape %v has fewer dimensions than input shape %v",
			newShape, xShape))
	}

	offset := len(newShape) - len(xShape)
	for i, xDim := range xShape {
		newDim := newShape[offset+i]
		if xDim != 1 && xDim != newDim {
			panic(fmt.Sprintf("expand: cannot expand dimension %d from %d to %d", i, xDim, newDim))
		}
	}

	result := cpu.newResult("expand", newShape, x.DType())

	switch x.DType() {
	case tensor.Float32:
		expandKernel(result.AsFloat32(), x.AsFloat32(), xShape, newShape)
	case tensor.Float64:
		expandKernel(result.AsFloat64(), x.AsFloat64(), xShape, newShape)
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %s", x.DType()))
	}

	return result
}

func expandKernel[T float](dst, src []T, srcShape, dstShape tensor.Shape) {
	outStrides := dstShape.ComputeStrides()
	inStrides := computeBroadcastStridesForShape(srcShape, dstShape)
	for i := range dst {
		dst[i] = src[computeFlatIndex(i, outStrides, inStrides)]
	}
}
