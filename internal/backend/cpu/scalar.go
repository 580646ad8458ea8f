package cpu

import (
	"fmt"

	"github.com/born-ml/convlstm/internal/tensor"
)

// MulScalar multiplies each element of the tensor by a scalar value.
// The scalar may be any Go float or int; it is converted to the tensor dtype.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := cpu.newResult("mulScalar", x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		mulScalarKernel(result.AsFloat32(), x.AsFloat32(), scalarAs[float32]("mulScalar", scalar))
	case tensor.Float64:
		mulScalarKernel(result.AsFloat64(), x.AsFloat64(), scalarAs[float64]("mulScalar", scalar))
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := cpu.newResult("addScalar", x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		addScalarKernel(result.AsFloat32(), x.AsFloat32(), scalarAs[float32]("addScalar", scalar))
	case tensor.Float64:
		addScalarKernel(result.AsFloat64(), x.AsFloat64(), scalarAs[float64]("addScalar", scalar))
	default:
		panic(fmt.Sprintf("addScalar: unsupported dtype %v", x.DType()))
	}

	return result
}

func mulScalarKernel[T float](dst, src []T, s T) {
	for i := range dst {
		dst[i] = src[i] * s
	}
}

func addScalarKernel[T float](dst, src []T, s T) {
	for i := range dst {
		dst[i] = src[i] + s
	}
}

func scalarAs[T float](op string, scalar any) T {
	switch s := scalar.(type) {
	case float32:
		return T(s)
	case float64:
		return T(s)
	case int:
		return T(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}
