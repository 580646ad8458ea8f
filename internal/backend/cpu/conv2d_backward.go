package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"

	"github.com/born-ml/convlstm/internal/tensor"
)

// Conv2DInputBackward computes the gradient of a Conv2D with respect to its input.
//
// Parameters:
//   - input: Forward input [N, C_in, H, W] (only its shape is used)
//   - kernel: Forward kernel [C_out, C_in, K_h, K_w]
//   - grad: Gradient of the output [N, C_out, H_out, W_out]
//
// Per sample: dcol[K, P] = W^T[K, C_out] x grad_n[C_out, P], then col2im
// scatters dcol back into the padded input grid (padding is dropped).
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, params tensor.Conv2DParams) *tensor.RawTensor {
	g := newConvGeometry("conv2d_input_backward", input, kernel, params)
	checkConvGrad("conv2d_input_backward", g, grad, input.DType())

	result := cpu.newResult("conv2d_input_backward", input.Shape(), input.DType())

	switch input.DType() {
	case tensor.Float32:
		conv2dInputBackward(cpu, g, result.AsFloat32(), kernel.AsFloat32(), grad.AsFloat32())
	case tensor.Float64:
		conv2dInputBackward(cpu, g, result.AsFloat64(), kernel.AsFloat64(), grad.AsFloat64())
	default:
		panic(fmt.Sprintf("conv2d_input_backward: unsupported dtype %s", input.DType()))
	}

	return result
}

// Conv2DKernelBackward computes the gradient of a Conv2D with respect to its kernel.
//
// dW[C_out, K] = sum_n grad_n[C_out, P] x col_n^T[P, K]. Per-sample partial
// products are computed in parallel and summed in batch order, so the result
// does not depend on scheduling.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, params tensor.Conv2DParams) *tensor.RawTensor {
	g := newConvGeometry("conv2d_kernel_backward", input, kernel, params)
	checkConvGrad("conv2d_kernel_backward", g, grad, input.DType())

	result := cpu.newResult("conv2d_kernel_backward", kernel.Shape(), kernel.DType())

	switch input.DType() {
	case tensor.Float32:
		conv2dKernelBackward(cpu, g, result.AsFloat32(), input.AsFloat32(), grad.AsFloat32())
	case tensor.Float64:
		conv2dKernelBackward(cpu, g, result.AsFloat64(), input.AsFloat64(), grad.AsFloat64())
	default:
		panic(fmt.Sprintf("conv2d_kernel_backward: unsupported dtype %s", input.DType()))
	}

	return result
}

func checkConvGrad(op string, g convGeometry, grad *tensor.RawTensor, dtype tensor.DataType) {
	if grad.DType() != dtype {
		panic(fmt.Sprintf("%s: grad dtype %s, expected %s", op, grad.DType(), dtype))
	}
	if !grad.Shape().Equal(g.outputShape()) {
		panic(fmt.Sprintf("%s: grad shape %v, expected %v", op, grad.Shape(), g.outputShape()))
	}
}

func conv2dInputBackward[T float](cpu *CPUBackend, g convGeometry, dx, kernel, grad []T) {
	inSize := g.cIn * g.h * g.w
	outSize := g.cOut * g.colCols

	cpu.forEachSample(g.n, func(n int) {
		dcol := make([]T, g.colRows*g.colCols)
		gemm(blas.Trans, blas.NoTrans, g.colRows, g.colCols, g.cOut,
			kernel, grad[n*outSize:(n+1)*outSize], 0, dcol)
		col2im(dx[n*inSize:(n+1)*inSize], dcol, g)
	})
}

func conv2dKernelBackward[T float](cpu *CPUBackend, g convGeometry, dw, input, grad []T) {
	inSize := g.cIn * g.h * g.w
	outSize := g.cOut * g.colCols
	kSize := g.cOut * g.colRows

	partials := make([][]T, g.n)
	cpu.forEachSample(g.n, func(n int) {
		col := make([]T, g.colRows*g.colCols)
		im2col(col, input[n*inSize:(n+1)*inSize], g)
		partial := make([]T, kSize)
		gemm(blas.NoTrans, blas.Trans, g.cOut, g.colRows, g.colCols,
			grad[n*outSize:(n+1)*outSize], col, 0, partial)
		partials[n] = partial
	})

	for _, partial := range partials {
		for i, v := range partial {
			dw[i] += v
		}
	}
}
