package ops

import (
	"fmt"

	"github.com/born-ml/convlstm/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[1,C,1,1] * x[N,C,H,W] -> y[N,C,H,W]  (a was broadcast)
//	Backward: grad_y[N,C,H,W] -> grad_a[1,C,1,1]   (sum over N, H, W)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(targetShape) {
		return grad
	}

	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	if len(targetShape) > len(gradShape) {
		panic(fmt.Sprintf("reduceBroadcast: cannot reduce %v to %v", gradShape, targetShape))
	}

	// Leading axes that broadcasting added are summed away first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	for i, dim := range targetShape {
		if dim == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		panic(fmt.Sprintf("reduceBroadcast: cannot reduce %v to %v", gradShape, targetShape))
	}

	return result
}

// normalizeDim resolves a negative dimension against rank.
func normalizeDim(dim, rank int) int {
	if dim < 0 {
		return dim + rank
	}
	return dim
}

// narrow copies the slice [start, start+length) of x along dim into a new tensor.
func narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	outShape := shape.Clone()
	outShape[dim] = length

	result, err := tensor.NewRaw(outShape, x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("narrow: %v", err))
	}

	elem := x.DType().Size()
	inner := elem
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}

	src, dst := x.Data(), result.Data()
	srcRow := shape[dim] * inner
	block := length * inner
	for o := 0; o < outer; o++ {
		from := o*srcRow + start*inner
		copy(dst[o*block:(o+1)*block], src[from:from+block])
	}

	return result
}
