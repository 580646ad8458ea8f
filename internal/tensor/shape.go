package tensor

import (
	"fmt"
	"slices"
)

// Shape lists tensor dimensions, outermost first.
type Shape []int

// NumElements returns the product of the dimensions; 1 for a scalar.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate reports the first non-positive dimension.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape. A nil shape clones to an empty one.
func (s Shape) Clone() Shape {
	return append(Shape{}, s...)
}

// ComputeStrides returns row-major element strides:
// stride[i] is the product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}

// NormalizeDim resolves a possibly negative dimension index against rank.
// Panics if the index is out of range.
func NormalizeDim(dim, rank int) int {
	if dim < 0 {
		dim += rank
	}
	if dim < 0 || dim >= rank {
		panic(fmt.Sprintf("dimension %d out of range for rank %d", dim, rank))
	}
	return dim
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared right to left. Dimensions are compatible when they are
// equal or one of them is 1; missing leading dimensions count as 1.
//
// Returns the broadcasted shape, whether broadcasting is needed, and an error
// if the shapes are incompatible.
//
// Examples:
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(3, 4) + (3, 5) → nil, false, Error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	rank := max(len(a), len(b))
	result := make(Shape, rank)
	needsBroadcast := len(a) != len(b)

	// dimAt reads dimension i of s counted from the right, padding with 1.
	dimAt := func(s Shape, i int) int {
		if j := len(s) - rank + i; j >= 0 {
			return s[j]
		}
		return 1
	}

	for i := range rank {
		aDim, bDim := dimAt(a, i), dimAt(b, i)
		switch {
		case aDim == bDim:
			result[i] = aDim
		case aDim == 1:
			result[i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// Conv2DParams describes the geometry of a 2D convolution.
// Index 0 is the height axis, index 1 the width axis.
type Conv2DParams struct {
	Stride  [2]int
	Padding [2]int
}

// OutputSize returns the spatial output size of a convolution with a
// (kh, kw) kernel over an (h, w) input.
func (p Conv2DParams) OutputSize(h, w, kh, kw int) (outH, outW int) {
	outH = (h+2*p.Padding[0]-kh)/p.Stride[0] + 1
	outW = (w+2*p.Padding[1]-kw)/p.Stride[1] + 1
	return outH, outW
}

// Validate reports whether strides are positive and paddings non-negative.
func (p Conv2DParams) Validate() error {
	for axis := range 2 {
		if p.Stride[axis] <= 0 {
			return fmt.Errorf("stride[%d] must be positive, got %d", axis, p.Stride[axis])
		}
		if p.Padding[axis] < 0 {
			return fmt.Errorf("padding[%d] must be non-negative, got %d", axis, p.Padding[axis])
		}
	}
	return nil
}
