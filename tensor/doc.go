// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensor operations for the ConvLSTM cell.
//
// # Overview
//
// Tensors are dense, row-major NCHW arrays backed by a RawTensor buffer.
// This package provides:
//   - Generic type-safe tensors (Tensor[T, B]) over float32 and float64
//   - NumPy-style broadcasting for element-wise operations
//   - Zero-copy Reshape views
//   - A pluggable Backend that performs the actual computation
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convlstm/backend/cpu"
//	    "github.com/born-ml/convlstm/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3, 16, 16}, backend)
//	    h := tensor.Ones[float32](tensor.Shape{2, 8, 16, 16}, backend)
//
//	    combined := tensor.Cat([]*tensor.Tensor[float32, *cpu.Backend]{x, h}, 1)
//	    parts := combined.Chunk(2, 1)
//	}
//
// # Broadcasting
//
//	a := tensor.Zeros[float32](tensor.Shape{1, 8, 1, 1}, backend)
//	b := tensor.Ones[float32](tensor.Shape{4, 8, 16, 16}, backend)
//	c := a.Add(b) // (4, 8, 16, 16)
//
// # Immutability
//
// Operations never modify their operands; each returns a new tensor.
// Reshape and Detach return views that share the buffer with the source,
// and Data exposes the buffer directly for initialization and inspection.
//
// # Available Operations
//
//	y := x.Add(z), x.Sub(z), x.Mul(z)   // element-wise, broadcasting
//	y := x.MulScalar(2), x.AddScalar(1) // scalar
//	y := x.Sigmoid(), x.Tanh(), x.Rsqrt()
//	s := x.Sum(), x.SumDim(1, true), x.MeanDim(-1, true)
//	y := x.Reshape(2, 12), x.Expand(shape)
//	y := x.Conv2D(kernel, tensor.Conv2DParams{...})
//	parts := x.Chunk(4, 1)
package tensor
