// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Im2col convolutions on top of gonum BLAS GEMM
//   - Float32 and Float64 support
//   - NumPy-compatible broadcasting
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convlstm/backend/cpu"
//	    "github.com/born-ml/convlstm/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    cell, err := nn.NewConvLSTMCell(nn.ConvLSTMConfig{
//	        InputShape:  [3]int{3, 16, 16},
//	        HiddenC:     32,
//	        KernelShape: [2]int{3, 3},
//	    }, backend)
//	}
//
// # Performance
//
// Convolutions and other per-sample kernels are split across goroutines by
// batch index. Each sample is computed sequentially, so results do not
// depend on the number of workers.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
