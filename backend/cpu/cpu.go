// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/convlstm/internal/backend/cpu"
	"github.com/born-ml/convlstm/internal/parallel"
	"github.com/born-ml/convlstm/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend that uses up to GOMAXPROCS goroutines.
//
// Example:
//
//	import (
//	    "github.com/born-ml/convlstm/backend/cpu"
//	    "github.com/born-ml/convlstm/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend limited to workers goroutines.
// workers <= 1 runs every kernel sequentially.
func NewWithWorkers(workers int) *Backend {
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = workers
	cfg.Enabled = workers > 1
	return internalcpu.NewWithConfig(cfg)
}
