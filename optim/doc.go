// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training the ConvLSTM cell.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// Optimizers update parameter buffers in place and never record on the
// gradient tape, so a step can run while recording is enabled.
//
// # Basic Usage
//
//	backend := autodiff.New(cpu.New())
//	cell, _ := nn.NewConvLSTMCell(cfg, backend)
//	optimizer := optim.NewAdam(cell.Parameters(), optim.AdamConfig{LR: 0.001})
//	criterion := nn.NewMSELoss(backend)
//
//	for step := range 100 {
//	    backend.Tape().Clear()
//	    backend.Tape().StartRecording()
//
//	    state, _ := cell.InitialState(batch)
//	    hidden, _, _ := cell.Step(frame, state)
//	    loss := criterion.Forward(hidden, target)
//
//	    grads := autodiff.Backward(loss, backend)
//	    optimizer.Step(grads)
//	}
//
// # State
//
// StateDict and LoadStateDict export momentum (SGD) or first and second
// moments plus the timestep (Adam), keyed by parameter index. nn.Checkpoint
// stores them alongside the cell parameters.
package optim
