// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the convolutional LSTM cell and the layers it is built from.
//
// # Overview
//
// This package contains:
//   - ConvLSTMCell: one recurrent step over NCHW frames
//   - Conv2D and GroupNorm: the gate convolution and its normalization
//   - Sigmoid and Tanh activations, MSELoss
//   - Checkpoint, LoadCheckpoint and LoadCell for SafeTensors persistence
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
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    state, _ := cell.InitialState(4)
//	    for _, frame := range frames { // each [4, 3, 16, 16]
//	        hidden, state, err = cell.Step(frame, state)
//	    }
//	}
//
// # Gate Normalization
//
// The gate logits are normalized with 128 groups unless ConvLSTMConfig.NormGroups
// overrides it, so the default requires HiddenC to be a multiple of 32.
//
// # Errors
//
// Invalid configurations return *ConfigError (errors.Is ErrInvalidConfig).
// Tensors of the wrong shape return *ShapeError (errors.Is ErrShapeMismatch).
package nn
