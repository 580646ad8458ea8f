// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convlstm/internal/nn"
	"github.com/born-ml/convlstm/internal/serialization"
	"github.com/born-ml/convlstm/internal/tensor"
)

// OptimizerState represents an optimizer that can save/load its state.
type OptimizerState = nn.OptimizerState

// Checkpoint is a snapshot of a cell with optional optimizer state.
//
// Example:
//
//	ckpt := &nn.Checkpoint[B]{Cell: cell, Optimizer: adam, Step: 500, Loss: 0.02}
//	err := ckpt.Save("cell.safetensors", nn.SaveOptions{})
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// SaveOptions controls the on-disk storage of a checkpoint.
type SaveOptions = serialization.WriterOptions

// Storage dtypes accepted by SaveOptions.StorageDType.
const (
	StorageF16 = serialization.DTypeF16
	StorageF32 = serialization.DTypeF32
	StorageF64 = serialization.DTypeF64
)

// Checkpoint metadata keys.
const (
	MetaFormat      = nn.MetaFormat
	MetaInputShape  = nn.MetaInputShape
	MetaHiddenC     = nn.MetaHiddenC
	MetaKernelShape = nn.MetaKernelShape
	MetaNormGroups  = nn.MetaNormGroups
	MetaNormEpsilon = nn.MetaNormEpsilon
	MetaStep        = nn.MetaStep
	MetaLoss        = nn.MetaLoss
	MetaLR          = nn.MetaLR
	MetaCreatedAt   = nn.MetaCreatedAt
)

// LoadCheckpoint restores a checkpoint into a cell built with the same
// configuration and, when non-nil, into optimizer.
func LoadCheckpoint[B tensor.Backend](path string, cell *ConvLSTMCell[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, cell, optimizer)
}

// LoadCell builds a cell from the configuration stored in a checkpoint.
//
// Example:
//
//	cell, err := nn.LoadCell("cell.safetensors", cpu.New())
func LoadCell[B tensor.Backend](path string, backend B) (*ConvLSTMCell[B], error) {
	return nn.LoadCell(path, backend)
}

// ConfigFromMetadata decodes the cell configuration stored in checkpoint metadata.
func ConfigFromMetadata(meta map[string]string) (ConvLSTMConfig, error) {
	return nn.ConfigFromMetadata(meta)
}
