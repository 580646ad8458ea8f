package nn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/born-ml/convlstm/internal/serialization"
	"github.com/born-ml/convlstm/internal/tensor"
)

// OptimizerState represents an optimizer that can save/load its state.
//
// This interface is used by checkpoints to serialize optimizer state
// without creating import cycles. Optimizers from the optim package
// implement this interface.
type OptimizerState interface {
	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Metadata keys written into every checkpoint.
const (
	MetaFormat      = "format"
	MetaInputShape  = "convlstm.input_shape"
	MetaHiddenC     = "convlstm.hidden_c"
	MetaKernelShape = "convlstm.kernel_shape"
	MetaNormGroups  = "convlstm.norm_groups"
	MetaNormEpsilon = "convlstm.norm_epsilon"
	MetaStep        = "train.step"
	MetaLoss        = "train.loss"
	MetaLR          = "train.lr"
	MetaCreatedAt   = "created_at"

	formatName      = "convlstm"
	optimizerPrefix = "optimizer."
)

// Metadata encodes the configuration as checkpoint metadata.
func (c ConvLSTMConfig) Metadata() map[string]string {
	return map[string]string{
		MetaFormat:      formatName,
		MetaInputShape:  joinInts(c.InputShape[:]),
		MetaHiddenC:     strconv.Itoa(c.HiddenC),
		MetaKernelShape: joinInts(c.KernelShape[:]),
		MetaNormGroups:  strconv.Itoa(c.Groups()),
		MetaNormEpsilon: strconv.FormatFloat(float64(c.Epsilon()), 'g', -1, 32),
	}
}

// ConfigFromMetadata decodes a configuration written by Metadata and validates it.
func ConfigFromMetadata(meta map[string]string) (ConvLSTMConfig, error) {
	var cfg ConvLSTMConfig
	if meta[MetaFormat] != formatName {
		return cfg, fmt.Errorf("%w: not a convlstm checkpoint (format %q)", ErrInvalidConfig, meta[MetaFormat])
	}

	input, err := parseInts(meta, MetaInputShape, 3)
	if err != nil {
		return cfg, err
	}
	kernel, err := parseInts(meta, MetaKernelShape, 2)
	if err != nil {
		return cfg, err
	}
	copy(cfg.InputShape[:], input)
	copy(cfg.KernelShape[:], kernel)

	if cfg.HiddenC, err = strconv.Atoi(meta[MetaHiddenC]); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, MetaHiddenC, err)
	}
	if cfg.NormGroups, err = strconv.Atoi(meta[MetaNormGroups]); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, MetaNormGroups, err)
	}
	eps, err := strconv.ParseFloat(meta[MetaNormEpsilon], 32)
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, MetaNormEpsilon, err)
	}
	cfg.NormEpsilon = float32(eps)

	return cfg, cfg.Validate()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func parseInts(meta map[string]string, key string, n int) ([]int, error) {
	parts := strings.Split(meta[key], ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: %s: expected %d values, got %q", ErrInvalidConfig, key, n, meta[key])
	}
	values := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		values[i] = v
	}
	return values, nil
}

// Checkpoint is a snapshot of a cell, optionally with optimizer state and
// training progress.
//
// Checkpoints are SafeTensors files: cell parameters under their own names,
// optimizer buffers under "optimizer.", configuration and progress in the
// metadata.
//
// Example:
//
//	ckpt := &nn.Checkpoint[B]{Cell: cell, Optimizer: adam, Step: 500, Loss: 0.02}
//	err := ckpt.Save("cell.safetensors", serialization.WriterOptions{})
//
// To resume training:
//
//	ckpt, err := nn.LoadCheckpoint("cell.safetensors", cell, adam)
//	start := ckpt.Step + 1
type Checkpoint[B tensor.Backend] struct {
	Cell      *ConvLSTMCell[B]  // The cell whose parameters are stored
	Optimizer OptimizerState    // Optional optimizer state
	Step      int64             // Training step number
	Loss      float64           // Loss value at this checkpoint
	Metadata  map[string]string // Additional metadata
	CreatedAt time.Time         // When the checkpoint was created
}

// Save writes the checkpoint to path.
func (c *Checkpoint[B]) Save(path string, opts serialization.WriterOptions) (err error) {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Cell.StateDict() {
		stateDict[name] = raw
	}

	meta := make(map[string]string, len(c.Metadata)+10)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	for k, v := range c.Cell.Config().Metadata() {
		meta[k] = v
	}
	meta[MetaStep] = strconv.FormatInt(c.Step, 10)
	meta[MetaLoss] = strconv.FormatFloat(c.Loss, 'g', -1, 64)

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	meta[MetaCreatedAt] = createdAt.Format(time.RFC3339)

	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			stateDict[optimizerPrefix+name] = raw
		}
		meta[MetaLR] = strconv.FormatFloat(float64(c.Optimizer.GetLR()), 'g', -1, 32)
	}

	writer, err := serialization.NewSafeTensorsWriterWithOptions(path, opts)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := writer.WriteStateDict(stateDict, meta); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a checkpoint into a pre-constructed cell and,
// when non-nil, optimizer. The stored configuration must equal the cell's.
func LoadCheckpoint[B tensor.Backend](path string, cell *ConvLSTMCell[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	reader, err := serialization.NewSafeTensorsReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}

	meta := reader.Metadata()
	cfg, err := ConfigFromMetadata(meta)
	if err != nil {
		return nil, err
	}
	if cfg != normalized(cell.Config()) {
		return nil, fmt.Errorf("%w: checkpoint config %+v does not match cell config %+v",
			ErrInvalidConfig, cfg, cell.Config())
	}

	stateDict, err := reader.ReadStateDict(tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	cellState := make(map[string]*tensor.RawTensor)
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerState[rest] = raw
		} else {
			cellState[name] = raw
		}
	}

	if err := cell.LoadStateDict(cellState); err != nil {
		return nil, fmt.Errorf("failed to load cell state: %w", err)
	}
	if optimizer != nil {
		if err := optimizer.LoadStateDict(optimizerState); err != nil {
			return nil, fmt.Errorf("failed to load optimizer state: %w", err)
		}
	}

	ckpt := &Checkpoint[B]{
		Cell:      cell,
		Optimizer: optimizer,
		Metadata:  meta,
	}
	if v, ok := meta[MetaStep]; ok {
		ckpt.Step, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := meta[MetaLoss]; ok {
		ckpt.Loss, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := meta[MetaCreatedAt]; ok {
		ckpt.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return ckpt, nil
}

// LoadCell builds a cell from the configuration stored in a checkpoint and
// loads its parameters. Optimizer state in the file is ignored.
func LoadCell[B tensor.Backend](path string, backend B) (*ConvLSTMCell[B], error) {
	reader, err := serialization.NewSafeTensorsReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	cfg, err := ConfigFromMetadata(reader.Metadata())
	if err != nil {
		return nil, err
	}
	cell, err := NewConvLSTMCell(cfg, backend)
	if err != nil {
		return nil, err
	}

	stateDict := make(map[string]*tensor.RawTensor)
	for name := range cell.NamedParameters() {
		raw, err := reader.LoadTensor(name, tensor.Float32)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingParameter, err)
		}
		stateDict[name] = raw
	}
	if err := cell.LoadStateDict(stateDict); err != nil {
		return nil, err
	}
	return cell, nil
}

// normalized replaces zero defaults with their effective values.
func normalized(c ConvLSTMConfig) ConvLSTMConfig {
	c.NormGroups = c.Groups()
	c.NormEpsilon = c.Epsilon()
	return c
}
