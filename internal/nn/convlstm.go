package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/convlstm/internal/tensor"
)

// Group normalization defaults for the gate channels.
const (
	// DefaultNormGroups is the group count used when ConvLSTMConfig.NormGroups
	// is zero. It requires 4*HiddenC to be a multiple of 128, i.e. HiddenC a
	// multiple of 32.
	DefaultNormGroups = 32 * 4

	// DefaultNormEpsilon is used when ConvLSTMConfig.NormEpsilon is zero.
	DefaultNormEpsilon = 1e-5
)

// ConvLSTMConfig holds the immutable construction parameters of a ConvLSTMCell.
type ConvLSTMConfig struct {
	InputShape  [3]int  // (input_c, height, width)
	HiddenC     int     // hidden channels
	KernelShape [2]int  // (kernel_h, kernel_w)
	NormGroups  int     // 0 means DefaultNormGroups
	NormEpsilon float32 // 0 means DefaultNormEpsilon
}

// Groups returns the effective group count of the gate normalization.
func (c ConvLSTMConfig) Groups() int {
	if c.NormGroups == 0 {
		return DefaultNormGroups
	}
	return c.NormGroups
}

// Epsilon returns the effective normalization epsilon.
func (c ConvLSTMConfig) Epsilon() float32 {
	if c.NormEpsilon == 0 {
		return DefaultNormEpsilon
	}
	return c.NormEpsilon
}

// Padding returns (kernel_h/2, kernel_w/2).
func (c ConvLSTMConfig) Padding() [2]int {
	return [2]int{c.KernelShape[0] / 2, c.KernelShape[1] / 2}
}

// GateChannels returns 4*HiddenC.
func (c ConvLSTMConfig) GateChannels() int {
	return 4 * c.HiddenC
}

// ConvInChannels returns input_c + HiddenC.
func (c ConvLSTMConfig) ConvInChannels() int {
	return c.InputShape[0] + c.HiddenC
}

// SamePadding reports whether the gate convolution preserves height and
// width. An even kernel dimension grows that axis by one, and Step then
// rejects the gates with a ShapeError.
func (c ConvLSTMConfig) SamePadding() bool {
	return c.KernelShape[0]%2 == 1 && c.KernelShape[1]%2 == 1
}

// Validate checks every dimension and the group divisibility of the gate channels.
func (c ConvLSTMConfig) Validate() error {
	for i, name := range [3]string{"InputShape.channels", "InputShape.height", "InputShape.width"} {
		if c.InputShape[i] <= 0 {
			return &ConfigError{Field: name, Value: c.InputShape[i], Reason: "must be positive"}
		}
	}
	if c.HiddenC <= 0 {
		return &ConfigError{Field: "HiddenC", Value: c.HiddenC, Reason: "must be positive"}
	}
	for i, name := range [2]string{"KernelShape.height", "KernelShape.width"} {
		if c.KernelShape[i] <= 0 {
			return &ConfigError{Field: name, Value: c.KernelShape[i], Reason: "must be positive"}
		}
	}
	if c.NormGroups < 0 {
		return &ConfigError{Field: "NormGroups", Value: c.NormGroups, Reason: "must not be negative"}
	}
	if c.NormEpsilon < 0 {
		return &ConfigError{Field: "NormEpsilon", Value: c.NormEpsilon, Reason: "must not be negative"}
	}
	if groups := c.Groups(); c.GateChannels()%groups != 0 {
		return &ConfigError{
			Field:  "HiddenC",
			Value:  c.HiddenC,
			Reason: fmt.Sprintf("gate channels 4*%d=%d not divisible by %d norm groups", c.HiddenC, c.GateChannels(), groups),
		}
	}
	return nil
}

// State is the (hidden, cell) pair carried between steps.
// Both tensors have shape [batch, hidden_c, height, width].
type State[B tensor.Backend] struct {
	Hidden *tensor.Tensor[float32, B]
	Cell   *tensor.Tensor[float32, B]
}

// Gates holds the four activated gate tensors of one step.
type Gates[B tensor.Backend] struct {
	Input     *tensor.Tensor[float32, B] // sigmoid, in (0, 1)
	Forget    *tensor.Tensor[float32, B] // sigmoid, in (0, 1)
	Output    *tensor.Tensor[float32, B] // sigmoid, in (0, 1)
	Candidate *tensor.Tensor[float32, B] // tanh, in (-1, 1)
}

// ConvLSTMCell is a convolutional LSTM cell.
//
// One convolution over concat(input, hidden) produces all four gate logits,
// which are group-normalized and split in the order input, forget, output,
// candidate:
//
//	i, f, o = sigmoid(...), g = tanh(...)
//	cell    = f*cell_prev + i*g
//	hidden  = tanh(cell) * o
//
// The cell holds no runtime state between calls; only its parameters, which
// an external optimizer updates between steps.
//
// Example:
//
//	cell, err := nn.NewConvLSTMCell(nn.ConvLSTMConfig{
//	    InputShape:  [3]int{3, 16, 16},
//	    HiddenC:     32,
//	    KernelShape: [2]int{3, 3},
//	}, backend)
//	state, _ := cell.InitialState(batch)
//	for _, frame := range frames {
//	    hidden, state, err = cell.Step(frame, state)
//	}
type ConvLSTMCell[B tensor.Backend] struct {
	cfg ConvLSTMConfig

	hiddenInit *Parameter[B] // [1, hidden_c, height, width]
	cellInit   *Parameter[B] // [1, hidden_c, height, width]
	conv       *Conv2D[B]
	norm       *GroupNorm[B]

	backend B
}

// NewConvLSTMCell validates cfg and allocates the cell parameters.
// Configuration errors are returned as *ConfigError wrapping ErrInvalidConfig.
func NewConvLSTMCell[B tensor.Backend](cfg ConvLSTMConfig, backend B) (*ConvLSTMCell[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stateShape := tensor.Shape{1, cfg.HiddenC, cfg.InputShape[1], cfg.InputShape[2]}

	conv := NewConv2D(cfg.ConvInChannels(), cfg.GateChannels(),
		cfg.KernelShape, [2]int{1, 1}, cfg.Padding(), true, backend)
	conv.weight.name = "gate_conv.weight"
	conv.bias.name = "gate_conv.bias"

	norm := NewGroupNorm(cfg.Groups(), cfg.GateChannels(), cfg.Epsilon(), backend)
	norm.Gamma.name = "norm.weight"
	norm.Beta.name = "norm.bias"

	return &ConvLSTMCell[B]{
		cfg:        cfg,
		hiddenInit: NewParameter("hidden_init", Zeros(stateShape, backend)),
		cellInit:   NewParameter("cell_init", Zeros(stateShape, backend)),
		conv:       conv,
		norm:       norm,
		backend:    backend,
	}, nil
}

// Config returns the cell configuration.
func (c *ConvLSTMCell[B]) Config() ConvLSTMConfig {
	return c.cfg
}

// Conv returns the gate convolution.
func (c *ConvLSTMCell[B]) Conv() *Conv2D[B] {
	return c.conv
}

// Norm returns the gate normalization.
func (c *ConvLSTMCell[B]) Norm() *GroupNorm[B] {
	return c.norm
}

// HiddenInit returns the learnable initial hidden state.
func (c *ConvLSTMCell[B]) HiddenInit() *Parameter[B] {
	return c.hiddenInit
}

// CellInit returns the learnable initial cell state.
func (c *ConvLSTMCell[B]) CellInit() *Parameter[B] {
	return c.cellInit
}

// Parameters returns the trainable parameters in fixed order:
// hidden_init, cell_init, gate_conv.weight, gate_conv.bias, norm.weight, norm.bias.
func (c *ConvLSTMCell[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{
		c.hiddenInit,
		c.cellInit,
		c.conv.weight,
		c.conv.bias,
		c.norm.Gamma,
		c.norm.Beta,
	}
}

// NamedParameters returns the parameters keyed by name.
func (c *ConvLSTMCell[B]) NamedParameters() map[string]*Parameter[B] {
	params := c.Parameters()
	named := make(map[string]*Parameter[B], len(params))
	for _, p := range params {
		named[p.Name()] = p
	}
	return named
}

// ResetParameters re-initializes every parameter in place: gate convolution
// as in NewConv2D, norm gamma to ones, everything else to zeros.
// A nil rng uses the global math/rand source.
func (c *ConvLSTMCell[B]) ResetParameters(rng *rand.Rand) {
	c.conv.ResetParameters(rng)
	fill(c.norm.Gamma.Tensor(), 1)
	fill(c.norm.Beta.Tensor(), 0)
	fill(c.hiddenInit.Tensor(), 0)
	fill(c.cellInit.Tensor(), 0)
}

// InitialState broadcasts the learnable initial state to batch.
// The broadcast is recorded, so gradients reach hidden_init and cell_init.
func (c *ConvLSTMCell[B]) InitialState(batch int) (State[B], error) {
	if batch <= 0 {
		return State[B]{}, fmt.Errorf("%w: batch must be positive, got %d", ErrShapeMismatch, batch)
	}
	shape := tensor.Shape{batch, c.cfg.HiddenC, c.cfg.InputShape[1], c.cfg.InputShape[2]}
	return State[B]{
		Hidden: c.hiddenInit.Tensor().Expand(shape),
		Cell:   c.cellInit.Tensor().Expand(shape),
	}, nil
}

// Step advances the cell by one frame.
//
// input has shape [batch, input_c, height, width]; prev.Hidden and prev.Cell
// have shape [batch, hidden_c, height, width]. Returns the new hidden state
// and the new (hidden, cell) pair. prev is never modified.
//
// Shape mismatches are returned as *ShapeError wrapping ErrShapeMismatch.
func (c *ConvLSTMCell[B]) Step(input *tensor.Tensor[float32, B], prev State[B]) (*tensor.Tensor[float32, B], State[B], error) {
	gates, err := c.Gates(input, prev)
	if err != nil {
		return nil, State[B]{}, err
	}

	cell := gates.Forget.Mul(prev.Cell).Add(gates.Input.Mul(gates.Candidate))
	hidden := cell.Tanh().Mul(gates.Output)

	return hidden, State[B]{Hidden: hidden, Cell: cell}, nil
}

// Gates computes the activated gates for one step without combining them.
func (c *ConvLSTMCell[B]) Gates(input *tensor.Tensor[float32, B], prev State[B]) (*Gates[B], error) {
	if err := c.checkShapes(input, prev); err != nil {
		return nil, err
	}

	combined := tensor.Cat([]*tensor.Tensor[float32, B]{input, prev.Hidden}, 1)
	logits := c.conv.Forward(combined)

	// Even kernels grow the spatial dims by one.
	outShape := logits.Shape()
	for i, axis := range [2]string{"height", "width"} {
		if want := c.cfg.InputShape[1+i]; outShape[2+i] != want {
			return nil, &ShapeError{Tensor: "gates", Axis: axis, Expected: want, Got: outShape[2+i]}
		}
	}

	parts := c.norm.Forward(logits).Chunk(4, 1)
	return &Gates[B]{
		Input:     parts[0].Sigmoid(),
		Forget:    parts[1].Sigmoid(),
		Output:    parts[2].Sigmoid(),
		Candidate: parts[3].Tanh(),
	}, nil
}

var axisNames = [4]string{"batch", "channels", "height", "width"}

func (c *ConvLSTMCell[B]) checkShapes(input *tensor.Tensor[float32, B], prev State[B]) error {
	height, width := c.cfg.InputShape[1], c.cfg.InputShape[2]

	if err := checkTensor("input", input, -1, c.cfg.InputShape[0], height, width); err != nil {
		return err
	}
	batch := input.Shape()[0]
	if err := checkTensor("hidden", prev.Hidden, batch, c.cfg.HiddenC, height, width); err != nil {
		return err
	}
	return checkTensor("cell", prev.Cell, batch, c.cfg.HiddenC, height, width)
}

// checkTensor compares t against the expected NCHW dims; a negative
// expectation accepts any size.
func checkTensor[B tensor.Backend](name string, t *tensor.Tensor[float32, B], dims ...int) error {
	if t == nil {
		return fmt.Errorf("%w: %s is nil", ErrShapeMismatch, name)
	}
	shape := t.Shape()
	if len(shape) != len(dims) {
		return &ShapeError{Tensor: name, Axis: "rank", Expected: len(dims), Got: len(shape)}
	}
	for i, want := range dims {
		if want >= 0 && shape[i] != want {
			return &ShapeError{Tensor: name, Axis: axisNames[i], Expected: want, Got: shape[i]}
		}
	}
	return nil
}

// StateDict returns the parameter tensors keyed by name. The tensors are
// the live parameter buffers, not copies.
func (c *ConvLSTMCell[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, 6)
	for _, p := range c.Parameters() {
		stateDict[p.Name()] = p.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict copies stateDict into the parameters. Every parameter must be
// present with a matching shape and no unknown keys are allowed; nothing is
// written unless all checks pass.
func (c *ConvLSTMCell[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	named := c.NamedParameters()
	for name := range stateDict {
		if _, ok := named[name]; !ok {
			return fmt.Errorf("load state dict: unexpected parameter %q", name)
		}
	}
	for name, p := range named {
		raw, ok := stateDict[name]
		if !ok {
			return fmt.Errorf("load state dict: %w: %s", ErrMissingParameter, name)
		}
		if !raw.Shape().Equal(p.Shape()) {
			return fmt.Errorf("load state dict: %w: %s: expected %v, got %v",
				ErrShapeMismatch, name, p.Shape(), raw.Shape())
		}
	}

	for name, p := range named {
		if err := p.Load(stateDict[name]); err != nil {
			return fmt.Errorf("load state dict: %w", err)
		}
	}
	return nil
}

// String returns a string representation of the cell.
func (c *ConvLSTMCell[B]) String() string {
	return fmt.Sprintf("ConvLSTMCell(input_shape=(%d, %d, %d), hidden_c=%d, kernel_shape=(%d, %d), padding=(%d, %d), groups=%d)",
		c.cfg.InputShape[0], c.cfg.InputShape[1], c.cfg.InputShape[2],
		c.cfg.HiddenC,
		c.cfg.KernelShape[0], c.cfg.KernelShape[1],
		c.cfg.Padding()[0], c.cfg.Padding()[1],
		c.cfg.Groups())
}
