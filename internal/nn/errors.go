package nn

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped) by cell construction and stepping.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrMissingParameter = errors.New("missing parameter")
)

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field  string // Field name (e.g., "HiddenC")
	Value  any    // Offending value
	Reason string // What is wrong with it
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// ShapeError reports a tensor whose shape does not match the configuration.
type ShapeError struct {
	Tensor   string // Argument name (e.g., "input", "hidden", "cell")
	Axis     string // Axis name ("rank", "batch", "channels", "height", "width")
	Expected int
	Got      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %s %s: expected %d, got %d", e.Tensor, e.Axis, e.Expected, e.Got)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
