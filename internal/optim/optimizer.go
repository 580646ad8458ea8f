// Package optim implements optimization algorithms for training the cell.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers work on an explicit parameter list, such as
// ConvLSTMCell.Parameters(), and update the parameter buffers in place.
//
// Example usage:
//
//	optimizer := optim.NewAdam(cell.Parameters(), optim.AdamConfig{LR: 0.001})
//
//	for step := range steps {
//	    backend.Tape().Clear()
//	    backend.Tape().StartRecording()
//	    hidden, _, _ := cell.Step(frame, state)
//	    loss := mse.Forward(hidden, target)
//	    grads := autodiff.Backward(loss, backend)
//	    backend.Tape().StopRecording()
//
//	    optimizer.Step(grads)
//	}
package optim

import (
	"fmt"

	"github.com/born-ml/convlstm/internal/nn"
	"github.com/born-ml/convlstm/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// Takes a gradient map from Backward() and updates parameters in-place.
	// Parameters without an entry in grads are left unchanged.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate.
	SetLR(lr float32)

	// StateDict returns the optimizer buffers for checkpointing.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores buffers written by StateDict.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32 // Learning rate
}

// getGradient retrieves the float32 gradient data for a parameter.
//
// Returns nil if no gradient is found (parameter wasn't part of computation graph).
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	if param == nil {
		return nil
	}
	grad, ok := grads[param.Tensor().Raw()]
	if !ok {
		return nil
	}
	if grad.DType() != tensor.Float32 || grad.NumElements() != param.Tensor().NumElements() {
		panic(fmt.Sprintf("optim: gradient for %s has dtype %s and shape %v, want float32 %v",
			param.Name(), grad.DType(), grad.Shape(), param.Shape()))
	}
	return grad.AsFloat32()
}

// loadBuffer validates raw against param and returns a float32 copy.
func loadBuffer[B tensor.Backend](key string, raw *tensor.RawTensor, param *nn.Parameter[B]) ([]float32, error) {
	if !raw.Shape().Equal(param.Shape()) {
		return nil, fmt.Errorf("%s: shape mismatch for parameter %s: expected %v, got %v",
			key, param.Name(), param.Shape(), raw.Shape())
	}
	out := make([]float32, raw.NumElements())
	switch raw.DType() {
	case tensor.Float32:
		copy(out, raw.AsFloat32())
	case tensor.Float64:
		for i, v := range raw.AsFloat64() {
			out[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported dtype %s", key, raw.DType())
	}
	return out, nil
}

// bufferRaw wraps a float32 buffer as a RawTensor with the parameter's shape.
func bufferRaw(data []float32, shape tensor.Shape) *tensor.RawTensor {
	raw := tensor.MustNewRaw(shape, tensor.Float32, tensor.CPU)
	copy(raw.AsFloat32(), data)
	return raw
}
