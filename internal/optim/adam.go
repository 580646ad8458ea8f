package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/convlstm/internal/nn"
	"github.com/born-ml/convlstm/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	optimizer := optim.NewAdam(cell.Parameters(), optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float32{0.9, 0.999},
//	    Eps:   1e-8,
//	})
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int                             // Timestep for bias correction
	m      map[*nn.Parameter[B]][]float32 // First moment estimates
	v      map[*nn.Parameter[B]][]float32 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer, filling zero hyperparameters with defaults.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]][]float32),
		v:      make(map[*nn.Parameter[B]][]float32),
	}
}

// Step performs a single optimization step.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := 1 - math.Pow(float64(a.beta1), float64(a.t))
	biasCorrection2 := 1 - math.Pow(float64(a.beta2), float64(a.t))
	stepSize := float64(a.lr) / biasCorrection1

	for _, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		m, exists := a.m[param]
		if !exists {
			m = make([]float32, len(grad))
			a.m[param] = m
			a.v[param] = make([]float32, len(grad))
		}
		v := a.v[param]

		data := param.Tensor().Raw().AsFloat32()
		for i, g := range grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			denom := math.Sqrt(float64(v[i])/biasCorrection2) + float64(a.eps)
			data[i] -= float32(stepSize * float64(m[i]) / denom)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// StateDict returns the optimizer state for serialization.
//
// State keys: "m.{i}", "v.{i}" for parameter i, and "step" (0-D).
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)

	step := tensor.MustNewRaw(tensor.Shape{}, tensor.Float64, tensor.CPU)
	step.AsFloat64()[0] = float64(a.t)
	stateDict["step"] = step

	for i, param := range a.params {
		m, exists := a.m[param]
		if !exists {
			continue
		}
		stateDict[fmt.Sprintf("m.%d", i)] = bufferRaw(m, param.Shape())
		stateDict[fmt.Sprintf("v.%d", i)] = bufferRaw(a.v[param], param.Shape())
	}
	return stateDict
}

// LoadStateDict restores moment buffers and the timestep.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	t := 0
	if step, ok := stateDict["step"]; ok {
		if step.NumElements() != 1 {
			return fmt.Errorf("step: expected a single value, got shape %v", step.Shape())
		}
		switch step.DType() {
		case tensor.Float64:
			t = int(step.AsFloat64()[0])
		case tensor.Float32:
			t = int(step.AsFloat32()[0])
		}
	}

	ms := make(map[*nn.Parameter[B]][]float32)
	vs := make(map[*nn.Parameter[B]][]float32)
	for i, param := range a.params {
		mKey, vKey := fmt.Sprintf("m.%d", i), fmt.Sprintf("v.%d", i)
		mRaw, hasM := stateDict[mKey]
		vRaw, hasV := stateDict[vKey]
		if !hasM && !hasV {
			continue
		}
		if hasM != hasV {
			return fmt.Errorf("parameter %d: %s and %s must be stored together", i, mKey, vKey)
		}

		m, err := loadBuffer(mKey, mRaw, param)
		if err != nil {
			return err
		}
		v, err := loadBuffer(vKey, vRaw, param)
		if err != nil {
			return err
		}
		ms[param], vs[param] = m, v
	}

	a.t, a.m, a.v = t, ms, vs
	return nil
}
