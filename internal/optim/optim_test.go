package optim_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convlstm/internal/autodiff"
	"github.com/born-ml/convlstm/internal/backend/cpu"
	"github.com/born-ml/convlstm/internal/nn"
	"github.com/born-ml/convlstm/internal/optim"
	"github.com/born-ml/convlstm/internal/tensor"
)

type adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// Helper to check float equality with tolerance.
func floatEqual(a, b, eps float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

func newParam(t *testing.T, name string, values ...float32) *nn.Parameter[adBackend] {
	t.Helper()
	x, err := tensor.FromSlice(values, tensor.Shape{len(values)}, autodiff.New(cpu.New()))
	require.NoError(t, err)
	return nn.NewParameter(name, x)
}

func gradOf(p *nn.Parameter[adBackend], values ...float32) map[*tensor.RawTensor]*tensor.RawTensor {
	grad := tensor.MustNewRaw(p.Shape(), tensor.Float32, tensor.CPU)
	copy(grad.AsFloat32(), values)
	return map[*tensor.RawTensor]*tensor.RawTensor{p.Tensor().Raw(): grad}
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	param := newParam(t, "x", 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter[adBackend]{param}, optim.SGDConfig{LR: 0.1})

	optimizer.Step(gradOf(param, 1.0))

	// x_new = 2.0 - 0.1 * 1.0
	if got := param.Tensor().Data()[0]; !floatEqual(got, 1.9, 1e-6) {
		t.Errorf("SGD update: got %f, want 1.9", got)
	}
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	param := newParam(t, "x", 1.0)
	optimizer := optim.NewSGD([]*nn.Parameter[adBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// v_1 = 1.0, x_1 = 0.9
	optimizer.Step(gradOf(param, 1.0))
	if got := param.Tensor().Data()[0]; !floatEqual(got, 0.9, 1e-6) {
		t.Errorf("SGD momentum step 1: got %f, want 0.9", got)
	}

	// v_2 = 0.9 * 1.0 + 1.0 = 1.9, x_2 = 0.9 - 0.19 = 0.71
	optimizer.Step(gradOf(param, 1.0))
	if got := param.Tensor().Data()[0]; !floatEqual(got, 0.71, 1e-5) {
		t.Errorf("SGD momentum step 2: got %f, want 0.71", got)
	}
}

// TestSGD_SkipsMissingGradients leaves parameters without a gradient untouched.
func TestSGD_SkipsMissingGradients(t *testing.T) {
	a := newParam(t, "a", 1.0)
	b := newParam(t, "b", 1.0)
	optimizer := optim.NewSGD([]*nn.Parameter[adBackend]{a, b}, optim.SGDConfig{LR: 0.5})

	optimizer.Step(gradOf(a, 1.0))

	assert.Equal(t, float32(0.5), a.Tensor().Data()[0])
	assert.Equal(t, float32(1.0), b.Tensor().Data()[0])
}

func TestSGD_GradientSizeMismatchPanics(t *testing.T) {
	param := newParam(t, "x", 1.0, 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter[adBackend]{param}, optim.SGDConfig{})

	grad := tensor.MustNewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	assert.Panics(t, func() {
		optimizer.Step(map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): grad})
	})
}

// TestZeroGrad tests ZeroGrad for both optimizers.
func TestZeroGrad(t *testing.T) {
	for name, build := range map[string]func([]*nn.Parameter[adBackend]) optim.Optimizer{
		"SGD":  func(p []*nn.Parameter[adBackend]) optim.Optimizer { return optim.NewSGD(p, optim.SGDConfig{}) },
		"Adam": func(p []*nn.Parameter[adBackend]) optim.Optimizer { return optim.NewAdam(p, optim.AdamConfig{}) },
	} {
		t.Run(name, func(t *testing.T) {
			param := newParam(t, "x", 1.0)
			grad, _ := tensor.FromSlice([]float32{5.0}, tensor.Shape{1}, param.Tensor().Backend())
			param.SetGrad(grad)

			build([]*nn.Parameter[adBackend]{param}).ZeroGrad()

			if param.Grad() != nil {
				t.Error("Grad should be nil after ZeroGrad")
			}
		})
	}
}

// TestGetSetLR tests defaults and the learning rate setter.
func TestGetSetLR(t *testing.T) {
	param := newParam(t, "x", 1.0)

	sgd := optim.NewSGD([]*nn.Parameter[adBackend]{param}, optim.SGDConfig{})
	assert.Equal(t, float32(0.01), sgd.GetLR())
	sgd.SetLR(0.001)
	assert.Equal(t, float32(0.001), sgd.GetLR())

	adam := optim.NewAdam([]*nn.Parameter[adBackend]{param}, optim.AdamConfig{})
	assert.Equal(t, float32(0.001), adam.GetLR())
	adam.SetLR(0.1)
	assert.Equal(t, float32(0.1), adam.GetLR())
}

// TestAdam_SimpleUpdate tests Adam optimizer update.
func TestAdam_SimpleUpdate(t *testing.T) {
	param := newParam(t, "x", 1.0)
	optimizer := optim.NewAdam([]*nn.Parameter[adBackend]{param}, optim.AdamConfig{
		LR:    0.001,
		Betas: [2]float32{0.9, 0.999},
		Eps:   1e-8,
	})

	optimizer.Step(gradOf(param, 1.0))

	// m_hat = v_hat = 1, so x_new = 1.0 - 0.001
	if got := param.Tensor().Data()[0]; !floatEqual(got, 0.999, 1e-5) {
		t.Errorf("Adam first step: got %f, want 0.999", got)
	}
}

// TestAdam_BiasCorrection checks the timestep and the lr-sized steps a
// constant gradient produces.
func TestAdam_BiasCorrection(t *testing.T) {
	param := newParam(t, "x", 1.0)
	optimizer := optim.NewAdam([]*nn.Parameter[adBackend]{param}, optim.AdamConfig{LR: 0.01})

	assert.Equal(t, 0, optimizer.GetTimestep())
	for i := 1; i <= 3; i++ {
		optimizer.Step(gradOf(param, 1.0))
		assert.Equal(t, i, optimizer.GetTimestep())
	}

	// With a constant gradient m_hat/sqrt(v_hat) = 1 at every step.
	if got := param.Tensor().Data()[0]; !floatEqual(got, 0.97, 1e-5) {
		t.Errorf("after 3 steps: got %f, want 0.97", got)
	}
}

// TestConvergence_SimpleQuadratic tests optimizer convergence on f(x) = x².
func TestConvergence_SimpleQuadratic(t *testing.T) {
	tests := []struct {
		name  string
		build func([]*nn.Parameter[adBackend]) optim.Optimizer
	}{
		{"SGD", func(p []*nn.Parameter[adBackend]) optim.Optimizer {
			return optim.NewSGD(p, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
		}},
		{"Adam", func(p []*nn.Parameter[adBackend]) optim.Optimizer {
			return optim.NewAdam(p, optim.AdamConfig{LR: 0.1, Betas: [2]float32{0.9, 0.999}, Eps: 1e-8})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := newParam(t, "x", 3.0)
			optimizer := tt.build([]*nn.Parameter[adBackend]{param})

			// df/dx = 2x
			for i := 0; i < 100; i++ {
				optimizer.Step(gradOf(param, 2*param.Tensor().Data()[0]))
			}

			if final := param.Tensor().Data()[0]; math.Abs(float64(final)) > 0.1 {
				t.Errorf("%s convergence: x = %f, expected close to 0", tt.name, final)
			}
		})
	}
}

// TestMultipleParameters tests optimizers with multiple parameters.
func TestMultipleParameters(t *testing.T) {
	param1 := newParam(t, "x1", 1.0, 2.0)
	param2 := newParam(t, "x2", 3.0)
	optimizer := optim.NewSGD([]*nn.Parameter[adBackend]{param1, param2}, optim.SGDConfig{LR: 0.1})

	grads := gradOf(param1, 1.0, 2.0)
	for k, v := range gradOf(param2, 0.5) {
		grads[k] = v
	}
	optimizer.Step(grads)

	p1 := param1.Tensor().Data()
	if !floatEqual(p1[0], 0.9, 1e-6) || !floatEqual(p1[1], 1.8, 1e-6) {
		t.Errorf("param1: got [%f, %f], want [0.9, 1.8]", p1[0], p1[1])
	}
	if p2 := param2.Tensor().Data()[0]; !floatEqual(p2, 2.95, 1e-6) {
		t.Errorf("param2: got %f, want 2.95", p2)
	}
}

// A restored optimizer continues exactly where the original left off.
func TestStateDict_Resume(t *testing.T) {
	tests := []struct {
		name  string
		build func([]*nn.Parameter[adBackend]) optim.Optimizer
	}{
		{"SGD", func(p []*nn.Parameter[adBackend]) optim.Optimizer {
			return optim.NewSGD(p, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
		}},
		{"Adam", func(p []*nn.Parameter[adBackend]) optim.Optimizer {
			return optim.NewAdam(p, optim.AdamConfig{LR: 0.1})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := newParam(t, "x", 1.0, -2.0)
			opt := tt.build([]*nn.Parameter[adBackend]{original})
			opt.Step(gradOf(original, 0.5, 1.0))
			opt.Step(gradOf(original, 0.25, -1.0))

			resumed := newParam(t, "x", original.Tensor().Data()...)
			resumedOpt := tt.build([]*nn.Parameter[adBackend]{resumed})
			require.NoError(t, resumedOpt.LoadStateDict(opt.StateDict()))

			opt.Step(gradOf(original, 1.0, 1.0))
			resumedOpt.Step(gradOf(resumed, 1.0, 1.0))

			assert.Equal(t, original.Tensor().Data(), resumed.Tensor().Data())
		})
	}
}

func TestLoadStateDict_Errors(t *testing.T) {
	param := newParam(t, "x", 1.0, 2.0)
	wrong := tensor.MustNewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	ok := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)

	sgd := optim.NewSGD([]*nn.Parameter[adBackend]{param}, optim.SGDConfig{Momentum: 0.9})
	assert.Error(t, sgd.LoadStateDict(map[string]*tensor.RawTensor{"velocity.0": wrong}))

	adam := optim.NewAdam([]*nn.Parameter[adBackend]{param}, optim.AdamConfig{})
	assert.Error(t, adam.LoadStateDict(map[string]*tensor.RawTensor{"m.0": ok}), "m without v")
	assert.Error(t, adam.LoadStateDict(map[string]*tensor.RawTensor{"m.0": wrong, "v.0": wrong}))

	badStep := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	assert.Error(t, adam.LoadStateDict(map[string]*tensor.RawTensor{"step": badStep}))
}

// Fitting the hidden output of a small cell to a fixed target lowers the loss.
func TestTrainConvLSTMCell(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(1))

	cell, err := nn.NewConvLSTMCell(nn.ConvLSTMConfig{
		InputShape:  [3]int{1, 4, 4},
		HiddenC:     2,
		KernelShape: [2]int{3, 3},
		NormGroups:  4,
	}, backend)
	require.NoError(t, err)
	cell.ResetParameters(rng)

	input := tensor.Randn[float32](tensor.Shape{2, 1, 4, 4}, rng, backend)
	target := tensor.Uniform[float32](tensor.Shape{2, 2, 4, 4}, -0.5, 0.5, rng, backend)
	criterion := nn.NewMSELoss(backend)

	for name, opt := range map[string]optim.Optimizer{
		"SGD":  optim.NewSGD(cell.Parameters(), optim.SGDConfig{LR: 0.05, Momentum: 0.9}),
		"Adam": optim.NewAdam(cell.Parameters(), optim.AdamConfig{LR: 0.01}),
	} {
		t.Run(name, func(t *testing.T) {
			cell.ResetParameters(rand.New(rand.NewSource(2)))
			tape := backend.Tape()

			var first, last float32
			for step := 0; step < 40; step++ {
				tape.Clear()
				tape.StartRecording()

				state, err := cell.InitialState(2)
				require.NoError(t, err)
				hidden, _, err := cell.Step(input, state)
				require.NoError(t, err)
				loss := criterion.Forward(hidden, target)

				grads := autodiff.Backward(loss, backend)
				tape.StopRecording()
				opt.Step(grads)

				if step == 0 {
					first = loss.Item()
				}
				last = loss.Item()
			}

			assert.Less(t, last, first, "loss should decrease: first %v, last %v", first, last)
		})
	}
}
