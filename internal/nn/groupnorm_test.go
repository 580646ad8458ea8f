package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/convlstm/internal/autodiff"
	"github.com/born-ml/convlstm/internal/backend/cpu"
	"github.com/born-ml/convlstm/internal/tensor"
)

// TestGroupNorm_Statistics checks zero mean and unit variance per (sample, group).
func TestGroupNorm_Statistics(t *testing.T) {
	backend := cpu.New()
	const n, c, h, w, groups = 2, 6, 3, 4, 3

	x := tensor.Randn[float32](tensor.Shape{n, c, h, w}, rand.New(rand.NewSource(3)), backend).MulScalar(5).AddScalar(2)
	out := NewGroupNorm(groups, c, 1e-5, backend).Forward(x)

	if !out.Shape().Equal(x.Shape()) {
		t.Fatalf("shape %v, want %v", out.Shape(), x.Shape())
	}

	data := out.Data()
	groupSize := c / groups * h * w
	for g := 0; g < n*groups; g++ {
		var sum, sumSq float64
		for _, v := range data[g*groupSize : (g+1)*groupSize] {
			sum += float64(v)
			sumSq += float64(v) * float64(v)
		}
		mean := sum / float64(groupSize)
		variance := sumSq/float64(groupSize) - mean*mean
		if math.Abs(mean) > 1e-4 {
			t.Errorf("group %d: mean %v, want 0", g, mean)
		}
		if math.Abs(variance-1) > 1e-3 {
			t.Errorf("group %d: variance %v, want 1", g, variance)
		}
	}
}

// TestGroupNorm_Affine checks per-channel gamma and beta.
func TestGroupNorm_Affine(t *testing.T) {
	backend := cpu.New()
	norm := NewGroupNorm(1, 2, 1e-5, backend)
	copy(norm.Gamma.Tensor().Data(), []float32{2, 3})
	copy(norm.Beta.Tensor().Data(), []float32{10, 20})

	// One group over [-1, 1, -1, 1] normalizes to itself (mean 0, var 1).
	x, _ := tensor.FromSlice([]float32{-1, 1, -1, 1}, tensor.Shape{1, 2, 1, 2}, backend)
	out := norm.Forward(x).Data()

	expected := []float32{8, 12, 17, 23}
	for i, exp := range expected {
		if math.Abs(float64(out[i]-exp)) > 1e-3 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], exp)
		}
	}
}

// TestGroupNorm_ConstantGroupGivesBeta covers the all-equal (e.g. all-zero) group.
func TestGroupNorm_ConstantGroupGivesBeta(t *testing.T) {
	backend := cpu.New()
	norm := NewGroupNorm(2, 4, 1e-5, backend)
	copy(norm.Beta.Tensor().Data(), []float32{0, 0, 0.5, 0.5})

	x := tensor.Full[float32](tensor.Shape{1, 4, 2, 2}, 7, backend)
	out := norm.Forward(x).Data()

	for i, v := range out {
		want := float32(0)
		if i >= 8 {
			want = 0.5
		}
		if v != want {
			t.Errorf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

// TestGroupNorm_Gradients checks that gamma, beta and the input receive gradients.
func TestGroupNorm_Gradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	norm := NewGroupNorm(2, 4, 1e-5, backend)

	backend.Tape().StartRecording()
	x := tensor.Randn[float32](tensor.Shape{2, 4, 3, 3}, rand.New(rand.NewSource(5)), backend)
	loss := norm.Forward(x).Sum()
	grads := autodiff.Backward(loss, backend)

	// d(sum)/d(beta_c) = N*H*W
	for i, g := range grads[norm.Beta.Tensor().Raw()].AsFloat32() {
		if g != 18 {
			t.Errorf("beta grad[%d] = %v, want 18", i, g)
		}
	}
	// sum of normalized values per channel group is ~0, so d/dx of the sum is ~0.
	for i, g := range grads[x.Raw()].AsFloat32() {
		if math.Abs(float64(g)) > 1e-3 {
			t.Fatalf("input grad[%d] = %v, want ~0", i, g)
		}
	}
	if _, ok := grads[norm.Gamma.Tensor().Raw()]; !ok {
		t.Error("gamma received no gradient")
	}
}

func TestGroupNorm_IndivisiblePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for 8 channels in 128 groups")
		}
	}()
	NewGroupNorm(128, 8, 1e-5, cpu.New())
}
