package cpu

import (
	"testing"

	"github.com/born-ml/convlstm/internal/tensor"
)

func TestSumDim_1D(t *testing.T) {
	backend := New()

	x, _ := tensor.NewRaw(tensor.Shape{4}, tensor.Float32, backend.Device())
	copy(x.AsFloat32(), []float32{1, 2, 3, 4})

	result := backend.SumDim(x, 0, true)
	if !result.Shape().Equal(tensor.Shape{1}) {
		t.Errorf("Expected shape [1], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat32()[0])
	}

	result = backend.SumDim(x, 0, false)
	if len(result.Shape()) != 0 {
		t.Errorf("Expected shape [], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat32()[0])
	}
}

func TestSumDim_3D_Middle(t *testing.T) {
	backend := New()

	// [2, 3, 2], values 1..12
	x, _ := tensor.NewRaw(tensor.Shape{2, 3, 2}, tensor.Float64, backend.Device())
	for i := range x.AsFloat64() {
		x.AsFloat64()[i] = float64(i + 1)
	}

	result := backend.SumDim(x, 1, false)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2 2], got %v", result.Shape())
	}
	expected := []float64{1 + 3 + 5, 2 + 4 + 6, 7 + 9 + 11, 8 + 10 + 12}
	for i, exp := range expected {
		if result.AsFloat64()[i] != exp {
			t.Errorf("result[%d]: expected %v, got %v", i, exp, result.AsFloat64()[i])
		}
	}
}

func TestMeanDim_LastDim(t *testing.T) {
	backend := New()

	x, _ := tensor.NewRaw(tensor.Shape{2, 4}, tensor.Float32, backend.Device())
	copy(x.AsFloat32(), []float32{1, 2, 3, 4, 10, 20, 30, 40})

	result := backend.MeanDim(x, -1, true)
	if !result.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("Expected shape [2 1], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 2.5 || result.AsFloat32()[1] != 25 {
		t.Errorf("Expected [2.5 25], got %v", result.AsFloat32())
	}
}

func TestSum(t *testing.T) {
	backend := New()

	x, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, backend.Device())
	copy(x.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})

	result := backend.Sum(x)
	if len(result.Shape()) != 0 {
		t.Errorf("Expected scalar shape, got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 21 {
		t.Errorf("Expected 21, got %v", result.AsFloat32()[0])
	}
}

func TestSumDim_InvalidDim(t *testing.T) {
	backend := New()
	x, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, backend.Device())

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for out-of-range dimension")
		}
	}()
	backend.SumDim(x, 2, false)
}
