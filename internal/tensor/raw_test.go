package tensor

import (
	"testing"
)

// RawTensor Tests

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if raw.NumElements() != 6 || raw.ByteSize() != 24 {
		t.Errorf("NumElements = %d, ByteSize = %d; want 6, 24", raw.NumElements(), raw.ByteSize())
	}
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Fatalf("element %d = %v, want zero fill", i, v)
		}
	}

	if _, err := NewRaw(Shape{3, 0}, Float32, CPU); err == nil {
		t.Error("NewRaw should reject zero dimensions")
	}

	scalar, err := NewRaw(Shape{}, Float64, CPU)
	if err != nil || scalar.NumElements() != 1 || scalar.ByteSize() != 8 {
		t.Errorf("scalar: %v, %d elements", err, scalar.NumElements())
	}
}

func TestRawTensorAsFloat32(t *testing.T) {
	raw := MustNewRaw(Shape{4, 4}, Float32, CPU)
	data := raw.AsFloat32()

	if len(data) != 16 {
		t.Errorf("AsFloat32 length = %d, want 16", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 42
	if raw.AsFloat32()[0] != 42 {
		t.Error("AsFloat32 should return zero-copy slice")
	}
}

func TestRawTensorClone(t *testing.T) {
	raw := MustNewRaw(Shape{2, 2}, Float64, CPU)
	raw.AsFloat64()[1] = 3.5

	clone := raw.Clone()
	if clone.AsFloat64()[1] != 3.5 || !clone.Shape().Equal(raw.Shape()) {
		t.Fatal("clone should copy data and shape")
	}
	if clone.SharesBuffer(raw) {
		t.Error("clone must not share the buffer")
	}

	clone.AsFloat64()[1] = 0
	if raw.AsFloat64()[1] != 3.5 {
		t.Error("writing the clone changed the original")
	}
}

func TestRawTensorView(t *testing.T) {
	raw := MustNewRaw(Shape{2, 6}, Float32, CPU)
	view := raw.View(Shape{3, 4})

	if !view.SharesBuffer(raw) {
		t.Error("view should share the buffer")
	}
	if got := view.Strides(); got[0] != 4 || got[1] != 1 {
		t.Errorf("view strides = %v, want [4 1]", got)
	}

	view.AsFloat32()[5] = 9
	if raw.AsFloat32()[5] != 9 {
		t.Error("write through view not visible in original")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("View with a different element count should panic")
		}
	}()
	raw.View(Shape{5})
}

func TestDataType(t *testing.T) {
	if Float32.Size() != 4 || Float64.Size() != 8 {
		t.Error("unexpected dtype sizes")
	}
	if Float32.String() != "float32" || Float64.String() != "float64" {
		t.Error("unexpected dtype names")
	}
	if DataTypeOf[float32]() != Float32 || DataTypeOf[float64]() != Float64 {
		t.Error("DataTypeOf mismatch")
	}
	if CPU.String() != "CPU" {
		t.Errorf("CPU.String() = %q", CPU.String())
	}
}
