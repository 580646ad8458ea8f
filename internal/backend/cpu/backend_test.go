package cpu

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convlstm/internal/tensor"
)

func raw32(t *testing.T, shape tensor.Shape, data ...float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(r.AsFloat32(), data)
	return r
}

func TestCPUBackend_Metadata(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestCPUBackend_Add(t *testing.T) {
	backend := New()
	a := raw32(t, tensor.Shape{2, 2}, 1, 2, 3, 4)
	b := raw32(t, tensor.Shape{2, 2}, 10, 20, 30, 40)

	result := backend.Add(a, b)
	assert.Equal(t, []float32{11, 22, 33, 44}, result.AsFloat32())
}

func TestCPUBackend_SubMul(t *testing.T) {
	backend := New()
	a := raw32(t, tensor.Shape{3}, 5, 6, 7)
	b := raw32(t, tensor.Shape{3}, 1, 2, 3)

	assert.Equal(t, []float32{4, 4, 4}, backend.Sub(a, b).AsFloat32())
	assert.Equal(t, []float32{5, 12, 21}, backend.Mul(a, b).AsFloat32())
}

// TestCPUBackend_OperandsNotModified guards against writing results into inputs.
func TestCPUBackend_OperandsNotModified(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{3}, 1, 2, 3)

	sq := backend.Mul(x, x)
	sum := backend.Add(sq, x)

	assert.Equal(t, []float32{1, 2, 3}, x.AsFloat32())
	assert.Equal(t, []float32{1, 4, 9}, sq.AsFloat32())
	assert.Equal(t, []float32{2, 6, 12}, sum.AsFloat32())
	assert.False(t, sq.SharesBuffer(x))
}

func TestCPUBackend_BroadcastChannel(t *testing.T) {
	backend := New()
	// [1, 2, 1, 1] per-channel scale over [2, 2, 1, 2]
	x := raw32(t, tensor.Shape{2, 2, 1, 2}, 1, 1, 1, 1, 2, 2, 2, 2)
	scale := raw32(t, tensor.Shape{1, 2, 1, 1}, 10, 100)

	got := backend.Mul(x, scale)
	require.Equal(t, tensor.Shape{2, 2, 1, 2}, got.Shape())
	assert.Equal(t, []float32{10, 10, 100, 100, 20, 20, 200, 200}, got.AsFloat32())

	got = backend.Add(scale, x)
	assert.Equal(t, []float32{11, 11, 101, 101, 12, 12, 102, 102}, got.AsFloat32())
}

func TestCPUBackend_BroadcastIncompatible(t *testing.T) {
	backend := New()
	a := raw32(t, tensor.Shape{3, 4})
	b := raw32(t, tensor.Shape{3, 5})
	assert.Panics(t, func() { backend.Add(a, b) })
}

func TestCPUBackend_Scalar(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{3}, 1, 2, 3)

	assert.Equal(t, []float32{2, 4, 6}, backend.MulScalar(x, float32(2)).AsFloat32())
	assert.Equal(t, []float32{1.5, 2.5, 3.5}, backend.AddScalar(x, 0.5).AsFloat32())
	assert.Equal(t, []float32{-1, -2, -3}, backend.MulScalar(x, -1).AsFloat32())
	assert.Panics(t, func() { backend.AddScalar(x, "1") })
}

func TestCPUBackend_Activations(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{5}, -100, -1, 0, 1, 100)

	sig := backend.Sigmoid(x).AsFloat32()
	want := []float32{0, float32(1 / (1 + math.E)), 0.5, float32(1 / (1 + math.Exp(-1))), 1}
	if diff := cmp.Diff(want, sig, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("sigmoid mismatch (-want +got):\n%s", diff)
	}

	th := backend.Tanh(x).AsFloat32()
	wantTanh := []float32{-1, float32(math.Tanh(-1)), 0, float32(math.Tanh(1)), 1}
	if diff := cmp.Diff(wantTanh, th, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("tanh mismatch (-want +got):\n%s", diff)
	}

	for _, v := range sig {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestCPUBackend_Rsqrt(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{3}, 1, 4, 0.25)
	assert.Equal(t, []float32{1, 0.5, 2}, backend.Rsqrt(x).AsFloat32())
}

func TestCPUBackend_ReshapeIsView(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	y := backend.Reshape(x, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, y.Shape())
	assert.True(t, y.SharesBuffer(x))
	assert.Equal(t, x.AsFloat32(), y.AsFloat32())

	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{4}) })
}

func TestCPUBackend_CatChunkRoundTrip(t *testing.T) {
	backend := New()
	// [1, 1, 2, 2] and [1, 2, 2, 2] along channels.
	a := raw32(t, tensor.Shape{1, 1, 2, 2}, 1, 2, 3, 4)
	b := raw32(t, tensor.Shape{1, 2, 2, 2}, 5, 6, 7, 8, 9, 10, 11, 12)

	c := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	require.Equal(t, tensor.Shape{1, 3, 2, 2}, c.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, c.AsFloat32())

	parts := backend.Chunk(c, 3, 1)
	require.Len(t, parts, 3)
	assert.Equal(t, []float32{1, 2, 3, 4}, parts[0].AsFloat32())
	assert.Equal(t, []float32{5, 6, 7, 8}, parts[1].AsFloat32())
	assert.Equal(t, []float32{9, 10, 11, 12}, parts[2].AsFloat32())
}

func TestCPUBackend_CatBatched(t *testing.T) {
	backend := New()
	// Batch 2: channel blocks must interleave per sample.
	a := raw32(t, tensor.Shape{2, 1, 1, 2}, 1, 2, 3, 4)
	b := raw32(t, tensor.Shape{2, 1, 1, 2}, 10, 20, 30, 40)

	c := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	assert.Equal(t, []float32{1, 2, 10, 20, 3, 4, 30, 40}, c.AsFloat32())

	parts := backend.Chunk(c, 2, -3)
	assert.Equal(t, a.AsFloat32(), parts[0].AsFloat32())
	assert.Equal(t, b.AsFloat32(), parts[1].AsFloat32())
}

func TestCPUBackend_ChunkInvalid(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{1, 6})
	assert.PanicsWithValue(t, "chunk: dimension 1 size 6 not divisible by 4", func() { backend.Chunk(x, 4, 1) })
	assert.Panics(t, func() { backend.Chunk(x, 0, 1) })
	assert.Panics(t, func() { backend.Cat(nil, 0) })
}

func TestCPUBackend_Expand(t *testing.T) {
	backend := New()
	x := raw32(t, tensor.Shape{1, 2, 1, 1}, 3, 4)

	y := backend.Expand(x, tensor.Shape{2, 2, 1, 2})
	assert.Equal(t, []float32{3, 3, 4, 4, 3, 3, 4, 4}, y.AsFloat32())
	assert.Panics(t, func() { backend.Expand(x, tensor.Shape{1, 3, 1, 1}) })
}

func TestCPUBackend_DTypeMismatch(t *testing.T) {
	backend := New()
	a := raw32(t, tensor.Shape{2})
	b := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	assert.PanicsWithValue(t, "add: dtype mismatch: float32 vs float64", func() { backend.Add(a, b) })
}
