package serialization

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/convlstm/internal/tensor"
)

func testStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()

	weight, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(weight.AsFloat32(), []float32{1, -2, 3.5, 0.25, -0.125, 6})

	bias, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(bias.AsFloat64(), []float64{0.1, 0.2, 0.3})

	return map[string]*tensor.RawTensor{
		"gate_conv.weight": weight,
		"gate_conv.bias":   bias,
	}
}

// TestSafeTensors_RoundTrip tests round-trip: write → read → verify.
func TestSafeTensors_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell.safetensors")
	stateDict := testStateDict(t)

	err := WriteSafeTensors(path, stateDict, map[string]string{"hidden_c": "32"})
	require.NoError(t, err)

	reader, err := NewSafeTensorsReader(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"gate_conv.bias", "gate_conv.weight"}, reader.TensorNames())
	assert.Equal(t, "32", reader.Metadata()["hidden_c"])
	assert.Len(t, reader.Metadata()[ChecksumKey], 64)

	info, err := reader.TensorInfo("gate_conv.bias")
	require.NoError(t, err)
	assert.Equal(t, DTypeF64, info.DType)

	weight, err := reader.LoadTensor("gate_conv.weight", tensor.Float32)
	require.NoError(t, err)
	assert.True(t, weight.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, stateDict["gate_conv.weight"].AsFloat32(), weight.AsFloat32())

	bias, err := reader.LoadTensor("gate_conv.bias", tensor.Float64)
	require.NoError(t, err)
	assert.Equal(t, stateDict["gate_conv.bias"].AsFloat64(), bias.AsFloat64())
}

// TestSafeTensors_F16Storage checks half-precision export and widening on load.
func TestSafeTensors_F16Storage(t *testing.T) {
	stateDict := testStateDict(t)

	var buf bytes.Buffer
	err := WriteTo(&buf, stateDict, nil, WriterOptions{StorageDType: DTypeF16})
	require.NoError(t, err)

	reader, err := ReadSafeTensors(&buf, ReaderOptions{})
	require.NoError(t, err)

	info, err := reader.TensorInfo("gate_conv.weight")
	require.NoError(t, err)
	assert.Equal(t, DTypeF16, info.DType)
	assert.Equal(t, int64(6*2), info.Size)

	loaded, err := reader.ReadStateDict(tensor.Float32)
	require.NoError(t, err)

	// These values are exactly representable in half precision.
	assert.Equal(t, stateDict["gate_conv.weight"].AsFloat32(), loaded["gate_conv.weight"].AsFloat32())

	for i, want := range stateDict["gate_conv.bias"].AsFloat64() {
		got := loaded["gate_conv.bias"].AsFloat32()[i]
		assert.Equal(t, float16.Fromfloat32(float32(want)).Float32(), got)
		assert.InDelta(t, want, float64(got), 1e-3)
	}
}

// TestSafeTensors_ConvertsDType loads F32 payloads as float64.
func TestSafeTensors_ConvertsDType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, testStateDict(t), nil, WriterOptions{StorageDType: DTypeF32}))

	reader, err := ReadSafeTensors(&buf, ReaderOptions{})
	require.NoError(t, err)

	weight, err := reader.LoadTensor("gate_conv.weight", tensor.Float64)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2, 3.5, 0.25, -0.125, 6}, weight.AsFloat64())
}

// TestSafeTensors_ChecksumMismatch flips one data byte.
func TestSafeTensors_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, testStateDict(t), nil, WriterOptions{}))

	content := buf.Bytes()
	content[len(content)-1] ^= 0xFF

	_, err := ReadSafeTensors(bytes.NewReader(content), ReaderOptions{})
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = ReadSafeTensors(bytes.NewReader(content), ReaderOptions{Validation: ValidationNone})
	assert.NoError(t, err)
}

func TestSafeTensors_TensorNotFound(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, testStateDict(t), nil, WriterOptions{}))

	reader, err := ReadSafeTensors(&buf, ReaderOptions{})
	require.NoError(t, err)

	_, err = reader.LoadTensor("norm.weight", tensor.Float32)
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestSafeTensors_InvalidInput(t *testing.T) {
	header := func(json string) []byte {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, uint64(len(json)))
		buf.WriteString(json)
		return buf.Bytes()
	}

	tests := []struct {
		name    string
		content []byte
		wantErr error
	}{
		{"truncated size", []byte{1, 2, 3}, ErrInvalidHeader},
		{"bad json", header("{not json"), ErrInvalidHeader},
		{"unsupported dtype", header(`{"x":{"dtype":"I8","shape":[1],"data_offsets":[0,1]}}`), ErrUnsupportedDType},
		{"size mismatch", header(`{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,4]}}`), ErrInvalidHeader},
		{"out of bounds", header(`{"x":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`), ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSafeTensors(bytes.NewReader(tt.content), ReaderOptions{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSafeTensors_HeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1))

	_, err := ReadSafeTensors(&buf, ReaderOptions{})
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestWriterOptions_InvalidStorage(t *testing.T) {
	_, err := NewSafeTensorsWriterWithOptions(filepath.Join(t.TempDir(), "x"), WriterOptions{StorageDType: "BF16"})
	assert.ErrorIs(t, err, ErrUnsupportedDType)
}
