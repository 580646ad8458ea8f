package serialization

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/convlstm/internal/tensor"
)

// SafeTensors dtype names.
const (
	DTypeF16 = "F16"
	DTypeF32 = "F32"
	DTypeF64 = "F64"
)

const metadataKey = "__metadata__"

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// TensorMeta describes one stored tensor.
type TensorMeta struct {
	Name   string // Tensor name (e.g., "gate_conv.weight")
	DType  string // SafeTensors dtype (e.g., "F32")
	Shape  []int  // Tensor shape
	Offset int64  // Offset in the data section
	Size   int64  // Size in bytes
}

// dtypeToSafeTensors converts tensor.DataType to SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return DTypeF32, nil
	case tensor.Float64:
		return DTypeF64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

// elementSize returns the byte width of a SafeTensors dtype.
func elementSize(dtype string) (int, error) {
	switch dtype {
	case DTypeF16:
		return 2, nil
	case DTypeF32:
		return 4, nil
	case DTypeF64:
		return 8, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDType, dtype)
	}
}

// encodeTensor converts raw into little-endian bytes of the given storage dtype.
func encodeTensor(raw *tensor.RawTensor, dtype string) ([]byte, error) {
	size, err := elementSize(dtype)
	if err != nil {
		return nil, err
	}

	values := rawAsFloat64(raw)
	out := make([]byte, len(values)*size)
	for i, v := range values {
		switch dtype {
		case DTypeF16:
			binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(float32(v)).Bits())
		case DTypeF32:
			binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
		case DTypeF64:
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
		}
	}
	return out, nil
}

// decodeTensor fills dst from little-endian src bytes stored as dtype.
func decodeTensor(dst *tensor.RawTensor, src []byte, dtype string) error {
	switch dst.DType() {
	case tensor.Float32:
		out := dst.AsFloat32()
		for i := range out {
			out[i] = float32(readElem(src, i, dtype))
		}
	case tensor.Float64:
		out := dst.AsFloat64()
		for i := range out {
			out[i] = readElem(src, i, dtype)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDType, dst.DType())
	}
	return nil
}

func readElem(src []byte, i int, dtype string) float64 {
	switch dtype {
	case DTypeF16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(src[2*i:])).Float32())
	case DTypeF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:])))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(src[8*i:]))
	}
}

func rawAsFloat64(raw *tensor.RawTensor) []float64 {
	switch raw.DType() {
	case tensor.Float32:
		src := raw.AsFloat32()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	default:
		return raw.AsFloat64()
	}
}
