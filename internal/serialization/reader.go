package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/born-ml/convlstm/internal/tensor"
)

// ReaderOptions configures the SafeTensors reader.
type ReaderOptions struct {
	Validation ValidationLevel // Header validation strictness (default: ValidationStrict)
}

// SafeTensorsReader holds a parsed SafeTensors file in memory.
type SafeTensorsReader struct {
	tensors  map[string]TensorMeta
	metadata map[string]string
	data     []byte
}

// NewSafeTensorsReader reads and validates a SafeTensors file.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ReadSafeTensors(bytes.NewReader(content), ReaderOptions{})
}

// ReadSafeTensors parses a SafeTensors stream.
func ReadSafeTensors(in io.Reader, opts ReaderOptions) (*SafeTensorsReader, error) {
	var headerSize uint64
	if err := binary.Read(in, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("%w: failed to read header size: %w", ErrInvalidHeader, err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(in, headerJSON); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", ErrInvalidHeader, err)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	r := &SafeTensorsReader{
		tensors:  make(map[string]TensorMeta),
		metadata: make(map[string]string),
		data:     data,
	}
	if err := r.parseHeader(headerJSON); err != nil {
		return nil, err
	}

	metas := slices.Collect(maps.Values(r.tensors))
	if err := ValidateHeader(metas, int64(len(data)), opts.Validation); err != nil {
		return nil, err
	}

	if digest, ok := r.metadata[ChecksumKey]; ok && opts.Validation != ValidationNone {
		if err := verifyHexChecksum(data, digest); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *SafeTensorsReader) parseHeader(headerJSON []byte) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	for name, entry := range entries {
		if name == metadataKey {
			if err := json.Unmarshal(entry, &r.metadata); err != nil {
				return fmt.Errorf("%w: metadata: %w", ErrInvalidHeader, err)
			}
			continue
		}

		var h SafeTensorHeader
		if err := json.Unmarshal(entry, &h); err != nil {
			return fmt.Errorf("%w: tensor %q: %w", ErrInvalidHeader, name, err)
		}

		elem, err := elementSize(h.DType)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}

		shape := make(tensor.Shape, len(h.Shape))
		numElements := int64(1)
		for i, dim := range h.Shape {
			if dim < 0 {
				return fmt.Errorf("%w: tensor %q: negative dimension %d", ErrInvalidHeader, name, dim)
			}
			shape[i] = int(dim)
			numElements *= dim
		}

		size := h.DataOffsets[1] - h.DataOffsets[0]
		if size != numElements*int64(elem) {
			return fmt.Errorf("%w: tensor %q: %d bytes for shape %v of %s",
				ErrInvalidHeader, name, size, shape, h.DType)
		}

		r.tensors[name] = TensorMeta{
			Name:   name,
			DType:  h.DType,
			Shape:  shape,
			Offset: h.DataOffsets[0],
			Size:   size,
		}
	}

	return nil
}

// Metadata returns the string metadata stored in the file.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns the stored tensor names in sorted order.
func (r *SafeTensorsReader) TensorNames() []string {
	return slices.Sorted(maps.Keys(r.tensors))
}

// TensorInfo returns metadata for a tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (*TensorMeta, error) {
	meta, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	return &meta, nil
}

// LoadTensor decodes a tensor into a new RawTensor of the requested dtype.
func (r *SafeTensorsReader) LoadTensor(name string, dtype tensor.DataType) (*tensor.RawTensor, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	raw, err := tensor.NewRaw(meta.Shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}

	src := r.data[meta.Offset : meta.Offset+meta.Size]
	if err := decodeTensor(raw, src, meta.DType); err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	return raw, nil
}

// ReadStateDict decodes every tensor into the requested dtype.
func (r *SafeTensorsReader) ReadStateDict(dtype tensor.DataType) (map[string]*tensor.RawTensor, error) {
	stateDict := make(map[string]*tensor.RawTensor, len(r.tensors))
	for name := range r.tensors {
		raw, err := r.LoadTensor(name, dtype)
		if err != nil {
			return nil, err
		}
		stateDict[name] = raw
	}
	return stateDict, nil
}
