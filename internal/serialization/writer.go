package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/born-ml/convlstm/internal/tensor"
)

// WriterOptions configures how tensors are stored.
type WriterOptions struct {
	// StorageDType is the on-disk dtype ("F16", "F32" or "F64").
	// Empty keeps each tensor's own dtype.
	StorageDType string
}

// SafeTensorsWriter writes state dictionaries in SafeTensors format.
type SafeTensorsWriter struct {
	file   *os.File
	opts   WriterOptions
	closed bool
}

// NewSafeTensorsWriter creates a new SafeTensors file writer.
func NewSafeTensorsWriter(path string) (*SafeTensorsWriter, error) {
	return NewSafeTensorsWriterWithOptions(path, WriterOptions{})
}

// NewSafeTensorsWriterWithOptions creates a SafeTensors file writer with custom options.
func NewSafeTensorsWriterWithOptions(path string, opts WriterOptions) (*SafeTensorsWriter, error) {
	if opts.StorageDType != "" {
		if _, err := elementSize(opts.StorageDType); err != nil {
			return nil, err
		}
	}

	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &SafeTensorsWriter{file: file, opts: opts}, nil
}

// WriteSafeTensors writes tensors to a SafeTensors file in their own dtype.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	writer, err := NewSafeTensorsWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return writer.WriteStateDict(tensors, metadata)
}

// WriteStateDict writes a state dictionary to the SafeTensors file.
func (w *SafeTensorsWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	return WriteTo(w.file, stateDict, metadata, w.opts)
}

// Close closes the writer and the underlying file.
func (w *SafeTensorsWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo encodes a state dictionary to an io.Writer.
//
// Tensors are written in alphabetical order by name. The SHA-256 of the
// data section is added to the metadata under ChecksumKey.
func WriteTo(out io.Writer, stateDict map[string]*tensor.RawTensor, metadata map[string]string, opts WriterOptions) error {
	names := slices.Sorted(maps.Keys(stateDict))

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	var offset int64

	for _, name := range names {
		if err := ValidateTensorName(name); err != nil {
			return err
		}

		raw := stateDict[name]
		dtype := opts.StorageDType
		if dtype == "" {
			var err error
			if dtype, err = dtypeToSafeTensors(raw.DType()); err != nil {
				return fmt.Errorf("tensor %s: %w", name, err)
			}
		}

		encoded, err := encodeTensor(raw, dtype)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}

		shape := raw.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}

		size := int64(len(encoded))
		header[name] = SafeTensorHeader{
			DType:       dtype,
			Shape:       shapeInt64,
			DataOffsets: [2]int64{offset, offset + size},
		}
		data.Write(encoded)
		offset += size
	}

	meta := make(map[string]string, len(metadata)+1)
	maps.Copy(meta, metadata)
	sum := ComputeChecksum(data.Bytes())
	meta[ChecksumKey] = hex.EncodeToString(sum[:])
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(out, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := out.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := out.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}
