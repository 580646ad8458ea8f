package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Header limits. A cell checkpoint holds six parameters plus at most two
// optimizer buffers per parameter, so the tensor limits are generous.
const (
	MaxHeaderSize    = 16 * 1024 * 1024
	MaxTensorCount   = 4096
	MaxTensorNameLen = 256
)

// ValidationLevel selects which header checks the reader runs.
type ValidationLevel int

const (
	// ValidationStrict checks names, counts, bounds and overlaps, and the
	// data checksum when present. This is the zero value.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and counts only.
	ValidationNormal
	// ValidationNone trusts the file.
	ValidationNone
)

// forbiddenNameParts are rejected anywhere in a tensor name.
var forbiddenNameParts = []struct {
	part, reason string
}{
	{"..", "contains '..'"},
	{"/", "contains path separator '/'"},
	{"\\", "contains path separator '\\'"},
	{"\x00", "contains null byte"},
}

// ValidateTensorOffsets checks that every tensor region is non-negative,
// inside the data section and disjoint from the others.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if err := checkCount(len(tensors)); err != nil {
		return err
	}

	byOffset := slices.Clone(tensors)
	slices.SortFunc(byOffset, func(a, b TensorMeta) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	for i, t := range byOffset {
		end := t.Offset + t.Size
		switch {
		case t.Offset < 0 || t.Size < 0:
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		case end > dataSize:
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("region [%d, %d) exceeds data section of %d bytes", t.Offset, end, dataSize),
			}
		}

		if i+1 < len(byOffset) && end > byOffset[i+1].Offset {
			next := byOffset[i+1]
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  t.Name,
				Tensor2: next.Name,
				Details: fmt.Sprintf("regions [%d, %d) and [%d, %d) overlap",
					t.Offset, end, next.Offset, next.Offset+next.Size),
			}
		}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name[:32] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	for _, rule := range forbiddenNameParts {
		if strings.Contains(name, rule.part) {
			return &ValidationError{Type: "invalid_name", Tensor: name, Details: rule.reason}
		}
	}
	return nil
}

// ValidateHeader runs the checks selected by level over the parsed header.
func ValidateHeader(tensors []TensorMeta, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if err := checkCount(len(tensors)); err != nil {
		return err
	}
	for _, t := range tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
	}

	if level == ValidationStrict {
		return ValidateTensorOffsets(tensors, dataSize)
	}
	return nil
}

func checkCount(n int) error {
	if n > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", n, MaxTensorCount),
		}
	}
	return nil
}
