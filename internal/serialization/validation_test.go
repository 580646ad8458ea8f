package serialization

import (
	"errors"
	"strings"
	"testing"
)

// TestValidateTensorOffsets covers overlap, bounds and negative checks.
func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantErr  error
	}{
		{
			name: "contiguous",
			tensors: []TensorMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 100, Size: 200},
			},
			dataSize: 300,
		},
		{
			name: "overlap by one byte",
			tensors: []TensorMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 99, Size: 100},
			},
			dataSize: 300,
			wantErr:  ErrOffsetOverlap,
		},
		{
			name: "beyond data section",
			tensors: []TensorMeta{
				{Name: "a", Offset: 100, Size: 200},
			},
			dataSize: 250,
			wantErr:  ErrOutOfBounds,
		},
		{
			name: "negative size",
			tensors: []TensorMeta{
				{Name: "a", Offset: 0, Size: -4},
			},
			dataSize: 250,
			wantErr:  ErrNegativeOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

// TestValidateTensorName rejects path-like and oversized names.
func TestValidateTensorName(t *testing.T) {
	badNames := []string{
		"../../../etc/passwd",
		"gate_conv/weight",
		"norm\\bias",
		"cell\x00init",
		"",
		strings.Repeat("a", MaxTensorNameLen+1),
	}
	for _, name := range badNames {
		if err := ValidateTensorName(name); err == nil {
			t.Errorf("Expected error for name %q, got nil", name)
		}
	}

	validNames := []string{"hidden_init", "cell_init", "gate_conv.weight", "norm.bias"}
	for _, name := range validNames {
		if err := ValidateTensorName(name); err != nil {
			t.Errorf("Expected no error for valid name %q, got: %v", name, err)
		}
	}
}

// TestValidateHeader_Levels checks that each level enables the right checks.
func TestValidateHeader_Levels(t *testing.T) {
	overlapping := []TensorMeta{
		{Name: "a", Offset: 0, Size: 100},
		{Name: "b", Offset: 50, Size: 100},
	}

	if err := ValidateHeader(overlapping, 200, ValidationStrict); !errors.Is(err, ErrOffsetOverlap) {
		t.Errorf("strict: error = %v, want ErrOffsetOverlap", err)
	}
	if err := ValidateHeader(overlapping, 200, ValidationNormal); err != nil {
		t.Errorf("normal: unexpected error %v", err)
	}

	badName := []TensorMeta{{Name: "../x", Offset: 0, Size: 4}}
	if err := ValidateHeader(badName, 4, ValidationNormal); !errors.Is(err, ErrInvalidTensorName) {
		t.Errorf("normal: error = %v, want ErrInvalidTensorName", err)
	}
	if err := ValidateHeader(badName, 4, ValidationNone); err != nil {
		t.Errorf("none: unexpected error %v", err)
	}
}

func FuzzValidateTensorName(f *testing.F) {
	f.Add("gate_conv.weight")
	f.Add("../etc")
	f.Fuzz(func(t *testing.T, name string) {
		err := ValidateTensorName(name)
		if err == nil && (strings.Contains(name, "..") || strings.Contains(name, "/")) {
			t.Errorf("name %q accepted", name)
		}
	})
}
