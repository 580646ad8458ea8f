package tensor

import (
	"testing"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3, 4}, 24},
		{Shape{1, 32, 16, 16}, 8192},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{}).Validate(); err != nil {
		t.Errorf("scalar shape rejected: %v", err)
	}
	for _, s := range []Shape{{0}, {2, -1}, {3, 0, 2}} {
		if err := s.Validate(); err == nil {
			t.Errorf("%v should be invalid", s)
		}
	}
}

func TestShapeEqualAndClone(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	if !s.Equal(c) {
		t.Error("clone should equal original")
	}
	c[0] = 7
	if s[0] != 2 {
		t.Error("clone must not share memory")
	}
	if s.Equal(Shape{2, 3, 1}) {
		t.Error("shapes of different rank are not equal")
	}
}

func TestComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Fatalf("strides = %v, want %v", strides, want)
		}
	}
}

func TestNormalizeDim(t *testing.T) {
	if got := NormalizeDim(-1, 4); got != 3 {
		t.Errorf("NormalizeDim(-1, 4) = %d, want 3", got)
	}
	if got := NormalizeDim(1, 4); got != 1 {
		t.Errorf("NormalizeDim(1, 4) = %d, want 1", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("NormalizeDim(4, 4) should panic")
		}
	}()
	NormalizeDim(4, 4)
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{Shape{2, 8, 4, 4}, Shape{1, 8, 1, 1}, Shape{2, 8, 4, 4}, true, false},
		{Shape{5}, Shape{2, 5}, Shape{2, 5}, true, false},
		{Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		got, broadcast, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v) should fail", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v): %v", tt.a, tt.b, err)
			continue
		}
		if !got.Equal(tt.want) || broadcast != tt.broadcast {
			t.Errorf("BroadcastShapes(%v, %v) = %v, %v; want %v, %v", tt.a, tt.b, got, broadcast, tt.want, tt.broadcast)
		}
	}
}

func TestConv2DParams(t *testing.T) {
	tests := []struct {
		params    Conv2DParams
		h, w      int
		kh, kw    int
		wantH     int
		wantW     int
		wantValid bool
	}{
		{Conv2DParams{Stride: [2]int{1, 1}, Padding: [2]int{1, 1}}, 16, 16, 3, 3, 16, 16, true},
		{Conv2DParams{Stride: [2]int{1, 1}, Padding: [2]int{1, 2}}, 8, 10, 3, 5, 8, 10, true},
		{Conv2DParams{Stride: [2]int{1, 1}, Padding: [2]int{1, 1}}, 8, 8, 2, 2, 9, 9, true},
		{Conv2DParams{Stride: [2]int{2, 2}, Padding: [2]int{0, 0}}, 28, 28, 3, 3, 13, 13, true},
		{Conv2DParams{Stride: [2]int{0, 1}}, 8, 8, 3, 3, 0, 0, false},
		{Conv2DParams{Stride: [2]int{1, 1}, Padding: [2]int{0, -1}}, 8, 8, 3, 3, 0, 0, false},
	}

	for _, tt := range tests {
		err := tt.params.Validate()
		if (err == nil) != tt.wantValid {
			t.Errorf("%+v.Validate() = %v, want valid=%v", tt.params, err, tt.wantValid)
			continue
		}
		if !tt.wantValid {
			continue
		}
		h, w := tt.params.OutputSize(tt.h, tt.w, tt.kh, tt.kw)
		if h != tt.wantH || w != tt.wantW {
			t.Errorf("%+v.OutputSize(%d, %d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.params, tt.h, tt.w, tt.kh, tt.kw, h, w, tt.wantH, tt.wantW)
		}
	}
}
