package main

import (
	"math/rand"

	"github.com/born-ml/convlstm/tensor"
)

// MovingSquares generates synthetic video: one bright square per sample
// moving with a constant velocity and wrapping at the frame border.
type MovingSquares struct {
	Channels, Height, Width int
	Side                    int // square side, at least 1
}

// NewMovingSquares creates a generator for frames of shape [C, H, W].
func NewMovingSquares(shape [3]int) *MovingSquares {
	side := max(min(shape[1], shape[2])/4, 1)
	return &MovingSquares{
		Channels: shape[0],
		Height:   shape[1],
		Width:    shape[2],
		Side:     side,
	}
}

// Sequence returns numFrames frames, each flattened as [batch, C, H, W].
// Channel c of a sample is lit with intensity (c+1)/C.
func (m *MovingSquares) Sequence(rng *rand.Rand, batch, numFrames int) [][]float32 {
	frameSize := m.Channels * m.Height * m.Width
	frames := make([][]float32, numFrames)
	for t := range frames {
		frames[t] = make([]float32, batch*frameSize)
	}

	for b := 0; b < batch; b++ {
		y0, x0 := rng.Intn(m.Height), rng.Intn(m.Width)
		dy, dx := rng.Intn(3)-1, rng.Intn(3)-1
		if dy == 0 && dx == 0 {
			dx = 1
		}

		for t := range frames {
			sample := frames[t][b*frameSize : (b+1)*frameSize]
			y := y0 + t*dy
			x := x0 + t*dx
			m.draw(sample, y, x)
		}
	}
	return frames
}

func (m *MovingSquares) draw(sample []float32, y, x int) {
	plane := m.Height * m.Width
	for c := 0; c < m.Channels; c++ {
		value := float32(c+1) / float32(m.Channels)
		for i := 0; i < m.Side; i++ {
			row := mod(y+i, m.Height)
			for j := 0; j < m.Side; j++ {
				col := mod(x+j, m.Width)
				sample[c*plane+row*m.Width+col] = value
			}
		}
	}
}

// Target tiles a flattened [batch, C, H, W] frame across hidden channels:
// channel k of the result is channel k%C of the frame.
func (m *MovingSquares) Target(frame []float32, batch, hidden int) []float32 {
	plane := m.Height * m.Width
	frameSize := m.Channels * plane
	out := make([]float32, batch*hidden*plane)
	for b := 0; b < batch; b++ {
		for k := 0; k < hidden; k++ {
			src := frame[b*frameSize+(k%m.Channels)*plane:]
			copy(out[(b*hidden+k)*plane:(b*hidden+k+1)*plane], src[:plane])
		}
	}
	return out
}

// Tensors wraps flattened frames as [batch, C, H, W] tensors on backend.
func Tensors[B tensor.Backend](frames [][]float32, shape tensor.Shape, backend B) ([]*tensor.Tensor[float32, B], error) {
	out := make([]*tensor.Tensor[float32, B], len(frames))
	for i, data := range frames {
		t, err := tensor.FromSlice(data, shape, backend)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
