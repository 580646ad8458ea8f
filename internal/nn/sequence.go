package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/convlstm/internal/tensor"
)

// Unroll steps cell over frames in order and returns the hidden output of
// every step along with the final state. A nil initial state starts from
// cell.InitialState for the batch size of the first frame.
func Unroll[B tensor.Backend](
	cell *ConvLSTMCell[B],
	frames []*tensor.Tensor[float32, B],
	initial *State[B],
) ([]*tensor.Tensor[float32, B], State[B], error) {
	if len(frames) == 0 {
		return nil, State[B]{}, errors.New("unroll: no frames")
	}

	var state State[B]
	if initial != nil {
		state = *initial
	} else {
		if frames[0] == nil || len(frames[0].Shape()) == 0 {
			return nil, State[B]{}, fmt.Errorf("unroll: %w: frame 0 has no batch axis", ErrShapeMismatch)
		}
		var err error
		if state, err = cell.InitialState(frames[0].Shape()[0]); err != nil {
			return nil, State[B]{}, fmt.Errorf("unroll: %w", err)
		}
	}

	outputs := make([]*tensor.Tensor[float32, B], len(frames))
	for t, frame := range frames {
		hidden, next, err := cell.Step(frame, state)
		if err != nil {
			return nil, State[B]{}, fmt.Errorf("unroll: step %d: %w", t, err)
		}
		outputs[t] = hidden
		state = next
	}
	return outputs, state, nil
}
