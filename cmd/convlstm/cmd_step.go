package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/convlstm/backend/cpu"
	"github.com/born-ml/convlstm/nn"
	"github.com/born-ml/convlstm/tensor"
)

func newStepCmd() *cobra.Command {
	stepCmd := &cobra.Command{
		Use:   "step [CHECKPOINT]",
		Short: "Run a cell over a synthetic sequence and report state statistics",
		Long: `Run a cell over a synthetic moving-square sequence.

Without CHECKPOINT a freshly initialised cell is built from the flags.
With CHECKPOINT the configuration and parameters are read from the file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: StepHandler,
	}

	addCellFlags(stepCmd)
	stepCmd.Flags().Int("batch", 2, "Batch size")
	stepCmd.Flags().Int("frames", 4, "Number of time steps")

	return stepCmd
}

// StepHandler unrolls a cell and prints per-step hidden and cell statistics.
func StepHandler(cmd *cobra.Command, args []string) error {
	backend := newBackend()
	seed, _ := cmd.Flags().GetInt64("seed")
	rng := rand.New(rand.NewSource(seed))

	var cell *nn.ConvLSTMCell[*cpu.Backend]
	if len(args) == 1 {
		loaded, err := nn.LoadCell(args[0], backend)
		if err != nil {
			return err
		}
		cell = loaded
	} else {
		cfg, err := cellConfig(cmd)
		if err != nil {
			return err
		}
		if cell, err = nn.NewConvLSTMCell(cfg, backend); err != nil {
			return err
		}
		cell.ResetParameters(rng)
	}
	slog.Debug("cell ready", "cell", cell.String())

	batch, _ := cmd.Flags().GetInt("batch")
	numFrames, _ := cmd.Flags().GetInt("frames")
	if batch < 1 || numFrames < 1 {
		return fmt.Errorf("--batch and --frames must be positive, got %d and %d", batch, numFrames)
	}

	cfg := cell.Config()
	data := NewMovingSquares(cfg.InputShape)
	shape := tensor.Shape{batch, cfg.InputShape[0], cfg.InputShape[1], cfg.InputShape[2]}
	frames, err := Tensors(data.Sequence(rng, batch, numFrames), shape, backend)
	if err != nil {
		return err
	}

	state, err := cell.InitialState(batch)
	if err != nil {
		return err
	}

	var rows [][]string
	for t, frame := range frames {
		start := time.Now()
		hidden, next, err := cell.Step(frame, state)
		if err != nil {
			return fmt.Errorf("step %d: %w", t, err)
		}
		elapsed := time.Since(start)
		slog.Debug("step", "t", t, "elapsed", elapsed)

		rows = append(rows, append(append([]string{strconv.Itoa(t)},
			summarize(hidden.Data())...), summarize(next.Cell.Data())...))
		state = next
	}

	fmt.Fprintln(cmd.OutOrStdout(), cell.String())
	renderStats(cmd.OutOrStdout(), state.Hidden.Shape(), rows)
	return nil
}

// summarize returns mean, std, min and max of data formatted for display.
func summarize(data []float32) []string {
	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	return []string{
		strconv.FormatFloat(mean, 'f', 4, 64),
		strconv.FormatFloat(std, 'f', 4, 64),
		strconv.FormatFloat(floats.Min(values), 'f', 4, 64),
		strconv.FormatFloat(floats.Max(values), 'f', 4, 64),
	}
}

func renderStats(w io.Writer, shape tensor.Shape, rows [][]string) {
	fmt.Fprintf(w, "state shape %v\n", shape)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"T", "H MEAN", "H STD", "H MIN", "H MAX", "C MEAN", "C STD", "C MIN", "C MAX"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()
}
