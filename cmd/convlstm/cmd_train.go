package main

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/convlstm/autodiff"
	"github.com/born-ml/convlstm/backend/cpu"
	"github.com/born-ml/convlstm/internal/envconfig"
	"github.com/born-ml/convlstm/nn"
	"github.com/born-ml/convlstm/optim"
	"github.com/born-ml/convlstm/tensor"
)

type trainBackend = *autodiff.Backend[*cpu.Backend]

func newTrainCmd() *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a cell on synthetic moving squares",
		Long: `Train a cell to reproduce the next frame of a synthetic moving-square
sequence in every hidden channel, then write a SafeTensors checkpoint.

With --resume the configuration, parameters and optimizer state are read
from an existing checkpoint and the cell flags are ignored.`,
		Args: cobra.NoArgs,
		RunE: TrainHandler,
	}

	addCellFlags(trainCmd)
	trainCmd.Flags().Int("batch", 4, "Batch size")
	trainCmd.Flags().Int("frames", 4, "Sequence length per training example")
	trainCmd.Flags().Int("steps", 50, "Number of optimizer steps")
	trainCmd.Flags().String("optimizer", "adam", "Optimizer: adam or sgd")
	trainCmd.Flags().Float32("lr", float32(envconfig.LearningRate()), "Learning rate (0 = optimizer default)")
	trainCmd.Flags().Float32("momentum", 0.9, "SGD momentum")
	trainCmd.Flags().StringP("output", "o", "convlstm.safetensors", "Checkpoint path")
	trainCmd.Flags().String("resume", "", "Resume from this checkpoint")
	trainCmd.Flags().String("storage", cmp.Or(envconfig.Storage(), "f32"), "Checkpoint storage dtype: f32, f16 or f64")
	trainCmd.Flags().Int("log-every", 10, "Log the loss every N steps")

	return trainCmd
}

// TrainHandler runs the training loop and saves a checkpoint.
func TrainHandler(cmd *cobra.Command, _ []string) error {
	backend := autodiff.New(newBackend())

	seed, _ := cmd.Flags().GetInt64("seed")
	rng := rand.New(rand.NewSource(seed))

	steps, _ := cmd.Flags().GetInt("steps")
	batch, _ := cmd.Flags().GetInt("batch")
	numFrames, _ := cmd.Flags().GetInt("frames")
	logEvery, _ := cmd.Flags().GetInt("log-every")
	if steps < 1 || batch < 1 || numFrames < 1 {
		return errors.New("--steps, --batch and --frames must be positive")
	}

	storageFlag, _ := cmd.Flags().GetString("storage")
	storage, err := parseStorage(storageFlag)
	if err != nil {
		return err
	}

	resume, _ := cmd.Flags().GetString("resume")

	var cell *nn.ConvLSTMCell[trainBackend]
	if resume != "" {
		if cell, err = nn.LoadCell(resume, backend); err != nil {
			return err
		}
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

	optimizer, err := newOptimizer(cmd, cell)
	if err != nil {
		return err
	}

	var startStep int64
	if resume != "" {
		ckpt, err := nn.LoadCheckpoint(resume, cell, optimizer)
		if err != nil {
			return err
		}
		startStep = ckpt.Step
		slog.Info("resumed", "path", resume, "step", ckpt.Step, "loss", ckpt.Loss)
	}

	slog.Info("training", "cell", cell.String(), "steps", steps, "batch", batch, "frames", numFrames, "lr", optimizer.GetLR())

	cfg := cell.Config()
	data := NewMovingSquares(cfg.InputShape)
	frameShape := tensor.Shape{batch, cfg.InputShape[0], cfg.InputShape[1], cfg.InputShape[2]}
	targetShape := tensor.Shape{batch, cfg.HiddenC, cfg.InputShape[1], cfg.InputShape[2]}
	criterion := nn.NewMSELoss(backend)
	quiet := envconfig.NoProgress()

	start := time.Now()
	var loss float32
	for step := 1; step <= steps; step++ {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		// numFrames inputs plus the frame to predict
		sequence := data.Sequence(rng, batch, numFrames+1)
		frames, err := Tensors(sequence[:numFrames], frameShape, backend)
		if err != nil {
			return err
		}
		target, err := tensor.FromSlice(data.Target(sequence[numFrames], batch, cfg.HiddenC), targetShape, backend)
		if err != nil {
			return err
		}

		backend.Tape().Clear()
		backend.Tape().StartRecording()

		outputs, _, err := nn.Unroll(cell, frames, nil)
		if err != nil {
			backend.Tape().StopRecording()
			return err
		}
		lossTensor := criterion.Forward(outputs[len(outputs)-1], target)
		grads := autodiff.Backward(lossTensor, backend)
		backend.Tape().StopRecording()

		optimizer.Step(grads)
		loss = lossTensor.Item()

		if !quiet && logEvery > 0 && (step%logEvery == 0 || step == 1 || step == steps) {
			slog.Info("step", "step", startStep+int64(step), "loss", loss)
		}
	}
	backend.Tape().Clear()

	output, _ := cmd.Flags().GetString("output")
	ckpt := &nn.Checkpoint[trainBackend]{
		Cell:      cell,
		Optimizer: optimizer,
		Step:      startStep + int64(steps),
		Loss:      float64(loss),
	}
	if err := ckpt.Save(output, nn.SaveOptions{StorageDType: storage}); err != nil {
		return err
	}

	slog.Info("saved checkpoint", "path", output, "storage", storage, "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "step %d loss %.6f -> %s\n", ckpt.Step, loss, output)
	return nil
}

func newOptimizer(cmd *cobra.Command, cell *nn.ConvLSTMCell[trainBackend]) (optim.Optimizer, error) {
	name, _ := cmd.Flags().GetString("optimizer")
	lr, _ := cmd.Flags().GetFloat32("lr")
	if lr < 0 {
		return nil, errors.New("--lr must not be negative")
	}

	switch strings.ToLower(name) {
	case "adam":
		return optim.NewAdam(cell.Parameters(), optim.AdamConfig{LR: lr}), nil
	case "sgd":
		momentum, _ := cmd.Flags().GetFloat32("momentum")
		return optim.NewSGD(cell.Parameters(), optim.SGDConfig{LR: lr, Momentum: momentum}), nil
	default:
		return nil, fmt.Errorf("unsupported optimizer %q (want adam or sgd)", name)
	}
}
