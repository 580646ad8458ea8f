package main

import (
	"cmp"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/convlstm/backend/cpu"
	"github.com/born-ml/convlstm/internal/envconfig"
	"github.com/born-ml/convlstm/nn"
)

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export SRC DST",
		Short: "Write the cell parameters of a checkpoint without optimizer state",
		Long: `Write the cell parameters of SRC to DST, dropping optimizer buffers.
Use --storage f16 for a half precision copy.`,
		Args: cobra.ExactArgs(2),
		RunE: ExportHandler,
	}

	exportCmd.Flags().String("storage", cmp.Or(envconfig.Storage(), "f32"), "Storage dtype: f32, f16 or f64")

	return exportCmd
}

// ExportHandler re-encodes a checkpoint's cell parameters.
func ExportHandler(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]

	storageFlag, _ := cmd.Flags().GetString("storage")
	storage, err := parseStorage(storageFlag)
	if err != nil {
		return err
	}

	backend := newBackend()
	cell, err := nn.LoadCell(src, backend)
	if err != nil {
		return err
	}
	source, err := nn.LoadCheckpoint(src, cell, nil)
	if err != nil {
		return err
	}

	meta := make(map[string]string, len(source.Metadata))
	for k, v := range source.Metadata {
		if k != nn.MetaLR {
			meta[k] = v
		}
	}

	ckpt := &nn.Checkpoint[*cpu.Backend]{
		Cell:      cell,
		Step:      source.Step,
		Loss:      source.Loss,
		Metadata:  meta,
		CreatedAt: source.CreatedAt,
	}
	if err := ckpt.Save(dst, nn.SaveOptions{StorageDType: storage}); err != nil {
		return err
	}

	slog.Debug("exported", "src", src, "dst", dst, "storage", storage)
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s -> %s (%s)\n", src, dst, storage)
	return nil
}
