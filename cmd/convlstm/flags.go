package main

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/convlstm/internal/envconfig"
	"github.com/born-ml/convlstm/nn"
)

// addCellFlags registers the flags that describe a cell configuration.
// Defaults come from CONVLSTM_* variables when set.
func addCellFlags(cmd *cobra.Command) {
	cmd.Flags().String("input-shape", cmp.Or(envconfig.InputShape(), "4,16,16"), "Input frame shape as C,H,W")
	cmd.Flags().Int("hidden", envconfig.HiddenChannels(), "Hidden and cell state channels")
	cmd.Flags().String("kernel", cmp.Or(envconfig.Kernel(), "3,3"), "Gate convolution kernel as KH,KW")
	cmd.Flags().Int("groups", envconfig.NormGroups(), "Group norm groups (0 = 128)")
	cmd.Flags().Float32("epsilon", 0, "Group norm epsilon (0 = 1e-5)")
	cmd.Flags().Int64("seed", envconfig.Seed(), "Random seed for parameters and data")
}

// cellConfig builds a configuration from the flags registered by addCellFlags.
func cellConfig(cmd *cobra.Command) (nn.ConvLSTMConfig, error) {
	var cfg nn.ConvLSTMConfig

	shape, _ := cmd.Flags().GetString("input-shape")
	input, err := parseDims(shape, 3)
	if err != nil {
		return cfg, fmt.Errorf("--input-shape: %w", err)
	}
	kernelFlag, _ := cmd.Flags().GetString("kernel")
	kernel, err := parseDims(kernelFlag, 2)
	if err != nil {
		return cfg, fmt.Errorf("--kernel: %w", err)
	}

	copy(cfg.InputShape[:], input)
	copy(cfg.KernelShape[:], kernel)
	cfg.HiddenC, _ = cmd.Flags().GetInt("hidden")
	cfg.NormGroups, _ = cmd.Flags().GetInt("groups")
	cfg.NormEpsilon, _ = cmd.Flags().GetFloat32("epsilon")

	return cfg, cfg.Validate()
}

// parseDims parses exactly n comma separated integers.
func parseDims(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated values, got %q", n, s)
	}

	dims := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid dimension %q: %w", p, err)
		}
		dims[i] = v
	}
	return dims, nil
}

// parseStorage maps a user supplied dtype name to a checkpoint storage dtype.
func parseStorage(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "f32", "float32":
		return nn.StorageF32, nil
	case "f16", "float16", "half":
		return nn.StorageF16, nil
	case "f64", "float64":
		return nn.StorageF64, nil
	default:
		return "", fmt.Errorf("unsupported storage dtype %q (want f32, f16 or f64)", s)
	}
}
