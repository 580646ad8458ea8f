package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/convlstm/internal/serialization"
	"github.com/born-ml/convlstm/nn"
)

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect CHECKPOINT",
		Short: "Show the configuration and tensors stored in a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}

	inspectCmd.Flags().Bool("metadata", false, "Also print every metadata entry")

	return inspectCmd
}

// InspectHandler prints a checkpoint summary.
func InspectHandler(cmd *cobra.Command, args []string) error {
	reader, err := serialization.NewSafeTensorsReader(args[0])
	if err != nil {
		return err
	}

	meta := reader.Metadata()
	cfg, err := nn.ConfigFromMetadata(meta)
	if err != nil {
		return err
	}

	var tensors [][]string
	var cellParams, optimizerEntries int
	for _, name := range reader.TensorNames() {
		info, err := reader.TensorInfo(name)
		if err != nil {
			return err
		}
		count := 1
		for _, d := range info.Shape {
			count *= d
		}
		if strings.HasPrefix(name, "optimizer.") {
			optimizerEntries++
		} else {
			cellParams += count
		}
		tensors = append(tensors, []string{"", name, info.DType, fmt.Sprint(info.Shape), strconv.Itoa(count)})
	}

	showMetadata, _ := cmd.Flags().GetBool("metadata")
	return showInfo(cmd.OutOrStdout(), cfg, meta, tensors, cellParams, optimizerEntries, showMetadata)
}

func showInfo(w io.Writer, cfg nn.ConvLSTMConfig, meta map[string]string, tensors [][]string, cellParams, optimizerEntries int, showMetadata bool) error {
	tableRender := func(header string, rows [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows)
		table.Render()
		fmt.Fprintln(w)
	}

	padding := cfg.Padding()
	tableRender("Cell", [][]string{
		{"", "input shape", fmt.Sprintf("(%d, %d, %d)", cfg.InputShape[0], cfg.InputShape[1], cfg.InputShape[2])},
		{"", "hidden channels", strconv.Itoa(cfg.HiddenC)},
		{"", "kernel", fmt.Sprintf("(%d, %d)", cfg.KernelShape[0], cfg.KernelShape[1])},
		{"", "padding", fmt.Sprintf("(%d, %d)", padding[0], padding[1])},
		{"", "norm groups", strconv.Itoa(cfg.Groups())},
		{"", "norm epsilon", strconv.FormatFloat(float64(cfg.Epsilon()), 'g', -1, 32)},
		{"", "parameters", strconv.Itoa(cellParams)},
	})

	var training [][]string
	for _, key := range []string{nn.MetaStep, nn.MetaLoss, nn.MetaLR, nn.MetaCreatedAt} {
		if v, ok := meta[key]; ok {
			training = append(training, []string{"", strings.TrimPrefix(key, "train."), v})
		}
	}
	if optimizerEntries > 0 {
		training = append(training, []string{"", "optimizer buffers", strconv.Itoa(optimizerEntries)})
	}
	if len(training) > 0 {
		tableRender("Training", training)
	}

	tableRender("Tensors", tensors)

	if showMetadata {
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{"", k, meta[k]}
		}
		tableRender("Metadata", rows)
	}

	return nil
}
