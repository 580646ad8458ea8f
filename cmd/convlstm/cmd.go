package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/born-ml/convlstm/backend/cpu"
	"github.com/born-ml/convlstm/internal/envconfig"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.1.0-dev"

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// setupLogging installs a text slog handler on w. --verbose wins over CONVLSTM_DEBUG.
func setupLogging(cmd *cobra.Command, w io.Writer) {
	level := envconfig.LogLevel()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level < slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	})
	slog.SetDefault(slog.New(handler))
}

func newBackend() *cpu.Backend {
	workers := envconfig.NumWorkers()
	slog.Debug("cpu backend", "workers", workers)
	return cpu.NewWithWorkers(workers)
}

func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "convlstm version is %s\n", version)
}

// NewCLI creates the root command with every subcommand attached.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "convlstm",
		Short:         "Convolutional LSTM cell toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd, cmd.ErrOrStderr())
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	stepCmd := newStepCmd()
	trainCmd := newTrainCmd()
	inspectCmd := newInspectCmd()
	exportCmd := newExportCmd()
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run:   versionHandler,
	}

	envVars := envconfig.AsMap()
	cellEnvs := []envconfig.EnvVar{
		envVars["CONVLSTM_DEBUG"],
		envVars["CONVLSTM_NUM_WORKERS"],
		envVars["CONVLSTM_SEED"],
		envVars["CONVLSTM_INPUT_SHAPE"],
		envVars["CONVLSTM_HIDDEN"],
		envVars["CONVLSTM_KERNEL"],
		envVars["CONVLSTM_NORM_GROUPS"],
	}

	appendEnvDocs(stepCmd, cellEnvs)
	appendEnvDocs(trainCmd, append(slices.Clone(cellEnvs),
		envVars["CONVLSTM_LR"],
		envVars["CONVLSTM_STORAGE"],
		envVars["CONVLSTM_NOPROGRESS"],
	))
	appendEnvDocs(exportCmd, []envconfig.EnvVar{envVars["CONVLSTM_STORAGE"]})

	rootCmd.AddCommand(
		stepCmd,
		trainCmd,
		inspectCmd,
		exportCmd,
		versionCmd,
	)

	return rootCmd
}
