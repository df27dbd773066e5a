package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"octconverter/internal/logging"
	"octconverter/pkg/config"
	"octconverter/pkg/convert"
	"octconverter/pkg/eye"
)

const (
	configFlag    = "config"
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
)

// app carries the state built by the root command before any subcommand runs
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	converter *convert.Converter
}

// newRootCmd builds the command tree. Each call returns an independent tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "octconvert [sub-command]",
		Short: "Convert OCT eye scans between BIN, EYE, blob and HDF5 files",
		Long: `octconvert reads raw OCT sensor dumps (.bin) with a device profile and
converts them to EYE volumes, which can in turn be exported back to raw
samples, to a single binary blob or to an HDF5 container.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
	}

	flags := root.PersistentFlags()
	flags.String(configFlag, "octconvert.yaml", "path to the YAML configuration file")
	flags.String(logLevelFlag, "", "log level: debug, info, warn or error (overrides config)")
	flags.String(logFormatFlag, "", "log format: text or json (overrides config)")

	root.AddCommand(
		newBin2EyeCmd(a),
		newEye2BinCmd(a),
		newEye2HDF5Cmd(a),
		newHDF52EyeCmd(a),
		newEye2BlobCmd(a),
		newBlob2EyeCmd(a),
		newBatchCmd(a),
		newPreviewCmd(a),
		newInfoCmd(a),
		newConfigCmd(),
	)

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString(configFlag)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	level, format := cfg.Logging.Level, cfg.Logging.Format
	if v, _ := cmd.Flags().GetString(logLevelFlag); v != "" {
		level = v
	}
	if v, _ := cmd.Flags().GetString(logFormatFlag); v != "" {
		format = v
	}
	logger, err := logging.New(cmd.ErrOrStderr(), format, level)
	if err != nil {
		return err
	}

	compression, err := eye.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return fmt.Errorf("config output.compression: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.converter = convert.New(eye.NewKnot(eye.WithCompression(compression)), logger)
	return nil
}
