package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"octconverter/pkg/binreader"
	"octconverter/pkg/config"
	"octconverter/pkg/convert"
	"octconverter/pkg/inspect"
	"octconverter/pkg/visualization"
)

var errConversionFailed = errors.New("conversion failed, see log for details")

// readerFlags are the BIN layout overrides shared by bin2eye and batch
type readerFlags struct {
	profile    string
	headerSize int64
	slices     int
	width      int
	height     int
	channels   int
	prototype  string
}

func (f *readerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.profile, "profile", config.DefaultProfile, "device profile from the configuration")
	fs.Int64Var(&f.headerSize, "header-size", 0, "bytes to skip before the samples (overrides profile)")
	fs.IntVar(&f.slices, "slices", 0, "number of slices (overrides profile)")
	fs.IntVar(&f.width, "width", 0, "slice width (overrides profile)")
	fs.IntVar(&f.height, "height", 0, "slice height (overrides profile)")
	fs.IntVar(&f.channels, "channels", 0, "samples per pixel (overrides profile)")
	fs.StringVar(&f.prototype, "prototype", "", "acquisition prototype tag (overrides profile)")
}

// params resolves the profile and applies every flag the user set.
func (f *readerFlags) params(cmd *cobra.Command, cfg *config.Config, path string) (binreader.Params, error) {
	p, err := cfg.Profile(f.profile)
	if err != nil {
		return binreader.Params{}, err
	}

	fs := cmd.Flags()
	if fs.Changed("header-size") {
		p.HeaderSize = f.headerSize
	}
	if fs.Changed("slices") {
		p.NumSlices = f.slices
	}
	if fs.Changed("width") {
		p.Width = f.width
	}
	if fs.Changed("height") {
		p.Height = f.height
	}
	if fs.Changed("channels") {
		p.NumChannels = f.channels
	}
	if fs.Changed("prototype") {
		p.Prototype = f.prototype
	}
	return p.ReaderParams(path), nil
}

func newBin2EyeCmd(a *app) *cobra.Command {
	var rf readerFlags
	cmd := &cobra.Command{
		Use:   "bin2eye <src.bin> <dst.eye>",
		Short: "Convert a raw BIN file to an EYE volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := rf.params(cmd, a.cfg, args[0])
			if err != nil {
				return err
			}
			return a.converter.SaveBin2Eye(params, args[1])
		},
	}
	rf.register(cmd.Flags())
	return cmd
}

func newEye2BinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eye2bin <src.eye> <dst.bin>",
		Short: "Export the raw samples of an EYE volume to <dst>_structure.bin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.converter.SaveEye2Bin(args[0], args[1])
			if path == "" {
				return errConversionFailed
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newEye2HDF5Cmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eye2hdf5 <src.eye> <dst.hdf5>",
		Short: "Store an EYE volume in an HDF5 container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.converter.SaveEye2HDF5(args[0], args[1]) {
				return errConversionFailed
			}
			return nil
		},
	}
}

func newHDF52EyeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hdf52eye <src.hdf5> <dst.eye>",
		Short: "Restore an EYE volume from an HDF5 container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj := a.converter.LoadEyeFromHDF5(args[0])
			if obj == nil {
				return errConversionFailed
			}
			return obj.Save(args[1])
		},
	}
}

func newEye2BlobCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eye2blob <src.eye> <dst.blob>",
		Short: "Serialize an EYE volume into a single binary blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.converter.SaveEye2Blob(args[0], args[1]) {
				return errConversionFailed
			}
			return nil
		},
	}
}

func newBlob2EyeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "blob2eye <src.blob> <dst.eye>",
		Short: "Restore an EYE volume from a binary blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj := a.converter.LoadEyeFromBlob(args[0])
			if obj == nil {
				return errConversionFailed
			}
			return obj.Save(args[1])
		},
	}
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		rf      readerFlags
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch <dst-dir> <src.bin>...",
		Short: "Convert many BIN files to EYE volumes in parallel",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dstDir := args[0]
			if err := os.MkdirAll(dstDir, 0755); err != nil {
				return err
			}
			jobs := make([]convert.Job, 0, len(args)-1)
			for _, src := range args[1:] {
				params, err := rf.params(cmd, a.cfg, src)
				if err != nil {
					return err
				}
				stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
				jobs = append(jobs, convert.Job{Params: params, Dst: filepath.Join(dstDir, stem+".eye")})
			}

			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.BatchWorkers()
			}
			return a.converter.ConvertBatch(cmd.Context(), jobs, workers)
		},
	}
	rf.register(cmd.Flags())
	cmd.Flags().IntVar(&workers, "workers", 0, "files converted concurrently (overrides config)")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var axis string
	cmd := &cobra.Command{
		Use:   "preview <src.eye> <out-dir>",
		Short: "Write JPEG previews of an EYE volume along one axis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.converter.Backend().Load(args[0])
			if err != nil {
				return err
			}
			viewer := visualization.NewViewer(obj.Volume(), a.cfg.Output.PreviewQuality)
			n, err := viewer.SaveSliceSequence(axis, args[1])
			if err != nil {
				return err
			}
			a.logger.Info("saved previews", "axis", axis, "count", n, "dir", args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&axis, "axis", "z", "axis to slice along: x, y or z")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <src.eye>",
		Short: "Print the shape and intensity statistics of an EYE volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.converter.Backend().Load(args[0])
			if err != nil {
				return err
			}
			s, err := inspect.Summarize(obj.Volume())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Shape:   %v\n", s.Shape)
			fmt.Fprintf(out, "Range:   %d..%d\n", s.Min, s.Max)
			fmt.Fprintf(out, "Mean:    %.3f\n", s.Mean)
			fmt.Fprintf(out, "StdDev:  %.3f\n", s.StdDev)
			fmt.Fprintf(out, "Entropy: %.3f bits\n", s.Entropy)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.CreateDefaultConfigFile(args[0])
		},
	})
	return cmd
}
