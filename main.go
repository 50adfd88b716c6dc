package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shirerpeton/dialogCondenser/internal/common"
	"github.com/shirerpeton/dialogCondenser/internal/condenser"
	"github.com/shirerpeton/dialogCondenser/internal/config"
	"github.com/shirerpeton/dialogCondenser/internal/decoder"
	"github.com/shirerpeton/dialogCondenser/internal/logging"
	"github.com/shirerpeton/dialogCondenser/internal/subtitle"
)

type runFlags struct {
	input   string
	sub     string
	output  string
	padding float64
	maxGap  float64
	workers int
	render  bool
}

func newRootCommand() *cobra.Command {
	var configPath string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "condense",
		Short:         "Cut audio down to the parts covered by subtitles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newRunCommand(loadConfig))
	rootCmd.AddCommand(newConfigCommand())
	return rootCmd
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Print a configuration file with the default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := config.Sample()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), sample)
			return err
		},
	})
	return configCmd
}

func newRunCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Condense a media file or a directory of media files",
		Long: "Pairs media with subtitles, keeps only the audio under the subtitle cues " +
			"(plus padding) and writes the result as 16-bit PCM WAV. Without --render " +
			"only the expected durations are printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("padding") {
				cfg.Padding = flags.padding
			}
			if cmd.Flags().Changed("gap") {
				cfg.MaxGap = flags.maxGap
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = flags.workers
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
			if err != nil {
				return err
			}
			return runCondense(cmd.Context(), cmd.OutOrStdout(), cfg, flags, logger)
		},
	}
	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Path to input audio/video file or directory containing them")
	cmd.Flags().StringVarP(&flags.sub, "sub", "s", "", "Path to input subtitle file or directory containing them")
	cmd.Flags().StringVarP(&flags.output, "out", "o", "", "Output WAV file, or output directory when condensing directories")
	cmd.Flags().Float64Var(&flags.padding, "padding", condenser.DefaultPadding, "Seconds kept before and after every cue")
	cmd.Flags().Float64Var(&flags.maxGap, "gap", 0, "Keep silences between cues shorter than this many seconds")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "Files processed in parallel, 0 uses every CPU (default from config)")
	cmd.Flags().BoolVar(&flags.render, "render", false, "Write condensed audio; without it only stats are printed")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func runCondense(ctx context.Context, out io.Writer, cfg *config.Config, flags runFlags, logger *slog.Logger) error {
	inputStat, err := os.Stat(flags.input)
	if err != nil {
		return err
	}
	subStat, err := os.Stat(flags.sub)
	if err != nil {
		return err
	}
	if inputStat.IsDir() != subStat.IsDir() {
		return errors.New("either both input and sub parameters should be files or directories")
	}

	output := flags.output
	if inputStat.IsDir() && output == "" {
		output = cfg.OutputDir
	}
	files, err := getFiles(flags.input, flags.sub, output, cfg.OutputSuffix, inputStat.IsDir())
	if err != nil {
		return err
	}

	opts := condenser.Options{Padding: cfg.Padding, MaxGap: cfg.MaxGap}
	deps := condenser.Deps{
		Cues:   subtitle.Parser{},
		Audio:  decoder.New(cfg.FFmpegBinary, cfg.FFprobeBinary),
		Logger: logger,
	}

	if flags.render {
		var mu sync.Mutex
		runBatch(ctx, files, cfg.Workers, logger, func(ctx context.Context, file *common.CondenseFile) error {
			err := condenser.ProcessFile(ctx, file, opts, deps)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(out, "File %s - %s\n", highlight(file.Output), failure("failed"))
				return err
			}
			fmt.Fprintf(out, "File %s - done\n", highlight(file.Output))
			return nil
		})
		fmt.Fprintln(out)
	} else {
		runBatch(ctx, files, cfg.Workers, logger, func(ctx context.Context, file *common.CondenseFile) error {
			return condenser.Plan(ctx, file, opts, deps)
		})
	}

	printStats(out, files)
	fmt.Fprintln(out, renderSummary(files))

	failed := 0
	for _, file := range files {
		if file.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// runBatch runs fn for every file with at most workers in flight. A failure is
// recorded on its own file and never stops the others.
func runBatch(ctx context.Context, files []*common.CondenseFile, workers int, logger *slog.Logger, fn func(context.Context, *common.CondenseFile) error) {
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for _, file := range files {
		g.Go(func() error {
			if err := fn(ctx, file); err != nil {
				file.Err = err
				logger.Error("file failed", "input", file.Input, "sub", file.Sub, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
