package condenser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/shirerpeton/dialogCondenser/internal/common"
	"github.com/shirerpeton/dialogCondenser/internal/intervals"
	"github.com/shirerpeton/dialogCondenser/internal/wav"
)

const DefaultPadding = 0.5

type Options struct {
	// Padding is added before and after every cue, in seconds.
	Padding float64
	// MaxGap bridges silences between padded cues up to this many seconds.
	MaxGap float64
}

func DefaultOptions() Options {
	return Options{Padding: DefaultPadding}
}

type CueSource interface {
	ParseFile(path string) ([]common.Cue, error)
}

type Decoder interface {
	Decode(ctx context.Context, path string) (*common.Signal, error)
	Probe(ctx context.Context, path string) (time.Duration, error)
}

type Deps struct {
	Cues   CueSource
	Audio  Decoder
	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

type Result struct {
	Windows []common.Interval
	Signal  *common.Signal
	Blob    []byte
}

// Windows turns raw cues into the sorted, disjoint dialogue windows to keep.
func Windows(cues []common.Cue, opts Options) ([]common.Interval, error) {
	if err := intervals.Validate(cues); err != nil {
		return nil, err
	}
	return intervals.MergeWithGap(intervals.Normalize(cues, opts.Padding), opts.MaxGap), nil
}

// Condense runs the whole in-memory pipeline for one file: cues to windows,
// windows to a condensed signal, signal to WAV bytes.
func Condense(cues []common.Cue, signal *common.Signal, opts Options) (*Result, error) {
	windows, err := Windows(cues, opts)
	if err != nil {
		return nil, err
	}
	condensed := Extract(signal, windows)
	blob, err := wav.Encode(condensed)
	if err != nil {
		return nil, fmt.Errorf("encode condensed audio: %w", err)
	}
	return &Result{Windows: windows, Signal: condensed, Blob: blob}, nil
}

// Plan fills in the windows and durations of file without decoding audio.
func Plan(ctx context.Context, file *common.CondenseFile, opts Options, deps Deps) error {
	cues, err := deps.Cues.ParseFile(file.Sub)
	if err != nil {
		return fmt.Errorf("parse subtitles %s: %w", file.Sub, err)
	}
	windows, err := Windows(cues, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", file.Sub, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	originalDuration, err := deps.Audio.Probe(ctx, file.Input)
	if err != nil {
		return err
	}
	file.Windows = windows
	file.OriginalDuration = originalDuration
	file.CondensedDuration = common.Seconds(intervals.Total(windows))
	deps.logger().Debug("planned condensation",
		"input", file.Input,
		"cues", len(cues),
		"windows", len(windows),
		"condensed", file.CondensedDuration)
	return nil
}

// ProcessFile condenses file.Input to file.Output. Cancellation is only
// observed between stages.
func ProcessFile(ctx context.Context, file *common.CondenseFile, opts Options, deps Deps) error {
	logger := deps.logger().With("run_id", uuid.NewString(), "input", file.Input)
	started := time.Now()

	cues, err := deps.Cues.ParseFile(file.Sub)
	if err != nil {
		return fmt.Errorf("parse subtitles %s: %w", file.Sub, err)
	}
	logger.Debug("parsed subtitles", "sub", file.Sub, "cues", len(cues))
	if err := ctx.Err(); err != nil {
		return err
	}

	signal, err := deps.Audio.Decode(ctx, file.Input)
	if err != nil {
		return err
	}
	logger.Debug("decoded audio",
		"sample_rate", signal.SampleRate,
		"channels", len(signal.Channels),
		"duration", signal.Duration())
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := Condense(cues, signal, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", file.Input, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(file.Output), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(file.Output, result.Blob, 0644); err != nil {
		return err
	}

	file.Windows = result.Windows
	file.OriginalDuration = signal.Duration()
	file.CondensedDuration = result.Signal.Duration()
	file.Bytes = len(result.Blob)
	logger.Info("condensed",
		"output", file.Output,
		"windows", len(result.Windows),
		"condensed", file.CondensedDuration,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}
