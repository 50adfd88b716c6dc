package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shirerpeton/dialogCondenser/internal/common"
	"github.com/shirerpeton/dialogCondenser/internal/config"
	"github.com/shirerpeton/dialogCondenser/internal/wav"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func toneWAV(t *testing.T, seconds, rate int) []byte {
	t.Helper()
	samples := make([]float32, seconds*rate)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(float64(i)/5))
	}
	data, err := wav.Encode(&common.Signal{SampleRate: rate, Channels: [][]float32{samples}})
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return data
}

const srtFixture = `1
00:00:01,000 --> 00:00:02,000
one

2
00:00:02,300 --> 00:00:03,000
two

3
00:00:10,000 --> 00:00:11,000
three
`

func TestGetOutputPath(t *testing.T) {
	tests := map[string]string{
		"/media/show/ep01.mkv": "ep01_condensed.wav",
		"ep02":                 "ep02_condensed.wav",
		"dir.v2/ep.03.mp4":     "ep.03_condensed.wav",
	}
	for in, want := range tests {
		if got := getOutputPath(in, "_condensed"); got != want {
			t.Errorf("getOutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetFilesSingle(t *testing.T) {
	files, err := getFiles("/tmp/show/ep01.mkv", "/tmp/show/ep01.srt", "", "_condensed", false)
	if err != nil {
		t.Fatalf("getFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].Output != filepath.Join("/tmp/show", "ep01_condensed.wav") {
		t.Fatalf("unexpected files: %+v", files[0])
	}

	files, err = getFiles("ep01.mkv", "ep01.srt", "custom.wav", "_condensed", false)
	if err != nil {
		t.Fatalf("getFiles failed: %v", err)
	}
	if files[0].Output != "custom.wav" {
		t.Fatalf("explicit output ignored: %q", files[0].Output)
	}
}

func TestGetFilesPairsDirectoriesByName(t *testing.T) {
	root := t.TempDir()
	media := filepath.Join(root, "media")
	subs := filepath.Join(root, "subs")
	for _, name := range []string{"ep02.mkv", "ep01.mkv", ".hidden"} {
		writeFile(t, filepath.Join(media, name), nil)
	}
	for _, name := range []string{"ep02.ass", "ep01.srt", "notes.txt"} {
		writeFile(t, filepath.Join(subs, name), nil)
	}
	if err := os.Mkdir(filepath.Join(media, "extras"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out := filepath.Join(root, "out")
	files, err := getFiles(media, subs, out, "_condensed", true)
	if err != nil {
		t.Fatalf("getFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(files))
	}
	if filepath.Base(files[0].Input) != "ep01.mkv" || filepath.Base(files[0].Sub) != "ep01.srt" {
		t.Fatalf("unexpected first pair: %+v", files[0])
	}
	if files[1].Output != filepath.Join(out, "ep02_condensed.wav") {
		t.Fatalf("unexpected output: %q", files[1].Output)
	}
}

func TestGetFilesSkipsNonMediaFiles(t *testing.T) {
	root := t.TempDir()
	media := filepath.Join(root, "media")
	subs := filepath.Join(root, "subs")
	for _, name := range []string{"cover.jpg", "ep01.MKV", "ep01.nfo", "readme.txt"} {
		writeFile(t, filepath.Join(media, name), nil)
	}
	writeFile(t, filepath.Join(subs, "ep01.srt"), nil)

	files, err := getFiles(media, subs, root, "_condensed", true)
	if err != nil {
		t.Fatalf("getFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0].Input) != "ep01.MKV" {
		t.Fatalf("expected only ep01.MKV to pair, got %+v", files)
	}

	empty := filepath.Join(root, "extras")
	writeFile(t, filepath.Join(empty, "poster.png"), nil)
	if _, err := getFiles(empty, subs, root, "_condensed", true); err == nil {
		t.Fatal("expected error for a directory without media")
	}
}

func TestGetFilesEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	media := filepath.Join(root, "media")
	subs := filepath.Join(root, "subs")
	writeFile(t, filepath.Join(media, "ep01.mkv"), nil)
	if err := os.MkdirAll(subs, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := getFiles(media, subs, root, "_c", true); err == nil {
		t.Fatal("expected error for empty subtitle directory")
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	files := []*common.CondenseFile{{Input: "a"}, {Input: "b"}, {Input: "c"}}
	var calls atomic.Int32
	boom := errors.New("boom")
	runBatch(context.Background(), files, 2, slog.New(slog.DiscardHandler), func(_ context.Context, file *common.CondenseFile) error {
		calls.Add(1)
		if file.Input == "b" {
			return boom
		}
		return nil
	})
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if files[0].Err != nil || files[2].Err != nil || !errors.Is(files[1].Err, boom) {
		t.Fatalf("unexpected errors: %v %v %v", files[0].Err, files[1].Err, files[2].Err)
	}
	summary := renderSummary(files)
	for _, want := range []string{"3 files", "1 failed"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary footer missing %q:\n%s", want, summary)
		}
	}
}

func TestRunCondenseRendersWAV(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "ep01.wav")
	sub := filepath.Join(root, "ep01.srt")
	out := filepath.Join(root, "out", "ep01.wav")
	writeFile(t, input, toneWAV(t, 12, 1000))
	writeFile(t, sub, []byte(srtFixture))

	cfg := config.Default()
	cfg.Workers = 1
	var stdout bytes.Buffer
	flags := runFlags{input: input, sub: sub, output: out, render: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := runCondense(context.Background(), &stdout, &cfg, flags, logger); err != nil {
		t.Fatalf("runCondense failed: %v\n%s", err, stdout.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	header, err := wav.ReadHeader(data)
	if err != nil {
		t.Fatalf("invalid output: %v", err)
	}
	// windows 0.5-3.5 and 9.5-11.5 at 1 kHz
	if header.Subchunk2Size != 5000*2 || header.SampleRate != 1000 || header.NumChannels != 1 {
		t.Fatalf("unexpected header: %+v", header)
	}
	if !strings.Contains(stdout.String(), "done") {
		t.Fatalf("expected done line, got:\n%s", stdout.String())
	}
}

func TestRunCondenseDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "ep01.wav")
	sub := filepath.Join(root, "ep01.srt")
	writeFile(t, input, toneWAV(t, 12, 1000))
	writeFile(t, sub, []byte(srtFixture))

	cfg := config.Default()
	var stdout bytes.Buffer
	flags := runFlags{input: input, sub: sub}
	if err := runCondense(context.Background(), &stdout, &cfg, flags, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("runCondense failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "ep01_condensed.wav")); !os.IsNotExist(err) {
		t.Fatalf("dry run should not write output, stat: %v", err)
	}
	if !strings.Contains(stdout.String(), "condensed duration") {
		t.Fatalf("expected stats, got:\n%s", stdout.String())
	}
}

func TestRunCondenseReportsFailedFiles(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "ep01.wav")
	sub := filepath.Join(root, "ep01.srt")
	writeFile(t, input, []byte("not audio"))
	writeFile(t, sub, []byte(srtFixture))

	cfg := config.Default()
	cfg.FFprobeBinary = filepath.Join(root, "missing-ffprobe")
	cfg.FFmpegBinary = filepath.Join(root, "missing-ffmpeg")
	flags := runFlags{input: input, sub: sub, output: filepath.Join(root, "o.wav"), render: true}
	err := runCondense(context.Background(), io.Discard, &cfg, flags, slog.New(slog.DiscardHandler))
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Fatalf("expected failure summary error, got %v", err)
	}
}

func TestRunCondenseRejectsMixedKinds(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "ep01.srt")
	writeFile(t, sub, []byte(srtFixture))
	cfg := config.Default()
	err := runCondense(context.Background(), io.Discard, &cfg, runFlags{input: root, sub: sub}, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Fatal("expected error when mixing a directory and a file")
	}
}

func TestConfigInitPrintsDefaults(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out.String(), "padding = 0.5") {
		t.Fatalf("expected padding default in output:\n%s", out.String())
	}
}

func TestRunCommandNormalizesFlagOverrides(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "ep01.wav")
	sub := filepath.Join(root, "ep01.srt")
	writeFile(t, input, toneWAV(t, 12, 1000))
	writeFile(t, sub, []byte(srtFixture))

	tests := map[string][]string{
		"uppercase log level": {"--log-level", "DEBUG"},
		"padded log level":    {"--log-level", " Warn "},
		"zero workers":        {"--workers", "0"},
		"short zero workers":  {"-j", "0"},
	}
	for name, extra := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := newRootCommand()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(append([]string{"run", "-i", input, "-s", sub}, extra...))
			if err := cmd.Execute(); err != nil {
				t.Fatalf("run %v failed: %v", extra, err)
			}
			if !strings.Contains(out.String(), "condensed duration") {
				t.Fatalf("expected stats, got:\n%s", out.String())
			}
		})
	}
}

func TestRunCommandRejectsNegativeWorkers(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "ep01.wav")
	sub := filepath.Join(root, "ep01.srt")
	writeFile(t, input, toneWAV(t, 1, 1000))
	writeFile(t, sub, []byte(srtFixture))

	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"run", "-i", input, "-s", sub, "--workers=-1"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "workers") {
		t.Fatalf("expected workers validation error, got %v", err)
	}
}
