// Package decoder turns source media into an in-memory planar float signal.
//
// PCM WAV files are read natively with go-audio. Everything else (video
// containers, compressed audio, float WAV) is decoded by piping ffmpeg's f32le
// output, with ffprobe supplying the stream layout and duration.
package decoder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

// ErrDecode marks a source file that could not be turned into a signal. It is
// fatal for that file only.
var ErrDecode = errors.New("decode failure")

type Decoder struct {
	FFmpeg  string
	FFprobe string
}

func New(ffmpeg, ffprobe string) *Decoder {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	if strings.TrimSpace(ffprobe) == "" {
		ffprobe = "ffprobe"
	}
	return &Decoder{FFmpeg: ffmpeg, FFprobe: ffprobe}
}

func isWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// Decode reads the whole file at path. The first audio stream is used.
func (d *Decoder) Decode(ctx context.Context, path string) (*common.Signal, error) {
	if isWAV(path) {
		signal, err := DecodeWAV(path)
		if err == nil {
			return signal, nil
		}
		if !errors.Is(err, errNotPCM) {
			return nil, err
		}
	}
	return d.decodeFFmpeg(ctx, path)
}

// Probe reports the duration of path without decoding samples.
func (d *Decoder) Probe(ctx context.Context, path string) (time.Duration, error) {
	if isWAV(path) {
		if duration, err := wavDuration(path); err == nil {
			return duration, nil
		}
	}
	result, err := inspect(ctx, d.FFprobe, path)
	if err != nil {
		return 0, err
	}
	duration, err := result.duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return duration, nil
}

var errNotPCM = errors.New("not integer PCM")

func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return 0, err
	}
	bytesPerSecond := int(dec.SampleRate) * int(dec.NumChans) * int(dec.BitDepth) / 8
	if bytesPerSecond <= 0 {
		return 0, fmt.Errorf("%w: %s has an empty format chunk", ErrDecode, path)
	}
	return time.Duration(float64(dec.PCMSize) / float64(bytesPerSecond) * float64(time.Second)), nil
}

// DecodeWAV reads an integer PCM WAV file.
func DecodeWAV(path string) (*common.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrDecode, path)
	}
	if dec.WavAudioFormat != 1 {
		return nil, errNotPCM
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read PCM buffer of %s: %v", ErrDecode, path, err)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	return fromIntBuffer(buf, bitDepth)
}

func fromIntBuffer(buf *audio.IntBuffer, bitDepth int) (*common.Signal, error) {
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing stream format", ErrDecode)
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, bitDepth)
	}
	scale := math.Exp2(float64(bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	signal := &common.Signal{SampleRate: buf.Format.SampleRate, Channels: make([][]float32, channels)}
	for c := range signal.Channels {
		signal.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames*channels; i++ {
		signal.Channels[i%channels][i/channels] = float32(float64(buf.Data[i]-offset) / scale)
	}
	return signal, nil
}

func (d *Decoder) decodeFFmpeg(ctx context.Context, path string) (*common.Signal, error) {
	result, err := inspect(ctx, d.FFprobe, path)
	if err != nil {
		return nil, err
	}
	stream, ok := result.audioStream()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no audio stream", ErrDecode, path)
	}
	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 || stream.Channels <= 0 {
		return nil, fmt.Errorf("%w: %s reports sample rate %q and %d channels", ErrDecode, path, stream.SampleRate, stream.Channels)
	}

	cmd := exec.CommandContext(ctx, d.FFmpeg,
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(stream.Channels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg decode %s: %v: %s", ErrDecode, path, err, strings.TrimSpace(stderr.String()))
	}
	return Deinterleave(out, sampleRate, stream.Channels), nil
}

// Deinterleave splits little-endian interleaved float32 frames into channels.
// A trailing partial frame is dropped.
func Deinterleave(raw []byte, sampleRate, channels int) *common.Signal {
	frames := len(raw) / (4 * channels)
	signal := &common.Signal{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range signal.Channels {
		signal.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames*channels; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		signal.Channels[i%channels][i/channels] = math.Float32frombits(bits)
	}
	return signal
}
