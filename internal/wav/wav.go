// Package wav writes condensed signals as canonical 16-bit PCM RIFF/WAVE
// files: a 44-byte header followed by frame-interleaved little-endian samples.
package wav

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

const (
	HeaderSize     = 44
	BitsPerSample  = 16
	bytesPerSample = BitsPerSample / 8
)

var ErrInvalidSignal = errors.New("invalid signal")

// Header mirrors the on-disk layout of the three mandatory chunks.
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data bytes
}

func newHeader(channels, sampleRate int, dataSize uint32) Header {
	return Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     HeaderSize - 8 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bytesPerSample),
		BlockAlign:    uint16(channels * bytesPerSample),
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// Size returns the number of bytes Encode will produce for signal.
func Size(signal *common.Signal) (int, error) {
	if err := check(signal); err != nil {
		return 0, err
	}
	return HeaderSize + signal.Frames()*len(signal.Channels)*bytesPerSample, nil
}

func check(signal *common.Signal) error {
	if signal == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSignal)
	}
	if signal.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidSignal, signal.SampleRate)
	}
	if len(signal.Channels) == 0 || len(signal.Channels) > math.MaxUint16 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidSignal, len(signal.Channels))
	}
	frames := len(signal.Channels[0])
	for i, ch := range signal.Channels[1:] {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d", ErrInvalidSignal, i+1, len(ch), frames)
		}
	}
	dataSize := uint64(frames) * uint64(len(signal.Channels)) * bytesPerSample
	if dataSize > math.MaxUint32-HeaderSize {
		return fmt.Errorf("%w: %d data bytes do not fit a RIFF container", ErrInvalidSignal, dataSize)
	}
	if uint64(signal.SampleRate)*uint64(len(signal.Channels))*bytesPerSample > math.MaxUint32 {
		return fmt.Errorf("%w: byte rate overflows for %d Hz", ErrInvalidSignal, signal.SampleRate)
	}
	return nil
}

// Encode renders signal as a complete WAV file held in memory.
func Encode(signal *common.Signal) ([]byte, error) {
	size, err := Size(signal)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := Write(buf, signal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the WAV encoding of signal to w and returns the byte count.
func Write(w io.Writer, signal *common.Signal) (int64, error) {
	if err := check(signal); err != nil {
		return 0, err
	}
	channels := len(signal.Channels)
	frames := signal.Frames()
	dataSize := uint32(frames * channels * bytesPerSample)

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, newHeader(channels, signal.SampleRate, dataSize)); err != nil {
		return 0, fmt.Errorf("failed to write WAV header: %w", err)
	}
	var sample [bytesPerSample]byte
	for frame := 0; frame < frames; frame++ {
		for _, ch := range signal.Channels {
			binary.LittleEndian.PutUint16(sample[:], uint16(ToPCM16(ch[frame])))
			if _, err := bw.Write(sample[:]); err != nil {
				return 0, fmt.Errorf("failed to write audio data: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write audio data: %w", err)
	}
	return int64(HeaderSize) + int64(dataSize), nil
}

// ToPCM16 clamps v to [-1, 1] and scales it asymmetrically so that -1 maps to
// -32768 and 1 maps to 32767.
func ToPCM16(v float32) int16 {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return 0
	case f > 1:
		f = 1
	case f < -1:
		f = -1
	}
	if f < 0 {
		return int16(math.Round(f * 32768))
	}
	return int16(math.Round(f * 32767))
}

// ReadHeader parses and validates the 44-byte header at the start of data.
func ReadHeader(data []byte) (Header, error) {
	var header Header
	if len(data) < HeaderSize {
		return header, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to read WAV header: %w", err)
	}
	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return header, errors.New("invalid WAV file: missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return header, errors.New("invalid WAV file: missing WAVE format")
	case string(header.Subchunk1ID[:]) != "fmt ":
		return header, errors.New("invalid WAV file: missing fmt chunk")
	case string(header.Subchunk2ID[:]) != "data":
		return header, errors.New("invalid WAV file: missing data chunk")
	case header.AudioFormat != 1:
		return header, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}
	return header, nil
}
