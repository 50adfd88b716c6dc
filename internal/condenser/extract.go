package condenser

import (
	"math"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

type span struct {
	from int
	to   int
}

// frameSpans converts windows to integer frame bounds once so the write
// offset never accumulates floating point error.
func frameSpans(sampleRate int, windows []common.Interval) ([]span, int) {
	spans := make([]span, 0, len(windows))
	total := 0
	rate := float64(sampleRate)
	for _, w := range windows {
		from := int(math.Round(math.Max(0, w.Start) * rate))
		to := int(math.Round(w.End * rate))
		if to <= from {
			continue
		}
		spans = append(spans, span{from: from, to: to})
		total += to - from
	}
	return spans, total
}

// FrameCount is the per-channel length Extract will allocate for windows.
func FrameCount(sampleRate int, windows []common.Interval) int {
	_, total := frameSpans(sampleRate, windows)
	return total
}

// Extract copies the audio inside windows, in order, into one contiguous
// signal. Frames past the end of the source come out as silence.
func Extract(signal *common.Signal, windows []common.Interval) *common.Signal {
	if signal == nil {
		return &common.Signal{}
	}
	out := &common.Signal{
		SampleRate: signal.SampleRate,
		Channels:   make([][]float32, len(signal.Channels)),
	}
	if signal.SampleRate <= 0 {
		for i := range out.Channels {
			out.Channels[i] = []float32{}
		}
		return out
	}

	spans, total := frameSpans(signal.SampleRate, windows)
	for c, src := range signal.Channels {
		available := len(src)
		dst := make([]float32, total)
		offset := 0
		for _, s := range spans {
			if s.from < available {
				copy(dst[offset:], src[s.from:min(s.to, available)])
			}
			offset += s.to - s.from
		}
		out.Channels[c] = dst
	}
	return out
}
