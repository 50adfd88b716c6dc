package decoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// audioStream returns the first audio stream ffprobe reported.
func (r probeResult) audioStream() (probeStream, bool) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			return s, true
		}
	}
	return probeStream{}, false
}

func (r probeResult) duration() (time.Duration, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("unreadable duration %q", r.Format.Duration)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func inspect(ctx context.Context, binary, path string) (probeResult, error) {
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,sample_rate,channels",
		"-of", "json",
		"--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return probeResult{}, fmt.Errorf("%w: ffprobe %s: %v: %s", ErrDecode, path, err, strings.TrimSpace(string(output)))
	}
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return probeResult{}, fmt.Errorf("%w: ffprobe %s: %v", ErrDecode, path, err)
	}
	return result, nil
}
