// Package subtitle reads cue timings out of SRT, WebVTT and ASS/SSA files.
// Only timings are kept; text, styling and positioning are ignored.
package subtitle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

var ErrUnsupportedFormat = errors.New("unsupported subtitle format")

// Parser is the file-backed cue source used by the condenser.
type Parser struct{}

func (Parser) ParseFile(path string) ([]common.Cue, error) {
	return Parse(path)
}

// Parse reads path and dispatches on its extension.
func Parse(path string) ([]common.Cue, error) {
	var parse func([]byte) ([]common.Cue, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		parse = ParseSRT
	case ".vtt":
		parse = ParseVTT
	case ".ass", ".ssa":
		parse = ParseASS
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(content)
}

func lines(content []byte) []string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.Split(text, "\n")
}

func ParseSRT(content []byte) ([]common.Cue, error) {
	return parseArrowLines(content)
}

func ParseVTT(content []byte) ([]common.Cue, error) {
	all := lines(content)
	if len(all) == 0 || !strings.HasPrefix(strings.TrimSpace(all[0]), "WEBVTT") {
		return nil, errors.New("malformed subtitle file: missing WEBVTT signature")
	}
	return parseArrowLines(content)
}

// parseArrowLines collects every "start --> end" timing line. Anything after
// the end timestamp (VTT cue settings) is ignored.
func parseArrowLines(content []byte) ([]common.Cue, error) {
	cues := make([]common.Cue, 0)
	for n, line := range lines(content) {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		endFields := strings.Fields(parts[1])
		if len(endFields) == 0 {
			return nil, fmt.Errorf("line %d: missing end timestamp", n+1)
		}
		start, err := parseTimestamp(parts[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: start: %w", n+1, err)
		}
		end, err := parseTimestamp(endFields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: end: %w", n+1, err)
		}
		cues = append(cues, common.Cue{Start: start.Seconds(), End: end.Seconds()})
	}
	return cues, nil
}

// ParseASS reads Dialogue events from the [Events] section. Start and end are
// the second and third comma separated fields.
func ParseASS(content []byte) ([]common.Cue, error) {
	cues := make([]common.Cue, 0)
	for n, line := range lines(content) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(line, "Dialogue:"), ",", 10)
		if len(parts) < 10 {
			return nil, fmt.Errorf("line %d: malformed dialogue event", n+1)
		}
		start, err := parseTimestamp(parts[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: start: %w", n+1, err)
		}
		end, err := parseTimestamp(parts[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: end: %w", n+1, err)
		}
		cues = append(cues, common.Cue{Start: start.Seconds(), End: end.Seconds()})
	}
	return cues, nil
}

// parseTimestamp accepts H:MM:SS.fff, MM:SS.fff and SS.fff with either '.' or
// ',' before the fraction. The fraction may have one to three digits.
func parseTimestamp(timestamp string) (time.Duration, error) {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return 0, errors.New("empty timestamp")
	}
	whole, frac, _ := strings.Cut(strings.ReplaceAll(timestamp, ",", "."), ".")
	parts := strings.Split(whole, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("can't convert timestamp %q to duration", timestamp)
	}
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	var duration time.Duration
	for i := range parts {
		part := parts[len(parts)-1-i]
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return 0, fmt.Errorf("can't convert timestamp %q to duration: bad field %q", timestamp, part)
		}
		duration += time.Duration(value) * units[i]
	}
	if frac != "" {
		if len(frac) > 3 {
			frac = frac[:3]
		}
		for len(frac) < 3 {
			frac += "0"
		}
		millis, err := strconv.Atoi(frac)
		if err != nil || millis < 0 {
			return 0, fmt.Errorf("can't convert timestamp %q to duration: bad fraction", timestamp)
		}
		duration += time.Duration(millis) * time.Millisecond
	}
	return duration, nil
}
