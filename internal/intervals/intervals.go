package intervals

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

var ErrMalformedCue = errors.New("malformed cue")

// Validate rejects cues that would produce a negative or empty window.
func Validate(cues []common.Cue) error {
	for idx, cue := range cues {
		switch {
		case !finite(cue.Start) || !finite(cue.End):
			return fmt.Errorf("%w: cue %d has non-finite timing (%v, %v)", ErrMalformedCue, idx+1, cue.Start, cue.End)
		case cue.Start < 0:
			return fmt.Errorf("%w: cue %d starts before zero (%.3f)", ErrMalformedCue, idx+1, cue.Start)
		case cue.End <= cue.Start:
			return fmt.Errorf("%w: cue %d ends at %.3f, not after start %.3f", ErrMalformedCue, idx+1, cue.End, cue.Start)
		}
	}
	return nil
}

// Normalize pads every cue on both sides. Start is clamped at zero, end is
// left as is even when it runs past the audio.
func Normalize(cues []common.Cue, padding float64) []common.Interval {
	out := make([]common.Interval, 0, len(cues))
	for _, cue := range cues {
		out = append(out, common.Interval{
			Start: math.Max(0, cue.Start-padding),
			End:   cue.End + padding,
		})
	}
	return out
}

// Merge coalesces overlapping or touching intervals into sorted, strictly
// disjoint windows.
func Merge(in []common.Interval) []common.Interval {
	return MergeWithGap(in, 0)
}

// MergeWithGap is Merge that also bridges silences of up to gap seconds. The
// extended end is carried forward, so bridging is transitive.
func MergeWithGap(in []common.Interval, gap float64) []common.Interval {
	if len(in) == 0 {
		return []common.Interval{}
	}
	if gap < 0 {
		gap = 0
	}
	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, func(a, b common.Interval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	merged := make([]common.Interval, 0, len(sorted))
	acc := sorted[0]
	for _, curr := range sorted[1:] {
		if curr.Start <= acc.End+gap {
			acc.End = math.Max(acc.End, curr.End)
			continue
		}
		merged = append(merged, acc)
		acc = curr
	}
	return append(merged, acc)
}

// Total returns the summed length of the windows in seconds.
func Total(windows []common.Interval) float64 {
	var total float64
	for _, w := range windows {
		total += w.Seconds()
	}
	return total
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
