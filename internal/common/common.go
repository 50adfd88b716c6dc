package common

import (
	"math"
	"time"
)

// Cue is one subtitle event, in seconds.
type Cue struct {
	Start float64
	End   float64
}

// Interval is a padded cue or, after merging, a dialogue window.
type Interval struct {
	Start float64
	End   float64
}

func (in Interval) Seconds() float64 {
	return in.End - in.Start
}

func (in Interval) Duration() time.Duration {
	return Seconds(in.Seconds())
}

// Signal is decoded planar audio. Every channel has the same length.
type Signal struct {
	SampleRate int
	Channels   [][]float32
}

func (s *Signal) Frames() int {
	if s == nil || len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

func (s *Signal) Duration() time.Duration {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return Seconds(float64(s.Frames()) / float64(s.SampleRate))
}

type CondenseFile struct {
	Input             string
	Output            string
	Sub               string
	Windows           []Interval
	OriginalDuration  time.Duration
	CondensedDuration time.Duration
	Bytes             int
	Err               error
}

// Seconds converts fractional seconds to a duration rounded to the millisecond.
func Seconds(s float64) time.Duration {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}
