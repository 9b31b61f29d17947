package timing

import (
	"errors"
	"fmt"
	"math"
)

// Common errors for timing operations
var (
	// ErrMalformedAlignment is returned when the parallel alignment arrays
	// disagree in length or carry impossible times.
	ErrMalformedAlignment = errors.New("malformed alignment")

	// ErrInvalidTimeline is returned when a serialized timeline cannot be decoded.
	ErrInvalidTimeline = errors.New("invalid timeline")
)

// Alignment is the character-level timing produced by a synthesis engine.
// The three slices are parallel: Characters[i] is spoken from StartTimes[i]
// to EndTimes[i], in seconds.
type Alignment struct {
	Characters []string  `json:"characters"`
	StartTimes []float64 `json:"character_start_times_seconds"`
	EndTimes   []float64 `json:"character_end_times_seconds"`
}

// Len returns the number of characters that can be safely indexed in all
// three slices.
func (a Alignment) Len() int {
	n := len(a.Characters)
	if len(a.StartTimes) < n {
		n = len(a.StartTimes)
	}
	if len(a.EndTimes) < n {
		n = len(a.EndTimes)
	}
	return n
}

// Text reconstructs the source text from the alignment characters.
func (a Alignment) Text() string {
	var n int
	for _, c := range a.Characters {
		n += len(c)
	}
	b := make([]byte, 0, n)
	for _, c := range a.Characters {
		b = append(b, c...)
	}
	return string(b)
}

// Validate checks the alignment preconditions: equal-length arrays,
// non-negative times, end >= start for every character and start times that
// never go backwards.
func (a Alignment) Validate() error {
	if len(a.Characters) != len(a.StartTimes) || len(a.Characters) != len(a.EndTimes) {
		return fmt.Errorf("%w: %d characters, %d start times, %d end times",
			ErrMalformedAlignment, len(a.Characters), len(a.StartTimes), len(a.EndTimes))
	}

	prev := 0.0
	for i := range a.Characters {
		start, end := a.StartTimes[i], a.EndTimes[i]
		switch {
		case start < 0 || end < 0:
			return fmt.Errorf("%w: negative time at character %d", ErrMalformedAlignment, i)
		case end < start:
			return fmt.Errorf("%w: character %d ends (%.3f) before it starts (%.3f)", ErrMalformedAlignment, i, end, start)
		case start < prev:
			return fmt.Errorf("%w: character %d starts at %.3f after %.3f", ErrMalformedAlignment, i, start, prev)
		}
		prev = start
	}
	return nil
}

// WordTimestamp is one subtitle word and the window during which it is spoken.
type WordTimestamp struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Shift returns a copy of w moved forward by offset seconds.
func (w WordTimestamp) Shift(offset float64) WordTimestamp {
	return WordTimestamp{
		Word:      w.Word,
		StartTime: round3(w.StartTime + offset),
		EndTime:   round3(w.EndTime + offset),
	}
}

// Segment is one synthesized clip's word timestamps together with the
// duration of its audio.
type Segment struct {
	Words    []WordTimestamp
	Duration float64
}

// End returns where the segment ends on its own clock: the end of its last
// word, or its declared duration when it has no words.
func (s Segment) End() float64 {
	if len(s.Words) == 0 {
		return s.Duration
	}
	return s.Words[len(s.Words)-1].EndTime
}

// round3 rounds to millisecond precision.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
