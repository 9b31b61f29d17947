package timing

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// WriteSRT writes the timeline as a SubRip file, one cue per word.
func (t Timeline) WriteSRT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, word := range t {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(word.StartTime), srtTimestamp(word.EndTime), word.Word)
	}
	return bw.Flush()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
