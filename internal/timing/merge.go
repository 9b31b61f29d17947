package timing

import (
	"regexp"
	"strings"
)

// DefaultGap is the silence inserted between stitched narration clips.
const DefaultGap = 0.5

var (
	multiNewline  = regexp.MustCompile(`(?:\r?\n){2,}`)
	singleNewline = regexp.MustCompile(`\r?\n`)
)

// Merge concatenates the word timestamps of several clips into one timeline
// that matches the clips' audio stitched together with gap seconds of
// silence between each pair.
//
// The first segment passes through unchanged. Every later segment is shifted
// by the merged end of the segment before it plus gap. A segment's end is the
// end time of its last word, or its declared duration when it has no words,
// so an empty segment still moves everything after it.
//
// Word text is sanitized for the text overlay; words that end up empty are
// dropped.
func Merge(segments []Segment, gap float64) Timeline {
	var total int
	for _, s := range segments {
		total += len(s.Words)
	}

	merged := make(Timeline, 0, total)
	offset := 0.0

	for i, s := range segments {
		if i > 0 {
			offset = round3(offset + segments[i-1].End() + gap)
		}

		for _, w := range s.Words {
			w.Word = Sanitize(w.Word)
			if w.Word == "" {
				continue
			}
			if i == 0 {
				merged = append(merged, w)
				continue
			}
			merged = append(merged, w.Shift(offset))
		}
	}

	return merged
}

// Sanitize prepares a word for the text overlay, which cannot draw line
// breaks: runs of two or more newlines become a single space and remaining
// single newlines are removed.
func Sanitize(word string) string {
	if !strings.ContainsAny(word, "\r\n") {
		return word
	}
	word = multiNewline.ReplaceAllString(word, " ")
	word = singleNewline.ReplaceAllString(word, "")
	return strings.TrimSpace(word)
}
