package timing

import (
	"strings"
	"unicode"
)

// Reduce collapses a character-level alignment into word-level timestamps.
//
// Characters are scanned left to right. Whitespace and the final character
// are word boundaries. A word starts when its first non-space character
// starts and ends when its last non-space character ends; times are rounded
// to milliseconds. Runs of whitespace never produce empty words, and an
// empty alignment yields an empty result.
func Reduce(a Alignment) []WordTimestamp {
	n := a.Len()
	if n == 0 {
		return []WordTimestamp{}
	}

	words := make([]WordTimestamp, 0, n/4+1)

	var (
		current strings.Builder
		start   float64
		end     float64
	)

	for i := 0; i < n; i++ {
		char := a.Characters[i]
		last := i == n-1

		if !isSpace(char) {
			if current.Len() == 0 {
				start = a.StartTimes[i]
			}
			current.WriteString(char)
			end = a.EndTimes[i]
			if !last {
				continue
			}
		}

		// Boundary: whitespace or the final character.
		if current.Len() > 0 {
			words = append(words, WordTimestamp{
				Word:      current.String(),
				StartTime: round3(start),
				EndTime:   round3(end),
			})
			current.Reset()
		}

		// Provisional start for the next word; overwritten by its first character.
		start = a.EndTimes[i]
	}

	return words
}

// isSpace reports whether an alignment character is whitespace. Engines may
// emit multi-byte characters, so the whole string is checked.
func isSpace(char string) bool {
	if char == "" {
		return false
	}
	return strings.IndexFunc(char, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
