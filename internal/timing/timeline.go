package timing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Timeline is the merged, offset-corrected word sequence of a whole
// narration. Its JSON form is the contract between the narration stage and
// the composition stage.
type Timeline []WordTimestamp

// Text joins the words with single spaces.
func (t Timeline) Text() string {
	words := make([]string, len(t))
	for i, w := range t {
		words[i] = w.Word
	}
	return strings.Join(words, " ")
}

// Duration returns the end time of the last word.
func (t Timeline) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].EndTime
}

// Encode writes the timeline as indented JSON.
func (t Timeline) Encode(w io.Writer) error {
	if t == nil {
		t = Timeline{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}
	return nil
}

// Save writes the timeline to path, replacing any existing file atomically.
func (t Timeline) Save(path string) error {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write timeline: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write timeline: %w", err)
	}
	return nil
}

// rawWord mirrors WordTimestamp with optional times so entries lacking a
// time can be told apart from entries at zero.
type rawWord struct {
	Word      string   `json:"word"`
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
}

// Decode reads a JSON timeline. Entries without both times are skipped, the
// same way the subtitle burner ignores them; anything that is not a JSON
// array of word objects is rejected with ErrInvalidTimeline.
func Decode(r io.Reader) (Timeline, error) {
	var raw []rawWord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeline, err)
	}

	t := make(Timeline, 0, len(raw))
	for i, w := range raw {
		if w.StartTime == nil || w.EndTime == nil {
			continue
		}
		if *w.EndTime < *w.StartTime {
			return nil, fmt.Errorf("%w: word %d (%q) ends before it starts", ErrInvalidTimeline, i, w.Word)
		}
		t = append(t, WordTimestamp{Word: w.Word, StartTime: *w.StartTime, EndTime: *w.EndTime})
	}
	return t, nil
}

// Parse decodes a JSON timeline held in memory.
func Parse(data []byte) (Timeline, error) {
	return Decode(bytes.NewReader(data))
}

// Load reads a JSON timeline file.
func Load(path string) (Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open timeline: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Decode(f)
}
