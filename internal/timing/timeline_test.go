package timing

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestTimeline_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged_timestamps.json")

	tl := Timeline{
		{Word: "What's", StartTime: 0, EndTime: 0.31},
		{Word: "up", StartTime: 0.35, EndTime: 0.6},
	}
	if err := tl.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Word != "What's" || loaded[1].EndTime != 0.6 {
		t.Errorf("Loaded timeline mismatch: %+v", loaded)
	}
}

func TestTimeline_EncodeFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := (Timeline{{Word: "hi", StartTime: 0, EndTime: 0.2}}).Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out := buf.String()
	for _, key := range []string{`"word": "hi"`, `"startTime": 0`, `"endTime": 0.2`} {
		if !strings.Contains(out, key) {
			t.Errorf("Encoded timeline missing %s:\n%s", key, out)
		}
	}

	buf.Reset()
	if err := Timeline(nil).Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Nil timeline should encode as [], got %q", buf.String())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantWords int
		wantErr   bool
	}{
		{name: "valid", input: `[{"word":"a","startTime":0,"endTime":0.1}]`, wantWords: 1},
		{name: "empty array", input: `[]`, wantWords: 0},
		{name: "skips entries without times", input: `[{"word":"a","startTime":0},{"word":"b","startTime":0.2,"endTime":0.3}]`, wantWords: 1},
		{name: "not json", input: `word,start,end`, wantErr: true},
		{name: "not an array", input: `{"word":"a"}`, wantErr: true},
		{name: "ends before start", input: `[{"word":"a","startTime":1,"endTime":0.5}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeline) {
					t.Errorf("Expected ErrInvalidTimeline, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(tl) != tt.wantWords {
				t.Errorf("Expected %d words, got %d", tt.wantWords, len(tl))
			}
		})
	}
}

func TestTimeline_Duration(t *testing.T) {
	if d := (Timeline{}).Duration(); d != 0 {
		t.Errorf("Empty timeline duration = %v", d)
	}
	tl := Timeline{{Word: "a", EndTime: 1}, {Word: "b", StartTime: 1.2, EndTime: 3.25}}
	if d := tl.Duration(); d != 3.25 {
		t.Errorf("Duration = %v, want 3.25", d)
	}
}

func TestTimeline_WriteSRT(t *testing.T) {
	tl := Timeline{
		{Word: "Hello", StartTime: 0, EndTime: 0.5},
		{Word: "world", StartTime: 3661.25, EndTime: 3662.001},
	}

	var buf bytes.Buffer
	if err := tl.WriteSRT(&buf); err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}

	want := "1\n00:00:00,000 --> 00:00:00,500\nHello\n\n" +
		"2\n01:01:01,250 --> 01:01:02,001\nworld\n\n"
	if buf.String() != want {
		t.Errorf("SRT mismatch:\n got %q\nwant %q", buf.String(), want)
	}
}
