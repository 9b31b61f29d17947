package story

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseMarkdown(t *testing.T) {
	input := "# The Last *Train*\n\n" +
		"It was late.\nThe platform was empty.\n\n" +
		"```\ncode is skipped\n```\n\n" +
		"- a [link](https://example.com) stays\n\n" +
		"## Later\n\n" +
		"She got on.\n"

	s := ParseMarkdown([]byte(input))

	if s.Title != "The Last Train" {
		t.Errorf("Title = %q", s.Title)
	}
	want := "It was late. The platform was empty.\n\na link stays\n\nLater\n\nShe got on."
	if s.Body != want {
		t.Errorf("Body = %q, want %q", s.Body, want)
	}
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
		want Story
	}{
		{
			name: "markdown",
			ext:  ".md",
			data: "# Title\n\nBody text.",
			want: Story{Title: "Title", Body: "Body text."},
		},
		{
			name: "yaml",
			ext:  ".yaml",
			data: "title: My  story\nbody: |\n  First.\n\n\n\n  Second.\n",
			want: Story{Title: "My story", Body: "First.\n\nSecond."},
		},
		{
			name: "plain text",
			ext:  ".txt",
			data: "\n\nA Title\r\nline one\r\n\r\nline two\r\n",
			want: Story{Title: "A Title", Body: "line one\n\nline two"},
		},
		{
			name: "unknown extension is text",
			ext:  ".story",
			data: "Only a title",
			want: Story{Title: "Only a title"},
		},
		{
			name: "nfc normalization",
			ext:  ".txt",
			data: "Cafe\u0301\nre\u0301sume\u0301",
			want: Story{Title: "Caf\u00e9", Body: "r\u00e9sum\u00e9"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.ext, []byte(tt.data))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if *got != tt.want {
				t.Errorf("Parse = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(".md", []byte("   \n\n")); !errors.Is(err, ErrEmptyStory) {
		t.Errorf("Expected ErrEmptyStory, got %v", err)
	}
	if _, err := Parse(".yaml", []byte("title: [unclosed")); err == nil {
		t.Error("Expected yaml error")
	}
}

func TestStory_Parts(t *testing.T) {
	tests := []struct {
		story Story
		want  []string
	}{
		{Story{Title: "T", Body: "B"}, []string{"T", "B"}},
		{Story{Title: "", Body: "B"}, []string{"B"}},
		{Story{Title: "T", Body: "  "}, []string{"T"}},
		{Story{}, []string{}},
	}
	for _, tt := range tests {
		if got := tt.story.Parts(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parts(%+v) = %v, want %v", tt.story, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.md")
	if err := os.WriteFile(path, []byte("# Hello\n\nWorld"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Title != "Hello" || s.Body != "World" {
		t.Errorf("Unexpected story %+v", s)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.md": true, "a.YAML": true, "a.txt": true, "a.mp4": false, "noext": false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
