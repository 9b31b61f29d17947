// Package story loads the stories storyreel narrates. A story is a title
// (spoken first as the prompt) and a body. Markdown, YAML and plain text
// files are supported.
package story

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrEmptyStory is returned when a story has neither title nor body.
var ErrEmptyStory = errors.New("story is empty")

// Story is a title and body to narrate.
type Story struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// Parts returns the texts to synthesize in order: the title, then the body.
// Empty parts are skipped.
func (s Story) Parts() []string {
	parts := make([]string, 0, 2)
	for _, p := range []string{s.Title, s.Body} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Validate reports ErrEmptyStory when there is nothing to narrate.
func (s Story) Validate() error {
	if len(s.Parts()) == 0 {
		return ErrEmptyStory
	}
	return nil
}

// Markdown renders the story back to markdown.
func (s Story) Markdown() string {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString("# ")
		b.WriteString(s.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(s.Body)
	b.WriteString("\n")
	return b.String()
}

// Normalize returns the story in NFC with unix line endings, trimmed, and
// with runs of blank lines collapsed to a single paragraph break.
func (s Story) Normalize() Story {
	return Story{
		Title: strings.Join(strings.Fields(normalize(s.Title)), " "),
		Body:  normalize(s.Body),
	}
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)*`)

func normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Load reads and parses the story at path; the format follows the
// extension.
func Load(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story: %w", err)
	}
	return Parse(filepath.Ext(path), data)
}

// Parse parses data in the format named by ext (".md", ".yaml", ".txt", …).
// Unknown extensions are read as plain text.
func Parse(ext string, data []byte) (*Story, error) {
	var (
		s   Story
		err error
	)
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".mdown", ".mkd":
		s = ParseMarkdown(data)
	case ".yaml", ".yml":
		s, err = ParseYAML(data)
	default:
		s = ParseText(data)
	}
	if err != nil {
		return nil, err
	}

	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseYAML reads a {title, body} document.
func ParseYAML(data []byte) (Story, error) {
	var s Story
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Story{}, fmt.Errorf("invalid story yaml: %w", err)
	}
	return s, nil
}

// ParseText treats the first non-empty line as the title and the rest as
// the body.
func ParseText(data []byte) Story {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimLeft(text, " \t\n")

	title, body, _ := strings.Cut(text, "\n")
	return Story{Title: title, Body: body}
}

// Supported reports whether path has an extension the watcher should pick
// up.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkd", ".yaml", ".yml", ".txt":
		return true
	}
	return false
}
