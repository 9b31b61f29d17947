package media

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/timing"
)

// Escaping follows the two levels ffmpeg applies to a filtergraph: first
// the option value inside a filter, then the graph description itself.
var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// EscapeValue escapes s for use as a filter option value in a filtergraph.
func EscapeValue(s string) string {
	return graphEscaper.Replace(optionEscaper.Replace(s))
}

// DefaultStyle is the subtitle look used when no style is configured.
var DefaultStyle = config.SubtitleStyle{
	FontFile:    "Bangers-Regular.ttf",
	FontSize:    60,
	FontColor:   "0xFAE54D",
	BorderWidth: 4,
	BorderColor: "black",
}

// SubtitleFilter builds a chain of drawtext filters, one per word. The word
// text itself never appears in the graph: textFiles[i] holds the text of
// words[i] and is drawn literally.
func SubtitleFilter(words timing.Timeline, textFiles []string, style config.SubtitleStyle) (string, error) {
	if len(words) != len(textFiles) {
		return "", fmt.Errorf("got %d words but %d text files", len(words), len(textFiles))
	}

	filters := make([]string, 0, len(words))
	for i, w := range words {
		filters = append(filters, drawtext(textFiles[i], w.StartTime, w.EndTime, style))
	}
	return strings.Join(filters, ",\n"), nil
}

func drawtext(textFile string, start, end float64, style config.SubtitleStyle) string {
	opts := []string{
		"textfile=" + EscapeValue(textFile),
		"expansion=none",
	}
	if style.FontFile != "" {
		opts = append(opts, "fontfile="+EscapeValue(style.FontFile))
	}
	if style.FontSize > 0 {
		opts = append(opts, "fontsize="+strconv.Itoa(style.FontSize))
	}
	if style.FontColor != "" {
		opts = append(opts, "fontcolor="+EscapeValue(style.FontColor))
	}
	if style.BorderWidth > 0 {
		opts = append(opts, "borderw="+strconv.Itoa(style.BorderWidth))
		if style.BorderColor != "" {
			opts = append(opts, "bordercolor="+EscapeValue(style.BorderColor))
		}
	}
	opts = append(opts,
		"x=(w-text_w)/2",
		"y=(h-text_h)/2",
		"enable="+EscapeValue(between(start, end)),
	)
	return "drawtext=" + strings.Join(opts, ":")
}

// OverlayFilter centers input 1 over input 0 between from and to seconds.
func OverlayFilter(from, to float64) string {
	return "[0:v][1:v]overlay=(W-w)/2:(H-h)/2:enable=" + EscapeValue(between(from, to)) + "[v]"
}

// MixFilter mixes the narration (input 1) with a cue sound (input 2) played
// at volume, lasting as long as the longer of the two.
func MixFilter(volume float64) string {
	return fmt.Sprintf("[2:a]volume=%s[cue];[1:a][cue]amix=inputs=2:duration=longest[a]", seconds(volume))
}

func between(start, end float64) string {
	return fmt.Sprintf("between(t,%s,%s)", seconds(start), seconds(end))
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
