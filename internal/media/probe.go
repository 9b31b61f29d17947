package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrNoDuration is returned when a probed file reports no usable duration.
var ErrNoDuration = errors.New("media has no duration")

const defaultProbeTimeout = 30 * time.Second

// Probe returns the duration of path in seconds as reported by ffprobe.
func Probe(ctx context.Context, path string) (float64, error) {
	timeout := defaultProbeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return 0, &CommandError{Tool: "ffprobe", Args: []string{path}, Err: err}
	}
	return ParseDuration(out)
}

// ParseDuration reads the duration from ffprobe's JSON output: the
// container duration, or the longest stream when the container has none.
func ParseDuration(probeJSON string) (float64, error) {
	if !gjson.Valid(probeJSON) {
		return 0, fmt.Errorf("invalid ffprobe output")
	}

	if d := gjson.Get(probeJSON, "format.duration"); d.Exists() && d.Float() > 0 {
		return d.Float(), nil
	}

	longest := 0.0
	for _, d := range gjson.Get(probeJSON, "streams.#.duration").Array() {
		if v := d.Float(); v > longest {
			longest = v
		}
	}
	if longest <= 0 {
		return 0, ErrNoDuration
	}
	return longest, nil
}
