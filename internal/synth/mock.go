package synth

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"strings"
	"sync/atomic"

	"github.com/dgnsrekt/storyreel/internal/timing"
)

const (
	mockSampleRate = 44100

	// DefaultMockRate is the speaking rate of the mock provider in
	// characters per second.
	DefaultMockRate = 15.0
)

// Mock is a deterministic offline provider. Every character takes 1/rate
// seconds and the audio is silent 16-bit mono WAV of matching length, so
// the rest of the pipeline can run without network access.
type Mock struct {
	rate  float64
	calls atomic.Int64
}

// NewMock creates a mock provider speaking rate characters per second.
// A rate <= 0 uses DefaultMockRate.
func NewMock(rate float64) *Mock {
	if rate <= 0 {
		rate = DefaultMockRate
	}
	return &Mock{rate: rate}
}

// Name implements Synthesizer.
func (m *Mock) Name() string { return "mock" }

// Calls reports how many requests reached the mock.
func (m *Mock) Calls() int { return int(m.calls.Load()) }

// Synthesize implements Synthesizer.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	m.calls.Add(1)

	step := 1 / m.rate
	var a timing.Alignment
	for i, r := range []rune(req.Text) {
		a.Characters = append(a.Characters, string(r))
		a.StartTimes = append(a.StartTimes, math.Round(float64(i)*step*1000)/1000)
		a.EndTimes = append(a.EndTimes, math.Round(float64(i+1)*step*1000)/1000)
	}

	duration := 0.0
	if n := len(a.EndTimes); n > 0 {
		duration = a.EndTimes[n-1]
	}

	return &Result{
		Audio:     silentWAV(duration),
		Alignment: a,
		Format:    "wav",
	}, nil
}

// silentWAV encodes seconds of 16-bit mono PCM silence as a RIFF/WAVE file.
func silentWAV(seconds float64) []byte {
	samples := int(math.Round(seconds * mockSampleRate))
	dataSize := uint32(samples * 2)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16)) // chunk size
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(mockSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(mockSampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
