package audio

import (
	"testing"
	"time"
)

func TestPlayerConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    PlayerConfig
		expectErr bool
	}{
		{"default", DefaultPlayerConfig(), false},
		{"stereo 48000Hz", PlayerConfig{SampleRate: 48000, Channels: 2}, false},
		{"invalid sample rate", PlayerConfig{SampleRate: 22050, Channels: 1}, true},
		{"invalid channels", PlayerConfig{SampleRate: 44100, Channels: 3}, true},
		{"negative buffer", PlayerConfig{SampleRate: 44100, Channels: 1, BufferSize: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if (err != nil) != tt.expectErr {
				t.Errorf("validate() error = %v, expectErr %v", err, tt.expectErr)
			}
		})
	}
}

func TestPlayerConfig_Duration(t *testing.T) {
	mono := DefaultPlayerConfig()
	if got := mono.Duration(make([]byte, 44100*2)); got != time.Second {
		t.Errorf("Mono duration = %v, want 1s", got)
	}

	stereo := PlayerConfig{SampleRate: 48000, Channels: 2}
	if got := stereo.Duration(make([]byte, 48000*4/2)); got != 500*time.Millisecond {
		t.Errorf("Stereo duration = %v, want 500ms", got)
	}

	// A trailing partial frame is not played.
	if got := mono.Duration([]byte{0, 0, 0}); got != time.Second/44100 {
		t.Errorf("Partial frame duration = %v", got)
	}

	if got := (PlayerConfig{}).Duration([]byte{1, 2}); got != 0 {
		t.Errorf("Zero config duration = %v", got)
	}
}
