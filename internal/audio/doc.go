// Package audio plays decoded narration through the system audio device
// using oto/v3. It only understands 16-bit little-endian PCM; decoding is
// left to ffmpeg.
package audio
