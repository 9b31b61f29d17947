// Package media drives ffmpeg and ffprobe to assemble the final video.
//
// Every tool call goes through a Runner with an argument list and a
// timeout. User text is never placed on a command line: subtitle words are
// written to files and the drawtext graph is read from a script file.
package media
