// Package timing turns the character-level alignment returned by a speech
// synthesis service into word-level subtitle timestamps, and merges the
// timestamps of several independently synthesized clips into one timeline.
package timing
