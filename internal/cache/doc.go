// Package cache stores synthesized narration clips so re-rendering a story
// does not pay for the same speech twice. It has an in-memory LRU level (L1)
// in front of a zstd-compressed disk level (L2) with TTL pruning.
package cache
