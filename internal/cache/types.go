package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds a level's capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned when the cache is used after Close
	ErrClosed = errors.New("cache closed")
)

// Level identifies a cache tier.
type Level int

const (
	// LevelMemory is the in-memory LRU tier
	LevelMemory Level = iota

	// LevelDisk is the persistent compressed tier
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds counters for one cache tier.
type Stats struct {
	Capacity  int64
	Size      int64
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Config holds configuration for a Store.
type Config struct {
	// Memory tier capacity in bytes; 0 disables L1.
	MemoryCapacity int64

	// Disk tier capacity in bytes and location; empty Dir disables L2.
	DiskCapacity int64
	Dir          string

	// Zstd compression level (1-22); 0 stores clips uncompressed.
	CompressionLevel int

	// Entries older than TTL are dropped by Prune; 0 keeps them forever.
	TTL time.Duration
}

// DefaultConfig returns the default cache configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,  // 64MB
		DiskCapacity:     512 * 1024 * 1024, // 512MB
		Dir:              dir,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
	}
}

// Key derives a stable cache key from the parts that determine a clip.
func Key(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	hash := sha256.Sum256([]byte(strings.Join(strs, "|")))
	return hex.EncodeToString(hash[:16])
}
