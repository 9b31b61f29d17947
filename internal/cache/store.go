package cache

import (
	"fmt"
	"sync"
	"time"
)

// Store coordinates the memory and disk tiers. Either tier may be disabled
// through Config; with both disabled the store caches nothing.
type Store struct {
	l1  *memory
	l2  *disk
	ttl time.Duration

	mu     sync.RWMutex
	closed bool
}

// New creates a Store from cfg.
func New(cfg Config) (*Store, error) {
	s := &Store{ttl: cfg.TTL}

	if cfg.MemoryCapacity > 0 {
		s.l1 = newMemory(cfg.MemoryCapacity)
	}

	if cfg.Dir != "" && cfg.DiskCapacity > 0 {
		d, err := newDisk(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		s.l2 = d
	}

	return s, nil
}

// Get looks in L1 then L2. Disk hits are promoted to memory.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false
	}

	if s.l1 != nil {
		if data, ok := s.l1.get(key); ok {
			return data, true
		}
	}

	if s.l2 != nil {
		if data, ok := s.l2.get(key); ok {
			if s.l1 != nil {
				_ = s.l1.put(key, data) // best effort
			}
			return data, true
		}
	}

	return nil, false
}

// Put stores value in every enabled tier. An item too large for one tier
// is still stored in the others.
func (s *Store) Put(key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	var stored bool
	if s.l1 != nil {
		if err := s.l1.put(key, value); err == nil {
			stored = true
		} else if err != ErrItemTooLarge {
			return fmt.Errorf("L1 cache error: %w", err)
		}
	}
	if s.l2 != nil {
		if err := s.l2.put(key, value); err == nil {
			stored = true
		} else if err != ErrItemTooLarge {
			return fmt.Errorf("L2 cache error: %w", err)
		}
	}

	if !stored && (s.l1 != nil || s.l2 != nil) {
		return ErrItemTooLarge
	}
	return nil
}

// Delete removes key from every tier.
func (s *Store) Delete(key string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.l1 != nil {
		s.l1.delete(key)
	}
	if s.l2 != nil {
		s.l2.delete(key)
	}
}

// Prune drops entries older than the configured TTL and returns how many
// entries were removed across tiers.
func (s *Store) Prune() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-s.ttl)

	s.mu.RLock()
	defer s.mu.RUnlock()

	removed := 0
	if s.l1 != nil {
		removed += s.l1.prune(cutoff)
	}
	if s.l2 != nil {
		removed += s.l2.prune(cutoff)
	}
	return removed
}

// Stats returns per-tier statistics keyed by level.
func (s *Store) Stats() map[Level]Stats {
	stats := make(map[Level]Stats, 2)
	if s.l1 != nil {
		stats[LevelMemory] = s.l1.snapshot()
	}
	if s.l2 != nil {
		stats[LevelDisk] = s.l2.snapshot()
	}
	return stats
}

// Close persists the disk index. The store is unusable afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.l2 != nil {
		if err := s.l2.close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}
