package cache

import (
	"container/list"
	"sync"
	"time"
)

// memory is the L1 tier: an LRU bounded by total value size.
type memory struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type memoryEntry struct {
	key     string
	value   []byte
	created time.Time
}

func newMemory(capacity int64) *memory {
	return &memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

func (m *memory) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}

	m.eviction.MoveToFront(elem)
	m.stats.Hits++
	return elem.Value.(*memoryEntry).value, true
}

func (m *memory) put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := int64(len(value))
	if size > m.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}

	for m.size+size > m.capacity && m.eviction.Len() > 0 {
		m.remove(m.eviction.Back())
		m.stats.Evictions++
	}

	m.items[key] = m.eviction.PushFront(&memoryEntry{key: key, value: value, created: time.Now()})
	m.size += size
	return nil
}

func (m *memory) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
}

// prune drops entries created before cutoff and reports how many went.
func (m *memory) prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).created.Before(cutoff) {
			m.remove(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

func (m *memory) snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = m.size
	s.Items = int64(len(m.items))
	return s
}

// remove must be called with the lock held.
func (m *memory) remove(elem *list.Element) {
	entry := m.eviction.Remove(elem).(*memoryEntry)
	delete(m.items, entry.key)
	m.size -= int64(len(entry.value))
}
