package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// disk is the L2 tier. Clips are stored one file per key, optionally zstd
// compressed, with a gob index persisted on close.
type disk struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

// diskEntry is exported field-wise for gob.
type diskEntry struct {
	Key        string
	File       string
	Size       int64
	Created    time.Time
	LastAccess time.Time
	Compressed bool
}

func newDisk(dir string, capacity int64, level int) (*disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	d := &disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if level > 0 {
		var err error
		d.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		d.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	// A missing or unreadable index just means a cold cache.
	if err := d.loadIndex(); err != nil {
		d.index = make(map[string]*diskEntry)
	}
	for _, e := range d.index {
		d.size += e.Size
	}

	return d, nil
}

func (d *disk) get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.File)
	if err == nil && entry.Compressed {
		if d.decoder == nil {
			err = fmt.Errorf("compressed entry without decoder")
		} else {
			data, err = d.decoder.DecodeAll(data, nil)
		}
	}
	if err != nil {
		// Missing or corrupted file: forget it.
		d.drop(key, entry)
		d.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	d.stats.Hits++
	return data, true
}

func (d *disk) put(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, compressed := value, false
	if d.encoder != nil && len(value) > 1024 {
		if c := d.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data, compressed = c, true
		}
	}

	size := int64(len(data))
	if size > d.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := d.index[key]; ok {
		d.drop(key, existing)
	}
	for d.size+size > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	file := filepath.Join(d.dir, key+".clip")
	if err := writeAtomic(file, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	d.index[key] = &diskEntry{
		Key:        key,
		File:       file,
		Size:       size,
		Created:    now,
		LastAccess: now,
		Compressed: compressed,
	}
	d.size += size
	return nil
}

func (d *disk) delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.index[key]; ok {
		d.drop(key, entry)
	}
}

func (d *disk) prune(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, entry := range d.index {
		if entry.Created.Before(cutoff) {
			d.drop(key, entry)
			removed++
		}
	}
	return removed
}

func (d *disk) snapshot() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Size = d.size
	s.Items = int64(len(d.index))
	return s
}

func (d *disk) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		_ = d.encoder.Close()
	}
	if d.decoder != nil {
		d.decoder.Close()
	}
	return d.saveIndex()
}

// drop must be called with the lock held.
func (d *disk) drop(key string, entry *diskEntry) {
	os.Remove(entry.File)
	d.size -= entry.Size
	delete(d.index, key)
}

func (d *disk) evictOldest() {
	var oldest *diskEntry
	for _, e := range d.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		d.drop(oldest.Key, oldest)
		d.stats.Evictions++
	}
}

func (d *disk) loadIndex() error {
	f, err := os.Open(filepath.Join(d.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close() //nolint:errcheck

	return gob.NewDecoder(f).Decode(&d.index)
}

func (d *disk) saveIndex() error {
	path := filepath.Join(d.dir, indexFile)
	tempPath := path + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(d.index)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}

// writeAtomic writes to a temp file first, then renames it into place.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}
