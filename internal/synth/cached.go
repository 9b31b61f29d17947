package synth

import (
	"bytes"
	"context"
	"encoding/gob"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/cache"
)

// Cached wraps a Synthesizer with the clip cache. Identical requests to the
// same provider are served from the cache; cache failures are never fatal.
type Cached struct {
	next  Synthesizer
	store *cache.Store
}

// NewCached wraps next with store.
func NewCached(next Synthesizer, store *cache.Store) *Cached {
	return &Cached{next: next, store: store}
}

// Name implements Synthesizer.
func (c *Cached) Name() string { return c.next.Name() }

// Synthesize implements Synthesizer.
func (c *Cached) Synthesize(ctx context.Context, req Request) (*Result, error) {
	key := cacheKey(c.next.Name(), req)

	if data, ok := c.store.Get(key); ok {
		var res Result
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&res); err == nil {
			log.Debug("synthesis cache hit", "provider", c.next.Name(), "key", key)
			return &res, nil
		}
		c.store.Delete(key)
	}

	res, err := c.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(res); err != nil {
		log.Warn("unable to encode synthesis result for cache", "err", err)
		return res, nil
	}
	if err := c.store.Put(key, buf.Bytes()); err != nil {
		log.Debug("synthesis result not cached", "err", err)
	}
	return res, nil
}

func cacheKey(provider string, req Request) string {
	return cache.Key(provider, req.VoiceID, req.ModelID, req.Stability, req.Similarity, req.Text)
}
