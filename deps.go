package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/cache"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/journal"
	"github.com/dgnsrekt/storyreel/internal/media"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
	"github.com/dgnsrekt/storyreel/internal/storage"
	"github.com/dgnsrekt/storyreel/internal/synth"
	"github.com/dgnsrekt/storyreel/internal/titlecard"
	"github.com/dustin/go-humanize"
)

// deps are the collaborators built from the configuration.
type deps struct {
	cache     *cache.Store
	editor    *media.Editor
	synth     synth.Synthesizer
	renderer  titlecard.Renderer
	publisher storage.Publisher
	journal   journal.Journal
	pipeline  *pipeline.Pipeline
}

// openSynth builds the clip cache and the configured provider.
func openSynth(c *config.Config) (*cache.Store, synth.Synthesizer, error) {
	var store *cache.Store
	if c.Cache.Enabled {
		cc := cache.DefaultConfig(c.CacheDir())
		if c.Cache.MaxSizeMB > 0 {
			cc.DiskCapacity = int64(c.Cache.MaxSizeMB) << 20
		}
		cc.TTL = c.Cache.TTL

		s, err := cache.New(cc)
		if err != nil {
			log.Warn("clip cache disabled", "err", err)
		} else {
			store = s
			if n := s.Prune(); n > 0 {
				log.Debug("pruned expired clips", "count", n)
			}
		}
	}

	s, err := synth.New(c, store)
	if err != nil {
		closeCache(store)
		return nil, nil, err
	}
	return store, s, nil
}

func closeCache(store *cache.Store) {
	if store == nil {
		return
	}
	for level, st := range store.Stats() {
		log.Debug("clip cache",
			"level", level.String(),
			"items", st.Items,
			"size", humanize.IBytes(uint64(st.Size)), //nolint:gosec
			"hit_rate", fmt.Sprintf("%.0f%%", st.HitRate()*100))
	}
	if err := store.Close(); err != nil {
		log.Warn("unable to close clip cache", "err", err)
	}
}

// openDeps builds everything a full run needs.
func openDeps(ctx context.Context, c *config.Config) (*deps, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	d := &deps{editor: media.NewEditor(c.Media)}

	var err error
	if d.cache, d.synth, err = openSynth(c); err != nil {
		return nil, err
	}

	if d.renderer, err = titlecard.New(c.TitleCard); err != nil {
		d.Close()
		return nil, err
	}

	if d.publisher, err = storage.New(c); err != nil {
		d.Close()
		return nil, err
	}

	if d.journal, err = journal.Open(ctx, c.Secrets.DatabaseURL); err != nil {
		log.Warn("run journal disabled", "err", err)
		d.journal = journal.Nop{}
	}

	d.pipeline, err = pipeline.New(c, pipeline.Capabilities{
		Synthesizer: d.synth,
		Renderer:    d.renderer,
		Publisher:   d.publisher,
		Tools:       d.editor,
		Journal:     d.journal,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	log.Debug("pipeline ready",
		"synth", d.synth.Name(),
		"storage", c.Storage.Provider,
		"titlecard", c.TitleCard.Renderer)
	return d, nil
}

func (d *deps) Close() {
	if d.journal != nil {
		d.journal.Close()
	}
	closeCache(d.cache)
}
