package service

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/internal/cache"
)

// CachedSpeech serves repeated lines from a cache before asking the
// wrapped synthesizer. Failures are never cached.
type CachedSpeech struct {
	next  dialogue.Synthesizer
	store cache.Cache
	voice string
}

// NewCachedSpeech wraps next with store. voice is part of the key so a voice
// change does not replay old audio.
func NewCachedSpeech(next dialogue.Synthesizer, store cache.Cache, voice string) *CachedSpeech {
	return &CachedSpeech{next: next, store: store, voice: voice}
}

func (c *CachedSpeech) Synthesize(ctx context.Context, text string) (*dialogue.Speech, error) {
	key := cache.Key(c.voice, text)

	if data, ok := c.store.Get(key); ok {
		var speech dialogue.Speech
		if err := json.Unmarshal(data, &speech); err == nil {
			log.Debug("Speech cache hit", "key", key, "size", humanize.Bytes(uint64(len(data))))
			return &speech, nil
		}
		log.Warn("Dropping unreadable cached speech", "key", key)
		_ = c.store.Delete(key)
	}

	speech, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(speech)
	if err == nil {
		err = c.store.Put(key, data)
	}
	if err != nil {
		log.Debug("Speech not cached", "key", key, "error", err)
	}
	return speech, nil
}

var _ dialogue.Synthesizer = (*CachedSpeech)(nil)
