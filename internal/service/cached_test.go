package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/internal/cache"
)

type countingSynth struct {
	calls int
	err   error
}

func (s *countingSynth) Synthesize(_ context.Context, text string) (*dialogue.Speech, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &dialogue.Speech{
		Audio:      "AAAA",
		SampleRate: 16000,
		Visemes:    []dialogue.VisemeEvent{{Time: 0, Value: 10}},
	}, nil
}

func TestCachedSpeechServesRepeats(t *testing.T) {
	next := &countingSynth{}
	store := cache.NewMemoryCache(1 << 20)
	c := NewCachedSpeech(next, store, "guide")

	for i := 0; i < 3; i++ {
		speech, err := c.Synthesize(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		if speech.SampleRate != 16000 || len(speech.Visemes) != 1 {
			t.Errorf("speech = %+v", speech)
		}
	}
	if next.calls != 1 {
		t.Errorf("backend calls = %d, want 1", next.calls)
	}

	_, _ = c.Synthesize(context.Background(), "goodbye")
	if next.calls != 2 {
		t.Errorf("backend calls = %d, want 2", next.calls)
	}
}

func TestCachedSpeechKeysByVoice(t *testing.T) {
	next := &countingSynth{}
	store := cache.NewMemoryCache(1 << 20)

	_, _ = NewCachedSpeech(next, store, "guide").Synthesize(context.Background(), "hello")
	_, _ = NewCachedSpeech(next, store, "miner").Synthesize(context.Background(), "hello")
	if next.calls != 2 {
		t.Errorf("backend calls = %d, want 2", next.calls)
	}
}

func TestCachedSpeechDoesNotCacheErrors(t *testing.T) {
	next := &countingSynth{err: dialogue.ErrQuota}
	store := cache.NewMemoryCache(1 << 20)
	c := NewCachedSpeech(next, store, "guide")

	for i := 0; i < 2; i++ {
		if _, err := c.Synthesize(context.Background(), "hello"); !errors.Is(err, dialogue.ErrQuota) {
			t.Fatalf("error = %v, want ErrQuota", err)
		}
	}
	if next.calls != 2 || store.Size() != 0 {
		t.Errorf("calls=%d size=%d", next.calls, store.Size())
	}
}

func TestCachedSpeechReplacesCorruptEntry(t *testing.T) {
	next := &countingSynth{}
	store := cache.NewMemoryCache(1 << 20)
	_ = store.Put(cache.Key("guide", "hello"), []byte("{not json"))

	c := NewCachedSpeech(next, store, "guide")
	if _, err := c.Synthesize(context.Background(), "hello"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if next.calls != 1 {
		t.Errorf("backend calls = %d, want 1", next.calls)
	}
	if _, err := c.Synthesize(context.Background(), "hello"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if next.calls != 1 {
		t.Error("repaired entry should be served from cache")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		cached  bool
		wantErr bool
	}{
		{"mock", "mock", false, false},
		{"mock cached", "mock", true, false},
		{"http without endpoint", "http", false, true},
		{"unknown", "carrier-pigeon", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := dialogue.DefaultConfig()
			cfg.Service.Kind = tt.kind
			var store cache.Cache
			if tt.cached {
				store = cache.NewMemoryCache(1024)
			}

			s, err := New(cfg, store)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, dialogue.ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			_, isCached := s.Synthesizer.(*CachedSpeech)
			if isCached != tt.cached {
				t.Errorf("cached = %v, want %v", isCached, tt.cached)
			}
		})
	}
}
