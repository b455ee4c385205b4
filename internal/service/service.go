package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/internal/cache"
)

// Services is the pair of backends a sequencer needs.
type Services struct {
	Generator   dialogue.Generator
	Synthesizer dialogue.Synthesizer
}

// New builds the services selected by cfg.Service.Kind. When store is not
// nil speech is cached in it.
func New(cfg dialogue.Config, store cache.Cache) (Services, error) {
	var s Services
	switch cfg.Service.Kind {
	case "mock", "":
		mock := NewMockService(cfg.Mock, uint64(time.Now().UnixNano()))
		s = Services{Generator: mock, Synthesizer: mock}
	case "http":
		client, err := NewHTTPClient(cfg.Service, &http.Client{})
		if err != nil {
			return Services{}, err
		}
		s = Services{Generator: client, Synthesizer: client}
	default:
		return Services{}, fmt.Errorf("%w: unknown service %q", dialogue.ErrInvalidConfig, cfg.Service.Kind)
	}

	if store != nil {
		s.Synthesizer = NewCachedSpeech(s.Synthesizer, store, cfg.Service.Voice)
	}
	return s, nil
}
