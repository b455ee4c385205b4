package dialogue

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper builds a validated Config from viper's settings.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	// Sequencer
	loadDuration("sequencer.pacing_pause", &cfg.Sequencer.PacingPause)
	loadDuration("sequencer.auto_close_delay", &cfg.Sequencer.AutoCloseDelay)
	loadDuration("sequencer.notice_delay", &cfg.Sequencer.NoticeDelay)
	loadString("sequencer.ready_line", &cfg.Sequencer.ReadyLine)
	loadString("sequencer.quota_notice", &cfg.Sequencer.QuotaNotice)

	// Playback
	loadDuration("playback.frame_interval", &cfg.Playback.FrameInterval)
	loadInt("playback.analysis_window", &cfg.Playback.AnalysisWindow)
	if viper.IsSet("playback.volume") {
		cfg.Playback.Volume = viper.GetFloat64("playback.volume")
	}

	// Fallback
	loadDuration("fallback.reveal_interval", &cfg.Fallback.RevealInterval)
	loadDuration("fallback.tick_interval", &cfg.Fallback.TickInterval)
	if viper.IsSet("fallback.tick_volume") {
		cfg.Fallback.TickVolume = viper.GetFloat64("fallback.tick_volume")
	}
	if viper.IsSet("fallback.ticks") {
		cfg.Fallback.Ticks = viper.GetBool("fallback.ticks")
	}

	// Audio
	loadString("audio.device", &cfg.Audio.Device)
	loadInt("audio.sample_rate", &cfg.Audio.SampleRate)
	loadDuration("audio.buffer_size", &cfg.Audio.BufferSize)

	// Services
	loadString("service.kind", &cfg.Service.Kind)
	loadString("service.endpoint", &cfg.Service.Endpoint)
	loadString("service.api_key", &cfg.Service.APIKey)
	loadString("service.voice", &cfg.Service.Voice)
	loadInt("service.requests_per_minute", &cfg.Service.RequestsPerMinute)

	// Mock services
	loadDuration("mock.generation_delay", &cfg.Mock.GenerationDelay)
	loadInt("mock.words_per_minute", &cfg.Mock.WordsPerMinute)
	loadInt("mock.quota_after", &cfg.Mock.QuotaAfter)
	loadInt("mock.sample_rate", &cfg.Mock.SampleRate)
	if viper.IsSet("mock.failure_rate") {
		cfg.Mock.FailureRate = viper.GetFloat64("mock.failure_rate")
	}

	// Cache
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	loadString("cache.dir", &cfg.Cache.Dir)
	if viper.IsSet("cache.memory_capacity") {
		cfg.Cache.MemoryCapacity = viper.GetInt64("cache.memory_capacity")
	}
	if viper.IsSet("cache.disk_capacity") {
		cfg.Cache.DiskCapacity = viper.GetInt64("cache.disk_capacity")
	}
	loadInt("cache.compression_level", &cfg.Cache.CompressionLevel)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid narrator configuration: %w", err)
	}
	return cfg, nil
}

func loadString(key string, dst *string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func loadInt(key string, dst *int) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}

func loadDuration(key string, dst *time.Duration) {
	if viper.IsSet(key) {
		*dst = viper.GetDuration(key)
	}
}
