package dialogue

import (
	"fmt"
	"strings"
	"time"
)

// Config contains all narrator configuration options.
type Config struct {
	Sequencer SequencerConfig `yaml:"sequencer"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Audio     AudioConfig     `yaml:"audio"`
	Service   ServiceConfig   `yaml:"service"`
	Mock      MockConfig      `yaml:"mock"`
	Cache     CacheConfig     `yaml:"cache"`
}

// SequencerConfig controls pacing between lines and what happens at the end.
type SequencerConfig struct {
	PacingPause    time.Duration `yaml:"pacing_pause" env:"NARRATOR_PACING_PAUSE" envDefault:"600ms"`
	AutoCloseDelay time.Duration `yaml:"auto_close_delay" env:"NARRATOR_AUTO_CLOSE_DELAY" envDefault:"2500ms"`
	NoticeDelay    time.Duration `yaml:"notice_delay" env:"NARRATOR_NOTICE_DELAY" envDefault:"3s"`
	ReadyLine      string        `yaml:"ready_line" env:"NARRATOR_READY_LINE" envDefault:"Ready for your next request."`
	QuotaNotice    string        `yaml:"quota_notice" env:"NARRATOR_QUOTA_NOTICE" envDefault:"The guide needs a short break. Try again in a minute."`
}

// PlaybackConfig controls the amplitude and viseme sampling loop.
type PlaybackConfig struct {
	FrameInterval  time.Duration `yaml:"frame_interval" env:"NARRATOR_FRAME_INTERVAL" envDefault:"16ms"`
	AnalysisWindow int           `yaml:"analysis_window" env:"NARRATOR_ANALYSIS_WINDOW" envDefault:"1024"`
	Volume         float64       `yaml:"volume" env:"NARRATOR_VOLUME" envDefault:"1.0"`
}

// FallbackConfig controls the typed reveal used when audio is unavailable.
type FallbackConfig struct {
	RevealInterval time.Duration `yaml:"reveal_interval" env:"NARRATOR_REVEAL_INTERVAL" envDefault:"35ms"`
	TickInterval   time.Duration `yaml:"tick_interval" env:"NARRATOR_TICK_INTERVAL" envDefault:"80ms"`
	TickVolume     float64       `yaml:"tick_volume" env:"NARRATOR_TICK_VOLUME" envDefault:"0.3"`
	Ticks          bool          `yaml:"ticks" env:"NARRATOR_TICKS" envDefault:"true"`
}

// AudioConfig selects the output device.
type AudioConfig struct {
	Device     string        `yaml:"device" env:"NARRATOR_AUDIO_DEVICE" envDefault:"auto"`
	SampleRate int           `yaml:"sample_rate" env:"NARRATOR_SAMPLE_RATE" envDefault:"24000"`
	BufferSize time.Duration `yaml:"buffer_size" env:"NARRATOR_BUFFER_SIZE" envDefault:"50ms"`
}

// ServiceConfig selects and configures the dialogue and speech services.
type ServiceConfig struct {
	Kind              string `yaml:"kind" env:"NARRATOR_SERVICE" envDefault:"mock"`
	Endpoint          string `yaml:"endpoint" env:"NARRATOR_ENDPOINT"`
	APIKey            string `yaml:"api_key" env:"NARRATOR_API_KEY"`
	Voice             string `yaml:"voice" env:"NARRATOR_VOICE" envDefault:"guide"`
	RequestsPerMinute int    `yaml:"requests_per_minute" env:"NARRATOR_REQUESTS_PER_MINUTE" envDefault:"60"`
}

// MockConfig configures the offline services used for demos and tests.
type MockConfig struct {
	GenerationDelay time.Duration `yaml:"generation_delay" env:"NARRATOR_MOCK_GENERATION_DELAY" envDefault:"400ms"`
	WordsPerMinute  int           `yaml:"words_per_minute" env:"NARRATOR_MOCK_WORDS_PER_MINUTE" envDefault:"170"`
	FailureRate     float64       `yaml:"failure_rate" env:"NARRATOR_MOCK_FAILURE_RATE" envDefault:"0.0"`
	QuotaAfter      int           `yaml:"quota_after" env:"NARRATOR_MOCK_QUOTA_AFTER" envDefault:"0"`
	SampleRate      int           `yaml:"sample_rate" env:"NARRATOR_MOCK_SAMPLE_RATE" envDefault:"24000"`
}

// CacheConfig configures the synthesized speech cache.
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled" env:"NARRATOR_CACHE_ENABLED" envDefault:"true"`
	Dir              string `yaml:"dir" env:"NARRATOR_CACHE_DIR"`
	MemoryCapacity   int64  `yaml:"memory_capacity" env:"NARRATOR_CACHE_MEMORY_CAPACITY" envDefault:"33554432"`
	DiskCapacity     int64  `yaml:"disk_capacity" env:"NARRATOR_CACHE_DISK_CAPACITY" envDefault:"268435456"`
	CompressionLevel int    `yaml:"compression_level" env:"NARRATOR_CACHE_COMPRESSION_LEVEL" envDefault:"3"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Sequencer: DefaultSequencerConfig(),
		Playback: PlaybackConfig{
			FrameInterval:  16 * time.Millisecond,
			AnalysisWindow: 1024,
			Volume:         1.0,
		},
		Fallback: FallbackConfig{
			RevealInterval: 35 * time.Millisecond,
			TickInterval:   80 * time.Millisecond,
			TickVolume:     0.3,
			Ticks:          true,
		},
		Audio: AudioConfig{
			Device:     "auto",
			SampleRate: 24000,
			BufferSize: 50 * time.Millisecond,
		},
		Service: ServiceConfig{
			Kind:              "mock",
			Voice:             "guide",
			RequestsPerMinute: 60,
		},
		Mock: MockConfig{
			GenerationDelay: 400 * time.Millisecond,
			WordsPerMinute:  170,
			SampleRate:      24000,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryCapacity:   32 * 1024 * 1024,
			DiskCapacity:     256 * 1024 * 1024,
			CompressionLevel: 3,
		},
	}
}

// DefaultSequencerConfig returns the default pacing.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		PacingPause:    600 * time.Millisecond,
		AutoCloseDelay: 2500 * time.Millisecond,
		NoticeDelay:    3 * time.Second,
		ReadyLine:      "Ready for your next request.",
		QuotaNotice:    "The guide needs a short break. Try again in a minute.",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Sequencer.PacingPause < 0 || c.Sequencer.AutoCloseDelay < 0 || c.Sequencer.NoticeDelay < 0 {
		return fmt.Errorf("%w: sequencer delays must not be negative", ErrInvalidConfig)
	}

	if c.Playback.FrameInterval < time.Millisecond || c.Playback.FrameInterval > time.Second {
		return fmt.Errorf("%w: frame interval must be between 1ms and 1s, got %v", ErrInvalidConfig, c.Playback.FrameInterval)
	}
	if c.Playback.AnalysisWindow < 16 || c.Playback.AnalysisWindow > 1<<15 {
		return fmt.Errorf("%w: analysis window must be between 16 and 32768 frames, got %d", ErrInvalidConfig, c.Playback.AnalysisWindow)
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		return fmt.Errorf("%w: volume must be between 0.0 and 1.0, got %f", ErrInvalidConfig, c.Playback.Volume)
	}

	if c.Fallback.RevealInterval <= 0 {
		return fmt.Errorf("%w: reveal interval must be positive", ErrInvalidConfig)
	}
	if c.Fallback.TickInterval < 0 {
		return fmt.Errorf("%w: tick interval must not be negative", ErrInvalidConfig)
	}

	c.Audio.Device = strings.ToLower(c.Audio.Device)
	switch c.Audio.Device {
	case "auto", "production", "oto", "mock", "none":
	default:
		return fmt.Errorf("%w: unknown audio device %q", ErrInvalidConfig, c.Audio.Device)
	}
	validSampleRates := []int{8000, 16000, 22050, 24000, 44100, 48000}
	sampleRateValid := false
	for _, sr := range validSampleRates {
		if c.Audio.SampleRate == sr {
			sampleRateValid = true
			break
		}
	}
	if !sampleRateValid {
		return fmt.Errorf("%w: invalid sample rate %d: must be one of %v", ErrInvalidConfig, c.Audio.SampleRate, validSampleRates)
	}

	c.Service.Kind = strings.ToLower(c.Service.Kind)
	switch c.Service.Kind {
	case "mock":
	case "http":
		if c.Service.Endpoint == "" {
			return fmt.Errorf("%w: http service requires an endpoint", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown service %q: must be mock or http", ErrInvalidConfig, c.Service.Kind)
	}
	if c.Service.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests per minute must not be negative", ErrInvalidConfig)
	}

	if c.Mock.FailureRate < 0 || c.Mock.FailureRate > 1 {
		return fmt.Errorf("%w: mock failure rate must be between 0.0 and 1.0, got %f", ErrInvalidConfig, c.Mock.FailureRate)
	}
	if c.Mock.WordsPerMinute <= 0 {
		return fmt.Errorf("%w: mock words per minute must be positive", ErrInvalidConfig)
	}

	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("%w: compression level must be between 0 and 22, got %d", ErrInvalidConfig, c.Cache.CompressionLevel)
	}

	return nil
}
