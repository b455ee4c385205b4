// Package audio owns the process-wide audio output device.
package audio

import (
	"errors"
	"io"
	"time"
)

// ErrUnavailable is returned when no output device can be opened.
var ErrUnavailable = errors.New("audio output unavailable")

// Context is an opened output device.
// This allows for both real (oto-based) and mock implementations.
type Context interface {
	// NewPlayer creates a player that reads PCM from r.
	NewPlayer(r io.Reader) (Player, error)

	// Close releases the device.
	Close() error

	// IsReady returns whether the context is ready for use.
	IsReady() bool

	SampleRate() int
	ChannelCount() int
}

// Player plays one PCM stream.
type Player interface {
	// Play starts or resumes playback.
	Play()

	// Pause pauses playback.
	Pause()

	// IsPlaying returns whether audio is currently playing.
	IsPlaying() bool

	// Close stops playback and releases the player.
	Close() error

	// SetVolume sets the playback volume (0.0 to 1.0).
	SetVolume(volume float64)

	// BufferedDuration returns the duration of audio queued but not yet heard.
	BufferedDuration() time.Duration
}

// ContextType selects the Context implementation.
type ContextType int

const (
	// ContextProduction uses real audio hardware via oto.
	ContextProduction ContextType = iota
	// ContextMock uses an in-memory implementation for testing.
	ContextMock
	// ContextAuto uses the mock in CI and the production context elsewhere.
	ContextAuto
)

// String returns the name used in configuration files.
func (t ContextType) String() string {
	switch t {
	case ContextProduction:
		return "production"
	case ContextMock:
		return "mock"
	case ContextAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseContextType parses a configuration value into a ContextType.
func ParseContextType(s string) (ContextType, bool) {
	switch s {
	case "production", "oto":
		return ContextProduction, true
	case "mock", "none":
		return ContextMock, true
	case "auto", "":
		return ContextAuto, true
	default:
		return ContextAuto, false
	}
}
