package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Options configure how the output device is opened.
type Options struct {
	Type         ContextType
	Format       Format
	BufferSize   time.Duration
	ReadyTimeout time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Type:         ContextAuto,
		Format:       DefaultFormat(),
		BufferSize:   50 * time.Millisecond,
		ReadyTimeout: 5 * time.Second,
	}
}

// IsCI detects if we're running in a CI environment or mock audio was requested.
func IsCI() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"BUILDKITE",
	}
	for _, envVar := range ciVars {
		if val := os.Getenv(envVar); val != "" && val != "false" {
			log.Debug("CI environment detected", "variable", envVar)
			return true
		}
	}

	if os.Getenv("MOCK_AUDIO") == "true" || os.Getenv("NARRATOR_MOCK_AUDIO") == "true" {
		log.Debug("Mock audio requested via environment variable")
		return true
	}
	return false
}

// NewContext opens an output context of the requested type.
func NewContext(opts Options) (Context, error) {
	if opts.Format.SampleRate <= 0 || opts.Format.Channels <= 0 {
		opts.Format = DefaultFormat()
	}

	switch opts.Type {
	case ContextProduction:
		log.Debug("Creating production audio context")
		return newProduction(opts)

	case ContextMock:
		log.Debug("Creating mock audio context")
		return NewMockContext(opts.Format), nil

	case ContextAuto:
		if IsCI() {
			log.Info("Using mock audio context", "reason", "CI environment")
			return NewMockContext(opts.Format), nil
		}
		return newProduction(opts)

	default:
		return nil, fmt.Errorf("unknown audio context type: %v", opts.Type)
	}
}

func newProduction(opts Options) (Context, error) {
	pc, err := NewProductionContext(opts)
	if err != nil {
		return nil, err
	}
	return pc, nil
}
