//go:build !nocgo
// +build !nocgo

package audio

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// ProductionContext implements Context using oto.
type ProductionContext struct {
	context *oto.Context
	format  Format
	mu      sync.Mutex
	ready   bool
}

// NewProductionContext opens the oto context and waits for it to become ready.
func NewProductionContext(opts Options) (*ProductionContext, error) {
	pc := &ProductionContext{format: opts.Format}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		switch runtime.GOOS {
		case "darwin":
			bufferSize = 100 * time.Millisecond
		case "windows":
			bufferSize = 80 * time.Millisecond
		default:
			bufferSize = 50 * time.Millisecond
		}
	}
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 5 * time.Second
	}

	options := &oto.NewContextOptions{
		SampleRate:   opts.Format.SampleRate,
		ChannelCount: opts.Format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   bufferSize,
	}

	log.Debug("Initializing production audio context",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount,
		"buffer_size", options.BufferSize)

	context, readyChan, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}

	select {
	case <-readyChan:
		pc.context = context
		pc.ready = true
	case <-time.After(readyTimeout):
		// oto v3 contexts have no Close; it will be garbage collected.
		return nil, fmt.Errorf("audio context initialization timeout after %v", readyTimeout)
	}

	return pc, nil
}

// NewPlayer creates an oto player reading from r.
func (pc *ProductionContext) NewPlayer(r io.Reader) (Player, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if !pc.ready || pc.context == nil {
		return nil, fmt.Errorf("audio context not ready")
	}
	return &ProductionPlayer{player: pc.context.NewPlayer(r), volume: 1}, nil
}

// Close marks the context unusable. oto v3 keeps the device open until exit.
func (pc *ProductionContext) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.context != nil {
		if err := pc.context.Suspend(); err != nil {
			log.Debug("Failed to suspend audio context", "error", err)
		}
	}
	pc.ready = false
	pc.context = nil
	return nil
}

func (pc *ProductionContext) IsReady() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.ready
}

func (pc *ProductionContext) SampleRate() int {
	return pc.format.SampleRate
}

func (pc *ProductionContext) ChannelCount() int {
	return pc.format.Channels
}

// ProductionPlayer wraps an oto.Player.
type ProductionPlayer struct {
	player *oto.Player
	mu     sync.Mutex
	volume float64
}

func (pp *ProductionPlayer) Play() {
	pp.player.Play()
}

func (pp *ProductionPlayer) Pause() {
	pp.player.Pause()
}

func (pp *ProductionPlayer) IsPlaying() bool {
	return pp.player.IsPlaying()
}

func (pp *ProductionPlayer) Close() error {
	pp.player.Pause()
	return pp.player.Close()
}

func (pp *ProductionPlayer) SetVolume(volume float64) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.volume = volume
	pp.player.SetVolume(volume)
}

func (pp *ProductionPlayer) BufferedDuration() time.Duration {
	// oto reports buffered bytes, not time.
	return 0
}
