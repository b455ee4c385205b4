package playback

import (
	"fmt"
	"sync"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/dialogue/codec"
	"github.com/rockhound/narrator/pkg/audio"
)

// Player plays synthesized lines on the shared device, one at a time.
type Player struct {
	device *audio.Device
	opts   Options

	mu     sync.Mutex
	active *Session
}

// NewPlayer returns a Player for device.
func NewPlayer(device *audio.Device, opts Options) *Player {
	return &Player{device: device, opts: opts}
}

// Play stops the current session, then decodes and starts speech. If
// decoding or the device fails, no session is started.
func (p *Player) Play(speech *dialogue.Speech, sink dialogue.LineSink) (dialogue.NarratedLine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		p.active.Stop()
		p.active = nil
	}

	buf, err := codec.DecodeSpeech(speech)
	if err != nil {
		return nil, err
	}

	ctx, err := p.device.Acquire()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dialogue.ErrDeviceUnavailable, err)
	}

	s, err := Start(ctx, buf, speech.Visemes, sink, p.opts)
	if err != nil {
		return nil, err
	}
	p.active = s
	return s, nil
}

// StopActive stops the current session, if any, with the given reason.
func (p *Player) StopActive(r dialogue.Reason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		p.active.StopWithReason(r)
		p.active = nil
	}
}

// Active returns the current session, or nil.
func (p *Player) Active() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		select {
		case <-p.active.Done():
			return nil
		default:
		}
	}
	return p.active
}

// SetOptions changes the sampling used by later sessions.
func (p *Player) SetOptions(opts Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
}
