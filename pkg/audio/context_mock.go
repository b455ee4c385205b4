package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MockContext implements Context without touching hardware. Players consume
// their reader up front and report playing for as long as the PCM would take
// to play at the context's format.
type MockContext struct {
	mu      sync.Mutex
	ready   bool
	format  Format
	players []*MockPlayer

	// FailNewPlayer, when set, is returned by NewPlayer.
	FailNewPlayer error

	// Test helpers
	PlayersCreated int
	PlayersClosed  int
}

// NewMockContext creates a ready mock context.
func NewMockContext(format Format) *MockContext {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		format = DefaultFormat()
	}
	return &MockContext{ready: true, format: format}
}

// NewPlayer creates a mock player holding all of r.
func (mc *MockContext) NewPlayer(r io.Reader) (Player, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.ready {
		return nil, errors.New("mock audio context not ready")
	}
	if mc.FailNewPlayer != nil {
		return nil, mc.FailNewPlayer
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	player := &MockPlayer{
		context:  mc,
		data:     data,
		duration: mc.format.Duration(len(data)),
		volume:   1,
	}
	mc.players = append(mc.players, player)
	mc.PlayersCreated++

	log.Debug("Created mock audio player", "data_size", len(data), "players_created", mc.PlayersCreated)
	return player, nil
}

// Close closes every player and marks the context unusable.
func (mc *MockContext) Close() error {
	mc.mu.Lock()
	players := mc.players
	mc.players = nil
	mc.ready = false
	mc.mu.Unlock()

	for _, p := range players {
		_ = p.Close()
	}
	return nil
}

func (mc *MockContext) IsReady() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.ready
}

func (mc *MockContext) SampleRate() int {
	return mc.format.SampleRate
}

func (mc *MockContext) ChannelCount() int {
	return mc.format.Channels
}

// Players returns the players created so far.
func (mc *MockContext) Players() []*MockPlayer {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]*MockPlayer(nil), mc.players...)
}

// Open returns the number of players created but not yet closed.
func (mc *MockContext) Open() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.PlayersCreated - mc.PlayersClosed
}

// MockPlayer implements Player for testing.
type MockPlayer struct {
	context  *MockContext
	data     []byte
	duration time.Duration

	mu        sync.Mutex
	started   time.Time
	pausedAt  time.Time
	pausedFor time.Duration
	playing   bool
	closed    bool
	volume    float64

	// Test helpers
	PlayCount  int
	PauseCount int
}

// Play starts or resumes the simulated playback.
func (mp *MockPlayer) Play() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.closed || mp.playing {
		return
	}
	now := time.Now()
	if mp.started.IsZero() {
		mp.started = now
	} else if !mp.pausedAt.IsZero() {
		mp.pausedFor += now.Sub(mp.pausedAt)
		mp.pausedAt = time.Time{}
	}
	mp.playing = true
	mp.PlayCount++
}

func (mp *MockPlayer) Pause() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.playing {
		mp.playing = false
		mp.pausedAt = time.Now()
		mp.PauseCount++
	}
}

// IsPlaying reports true until the simulated duration has elapsed.
func (mp *MockPlayer) IsPlaying() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.playing || mp.closed {
		return false
	}
	return time.Since(mp.started)-mp.pausedFor < mp.duration
}

func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return nil
	}
	mp.closed = true
	mp.playing = false
	mp.mu.Unlock()

	mp.context.mu.Lock()
	mp.context.PlayersClosed++
	mp.context.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (mp *MockPlayer) Closed() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.closed
}

func (mp *MockPlayer) SetVolume(volume float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.volume = volume
}

func (mp *MockPlayer) BufferedDuration() time.Duration {
	return 0
}

// Data returns the PCM handed to the player.
func (mp *MockPlayer) Data() []byte {
	return mp.data
}
