package service

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/rockhound/narrator/dialogue"
)

// ErrMockFailure is returned when the mock simulates a speech failure.
var ErrMockFailure = errors.New("mock speech failure")

const defaultTopic = "the ridge"

var mockScripts = map[dialogue.Mode][]string{
	dialogue.ModeIntro: {
		"Welcome, prospector. I'm your field guide.",
		"Point the scanner at any stone and I'll tell you what it is.",
		"Let's start with %s.",
	},
	dialogue.ModeTour: {
		"This is the vault, where every find is catalogued.",
		"The map marks each site you have scouted.",
		"And the lab is where we take a closer look at %s.",
	},
	dialogue.ModeChallenge: {
		"Here's a challenge for you.",
		"Find a specimen near %s with visible crystal faces.",
		"Bring it back and we'll grade it together.",
	},
	dialogue.ModeReward: {
		"Outstanding work out there.",
		"Your find from %s has been added to the vault.",
	},
	dialogue.ModeScouting: {
		"Conditions look good for scouting.",
		"Loose scree around %s often hides agate nodules.",
		"Watch your footing on the way down.",
	},
	dialogue.ModeMenu: {
		"What would you like to do next?",
	},
}

// MockService generates canned scripts and synthetic speech offline.
type MockService struct {
	cfg dialogue.MockConfig

	mu    sync.Mutex
	rng   *rand.Rand
	calls int
}

// NewMockService returns a mock seeded with seed so failures are repeatable.
func NewMockService(cfg dialogue.MockConfig, seed uint64) *MockService {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = 170
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = dialogue.DefaultSampleRate
	}
	return &MockService{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate returns the canned script for mode after GenerationDelay.
func (m *MockService) Generate(ctx context.Context, mode dialogue.Mode, topic string) ([]string, error) {
	if err := m.count(); err != nil {
		return nil, err
	}
	if err := sleep(ctx, m.cfg.GenerationDelay); err != nil {
		return nil, err
	}

	if strings.TrimSpace(topic) == "" {
		topic = defaultTopic
	}
	lines := make([]string, 0, len(mockScripts[mode]))
	for _, line := range mockScripts[mode] {
		if strings.Contains(line, "%s") {
			line = fmt.Sprintf(line, topic)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Synthesize returns a voiced tone as long as text takes to say at
// WordsPerMinute, with visemes guessed from the spelling.
func (m *MockService) Synthesize(ctx context.Context, text string) (*dialogue.Speech, error) {
	if err := m.count(); err != nil {
		return nil, err
	}
	if m.fail() {
		return nil, ErrMockFailure
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := SpeakingTime(text, m.cfg.WordsPerMinute)
	pcm := voice(d, m.cfg.SampleRate)
	log.Debug("Mock speech", "text_len", len(text), "duration", d)

	return &dialogue.Speech{
		Audio:      base64.StdEncoding.EncodeToString(pcm),
		SampleRate: m.cfg.SampleRate,
		Channels:   1,
		Visemes:    VisemesFromText(text, d),
	}, nil
}

// Calls returns how many requests the mock has served.
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockService) count() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.cfg.QuotaAfter > 0 && m.calls > m.cfg.QuotaAfter {
		return dialogue.ErrQuota
	}
	return nil
}

func (m *MockService) fail() bool {
	if m.cfg.FailureRate <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.cfg.FailureRate
}

// SpeakingTime estimates how long text takes to say, with a 300ms floor.
func SpeakingTime(text string, wpm int) time.Duration {
	if wpm <= 0 {
		wpm = 170
	}
	words := len(strings.Fields(text))
	d := time.Duration(words) * time.Minute / time.Duration(wpm)
	return max(d, 300*time.Millisecond)
}

// voice renders mono PCM16: a low hum shaped into syllable-like bursts.
func voice(d time.Duration, sampleRate int) []byte {
	frames := int(int64(sampleRate) * int64(d) / int64(time.Second))
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		syllable := 0.5 - 0.5*math.Cos(2*math.Pi*4*t)
		s := 0.6 * syllable * (math.Sin(2*math.Pi*140*t) + 0.3*math.Sin(2*math.Pi*280*t))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s/1.3*math.MaxInt16)))
	}
	return out
}

// letterVisemes maps spelling to the 15 Oculus mouth shapes.
var letterVisemes = map[rune]int{
	'p': 1, 'b': 1, 'm': 1,
	'f': 2, 'v': 2,
	't': 4, 'd': 4,
	'k': 5, 'g': 5, 'c': 5, 'q': 5, 'x': 5,
	'j': 6,
	's': 7, 'z': 7,
	'n': 8, 'l': 8,
	'r': 9,
	'a': 10, 'h': 10,
	'e': 11,
	'i': 12, 'y': 12,
	'o': 13,
	'u': 14, 'w': 14,
}

var digraphVisemes = map[string]int{"th": 3, "ch": 6, "sh": 6}

// VisemesFromText spreads mouth shapes evenly over d. Word gaps close the
// mouth and the timeline ends closed.
func VisemesFromText(text string, d time.Duration) []dialogue.VisemeEvent {
	runes := []rune(strings.ToLower(strings.TrimSpace(text)))
	if len(runes) == 0 {
		return nil
	}

	step := float64(d.Milliseconds()) / float64(len(runes)+1)
	events := make([]dialogue.VisemeEvent, 0, len(runes)+1)
	last := -1
	emit := func(at float64, v int) {
		if v == last {
			return
		}
		events = append(events, dialogue.VisemeEvent{Time: math.Round(at), Value: v})
		last = v
	}

	for i := 0; i < len(runes); i++ {
		at := float64(i) * step
		r := runes[i]
		switch {
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			emit(at, dialogue.VisemeClosed)
		case i+1 < len(runes) && digraphVisemes[string(runes[i:i+2])] != 0:
			emit(at, digraphVisemes[string(runes[i:i+2])])
			i++
		default:
			if v, ok := letterVisemes[r]; ok {
				emit(at, v)
			}
		}
	}
	emit(float64(len(runes))*step, dialogue.VisemeClosed)
	return events
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ interface {
	dialogue.Generator
	dialogue.Synthesizer
} = (*MockService)(nil)
