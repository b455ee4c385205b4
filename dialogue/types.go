// Package dialogue sequences narrated scripts: each line is synthesized,
// played with a live amplitude and viseme signal, and replaced by a typed
// reveal whenever audio cannot be produced.
package dialogue

import (
	"fmt"
	"strings"
)

// VisemeClosed is the mouth shape shown before the first event and between lines.
const VisemeClosed = 0

// Default speech format when a response omits it.
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
)

// VisemeEvent marks the mouth shape that starts at Time milliseconds into a line.
type VisemeEvent struct {
	Time  float64 `json:"time"`
	Value int     `json:"value"`
}

// Speech is a synthesized line: base64 PCM16 plus optional viseme timing.
type Speech struct {
	Audio      string        `json:"audio"`
	SampleRate int           `json:"sample_rate,omitempty"`
	Channels   int           `json:"channels,omitempty"`
	Visemes    []VisemeEvent `json:"visemes,omitempty"`
}

// Format returns the sample rate and channel count with defaults applied.
func (s *Speech) Format() (sampleRate, channels int) {
	sampleRate, channels = s.SampleRate, s.Channels
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = DefaultChannels
	}
	return sampleRate, channels
}

// Script is an ordered list of lines. Playback order is slice order.
type Script []string

// Mode selects which script is requested and what happens when it ends.
type Mode int

const (
	ModeIntro Mode = iota
	ModeTour
	ModeChallenge
	ModeReward
	ModeScouting
	ModeMenu
)

var modeNames = [...]string{"intro", "tour", "challenge", "reward", "scouting", "menu"}

// Modes lists every mode in menu order.
func Modes() []Mode {
	return []Mode{ModeIntro, ModeTour, ModeChallenge, ModeReward, ModeScouting, ModeMenu}
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// AutoDismiss reports whether the panel closes by itself once the script ends.
func (m Mode) AutoDismiss() bool {
	switch m {
	case ModeIntro, ModeTour, ModeScouting:
		return true
	default:
		return false
	}
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return ModeMenu, fmt.Errorf("unknown mode %q: must be one of %v", s, modeNames)
}

// Panel is what the surrounding UI shows: a script being narrated or the menu.
type Panel int

const (
	PanelMenu Panel = iota
	PanelScript
)

func (p Panel) String() string {
	if p == PanelScript {
		return "script"
	}
	return "menu"
}
