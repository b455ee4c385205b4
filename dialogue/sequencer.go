package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Line outcomes reported to Hooks.OnLine.
const (
	LineSpoken   = "spoken"
	LineRevealed = "revealed"
)

// Script outcomes reported to Hooks.OnScript.
const (
	ScriptCompleted  = "completed"
	ScriptSuperseded = "superseded"
	ScriptQuota      = "quota"
	ScriptFailed     = "failed"
)

// Hooks observe the sequencer. All fields are optional. Hooks run on the
// sequencer's goroutines and must not call back into it.
type Hooks struct {
	OnStateChange func(from, to State)
	OnLine        func(mode Mode, outcome string)
	OnScript      func(mode Mode, outcome string)
	OnDismiss     func(mode Mode)
}

// Sequencer narrates scripts one line at a time.
//
// Every request captures a generation number. Start and Close bump the
// generation before doing anything else, and a run checks its generation
// each time it resumes from a service call, a line completion or a pause.
// A run that has lost its generation returns without touching the display.
type Sequencer struct {
	generator Generator
	synth     Synthesizer
	player    LinePlayer
	revealer  LineRevealer
	display   *Display
	hooks     Hooks

	mu      sync.Mutex
	cfg     SequencerConfig
	gen     uint64
	mode    Mode
	cancel  context.CancelFunc
	active  NarratedLine
	running chan struct{}
	closed  bool

	machine    *StateMachine
	deviceLost atomic.Bool
}

// NewSequencer wires a sequencer. A nil player sends every line to the revealer.
func NewSequencer(generator Generator, synth Synthesizer, player LinePlayer, revealer LineRevealer, display *Display, cfg SequencerConfig, hooks Hooks) *Sequencer {
	if display == nil {
		display = NewDisplay()
	}
	s := &Sequencer{
		generator: generator,
		synth:     synth,
		player:    player,
		revealer:  revealer,
		display:   display,
		hooks:     hooks,
		cfg:       cfg,
		mode:      ModeMenu,
		machine:   NewStateMachine(),
	}
	if player == nil {
		s.deviceLost.Store(true)
	}
	for _, st := range []State{StateIdle, StateThinking, StateNarrating, StateMenu} {
		to := st
		s.machine.OnEnter(to, func(from State) {
			log.Debug("Sequencer state changed", "from", from, "to", to)
			if s.hooks.OnStateChange != nil {
				s.hooks.OnStateChange(from, to)
			}
		})
	}
	return s
}

// Display returns the signals the sequencer writes to.
func (s *Sequencer) Display() *Display {
	return s.display
}

// State returns the current state.
func (s *Sequencer) State() State {
	return s.machine.Current()
}

// Mode returns the most recently requested mode.
func (s *Sequencer) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Generation returns the current generation.
func (s *Sequencer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// DeviceLost reports whether lines are being revealed because audio output failed.
func (s *Sequencer) DeviceLost() bool {
	return s.deviceLost.Load()
}

// SetConfig replaces the pacing used by later requests.
func (s *Sequencer) SetConfig(cfg SequencerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Start requests a script for mode and narrates it. Any script in progress
// is abandoned and its line stopped before Start returns.
func (s *Sequencer) Start(mode Mode, topic string) uint64 {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Warn("Ignoring request after shutdown", "mode", mode)
		return 0
	}
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	prev := s.active
	s.active = nil
	s.mode = mode
	s.machine.Transition(StateThinking)
	s.display.Begin(gen, mode, StateThinking)
	done := make(chan struct{})
	s.running = done
	cfg := s.cfg
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	log.Info("Script requested", "mode", mode, "topic", topic, "generation", gen)
	go s.run(ctx, gen, mode, topic, cfg, done)
	return gen
}

// Close abandons any script, stops the active line and clears the display.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	prev := s.active
	s.active = nil
	if s.machine.Current() != StateIdle {
		s.machine.Transition(StateIdle)
	}
	s.display.Begin(gen, s.mode, StateIdle)
	s.mu.Unlock()

	if prev != nil {
		prev.StopWithReason(ReasonStopped)
	}
	log.Debug("Sequencer closed", "generation", gen)
}

// Shutdown closes the sequencer for good and waits for the last run to return.
func (s *Sequencer) Shutdown() {
	s.Close()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Wait()
}

// Wait blocks until the most recent run has returned.
func (s *Sequencer) Wait() {
	s.mu.Lock()
	ch := s.running
	s.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (s *Sequencer) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// enter moves to state `to` if gen is still current and applies fn to the display.
func (s *Sequencer) enter(gen uint64, to State, fn func(*Snapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	if s.machine.Current() != to && !s.machine.Transition(to) {
		log.Warn("Invalid sequencer transition", "from", s.machine.Current(), "to", to)
	}
	s.display.Update(gen, func(snap *Snapshot) {
		snap.State = to
		if fn != nil {
			fn(snap)
		}
	})
	return true
}

func (s *Sequencer) run(ctx context.Context, gen uint64, mode Mode, topic string, cfg SequencerConfig, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Narration panicked", "mode", mode, "panic", r)
			s.enter(gen, StateMenu, func(snap *Snapshot) {
				snap.Talking = false
				snap.Notice = "Something went wrong."
			})
			s.scriptDone(mode, ScriptFailed)
		}
	}()

	lines, err := s.generator.Generate(ctx, mode, topic)
	if !s.current(gen) {
		s.scriptDone(mode, ScriptSuperseded)
		return
	}
	if err != nil {
		err = NewError(err, "generator", "generate")
		if errors.Is(err, ErrQuota) {
			s.quota(ctx, gen, mode, cfg, err)
			return
		}
		log.Error("Dialogue generation failed", "mode", mode, "error", err)
		s.enter(gen, StateMenu, func(snap *Snapshot) {
			snap.Notice = fmt.Sprintf("Couldn't prepare the %s script.", mode)
		})
		s.scriptDone(mode, ScriptFailed)
		return
	}

	script := append(Script(nil), lines...)
	if !s.enter(gen, StateNarrating, nil) {
		s.scriptDone(mode, ScriptSuperseded)
		return
	}
	log.Debug("Narrating script", "mode", mode, "lines", len(script), "generation", gen)

	for i, line := range script {
		err := s.narrate(ctx, gen, mode, i, line)
		if errors.Is(err, ErrQuota) {
			s.quota(ctx, gen, mode, cfg, err)
			return
		}
		if err != nil {
			s.scriptDone(mode, ScriptSuperseded)
			return
		}
		if !s.pause(ctx, gen, cfg.PacingPause) {
			s.scriptDone(mode, ScriptSuperseded)
			return
		}
	}

	s.finish(ctx, gen, mode, cfg)
}

// narrate speaks one line, falling back to a typed reveal when speech or
// playback fails. It returns ErrSuperseded if the generation was lost and an
// ErrQuota error if the speech service is rate limited.
func (s *Sequencer) narrate(ctx context.Context, gen uint64, mode Mode, index int, text string) error {
	sink := s.display.Sink(gen)
	outcome := LineRevealed
	var line NarratedLine

	if !s.deviceLost.Load() {
		speech, err := s.synth.Synthesize(ctx, text)
		if !s.current(gen) {
			return ErrSuperseded
		}
		switch {
		case errors.Is(err, ErrQuota):
			return NewError(err, "synthesizer", "synthesize").AtLine(index)
		case err != nil:
			log.Warn("Speech synthesis failed, revealing text", "line", index+1, "error", err)
		default:
			line, err = s.startSpeech(gen, index, text, speech, sink)
			switch {
			case errors.Is(err, ErrSuperseded):
				return err
			case errors.Is(err, ErrDeviceUnavailable):
				if s.deviceLost.CompareAndSwap(false, true) {
					log.Warn("Audio device unavailable, revealing remaining lines", "error", err)
				}
			case err != nil:
				log.Warn("Speech playback failed, revealing text", "line", index+1, "error", err)
			default:
				outcome = LineSpoken
			}
		}
	}

	if line == nil {
		var err error
		if line, err = s.startReveal(gen, index, text, sink); err != nil {
			return err
		}
	}

	select {
	case <-line.Done():
	case <-ctx.Done():
		return ErrSuperseded
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if s.active == line {
		s.active = nil
	}
	s.display.Update(gen, func(snap *Snapshot) {
		snap.Talking = false
		snap.Amplitude = 0
		snap.Viseme = VisemeClosed
	})
	s.mu.Unlock()

	log.Debug("Line finished", "line", index+1, "outcome", outcome, "reason", line.Reason())
	if s.hooks.OnLine != nil {
		s.hooks.OnLine(mode, outcome)
	}
	return nil
}

func (s *Sequencer) startSpeech(gen uint64, index int, text string, speech *Speech, sink LineSink) (NarratedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return nil, ErrSuperseded
	}
	line, err := s.player.Play(speech, sink)
	if err != nil {
		return nil, err
	}
	s.active = line
	s.display.Update(gen, func(snap *Snapshot) {
		snap.Text = text
		snap.Line = index + 1
		snap.Talking = true
	})
	return line, nil
}

func (s *Sequencer) startReveal(gen uint64, index int, text string, sink LineSink) (NarratedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return nil, ErrSuperseded
	}
	s.display.Update(gen, func(snap *Snapshot) {
		snap.Text = ""
		snap.Line = index + 1
		snap.Talking = true
	})
	line := s.revealer.Reveal(text, sink)
	s.active = line
	return line, nil
}

// pause waits d and reports whether gen is still current afterwards.
func (s *Sequencer) pause(ctx context.Context, gen uint64, d time.Duration) bool {
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return false
		}
	}
	return s.current(gen)
}

func (s *Sequencer) finish(ctx context.Context, gen uint64, mode Mode, cfg SequencerConfig) {
	if mode.AutoDismiss() {
		if !s.enter(gen, StateMenu, func(snap *Snapshot) { snap.Talking = false }) {
			s.scriptDone(mode, ScriptSuperseded)
			return
		}
		s.scriptDone(mode, ScriptCompleted)
		if s.pause(ctx, gen, cfg.AutoCloseDelay) {
			s.dismiss(gen, mode)
		}
		return
	}

	if s.enter(gen, StateMenu, func(snap *Snapshot) {
		snap.Text = cfg.ReadyLine
		snap.Talking = false
	}) {
		s.scriptDone(mode, ScriptCompleted)
	} else {
		s.scriptDone(mode, ScriptSuperseded)
	}
}

func (s *Sequencer) quota(ctx context.Context, gen uint64, mode Mode, cfg SequencerConfig, err error) {
	log.Warn("Service quota exceeded, abandoning script", "mode", mode, "error", err)
	if !s.enter(gen, StateMenu, func(snap *Snapshot) {
		snap.Notice = cfg.QuotaNotice
		snap.Talking = false
		snap.Amplitude = 0
		snap.Viseme = VisemeClosed
	}) {
		s.scriptDone(mode, ScriptSuperseded)
		return
	}
	s.scriptDone(mode, ScriptQuota)
	if s.pause(ctx, gen, cfg.NoticeDelay) {
		s.dismiss(gen, mode)
	}
}

// dismiss closes the panel on behalf of a run that still owns gen.
func (s *Sequencer) dismiss(gen uint64, mode Mode) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.machine.Transition(StateIdle)
	s.display.Begin(s.gen, mode, StateIdle)
	s.mu.Unlock()

	log.Info("Dialogue dismissed", "mode", mode)
	if s.hooks.OnDismiss != nil {
		s.hooks.OnDismiss(mode)
	}
}

func (s *Sequencer) scriptDone(mode Mode, outcome string) {
	if s.hooks.OnScript != nil {
		s.hooks.OnScript(mode, outcome)
	}
}
