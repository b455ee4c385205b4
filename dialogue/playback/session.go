package playback

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/dialogue/codec"
	"github.com/rockhound/narrator/pkg/audio"
)

// Options tune the sampling loop of a session.
type Options struct {
	FrameInterval  time.Duration
	AnalysisWindow int
	Volume         float64
}

// DefaultOptions returns the sampling used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		FrameInterval:  16 * time.Millisecond,
		AnalysisWindow: 1024,
		Volume:         1,
	}
}

// Session is one line of audio playing on the device. While it plays, a
// loop reports amplitude and viseme to the sink once per frame interval.
type Session struct {
	id       string
	buf      *codec.Buffer
	visemes  []dialogue.VisemeEvent
	sink     dialogue.LineSink
	player   audio.Player
	tap      *Tap
	start    time.Time
	duration time.Duration

	done      *dialogue.Completion
	finishing atomic.Bool
	quit      chan struct{}
	loopDone  chan struct{}
}

// Start plays buf on ctx and begins sampling. The buffer is resampled to the
// device rate if needed. Errors are returned before anything plays: decode
// problems match dialogue.ErrDecode and device problems match
// dialogue.ErrDeviceUnavailable.
func Start(ctx audio.Context, buf *codec.Buffer, visemes []dialogue.VisemeEvent, sink dialogue.LineSink, opts Options) (*Session, error) {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultOptions().FrameInterval
	}
	if buf == nil || buf.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty buffer", dialogue.ErrDecode)
	}

	if rate := ctx.SampleRate(); buf.SampleRate != rate {
		resampled, err := codec.Resample(buf, rate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", dialogue.ErrDecode, err)
		}
		buf = resampled
	}

	pcm := codec.EncodePCM16(buf, ctx.ChannelCount())
	player, err := ctx.NewPlayer(bytes.NewReader(pcm))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dialogue.ErrDeviceUnavailable, err)
	}
	player.SetVolume(opts.Volume)

	s := &Session{
		id:       uuid.NewString(),
		buf:      buf,
		visemes:  visemes,
		sink:     sink,
		player:   player,
		tap:      NewTap(buf, opts.AnalysisWindow),
		duration: buf.Duration(),
		done:     dialogue.NewCompletion(),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	s.start = time.Now()
	player.Play()
	go s.loop(opts.FrameInterval)

	log.Debug("Playback started",
		"session", s.id,
		"duration", s.duration,
		"pcm", humanize.Bytes(uint64(len(pcm))),
		"visemes", len(visemes))
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Duration returns the playing time of the line.
func (s *Session) Duration() time.Duration {
	return s.duration
}

// Done is closed once the session has finished and released its player.
func (s *Session) Done() <-chan struct{} {
	return s.done.Done()
}

// Reason reports why the session finished.
func (s *Session) Reason() dialogue.Reason {
	return s.done.Reason()
}

// Stop ends playback with dialogue.ReasonSuperseded unless the session has
// already finished. It returns after the player has been released.
func (s *Session) Stop() {
	s.finish(dialogue.ReasonSuperseded, false)
}

// StopWithReason ends playback with the given reason.
func (s *Session) StopWithReason(r dialogue.Reason) {
	s.finish(r, false)
}

func (s *Session) loop(interval time.Duration) {
	defer close(s.loopDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(s.start)
			if elapsed >= s.duration {
				s.finish(dialogue.ReasonEnded, true)
				return
			}
			frame := int(elapsed.Seconds() * float64(s.buf.SampleRate))
			s.sink.ShowLevels(s.tap.Level(frame), VisemeAt(s.visemes, elapsed.Seconds()*1000))
		}
	}
}

// finish releases everything and fires the completion. Only the first
// caller does the work; other callers outside the loop wait for it.
func (s *Session) finish(r dialogue.Reason, fromLoop bool) {
	if !s.finishing.CompareAndSwap(false, true) {
		if !fromLoop {
			<-s.done.Done()
		}
		return
	}

	close(s.quit)
	if !fromLoop {
		<-s.loopDone
	}
	if err := s.player.Close(); err != nil {
		log.Debug("Failed to close player", "session", s.id, "error", err)
	}
	s.tap.Release()
	s.sink.ShowLevels(0, dialogue.VisemeClosed)
	s.done.Fire(r)

	log.Debug("Playback finished", "session", s.id, "reason", r, "elapsed", time.Since(s.start).Round(time.Millisecond))
}
