// Package fallback reveals lines as typed text when speech cannot be played.
package fallback

import (
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/rockhound/narrator/dialogue"
)

// Defaults used when a Typewriter field is zero.
const (
	DefaultInterval     = 35 * time.Millisecond
	DefaultTickInterval = 80 * time.Millisecond
	DefaultPulse        = 0.3
)

// Clicker makes the short tick that accompanies a revealed character.
type Clicker interface {
	Click()
}

// NopClicker makes no sound.
type NopClicker struct{}

func (NopClicker) Click() {}

// Typewriter reveals text one character per Interval. Ticks are limited to
// one per TickInterval so short intervals do not pile up overlapping sounds.
type Typewriter struct {
	Interval     time.Duration
	TickInterval time.Duration
	Pulse        float64
	Clicker      Clicker
}

// NewTypewriter returns a Typewriter with default timing.
func NewTypewriter(clicker Clicker) *Typewriter {
	return &Typewriter{
		Interval:     DefaultInterval,
		TickInterval: DefaultTickInterval,
		Pulse:        DefaultPulse,
		Clicker:      clicker,
	}
}

// Reveal starts revealing text to sink. The returned line ends with
// dialogue.ReasonEnded once the whole text is shown.
func (tw *Typewriter) Reveal(text string, sink dialogue.LineSink) dialogue.NarratedLine {
	interval := tw.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tick := tw.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	clicker := tw.Clicker
	if clicker == nil {
		clicker = NopClicker{}
	}

	r := &reveal{
		runes:    []rune(text),
		sink:     sink,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(tick), 1),
		clicker:  clicker,
		pulse:    tw.Pulse,
		done:     dialogue.NewCompletion(),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go r.run()
	return r
}

type reveal struct {
	runes    []rune
	sink     dialogue.LineSink
	interval time.Duration
	limiter  *rate.Limiter
	clicker  Clicker
	pulse    float64

	done      *dialogue.Completion
	finishing atomic.Bool
	quit      chan struct{}
	loopDone  chan struct{}
}

func (r *reveal) Done() <-chan struct{} {
	return r.done.Done()
}

func (r *reveal) Reason() dialogue.Reason {
	return r.done.Reason()
}

func (r *reveal) Stop() {
	r.finish(dialogue.ReasonSuperseded, false)
}

func (r *reveal) StopWithReason(reason dialogue.Reason) {
	r.finish(reason, false)
}

func (r *reveal) run() {
	defer close(r.loopDone)

	if len(r.runes) == 0 {
		r.sink.ShowText("")
		r.finish(dialogue.ReasonEnded, true)
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	shown := 0
	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			shown++
			r.sink.ShowText(string(r.runes[:shown]))

			level := 0.0
			if !unicode.IsSpace(r.runes[shown-1]) && r.limiter.Allow() {
				r.clicker.Click()
				level = r.pulse
			}
			r.sink.ShowLevels(level, dialogue.VisemeClosed)

			if shown == len(r.runes) {
				r.finish(dialogue.ReasonEnded, true)
				return
			}
		}
	}
}

func (r *reveal) finish(reason dialogue.Reason, fromLoop bool) {
	if !r.finishing.CompareAndSwap(false, true) {
		if !fromLoop {
			<-r.done.Done()
		}
		return
	}
	close(r.quit)
	if !fromLoop {
		<-r.loopDone
	}
	r.sink.ShowLevels(0, dialogue.VisemeClosed)
	r.done.Fire(reason)
}
