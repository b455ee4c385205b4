package dialogue

import "context"

// Generator produces the lines of a script for a mode.
type Generator interface {
	// Generate returns the ordered lines to narrate. Implementations return
	// an error matching ErrQuota when rate limited.
	Generate(ctx context.Context, mode Mode, topic string) ([]string, error)
}

// Synthesizer turns a line into speech.
type Synthesizer interface {
	// Synthesize returns encoded audio with optional visemes. Implementations
	// return an error matching ErrQuota when rate limited.
	Synthesize(ctx context.Context, text string) (*Speech, error)
}

// LineSink receives the display and animation updates of a narrated line.
type LineSink interface {
	ShowText(text string)
	ShowLevels(amplitude float64, viseme int)
}

// NarratedLine is a line being spoken or revealed.
type NarratedLine interface {
	// Done is closed once the line finishes for any reason.
	Done() <-chan struct{}

	// Reason reports why the line finished.
	Reason() Reason

	// Stop ends the line early with ReasonSuperseded. It is idempotent.
	Stop()

	// StopWithReason ends the line early with the given reason.
	StopWithReason(r Reason)
}

// LinePlayer plays synthesized speech. At most one line plays at a time:
// Play stops the previous line before the new one starts.
type LinePlayer interface {
	// Play decodes and starts speech. Decode and device failures are returned
	// here and no line is started.
	Play(speech *Speech, sink LineSink) (NarratedLine, error)
}

// LineRevealer renders a line without audio.
type LineRevealer interface {
	Reveal(text string, sink LineSink) NarratedLine
}
