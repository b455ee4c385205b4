package playback

import (
	"math"
	"sync/atomic"

	"github.com/rockhound/narrator/dialogue/codec"
)

// Tap measures the loudness of a buffer around the play position.
type Tap struct {
	buf      *codec.Buffer
	window   int
	released atomic.Bool
}

// NewTap returns a tap averaging over window frames.
func NewTap(buf *codec.Buffer, window int) *Tap {
	if window < 1 {
		window = 1
	}
	return &Tap{buf: buf, window: window}
}

// Level returns the RMS of the first channel over the window ending at frame.
// It returns 0 once released or outside the buffer.
func (t *Tap) Level(frame int) float64 {
	if t.released.Load() || len(t.buf.Data) == 0 {
		return 0
	}
	samples := t.buf.Data[0]
	if frame < 0 || frame >= len(samples) {
		return 0
	}

	start := frame - t.window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, s := range samples[start : frame+1] {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(frame+1-start))
}

// Release stops the tap from reading its buffer.
func (t *Tap) Release() {
	t.released.Store(true)
}
