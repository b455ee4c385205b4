package dialogue

import (
	"sync"
	"sync/atomic"
)

// Reason says why a narrated line finished.
type Reason int32

const (
	ReasonNone Reason = iota
	// ReasonEnded means the line played or revealed to the end.
	ReasonEnded
	// ReasonSuperseded means a newer line replaced it.
	ReasonSuperseded
	// ReasonStopped means the panel was closed.
	ReasonStopped
)

func (r Reason) String() string {
	switch r {
	case ReasonEnded:
		return "ended"
	case ReasonSuperseded:
		return "superseded"
	case ReasonStopped:
		return "stopped"
	default:
		return "pending"
	}
}

// Completion fires exactly once with a single reason.
type Completion struct {
	once   sync.Once
	done   chan struct{}
	reason atomic.Int32
}

// NewCompletion returns an unfired Completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Fire records r and closes Done. It returns false if already fired.
func (c *Completion) Fire(r Reason) bool {
	fired := false
	c.once.Do(func() {
		c.reason.Store(int32(r))
		close(c.done)
		fired = true
	})
	return fired
}

// Done is closed when the completion fires.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Reason returns the recorded reason, or ReasonNone before firing.
func (c *Completion) Reason() Reason {
	return Reason(c.reason.Load())
}

// Fired reports whether Fire has been called.
func (c *Completion) Fired() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
