package dialogue

import "sync"

// Snapshot is everything the rendering layer needs for one frame. Line is the
// 1-based index of the line being narrated, 0 before the first.
type Snapshot struct {
	Text       string
	Line       int
	Talking    bool
	Amplitude  float64
	Viseme     int
	State      State
	Mode       Mode
	Notice     string
	Generation uint64
}

// Panel returns which panel the UI should show.
func (s Snapshot) Panel() Panel {
	return s.State.Panel()
}

// Display holds the signals exposed to the rendering layer. Writes carry the
// generation that produced them and are dropped once a newer generation has
// begun, so an abandoned script can never touch what is on screen.
type Display struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewDisplay returns an idle, empty display.
func NewDisplay() *Display {
	return &Display{
		snap: Snapshot{State: StateIdle, Mode: ModeMenu, Viseme: VisemeClosed},
		subs: make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current values.
func (d *Display) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// Generation returns the generation currently allowed to write.
func (d *Display) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap.Generation
}

// Begin clears the display for a new generation. Older generations are
// rejected from here on.
func (d *Display) Begin(gen uint64, mode Mode, state State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen < d.snap.Generation {
		return
	}
	d.snap = Snapshot{
		State:      state,
		Mode:       mode,
		Viseme:     VisemeClosed,
		Generation: gen,
	}
	d.publish()
}

// Update applies fn if gen is still current. It reports whether it did.
func (d *Display) Update(gen uint64, fn func(*Snapshot)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.snap.Generation {
		return false
	}
	fn(&d.snap)
	d.snap.Generation = gen
	d.publish()
	return true
}

// Sink returns a LineSink whose writes only land while gen is current.
func (d *Display) Sink(gen uint64) LineSink {
	return &genSink{display: d, gen: gen}
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only see the most recent value.
func (d *Display) Subscribe() (<-chan Snapshot, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	ch := make(chan Snapshot, 1)
	d.subs[id] = ch
	ch <- d.snap

	return ch, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(ch)
		}
	}
}

// publish must be called with the lock held.
func (d *Display) publish() {
	for _, ch := range d.subs {
		select {
		case ch <- d.snap:
		default:
			// Replace the stale value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- d.snap:
			default:
			}
		}
	}
}

type genSink struct {
	display *Display
	gen     uint64
}

func (s *genSink) ShowText(text string) {
	s.display.Update(s.gen, func(snap *Snapshot) {
		snap.Text = text
	})
}

func (s *genSink) ShowLevels(amplitude float64, viseme int) {
	s.display.Update(s.gen, func(snap *Snapshot) {
		snap.Amplitude = amplitude
		snap.Viseme = viseme
	})
}
