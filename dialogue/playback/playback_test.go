package playback

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/dialogue/codec"
	"github.com/rockhound/narrator/pkg/audio"
)

type recordingSink struct {
	mu        sync.Mutex
	amplitude float64
	viseme    int
	maxAmp    float64
	visemes   map[int]bool
	calls     int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{visemes: map[int]bool{}}
}

func (r *recordingSink) ShowText(string) {}

func (r *recordingSink) ShowLevels(amplitude float64, viseme int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.amplitude, r.viseme = amplitude, viseme
	if amplitude > r.maxAmp {
		r.maxAmp = amplitude
	}
	r.visemes[viseme] = true
	r.calls++
}

func (r *recordingSink) last() (float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.amplitude, r.viseme
}

func (r *recordingSink) sawViseme(v int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visemes[v]
}

func (r *recordingSink) peak() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxAmp
}

const testRate = 8000

func testOptions() Options {
	return Options{FrameInterval: 2 * time.Millisecond, AnalysisWindow: 64, Volume: 1}
}

func toneBuffer(d time.Duration) *codec.Buffer {
	frames := int(d.Seconds() * testRate)
	left := make([]float32, frames)
	for i := range left {
		left[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/testRate))
	}
	return &codec.Buffer{SampleRate: testRate, Data: [][]float32{left, append([]float32(nil), left...)}}
}

func toneSpeech(d time.Duration, visemes ...dialogue.VisemeEvent) *dialogue.Speech {
	frames := int(d.Seconds() * testRate)
	raw := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(12000 * math.Sin(2*math.Pi*220*float64(i)/testRate))
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
	}
	return &dialogue.Speech{
		Audio:      base64.StdEncoding.EncodeToString(raw),
		SampleRate: testRate,
		Channels:   1,
		Visemes:    visemes,
	}
}

func mockContext() *audio.MockContext {
	return audio.NewMockContext(audio.Format{SampleRate: testRate, Channels: 2})
}

func waitDone(t *testing.T, line dialogue.NarratedLine, timeout time.Duration) {
	t.Helper()
	select {
	case <-line.Done():
	case <-time.After(timeout):
		t.Fatal("line did not finish in time")
	}
}

func TestVisemeAt(t *testing.T) {
	events := []dialogue.VisemeEvent{{Time: 0, Value: 0}, {Time: 100, Value: 5}, {Time: 250, Value: 2}}

	tests := []struct {
		name    string
		events  []dialogue.VisemeEvent
		elapsed float64
		want    int
	}{
		{"between events", events, 120, 5},
		{"first event", events, 50, 0},
		{"after last", events, 300, 2},
		{"exactly on event", events, 250, 2},
		{"before first event", []dialogue.VisemeEvent{{Time: 40, Value: 9}}, 10, dialogue.VisemeClosed},
		{"no events", nil, 500, dialogue.VisemeClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisemeAt(tt.events, tt.elapsed); got != tt.want {
				t.Errorf("VisemeAt(%v) = %d, want %d", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestTapLevel(t *testing.T) {
	data := make([]float32, 100)
	for i := range data {
		data[i] = 0.5
	}
	buf := &codec.Buffer{SampleRate: testRate, Data: [][]float32{data, data}}
	tap := NewTap(buf, 10)

	if got := tap.Level(50); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("Level(50) = %f, want 0.5", got)
	}
	if got := tap.Level(0); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("Level(0) = %f, want 0.5", got)
	}
	if got := tap.Level(100); got != 0 {
		t.Errorf("Level past end = %f, want 0", got)
	}

	tap.Release()
	if got := tap.Level(50); got != 0 {
		t.Errorf("Level after Release = %f, want 0", got)
	}
}

func TestSessionEndsNaturally(t *testing.T) {
	ctx := mockContext()
	sink := newRecordingSink()

	s, err := Start(ctx, toneBuffer(60*time.Millisecond), nil, sink, testOptions())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.ID() == "" {
		t.Error("session should have an id")
	}

	waitDone(t, s, time.Second)
	if s.Reason() != dialogue.ReasonEnded {
		t.Errorf("Reason() = %v, want ended", s.Reason())
	}
	if ctx.Open() != 0 {
		t.Errorf("%d players still open", ctx.Open())
	}
	if amp, vis := sink.last(); amp != 0 || vis != dialogue.VisemeClosed {
		t.Errorf("final levels = %f, %d; want reset", amp, vis)
	}
	if sink.peak() <= 0.1 {
		t.Errorf("peak amplitude = %f, want a live signal", sink.peak())
	}
}

func TestSessionVisemes(t *testing.T) {
	sink := newRecordingSink()
	visemes := []dialogue.VisemeEvent{{Time: 0, Value: 1}, {Time: 30, Value: 7}}

	s, err := Start(mockContext(), toneBuffer(120*time.Millisecond), visemes, sink, testOptions())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, s, time.Second)

	if !sink.sawViseme(1) || !sink.sawViseme(7) {
		t.Error("sink should see both visemes during playback")
	}
}

func TestSessionStop(t *testing.T) {
	ctx := mockContext()
	sink := newRecordingSink()

	s, err := Start(ctx, toneBuffer(5*time.Second), nil, sink, testOptions())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	s.Stop()
	select {
	case <-s.Done():
	default:
		t.Fatal("Stop() should finish the session before returning")
	}
	s.Stop()
	s.StopWithReason(dialogue.ReasonStopped)

	if s.Reason() != dialogue.ReasonSuperseded {
		t.Errorf("Reason() = %v, want superseded", s.Reason())
	}
	if !ctx.Players()[0].Closed() {
		t.Error("player should be closed")
	}
	if amp, vis := sink.last(); amp != 0 || vis != dialogue.VisemeClosed {
		t.Errorf("levels after Stop = %f, %d; want reset", amp, vis)
	}
}

func TestSessionStopWithReason(t *testing.T) {
	s, err := Start(mockContext(), toneBuffer(time.Second), nil, newRecordingSink(), testOptions())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.StopWithReason(dialogue.ReasonStopped)
	if s.Reason() != dialogue.ReasonStopped {
		t.Errorf("Reason() = %v, want stopped", s.Reason())
	}
}

func TestSessionStartErrors(t *testing.T) {
	ctx := mockContext()
	ctx.FailNewPlayer = errors.New("device busy")

	if _, err := Start(ctx, toneBuffer(10*time.Millisecond), nil, newRecordingSink(), testOptions()); !errors.Is(err, dialogue.ErrDeviceUnavailable) {
		t.Errorf("Start() error = %v, want ErrDeviceUnavailable", err)
	}
	if _, err := Start(mockContext(), &codec.Buffer{SampleRate: testRate}, nil, newRecordingSink(), testOptions()); !errors.Is(err, dialogue.ErrDecode) {
		t.Errorf("Start(empty) error = %v, want ErrDecode", err)
	}
}

func TestPlayerSupersedesActiveSession(t *testing.T) {
	ctx := mockContext()
	p := NewPlayer(audio.NewDeviceWithContext(ctx), testOptions())

	a, err := p.Play(toneSpeech(5*time.Second), newRecordingSink())
	if err != nil {
		t.Fatalf("Play(A) error = %v", err)
	}
	b, err := p.Play(toneSpeech(5*time.Second), newRecordingSink())
	if err != nil {
		t.Fatalf("Play(B) error = %v", err)
	}
	defer b.Stop()

	select {
	case <-a.Done():
	default:
		t.Fatal("A should be finished when Play(B) returns")
	}
	if a.Reason() != dialogue.ReasonSuperseded {
		t.Errorf("A.Reason() = %v, want superseded", a.Reason())
	}
	players := ctx.Players()
	if len(players) != 2 || !players[0].Closed() || players[1].Closed() {
		t.Fatalf("players = %d, first closed = %v", len(players), players[0].Closed())
	}
	if ctx.Open() != 1 {
		t.Errorf("Open() = %d, want exactly one active player", ctx.Open())
	}
	if p.Active() != b {
		t.Error("Active() should be B")
	}

	// A second Stop of A must not fire again.
	a.Stop()
	if a.Reason() != dialogue.ReasonSuperseded {
		t.Errorf("A.Reason() changed to %v", a.Reason())
	}
}

func TestPlayerStopActive(t *testing.T) {
	p := NewPlayer(audio.NewDeviceWithContext(mockContext()), testOptions())
	line, err := p.Play(toneSpeech(time.Second), newRecordingSink())
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	p.StopActive(dialogue.ReasonStopped)
	if line.Reason() != dialogue.ReasonStopped {
		t.Errorf("Reason() = %v, want stopped", line.Reason())
	}
	if p.Active() != nil {
		t.Error("Active() should be nil after StopActive")
	}
}

func TestPlayerErrors(t *testing.T) {
	ctx := mockContext()
	p := NewPlayer(audio.NewDeviceWithContext(ctx), testOptions())

	_, err := p.Play(&dialogue.Speech{Audio: "%%%"}, newRecordingSink())
	if !errors.Is(err, dialogue.ErrDecode) {
		t.Errorf("Play(garbage) error = %v, want ErrDecode", err)
	}
	if ctx.PlayersCreated != 0 {
		t.Error("no player should be created for undecodable speech")
	}

	broken := audio.NewDevice(audio.Options{Type: audio.ContextType(42)})
	p = NewPlayer(broken, testOptions())
	_, err = p.Play(toneSpeech(10*time.Millisecond), newRecordingSink())
	if !errors.Is(err, dialogue.ErrDeviceUnavailable) {
		t.Errorf("Play() on broken device error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestPlayerResamplesToDeviceRate(t *testing.T) {
	ctx := audio.NewMockContext(audio.Format{SampleRate: 16000, Channels: 2})
	p := NewPlayer(audio.NewDeviceWithContext(ctx), testOptions())

	line, err := p.Play(toneSpeech(500*time.Millisecond), newRecordingSink())
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	defer line.Stop()

	s := line.(*Session)
	if s.buf.SampleRate != 16000 {
		t.Errorf("session buffer rate = %d, want 16000", s.buf.SampleRate)
	}
}
