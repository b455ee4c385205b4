package audio

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestDeviceOpensLazilyOnce(t *testing.T) {
	opens := 0
	d := &Device{
		opts: Options{Format: DefaultFormat()},
		open: func(o Options) (Context, error) {
			opens++
			return NewMockContext(o.Format), nil
		},
	}

	if d.Opened() {
		t.Fatal("device should not be opened before Acquire")
	}
	if opens != 0 {
		t.Fatalf("opens = %d before Acquire, want 0", opens)
	}

	first, err := d.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	second, err := d.Acquire()
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if first != second {
		t.Error("Acquire() returned different contexts")
	}
	if opens != 1 {
		t.Errorf("opens = %d, want 1", opens)
	}
}

func TestDeviceFailureIsSticky(t *testing.T) {
	opens := 0
	boom := errors.New("no sound card")
	d := &Device{
		opts: DefaultOptions(),
		open: func(Options) (Context, error) {
			opens++
			return nil, boom
		},
	}

	for i := 0; i < 3; i++ {
		_, err := d.Acquire()
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Acquire() error = %v, want ErrUnavailable", err)
		}
		if !errors.Is(err, boom) {
			t.Fatalf("Acquire() error = %v, want wrapped cause", err)
		}
	}
	if opens != 1 {
		t.Errorf("opens = %d, want 1", opens)
	}
}

func TestDeviceClose(t *testing.T) {
	mock := NewMockContext(DefaultFormat())
	d := NewDeviceWithContext(mock)

	if _, err := d.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if mock.IsReady() {
		t.Error("context should be closed")
	}
	if _, err := d.Acquire(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Acquire() after Close error = %v, want ErrUnavailable", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDeviceDone(t *testing.T) {
	d := NewDeviceWithContext(NewMockContext(DefaultFormat()))
	done := d.Done()

	select {
	case <-done:
		t.Fatal("Done() closed before Close")
	default:
	}
	_ = d.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Close")
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done() after Close should already be closed")
	}
}

func TestDeviceFormat(t *testing.T) {
	d := NewDevice(Options{Type: ContextMock, Format: Format{SampleRate: 16000, Channels: 2}})
	if got := d.Format(); got.SampleRate != 16000 || got.Channels != 2 {
		t.Errorf("Format() = %+v before open", got)
	}
	if _, err := d.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got := d.Format(); got.SampleRate != 16000 {
		t.Errorf("Format().SampleRate = %d after open, want 16000", got.SampleRate)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		bytes  int
		want   time.Duration
	}{
		{"one second stereo", Format{SampleRate: 24000, Channels: 2}, 24000 * 4, time.Second},
		{"half second mono", Format{SampleRate: 16000, Channels: 1}, 16000, 500 * time.Millisecond},
		{"partial frame", Format{SampleRate: 24000, Channels: 2}, 3, 0},
		{"zero format", Format{}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Duration(tt.bytes); got != tt.want {
				t.Errorf("Duration(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestMockPlayerLifecycle(t *testing.T) {
	ctx := NewMockContext(Format{SampleRate: 1000, Channels: 1})
	// 20 frames at 1kHz is 20ms.
	p, err := ctx.NewPlayer(bytes.NewReader(make([]byte, 40)))
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}

	if p.IsPlaying() {
		t.Error("player should not play before Play()")
	}
	p.Play()
	if !p.IsPlaying() {
		t.Error("player should be playing after Play()")
	}

	time.Sleep(40 * time.Millisecond)
	if p.IsPlaying() {
		t.Error("player should finish after its duration")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_ = p.Close()
	if ctx.PlayersCreated != 1 || ctx.PlayersClosed != 1 {
		t.Errorf("created=%d closed=%d, want 1/1", ctx.PlayersCreated, ctx.PlayersClosed)
	}
	if ctx.Open() != 0 {
		t.Errorf("Open() = %d, want 0", ctx.Open())
	}
}

func TestMockContextFailNewPlayer(t *testing.T) {
	ctx := NewMockContext(DefaultFormat())
	ctx.FailNewPlayer = errors.New("device busy")
	if _, err := ctx.NewPlayer(bytes.NewReader(nil)); err == nil {
		t.Error("NewPlayer() should fail")
	}
}

func TestParseContextType(t *testing.T) {
	tests := []struct {
		in   string
		want ContextType
		ok   bool
	}{
		{"production", ContextProduction, true},
		{"oto", ContextProduction, true},
		{"mock", ContextMock, true},
		{"", ContextAuto, true},
		{"auto", ContextAuto, true},
		{"pulse", ContextAuto, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseContextType(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseContextType(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
