package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/dialogue/codec"
)

func TestMockGenerate(t *testing.T) {
	m := NewMockService(dialogue.MockConfig{}, 1)

	for _, mode := range dialogue.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			lines, err := m.Generate(context.Background(), mode, "the quarry")
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(lines) == 0 {
				t.Fatal("Generate() returned no lines")
			}
			for _, l := range lines {
				if strings.Contains(l, "%") {
					t.Errorf("unformatted line %q", l)
				}
			}
		})
	}
}

func TestMockGenerateDefaultTopic(t *testing.T) {
	m := NewMockService(dialogue.MockConfig{}, 1)
	lines, _ := m.Generate(context.Background(), dialogue.ModeIntro, " ")
	if !strings.Contains(strings.Join(lines, " "), defaultTopic) {
		t.Errorf("lines = %v, want default topic", lines)
	}
}

func TestMockGenerateCanceled(t *testing.T) {
	m := NewMockService(dialogue.MockConfig{GenerationDelay: time.Hour}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Generate(ctx, dialogue.ModeIntro, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Generate() error = %v, want deadline exceeded", err)
	}
}

func TestMockSynthesizeDecodes(t *testing.T) {
	m := NewMockService(dialogue.MockConfig{WordsPerMinute: 120, SampleRate: 16000}, 1)
	text := "Loose scree often hides agate nodules"

	speech, err := m.Synthesize(context.Background(), text)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	buf, err := codec.DecodeSpeech(speech)
	if err != nil {
		t.Fatalf("DecodeSpeech() error = %v", err)
	}
	want := SpeakingTime(text, 120)
	if diff := buf.Duration() - want; diff > time.Millisecond || diff < -time.Millisecond {
		t.Errorf("duration = %v, want %v", buf.Duration(), want)
	}
	if len(speech.Visemes) == 0 {
		t.Error("no visemes")
	}
}

func TestMockQuotaAfter(t *testing.T) {
	m := NewMockService(dialogue.MockConfig{QuotaAfter: 2}, 1)
	ctx := context.Background()

	if _, err := m.Generate(ctx, dialogue.ModeIntro, ""); err != nil {
		t.Fatalf("call 1 error = %v", err)
	}
	if _, err := m.Synthesize(ctx, "hi"); err != nil {
		t.Fatalf("call 2 error = %v", err)
	}
	if _, err := m.Synthesize(ctx, "hi"); !errors.Is(err, dialogue.ErrQuota) {
		t.Errorf("call 3 error = %v, want ErrQuota", err)
	}
}

func TestMockFailureRate(t *testing.T) {
	always := NewMockService(dialogue.MockConfig{FailureRate: 1}, 7)
	if _, err := always.Synthesize(context.Background(), "hi"); !errors.Is(err, ErrMockFailure) {
		t.Errorf("error = %v, want ErrMockFailure", err)
	}

	never := NewMockService(dialogue.MockConfig{}, 7)
	for i := 0; i < 20; i++ {
		if _, err := never.Synthesize(context.Background(), "hi"); err != nil {
			t.Fatalf("error = %v", err)
		}
	}
}

func TestSpeakingTime(t *testing.T) {
	tests := []struct {
		text string
		wpm  int
		want time.Duration
	}{
		{"", 170, 300 * time.Millisecond},
		{"one", 60, time.Second},
		{"one two three four", 120, 2 * time.Second},
		{"one two", 0, 2 * time.Minute / 170},
	}
	for _, tt := range tests {
		if got := SpeakingTime(tt.text, tt.wpm); got != tt.want {
			t.Errorf("SpeakingTime(%q, %d) = %v, want %v", tt.text, tt.wpm, got, tt.want)
		}
	}
}

func TestVisemesFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"empty", "", nil},
		{"bilabial then vowel", "ma", []int{1, 10, 0}},
		{"digraph", "she", []int{6, 11, 0}},
		{"word gap closes", "a b", []int{10, 0, 1, 0}},
		{"repeats collapse", "aa", []int{10, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := VisemesFromText(tt.text, time.Second)
			if len(events) != len(tt.want) {
				t.Fatalf("got %d events %+v, want %v", len(events), events, tt.want)
			}
			prev := -1.0
			for i, ev := range events {
				if ev.Value != tt.want[i] {
					t.Errorf("event %d value = %d, want %d", i, ev.Value, tt.want[i])
				}
				if ev.Time < prev {
					t.Errorf("event %d time %v before %v", i, ev.Time, prev)
				}
				prev = ev.Time
			}
		})
	}
}
