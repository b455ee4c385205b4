package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rockhound/narrator/dialogue"
)

func TestPrintLines(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []string
	}{
		{"typewriter prefixes", []string{"H", "Hel", "Hello"}, []string{"Hello"}},
		{"two lines", []string{"Hi", "Hi there", "Next", "Next one"}, []string{"Hi there", "Next one"}},
		{"cleared between lines", []string{"One", "", "Two"}, []string{"One", "Two"}},
		{"nothing shown", []string{"", ""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := make(chan dialogue.Snapshot, len(tt.texts))
			for _, text := range tt.texts {
				ch <- dialogue.Snapshot{Text: text}
			}
			close(ch)

			var buf bytes.Buffer
			printLines(ch, &buf)

			want := ""
			for _, line := range tt.want {
				want += line + "\n"
			}
			if got := buf.String(); got != want {
				t.Errorf("printed %q, want %q", got, want)
			}
		})
	}
}

func TestPrintLinesRepeatedOpening(t *testing.T) {
	ch := make(chan dialogue.Snapshot, 3)
	ch <- dialogue.Snapshot{Text: "Look.", Line: 1, Generation: 1}
	ch <- dialogue.Snapshot{Text: "Look. A rock.", Line: 2, Generation: 1}
	ch <- dialogue.Snapshot{Text: "Look. A rock.", Line: 2, Generation: 1}
	close(ch)

	var buf bytes.Buffer
	printLines(ch, &buf)

	if got, want := buf.String(), "Look.\nLook. A rock.\n"; got != want {
		t.Errorf("printed %q, want %q", got, want)
	}
}

func TestPrintLinesNotice(t *testing.T) {
	ch := make(chan dialogue.Snapshot, 3)
	ch <- dialogue.Snapshot{Text: "Looking"}
	ch <- dialogue.Snapshot{Text: "Looking", Notice: "Out of requests."}
	ch <- dialogue.Snapshot{Text: "Looking", Notice: "Out of requests."}
	close(ch)

	var buf bytes.Buffer
	printLines(ch, &buf)

	out := buf.String()
	if strings.Count(out, "Out of requests.") != 1 {
		t.Errorf("notice printed %d times in %q", strings.Count(out, "Out of requests."), out)
	}
	if !strings.HasPrefix(out, "Looking\n") {
		t.Errorf("line should be flushed before the notice, got %q", out)
	}
}

// fakeNarrator reveals each line of a fixed script on its display.
type fakeNarrator struct {
	display *dialogue.Display
	lines   []string
	done    chan struct{}
	closed  bool
}

func (f *fakeNarrator) Start(mode dialogue.Mode, _ string) uint64 {
	f.done = make(chan struct{})
	f.display.Begin(1, mode, dialogue.StateNarrating)
	go func() {
		defer close(f.done)
		for n, line := range f.lines {
			for i := 1; i <= len(line); i++ {
				f.display.Update(1, func(s *dialogue.Snapshot) {
					s.Text = line[:i]
					s.Line = n + 1
				})
			}
		}
	}()
	return 1
}

func (f *fakeNarrator) Display() *dialogue.Display { return f.display }
func (f *fakeNarrator) Wait()                      { <-f.done }
func (f *fakeNarrator) Close()                     { f.closed = true }

func TestNarratePlain(t *testing.T) {
	n := &fakeNarrator{display: dialogue.NewDisplay(), lines: []string{"First line.", "Second line."}}

	var buf bytes.Buffer
	if err := narratePlain(context.Background(), n, dialogue.ModeTour, "", &buf); err != nil {
		t.Fatalf("narratePlain() error = %v", err)
	}
	if n.closed {
		t.Error("Close should not be called when the script finishes")
	}
	// Coalescing may drop intermediate prefixes but never the final text.
	if !strings.HasSuffix(buf.String(), "Second line.\n") {
		t.Errorf("output = %q, want it to end with the last line", buf.String())
	}
}
