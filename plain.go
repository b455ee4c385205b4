package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rockhound/narrator/dialogue"
)

// narrator is the part of the sequencer plain output needs.
type narrator interface {
	Start(mode dialogue.Mode, topic string) uint64
	Display() *dialogue.Display
	Wait()
	Close()
}

// narratePlain runs one script and prints each line once it is complete.
func narratePlain(ctx context.Context, n narrator, mode dialogue.Mode, topic string, w io.Writer) error {
	snaps, unsubscribe := n.Display().Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printLines(snaps, w)
	}()

	n.Start(mode, topic)
	finished := make(chan struct{})
	go func() {
		n.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		n.Close()
		<-finished
	}
	unsubscribe()
	<-printed
	return nil
}

// printLines writes a line when the text on display stops growing: a new
// line begins, different text replaces it, or the channel is closed.
func printLines(snaps <-chan dialogue.Snapshot, w io.Writer) {
	type position struct {
		gen  uint64
		line int
	}
	var (
		cur, notice string
		at          position
	)
	flush := func() {
		if cur != "" {
			fmt.Fprintln(w, cur)
			cur = ""
		}
	}

	for snap := range snaps {
		if snap.Notice != "" && snap.Notice != notice {
			flush()
			fmt.Fprintln(w, noticeLine(snap.Notice))
		}
		notice = snap.Notice

		if p := (position{snap.Generation, snap.Line}); p != at {
			flush()
			at = p
		}
		switch {
		case snap.Text == "":
			flush()
		case strings.HasPrefix(snap.Text, cur):
			cur = snap.Text
		default:
			flush()
			cur = snap.Text
		}
	}
	flush()
}
