package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rockhound/narrator/dialogue"
)

const (
	meterWidth = 16
	ellipsis   = "…"
)

var titleCase = cases.Title(language.English)

// mouths draws the Oculus viseme set. Shapes that look alike share a glyph.
var mouths = [...]string{
	"( ─ )", // sil
	"( ═ )", // PP
	"( ≈ )", // FF
	"( ≈ )", // TH
	"( ▭ )", // DD
	"( ▭ )", // KK
	"( ◇ )", // CH
	"( ▬ )", // SS
	"( ▭ )", // NN
	"( ◇ )", // RR
	"( O )", // aa
	"( ◯ )", // E
	"( ▬ )", // ih
	"( o )", // oh
	"( º )", // ou
}

// Mouth returns the glyph for a viseme. Unknown values draw closed.
func Mouth(viseme int) string {
	if viseme < 0 || viseme >= len(mouths) {
		return mouths[dialogue.VisemeClosed]
	}
	return mouths[viseme]
}

// Meter draws amplitude in [0, 1] as a bar of width cells.
func Meter(amplitude float64, width int) string {
	amplitude = math.Max(0, math.Min(1, amplitude))
	filled := int(math.Round(amplitude * float64(width)))
	return meterStyle.Render(strings.Repeat("█", filled)) +
		meterOff.Render(strings.Repeat("░", width-filled))
}

func render(s dialogue.Snapshot, spin string, width int, showVisemes bool) string {
	if s.State == dialogue.StateIdle && s.Notice == "" {
		return helpStyle.Render(truncate(Help(), width)) + "\n"
	}

	var b strings.Builder

	title := titleStyle.Render(titleCase.String(s.Mode.String()))
	status := stateStyle(s.State).Render(s.State.String())
	b.WriteString(title + " " + status + "\n")

	var face string
	switch {
	case s.State == dialogue.StateThinking:
		face = spin
	case showVisemes:
		face = mouthStyle.Render(Mouth(s.Viseme))
	}
	if face != "" || s.Talking {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, face, " ", Meter(s.Amplitude, meterWidth)))
		b.WriteString("\n")
	}

	body := s.Text
	if s.State == dialogue.StateThinking && body == "" {
		body = "…"
	}
	b.WriteString(textStyle.Render(wordwrap.String(body, width)))

	if s.Notice != "" {
		b.WriteString("\n" + noticeStyle.Render(wordwrap.String(s.Notice, width)))
	}

	out := panelStyle.Width(width + 2).Render(b.String())
	return out + "\n" + helpStyle.Render(truncate(Help(), width+4)) + "\n"
}

func stateStyle(s dialogue.State) lipgloss.Style {
	if st, ok := stateStyles[s.String()]; ok {
		return st
	}
	return helpStyle
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, ellipsis)
}
