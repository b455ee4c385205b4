// Package ui renders the narrator panel in the terminal.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/rockhound/narrator/dialogue"
)

// Controller is the part of the sequencer the panel drives.
type Controller interface {
	Start(mode dialogue.Mode, topic string) uint64
	Close()
	Display() *dialogue.Display
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, ctrl Controller) *tea.Program {
	log.Debug("Starting narrator panel", "width", cfg.Width, "alt_screen", cfg.AltScreen)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, ctrl), opts...)
}

type (
	snapshotMsg    dialogue.Snapshot
	displayDoneMsg struct{}
)

type model struct {
	cfg     Config
	ctrl    Controller
	snap    dialogue.Snapshot
	spinner spinner.Model
	width   int
	topic   string

	updates <-chan dialogue.Snapshot
	cancel  func()
}

func newModel(cfg Config, ctrl Controller) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mouthStyle

	updates, cancel := ctrl.Display().Subscribe()
	return model{
		cfg:     cfg,
		ctrl:    ctrl,
		snap:    ctrl.Display().Snapshot(),
		spinner: sp,
		topic:   cfg.StartTopic,
		updates: updates,
		cancel:  cancel,
	}
}

// waitForSnapshot blocks until the display publishes.
func waitForSnapshot(updates <-chan dialogue.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return displayDoneMsg{}
		}
		return snapshotMsg(s)
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForSnapshot(m.updates), m.spinner.Tick}
	if m.cfg.AutoStart {
		mode, topic := m.cfg.StartMode, m.topic
		cmds = append(cmds, func() tea.Msg {
			m.ctrl.Start(mode, topic)
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = dialogue.Snapshot(msg)
		return m, waitForSnapshot(m.updates)

	case displayDoneMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.ctrl.Close()
		m.cancel()
		return m, tea.Quit

	case "esc", "x":
		m.ctrl.Close()
		return m, nil

	case "ctrl+z":
		return m, tea.Suspend

	case "1", "2", "3", "4", "5", "6":
		mode := dialogue.Modes()[key[0]-'1']
		log.Debug("Mode requested", "mode", mode, "topic", m.topic)
		m.ctrl.Start(mode, m.topic)
		return m, nil

	case "r":
		if m.snap.Panel() == dialogue.PanelMenu && m.snap.State != dialogue.StateIdle {
			m.ctrl.Start(m.snap.Mode, m.topic)
		}
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	return render(m.snap, m.spinner.View(), m.columns(), m.cfg.ShowVisemes)
}

func (m model) columns() int {
	w := m.cfg.Width
	if m.width > 0 && (w == 0 || m.width-4 < w) {
		w = m.width - 4
	}
	if w < 20 {
		w = 20
	}
	return w
}

// Help lists the key bindings.
func Help() string {
	s := ""
	for i, mode := range dialogue.Modes() {
		s += fmt.Sprintf("%d %s  ", i+1, mode)
	}
	return s + "r repeat  x close  q quit"
}
