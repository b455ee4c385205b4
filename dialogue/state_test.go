package dialogue

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StateThinking, "thinking"},
		{StateNarrating, "narrating"},
		{StateMenu, "menu"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatePanel(t *testing.T) {
	tests := []struct {
		state State
		panel Panel
	}{
		{StateIdle, PanelMenu},
		{StateThinking, PanelScript},
		{StateNarrating, PanelScript},
		{StateMenu, PanelMenu},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.Panel(); got != tt.panel {
				t.Errorf("Panel() = %v, want %v", got, tt.panel)
			}
		})
	}
}

func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []State
		valid []bool
	}{
		{
			name:  "full narration",
			path:  []State{StateThinking, StateNarrating, StateMenu, StateIdle},
			valid: []bool{true, true, true, true},
		},
		{
			name:  "new request while narrating",
			path:  []State{StateThinking, StateNarrating, StateThinking},
			valid: []bool{true, true, true},
		},
		{
			name:  "cannot narrate from idle",
			path:  []State{StateNarrating},
			valid: []bool{false},
		},
		{
			name:  "menu cannot go back to narrating",
			path:  []State{StateThinking, StateMenu, StateNarrating},
			valid: []bool{true, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			for i, to := range tt.path {
				before := sm.Current()
				if got := sm.Transition(to); got != tt.valid[i] {
					t.Fatalf("Transition(%v) from %v = %v, want %v", to, before, got, tt.valid[i])
				}
				if !tt.valid[i] && sm.Current() != before {
					t.Fatalf("state changed on rejected transition")
				}
			}
		})
	}
}

func TestStateMachineOnEnter(t *testing.T) {
	sm := NewStateMachine()
	var from []State
	sm.OnEnter(StateThinking, func(f State) { from = append(from, f) })

	sm.Transition(StateThinking)
	sm.Transition(StateMenu)
	sm.Transition(StateThinking)

	if len(from) != 2 || from[0] != StateIdle || from[1] != StateMenu {
		t.Errorf("OnEnter from = %v", from)
	}
	if !sm.CanTransition(StateNarrating) {
		t.Error("CanTransition(narrating) = false from thinking")
	}
}
