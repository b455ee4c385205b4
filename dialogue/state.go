package dialogue

import "sync"

// State is the sequencer's position in a narration.
type State int

const (
	// StateIdle means the panel is closed.
	StateIdle State = iota
	// StateThinking means a script has been requested.
	StateThinking
	// StateNarrating means lines are being spoken.
	StateNarrating
	// StateMenu means the panel is open and waiting for a request.
	StateMenu
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateThinking:
		return "thinking"
	case StateNarrating:
		return "narrating"
	case StateMenu:
		return "menu"
	default:
		return "unknown"
	}
}

// Panel maps the state to what the UI shows.
func (s State) Panel() Panel {
	switch s {
	case StateThinking, StateNarrating:
		return PanelScript
	default:
		return PanelMenu
	}
}

// Talking reports whether a script is in progress.
func (s State) Talking() bool {
	return s == StateNarrating
}

// StateMachine manages state transitions for the sequencer.
type StateMachine struct {
	mu          sync.Mutex
	current     State
	transitions map[State][]State
	onEnter     map[State]func(from State)
}

// NewStateMachine creates a state machine starting in StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:      {StateThinking},
			StateThinking:  {StateThinking, StateNarrating, StateMenu, StateIdle},
			StateNarrating: {StateThinking, StateMenu, StateIdle},
			StateMenu:      {StateThinking, StateIdle},
		},
		onEnter: make(map[State]func(State)),
	}
}

// CanTransition reports whether moving to the given state is allowed.
func (sm *StateMachine) CanTransition(to State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.allowed(to)
}

func (sm *StateMachine) allowed(to State) bool {
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves to the given state and runs its enter callback.
// It returns false and leaves the state unchanged if the move is not allowed.
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	if !sm.allowed(to) {
		sm.mu.Unlock()
		return false
	}
	from := sm.current
	sm.current = to
	fn := sm.onEnter[to]
	sm.mu.Unlock()

	if fn != nil {
		fn(from)
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state State, fn func(from State)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = fn
}
