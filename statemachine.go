package galileo

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrInvalidInitialState is returned when a state machine's initial state is
// not among its states.
var ErrInvalidInitialState = errors.New("galileo: invalid initial state")

// AnyState as a transition's From matches every state. Exact-state
// transitions for the same event take precedence.
const AnyState = "*"

// AnimationState is one state of a StateMachine.
type AnimationState struct {
	ID string
	// EnterAnimation and ExitAnimation name orchestrator animations played on
	// the machine's target when the state is entered or left.
	EnterAnimation string
	ExitAnimation  string
	// Style is written to the target's style when the state is entered.
	Style map[string]float64
}

// StateTransition moves the machine from From to To when event On is sent.
type StateTransition struct {
	From, To, On string
	// Animation is played on the target between the exit and enter
	// animations. Optional.
	Animation string
	Guard     func(m *StateMachine, data any) bool
	Condition func(m *StateMachine, data any) bool
	// Actions run in order before any animation plays.
	Actions []func(m *StateMachine, data any)
}

// TransitionRecord is one entry of a machine's history.
type TransitionRecord struct {
	From, To, Event string
	Data            any
	Timestamp       time.Duration
}

// StateChange is passed to state listeners and is the Data of
// EventStateChange bus events.
type StateChange struct {
	Machine   string
	From, To  string
	Event     string
	Data      any
	Timestamp time.Duration
}

// StateMachineConfig configures a StateMachine.
type StateMachineConfig struct {
	ID          string
	States      []AnimationState
	Transitions []StateTransition
	Initial     string
	// Orchestrator plays enter, exit and transition animations. Optional.
	Orchestrator *Orchestrator
	// Bus receives EventStateChange. Optional.
	Bus *EventBus
	// Target is the orchestrator target animations play on. Defaults to ID.
	Target string
	Data   map[string]any
	Clock  Clock
}

type stateHandler struct {
	id    uint32
	state string
	fn    func(StateChange)
}

// StateMachine is a finite-state machine whose states carry animations.
type StateMachine struct {
	cfg      StateMachineConfig
	states   map[string]*AnimationState
	current  string
	previous string
	history  []TransitionRecord
	data     map[string]any

	changed []stateHandler
	enter   []stateHandler
	nextID  uint32
}

// NewStateMachine validates cfg and returns a machine in its initial state.
func NewStateMachine(cfg StateMachineConfig) (*StateMachine, error) {
	cfg.States = append([]AnimationState(nil), cfg.States...)
	cfg.Transitions = append([]StateTransition(nil), cfg.Transitions...)
	m := &StateMachine{
		states: make(map[string]*AnimationState, len(cfg.States)),
		data:   maps.Clone(cfg.Data),
	}
	for i := range cfg.States {
		m.states[cfg.States[i].ID] = &cfg.States[i]
	}
	if _, ok := m.states[cfg.Initial]; !ok {
		return nil, fmt.Errorf("state machine %q: %w: %q", cfg.ID, ErrInvalidInitialState, cfg.Initial)
	}
	if cfg.Target == "" {
		cfg.Target = cfg.ID
	}
	if m.data == nil {
		m.data = make(map[string]any)
	}
	m.cfg = cfg
	m.current = cfg.Initial
	return m, nil
}

// ID returns the machine id.
func (m *StateMachine) ID() string { return m.cfg.ID }

// Current returns the current state id.
func (m *StateMachine) Current() string { return m.current }

// Previous returns the state before the last transition, or "".
func (m *StateMachine) Previous() string { return m.previous }

// History returns a copy of the transition log.
func (m *StateMachine) History() []TransitionRecord {
	return append([]TransitionRecord(nil), m.history...)
}

// State returns the definition of a state.
func (m *StateMachine) State(id string) (AnimationState, bool) {
	s, ok := m.states[id]
	if !ok {
		return AnimationState{}, false
	}
	return *s, true
}

// SetData stores a context value for guards and actions.
func (m *StateMachine) SetData(key string, v any) { m.data[key] = v }

// GetData reads a context value.
func (m *StateMachine) GetData(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

// find returns the transition for event from the current state, preferring
// an exact match over a wildcard.
func (m *StateMachine) find(event string) *StateTransition {
	var wild *StateTransition
	for i := range m.cfg.Transitions {
		t := &m.cfg.Transitions[i]
		if t.On != event {
			continue
		}
		if t.From == m.current {
			return t
		}
		if t.From == AnyState && wild == nil {
			wild = t
		}
	}
	return wild
}

// Can reports whether event has a transition from the current state. Guards
// are not evaluated.
func (m *StateMachine) Can(event string) bool {
	return m.find(event) != nil
}

// Send fires event. It returns false without changing state when no
// transition matches or a guard or condition rejects it.
func (m *StateMachine) Send(event string, data any) bool {
	t := m.find(event)
	if t == nil {
		return false
	}
	if _, ok := m.states[t.To]; !ok {
		return false
	}
	if t.Condition != nil && !t.Condition(m, data) {
		return false
	}
	if t.Guard != nil && !t.Guard(m, data) {
		return false
	}

	for _, act := range t.Actions {
		act(m, data)
	}

	from, to := m.current, t.To
	if o := m.cfg.Orchestrator; o != nil {
		target := m.cfg.Target
		if a := m.states[from].ExitAnimation; a != "" {
			o.Play(a, target)
		}
		if t.Animation != "" {
			o.Play(t.Animation, target)
		}
		if st := m.states[to]; st.EnterAnimation != "" {
			o.Play(st.EnterAnimation, target)
		}
		if st := m.states[to]; len(st.Style) > 0 {
			o.SetStyle(target, st.Style)
		}
	}

	m.previous, m.current = from, to
	change := StateChange{Machine: m.cfg.ID, From: from, To: to, Event: event, Data: data, Timestamp: m.now()}
	m.history = append(m.history, TransitionRecord{From: from, To: to, Event: event, Data: data, Timestamp: change.Timestamp})

	for _, h := range append([]stateHandler(nil), m.changed...) {
		h.fn(change)
	}
	for _, h := range append([]stateHandler(nil), m.enter...) {
		if h.state == to {
			h.fn(change)
		}
	}
	if m.cfg.Bus != nil {
		m.cfg.Bus.Emit(EventStateChange, m.cfg.Target, change)
	}
	return true
}

func (m *StateMachine) now() time.Duration {
	if m.cfg.Clock == nil {
		return 0
	}
	return m.cfg.Clock.Now()
}

// OnStateChanged registers fn for every transition. The returned function
// removes it.
func (m *StateMachine) OnStateChanged(fn func(StateChange)) func() {
	return m.addHandler(&m.changed, "", fn)
}

// OnEnter registers fn for transitions into state.
func (m *StateMachine) OnEnter(state string, fn func(StateChange)) func() {
	return m.addHandler(&m.enter, state, fn)
}

func (m *StateMachine) addHandler(list *[]stateHandler, state string, fn func(StateChange)) func() {
	m.nextID++
	id := m.nextID
	*list = append(*list, stateHandler{id: id, state: state, fn: fn})
	return func() {
		for i := range *list {
			if (*list)[i].id == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// Reset returns to the initial state and clears history without notifying
// listeners.
func (m *StateMachine) Reset() {
	m.current = m.cfg.Initial
	m.previous = ""
	m.history = nil
}
