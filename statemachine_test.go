package galileo

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func buttonMachineConfig() StateMachineConfig {
	return StateMachineConfig{
		ID:      "button",
		Initial: "idle",
		States: []AnimationState{
			{ID: "idle", Style: map[string]float64{"scale": 1}},
			{ID: "hover", EnterAnimation: "grow", Style: map[string]float64{"scale": 1.1}},
			{ID: "pressed", ExitAnimation: "release"},
			{ID: "disabled"},
		},
		Transitions: []StateTransition{
			{From: "idle", To: "hover", On: "enter"},
			{From: "hover", To: "idle", On: "leave"},
			{From: "hover", To: "pressed", On: "press"},
			{From: "pressed", To: "hover", On: "release", Animation: "bounce"},
			{From: AnyState, To: "disabled", On: "disable"},
			{From: "disabled", To: "idle", On: "disable"},
		},
	}
}

func TestStateMachineInvalidInitial(t *testing.T) {
	cfg := buttonMachineConfig()
	cfg.Initial = "missing"
	_, err := NewStateMachine(cfg)
	if !errors.Is(err, ErrInvalidInitialState) {
		t.Errorf("err = %v, want ErrInvalidInitialState", err)
	}
}

func TestStateMachineTransitions(t *testing.T) {
	m, err := NewStateMachine(buttonMachineConfig())
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	if m.Current() != "idle" || m.Previous() != "" {
		t.Fatalf("initial current=%q previous=%q", m.Current(), m.Previous())
	}
	if m.Send("press", nil) {
		t.Error("press from idle has no transition")
	}
	if !m.Send("enter", nil) || m.Current() != "hover" {
		t.Fatalf("enter: current = %q, want hover", m.Current())
	}
	if m.Previous() != "idle" {
		t.Errorf("Previous = %q, want idle", m.Previous())
	}
	if !m.Can("press") || m.Can("enter") {
		t.Error("Can disagrees with the transition table")
	}
}

func TestStateMachineExactBeatsWildcard(t *testing.T) {
	m, _ := NewStateMachine(buttonMachineConfig())
	m.Send("disable", nil)
	if m.Current() != "disabled" {
		t.Fatalf("wildcard disable: current = %q", m.Current())
	}
	// From disabled the exact transition wins over the wildcard.
	m.Send("disable", nil)
	if m.Current() != "idle" {
		t.Errorf("current = %q, want idle from the exact transition", m.Current())
	}
}

func TestStateMachineGuardAndCondition(t *testing.T) {
	cfg := buttonMachineConfig()
	allowed := false
	cfg.Transitions[0].Guard = func(m *StateMachine, data any) bool { return allowed }
	cfg.Transitions[0].Condition = func(m *StateMachine, data any) bool { return data != "blocked" }
	m, _ := NewStateMachine(cfg)

	if m.Send("enter", nil) {
		t.Error("guard should reject")
	}
	allowed = true
	if m.Send("enter", "blocked") {
		t.Error("condition should reject")
	}
	if !m.Send("enter", nil) {
		t.Error("transition should pass once guard and condition allow it")
	}
	if len(m.History()) != 1 {
		t.Errorf("history = %d, rejected sends must not be recorded", len(m.History()))
	}
}

func TestStateMachineActionsAndData(t *testing.T) {
	cfg := buttonMachineConfig()
	cfg.Data = map[string]any{"clicks": 0}
	cfg.Transitions[2].Actions = []func(*StateMachine, any){
		func(m *StateMachine, _ any) {
			v, _ := m.GetData("clicks")
			m.SetData("clicks", v.(int)+1)
		},
		func(m *StateMachine, data any) { m.SetData("last", data) },
	}
	m, _ := NewStateMachine(cfg)
	m.Send("enter", nil)
	m.Send("press", "left")
	if v, _ := m.GetData("clicks"); v != 1 {
		t.Errorf("clicks = %v, want 1", v)
	}
	if v, _ := m.GetData("last"); v != "left" {
		t.Errorf("last = %v, want left", v)
	}
	if cfg.Data["clicks"] != 0 {
		t.Error("machine should not mutate the config's data map")
	}
}

func TestStateMachineDeterministic(t *testing.T) {
	events := []string{"enter", "press", "release", "leave", "disable", "disable", "enter"}
	run := func() []string {
		m, _ := NewStateMachine(buttonMachineConfig())
		var states []string
		for _, ev := range events {
			m.Send(ev, nil)
			states = append(states, m.Current())
		}
		return states
	}
	a, b := run(), run()
	if !slices.Equal(a, b) {
		t.Errorf("runs differ: %v vs %v", a, b)
	}
	want := []string{"hover", "pressed", "hover", "idle", "disabled", "idle", "hover"}
	if !slices.Equal(a, want) {
		t.Errorf("states = %v, want %v", a, want)
	}
}

func TestStateMachineListeners(t *testing.T) {
	m, _ := NewStateMachine(buttonMachineConfig())
	var log []string
	remove := m.OnStateChanged(func(c StateChange) { log = append(log, "changed:"+c.From+">"+c.To) })
	m.OnEnter("hover", func(c StateChange) { log = append(log, "enter:"+c.Event) })

	m.Send("enter", nil)
	remove()
	m.Send("leave", nil)
	m.Send("enter", nil)

	want := []string{"changed:idle>hover", "enter:enter", "enter:enter"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestStateMachineWithOrchestrator(t *testing.T) {
	sched := NewScheduler()
	bus := NewEventBus(BusOptions{Clock: sched})
	o := NewOrchestrator(bus, sched)
	o.Register(Animation{ID: "grow", Duration: 200 * time.Millisecond, Tracks: []Track{{Property: "scale", From: 1, To: 1.1}}})
	o.Register(Animation{ID: "release", Duration: 100 * time.Millisecond, Tracks: []Track{{Property: "y", From: 2, To: 0}}})
	o.Register(Animation{ID: "bounce", Duration: 100 * time.Millisecond, Tracks: []Track{{Property: "rotation", From: 0, To: 0.1}}})

	var started []string
	bus.On(EventAnimationStart, func(ev AnimationEvent) {
		started = append(started, ev.Data.(PlaybackInfo).AnimationID)
	})
	var changes []StateChange
	bus.On(EventStateChange, func(ev AnimationEvent) { changes = append(changes, ev.Data.(StateChange)) })

	cfg := buttonMachineConfig()
	cfg.Orchestrator = o
	cfg.Bus = bus
	cfg.Clock = sched
	cfg.Target = "btn"
	m, _ := NewStateMachine(cfg)

	sched.Advance(time.Second)
	m.Send("enter", nil)
	m.Send("press", nil)
	m.Send("release", nil)

	// Exit animation, then the transition's own, then the enter animation.
	want := []string{"grow", "release", "bounce", "grow"}
	if !slices.Equal(started, want) {
		t.Errorf("started = %v, want %v", started, want)
	}
	if o.Style("btn")["scale"] != 1.1 {
		t.Errorf("scale = %v, want state style 1.1", o.Style("btn")["scale"])
	}
	if len(changes) != 3 || changes[0].Machine != "button" || changes[0].Timestamp != time.Second {
		t.Errorf("changes = %+v", changes)
	}
	if h := m.History(); len(h) != 3 || h[2].Event != "release" {
		t.Errorf("history = %+v", h)
	}
}

func TestStateMachineUnknownTargetState(t *testing.T) {
	cfg := buttonMachineConfig()
	cfg.Transitions = append(cfg.Transitions, StateTransition{From: "idle", To: "ghost", On: "haunt"})
	m, _ := NewStateMachine(cfg)
	if m.Send("haunt", nil) || m.Current() != "idle" {
		t.Error("transition to an undefined state should be rejected")
	}
}

func TestStateMachineReset(t *testing.T) {
	m, _ := NewStateMachine(buttonMachineConfig())
	calls := 0
	m.OnStateChanged(func(StateChange) { calls++ })
	m.Send("enter", nil)
	m.Reset()
	if m.Current() != "idle" || m.Previous() != "" || len(m.History()) != 0 {
		t.Errorf("after Reset: current=%q previous=%q history=%d", m.Current(), m.Previous(), len(m.History()))
	}
	if calls != 1 {
		t.Errorf("Reset notified listeners: calls = %d", calls)
	}
}

func TestStateMachineState(t *testing.T) {
	m, _ := NewStateMachine(buttonMachineConfig())
	s, ok := m.State("hover")
	if !ok || s.EnterAnimation != "grow" {
		t.Errorf("State(hover) = %+v, %v", s, ok)
	}
	if _, ok := m.State("nope"); ok {
		t.Error("unknown state should not be found")
	}
	if m.ID() != "button" {
		t.Errorf("ID = %q", m.ID())
	}
}
