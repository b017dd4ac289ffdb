package galileo

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in an input script.
type scriptStep struct {
	Action  string  `json:"action"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	FromX   float64 `json:"fromX,omitempty"`
	FromY   float64 `json:"fromY,omitempty"`
	ToX     float64 `json:"toX,omitempty"`
	ToY     float64 `json:"toY,omitempty"`
	Frames  int     `json:"frames,omitempty"`
	Machine string  `json:"machine,omitempty"`
	Event   string  `json:"event,omitempty"`
	Target  string  `json:"target,omitempty"`
}

// inputScript is the top-level JSON structure of a script.
type inputScript struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner sequences injected pointer input, state machine events and
// custom bus events across frames. Attach it with Stage.SetScriptRunner.
//
// Actions: press, move, release, drag, wait, send (machine + event) and emit
// (event + optional target).
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON script.
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var script inputScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	return &ScriptRunner{steps: script.Steps}, nil
}

// Done reports whether every step has run.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// step advances the runner by one frame. Called from Stage.Update.
func (r *ScriptRunner) step(s *Stage) {
	if r.done {
		return
	}
	// Let queued input drain before the next step.
	if s.pointer.Pending() > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "press":
		s.pointer.InjectPress(st.X, st.Y)
	case "move":
		s.pointer.InjectMove(st.X, st.Y)
	case "release":
		s.pointer.InjectRelease(st.X, st.Y)
	case "drag":
		s.pointer.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "send":
		m, ok := s.machines[st.Machine]
		if !ok {
			debugf(s.debug, "script: unknown machine %q", st.Machine)
			break
		}
		m.Send(st.Event, nil)
	case "emit":
		s.bus.EmitCustom(st.Event, st.Target, nil)
	default:
		debugf(s.debug, "script: unknown action %q", st.Action)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && s.pointer.Pending() == 0 {
		r.done = true
	}
}
