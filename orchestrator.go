package galileo

import (
	"maps"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Track animates one named style property from From to To.
type Track struct {
	Property string
	From, To float64
}

// Animation is a registered, reusable tween definition.
type Animation struct {
	ID       string
	Duration time.Duration
	// Easing defaults to ease.Linear.
	Easing ease.TweenFunc
	Tracks []Track
}

// PlayID identifies one playback of an animation on a target.
type PlayID uint64

// PlaybackInfo is the Data payload of orchestrator events.
type PlaybackInfo struct {
	PlayID      PlayID
	AnimationID string
	Target      string
}

type playback struct {
	info     PlaybackInfo
	anim     *Animation
	tweens   []*gween.Tween
	duration time.Duration
	// elapsed times playbacks without tracks, in the same float32 seconds
	// the tweens count in.
	elapsed float32
	done    bool
}

// Orchestrator plays registered animations against string targets and keeps
// the resulting style values per target. Nothing advances unless Update is
// called.
type Orchestrator struct {
	bus           *EventBus
	anims         map[string]*Animation
	active        []*playback
	byID          map[PlayID]*playback
	styles        map[string]map[string]float64
	nextID        PlayID
	reducedMotion bool
}

// NewOrchestrator creates an orchestrator that reports start, complete and
// cancel events on bus. When bus is nil a private bus stamped by clock is
// created.
func NewOrchestrator(bus *EventBus, clock Clock) *Orchestrator {
	if bus == nil {
		bus = NewEventBus(BusOptions{Clock: clock})
	}
	return &Orchestrator{
		bus:    bus,
		anims:  make(map[string]*Animation),
		byID:   make(map[PlayID]*playback),
		styles: make(map[string]map[string]float64),
	}
}

// Bus returns the bus orchestrator events are published on.
func (o *Orchestrator) Bus() *EventBus {
	return o.bus
}

// Register adds or replaces an animation definition.
func (o *Orchestrator) Register(a Animation) {
	if a.Easing == nil {
		a.Easing = ease.Linear
	}
	a.Tracks = append([]Track(nil), a.Tracks...)
	o.anims[a.ID] = &a
}

// Animation looks up a registered animation.
func (o *Orchestrator) Animation(id string) (Animation, bool) {
	a, ok := o.anims[id]
	if !ok {
		return Animation{}, false
	}
	return *a, true
}

// SetReducedMotion makes every playback finish on the next Update with its
// final values.
func (o *Orchestrator) SetReducedMotion(on bool) {
	o.reducedMotion = on
}

// Play starts animID on target with the registered duration. It returns
// false when the animation is unknown.
func (o *Orchestrator) Play(animID, target string) (PlayID, bool) {
	return o.PlayFor(animID, target, 0)
}

// PlayFor is Play with a duration override; d <= 0 keeps the registered
// duration.
func (o *Orchestrator) PlayFor(animID, target string, d time.Duration) (PlayID, bool) {
	if a, ok := o.anims[animID]; ok && d <= 0 {
		d = a.Duration
	}
	return o.play(animID, target, d)
}

// play starts animID for exactly d; a non-positive d jumps to the final
// values on the next Update.
func (o *Orchestrator) play(animID, target string, d time.Duration) (PlayID, bool) {
	a, ok := o.anims[animID]
	if !ok {
		return 0, false
	}
	o.nextID++
	p := &playback{
		info:     PlaybackInfo{PlayID: o.nextID, AnimationID: animID, Target: target},
		anim:     a,
		duration: d,
	}
	secs := float32(d.Seconds())
	style := o.styleFor(target)
	for _, tr := range a.Tracks {
		p.tweens = append(p.tweens, gween.New(float32(tr.From), float32(tr.To), secs, a.Easing))
		style[tr.Property] = tr.From
	}
	o.active = append(o.active, p)
	o.byID[p.info.PlayID] = p
	o.bus.Emit(EventAnimationStart, target, p.info)
	return p.info.PlayID, true
}

func (o *Orchestrator) styleFor(target string) map[string]float64 {
	s, ok := o.styles[target]
	if !ok {
		s = make(map[string]float64)
		o.styles[target] = s
	}
	return s
}

// Update advances every playback by dt seconds. Playbacks started from
// event listeners during the update begin advancing on the next call.
func (o *Orchestrator) Update(dt float64) {
	n := len(o.active)
	for i := 0; i < n; i++ {
		p := o.active[i]
		if p.done {
			continue
		}
		style := o.styleFor(p.info.Target)
		finished := true
		if o.reducedMotion || p.duration <= 0 {
			for _, tr := range p.anim.Tracks {
				style[tr.Property] = tr.To
			}
		} else if len(p.tweens) == 0 {
			p.elapsed += float32(dt)
			finished = p.elapsed >= float32(p.duration.Seconds())
		} else {
			for j, tw := range p.tweens {
				v, fin := tw.Update(float32(dt))
				style[p.anim.Tracks[j].Property] = float64(v)
				finished = finished && fin
			}
		}
		if finished {
			p.done = true
			delete(o.byID, p.info.PlayID)
			o.bus.Emit(EventAnimationComplete, p.info.Target, p.info)
		}
	}
	o.compact()
}

func (o *Orchestrator) compact() {
	live := o.active[:0]
	for _, p := range o.active {
		if !p.done {
			live = append(live, p)
		}
	}
	clear(o.active[len(live):])
	o.active = live
}

// Stop cancels a playback, leaving the target's style where it stopped.
// It reports whether the playback was running.
func (o *Orchestrator) Stop(id PlayID) bool {
	p, ok := o.byID[id]
	if !ok {
		return false
	}
	p.done = true
	delete(o.byID, id)
	o.bus.Emit(EventAnimationCancel, p.info.Target, p.info)
	return true
}

// StopTarget cancels every playback on target and returns how many stopped.
func (o *Orchestrator) StopTarget(target string) int {
	n := 0
	for _, p := range o.active {
		if !p.done && p.info.Target == target && o.Stop(p.info.PlayID) {
			n++
		}
	}
	return n
}

// IsPlaying reports whether the playback is still running.
func (o *Orchestrator) IsPlaying(id PlayID) bool {
	_, ok := o.byID[id]
	return ok
}

// ActiveCount returns the number of running playbacks.
func (o *Orchestrator) ActiveCount() int {
	return len(o.byID)
}

// Style returns a copy of the style values last written for target.
func (o *Orchestrator) Style(target string) map[string]float64 {
	return maps.Clone(o.styles[target])
}

// SetStyle writes style values for target directly, as state machines do
// when entering a state with a static style.
func (o *Orchestrator) SetStyle(target string, values map[string]float64) {
	maps.Copy(o.styleFor(target), values)
}

// Transform builds a Transform for target from its "x", "y", "rotation",
// "scale" and "opacity" properties. Missing scale and opacity default to 1.
func (o *Orchestrator) Transform(target string) Transform {
	s := o.styles[target]
	t := Transform{ID: target, X: s["x"], Y: s["y"], Rotation: s["rotation"], Scale: 1, Opacity: 1}
	if v, ok := s["scale"]; ok {
		t.Scale = v
	}
	if v, ok := s["opacity"]; ok {
		t.Opacity = v
	}
	return t
}
