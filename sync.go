package galileo

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrInvalidGroupState is returned for a lifecycle call the group's
	// current state does not allow.
	ErrInvalidGroupState = errors.New("galileo: invalid sync group state")
	// ErrUnknownGroup is returned when a group id is not registered.
	ErrUnknownGroup = errors.New("galileo: unknown sync group")
	// ErrNoAnimations is returned when a group is initialized empty.
	ErrNoAnimations = errors.New("galileo: no animations")
)

// SyncGroupState is the lifecycle state of a SyncGroup.
type SyncGroupState uint8

const (
	SyncInitializing SyncGroupState = iota
	SyncReady
	SyncPlaying
	SyncPaused
	SyncCompleted
	SyncCanceled
)

var syncStateNames = [...]string{"initializing", "ready", "playing", "paused", "completed", "canceled"}

func (s SyncGroupState) String() string {
	if int(s) < len(syncStateNames) {
		return syncStateNames[s]
	}
	return fmt.Sprintf("SyncGroupState(%d)", uint8(s))
}

func (s SyncGroupState) terminal() bool {
	return s == SyncCompleted || s == SyncCanceled
}

// SyncPoint is a named fractional position shared by a group's animations.
type SyncPoint struct {
	Name     string
	Position float64
}

// DefaultSyncPoints are installed in every new group.
var DefaultSyncPoints = []SyncPoint{{"start", 0}, {"middle", 0.5}, {"end", 1}}

// SyncPointEvent is passed to sync point listeners and is the Data of
// EventSyncPoint bus events.
type SyncPointEvent struct {
	Group     string
	Animation string
	Point     SyncPoint
}

// SyncOptions configures a new group.
type SyncOptions struct {
	// SyncPoints are added on top of DefaultSyncPoints.
	SyncPoints []SyncPoint
}

// SyncDeps wires a Synchronizer to its collaborators. All fields are
// optional.
type SyncDeps struct {
	Bus   *EventBus
	Clock Clock
	Debug bool
}

// Synchronizer owns named SyncGroups.
type Synchronizer struct {
	deps   SyncDeps
	groups map[string]*SyncGroup
	order  []string
}

// NewSynchronizer creates an empty synchronizer.
func NewSynchronizer(deps SyncDeps) *Synchronizer {
	return &Synchronizer{deps: deps, groups: make(map[string]*SyncGroup)}
}

// CreateGroup registers a new group in the INITIALIZING state. An existing
// group with the same id is canceled and replaced.
func (s *Synchronizer) CreateGroup(id string, opts SyncOptions) *SyncGroup {
	if old, ok := s.groups[id]; ok {
		debugf(s.deps.Debug, "sync: replacing group %q", id)
		old.Cancel()
		s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	}
	g := &SyncGroup{id: id, sync: s, byID: make(map[string]*syncAnim)}
	for _, p := range DefaultSyncPoints {
		g.AddSyncPoint(p.Name, p.Position)
	}
	for _, p := range opts.SyncPoints {
		g.AddSyncPoint(p.Name, p.Position)
	}
	s.groups[id] = g
	s.order = append(s.order, id)
	return g
}

// Group looks up a group.
func (s *Synchronizer) Group(id string) (*SyncGroup, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// RemoveGroup cancels and forgets a group.
func (s *Synchronizer) RemoveGroup(id string) error {
	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrUnknownGroup)
	}
	g.Cancel()
	delete(s.groups, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	return nil
}

// Len returns the number of groups.
func (s *Synchronizer) Len() int {
	return len(s.groups)
}

// Update advances every playing group by dt seconds, in creation order.
func (s *Synchronizer) Update(dt float64) {
	for _, id := range slices.Clone(s.order) {
		if g, ok := s.groups[id]; ok {
			g.Update(dt)
		}
	}
}

type syncHandler struct {
	id    uint32
	point string
	fn    func(SyncPointEvent)
}

type syncAnim struct {
	id       string
	duration time.Duration
	progress float64
	handlers []syncHandler
}

// SyncGroup coordinates animations against shared sync points.
type SyncGroup struct {
	id       string
	sync     *Synchronizer
	state    SyncGroupState
	points   []SyncPoint
	anims    []*syncAnim
	byID     map[string]*syncAnim
	nextID   uint32
	complete []func()
}

// ID returns the group id.
func (g *SyncGroup) ID() string { return g.id }

// State returns the lifecycle state.
func (g *SyncGroup) State() SyncGroupState { return g.state }

// SyncPoints returns the group's points ordered by position.
func (g *SyncGroup) SyncPoints() []SyncPoint {
	return slices.Clone(g.points)
}

// AddAnimation adds an animation. With a positive duration Update advances
// its progress automatically; otherwise progress comes from ReportProgress.
// Animations can only be added before the group plays.
func (g *SyncGroup) AddAnimation(id string, duration time.Duration) error {
	if g.state != SyncInitializing && g.state != SyncReady {
		return fmt.Errorf("add animation %q to %q while %s: %w", id, g.id, g.state, ErrInvalidGroupState)
	}
	if a, ok := g.byID[id]; ok {
		a.duration = duration
		return nil
	}
	a := &syncAnim{id: id, duration: duration}
	g.anims = append(g.anims, a)
	g.byID[id] = a
	return nil
}

// AddAnimations adds several animations driven by ReportProgress.
func (g *SyncGroup) AddAnimations(ids ...string) error {
	for _, id := range ids {
		if err := g.AddAnimation(id, 0); err != nil {
			return err
		}
	}
	return nil
}

// AddSyncPoint adds or moves a named point. Position is clamped to [0, 1].
func (g *SyncGroup) AddSyncPoint(name string, position float64) {
	position = clamp(position, 0, 1)
	g.points = slices.DeleteFunc(g.points, func(p SyncPoint) bool { return p.Name == name })
	i, _ := slices.BinarySearchFunc(g.points, position, func(p SyncPoint, pos float64) int {
		if p.Position <= pos {
			return -1
		}
		return 1
	})
	g.points = slices.Insert(g.points, i, SyncPoint{name, position})
}

// OnSyncPoint registers fn for when animID's progress crosses the named
// point. The returned function removes it.
func (g *SyncGroup) OnSyncPoint(animID, point string, fn func(SyncPointEvent)) func() {
	a, ok := g.byID[animID]
	if !ok {
		debugf(g.sync.deps.Debug, "sync: %q has no animation %q", g.id, animID)
		return func() {}
	}
	g.nextID++
	id := g.nextID
	a.handlers = append(a.handlers, syncHandler{id: id, point: point, fn: fn})
	return func() {
		a.handlers = slices.DeleteFunc(a.handlers, func(h syncHandler) bool { return h.id == id })
	}
}

// OnComplete registers fn for when every animation reaches the end.
func (g *SyncGroup) OnComplete(fn func()) {
	g.complete = append(g.complete, fn)
}

// Initialize moves the group from INITIALIZING to READY.
func (g *SyncGroup) Initialize() error {
	if g.state != SyncInitializing {
		return fmt.Errorf("initialize %q while %s: %w", g.id, g.state, ErrInvalidGroupState)
	}
	if len(g.anims) == 0 {
		return fmt.Errorf("initialize %q: %w", g.id, ErrNoAnimations)
	}
	g.state = SyncReady
	return nil
}

// Play starts a READY group. Points at position 0 fire for every animation.
func (g *SyncGroup) Play() error {
	if g.state != SyncReady {
		return fmt.Errorf("play %q while %s: %w", g.id, g.state, ErrInvalidGroupState)
	}
	g.state = SyncPlaying
	for _, a := range g.anims {
		for _, p := range g.points {
			if p.Position == 0 {
				g.fire(a, p)
			}
		}
	}
	return nil
}

// Pause suspends a playing group.
func (g *SyncGroup) Pause() error {
	if g.state != SyncPlaying {
		return fmt.Errorf("pause %q while %s: %w", g.id, g.state, ErrInvalidGroupState)
	}
	g.state = SyncPaused
	return nil
}

// Resume continues a paused group.
func (g *SyncGroup) Resume() error {
	if g.state != SyncPaused {
		return fmt.Errorf("resume %q while %s: %w", g.id, g.state, ErrInvalidGroupState)
	}
	g.state = SyncPlaying
	return nil
}

// Cancel ends the group from any non-terminal state. Canceling a finished
// group is a no-op.
func (g *SyncGroup) Cancel() {
	if g.state.terminal() {
		return
	}
	g.state = SyncCanceled
}

// ReportProgress records animID's progress, clamped to [0, 1], and fires
// every sync point crossed since the last report. Reports are ignored unless
// the group is playing; progress never moves backwards.
func (g *SyncGroup) ReportProgress(animID string, p float64) bool {
	if g.state != SyncPlaying {
		return false
	}
	a, ok := g.byID[animID]
	if !ok {
		debugf(g.sync.deps.Debug, "sync: %q has no animation %q", g.id, animID)
		return false
	}
	p = clamp(p, 0, 1)
	if p <= a.progress {
		return true
	}
	prev := a.progress
	a.progress = p
	for _, pt := range g.points {
		if pt.Position > prev && pt.Position <= p {
			g.fire(a, pt)
			if g.state != SyncPlaying {
				return true
			}
		}
	}
	g.checkComplete()
	return true
}

func (g *SyncGroup) checkComplete() {
	for _, a := range g.anims {
		if a.progress < 1 {
			return
		}
	}
	g.state = SyncCompleted
	for _, fn := range slices.Clone(g.complete) {
		fn()
	}
}

// TriggerSyncPoint fires the named point for every animation regardless of
// progress. It reports whether the point exists.
func (g *SyncGroup) TriggerSyncPoint(name string) bool {
	i := slices.IndexFunc(g.points, func(p SyncPoint) bool { return p.Name == name })
	if i < 0 || g.state.terminal() {
		return false
	}
	pt := g.points[i]
	for _, a := range g.anims {
		g.fire(a, pt)
	}
	return true
}

func (g *SyncGroup) fire(a *syncAnim, pt SyncPoint) {
	ev := SyncPointEvent{Group: g.id, Animation: a.id, Point: pt}
	for _, h := range slices.Clone(a.handlers) {
		if h.point == pt.Name {
			h.fn(ev)
		}
	}
	if bus := g.sync.deps.Bus; bus != nil {
		bus.Dispatch(AnimationEvent{Kind: EventSyncPoint, Name: pt.Name, Target: a.id, Data: ev})
	}
}

// Update advances duration-driven animations by dt seconds while playing.
func (g *SyncGroup) Update(dt float64) {
	if g.state != SyncPlaying || dt <= 0 {
		return
	}
	for _, a := range slices.Clone(g.anims) {
		if a.duration <= 0 || a.progress >= 1 {
			continue
		}
		g.ReportProgress(a.id, a.progress+dt/a.duration.Seconds())
		if g.state != SyncPlaying {
			return
		}
	}
}

// Progress returns the mean animation progress while playing, 1 once
// completed and 0 otherwise.
func (g *SyncGroup) Progress() float64 {
	switch g.state {
	case SyncCompleted:
		return 1
	case SyncPlaying:
		sum := 0.0
		for _, a := range g.anims {
			sum += a.progress
		}
		return sum / float64(len(g.anims))
	}
	return 0
}

// AnimationProgress returns one animation's progress.
func (g *SyncGroup) AnimationProgress(animID string) (float64, bool) {
	a, ok := g.byID[animID]
	if !ok {
		return 0, false
	}
	return a.progress, true
}

// ConnectStateMachine fires the sync point mapped to each state the machine
// enters. The returned function disconnects.
func (g *SyncGroup) ConnectStateMachine(m *StateMachine, mapping map[string]string) func() {
	return m.OnStateChanged(func(c StateChange) {
		if point, ok := mapping[c.To]; ok {
			g.TriggerSyncPoint(point)
		}
	})
}
