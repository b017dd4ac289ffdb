package galileo

import (
	"fmt"
	"sync"
	"time"
)

// EventKind identifies a known animation event. Free-form events use
// EventCustom together with AnimationEvent.Name.
type EventKind uint8

const (
	EventAnimationStart EventKind = iota
	EventAnimationUpdate
	EventAnimationComplete
	EventAnimationCancel
	EventStateChange
	EventSyncPoint
	EventStaggerStart
	EventStaggerComplete
	EventInteraction
	EventCustom
)

var eventKindNames = [...]string{
	"animation:start",
	"animation:update",
	"animation:complete",
	"animation:cancel",
	"state:change",
	"sync:point",
	"stagger:start",
	"stagger:complete",
	"interaction",
	"custom",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// AnimationEvent is the payload delivered to bus listeners.
type AnimationEvent struct {
	Kind EventKind
	// Name is the event name for EventCustom and an optional detail string
	// (such as the interaction type) for other kinds.
	Name      string
	Target    string
	Data      any
	Timestamp time.Duration
}

// Type returns Name for custom events and the kind name otherwise.
func (e AnimationEvent) Type() string {
	if e.Kind == EventCustom {
		return e.Name
	}
	return e.Kind.String()
}

// Middleware may rewrite an event or cancel it by returning false.
type Middleware func(AnimationEvent) (AnimationEvent, bool)

// Filter vetoes an event by returning false.
type Filter func(AnimationEvent) bool

// BusOptions configures an EventBus.
type BusOptions struct {
	// HistorySize caps the event history. Zero uses the default of 100;
	// a negative value disables history.
	HistorySize int
	// Clock stamps events whose Timestamp is zero. Optional.
	Clock Clock
	Debug bool
}

const defaultHistorySize = 100

type subKey struct {
	kind EventKind
	name string
}

// Subscription is a registered listener. Once inactive it is never invoked
// again.
type Subscription struct {
	bus      *EventBus
	key      subKey
	wildcard bool
	fn       func(AnimationEvent)
	priority int
	once     bool
	active   bool
}

// IsActive reports whether the listener will still be invoked.
func (s *Subscription) IsActive() bool {
	return s != nil && s.active
}

// Unsubscribe removes the listener. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active {
		return
	}
	s.active = false
	s.bus.remove(s)
}

// SubscribeOption adjusts a subscription.
type SubscribeOption func(*Subscription)

// WithPriority orders the listener among others for the same event. Higher
// priorities run first; equal priorities run in registration order.
func WithPriority(p int) SubscribeOption {
	return func(s *Subscription) { s.priority = p }
}

// WithOnce removes the listener after its first invocation.
func WithOnce() SubscribeOption {
	return func(s *Subscription) { s.once = true }
}

type middlewareEntry struct {
	id uint64
	fn Middleware
}

type filterEntry struct {
	id uint64
	fn Filter
}

// EventBus is a publish/subscribe hub for animation events. Listeners are
// snapshotted before each dispatch, so unsubscribing from inside a listener
// never affects the dispatch in progress.
type EventBus struct {
	clock      Clock
	debug      bool
	histCap    int
	listeners  map[subKey][]*Subscription
	wildcard   []*Subscription
	middleware []middlewareEntry
	filters    []filterEntry
	nextID     uint64

	history  []AnimationEvent
	histHead int
}

// NewEventBus creates an empty bus.
func NewEventBus(opts BusOptions) *EventBus {
	size := opts.HistorySize
	switch {
	case size == 0:
		size = defaultHistorySize
	case size < 0:
		size = 0
	}
	return &EventBus{
		clock:     opts.Clock,
		debug:     opts.Debug,
		histCap:   size,
		listeners: make(map[subKey][]*Subscription),
	}
}

var (
	defaultBus     *EventBus
	defaultBusOnce sync.Once
)

// DefaultBus returns a shared bus for programs that do not need isolated
// instances. Components never use it implicitly.
func DefaultBus() *EventBus {
	defaultBusOnce.Do(func() {
		defaultBus = NewEventBus(BusOptions{})
	})
	return defaultBus
}

// On subscribes fn to events of the given kind.
func (b *EventBus) On(kind EventKind, fn func(AnimationEvent), opts ...SubscribeOption) *Subscription {
	return b.subscribe(subKey{kind: kind}, false, fn, opts)
}

// OnCustom subscribes fn to custom events with the given name.
func (b *EventBus) OnCustom(name string, fn func(AnimationEvent), opts ...SubscribeOption) *Subscription {
	return b.subscribe(subKey{kind: EventCustom, name: name}, false, fn, opts)
}

// OnAny subscribes fn to every event. Wildcard listeners run after the
// listeners registered for the exact event.
func (b *EventBus) OnAny(fn func(AnimationEvent), opts ...SubscribeOption) *Subscription {
	return b.subscribe(subKey{}, true, fn, opts)
}

// Once subscribes fn for a single invocation.
func (b *EventBus) Once(kind EventKind, fn func(AnimationEvent), opts ...SubscribeOption) *Subscription {
	return b.On(kind, fn, append(opts, WithOnce())...)
}

// Off removes a subscription. Removing an inactive or nil subscription is a
// no-op.
func (b *EventBus) Off(s *Subscription) {
	s.Unsubscribe()
}

func (b *EventBus) subscribe(key subKey, wildcard bool, fn func(AnimationEvent), opts []SubscribeOption) *Subscription {
	s := &Subscription{bus: b, key: key, wildcard: wildcard, fn: fn, active: true}
	for _, o := range opts {
		o(s)
	}
	if wildcard {
		b.wildcard = insertByPriority(b.wildcard, s)
	} else {
		b.listeners[key] = insertByPriority(b.listeners[key], s)
	}
	return s
}

// insertByPriority places s after every listener with priority >= its own.
func insertByPriority(list []*Subscription, s *Subscription) []*Subscription {
	i := len(list)
	for i > 0 && list[i-1].priority < s.priority {
		i--
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func removeSub(list []*Subscription, s *Subscription) []*Subscription {
	for i, x := range list {
		if x == s {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

func (b *EventBus) remove(s *Subscription) {
	if s.wildcard {
		b.wildcard = removeSub(b.wildcard, s)
		return
	}
	list := removeSub(b.listeners[s.key], s)
	if len(list) == 0 {
		delete(b.listeners, s.key)
	} else {
		b.listeners[s.key] = list
	}
}

// Emit dispatches an event of a known kind. It reports whether the event
// survived middleware and filters.
func (b *EventBus) Emit(kind EventKind, target string, data any) bool {
	return b.Dispatch(AnimationEvent{Kind: kind, Target: target, Data: data})
}

// EmitCustom dispatches a custom named event.
func (b *EventBus) EmitCustom(name, target string, data any) bool {
	return b.Dispatch(AnimationEvent{Kind: EventCustom, Name: name, Target: target, Data: data})
}

// Dispatch runs ev through middleware then filters, records it in history
// and delivers it to exact listeners by priority followed by wildcard
// listeners.
func (b *EventBus) Dispatch(ev AnimationEvent) bool {
	if ev.Timestamp == 0 && b.clock != nil {
		ev.Timestamp = b.clock.Now()
	}
	for _, m := range b.middleware {
		var ok bool
		if ev, ok = m.fn(ev); !ok {
			debugf(b.debug, "bus: %s on %q canceled by middleware", ev.Type(), ev.Target)
			return false
		}
	}
	for _, f := range b.filters {
		if !f.fn(ev) {
			debugf(b.debug, "bus: %s on %q filtered", ev.Type(), ev.Target)
			return false
		}
	}
	b.record(ev)

	key := subKey{kind: ev.Kind}
	if ev.Kind == EventCustom {
		key.name = ev.Name
	}
	exact := b.listeners[key]
	if len(exact)+len(b.wildcard) == 0 {
		return true
	}
	snap := make([]*Subscription, 0, len(exact)+len(b.wildcard))
	snap = append(snap, exact...)
	snap = append(snap, b.wildcard...)
	for _, s := range snap {
		if !s.active {
			continue
		}
		if s.once {
			s.Unsubscribe()
		}
		s.fn(ev)
	}
	return true
}

// AddMiddleware appends a middleware stage. The returned function removes it.
func (b *EventBus) AddMiddleware(fn Middleware) func() {
	b.nextID++
	id := b.nextID
	b.middleware = append(b.middleware, middlewareEntry{id: id, fn: fn})
	return func() {
		for i := range b.middleware {
			if b.middleware[i].id == id {
				b.middleware = append(b.middleware[:i:i], b.middleware[i+1:]...)
				return
			}
		}
	}
}

// AddFilter appends a filter. The returned function removes it.
func (b *EventBus) AddFilter(fn Filter) func() {
	b.nextID++
	id := b.nextID
	b.filters = append(b.filters, filterEntry{id: id, fn: fn})
	return func() {
		for i := range b.filters {
			if b.filters[i].id == id {
				b.filters = append(b.filters[:i:i], b.filters[i+1:]...)
				return
			}
		}
	}
}

func (b *EventBus) record(ev AnimationEvent) {
	if b.histCap == 0 {
		return
	}
	if len(b.history) < b.histCap {
		b.history = append(b.history, ev)
		return
	}
	b.history[b.histHead] = ev
	b.histHead = (b.histHead + 1) % b.histCap
}

// History returns recorded events, oldest first.
func (b *EventBus) History() []AnimationEvent {
	out := make([]AnimationEvent, 0, len(b.history))
	out = append(out, b.history[b.histHead:]...)
	return append(out, b.history[:b.histHead]...)
}

// ClearHistory drops every recorded event.
func (b *EventBus) ClearHistory() {
	clear(b.history)
	b.history = b.history[:0]
	b.histHead = 0
}

// ListenerCount returns the number of active listeners for kind. For
// EventCustom it counts listeners across every custom name.
func (b *EventBus) ListenerCount(kind EventKind) int {
	n := 0
	for k, list := range b.listeners {
		if k.kind == kind {
			n += len(list)
		}
	}
	return n
}

// WildcardCount returns the number of OnAny listeners.
func (b *EventBus) WildcardCount() int {
	return len(b.wildcard)
}

// Clear removes every listener, middleware and filter and empties history.
func (b *EventBus) Clear() {
	for _, list := range b.listeners {
		for _, s := range list {
			s.active = false
		}
	}
	for _, s := range b.wildcard {
		s.active = false
	}
	clear(b.listeners)
	b.wildcard = nil
	b.middleware = nil
	b.filters = nil
	b.ClearHistory()
}
