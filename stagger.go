package galileo

import (
	"cmp"
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/tanema/gween/ease"
)

// StaggerPattern reorders the sequence before delays are assigned.
type StaggerPattern uint8

const (
	PatternLinear     StaggerPattern = iota // input order
	PatternReverse                          // last first
	PatternFromCenter                       // middle index, then alternating outward
	PatternFromEdges                        // both ends, then alternating inward
	PatternRandom                           // Fisher-Yates shuffle, seeded by StaggerOptions.Seed
	PatternEvenOdd                          // even indices, then odd
	PatternOddEven                          // odd indices, then even
	PatternPrimes                           // prime indices first
	PatternCustom                           // no reordering; use StaggerOptions.Distribute
)

// StaggerDirection re-sorts targets that carry a position.
type StaggerDirection uint8

const (
	DirectionNone StaggerDirection = iota
	DirectionTopDown
	DirectionBottomUp
	DirectionLeftRight
	DirectionRightLeft
	DirectionClockwise
	DirectionCounterClockwise
	DirectionInward  // furthest from the reference point first
	DirectionOutward // closest first
	DirectionCustom
)

// StaggerGrouping buckets the ordered sequence.
type StaggerGrouping uint8

const (
	GroupNone StaggerGrouping = iota
	GroupRows
	GroupColumns
	GroupCategory
	GroupDistance
)

// StaggerEasings maps curve names to easing functions for StaggerOptions.Easing.
var StaggerEasings = map[string]ease.TweenFunc{
	"linear":      ease.Linear,
	"quadIn":      ease.InQuad,
	"quadOut":     ease.OutQuad,
	"quadInOut":   ease.InOutQuad,
	"cubicIn":     ease.InCubic,
	"cubicOut":    ease.OutCubic,
	"cubicInOut":  ease.InOutCubic,
	"exponential": ease.InExpo,
	"expoOut":     ease.OutExpo,
	"expoInOut":   ease.InOutExpo,
}

// StaggerPosition is a target's spatial placement.
type StaggerPosition struct {
	X, Y, Z  float64
	Row, Col int
}

// StaggerTarget is one element of a staggered sequence.
type StaggerTarget struct {
	ID       string
	Position *StaggerPosition
	Category string
	// Delay is added to the computed delay.
	Delay time.Duration
	// Duration overrides the base duration when positive.
	Duration time.Duration
	// Order sorts explicitly ordered targets ahead of the rest.
	Order *int
	// Exclude drops the target from the sequence.
	Exclude bool
}

// StaggerOptions controls how delays and durations are distributed.
type StaggerOptions struct {
	// Animation is the orchestrator animation played on every target.
	Animation string
	Pattern   StaggerPattern
	Direction StaggerDirection
	// Reference is the point used by angular and distance directions and by
	// distance grouping. Defaults to the centroid of positioned targets.
	Reference *Vec2
	Grouping  StaggerGrouping
	// Categories fixes the order of category groups. Unlisted categories
	// follow in first-seen order.
	Categories []string
	// DistanceBucket is the width of a distance group. Defaults to 100.
	DistanceBucket float64
	// Distribute reorders the final sequence. Optional.
	Distribute func([]StaggerTarget) []StaggerTarget
	// DelayFunc replaces the eased delay curve. Optional.
	DelayFunc func(index, count int, t StaggerTarget) time.Duration

	StartDelay   time.Duration
	StaggerDelay time.Duration
	Duration     time.Duration
	// MaxTotalDuration, when set, spreads delays so the sequence fits.
	MaxTotalDuration time.Duration
	// Easing shapes delays over the sequence. Defaults to ease.Linear.
	Easing ease.TweenFunc
	// Seed makes PatternRandom reproducible. Zero picks a random seed.
	Seed uint64
	// ReducedMotion collapses every delay and duration to zero.
	ReducedMotion bool
}

const (
	defaultDistanceBucket = 100.0
	staggerSafetyMargin   = 100 * time.Millisecond
)

// StaggerResult is the computed schedule.
type StaggerResult struct {
	Order     []string
	Delays    map[string]time.Duration
	Durations map[string]time.Duration
	Total     time.Duration
}

// StaggerDeps wires a StaggeredAnimator to its collaborators.
type StaggerDeps struct {
	Scheduler    *Scheduler
	Orchestrator *Orchestrator
	// Resolve reports whether a target still exists. Missing targets are
	// skipped. Optional.
	Resolve func(target string) bool
	Debug   bool
}

// StaggeredAnimator computes staggered schedules and plays them.
type StaggeredAnimator struct {
	deps StaggerDeps
}

// NewStaggeredAnimator creates an animator. Scheduler and Orchestrator are
// required only for Play.
func NewStaggeredAnimator(deps StaggerDeps) *StaggeredAnimator {
	return &StaggeredAnimator{deps: deps}
}

// Compute runs the ordering pipeline and assigns delays and durations.
func (a *StaggeredAnimator) Compute(targets []StaggerTarget, opts StaggerOptions) StaggerResult {
	seq := make([]StaggerTarget, 0, len(targets))
	for _, t := range targets {
		if !t.Exclude {
			seq = append(seq, t)
		}
	}
	slices.SortStableFunc(seq, compareOrder)
	seq = applyPattern(seq, opts)
	seq = applyDirection(seq, opts)
	seq = applyGrouping(seq, opts)
	if opts.Distribute != nil {
		seq = opts.Distribute(seq)
	}

	res := StaggerResult{
		Order:     make([]string, len(seq)),
		Delays:    make(map[string]time.Duration, len(seq)),
		Durations: make(map[string]time.Duration, len(seq)),
	}
	n := len(seq)
	spread := opts.StaggerDelay * time.Duration(max(n-1, 0))
	if opts.MaxTotalDuration > 0 {
		spread = max(opts.MaxTotalDuration-opts.Duration, 0)
	}
	linear := isLinear(opts.Easing)
	for i, t := range seq {
		res.Order[i] = t.ID
		var delay, dur time.Duration
		if !opts.ReducedMotion {
			if opts.DelayFunc != nil {
				delay = opts.DelayFunc(i, n, t)
			} else {
				delay = opts.StartDelay
				switch {
				case n <= 1:
				case linear:
					delay += spread * time.Duration(i) / time.Duration(n-1)
				default:
					e := float64(opts.Easing(float32(i)/float32(n-1), 0, 1, 1))
					delay += time.Duration(math.Round(e * float64(spread)))
				}
			}
			delay += t.Delay
			dur = opts.Duration
			if t.Duration > 0 {
				dur = t.Duration
			}
		}
		res.Delays[t.ID] = delay
		res.Durations[t.ID] = dur
		res.Total = max(res.Total, delay+dur)
	}
	return res
}

// isLinear reports whether fn leaves progress unchanged, so delays can be
// computed in exact integer time.
func isLinear(fn ease.TweenFunc) bool {
	return fn == nil || reflect.ValueOf(fn).Pointer() == reflect.ValueOf(ease.Linear).Pointer()
}

// compareOrder sorts explicitly ordered targets first, ascending.
func compareOrder(a, b StaggerTarget) int {
	switch {
	case a.Order != nil && b.Order != nil:
		return cmp.Compare(*a.Order, *b.Order)
	case a.Order != nil:
		return -1
	case b.Order != nil:
		return 1
	}
	return 0
}

func applyPattern(seq []StaggerTarget, opts StaggerOptions) []StaggerTarget {
	n := len(seq)
	if n < 2 {
		return seq
	}
	out := make([]StaggerTarget, 0, n)
	switch opts.Pattern {
	case PatternReverse:
		for i := n - 1; i >= 0; i-- {
			out = append(out, seq[i])
		}
	case PatternFromCenter:
		mid := n / 2
		out = append(out, seq[mid])
		for off := 1; len(out) < n; off++ {
			if i := mid - off; i >= 0 {
				out = append(out, seq[i])
			}
			if i := mid + off; i < n {
				out = append(out, seq[i])
			}
		}
	case PatternFromEdges:
		for lo, hi := 0, n-1; lo <= hi; lo, hi = lo+1, hi-1 {
			out = append(out, seq[lo])
			if hi != lo {
				out = append(out, seq[hi])
			}
		}
	case PatternRandom:
		out = append(out, seq...)
		seed := opts.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for i := n - 1; i > 0; i-- {
			j := rng.IntN(i + 1)
			out[i], out[j] = out[j], out[i]
		}
	case PatternEvenOdd, PatternOddEven:
		first := 0
		if opts.Pattern == PatternOddEven {
			first = 1
		}
		for _, parity := range [2]int{first, 1 - first} {
			for i := parity; i < n; i += 2 {
				out = append(out, seq[i])
			}
		}
	case PatternPrimes:
		prime := sieve(n)
		for i := range seq {
			if prime[i] {
				out = append(out, seq[i])
			}
		}
		for i := range seq {
			if !prime[i] {
				out = append(out, seq[i])
			}
		}
	default:
		return seq
	}
	return out
}

// sieve returns a table marking the primes below n.
func sieve(n int) []bool {
	prime := make([]bool, n)
	for i := 2; i < n; i++ {
		prime[i] = true
	}
	for i := 2; i*i < n; i++ {
		if !prime[i] {
			continue
		}
		for j := i * i; j < n; j += i {
			prime[j] = false
		}
	}
	return prime
}

// reference returns the configured reference point or the centroid of the
// positioned targets.
func reference(seq []StaggerTarget, opts StaggerOptions) Vec2 {
	if opts.Reference != nil {
		return *opts.Reference
	}
	var sum Vec2
	n := 0
	for _, t := range seq {
		if t.Position != nil {
			sum = sum.Add(Vec2{t.Position.X, t.Position.Y})
			n++
		}
	}
	if n == 0 {
		return Vec2{}
	}
	return sum.Scale(1 / float64(n))
}

// clockAngle measures the angle of p around ref starting at 12 o'clock and
// increasing clockwise on screen (Y down), in [0, 2π).
func clockAngle(ref Vec2, p *StaggerPosition) float64 {
	a := math.Atan2(p.Y-ref.Y, p.X-ref.X) + math.Pi/2
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func applyDirection(seq []StaggerTarget, opts StaggerOptions) []StaggerTarget {
	if opts.Direction == DirectionNone || opts.Direction == DirectionCustom {
		return seq
	}
	positioned := make([]StaggerTarget, 0, len(seq))
	var rest []StaggerTarget
	for _, t := range seq {
		if t.Position != nil {
			positioned = append(positioned, t)
		} else {
			rest = append(rest, t)
		}
	}
	ref := reference(seq, opts)
	var key func(p *StaggerPosition) float64
	switch opts.Direction {
	case DirectionTopDown:
		key = func(p *StaggerPosition) float64 { return p.Y }
	case DirectionBottomUp:
		key = func(p *StaggerPosition) float64 { return -p.Y }
	case DirectionLeftRight:
		key = func(p *StaggerPosition) float64 { return p.X }
	case DirectionRightLeft:
		key = func(p *StaggerPosition) float64 { return -p.X }
	case DirectionClockwise:
		key = func(p *StaggerPosition) float64 { return clockAngle(ref, p) }
	case DirectionCounterClockwise:
		key = func(p *StaggerPosition) float64 {
			return math.Mod(2*math.Pi-clockAngle(ref, p), 2*math.Pi)
		}
	case DirectionInward:
		key = func(p *StaggerPosition) float64 { return -ref.Dist(Vec2{p.X, p.Y}) }
	case DirectionOutward:
		key = func(p *StaggerPosition) float64 { return ref.Dist(Vec2{p.X, p.Y}) }
	default:
		return seq
	}
	slices.SortStableFunc(positioned, func(a, b StaggerTarget) int {
		return cmp.Compare(key(a.Position), key(b.Position))
	})
	return append(positioned, rest...)
}

// applyGrouping stable-sorts by group key, which concatenates the groups in
// ascending key order while keeping the pattern order inside each group.
// Targets lacking the grouped attribute form the last group.
func applyGrouping(seq []StaggerTarget, opts StaggerOptions) []StaggerTarget {
	var key func(t StaggerTarget) float64
	switch opts.Grouping {
	case GroupRows:
		key = func(t StaggerTarget) float64 {
			if t.Position == nil {
				return math.Inf(1)
			}
			return float64(t.Position.Row)
		}
	case GroupColumns:
		key = func(t StaggerTarget) float64 {
			if t.Position == nil {
				return math.Inf(1)
			}
			return float64(t.Position.Col)
		}
	case GroupCategory:
		rank := make(map[string]int, len(opts.Categories))
		for i, c := range opts.Categories {
			if _, ok := rank[c]; !ok {
				rank[c] = i
			}
		}
		for _, t := range seq {
			if _, ok := rank[t.Category]; !ok {
				rank[t.Category] = len(rank)
			}
		}
		key = func(t StaggerTarget) float64 { return float64(rank[t.Category]) }
	case GroupDistance:
		ref := reference(seq, opts)
		bucket := opts.DistanceBucket
		if bucket <= 0 {
			bucket = defaultDistanceBucket
		}
		key = func(t StaggerTarget) float64 {
			if t.Position == nil {
				return math.Inf(1)
			}
			return math.Floor(ref.Dist(Vec2{t.Position.X, t.Position.Y}) / bucket)
		}
	default:
		return seq
	}
	slices.SortStableFunc(seq, func(a, b StaggerTarget) int {
		return cmp.Compare(key(a), key(b))
	})
	return seq
}

// Play computes the schedule and starts opts.Animation on each target at its
// delay. A zero opts.Duration uses the animation's registered duration. The
// playback is done once every target's animation completes or is canceled,
// or once its safety timeout of delay+duration+100ms passes. If ctx is
// canceled, the playback cancels itself on the next scheduled callback.
func (a *StaggeredAnimator) Play(ctx context.Context, targets []StaggerTarget, opts StaggerOptions) (*StaggerPlayback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sched, orch := a.deps.Scheduler, a.deps.Orchestrator
	if sched == nil || orch == nil {
		return nil, errors.New("galileo: staggered playback needs a scheduler and an orchestrator")
	}
	anim, known := orch.Animation(opts.Animation)
	if known && opts.Duration <= 0 {
		opts.Duration = anim.Duration
	}
	res := a.Compute(targets, opts)
	p := &StaggerPlayback{
		Result:    res,
		ctx:       ctx,
		orch:      orch,
		bus:       orch.Bus(),
		entries:   make(map[string]*staggerEntry, len(res.Order)),
		playing:   make(map[PlayID]string),
		done:      make(chan struct{}),
		animation: opts.Animation,
	}
	if !known {
		debugf(a.deps.Debug, "stagger: unknown animation %q, skipping %d targets", opts.Animation, len(res.Order))
		p.finishAll()
		return p, nil
	}
	for _, id := range res.Order {
		if a.deps.Resolve != nil && !a.deps.Resolve(id) {
			debugf(a.deps.Debug, "stagger: target %q not found, skipping", id)
			continue
		}
		p.entries[id] = &staggerEntry{}
	}
	p.remaining = len(p.entries)
	if p.remaining == 0 {
		p.finishAll()
		return p, nil
	}

	p.subs[0] = p.bus.On(EventAnimationComplete, p.onPlaybackEnd)
	p.subs[1] = p.bus.On(EventAnimationCancel, p.onPlaybackEnd)
	p.bus.Emit(EventStaggerStart, opts.Animation, res)

	for _, id := range res.Order {
		e, ok := p.entries[id]
		if !ok {
			continue
		}
		delay, dur := res.Delays[id], res.Durations[id]
		e.start = sched.After(delay, func() {
			if !p.live() {
				return
			}
			pid, ok := orch.play(opts.Animation, id, dur)
			if !ok {
				p.finish(id)
				return
			}
			e.play = pid
			e.started = true
			p.playing[pid] = id
		})
		e.safety = sched.After(delay+dur+staggerSafetyMargin, func() {
			if !p.live() {
				return
			}
			debugf(a.deps.Debug, "stagger: %q timed out waiting for completion", id)
			p.finish(id)
		})
	}
	return p, nil
}

type staggerEntry struct {
	start    *Timer
	safety   *Timer
	play     PlayID
	started  bool
	finished bool
}

// StaggerPlayback is a running staggered sequence. Methods other than Done
// and Wait must be called from the goroutine driving the Scheduler.
type StaggerPlayback struct {
	Result StaggerResult

	ctx       context.Context
	orch      *Orchestrator
	bus       *EventBus
	animation string
	entries   map[string]*staggerEntry
	playing   map[PlayID]string
	remaining int
	subs      [2]*Subscription
	canceled  bool
	closed    bool

	done     chan struct{}
	doneOnce sync.Once
}

// Done is closed when the playback completes or is canceled.
func (p *StaggerPlayback) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until Done is closed or ctx ends. It must not be called from
// the goroutine that advances the Scheduler.
func (p *StaggerPlayback) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Canceled reports whether Cancel ended the playback.
func (p *StaggerPlayback) Canceled() bool {
	return p.canceled
}

// live reports whether scheduled callbacks may still act, canceling the
// playback if its context has ended.
func (p *StaggerPlayback) live() bool {
	if p.closed {
		return false
	}
	if p.ctx.Err() != nil {
		p.Cancel()
		return false
	}
	return true
}

func (p *StaggerPlayback) onPlaybackEnd(ev AnimationEvent) {
	info, ok := ev.Data.(PlaybackInfo)
	if !ok {
		return
	}
	if id, ok := p.playing[info.PlayID]; ok {
		p.finish(id)
	}
}

func (p *StaggerPlayback) finish(id string) {
	e, ok := p.entries[id]
	if !ok || e.finished || p.closed {
		return
	}
	e.finished = true
	e.safety.Stop()
	delete(p.playing, e.play)
	p.remaining--
	if p.remaining == 0 {
		p.bus.Emit(EventStaggerComplete, p.animation, p.Result)
		p.finishAll()
	}
}

func (p *StaggerPlayback) finishAll() {
	p.closed = true
	for _, s := range p.subs {
		s.Unsubscribe()
	}
	p.doneOnce.Do(func() { close(p.done) })
}

// Cancel stops pending timers and running animations. Animations that
// already completed are unaffected. Calling Cancel again is a no-op.
func (p *StaggerPlayback) Cancel() {
	if p.closed {
		return
	}
	p.canceled = true
	p.closed = true
	for _, s := range p.subs {
		s.Unsubscribe()
	}
	for _, e := range p.entries {
		if e.finished {
			continue
		}
		e.start.Stop()
		e.safety.Stop()
		if e.started {
			p.orch.Stop(e.play)
		}
	}
	p.doneOnce.Do(func() { close(p.done) })
}
