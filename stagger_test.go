package galileo

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/tanema/gween/ease"
)

func staggerTargets(ids ...string) []StaggerTarget {
	out := make([]StaggerTarget, len(ids))
	for i, id := range ids {
		out[i] = StaggerTarget{ID: id}
	}
	return out
}

func gridTargets(rows, cols int, spacing float64) []StaggerTarget {
	var out []StaggerTarget
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, StaggerTarget{
				ID:       string(rune('a' + r*cols + c)),
				Position: &StaggerPosition{X: float64(c) * spacing, Y: float64(r) * spacing, Row: r, Col: c},
			})
		}
	}
	return out
}

func TestStaggerLinearDelays(t *testing.T) {
	a := NewStaggeredAnimator(StaggerDeps{})
	res := a.Compute(staggerTargets("a", "b", "c", "d", "e"), StaggerOptions{
		StaggerDelay: 50 * time.Millisecond,
		Duration:     300 * time.Millisecond,
	})
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		want := time.Duration(i) * 50 * time.Millisecond
		if res.Delays[id] != want {
			t.Errorf("delay[%s] = %v, want %v", id, res.Delays[id], want)
		}
		if res.Durations[id] != 300*time.Millisecond {
			t.Errorf("duration[%s] = %v, want 300ms", id, res.Durations[id])
		}
	}
	if res.Total != 500*time.Millisecond {
		t.Errorf("Total = %v, want 500ms", res.Total)
	}
}

func TestStaggerPatterns(t *testing.T) {
	ids := []string{"0", "1", "2", "3", "4", "5", "6"}
	tests := []struct {
		pattern StaggerPattern
		want    []string
	}{
		{PatternLinear, []string{"0", "1", "2", "3", "4", "5", "6"}},
		{PatternReverse, []string{"6", "5", "4", "3", "2", "1", "0"}},
		{PatternFromCenter, []string{"3", "2", "4", "1", "5", "0", "6"}},
		{PatternFromEdges, []string{"0", "6", "1", "5", "2", "4", "3"}},
		{PatternEvenOdd, []string{"0", "2", "4", "6", "1", "3", "5"}},
		{PatternOddEven, []string{"1", "3", "5", "0", "2", "4", "6"}},
		{PatternPrimes, []string{"2", "3", "5", "0", "1", "4", "6"}},
		{PatternCustom, []string{"0", "1", "2", "3", "4", "5", "6"}},
	}
	a := NewStaggeredAnimator(StaggerDeps{})
	for _, tt := range tests {
		res := a.Compute(staggerTargets(ids...), StaggerOptions{Pattern: tt.pattern})
		if !slices.Equal(res.Order, tt.want) {
			t.Errorf("pattern %d: order = %v, want %v", tt.pattern, res.Order, tt.want)
		}
	}
}

func TestStaggerRandomSeeded(t *testing.T) {
	a := NewStaggeredAnimator(StaggerDeps{})
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	opts := StaggerOptions{Pattern: PatternRandom, Seed: 99}
	first := a.Compute(staggerTargets(ids...), opts).Order
	second := a.Compute(staggerTargets(ids...), opts).Order
	if !slices.Equal(first, second) {
		t.Errorf("same seed gave %v and %v", first, second)
	}
	sorted := slices.Clone(first)
	slices.Sort(sorted)
	if !slices.Equal(sorted, ids) {
		t.Errorf("shuffle lost elements: %v", first)
	}
}

func TestStaggerExplicitOrderAndExclude(t *testing.T) {
	one, two := 1, 2
	targets := []StaggerTarget{
		{ID: "a"},
		{ID: "b", Order: &two},
		{ID: "c", Exclude: true},
		{ID: "d", Order: &one},
	}
	res := NewStaggeredAnimator(StaggerDeps{}).Compute(targets, StaggerOptions{})
	if !slices.Equal(res.Order, []string{"d", "b", "a"}) {
		t.Errorf("order = %v, want [d b a]", res.Order)
	}
	if _, ok := res.Delays["c"]; ok {
		t.Error("excluded target should not be scheduled")
	}
}

func TestStaggerPerTargetOverrides(t *testing.T) {
	targets := []StaggerTarget{
		{ID: "a", Delay: 10 * time.Millisecond},
		{ID: "b", Duration: time.Second},
	}
	res := NewStaggeredAnimator(StaggerDeps{}).Compute(targets, StaggerOptions{
		StartDelay:   100 * time.Millisecond,
		StaggerDelay: 50 * time.Millisecond,
		Duration:     200 * time.Millisecond,
	})
	if res.Delays["a"] != 110*time.Millisecond {
		t.Errorf("delay[a] = %v, want 110ms", res.Delays["a"])
	}
	if res.Delays["b"] != 150*time.Millisecond || res.Durations["b"] != time.Second {
		t.Errorf("b = %v/%v, want 150ms/1s", res.Delays["b"], res.Durations["b"])
	}
	if res.Total != 1150*time.Millisecond {
		t.Errorf("Total = %v, want 1.15s", res.Total)
	}
}

func TestStaggerDirections(t *testing.T) {
	a := NewStaggeredAnimator(StaggerDeps{})
	grid := gridTargets(2, 2, 10) // a b / c d
	tests := []struct {
		dir  StaggerDirection
		want []string
	}{
		{DirectionTopDown, []string{"a", "b", "c", "d"}},
		{DirectionBottomUp, []string{"c", "d", "a", "b"}},
		{DirectionLeftRight, []string{"a", "c", "b", "d"}},
		{DirectionRightLeft, []string{"b", "d", "a", "c"}},
		{DirectionClockwise, []string{"b", "d", "c", "a"}},
		{DirectionCounterClockwise, []string{"a", "c", "d", "b"}},
	}
	for _, tt := range tests {
		res := a.Compute(grid, StaggerOptions{Direction: tt.dir})
		if !slices.Equal(res.Order, tt.want) {
			t.Errorf("direction %d: order = %v, want %v", tt.dir, res.Order, tt.want)
		}
	}
}

func TestStaggerInwardOutward(t *testing.T) {
	targets := []StaggerTarget{
		{ID: "far", Position: &StaggerPosition{X: 100}},
		{ID: "near", Position: &StaggerPosition{X: 10}},
		{ID: "mid", Position: &StaggerPosition{X: 50}},
		{ID: "loose"},
	}
	ref := Vec2{}
	a := NewStaggeredAnimator(StaggerDeps{})
	out := a.Compute(targets, StaggerOptions{Direction: DirectionOutward, Reference: &ref}).Order
	if !slices.Equal(out, []string{"near", "mid", "far", "loose"}) {
		t.Errorf("outward = %v", out)
	}
	in := a.Compute(targets, StaggerOptions{Direction: DirectionInward, Reference: &ref}).Order
	if !slices.Equal(in, []string{"far", "mid", "near", "loose"}) {
		t.Errorf("inward = %v", in)
	}
}

func TestStaggerGrouping(t *testing.T) {
	a := NewStaggeredAnimator(StaggerDeps{})
	grid := gridTargets(2, 3, 10) // a b c / d e f

	cols := a.Compute(grid, StaggerOptions{Grouping: GroupColumns}).Order
	if !slices.Equal(cols, []string{"a", "d", "b", "e", "c", "f"}) {
		t.Errorf("columns = %v", cols)
	}
	rows := a.Compute(grid, StaggerOptions{Pattern: PatternReverse, Grouping: GroupRows}).Order
	if !slices.Equal(rows, []string{"c", "b", "a", "f", "e", "d"}) {
		t.Errorf("rows keep pattern order within a row: %v", rows)
	}

	targets := []StaggerTarget{
		{ID: "x1", Category: "x"},
		{ID: "y1", Category: "y"},
		{ID: "z1", Category: "z"},
		{ID: "x2", Category: "x"},
	}
	cats := a.Compute(targets, StaggerOptions{Grouping: GroupCategory, Categories: []string{"z"}}).Order
	if !slices.Equal(cats, []string{"z1", "x1", "x2", "y1"}) {
		t.Errorf("categories = %v", cats)
	}

	ref := Vec2{}
	dist := []StaggerTarget{
		{ID: "250", Position: &StaggerPosition{X: 250}},
		{ID: "20", Position: &StaggerPosition{X: 20}},
		{ID: "120", Position: &StaggerPosition{X: 120}},
		{ID: "80", Position: &StaggerPosition{X: 80}},
	}
	got := a.Compute(dist, StaggerOptions{Grouping: GroupDistance, Reference: &ref}).Order
	if !slices.Equal(got, []string{"20", "80", "120", "250"}) {
		t.Errorf("distance buckets = %v", got)
	}
}

func TestStaggerMaxTotalDuration(t *testing.T) {
	res := NewStaggeredAnimator(StaggerDeps{}).Compute(staggerTargets("a", "b", "c"), StaggerOptions{
		StaggerDelay:     time.Second,
		Duration:         200 * time.Millisecond,
		MaxTotalDuration: time.Second,
	})
	if res.Delays["c"] != 800*time.Millisecond {
		t.Errorf("last delay = %v, want 800ms", res.Delays["c"])
	}
	if res.Total != time.Second {
		t.Errorf("Total = %v, want 1s", res.Total)
	}
}

func TestStaggerEasing(t *testing.T) {
	res := NewStaggeredAnimator(StaggerDeps{}).Compute(staggerTargets("a", "b", "c"), StaggerOptions{
		StaggerDelay: 100 * time.Millisecond,
		Easing:       ease.InQuad,
	})
	// Middle item sits at 0.5^2 of the 200ms spread.
	if d := res.Delays["b"]; d != 50*time.Millisecond {
		t.Errorf("eased delay = %v, want 50ms", d)
	}
	if StaggerEasings["quadIn"] == nil {
		t.Error("quadIn easing missing")
	}
}

func TestStaggerDelayFuncAndDistribute(t *testing.T) {
	res := NewStaggeredAnimator(StaggerDeps{}).Compute(staggerTargets("a", "b", "c"), StaggerOptions{
		Pattern: PatternCustom,
		Distribute: func(ts []StaggerTarget) []StaggerTarget {
			return []StaggerTarget{ts[2], ts[0], ts[1]}
		},
		DelayFunc: func(i, n int, _ StaggerTarget) time.Duration {
			return time.Duration(n-i) * time.Millisecond
		},
	})
	if !slices.Equal(res.Order, []string{"c", "a", "b"}) {
		t.Errorf("order = %v", res.Order)
	}
	if res.Delays["c"] != 3*time.Millisecond || res.Delays["b"] != time.Millisecond {
		t.Errorf("delays = %v", res.Delays)
	}
}

func TestStaggerReducedMotion(t *testing.T) {
	res := NewStaggeredAnimator(StaggerDeps{}).Compute(staggerTargets("a", "b"), StaggerOptions{
		StartDelay:    time.Second,
		StaggerDelay:  time.Second,
		Duration:      time.Second,
		ReducedMotion: true,
	})
	if res.Total != 0 || res.Delays["b"] != 0 || res.Durations["a"] != 0 {
		t.Errorf("reduced motion result = %+v", res)
	}
}

// --- Play ---

func newStaggerRig(t *testing.T) (*Scheduler, *Orchestrator, *StaggeredAnimator) {
	t.Helper()
	sched := NewScheduler()
	orch := NewOrchestrator(NewEventBus(BusOptions{Clock: sched}), sched)
	orch.Register(Animation{ID: "pop", Duration: 100 * time.Millisecond, Tracks: []Track{{Property: "scale", From: 0, To: 1}}})
	return sched, orch, NewStaggeredAnimator(StaggerDeps{Scheduler: sched, Orchestrator: orch})
}

func step(sched *Scheduler, orch *Orchestrator, dt float64) {
	sched.Advance(seconds(dt))
	orch.Update(dt)
}

func isDone(p *StaggerPlayback) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

func TestStaggerPlayCompletes(t *testing.T) {
	sched, orch, a := newStaggerRig(t)
	var kinds []EventKind
	orch.Bus().On(EventStaggerStart, func(ev AnimationEvent) { kinds = append(kinds, ev.Kind) })
	orch.Bus().On(EventStaggerComplete, func(ev AnimationEvent) { kinds = append(kinds, ev.Kind) })

	p, err := a.Play(context.Background(), staggerTargets("a", "b", "c"), StaggerOptions{
		Animation:    "pop",
		StaggerDelay: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if p.Result.Total != 200*time.Millisecond {
		t.Errorf("Total = %v, want 200ms with the registered duration", p.Result.Total)
	}

	step(sched, orch, 0.01)
	if orch.Style("b")["scale"] != 0 || len(orch.Style("b")) != 0 {
		t.Errorf("b started before its delay: %v", orch.Style("b"))
	}
	for i := 0; i < 30 && !isDone(p); i++ {
		step(sched, orch, 0.01)
	}
	if !isDone(p) {
		t.Fatal("playback did not complete")
	}
	if p.Canceled() {
		t.Error("completed playback reports canceled")
	}
	for _, id := range []string{"a", "b", "c"} {
		if orch.Style(id)["scale"] != 1 {
			t.Errorf("%s scale = %v, want 1", id, orch.Style(id)["scale"])
		}
	}
	if !slices.Equal(kinds, []EventKind{EventStaggerStart, EventStaggerComplete}) {
		t.Errorf("stagger events = %v", kinds)
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("Wait after done: %v", err)
	}
}

func TestStaggerPlaySafetyTimeout(t *testing.T) {
	sched, _, a := newStaggerRig(t)
	p, _ := a.Play(context.Background(), staggerTargets("a"), StaggerOptions{Animation: "pop"})

	// The orchestrator never updates, so only the safety timer can finish.
	sched.Advance(150 * time.Millisecond)
	if isDone(p) {
		t.Fatal("finished before delay+duration+100ms")
	}
	sched.Advance(60 * time.Millisecond)
	if !isDone(p) {
		t.Error("safety timeout should finish the playback")
	}
}

func TestStaggerPlayCancel(t *testing.T) {
	sched, orch, a := newStaggerRig(t)
	p, _ := a.Play(context.Background(), staggerTargets("a", "b"), StaggerOptions{
		Animation:    "pop",
		StaggerDelay: time.Second,
	})
	step(sched, orch, 0.05)
	if orch.ActiveCount() != 1 {
		t.Fatalf("active = %d, want a running", orch.ActiveCount())
	}
	p.Cancel()
	p.Cancel()
	if !isDone(p) || !p.Canceled() {
		t.Error("Cancel should close Done and report canceled")
	}
	if orch.ActiveCount() != 0 {
		t.Errorf("active = %d, Cancel should stop running animations", orch.ActiveCount())
	}
	if sched.Pending() != 0 {
		t.Errorf("pending timers = %d, Cancel should stop them", sched.Pending())
	}
}

func TestStaggerPlayContextCancel(t *testing.T) {
	sched, orch, a := newStaggerRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	p, _ := a.Play(ctx, staggerTargets("a", "b"), StaggerOptions{
		Animation:    "pop",
		StaggerDelay: 500 * time.Millisecond,
	})
	step(sched, orch, 0.01)
	cancel()
	step(sched, orch, 0.6)
	if !isDone(p) || !p.Canceled() {
		t.Error("context cancellation should cancel the playback")
	}
	if len(orch.Style("b")) != 0 {
		t.Error("b should never start after the context ended")
	}

	if _, err := a.Play(ctx, staggerTargets("a"), StaggerOptions{Animation: "pop"}); err == nil {
		t.Error("Play with a done context should fail")
	}
}

func TestStaggerPlayUnknownAnimation(t *testing.T) {
	_, _, a := newStaggerRig(t)
	p, err := a.Play(context.Background(), staggerTargets("a"), StaggerOptions{Animation: "missing"})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !isDone(p) {
		t.Error("unknown animation should finish immediately")
	}
}

func TestStaggerPlayMissingTargets(t *testing.T) {
	sched := NewScheduler()
	orch := NewOrchestrator(nil, sched)
	orch.Register(Animation{ID: "pop", Duration: 100 * time.Millisecond})
	a := NewStaggeredAnimator(StaggerDeps{
		Scheduler:    sched,
		Orchestrator: orch,
		Resolve:      func(id string) bool { return id != "gone" },
	})
	p, _ := a.Play(context.Background(), staggerTargets("gone", "here"), StaggerOptions{Animation: "pop"})
	for i := 0; i < 20 && !isDone(p); i++ {
		step(sched, orch, 0.01)
	}
	if !isDone(p) {
		t.Error("playback should complete without the missing target")
	}

	p, _ = a.Play(context.Background(), staggerTargets("gone"), StaggerOptions{Animation: "pop"})
	if !isDone(p) {
		t.Error("playback with no resolvable targets should finish immediately")
	}
}

func TestStaggerPlayNeedsDeps(t *testing.T) {
	a := NewStaggeredAnimator(StaggerDeps{})
	if _, err := a.Play(context.Background(), staggerTargets("a"), StaggerOptions{}); err == nil {
		t.Error("Play without scheduler and orchestrator should fail")
	}
}

func TestStaggerWaitContext(t *testing.T) {
	_, _, a := newStaggerRig(t)
	p, _ := a.Play(context.Background(), staggerTargets("a"), StaggerOptions{Animation: "pop"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Error("Wait should return the context error while running")
	}
}

func TestStaggerLinearDelaysExact(t *testing.T) {
	a := NewStaggeredAnimator(StaggerDeps{})
	res := a.Compute(staggerTargets("a", "b", "c", "d"), StaggerOptions{StaggerDelay: 50 * time.Millisecond})
	for i, id := range []string{"a", "b", "c", "d"} {
		if want := time.Duration(i) * 50 * time.Millisecond; res.Delays[id] != want {
			t.Errorf("%s delay = %v, want %v", id, res.Delays[id], want)
		}
	}

	res = a.Compute(staggerTargets("a", "b", "c", "d"), StaggerOptions{
		Duration:         100 * time.Millisecond,
		MaxTotalDuration: time.Second,
		Easing:           ease.Linear,
	})
	if res.Delays["c"] != 600*time.Millisecond || res.Total != time.Second {
		t.Errorf("c delay = %v total = %v, want 600ms and 1s", res.Delays["c"], res.Total)
	}
}

func TestStaggerPlayWaitsForTracklessAnimation(t *testing.T) {
	sched, orch, a := newStaggerRig(t)
	orch.Register(Animation{ID: "hold", Duration: 300 * time.Millisecond})
	p, err := a.Play(context.Background(), staggerTargets("a"), StaggerOptions{Animation: "hold"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		step(sched, orch, 0.05)
	}
	if isDone(p) {
		t.Fatalf("done after %v, before the 300ms duration", sched.Now())
	}
	for i := 0; i < 4 && !isDone(p); i++ {
		step(sched, orch, 0.05)
	}
	if !isDone(p) {
		t.Fatal("playback did not complete")
	}
	if sched.Now() >= 400*time.Millisecond {
		t.Errorf("completed at %v, want the animation to end it before the safety timer", sched.Now())
	}
}

func TestStaggerPlayReducedMotionFinishesInstantly(t *testing.T) {
	sched, orch, a := newStaggerRig(t)
	p, err := a.Play(context.Background(), staggerTargets("a", "b"), StaggerOptions{
		Animation:     "pop",
		StaggerDelay:  50 * time.Millisecond,
		ReducedMotion: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	step(sched, orch, 0.01)
	if !isDone(p) {
		t.Fatal("reduced-motion playback should finish on the first frame")
	}
	for _, id := range []string{"a", "b"} {
		if got := orch.Style(id)["scale"]; got != 1 {
			t.Errorf("%s scale = %v, want final value 1", id, got)
		}
	}
}
