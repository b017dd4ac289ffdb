package galileo

import (
	"container/heap"
	"time"
)

// Clock reports the current time of a frame-driven loop.
type Clock interface {
	Now() time.Duration
}

// Scheduler is a virtual clock advanced by the frame loop. It replaces wall
// clock timers so delays, safety timeouts and timestamps stay in lockstep
// with simulation time.
type Scheduler struct {
	now    time.Duration
	timers timerHeap
	seq    uint64
}

// NewScheduler creates a scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Pending returns the number of timers waiting to fire.
func (s *Scheduler) Pending() int {
	return len(s.timers)
}

// After schedules fn to run once d has elapsed. A non-positive d fires on the
// next Advance.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Timer{when: s.now + d, seq: s.seq, fn: fn, sched: s, index: -1}
	heap.Push(&s.timers, t)
	return t
}

// Advance moves the clock forward by dt and fires every timer whose deadline
// falls inside the step, in deadline order (ties by creation order). While a
// callback runs, Now reports that timer's deadline, so timers it schedules
// are placed relative to it and fire within the same Advance if due.
func (s *Scheduler) Advance(dt time.Duration) {
	target := s.now + dt
	for len(s.timers) > 0 && s.timers[0].when <= target {
		t := heap.Pop(&s.timers).(*Timer)
		t.fired = true
		if t.when > s.now {
			s.now = t.when
		}
		t.fn()
	}
	s.now = target
}

// Timer is a pending callback on a Scheduler.
type Timer struct {
	when  time.Duration
	seq   uint64
	fn    func()
	sched *Scheduler
	index int
	fired bool
}

// Stop cancels the timer. It reports whether the call prevented the callback
// from running; stopping a fired or already stopped timer returns false.
func (t *Timer) Stop() bool {
	if t == nil || t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&t.sched.timers, t.index)
	return true
}

// Deadline returns the scheduler time at which the timer fires.
func (t *Timer) Deadline() time.Duration {
	return t.when
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// seconds converts a float64 frame delta in seconds to a Duration.
func seconds(dt float64) time.Duration {
	return time.Duration(dt * float64(time.Second))
}
