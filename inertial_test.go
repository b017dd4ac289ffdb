package galileo

import (
	"testing"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestInertialDefaults(t *testing.T) {
	cfg := NewInertialMover(InertialConfig{}).Config()
	if cfg.Friction != defaultInertialFriction {
		t.Errorf("Friction = %v, want %v", cfg.Friction, defaultInertialFriction)
	}
	if cfg.VelocityThreshold != defaultVelocityThreshold {
		t.Errorf("VelocityThreshold = %v, want %v", cfg.VelocityThreshold, defaultVelocityThreshold)
	}
	if cfg.MaxVelocity != defaultMaxVelocity {
		t.Errorf("MaxVelocity = %v, want %v", cfg.MaxVelocity, defaultMaxVelocity)
	}
	if cfg.BounceFactor != defaultBounceFactor {
		t.Errorf("BounceFactor = %v, want %v", cfg.BounceFactor, defaultBounceFactor)
	}
	if cfg.Bounds != nil {
		t.Error("Bounds should stay nil without content size")
	}
}

func TestInertialBoundsFromContent(t *testing.T) {
	m := NewInertialMover(InertialConfig{Container: Vec2{100, 100}, Content: Vec2{400, 100}})
	b := m.Config().Bounds
	if b == nil {
		t.Fatal("Bounds should be derived from content size")
	}
	assertNear(t, "Left", b.Left, -300)
	assertNear(t, "Top", b.Top, 0)
}

func TestInertialBounce(t *testing.T) {
	var haptics []HapticKind
	m := NewInertialMover(InertialConfig{
		Axis:   AxisX,
		Bounds: &Bounds{Left: 0, Right: 100},
		Haptic: func(k HapticKind) { haptics = append(haptics, k) },
	})
	m.SetPosition(Vec2{99, 0})
	m.Fling(Vec2{600, 0})
	m.Update(frame)

	st := m.State()
	assertNear(t, "pos.X", st.Position.X, 100)
	// 600 * 0.95 reflected and halved.
	assertNear(t, "vel.X", st.Velocity.X, -285)
	if !st.IsMoving {
		t.Error("should keep moving after a bounce")
	}
	if len(haptics) != 1 || haptics[0] != HapticBounce {
		t.Errorf("haptics = %v, want [bounce]", haptics)
	}
}

func TestInertialCoastStops(t *testing.T) {
	m := NewInertialMover(InertialConfig{})
	var transitions []bool
	last := false
	m.OnChange(func(s InertialState) {
		if s.IsMoving != last {
			transitions = append(transitions, s.IsMoving)
			last = s.IsMoving
		}
	})
	m.Fling(Vec2{500, 0})

	frames := 0
	for m.State().IsMoving && frames < 1000 {
		m.Update(frame)
		frames++
	}
	// 500 * 0.95^n < 5 first holds at n = 90.
	if frames != 90 {
		t.Errorf("coast lasted %d frames, want 90", frames)
	}
	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Errorf("moving transitions = %v, want [true false]", transitions)
	}
	if v := m.State().Velocity; v != (Vec2{}) {
		t.Errorf("velocity after stop = %v, want zero", v)
	}
	if m.Position().X <= 0 {
		t.Errorf("position = %v, want positive travel", m.Position())
	}
}

func TestInertialFrameRateIndependence(t *testing.T) {
	a := NewInertialMover(InertialConfig{})
	b := NewInertialMover(InertialConfig{})
	a.Fling(Vec2{1000, 0})
	b.Fling(Vec2{1000, 0})
	for i := 0; i < 60; i++ {
		a.Update(frame)
	}
	for i := 0; i < 120; i++ {
		b.Update(frame / 2)
	}
	if !approxEqual(a.State().Velocity.X, b.State().Velocity.X, 1e-6) {
		t.Errorf("velocity at 60fps = %v, at 120fps = %v", a.State().Velocity.X, b.State().Velocity.X)
	}
}

func TestInertialDragAndFlick(t *testing.T) {
	var haptics []HapticKind
	m := NewInertialMover(InertialConfig{Haptic: func(k HapticKind) { haptics = append(haptics, k) }})
	m.PointerDown(Vec2{0, 0}, 0)
	if !m.State().IsDragging {
		t.Fatal("should be dragging after PointerDown")
	}
	m.PointerMove(Vec2{10, 0}, ms(10))
	if m.Position() != (Vec2{10, 0}) {
		t.Errorf("drag position = %v, want {10 0}", m.Position())
	}
	m.PointerUp(Vec2{20, 0}, ms(20))

	st := m.State()
	if st.IsDragging || !st.IsMoving {
		t.Fatalf("after flick: %+v, want coasting", st)
	}
	assertNear(t, "release vel", st.Velocity.X, 1000)
	if len(haptics) != 2 || haptics[0] != HapticGrab || haptics[1] != HapticRelease {
		t.Errorf("haptics = %v, want [grab release]", haptics)
	}
}

func TestInertialSlowReleaseStops(t *testing.T) {
	m := NewInertialMover(InertialConfig{})
	m.PointerDown(Vec2{0, 0}, 0)
	m.PointerMove(Vec2{1, 0}, ms(100))
	m.PointerUp(Vec2{1, 0}, ms(200))
	st := m.State()
	if st.IsMoving {
		t.Error("release below threshold should not coast")
	}
	if st.Velocity != (Vec2{}) {
		t.Errorf("velocity = %v, want zero", st.Velocity)
	}
}

func TestInertialReducedMotion(t *testing.T) {
	m := NewInertialMover(InertialConfig{ReducedMotion: true})
	m.PointerDown(Vec2{0, 0}, 0)
	m.PointerMove(Vec2{50, 0}, ms(10))
	m.PointerUp(Vec2{100, 0}, ms(20))
	if m.State().IsMoving {
		t.Error("reduced motion should suppress the coast")
	}
	if m.Position() != (Vec2{100, 0}) {
		t.Errorf("position = %v, drag should still track 1:1", m.Position())
	}

	m.SetReducedMotion(false)
	m.Fling(Vec2{500, 0})
	m.SetReducedMotion(true)
	if m.State().IsMoving {
		t.Error("enabling reduced motion should stop a coast in flight")
	}
}

func TestInertialDragClampsToBounds(t *testing.T) {
	m := NewInertialMover(InertialConfig{Bounds: &Bounds{Left: -50, Right: 0, Top: -50, Bottom: 0}})
	m.PointerDown(Vec2{0, 0}, 0)
	m.PointerMove(Vec2{-200, 30}, ms(16))
	if got := m.Position(); got != (Vec2{-50, 0}) {
		t.Errorf("position = %v, want {-50 0}", got)
	}
}

func TestInertialAxisLock(t *testing.T) {
	m := NewInertialMover(InertialConfig{Axis: AxisY})
	m.PointerDown(Vec2{0, 0}, 0)
	m.PointerMove(Vec2{40, 25}, ms(16))
	if got := m.Position(); got != (Vec2{0, 25}) {
		t.Errorf("position = %v, want X locked at 0", got)
	}
}

func TestInertialMoveWithoutDownIgnored(t *testing.T) {
	m := NewInertialMover(InertialConfig{})
	m.PointerMove(Vec2{10, 10}, ms(16))
	m.PointerUp(Vec2{20, 20}, ms(32))
	if m.Position() != (Vec2{}) {
		t.Errorf("position = %v, want origin", m.Position())
	}
}

func TestInertialGrabCancelsCoast(t *testing.T) {
	m := NewInertialMover(InertialConfig{})
	m.Fling(Vec2{800, 0})
	m.Update(frame)
	m.PointerDown(Vec2{5, 5}, ms(16))
	st := m.State()
	if st.IsMoving || st.Velocity != (Vec2{}) {
		t.Errorf("grab should cancel coast: %+v", st)
	}
}

func TestInertialStopIdempotent(t *testing.T) {
	m := NewInertialMover(InertialConfig{})
	calls := 0
	m.OnChange(func(InertialState) { calls++ })
	m.Fling(Vec2{500, 0})
	calls = 0
	m.Stop()
	m.Stop()
	if calls != 1 {
		t.Errorf("OnChange calls = %d, want 1", calls)
	}
}

func TestInertialOnChangeRemove(t *testing.T) {
	m := NewInertialMover(InertialConfig{})
	calls := 0
	remove := m.OnChange(func(InertialState) { calls++ })
	m.SetPosition(Vec2{1, 1})
	remove()
	m.SetPosition(Vec2{2, 2})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInertialMaxVelocity(t *testing.T) {
	m := NewInertialMover(InertialConfig{MaxVelocity: 300})
	m.Fling(Vec2{3000, 4000})
	assertNear(t, "speed", m.State().Velocity.Len(), 300)
}
