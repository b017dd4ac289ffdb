package galileo

import (
	"math"
	"time"
)

const (
	// referenceFPS is the frame rate at which InertialConfig.Friction is the
	// exact per-frame decay.
	referenceFPS = 60.0
	// minCoastSpeed ends a coast once speed drops below it (pixels/second).
	minCoastSpeed = 5.0

	defaultInertialFriction  = 0.05
	defaultVelocityThreshold = 50.0
	defaultMaxVelocity       = 4000.0
	defaultBounceFactor      = 0.5
)

// InertialConfig controls drag-and-release motion.
type InertialConfig struct {
	// Friction is the fraction of velocity lost per frame at 60 FPS while
	// coasting. Defaults to 0.05.
	Friction float64
	// VelocityThreshold is the minimum release speed (pixels/second) that
	// starts a coast. Defaults to 50.
	VelocityThreshold float64
	// VelocityFactor scales the release velocity. Defaults to 1.
	VelocityFactor float64
	// MaxVelocity caps the release speed. Defaults to 4000.
	MaxVelocity float64
	// BounceFactor is the fraction of speed lost on each boundary bounce.
	// Defaults to 0.5; negative disables energy loss.
	BounceFactor float64
	// VelocitySmoothing blends each new pointer velocity sample with the
	// previous one: 0 uses the newest sample only.
	VelocitySmoothing float64
	Axis              Axis
	// Bounds limits the position. When nil and Content is non-zero the
	// bounds are derived from Container and Content.
	Bounds    *Bounds
	Container Vec2
	Content   Vec2
	// Haptic is invoked on grab, flick release and bounce. Optional.
	Haptic func(HapticKind)
	// ReducedMotion disables the inertial coast; releases stop in place.
	ReducedMotion bool
}

func resolveInertialConfig(cfg InertialConfig) InertialConfig {
	if cfg.Friction <= 0 {
		cfg.Friction = defaultInertialFriction
	}
	if cfg.VelocityThreshold <= 0 {
		cfg.VelocityThreshold = defaultVelocityThreshold
	}
	if cfg.VelocityFactor <= 0 {
		cfg.VelocityFactor = 1
	}
	if cfg.MaxVelocity <= 0 {
		cfg.MaxVelocity = defaultMaxVelocity
	}
	switch {
	case cfg.BounceFactor == 0:
		cfg.BounceFactor = defaultBounceFactor
	case cfg.BounceFactor < 0:
		cfg.BounceFactor = 0
	}
	cfg.VelocitySmoothing = clamp(cfg.VelocitySmoothing, 0, 0.95)
	if cfg.Bounds == nil && (cfg.Content != Vec2{}) {
		b := ContentBounds(cfg.Container, cfg.Content)
		cfg.Bounds = &b
	}
	return cfg
}

// InertialState is a snapshot of an InertialMover.
type InertialState struct {
	IsDragging bool
	IsMoving   bool
	Position   Vec2
	Velocity   Vec2
}

// PointerTarget receives pointer sequences from a PointerTracker.
type PointerTarget interface {
	PointerDown(p Vec2, t time.Duration)
	PointerMove(p Vec2, t time.Duration)
	PointerUp(p Vec2, t time.Duration)
}

type changeHandler struct {
	id uint32
	fn func(InertialState)
}

// InertialMover moves content 1:1 with the pointer while dragging and keeps
// it coasting with friction after a flick, bouncing off its bounds.
type InertialMover struct {
	cfg      InertialConfig
	dragging bool
	moving   bool
	pos      Vec2
	vel      Vec2

	lastPoint Vec2
	lastTime  time.Duration

	handlers []changeHandler
	nextID   uint32
}

// NewInertialMover creates a mover at the origin.
func NewInertialMover(cfg InertialConfig) *InertialMover {
	return &InertialMover{cfg: resolveInertialConfig(cfg)}
}

// Config returns the resolved configuration.
func (m *InertialMover) Config() InertialConfig {
	return m.cfg
}

// State returns the current state.
func (m *InertialMover) State() InertialState {
	return InertialState{IsDragging: m.dragging, IsMoving: m.moving, Position: m.pos, Velocity: m.vel}
}

// Position returns the current position.
func (m *InertialMover) Position() Vec2 {
	return m.pos
}

// SetPosition moves the content without animation, clamped to bounds.
func (m *InertialMover) SetPosition(p Vec2) {
	m.pos = m.clamp(p)
	m.notify()
}

// SetBounds replaces the movement bounds. Pass nil to remove them.
func (m *InertialMover) SetBounds(b *Bounds) {
	m.cfg.Bounds = b
	m.pos = m.clamp(m.pos)
}

// SetContentSize derives bounds from container and content sizes.
func (m *InertialMover) SetContentSize(container, content Vec2) {
	b := ContentBounds(container, content)
	m.cfg.Container, m.cfg.Content = container, content
	m.SetBounds(&b)
}

// SetReducedMotion toggles the coast.
func (m *InertialMover) SetReducedMotion(on bool) {
	m.cfg.ReducedMotion = on
	if on && m.moving {
		m.Stop()
	}
}

// OnChange registers a callback invoked whenever position or motion state
// changes. The returned function removes it.
func (m *InertialMover) OnChange(fn func(InertialState)) func() {
	m.nextID++
	id := m.nextID
	m.handlers = append(m.handlers, changeHandler{id: id, fn: fn})
	return func() {
		for i := range m.handlers {
			if m.handlers[i].id == id {
				copy(m.handlers[i:], m.handlers[i+1:])
				m.handlers[len(m.handlers)-1] = changeHandler{}
				m.handlers = m.handlers[:len(m.handlers)-1]
				return
			}
		}
	}
}

// PointerDown grabs the content, cancelling any coast in flight.
func (m *InertialMover) PointerDown(p Vec2, t time.Duration) {
	m.moving = false
	m.dragging = true
	m.vel = Vec2{}
	m.lastPoint = p
	m.lastTime = t
	m.haptic(HapticGrab)
	m.notify()
}

// PointerMove drags the content by the pointer delta and samples velocity.
// Moves without a preceding PointerDown are ignored.
func (m *InertialMover) PointerMove(p Vec2, t time.Duration) {
	if !m.dragging {
		return
	}
	delta := m.mask(p.Sub(m.lastPoint))
	if dt := (t - m.lastTime).Seconds(); dt > 0 {
		inst := delta.Scale(1 / dt)
		m.vel = inst.Lerp(m.vel, m.cfg.VelocitySmoothing)
	}
	m.pos = m.clamp(m.pos.Add(delta))
	m.lastPoint = p
	m.lastTime = t
	m.notify()
}

// PointerUp releases the content. A release faster than VelocityThreshold
// starts a coast; anything slower stops immediately.
func (m *InertialMover) PointerUp(p Vec2, t time.Duration) {
	if !m.dragging {
		return
	}
	if p != m.lastPoint {
		m.PointerMove(p, t)
	}
	m.dragging = false
	speed := m.vel.Len()
	if m.cfg.ReducedMotion || speed <= m.cfg.VelocityThreshold {
		m.vel = Vec2{}
		m.moving = false
		m.notify()
		return
	}
	m.vel = m.vel.Scale(m.cfg.VelocityFactor).ClampLen(m.cfg.MaxVelocity)
	m.moving = true
	m.haptic(HapticRelease)
	m.notify()
}

// Fling starts a coast with the given velocity as if released from a drag.
func (m *InertialMover) Fling(v Vec2) {
	m.dragging = false
	m.vel = m.mask(v).ClampLen(m.cfg.MaxVelocity)
	m.moving = !m.cfg.ReducedMotion && m.vel.Len() >= minCoastSpeed
	if !m.moving {
		m.vel = Vec2{}
	}
	m.notify()
}

// Stop ends any coast. Calling it more than once is a no-op.
func (m *InertialMover) Stop() {
	if !m.moving {
		return
	}
	m.moving = false
	m.vel = Vec2{}
	m.notify()
}

// Update advances the coast by dt seconds. It does nothing unless coasting.
func (m *InertialMover) Update(dt float64) {
	if !m.moving || dt <= 0 {
		return
	}
	m.vel = m.vel.Scale(math.Pow(1-m.cfg.Friction, dt*referenceFPS))
	m.pos = m.pos.Add(m.mask(m.vel).Scale(dt))

	bounced := false
	if b := m.cfg.Bounds; b != nil {
		retain := 1 - m.cfg.BounceFactor
		if m.cfg.Axis.hasX() {
			if m.pos.X < b.Left {
				m.pos.X = b.Left
				m.vel.X = -m.vel.X * retain
				bounced = true
			} else if m.pos.X > b.Right {
				m.pos.X = b.Right
				m.vel.X = -m.vel.X * retain
				bounced = true
			}
		}
		if m.cfg.Axis.hasY() {
			if m.pos.Y < b.Top {
				m.pos.Y = b.Top
				m.vel.Y = -m.vel.Y * retain
				bounced = true
			} else if m.pos.Y > b.Bottom {
				m.pos.Y = b.Bottom
				m.vel.Y = -m.vel.Y * retain
				bounced = true
			}
		}
	}
	if bounced {
		m.haptic(HapticBounce)
	} else if m.vel.Len() < minCoastSpeed {
		m.vel = Vec2{}
		m.moving = false
	}
	m.notify()
}

// mask zeroes components on disabled axes.
func (m *InertialMover) mask(v Vec2) Vec2 {
	if !m.cfg.Axis.hasX() {
		v.X = 0
	}
	if !m.cfg.Axis.hasY() {
		v.Y = 0
	}
	return v
}

func (m *InertialMover) clamp(p Vec2) Vec2 {
	b := m.cfg.Bounds
	if b == nil {
		return p
	}
	if m.cfg.Axis.hasX() {
		p.X = clamp(p.X, b.Left, b.Right)
	}
	if m.cfg.Axis.hasY() {
		p.Y = clamp(p.Y, b.Top, b.Bottom)
	}
	return p
}

func (m *InertialMover) haptic(kind HapticKind) {
	if m.cfg.Haptic != nil {
		m.cfg.Haptic(kind)
	}
}

func (m *InertialMover) notify() {
	if len(m.handlers) == 0 {
		return
	}
	st := m.State()
	for _, h := range m.handlers {
		h.fn(st)
	}
}
