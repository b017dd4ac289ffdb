package galileo

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

// SpringIntegrator selects how a Spring advances between updates.
type SpringIntegrator uint8

const (
	// IntegratorEuler steps with semi-implicit Euler using the caller's dt.
	IntegratorEuler SpringIntegrator = iota
	// IntegratorAnalytic uses harmonica's closed-form damped oscillator at a
	// fixed step derived from SpringConfig.FPS.
	IntegratorAnalytic
)

const (
	defaultRestThreshold = 0.01
	defaultSpringFPS     = 60
	// maxSpringStep bounds a single Euler sub-step so long frames stay stable.
	maxSpringStep = 1.0 / 120.0
)

// SpringConfig describes a damped spring along one axis.
type SpringConfig struct {
	Tension         float64
	Friction        float64
	Mass            float64
	InitialVelocity float64
	// RestThreshold is the displacement and speed below which the spring
	// snaps to its target. Defaults to 0.01.
	RestThreshold float64
	Integrator    SpringIntegrator
	// FPS is the fixed step rate for IntegratorAnalytic. Defaults to 60.
	FPS int
	// Debug panics on invalid configs instead of letting NaN propagate.
	Debug bool
}

// Named spring presets.
var (
	SpringDefault  = SpringConfig{Tension: 170, Friction: 26, Mass: 1}
	SpringGentle   = SpringConfig{Tension: 120, Friction: 14, Mass: 1}
	SpringWobbly   = SpringConfig{Tension: 180, Friction: 12, Mass: 1}
	SpringStiff    = SpringConfig{Tension: 210, Friction: 20, Mass: 1}
	SpringSlow     = SpringConfig{Tension: 280, Friction: 60, Mass: 1}
	SpringMolasses = SpringConfig{Tension: 280, Friction: 120, Mass: 1}
)

// SpringPresets maps preset names to configs for lookups from config files.
var SpringPresets = map[string]SpringConfig{
	"default":  SpringDefault,
	"gentle":   SpringGentle,
	"wobbly":   SpringWobbly,
	"stiff":    SpringStiff,
	"slow":     SpringSlow,
	"molasses": SpringMolasses,
}

// SpringState is the observable state of a spring after an update.
type SpringState struct {
	Position float64
	Velocity float64
	Target   float64
	AtRest   bool
}

// Spring integrates a single-axis damped spring toward a target.
type Spring struct {
	cfg      SpringConfig
	pos      float64
	vel      float64
	target   float64
	atRest   bool
	analytic harmonica.Spring
}

// NewSpring creates a spring at position 0 with its target at 0.
func NewSpring(cfg SpringConfig) *Spring {
	if cfg.Debug {
		debugCheckSpring(cfg)
	}
	if cfg.RestThreshold <= 0 {
		cfg.RestThreshold = defaultRestThreshold
	}
	if cfg.FPS <= 0 {
		cfg.FPS = defaultSpringFPS
	}
	s := &Spring{cfg: cfg, vel: cfg.InitialVelocity}
	s.atRest = s.vel == 0
	if cfg.Integrator == IntegratorAnalytic {
		omega := math.Sqrt(cfg.Tension / cfg.Mass)
		zeta := cfg.Friction / (2 * math.Sqrt(cfg.Tension*cfg.Mass))
		s.analytic = harmonica.NewSpring(harmonica.FPS(cfg.FPS), omega, zeta)
	}
	return s
}

// Config returns the resolved configuration.
func (s *Spring) Config() SpringConfig {
	return s.cfg
}

// SetTarget moves the spring's destination. The spring stays at rest only
// if it already sits on the new target with zero velocity.
func (s *Spring) SetTarget(target float64) {
	s.target = target
	s.atRest = s.pos == target && s.vel == 0
}

// Reset reinitializes position and velocity without touching the target.
func (s *Spring) Reset(position, velocity float64) {
	s.pos = position
	s.vel = velocity
	s.atRest = s.pos == s.target && s.vel == 0
}

// Snap jumps straight to the target and rests there.
func (s *Spring) Snap() {
	s.pos = s.target
	s.vel = 0
	s.atRest = true
}

// Update advances the spring by dt seconds and returns its new state.
func (s *Spring) Update(dt float64) SpringState {
	if s.atRest || dt <= 0 {
		return s.State()
	}
	switch s.cfg.Integrator {
	case IntegratorAnalytic:
		// harmonica steps at a fixed rate; consume dt in whole frames.
		step := harmonica.FPS(s.cfg.FPS)
		steps := int(math.Round(dt / step))
		if steps < 1 {
			steps = 1
		}
		for i := 0; i < steps && !s.settle(); i++ {
			s.pos, s.vel = s.analytic.Update(s.pos, s.vel, s.target)
		}
	default:
		for dt > 0 && !s.settle() {
			h := math.Min(dt, maxSpringStep)
			s.stepEuler(h)
			dt -= h
		}
	}
	s.settle()
	return s.State()
}

// stepEuler advances velocity then position (semi-implicit Euler).
func (s *Spring) stepEuler(h float64) {
	displacement := s.pos - s.target
	accel := (-s.cfg.Tension*displacement - s.cfg.Friction*s.vel) / s.cfg.Mass
	s.vel += accel * h
	s.pos += s.vel * h
}

// settle snaps to the target once both speed and displacement fall under the
// rest threshold. It reports whether the spring is at rest.
func (s *Spring) settle() bool {
	if s.atRest {
		return true
	}
	th := s.cfg.RestThreshold
	if math.Abs(s.vel) < th && math.Abs(s.pos-s.target) < th {
		s.pos = s.target
		s.vel = 0
		s.atRest = true
	}
	return s.atRest
}

// State returns the current spring state.
func (s *Spring) State() SpringState {
	return SpringState{Position: s.pos, Velocity: s.vel, Target: s.target, AtRest: s.atRest}
}

// AtRest reports whether the spring has settled on its target.
func (s *Spring) AtRest() bool {
	return s.atRest
}

// Position returns the current position.
func (s *Spring) Position() float64 {
	return s.pos
}

// Spring2D drives an X and a Y spring with the same configuration.
type Spring2D struct {
	X, Y *Spring
}

// NewSpring2D creates a pair of springs resting at the origin.
func NewSpring2D(cfg SpringConfig) *Spring2D {
	return &Spring2D{X: NewSpring(cfg), Y: NewSpring(cfg)}
}

// SetTarget sets both axis targets.
func (s *Spring2D) SetTarget(target Vec2) {
	s.X.SetTarget(target.X)
	s.Y.SetTarget(target.Y)
}

// Reset reinitializes both axes.
func (s *Spring2D) Reset(position, velocity Vec2) {
	s.X.Reset(position.X, velocity.X)
	s.Y.Reset(position.Y, velocity.Y)
}

// Update advances both axes and returns the new position.
func (s *Spring2D) Update(dt float64) Vec2 {
	x := s.X.Update(dt)
	y := s.Y.Update(dt)
	return Vec2{x.Position, y.Position}
}

// AtRest reports whether both axes have settled.
func (s *Spring2D) AtRest() bool {
	return s.X.AtRest() && s.Y.AtRest()
}
