package galileo

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// StageConfig configures a Stage. It can be loaded from YAML with
// LoadStageConfig.
type StageConfig struct {
	// HistorySize caps the bus history; see BusOptions.
	HistorySize   int         `yaml:"historySize"`
	Quality       QualityTier `yaml:"quality"`
	ReducedMotion bool        `yaml:"reducedMotion"`
	Debug         bool        `yaml:"debug"`
	// TPS is the tick rate Run drives the stage at. Defaults to 60.
	TPS int `yaml:"tps"`
}

// LoadStageConfig reads a StageConfig from a YAML file.
func LoadStageConfig(path string) (StageConfig, error) {
	var cfg StageConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read stage config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse stage config %s: %w", path, err)
	}
	return cfg, nil
}

// Stage is the composition root: it owns one scheduler, bus, orchestrator,
// staggered animator, synchronizer and pointer tracker, plus the physics
// components added to it, and advances them all from Update.
type Stage struct {
	cfg       StageConfig
	debug     bool
	scheduler *Scheduler
	bus       *EventBus
	orch      *Orchestrator
	animator  *StaggeredAnimator
	sync      *Synchronizer
	pointer   *PointerTracker
	runner    *ScriptRunner

	particles []*ParticleEngine
	movers    []*InertialMover
	layouts   []*PhysicsLayout
	machines  map[string]*StateMachine

	reducedMotion bool
}

// NewStage wires a stage's shared services.
func NewStage(cfg StageConfig) *Stage {
	sched := NewScheduler()
	bus := NewEventBus(BusOptions{HistorySize: cfg.HistorySize, Clock: sched, Debug: cfg.Debug})
	orch := NewOrchestrator(bus, sched)
	s := &Stage{
		cfg:       cfg,
		debug:     cfg.Debug,
		scheduler: sched,
		bus:       bus,
		orch:      orch,
		animator:  NewStaggeredAnimator(StaggerDeps{Scheduler: sched, Orchestrator: orch, Debug: cfg.Debug}),
		sync:      NewSynchronizer(SyncDeps{Bus: bus, Clock: sched, Debug: cfg.Debug}),
		pointer:   NewPointerTracker(sched, bus),
		machines:  make(map[string]*StateMachine),
	}
	s.SetReducedMotion(cfg.ReducedMotion)
	return s
}

// Config returns the configuration the stage was built with.
func (s *Stage) Config() StageConfig { return s.cfg }

// Scheduler returns the stage clock.
func (s *Stage) Scheduler() *Scheduler { return s.scheduler }

// Bus returns the stage event bus.
func (s *Stage) Bus() *EventBus { return s.bus }

// Orchestrator returns the stage orchestrator.
func (s *Stage) Orchestrator() *Orchestrator { return s.orch }

// Animator returns the stage staggered animator.
func (s *Stage) Animator() *StaggeredAnimator { return s.animator }

// Synchronizer returns the stage synchronizer.
func (s *Stage) Synchronizer() *Synchronizer { return s.sync }

// Pointer returns the stage pointer tracker.
func (s *Stage) Pointer() *PointerTracker { return s.pointer }

// SetDebugMode toggles per-frame stats on stderr.
func (s *Stage) SetDebugMode(enabled bool) {
	s.debug = enabled
}

// SetReducedMotion propagates the preference to every owned component.
func (s *Stage) SetReducedMotion(on bool) {
	s.reducedMotion = on
	s.orch.SetReducedMotion(on)
	for _, e := range s.particles {
		e.SetReducedMotion(on)
	}
	for _, m := range s.movers {
		m.SetReducedMotion(on)
	}
	for _, l := range s.layouts {
		l.SetReducedMotion(on)
	}
}

// ReducedMotion reports the current preference.
func (s *Stage) ReducedMotion() bool { return s.reducedMotion }

// AddParticles adds an engine to the update loop.
func (s *Stage) AddParticles(e *ParticleEngine) {
	e.SetReducedMotion(s.reducedMotion)
	s.particles = append(s.particles, e)
}

// NewParticles builds an engine from a preset, applying the stage quality
// tier when user leaves Quality at its default, and adds it.
func (s *Stage) NewParticles(preset string, user ParticleOptions) (*ParticleEngine, error) {
	if user.Quality == QualityHigh {
		user.Quality = s.cfg.Quality
	}
	e, err := NewParticleEngineFromPreset(preset, user)
	if err != nil {
		return nil, err
	}
	s.AddParticles(e)
	return e, nil
}

// RemoveParticles removes an engine from the update loop.
func (s *Stage) RemoveParticles(e *ParticleEngine) {
	s.particles = slices.DeleteFunc(s.particles, func(x *ParticleEngine) bool { return x == e })
}

// AddMover adds an inertial mover to the update loop and, when area is
// non-empty, routes presses inside it to the mover.
func (s *Stage) AddMover(m *InertialMover, area Rect) {
	m.SetReducedMotion(s.reducedMotion)
	s.movers = append(s.movers, m)
	if area.Width > 0 && area.Height > 0 {
		s.pointer.Attach(area, m)
	}
}

// RemoveMover removes a mover from the update loop.
func (s *Stage) RemoveMover(m *InertialMover) {
	s.movers = slices.DeleteFunc(s.movers, func(x *InertialMover) bool { return x == m })
}

// AddLayout adds a physics layout to the update loop.
func (s *Stage) AddLayout(l *PhysicsLayout) {
	l.SetReducedMotion(s.reducedMotion)
	s.layouts = append(s.layouts, l)
}

// RemoveLayout removes a layout from the update loop.
func (s *Stage) RemoveLayout(l *PhysicsLayout) {
	s.layouts = slices.DeleteFunc(s.layouts, func(x *PhysicsLayout) bool { return x == l })
}

// NewMachine builds a state machine wired to the stage orchestrator, bus
// and clock, and registers it under cfg.ID for scripts.
func (s *Stage) NewMachine(cfg StateMachineConfig) (*StateMachine, error) {
	if cfg.Orchestrator == nil {
		cfg.Orchestrator = s.orch
	}
	if cfg.Bus == nil {
		cfg.Bus = s.bus
	}
	if cfg.Clock == nil {
		cfg.Clock = s.scheduler
	}
	m, err := NewStateMachine(cfg)
	if err != nil {
		return nil, err
	}
	s.machines[cfg.ID] = m
	return m, nil
}

// Machine looks up a machine created with NewMachine.
func (s *Stage) Machine(id string) (*StateMachine, bool) {
	m, ok := s.machines[id]
	return m, ok
}

// SetScriptRunner attaches a runner whose step is taken at the start of
// each Update.
func (s *Stage) SetScriptRunner(r *ScriptRunner) {
	s.runner = r
}

// Update advances the stage by dt seconds: script, pointer input,
// scheduler, orchestrator, synchronizer groups, movers, layouts and particle
// engines, in that order.
func (s *Stage) Update(dt float64) {
	if s.runner != nil {
		s.runner.step(s)
	}
	s.pointer.Update()
	s.scheduler.Advance(seconds(dt))
	s.orch.Update(dt)
	s.sync.Update(dt)
	for _, m := range s.movers {
		m.Update(dt)
	}
	for _, l := range s.layouts {
		l.Update(dt)
	}
	for _, e := range s.particles {
		e.Update(dt)
	}
	if s.debug {
		st := stageStats{
			movers:     len(s.movers),
			layouts:    len(s.layouts),
			timers:     s.scheduler.Pending(),
			animations: s.orch.ActiveCount(),
		}
		for _, e := range s.particles {
			st.particles += e.ActiveCount()
		}
		s.debugLog(st)
	}
}
