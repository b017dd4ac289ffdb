// Package galileo is a physics-based animation toolkit for [Ebitengine].
//
// Galileo provides the motion primitives an interactive 2D UI needs: damped
// springs, inertial drag-and-flick scrolling, pooled particle systems, spring
// driven layouts, an animation event bus, state machines that trigger
// animations, staggered sequences and synchronized animation groups.
//
// Nothing in the package owns a clock. Every component advances only when
// its Update is called with a frame delta in seconds, so the same code runs
// headless in tests and inside an Ebitengine game loop.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop that drives a [Stage]:
//
//	stage := galileo.NewStage(galileo.StageConfig{})
//	fire, _ := stage.NewParticles("fire", galileo.ParticleOptions{})
//	fire.Start()
//	galileo.Run(stage, galileo.RunConfig{
//		Title: "Campfire", Width: 640, Height: 480,
//		Draw:  func(screen *ebiten.Image) { /* draw fire.Snapshot(nil) */ },
//	})
//
// For full control, create the components yourself and call their Update
// methods from your own [ebiten.Game].
//
// # Physics
//
// [Spring] and [Spring2D] integrate a damped harmonic oscillator, either with
// sub-stepped Euler or the closed-form [harmonica] solver. Named presets such
// as [SpringWobbly] and [SpringMolasses] cover the common feels.
//
// [InertialMover] turns pointer drags into momentum: it coasts with
// frame-rate independent friction after release and bounces off its
// [Bounds]. [PhysicsLayout] pulls grid, stack and freeform items toward
// their slots with springs.
//
// [ParticleEngine] simulates a fixed pool of particles with gravity, wind,
// attractors, repulsors and Perlin turbulence. Presets are loaded from YAML;
// see [LoadParticlePresets].
//
// # Orchestration
//
// An [EventBus] carries [AnimationEvent] values between components. The
// [Orchestrator] plays registered tween animations (via [gween]) on string
// targets. A [StateMachine] runs enter, exit and transition animations as
// events arrive. The [StaggeredAnimator] spreads one animation over many
// targets in patterns, and the [Synchronizer] fires named sync points as a
// group of animations progresses.
//
// # Testing
//
// [PointerTracker] reads the mouse and touch screen only after
// EnableDevices; tests inject input with InjectPress, InjectDrag and
// friends, or script whole interactions with [LoadScript].
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [harmonica]: https://github.com/charmbracelet/harmonica
package galileo
