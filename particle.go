package galileo

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/aquilax/go-perlin"
)

const defaultMaxParticles = 128

// DecayMode selects how a force point's strength falls off with distance.
type DecayMode uint8

const (
	DecayLinear  DecayMode = iota // strength * (1 - d/r)
	DecayInverse                  // strength * r / (r + d)
	DecayNone                     // constant strength inside the radius
	DecayCustom                   // strength * DecayFunc(d, r)
)

var decayNames = [...]string{"linear", "inverse", "none", "custom"}

func (d DecayMode) String() string {
	if int(d) < len(decayNames) {
		return decayNames[d]
	}
	return fmt.Sprintf("DecayMode(%d)", uint8(d))
}

// UnmarshalText reads decay names from presets.
func (d *DecayMode) UnmarshalText(text []byte) error {
	i, err := parseName(decayNames[:], string(text), "decay mode")
	*d = DecayMode(i)
	return err
}

// ForcePoint attracts (positive strength) or repels (negative strength)
// particles within Radius.
type ForcePoint struct {
	Position Vec2      `yaml:"position"`
	Strength float64   `yaml:"strength"`
	Radius   float64   `yaml:"radius"`
	Decay    DecayMode `yaml:"decay"`
	// DecayFunc returns a multiplier in [0, 1] for DecayCustom.
	DecayFunc func(distance, radius float64) float64 `yaml:"-"`
}

// Magnitude returns the signed force magnitude at distance from the point.
// It is zero at or beyond Radius.
func (f ForcePoint) Magnitude(distance float64) float64 {
	if f.Radius <= 0 || distance >= f.Radius {
		return 0
	}
	switch f.Decay {
	case DecayInverse:
		return f.Strength * f.Radius / (f.Radius + distance)
	case DecayNone:
		return f.Strength
	case DecayCustom:
		if f.DecayFunc == nil {
			return f.Strength
		}
		return f.Strength * f.DecayFunc(distance, f.Radius)
	default:
		return f.Strength * (1 - distance/f.Radius)
	}
}

// BoundaryBehavior decides what happens to particles leaving ParticleOptions.Bounds.
type BoundaryBehavior uint8

const (
	BoundaryNone    BoundaryBehavior = iota // particles leave freely
	BoundaryBounce                          // reflect the crossing component, scaled by BounceDamping
	BoundaryDestroy                         // retire the particle
	BoundaryLoop                            // wrap to the opposite edge
)

var boundaryNames = [...]string{"none", "bounce", "destroy", "loop"}

func (b BoundaryBehavior) String() string {
	if int(b) < len(boundaryNames) {
		return boundaryNames[b]
	}
	return fmt.Sprintf("BoundaryBehavior(%d)", uint8(b))
}

// UnmarshalText reads boundary names from presets.
func (b *BoundaryBehavior) UnmarshalText(text []byte) error {
	i, err := parseName(boundaryNames[:], string(text), "boundary behavior")
	*b = BoundaryBehavior(i)
	return err
}

// EmitterShape is the area new particles spawn in.
type EmitterShape uint8

const (
	ShapePoint  EmitterShape = iota // at Emitter.Position
	ShapeRect                       // uniformly inside a Size rectangle centered on Position
	ShapeCircle                     // uniformly inside a circle of radius Size.X
)

var shapeNames = [...]string{"point", "rect", "circle"}

// UnmarshalText reads shape names from presets.
func (s *EmitterShape) UnmarshalText(text []byte) error {
	i, err := parseName(shapeNames[:], string(text), "emitter shape")
	*s = EmitterShape(i)
	return err
}

func parseName(names []string, s, what string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

// Emitter places spawned particles.
type Emitter struct {
	Shape    EmitterShape `yaml:"shape"`
	Position Vec2         `yaml:"position"`
	Size     Vec2         `yaml:"size"`
}

// Turbulence adds a Perlin noise flow field to every particle.
type Turbulence struct {
	Strength float64 `yaml:"strength"`
	// Scale converts positions to noise space. Defaults to 0.01.
	Scale float64 `yaml:"scale"`
	// Speed scrolls the field over time. Defaults to 0.5.
	Speed float64 `yaml:"speed"`
}

// ParticleOptions configures a ParticleEngine. Zero fields inherit from the
// preset and then from DefaultParticleOptions.
type ParticleOptions struct {
	// MaxParticles is the pool size. Spawns beyond it are dropped.
	MaxParticles int `yaml:"maxParticles"`
	// EmissionRate is the number of particles spawned per second.
	EmissionRate float64 `yaml:"emissionRate"`
	// Lifespan is the range of particle lifetimes in seconds.
	Lifespan Range `yaml:"lifespan"`
	// Speed is the range of initial speeds in pixels per second.
	Speed Range `yaml:"speed"`
	// Angle is the range of emission angles in radians.
	Angle           Range   `yaml:"angle"`
	ScaleStart      Range   `yaml:"scaleStart"`
	ScaleEnd        Range   `yaml:"scaleEnd"`
	OpacityStart    Range   `yaml:"opacityStart"`
	OpacityEnd      Range   `yaml:"opacityEnd"`
	ColorStart      []Color `yaml:"colorStart"`
	ColorEnd        []Color `yaml:"colorEnd"`
	Rotation        Range   `yaml:"rotation"`
	AngularVelocity Range   `yaml:"angularVelocity"`
	Gravity         Vec2    `yaml:"gravity"`
	Wind            Vec2    `yaml:"wind"`
	// Friction damps velocity each tick: v *= max(0, 1-Friction).
	Friction float64 `yaml:"friction"`
	// MaxVelocity caps particle speed. Zero means unlimited.
	MaxVelocity float64          `yaml:"maxVelocity"`
	Attractors  []ForcePoint     `yaml:"attractors"`
	Repulsors   []ForcePoint     `yaml:"repulsors"`
	Turbulence  Turbulence       `yaml:"turbulence"`
	Bounds      Rect             `yaml:"bounds"`
	Boundary    BoundaryBehavior `yaml:"boundary"`
	// BounceDamping is the fraction of speed kept after a boundary bounce.
	BounceDamping float64     `yaml:"bounceDamping"`
	Emitter       Emitter     `yaml:"emitter"`
	Quality       QualityTier `yaml:"quality"`
	// Seed makes emission reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`
	// ReducedMotion suppresses all emission.
	ReducedMotion bool `yaml:"reducedMotion"`

	// qualityApplied marks options whose counts already carry the tier.
	qualityApplied bool
}

// Particle is one pooled simulation slot.
type Particle struct {
	ID              uint64
	Position        Vec2
	Velocity        Vec2
	Acceleration    Vec2
	Rotation        float64
	AngularVelocity float64
	Scale           float64
	ScaleStart      float64
	ScaleEnd        float64
	Opacity         float64
	OpacityStart    float64
	OpacityEnd      float64
	Color           Color
	ColorStart      Color
	ColorEnd        Color
	Age             float64
	Lifespan        float64
	Alive           bool
}

// ParticleSnapshot is the read-only per-frame view of a live particle.
type ParticleSnapshot struct {
	ID       uint64
	X, Y     float64
	Rotation float64
	Scale    float64
	Opacity  float64
	Color    Color
}

type forceEntry struct {
	id    int
	point ForcePoint
}

// ParticleEngine simulates a fixed pool of particles. Dead particles return
// to a free-index stack and are reused, so a running engine does not allocate.
type ParticleEngine struct {
	user ParticleOptions
	opts ParticleOptions

	pool   []Particle
	free   []int32
	active []int32

	forces      []forceEntry
	nextForceID int

	nextID    uint64
	emitAccum float64
	emitting  bool
	elapsed   float64

	rng   *rand.Rand
	noise *perlin.Perlin
}

// NewParticleEngine creates an engine with a preallocated pool sized by the
// resolved options. The engine starts stopped.
func NewParticleEngine(opts ParticleOptions) *ParticleEngine {
	e := &ParticleEngine{}
	e.configure(opts, true)
	return e
}

// Reconfigure re-resolves options. Quality tier scaling is applied here, not
// per tick. A changed pool size drops all live particles, and force points
// added at runtime are replaced by the ones in opts.
func (e *ParticleEngine) Reconfigure(opts ParticleOptions) {
	e.configure(opts, false)
}

func (e *ParticleEngine) configure(opts ParticleOptions, fresh bool) {
	prevMax := e.opts.MaxParticles
	e.user = opts
	e.opts = applyQuality(mergeParticleOptions(DefaultParticleOptions, opts))

	if fresh || e.opts.MaxParticles != prevMax {
		n := e.opts.MaxParticles
		e.pool = make([]Particle, n)
		e.free = make([]int32, n)
		e.active = make([]int32, 0, n)
		// Pop order hands out slot 0 first.
		for i := range e.free {
			e.free[i] = int32(n - 1 - i)
		}
		e.emitAccum = 0
	}

	seed := e.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	e.forces = e.forces[:0]
	for _, a := range e.opts.Attractors {
		e.addForce(a)
	}
	for _, r := range e.opts.Repulsors {
		r.Strength = -r.Strength
		e.addForce(r)
	}

	e.noise = nil
	if e.opts.Turbulence.Strength != 0 {
		e.noise = perlin.NewPerlin(2, 2, 3, int64(seed))
	}
}

// Options returns the resolved options, after defaults, preset and quality.
// Passing them back to Reconfigure keeps the current scale.
func (e *ParticleEngine) Options() ParticleOptions {
	return e.opts
}

// Start begins continuous emission.
func (e *ParticleEngine) Start() {
	e.emitting = true
}

// Stop stops continuous emission. Live particles finish their lifetimes.
// Calling Stop more than once is a no-op.
func (e *ParticleEngine) Stop() {
	e.emitting = false
}

// IsEmitting reports whether continuous emission is on.
func (e *ParticleEngine) IsEmitting() bool {
	return e.emitting
}

// Reset stops emission and returns every live particle to the pool.
func (e *ParticleEngine) Reset() {
	e.emitting = false
	e.emitAccum = 0
	for len(e.active) > 0 {
		e.retire(len(e.active) - 1)
	}
}

// ActiveCount returns the number of live particles.
func (e *ParticleEngine) ActiveCount() int {
	return len(e.active)
}

// PoolSize returns the total number of particle slots, live or free.
func (e *ParticleEngine) PoolSize() int {
	return len(e.pool)
}

// SetReducedMotion toggles emission suppression.
func (e *ParticleEngine) SetReducedMotion(on bool) {
	e.opts.ReducedMotion = on
	e.user.ReducedMotion = on
}

// SetEmitterPosition moves the spawn origin.
func (e *ParticleEngine) SetEmitterPosition(p Vec2) {
	e.opts.Emitter.Position = p
}

// SetBounds replaces the boundary rectangle, typically from a container size.
func (e *ParticleEngine) SetBounds(r Rect) {
	e.opts.Bounds = r
}

// AddAttractor adds a force point and returns a handle for RemoveForcePoint.
func (e *ParticleEngine) AddAttractor(p ForcePoint) int {
	return e.addForce(p)
}

// AddRepulsor adds a force point that pushes particles away.
func (e *ParticleEngine) AddRepulsor(p ForcePoint) int {
	p.Strength = -math.Abs(p.Strength)
	return e.addForce(p)
}

func (e *ParticleEngine) addForce(p ForcePoint) int {
	e.nextForceID++
	e.forces = append(e.forces, forceEntry{id: e.nextForceID, point: p})
	return e.nextForceID
}

// MoveForcePoint repositions a force point, for pointer-following attractors.
func (e *ParticleEngine) MoveForcePoint(id int, pos Vec2) bool {
	for i := range e.forces {
		if e.forces[i].id == id {
			e.forces[i].point.Position = pos
			return true
		}
	}
	return false
}

// RemoveForcePoint removes a force point. Unknown handles are ignored.
func (e *ParticleEngine) RemoveForcePoint(id int) {
	for i := range e.forces {
		if e.forces[i].id == id {
			e.forces = append(e.forces[:i], e.forces[i+1:]...)
			return
		}
	}
}

// Emit spawns a single particle. It returns ok=false when the pool is full
// or reduced motion is on.
func (e *ParticleEngine) Emit() (id uint64, ok bool) {
	if e.opts.ReducedMotion {
		return 0, false
	}
	return e.spawn()
}

// Burst spawns up to n particles immediately, independent of the emission
// rate, and returns how many were spawned.
func (e *ParticleEngine) Burst(n int) int {
	spawned := 0
	for i := 0; i < n; i++ {
		if _, ok := e.Emit(); !ok {
			break
		}
		spawned++
	}
	return spawned
}

// Update advances the simulation by dt seconds.
func (e *ParticleEngine) Update(dt float64) {
	if dt <= 0 {
		return
	}
	e.elapsed += dt
	o := &e.opts
	drag := math.Max(0, 1-o.Friction)
	base := o.Gravity.Add(o.Wind)

	i := 0
	for i < len(e.active) {
		p := &e.pool[e.active[i]]
		p.Age += dt
		if p.Age >= p.Lifespan {
			e.retire(i)
			continue
		}

		acc := base
		for k := range e.forces {
			f := &e.forces[k].point
			d := p.Position.Dist(f.Position)
			if d == 0 || d >= f.Radius {
				continue
			}
			dir := f.Position.Sub(p.Position).Scale(1 / d)
			acc = acc.Add(dir.Scale(f.Magnitude(d)))
		}
		if e.noise != nil {
			acc = acc.Add(e.turbulence(p.Position))
		}
		p.Acceleration = acc

		p.Velocity = p.Velocity.Add(acc.Scale(dt)).Scale(drag)
		if o.MaxVelocity > 0 {
			p.Velocity = p.Velocity.ClampLen(o.MaxVelocity)
		}
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
		p.Rotation += p.AngularVelocity * dt

		t := p.Age / p.Lifespan
		p.Scale = lerp(p.ScaleStart, p.ScaleEnd, t)
		p.Opacity = lerp(p.OpacityStart, p.OpacityEnd, t)
		p.Color = LerpColor(p.ColorStart, p.ColorEnd, t)

		if !e.applyBoundary(p) {
			e.retire(i)
			continue
		}
		i++
	}

	if e.emitting && o.EmissionRate > 0 && !o.ReducedMotion {
		e.emitAccum += o.EmissionRate * dt
		for e.emitAccum >= 1.0 {
			e.emitAccum -= 1.0
			e.spawn()
		}
	}
}

func (e *ParticleEngine) turbulence(pos Vec2) Vec2 {
	t := e.opts.Turbulence
	n := e.noise.Noise3D(pos.X*t.Scale, pos.Y*t.Scale, e.elapsed*t.Speed)
	angle := n * 2 * math.Pi
	return Vec2{math.Cos(angle) * t.Strength, math.Sin(angle) * t.Strength}
}

// applyBoundary enforces Bounds on p. It reports false when the particle
// must be retired.
func (e *ParticleEngine) applyBoundary(p *Particle) bool {
	o := &e.opts
	b := o.Bounds
	if o.Boundary == BoundaryNone || b.Width <= 0 || b.Height <= 0 {
		return true
	}
	minX, maxX := b.X, b.X+b.Width
	minY, maxY := b.Y, b.Y+b.Height
	switch o.Boundary {
	case BoundaryDestroy:
		return b.Contains(p.Position.X, p.Position.Y)
	case BoundaryLoop:
		if p.Position.X < minX {
			p.Position.X += b.Width
		} else if p.Position.X > maxX {
			p.Position.X -= b.Width
		}
		if p.Position.Y < minY {
			p.Position.Y += b.Height
		} else if p.Position.Y > maxY {
			p.Position.Y -= b.Height
		}
	case BoundaryBounce:
		if p.Position.X < minX {
			p.Position.X = minX
			p.Velocity.X = -p.Velocity.X * o.BounceDamping
		} else if p.Position.X > maxX {
			p.Position.X = maxX
			p.Velocity.X = -p.Velocity.X * o.BounceDamping
		}
		if p.Position.Y < minY {
			p.Position.Y = minY
			p.Velocity.Y = -p.Velocity.Y * o.BounceDamping
		} else if p.Position.Y > maxY {
			p.Position.Y = maxY
			p.Velocity.Y = -p.Velocity.Y * o.BounceDamping
		}
	}
	return true
}

// spawn initializes the top free slot and marks it active.
func (e *ParticleEngine) spawn() (uint64, bool) {
	if len(e.free) == 0 {
		return 0, false
	}
	idx := e.free[len(e.free)-1]
	e.free = e.free[:len(e.free)-1]
	e.active = append(e.active, idx)

	o := &e.opts
	p := &e.pool[idx]
	e.nextID++

	angle := o.Angle.Random(e.rng)
	speed := o.Speed.Random(e.rng)
	life := o.Lifespan.Random(e.rng)
	if life <= 0 {
		life = 1.0
	}

	*p = Particle{
		ID:              e.nextID,
		Position:        e.spawnPosition(),
		Velocity:        Vec2{math.Cos(angle) * speed, math.Sin(angle) * speed},
		Rotation:        o.Rotation.Random(e.rng),
		AngularVelocity: o.AngularVelocity.Random(e.rng),
		ScaleStart:      o.ScaleStart.Random(e.rng),
		ScaleEnd:        o.ScaleEnd.Random(e.rng),
		OpacityStart:    o.OpacityStart.Random(e.rng),
		OpacityEnd:      o.OpacityEnd.Random(e.rng),
		ColorStart:      e.pickColor(o.ColorStart, ColorWhite),
		Lifespan:        life,
		Alive:           true,
	}
	p.ColorEnd = e.pickColor(o.ColorEnd, p.ColorStart)
	p.Scale = p.ScaleStart
	p.Opacity = p.OpacityStart
	p.Color = p.ColorStart
	return p.ID, true
}

func (e *ParticleEngine) spawnPosition() Vec2 {
	em := e.opts.Emitter
	switch em.Shape {
	case ShapeRect:
		return Vec2{
			em.Position.X + (e.rng.Float64()-0.5)*em.Size.X,
			em.Position.Y + (e.rng.Float64()-0.5)*em.Size.Y,
		}
	case ShapeCircle:
		a := e.rng.Float64() * 2 * math.Pi
		r := math.Sqrt(e.rng.Float64()) * em.Size.X
		return Vec2{em.Position.X + math.Cos(a)*r, em.Position.Y + math.Sin(a)*r}
	default:
		return em.Position
	}
}

func (e *ParticleEngine) pickColor(set []Color, fallback Color) Color {
	switch len(set) {
	case 0:
		return fallback
	case 1:
		return set[0]
	default:
		return set[e.rng.IntN(len(set))]
	}
}

// retire swap-removes active[i] and pushes its slot onto the free stack.
func (e *ParticleEngine) retire(i int) {
	idx := e.active[i]
	e.pool[idx].Alive = false
	last := len(e.active) - 1
	e.active[i] = e.active[last]
	e.active = e.active[:last]
	e.free = append(e.free, idx)
}

// Snapshot appends a view of every live particle to dst and returns it.
// Pass a reused slice to avoid allocating each frame.
func (e *ParticleEngine) Snapshot(dst []ParticleSnapshot) []ParticleSnapshot {
	for _, idx := range e.active {
		p := &e.pool[idx]
		dst = append(dst, ParticleSnapshot{
			ID:       p.ID,
			X:        p.Position.X,
			Y:        p.Position.Y,
			Rotation: p.Rotation,
			Scale:    p.Scale,
			Opacity:  p.Opacity,
			Color:    p.Color,
		})
	}
	return dst
}

// Each calls fn for every live particle. The pointer is only valid during
// the call.
func (e *ParticleEngine) Each(fn func(p *Particle)) {
	for _, idx := range e.active {
		fn(&e.pool[idx])
	}
}
