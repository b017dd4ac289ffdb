package galileo

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPreset is returned when a preset name is not registered.
var ErrUnknownPreset = errors.New("galileo: unknown preset")

//go:embed presets/particles.yaml
var builtinParticlePresets []byte

// DefaultParticleOptions is the bottom layer every engine resolves over.
var DefaultParticleOptions = ParticleOptions{
	MaxParticles:  defaultMaxParticles,
	EmissionRate:  10,
	Lifespan:      Range{1, 2},
	Speed:         Range{50, 100},
	Angle:         Range{0, 2 * math.Pi},
	ScaleStart:    Range{1, 1},
	ScaleEnd:      Range{1, 1},
	OpacityStart:  Range{1, 1},
	ColorStart:    []Color{ColorWhite},
	BounceDamping: 0.8,
	Turbulence:    Turbulence{Scale: 0.01, Speed: 0.5},
}

// ParticlePresets holds the built-in presets: fire, snow, confetti, sparkle
// and smoke. Callers may add their own entries at startup.
var ParticlePresets = mustLoadPresets(builtinParticlePresets)

type presetFile struct {
	Presets map[string]ParticleOptions `yaml:"presets"`
}

func mustLoadPresets(data []byte) map[string]ParticleOptions {
	p, err := parsePresets(data)
	if err != nil {
		panic(fmt.Sprintf("galileo: built-in presets: %v", err))
	}
	return p
}

func parsePresets(data []byte) (map[string]ParticleOptions, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse particle presets: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("parse particle presets: no presets")
	}
	return f.Presets, nil
}

// LoadParticlePresets reads a YAML preset file of the form
//
//	presets:
//	  embers:
//	    emissionRate: 40
//	    colorStart: ["#ff8800"]
func LoadParticlePresets(r io.Reader) (map[string]ParticleOptions, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read particle presets: %w", err)
	}
	return parsePresets(data)
}

// LoadParticlePresetFile reads presets from a YAML file on disk.
func LoadParticlePresetFile(path string) (map[string]ParticleOptions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open particle presets: %w", err)
	}
	defer f.Close()
	return LoadParticlePresets(f)
}

// ResolveParticleOptions layers defaults, the named preset and user options,
// in that order, then applies the quality tier. An empty preset name skips
// the preset layer. The result can be passed to NewParticleEngine without
// being scaled a second time.
func ResolveParticleOptions(preset string, user ParticleOptions) (ParticleOptions, error) {
	layered := user
	if preset != "" {
		p, ok := ParticlePresets[preset]
		if !ok {
			return ParticleOptions{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
		}
		layered = mergeParticleOptions(p, user)
	}
	return applyQuality(mergeParticleOptions(DefaultParticleOptions, layered)), nil
}

// NewParticleEngineFromPreset builds an engine from a preset plus overrides.
func NewParticleEngineFromPreset(preset string, user ParticleOptions) (*ParticleEngine, error) {
	if _, ok := ParticlePresets[preset]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	return NewParticleEngine(mergeParticleOptions(ParticlePresets[preset], user)), nil
}

// mergeParticleOptions returns base with every non-zero field of over
// applied on top. Each field defaults independently.
func mergeParticleOptions(base, over ParticleOptions) ParticleOptions {
	out := base
	setInt(&out.MaxParticles, over.MaxParticles)
	setFloat(&out.EmissionRate, over.EmissionRate)
	setRange(&out.Lifespan, over.Lifespan)
	setRange(&out.Speed, over.Speed)
	setRange(&out.Angle, over.Angle)
	setRange(&out.ScaleStart, over.ScaleStart)
	setRange(&out.ScaleEnd, over.ScaleEnd)
	setRange(&out.OpacityStart, over.OpacityStart)
	setRange(&out.OpacityEnd, over.OpacityEnd)
	setRange(&out.Rotation, over.Rotation)
	setRange(&out.AngularVelocity, over.AngularVelocity)
	if len(over.ColorStart) > 0 {
		out.ColorStart = over.ColorStart
	}
	if len(over.ColorEnd) > 0 {
		out.ColorEnd = over.ColorEnd
	}
	setVec(&out.Gravity, over.Gravity)
	setVec(&out.Wind, over.Wind)
	setFloat(&out.Friction, over.Friction)
	setFloat(&out.MaxVelocity, over.MaxVelocity)
	if len(over.Attractors) > 0 {
		out.Attractors = over.Attractors
	}
	if len(over.Repulsors) > 0 {
		out.Repulsors = over.Repulsors
	}
	setFloat(&out.Turbulence.Strength, over.Turbulence.Strength)
	setFloat(&out.Turbulence.Scale, over.Turbulence.Scale)
	setFloat(&out.Turbulence.Speed, over.Turbulence.Speed)
	if over.Bounds != (Rect{}) {
		out.Bounds = over.Bounds
	}
	if over.Boundary != BoundaryNone {
		out.Boundary = over.Boundary
	}
	setFloat(&out.BounceDamping, over.BounceDamping)
	if over.Emitter.Shape != ShapePoint {
		out.Emitter.Shape = over.Emitter.Shape
	}
	setVec(&out.Emitter.Position, over.Emitter.Position)
	setVec(&out.Emitter.Size, over.Emitter.Size)
	if over.Quality != QualityHigh {
		out.Quality = over.Quality
	}
	if over.Seed != 0 {
		out.Seed = over.Seed
	}
	out.ReducedMotion = out.ReducedMotion || over.ReducedMotion
	out.qualityApplied = out.qualityApplied || over.qualityApplied
	return out
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setRange(dst *Range, v Range) {
	if v != (Range{}) {
		*dst = v
	}
}

func setVec(dst *Vec2, v Vec2) {
	if v != (Vec2{}) {
		*dst = v
	}
}

// qualityScale holds the per-tier multipliers applied at resolve time.
type qualityScale struct {
	particles, rate, velocity, friction float64
}

var qualityScales = map[QualityTier]qualityScale{
	QualityLow:    {particles: 0.25, rate: 0.5, velocity: 0.75, friction: 0.02},
	QualityMedium: {particles: 0.5, rate: 0.75, velocity: 0.9, friction: 0.01},
	QualityHigh:   {particles: 1, rate: 1, velocity: 1},
	QualityUltra:  {particles: 1.5, rate: 1.25, velocity: 1},
}

// applyQuality scales particle budget, emission rate, friction and maximum
// velocity for the tier in o.Quality.
func applyQuality(o ParticleOptions) ParticleOptions {
	if o.qualityApplied {
		return o
	}
	o.qualityApplied = true
	q, ok := qualityScales[o.Quality]
	if !ok {
		q = qualityScales[QualityHigh]
	}
	if o.MaxParticles <= 0 {
		o.MaxParticles = defaultMaxParticles
	}
	o.MaxParticles = max(1, int(math.Round(float64(o.MaxParticles)*q.particles)))
	o.EmissionRate *= q.rate
	o.MaxVelocity *= q.velocity
	o.Friction = math.Min(1, o.Friction+q.friction)
	return o
}
