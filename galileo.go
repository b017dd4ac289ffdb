package galileo

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default particle tint.
var ColorWhite = Color{1, 1, 1, 1}

// Vec2 is a 2D vector used for positions, velocities, forces and sizes
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Bounds limits movement along each axis. Left/Top are the minimum allowed
// coordinates, Right/Bottom the maximum.
type Bounds struct {
	Top, Bottom, Left, Right float64
}

// ContentBounds derives the scroll bounds for content of size content moving
// inside a container of size container. When the content is smaller than the
// container along an axis, that axis is pinned at zero.
func ContentBounds(container, content Vec2) Bounds {
	return Bounds{
		Top:    min(0, container.Y-content.Y),
		Bottom: 0,
		Left:   min(0, container.X-content.X),
		Right:  0,
	}
}

// Range is a general-purpose min/max range used wherever a value is sampled
// per spawn (particle lifespans, speeds, scales).
type Range struct {
	Min, Max float64
}

// Random returns a random float64 in [Min, Max] drawn from rng.
func (r Range) Random(rng *rand.Rand) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Axis restricts motion to one or both axes.
type Axis uint8

const (
	AxisBoth Axis = iota // move and bounce on X and Y
	AxisX                // horizontal only
	AxisY                // vertical only
)

func (a Axis) hasX() bool { return a != AxisY }
func (a Axis) hasY() bool { return a != AxisX }

// QualityTier is a coarse device capability setting that scales simulation
// cost. It is resolved once when options are built, never per tick.
type QualityTier uint8

const (
	QualityHigh   QualityTier = iota // reference settings (zero value)
	QualityLow                       // quarter particle budget
	QualityMedium                    // half particle budget
	QualityUltra                     // 1.5x particle budget
)

var qualityNames = [...]string{"high", "low", "medium", "ultra"}

func (q QualityTier) String() string {
	if int(q) < len(qualityNames) {
		return qualityNames[q]
	}
	return fmt.Sprintf("QualityTier(%d)", uint8(q))
}

// ParseQualityTier converts a case-insensitive tier name to a QualityTier.
func ParseQualityTier(s string) (QualityTier, error) {
	for i, name := range qualityNames {
		if strings.EqualFold(s, name) {
			return QualityTier(i), nil
		}
	}
	return QualityHigh, fmt.Errorf("unknown quality tier %q", s)
}

// UnmarshalText lets YAML and other text decoders read tier names.
func (q *QualityTier) UnmarshalText(text []byte) error {
	v, err := ParseQualityTier(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// MarshalText writes the tier name.
func (q QualityTier) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Transform is a per-entity style descriptor produced for the rendering layer.
type Transform struct {
	ID       string
	X, Y     float64
	Rotation float64
	Scale    float64
	Opacity  float64
}

// HapticKind identifies why a haptic feedback callback fired.
type HapticKind uint8

const (
	HapticGrab    HapticKind = iota // pointer grabbed the content
	HapticRelease                   // flick release started an inertial coast
	HapticBounce                    // coast hit a boundary
)
