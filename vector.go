package galileo

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// LenSq returns the squared length of v.
func (v Vec2) LenSq() float64 { return v.X*v.X + v.Y*v.Y }

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return math.Hypot(o.X-v.X, o.Y-v.Y) }

// Normalize returns the unit vector in the direction of v. The zero vector
// normalizes to itself.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Lerp linearly interpolates from v to o by t.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{lerp(v.X, o.X, t), lerp(v.Y, o.Y, t)}
}

// ClampLen limits the length of v to max, preserving direction.
func (v Vec2) ClampLen(max float64) Vec2 {
	l2 := v.LenSq()
	if max <= 0 || l2 <= max*max {
		return v
	}
	return v.Scale(max / math.Sqrt(l2))
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LerpColor interpolates two colors in RGB space. Alpha is interpolated
// linearly alongside.
func LerpColor(a, b Color, t float64) Color {
	ca := colorful.Color{R: a.R, G: a.G, B: a.B}
	cb := colorful.Color{R: b.R, G: b.G, B: b.B}
	c := ca.BlendRgb(cb, t)
	return Color{R: c.R, G: c.G, B: c.B, A: lerp(a.A, b.A, t)}
}

// ParseColor parses a "#rrggbb" or "#rgb" hex string into an opaque Color.
func ParseColor(hex string) (Color, error) {
	c, err := colorful.Hex(expandShortHex(hex))
	if err != nil {
		return Color{}, err
	}
	return Color{R: c.R, G: c.G, B: c.B, A: 1}, nil
}

// Hex formats the RGB part of c as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

// NRGBA converts c, with its alpha scaled by opacity, for drawing with
// ebiten's vector package.
func (c Color) NRGBA(opacity float64) color.NRGBA {
	r, g, b := colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(clamp(c.A*opacity, 0, 1)*255 + 0.5)}
}

func expandShortHex(s string) string {
	if len(s) == 4 && s[0] == '#' {
		return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}

// UnmarshalText reads hex colors from YAML presets.
func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
