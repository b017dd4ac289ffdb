package galileo

import (
	"math"
	"strconv"
	"time"
)

// LayoutType selects how PhysicsLayout computes targets.
type LayoutType uint8

const (
	LayoutGrid     LayoutType = iota // content-aware rows wrapping at Columns
	LayoutStack                      // sequential along Direction
	LayoutFreeform                   // no targets; driven by forces only
)

// StackDirection is the axis a stack layout grows along.
type StackDirection uint8

const (
	StackVertical StackDirection = iota
	StackHorizontal
)

// PhysicsConfig tunes the spring that pulls a body toward its target.
type PhysicsConfig struct {
	Stiffness float64
	Damping   float64
	Mass      float64
	// Friction is a per-tick velocity loss fraction applied after damping.
	Friction float64
}

// DefaultLayoutPhysics is used for fields left zero in LayoutOptions.Physics.
var DefaultLayoutPhysics = PhysicsConfig{Stiffness: 120, Damping: 18, Mass: 1}

func mergePhysics(base, over PhysicsConfig) PhysicsConfig {
	setFloat(&base.Stiffness, over.Stiffness)
	setFloat(&base.Damping, over.Damping)
	setFloat(&base.Mass, over.Mass)
	setFloat(&base.Friction, over.Friction)
	return base
}

// LayoutItem describes one laid-out element.
type LayoutItem struct {
	// Key identifies the body across SetItems calls. When empty the body id
	// is derived from the item's index.
	Key           string
	Width, Height float64
	// Physics overrides the layout-wide config field by field.
	Physics PhysicsConfig
	Static  bool
}

// LayoutOptions configures a PhysicsLayout.
type LayoutOptions struct {
	Type          LayoutType
	Columns       int
	ColumnSpacing float64
	RowSpacing    float64
	Direction     StackDirection
	Spacing       float64
	// OffsetStep is added once per index in stack layouts, for fanned or
	// cascaded stacks.
	OffsetStep Vec2
	// Origin is the top-left corner targets are laid out from.
	Origin  Vec2
	Physics PhysicsConfig

	// Freeform forces.
	CenterAttraction float64
	Center           Vec2
	Repulsion        float64
	RepulsionRadius  float64
	Gravity          Vec2
	Bounds           *Rect
	BoundaryPadding  float64
	BoundaryForce    float64

	// Deadzone is the displacement below which no spring force applies.
	// Defaults to 0.5.
	Deadzone float64
	// ReducedMotion snaps bodies to their targets instead of animating.
	ReducedMotion bool
}

const (
	defaultLayoutColumns  = 3
	defaultLayoutDeadzone = 0.5
	settleSpeed           = 0.5
)

// LayoutBody is the simulated state of one item.
type LayoutBody struct {
	ID        string
	Index     int
	Position  Vec2
	Velocity  Vec2
	Target    Vec2
	Size      Vec2
	Physics   PhysicsConfig
	Static    bool
	hasTarget bool
	dragging  bool
}

// PhysicsLayout drives item bodies toward layout targets with springs.
type PhysicsLayout struct {
	opts   LayoutOptions
	items  []LayoutItem
	bodies []*LayoutBody
	byID   map[string]*LayoutBody
	forces []Vec2
}

// NewPhysicsLayout creates an empty layout.
func NewPhysicsLayout(opts LayoutOptions) *PhysicsLayout {
	if opts.Columns <= 0 {
		opts.Columns = defaultLayoutColumns
	}
	if opts.Deadzone <= 0 {
		opts.Deadzone = defaultLayoutDeadzone
	}
	opts.Physics = mergePhysics(DefaultLayoutPhysics, opts.Physics)
	return &PhysicsLayout{opts: opts, byID: make(map[string]*LayoutBody)}
}

// Options returns the layout options.
func (l *PhysicsLayout) Options() LayoutOptions {
	return l.opts
}

// SetType switches the layout algorithm and recomputes targets.
func (l *PhysicsLayout) SetType(t LayoutType) {
	l.opts.Type = t
	l.recalculate()
}

// SetReducedMotion toggles snapping.
func (l *PhysicsLayout) SetReducedMotion(on bool) {
	l.opts.ReducedMotion = on
}

// SetBounds sets the freeform containment rectangle.
func (l *PhysicsLayout) SetBounds(r *Rect) {
	l.opts.Bounds = r
}

func bodyID(item LayoutItem, index int) string {
	if item.Key != "" {
		return item.Key
	}
	return "item-" + strconv.Itoa(index)
}

// SetItems replaces the item list. Bodies are created lazily for new ids,
// placed on their targets, and bodies whose ids disappeared are deleted. A
// key already used earlier in items is suffixed with "#<index>".
func (l *PhysicsLayout) SetItems(items []LayoutItem) {
	l.items = append(l.items[:0], items...)
	keep := make(map[string]bool, len(items))
	l.bodies = l.bodies[:0]
	for i, it := range l.items {
		id := bodyID(it, i)
		if keep[id] {
			// Repeated keys get their own body.
			id += "#" + strconv.Itoa(i)
		}
		keep[id] = true
		b, ok := l.byID[id]
		if !ok {
			b = &LayoutBody{ID: id}
			l.byID[id] = b
		}
		b.Index = i
		b.Size = Vec2{it.Width, it.Height}
		b.Physics = mergePhysics(l.opts.Physics, it.Physics)
		b.Static = it.Static
		l.bodies = append(l.bodies, b)
		if !ok {
			defer l.place(b)
		}
	}
	for id := range l.byID {
		if !keep[id] {
			delete(l.byID, id)
		}
	}
	l.recalculate()
}

// place puts a new body on its target so it does not fly in from the origin.
func (l *PhysicsLayout) place(b *LayoutBody) {
	if b.hasTarget {
		b.Position = b.Target
	} else {
		b.Position = l.opts.Center
	}
}

// SetItemSize records a measured size and recomputes targets, since grid and
// stack positions depend on sibling sizes.
func (l *PhysicsLayout) SetItemSize(index int, w, h float64) {
	if index < 0 || index >= len(l.items) {
		return
	}
	if l.items[index].Width == w && l.items[index].Height == h {
		return
	}
	l.items[index].Width, l.items[index].Height = w, h
	l.bodies[index].Size = Vec2{w, h}
	l.recalculate()
}

// Body returns the body with the given id.
func (l *PhysicsLayout) Body(id string) (*LayoutBody, bool) {
	b, ok := l.byID[id]
	return b, ok
}

// Bodies returns bodies in item order. The slice is owned by the layout.
func (l *PhysicsLayout) Bodies() []*LayoutBody {
	return l.bodies
}

// Targets returns the current target positions in item order.
func (l *PhysicsLayout) Targets() []Vec2 {
	out := make([]Vec2, len(l.bodies))
	for i, b := range l.bodies {
		out[i] = b.Target
	}
	return out
}

// SetStatic pins or releases a body.
func (l *PhysicsLayout) SetStatic(id string, static bool) {
	if b, ok := l.byID[id]; ok {
		b.Static = static
		b.Velocity = Vec2{}
	}
}

// Drag holds a body at pos, bypassing forces until Release.
func (l *PhysicsLayout) Drag(id string, pos Vec2) {
	if b, ok := l.byID[id]; ok {
		b.dragging = true
		b.Position = pos
		b.Velocity = Vec2{}
	}
}

// Release lets a dragged body go with the given velocity.
func (l *PhysicsLayout) Release(id string, vel Vec2) {
	if b, ok := l.byID[id]; ok && b.dragging {
		b.dragging = false
		b.Velocity = vel
	}
}

// IndexAt returns the index of the slot whose target is nearest to p, or -1
// when the layout is empty or freeform.
func (l *PhysicsLayout) IndexAt(p Vec2) int {
	best, bestD := -1, math.Inf(1)
	for i, b := range l.bodies {
		if !b.hasTarget {
			continue
		}
		if d := b.Target.Dist(p); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func (l *PhysicsLayout) recalculate() {
	switch l.opts.Type {
	case LayoutGrid:
		l.gridTargets()
	case LayoutStack:
		l.stackTargets()
	default:
		for _, b := range l.bodies {
			b.hasTarget = false
		}
	}
}

// gridTargets flows items left to right, wrapping every Columns items. A
// row is as tall as its tallest item and each x accounts for the measured
// widths before it in the row. Targets are item centers.
func (l *PhysicsLayout) gridTargets() {
	o := &l.opts
	y := o.Origin.Y
	for start := 0; start < len(l.bodies); start += o.Columns {
		end := min(start+o.Columns, len(l.bodies))
		rowH := 0.0
		for _, b := range l.bodies[start:end] {
			rowH = math.Max(rowH, b.Size.Y)
		}
		x := o.Origin.X
		for _, b := range l.bodies[start:end] {
			b.Target = Vec2{x + b.Size.X/2, y + rowH/2}
			b.hasTarget = true
			x += b.Size.X + o.ColumnSpacing
		}
		y += rowH + o.RowSpacing
	}
}

// stackTargets places items one after another along Direction, separated by
// Spacing, then shifts item i by i*OffsetStep.
func (l *PhysicsLayout) stackTargets() {
	o := &l.opts
	along := 0.0
	for i, b := range l.bodies {
		step := o.OffsetStep.Scale(float64(i))
		var t Vec2
		if o.Direction == StackHorizontal {
			t = Vec2{o.Origin.X + along + b.Size.X/2, o.Origin.Y + b.Size.Y/2}
			along += b.Size.X + o.Spacing
		} else {
			t = Vec2{o.Origin.X + b.Size.X/2, o.Origin.Y + along + b.Size.Y/2}
			along += b.Size.Y + o.Spacing
		}
		b.Target = t.Add(step)
		b.hasTarget = true
	}
}

// Update advances every body by dt seconds.
func (l *PhysicsLayout) Update(dt float64) {
	if dt <= 0 || len(l.bodies) == 0 {
		return
	}
	o := &l.opts
	if o.ReducedMotion {
		for _, b := range l.bodies {
			if b.hasTarget && !b.dragging {
				b.Position = b.Target
				b.Velocity = Vec2{}
			}
		}
		return
	}

	if cap(l.forces) < len(l.bodies) {
		l.forces = make([]Vec2, len(l.bodies))
	}
	forces := l.forces[:len(l.bodies)]
	for i, b := range l.bodies {
		forces[i] = l.bodyForce(b)
	}
	if o.Type == LayoutFreeform && o.Repulsion != 0 && o.RepulsionRadius > 0 {
		l.addRepulsion(forces)
	}

	for i, b := range l.bodies {
		if b.Static || b.dragging {
			continue
		}
		acc := forces[i].Scale(1 / b.Physics.Mass)
		b.Velocity = b.Velocity.Add(acc.Scale(dt))
		if b.Physics.Friction > 0 {
			b.Velocity = b.Velocity.Scale(math.Max(0, 1-b.Physics.Friction))
		}
		b.Position = b.Position.Add(b.Velocity.Scale(dt))
	}
}

// bodyForce returns the spring, damping and single-body freeform forces.
func (l *PhysicsLayout) bodyForce(b *LayoutBody) Vec2 {
	if b.Static || b.dragging {
		return Vec2{}
	}
	o := &l.opts
	var f Vec2
	if b.hasTarget {
		disp := b.Target.Sub(b.Position)
		if disp.Len() > o.Deadzone {
			f = disp.Scale(b.Physics.Stiffness)
		}
	}
	f = f.Sub(b.Velocity.Scale(b.Physics.Damping))

	if o.Type != LayoutFreeform {
		return f
	}
	if o.CenterAttraction != 0 {
		f = f.Add(o.Center.Sub(b.Position).Scale(o.CenterAttraction))
	}
	f = f.Add(o.Gravity.Scale(b.Physics.Mass))
	if r := o.Bounds; r != nil {
		pad, push := o.BoundaryPadding, o.BoundaryForce
		if b.Position.X < r.X+pad {
			f.X += push
		} else if b.Position.X > r.X+r.Width-pad {
			f.X -= push
		}
		if b.Position.Y < r.Y+pad {
			f.Y += push
		} else if b.Position.Y > r.Y+r.Height-pad {
			f.Y -= push
		}
	}
	return f
}

// addRepulsion pushes every pair closer than RepulsionRadius apart with a
// force that falls off inversely with distance.
func (l *PhysicsLayout) addRepulsion(forces []Vec2) {
	o := &l.opts
	for i := 0; i < len(l.bodies); i++ {
		a := l.bodies[i]
		for j := i + 1; j < len(l.bodies); j++ {
			b := l.bodies[j]
			delta := a.Position.Sub(b.Position)
			d := delta.Len()
			if d >= o.RepulsionRadius {
				continue
			}
			var dir Vec2
			if d == 0 {
				// Coincident bodies: separate along x by index.
				dir, d = Vec2{1, 0}, 1
			} else {
				dir = delta.Scale(1 / d)
			}
			push := dir.Scale(o.Repulsion / math.Max(d, 1))
			forces[i] = forces[i].Add(push)
			forces[j] = forces[j].Sub(push)
		}
	}
}

// Settled reports whether every body with a target is within the deadzone
// and nearly stopped.
func (l *PhysicsLayout) Settled() bool {
	for _, b := range l.bodies {
		if b.Static || b.dragging {
			continue
		}
		if b.Velocity.Len() >= settleSpeed {
			return false
		}
		if b.hasTarget && b.Target.Dist(b.Position) > l.opts.Deadzone {
			return false
		}
	}
	return true
}

// Transforms appends one Transform per body to dst.
func (l *PhysicsLayout) Transforms(dst []Transform) []Transform {
	for _, b := range l.bodies {
		dst = append(dst, Transform{ID: b.ID, X: b.Position.X, Y: b.Position.Y, Scale: 1, Opacity: 1})
	}
	return dst
}

// DragHandle returns a PointerTarget that drags the body with the given id
// and releases it with the pointer's last velocity.
func (l *PhysicsLayout) DragHandle(id string) PointerTarget {
	return &layoutDragHandle{layout: l, id: id}
}

type layoutDragHandle struct {
	layout   *PhysicsLayout
	id       string
	grab     Vec2
	last     Vec2
	lastTime time.Duration
	vel      Vec2
}

func (h *layoutDragHandle) PointerDown(p Vec2, t time.Duration) {
	b, ok := h.layout.byID[h.id]
	if !ok {
		return
	}
	h.grab = b.Position.Sub(p)
	h.last, h.lastTime, h.vel = p, t, Vec2{}
	h.layout.Drag(h.id, b.Position)
}

func (h *layoutDragHandle) PointerMove(p Vec2, t time.Duration) {
	if dt := (t - h.lastTime).Seconds(); dt > 0 {
		h.vel = p.Sub(h.last).Scale(1 / dt)
	}
	h.last, h.lastTime = p, t
	h.layout.Drag(h.id, p.Add(h.grab))
}

func (h *layoutDragHandle) PointerUp(p Vec2, t time.Duration) {
	h.layout.Release(h.id, h.vel)
}
