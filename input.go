package galileo

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const maxPointers = 10 // pointer 0 = mouse, 1-9 = touch

// PointerPhase names a step of a pointer sequence.
type PointerPhase uint8

const (
	PointerPhaseDown PointerPhase = iota
	PointerPhaseMove
	PointerPhaseUp
)

var pointerPhaseNames = [...]string{"pointerdown", "pointermove", "pointerup"}

func (p PointerPhase) String() string {
	if int(p) < len(pointerPhaseNames) {
		return pointerPhaseNames[p]
	}
	return "pointer"
}

// PointerInteraction is the Data of EventInteraction bus events emitted by a
// PointerTracker. The event Name is the phase name.
type PointerInteraction struct {
	Pointer  int
	Phase    PointerPhase
	Position Vec2
	Time     time.Duration
}

type pointerRegion struct {
	id     uint32
	area   Rect
	target PointerTarget
}

type pointerState struct {
	down   bool
	last   Vec2
	target PointerTarget
}

// PointerTracker turns mouse, touch and injected pointer input into
// down/move/up calls on PointerTargets. A press is routed to the topmost
// region containing it, and the rest of the sequence goes to the same
// target even if the pointer leaves the region.
type PointerTracker struct {
	clock   Clock
	bus     *EventBus
	devices bool

	regions  []pointerRegion
	nextID   uint32
	pointers [maxPointers]pointerState

	touchMap     [maxPointers]ebiten.TouchID
	touchUsed    [maxPointers]bool
	prevTouchIDs []ebiten.TouchID

	injectQueue []syntheticPointerEvent
}

// NewPointerTracker creates a tracker that timestamps input with clock and,
// when bus is non-nil, reports EventInteraction events on it. Hardware input
// is read only after EnableDevices(true).
func NewPointerTracker(clock Clock, bus *EventBus) *PointerTracker {
	return &PointerTracker{clock: clock, bus: bus}
}

// EnableDevices toggles reading the mouse and touch screen through ebiten.
func (p *PointerTracker) EnableDevices(on bool) {
	p.devices = on
}

// Attach routes presses inside area to target. Regions attached later are
// on top. The returned function detaches the region.
func (p *PointerTracker) Attach(area Rect, target PointerTarget) func() {
	p.nextID++
	id := p.nextID
	p.regions = append(p.regions, pointerRegion{id: id, area: area, target: target})
	return func() {
		for i := range p.regions {
			if p.regions[i].id == id {
				copy(p.regions[i:], p.regions[i+1:])
				p.regions[len(p.regions)-1] = pointerRegion{}
				p.regions = p.regions[:len(p.regions)-1]
				return
			}
		}
	}
}

// SetArea moves an attached target's region.
func (p *PointerTracker) SetArea(target PointerTarget, area Rect) {
	for i := range p.regions {
		if p.regions[i].target == target {
			p.regions[i].area = area
		}
	}
}

func (p *PointerTracker) hitTest(pos Vec2) PointerTarget {
	for i := len(p.regions) - 1; i >= 0; i-- {
		if p.regions[i].area.Contains(pos.X, pos.Y) {
			return p.regions[i].target
		}
	}
	return nil
}

// Update consumes one injected event, or reads the devices when none is
// queued. Call it once per frame.
func (p *PointerTracker) Update() {
	if p.processInjectedInput() {
		return
	}
	if !p.devices {
		return
	}
	p.processMousePointer()
	p.processTouchPointers()
}

func (p *PointerTracker) processMousePointer() {
	mx, my := ebiten.CursorPosition()
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	p.processPointer(0, Vec2{float64(mx), float64(my)}, pressed)
}

func (p *PointerTracker) processTouchPointers() {
	p.prevTouchIDs = ebiten.AppendTouchIDs(p.prevTouchIDs[:0])
	for _, tid := range p.prevTouchIDs {
		slot := p.touchSlot(tid)
		if slot < 0 {
			continue
		}
		tx, ty := ebiten.TouchPosition(tid)
		p.processPointer(slot, Vec2{float64(tx), float64(ty)}, true)
	}

	// Released touches report their final position from the previous tick.
	for _, tid := range inpututil.AppendJustReleasedTouchIDs(nil) {
		for i := 1; i < maxPointers; i++ {
			if p.touchUsed[i] && p.touchMap[i] == tid {
				tx, ty := inpututil.TouchPositionInPreviousTick(tid)
				p.processPointer(i, Vec2{float64(tx), float64(ty)}, false)
				p.touchUsed[i] = false
				p.touchMap[i] = 0
			}
		}
	}
}

// touchSlot maps an ebiten.TouchID to a pointer slot (1-9). Returns -1 when
// every slot is in use.
func (p *PointerTracker) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxPointers; i++ {
		if p.touchUsed[i] && p.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !p.touchUsed[i] {
			p.touchUsed[i] = true
			p.touchMap[i] = tid
			return i
		}
	}
	return -1
}

// processPointer runs the down/move/up state machine for one pointer.
func (p *PointerTracker) processPointer(id int, pos Vec2, pressed bool) {
	ps := &p.pointers[id]
	now := p.now()
	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.last = pos
		ps.target = p.hitTest(pos)
		if ps.target != nil {
			ps.target.PointerDown(pos, now)
		}
		p.emit(id, PointerPhaseDown, pos, now)
	case pressed && ps.down:
		if pos == ps.last {
			return
		}
		ps.last = pos
		if ps.target != nil {
			ps.target.PointerMove(pos, now)
		}
		p.emit(id, PointerPhaseMove, pos, now)
	case !pressed && ps.down:
		if ps.target != nil {
			ps.target.PointerUp(pos, now)
		}
		p.emit(id, PointerPhaseUp, pos, now)
		*ps = pointerState{last: pos}
	}
}

func (p *PointerTracker) now() time.Duration {
	if p.clock == nil {
		return 0
	}
	return p.clock.Now()
}

func (p *PointerTracker) emit(id int, phase PointerPhase, pos Vec2, t time.Duration) {
	if p.bus == nil {
		return
	}
	p.bus.Dispatch(AnimationEvent{
		Kind: EventInteraction,
		Name: phase.String(),
		Data: PointerInteraction{Pointer: id, Phase: phase, Position: pos, Time: t},
	})
}

// IsDown reports whether pointer id is pressed.
func (p *PointerTracker) IsDown(id int) bool {
	if id < 0 || id >= maxPointers {
		return false
	}
	return p.pointers[id].down
}
