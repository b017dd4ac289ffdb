package galileo

// syntheticPointerEvent is a single injected pointer event on pointer 0.
type syntheticPointerEvent struct {
	pos     Vec2
	pressed bool
}

// InjectPress queues a press at (x, y). Each queued event is consumed by one
// Update call, in place of device input for that frame.
func (p *PointerTracker) InjectPress(x, y float64) {
	p.injectQueue = append(p.injectQueue, syntheticPointerEvent{pos: Vec2{x, y}, pressed: true})
}

// InjectMove queues a move to (x, y) with the button held. Use it between
// InjectPress and InjectRelease to simulate a drag.
func (p *PointerTracker) InjectMove(x, y float64) {
	p.injectQueue = append(p.injectQueue, syntheticPointerEvent{pos: Vec2{x, y}, pressed: true})
}

// InjectRelease queues a release at (x, y).
func (p *PointerTracker) InjectRelease(x, y float64) {
	p.injectQueue = append(p.injectQueue, syntheticPointerEvent{pos: Vec2{x, y}})
}

// InjectDrag queues a full drag: a press at (fromX, fromY), frames-2 evenly
// spaced moves and a release at (toX, toY). Minimum frames is 2.
func (p *PointerTracker) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	p.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		p.InjectMove(lerp(fromX, toX, t), lerp(fromY, toY, t))
	}
	p.InjectRelease(toX, toY)
}

// Pending returns the number of queued synthetic events.
func (p *PointerTracker) Pending() int {
	return len(p.injectQueue)
}

// processInjectedInput pops one queued event and feeds it to pointer 0.
// Returns true if an event was consumed.
func (p *PointerTracker) processInjectedInput() bool {
	if len(p.injectQueue) == 0 {
		return false
	}
	evt := p.injectQueue[0]
	copy(p.injectQueue, p.injectQueue[1:])
	p.injectQueue = p.injectQueue[:len(p.injectQueue)-1]
	p.processPointer(0, evt.pos, evt.pressed)
	return true
}
