// Package ecs provides ECS adapters for galileo.
package ecs

import (
	"github.com/phanxgames/galileo"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// AnimationEventType is the Donburi event type for galileo bus events.
var AnimationEventType = events.NewEventType[galileo.AnimationEvent]()

// TransformComponent holds the latest transform of a galileo-driven entity.
var TransformComponent = donburi.NewComponentType[galileo.Transform]()

// Forward publishes every event dispatched on bus to AnimationEventType in
// world. Events are queued until ProcessEvents runs. The returned function
// stops forwarding.
func Forward(bus *galileo.EventBus, world donburi.World) func() {
	sub := bus.OnAny(func(ev galileo.AnimationEvent) {
		AnimationEventType.Publish(world, ev)
	})
	return sub.Unsubscribe
}

// TransformSync keeps one entity per transform id in a Donburi world.
type TransformSync struct {
	world    donburi.World
	entities map[string]donburi.Entity
	seen     map[string]bool
}

// NewTransformSync creates a sync bound to world.
func NewTransformSync(world donburi.World) *TransformSync {
	return &TransformSync{
		world:    world,
		entities: make(map[string]donburi.Entity),
		seen:     make(map[string]bool),
	}
}

// Apply writes each transform to its entity, creating entities for new ids
// and removing entities whose ids are absent from ts.
func (s *TransformSync) Apply(ts []galileo.Transform) {
	clear(s.seen)
	for _, t := range ts {
		s.seen[t.ID] = true
		e, ok := s.entities[t.ID]
		if !ok || !s.world.Valid(e) {
			e = s.world.Create(TransformComponent)
			s.entities[t.ID] = e
		}
		TransformComponent.SetValue(s.world.Entry(e), t)
	}
	for id, e := range s.entities {
		if s.seen[id] {
			continue
		}
		if s.world.Valid(e) {
			s.world.Remove(e)
		}
		delete(s.entities, id)
	}
}

// Entity returns the entity mirroring id.
func (s *TransformSync) Entity(id string) (donburi.Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}
