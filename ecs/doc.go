// Package ecs provides ECS adapters for galileo.
//
// [Forward] bridges every event published on a galileo [galileo.EventBus]
// into a [Donburi] world as typed events. Subscribe to [AnimationEventType]
// in your ECS systems to receive them. [TransformSync] mirrors per-entity
// transforms (from a physics layout or the orchestrator) onto entities
// carrying [TransformComponent].
//
// Usage:
//
//	stop := ecs.Forward(stage.Bus(), world)
//	defer stop()
//
//	sync := ecs.NewTransformSync(world)
//	sync.Apply(layout.Transforms(buf[:0]))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
