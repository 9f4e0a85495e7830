package ecs

import "reflect"

// Singleton gives access to a single instance of T held by a dedicated
// entity. Use it for global state such as configuration or frame counters.
type Singleton[T any] struct {
	world  *World
	entity Entity
}

// NewSingleton returns the singleton for T, creating its entity with the
// initializer or the zero value if it does not exist yet. T is registered as
// a component type on first use.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{}
	s.init(w, initializer...)
	return s
}

// Init binds the singleton to w. The scheduler calls it for Singleton fields
// of registered systems.
func (s *Singleton[T]) Init(w *World) {
	s.init(w)
}

func (s *Singleton[T]) init(w *World, initializer ...T) {
	ct, ok := w.types.LookupGoType(reflect.TypeFor[T]())
	if !ok {
		ct = MustRegisterComponent[T](w)
	}
	s.world = w
	var value T
	if len(initializer) > 0 {
		value = initializer[0]
	}
	if h, ok := w.singletons[ct]; ok && w.current(h) {
		s.entity = h.entity
		if !w.HasComponent(s.entity, ct) {
			AddComponent(w, s.entity, value)
		}
		return
	}
	s.entity = w.CreateEntity()
	AddComponent(w, s.entity, value)
	w.singletons[ct] = w.handleOf(s.entity)
}

// Get returns a pointer to the value, or nil if the singleton entity or its
// component was removed. The pointer is valid until the next structural
// change.
func (s *Singleton[T]) Get() *T {
	if s.world == nil || !s.world.Alive(s.entity) {
		return nil
	}
	value, _ := GetComponentData[T](s.world, s.entity)
	return value
}

// Exists reports whether the singleton still holds its value.
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}

// Entity returns the entity holding the value.
func (s *Singleton[T]) Entity() Entity {
	return s.entity
}
