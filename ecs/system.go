package ecs

// System represents a behavior that operates on entities with specific components.
// User-defined systems implement this interface and can include View and
// Singleton fields, which the scheduler binds at registration, as well as
// custom state fields that persist between frames.
type System interface {
	Execute(frame *UpdateFrame)
}

// SetupSystem is implemented by systems that need to prepare queries or
// state against the world when registered.
type SetupSystem interface {
	System
	Setup(w *World)
}

type worldBinder interface {
	Init(w *World)
}
