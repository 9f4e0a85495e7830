package ecs

import "sync"

// Commands buffers structural changes requested while the world is frozen,
// such as from inside RunQuery callbacks. Queueing is safe for concurrent use;
// Flush applies everything on the calling goroutine.
//
// Each command remembers the generation of the entity it targets. A command
// whose entity was removed before the flush is dropped, even when the row
// has since been reused by a new entity.
type Commands struct {
	world *World

	mu      sync.Mutex
	creates []func(*World, Entity)
	deletes []handle
	adds    []addCommand
	removes []removeCommand
	defers  []func()
}

type addCommand struct {
	handle
	apply func(*World, Entity)
}

type removeCommand struct {
	handle
	ct ComponentType
}

// NewCommands creates an empty buffer for w.
func NewCommands(w *World) *Commands {
	return &Commands{world: w}
}

// CreateEntity queues creation of an entity. setup, if not nil, runs right
// after the entity exists and may add its components.
func (c *Commands) CreateEntity(setup func(w *World, e Entity)) {
	c.mu.Lock()
	c.creates = append(c.creates, setup)
	c.mu.Unlock()
}

// RemoveEntity queues removal of e.
func (c *Commands) RemoveEntity(e Entity) {
	t := c.world.handleOf(e)
	c.mu.Lock()
	c.deletes = append(c.deletes, t)
	c.mu.Unlock()
}

// RemoveComponent queues removal of ct from e.
func (c *Commands) RemoveComponent(e Entity, ct ComponentType) {
	t := c.world.handleOf(e)
	c.mu.Lock()
	c.removes = append(c.removes, removeCommand{handle: t, ct: ct})
	c.mu.Unlock()
}

// Defer queues fn to run after all other commands were applied.
func (c *Commands) Defer(fn func()) {
	c.mu.Lock()
	c.defers = append(c.defers, fn)
	c.mu.Unlock()
}

func (c *Commands) queueAdd(e Entity, apply func(*World, Entity)) {
	t := c.world.handleOf(e)
	c.mu.Lock()
	c.adds = append(c.adds, addCommand{handle: t, apply: apply})
	c.mu.Unlock()
}

// QueueAddComponent queues AddComponent(w, e, value).
func QueueAddComponent[T any](c *Commands, e Entity, value T) {
	c.queueAdd(e, func(w *World, e Entity) {
		AddComponent(w, e, value)
	})
}

// QueueUpdateComponent queues UpdateOwnedComponent(w, e, value).
func QueueUpdateComponent[T any](c *Commands, e Entity, value T) {
	c.queueAdd(e, func(w *World, e Entity) {
		UpdateOwnedComponent(w, e, value)
	})
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.creates) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies queued commands and resets the buffer. Removals run first,
// then component changes, then creations, then deferred functions.
func (c *Commands) Flush() {
	c.mu.Lock()
	creates, deletes, adds, removes, defers := c.creates, c.deletes, c.adds, c.removes, c.defers
	c.creates, c.deletes, c.adds, c.removes, c.defers = nil, nil, nil, nil, nil
	c.mu.Unlock()

	w := c.world
	for _, h := range deletes {
		if w.current(h) {
			w.RemoveEntity(h.entity)
		}
	}
	for _, cmd := range removes {
		if w.current(cmd.handle) {
			w.RemoveComponent(cmd.entity, cmd.ct)
		}
	}
	for _, cmd := range adds {
		if w.current(cmd.handle) {
			cmd.apply(w, cmd.entity)
		}
	}
	for _, setup := range creates {
		e := w.CreateEntity()
		if setup != nil {
			setup(w, e)
		}
	}
	for _, fn := range defers {
		fn()
	}
}
