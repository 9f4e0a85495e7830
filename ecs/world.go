package ecs

import (
	"reflect"
	"slices"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// World owns the entity, archetype and component type tables and exposes the
// structural mutation API. Structural calls must come from one goroutine at a
// time; reads of settled component data may run in parallel while the world
// is frozen.
type World struct {
	id         uuid.UUID
	config     config
	log        zerolog.Logger
	guard      structuralGuard
	types      *ComponentTypeRegistry
	entities   *EntityTable
	archetypes *ArchetypeTable
	singletons map[ComponentType]handle
	scratch    []ComponentType
}

// NewWorld creates an empty world.
func NewWorld(opts ...Option) *World {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	id := uuid.New()
	w := &World{
		id:         id,
		config:     cfg,
		log:        cfg.logger.With().Str("world", id.String()).Logger(),
		types:      NewComponentTypeRegistry(),
		entities:   NewEntityTable(cfg.initialCapacity),
		archetypes: NewArchetypeTable(64),
		singletons: make(map[ComponentType]handle),
	}
	w.guard.enabled = cfg.structuralChecks
	return w
}

// ID returns the world's instance id.
func (w *World) ID() uuid.UUID { return w.id }

// Types returns the component type registry.
func (w *World) Types() *ComponentTypeRegistry { return w.types }

// Entities returns the entity table.
func (w *World) Entities() *EntityTable { return w.entities }

// Archetypes returns the archetype table.
func (w *World) Archetypes() *ArchetypeTable { return w.archetypes }

// RecursionLimit returns the configured shared lookup bound.
func (w *World) RecursionLimit() int { return w.config.recursionLimit }

func (w *World) registerBoard(goType reflect.Type, board ComponentBoard, opts []TypeOption) (ComponentType, error) {
	w.beginStructural("RegisterComponent")
	defer w.endStructural()

	cfg := typeConfig{name: goType.String()}
	for _, opt := range opts {
		opt(&cfg)
	}
	ct, err := w.types.Register(cfg.name, goType, board, cfg.parent)
	if err != nil {
		return 0, err
	}
	w.entities.AddComponentType(ct)
	w.log.Debug().
		Uint32("type", uint32(ct)).
		Str("name", cfg.name).
		Stringer("kind", board.Kind()).
		Msg("component type registered")
	return ct, nil
}

// CreateEntity creates an entity in the empty archetype.
func (w *World) CreateEntity() Entity {
	w.beginStructural("CreateEntity")
	defer w.endStructural()

	e := w.entities.Create()
	w.moveToArchetype(e, EmptyArchetype)
	return e
}

// CreateEntities creates n entities in the empty archetype.
func (w *World) CreateEntities(n int) []Entity {
	w.beginStructural("CreateEntities")
	defer w.endStructural()

	entities := w.entities.CreateBulk(n)
	for _, e := range entities {
		w.moveToArchetype(e, EmptyArchetype)
	}
	return entities
}

// Alive reports whether e is a live entity.
func (w *World) Alive(e Entity) bool {
	return w.entities.Alive(e)
}

// handle pins an entity to the generation of its row.
type handle struct {
	entity     Entity
	generation uint32
}

func (w *World) handleOf(e Entity) handle {
	return handle{entity: e, generation: w.entities.Generation(e)}
}

// current reports whether h still names a live entity rather than a later
// occupant of its row.
func (w *World) current(h handle) bool {
	return w.entities.Alive(h.entity) && w.entities.Generation(h.entity) == h.generation
}

// RemoveEntity detaches every component of e, invalidates entities sharing
// from it and recycles its row.
func (w *World) RemoveEntity(e Entity) {
	w.beginStructural("RemoveEntity")
	defer w.endStructural()

	w.checkEntity(e)
	for ct := range w.types.All() {
		if w.entities.Metadata(e, ct).IsNone() {
			continue
		}
		w.detach(e, ct)
		w.invalidateDependents(e, ct)
	}
	if current := w.entities.Archetype(e); current != 0 {
		w.leaveArchetype(e, current)
	}
	w.entities.Release(e)
}

// AddComponent gives e a new component row of type T it owns. A component of
// the same type held before, owned or shared, is detached first.
func AddComponent[T any](w *World, e Entity, value T) ComponentRef {
	ct := TypeOf[T](w)
	w.beginStructural("AddComponent")
	defer w.endStructural()

	w.checkEntity(e)
	switch board := w.types.Board(ct).(type) {
	case *SingleBoard[T]:
		ref := w.addOwned(e, ct, board)
		board.Write(ref.Row, value)
		return ref
	case *TagBoard[T]:
		return w.addOwned(e, ct, board)
	}
	panic(w.kindError(ct, "AddComponent"))
}

// AddBuffer gives e a new buffer component of element type T holding values.
func AddBuffer[T any](w *World, e Entity, values ...T) ComponentRef {
	ct := BufferTypeOf[T](w)
	w.beginStructural("AddBuffer")
	defer w.endStructural()

	w.checkEntity(e)
	board, ok := w.types.Board(ct).(*BufferBoard[T])
	if !ok {
		panic(w.kindError(ct, "AddBuffer"))
	}
	ref := w.addOwned(e, ct, board)
	board.Append(ref.Row, values...)
	return ref
}

// UpdateOwnedComponent overwrites e's component in place if e owns it, and
// otherwise behaves like AddComponent. A shared component is replaced by an
// owned copy, so later reads diverge from the share target.
func UpdateOwnedComponent[T any](w *World, e Entity, value T) ComponentRef {
	ct := TypeOf[T](w)
	w.beginStructural("UpdateOwnedComponent")
	defer w.endStructural()

	w.checkEntity(e)
	board := w.types.Board(ct)
	if row, ok := w.entities.Metadata(e, ct).Row(); ok {
		switch b := board.(type) {
		case *SingleBoard[T]:
			if b.Owner(row) == e {
				b.Write(row, value)
				return ComponentRef{Type: ct, Row: row}
			}
		case *TagBoard[T]:
			return ComponentRef{Type: ct, Row: row}
		}
	}
	switch b := board.(type) {
	case *SingleBoard[T]:
		ref := w.addOwned(e, ct, b)
		b.Write(ref.Row, value)
		return ref
	case *TagBoard[T]:
		return w.addOwned(e, ct, b)
	}
	panic(w.kindError(ct, "UpdateOwnedComponent"))
}

// AssignComponent points e at an existing component row without making e its
// owner.
func (w *World) AssignComponent(e Entity, ref ComponentRef) {
	w.beginStructural("AssignComponent")
	defer w.endStructural()

	w.assign(e, ref, false)
}

// AssignComponentAsOwner points e at an existing component row and transfers
// ownership of the row to e.
func (w *World) AssignComponentAsOwner(e Entity, ref ComponentRef) {
	w.beginStructural("AssignComponentAsOwner")
	defer w.endStructural()

	w.assign(e, ref, true)
}

func (w *World) assign(e Entity, ref ComponentRef, owner bool) {
	w.checkEntity(e)
	board := w.types.Board(ref.Type)
	if !board.Alive(ref.Row) {
		panic(eris.Wrapf(ErrInvalidComponentRow, "row %d of %s", ref.Row, w.typeName(ref.Type)))
	}
	if current, ok := w.entities.Metadata(e, ref.Type).Row(); !ok || current != ref.Row {
		w.detach(e, ref.Type)
		w.entities.SetMetadata(e, ref.Type, Reference(ref.Row))
		board.AddReference(ref.Row, e)
	}
	if owner {
		board.SetOwner(ref.Row, e)
	}
	w.updateArchetype(e)
}

// RemoveComponent detaches ct from e and reports whether e held it. Entities
// sharing ct from e lose it as well.
func (w *World) RemoveComponent(e Entity, ct ComponentType) bool {
	w.beginStructural("RemoveComponent")
	defer w.endStructural()

	w.checkEntity(e)
	removed := w.removeComponent(e, ct)
	if removed {
		w.updateArchetype(e)
	}
	return removed
}

// RemoveMultipleComponent detaches every listed type and reports whether
// anything was removed.
func (w *World) RemoveMultipleComponent(e Entity, types ...ComponentType) bool {
	w.beginStructural("RemoveMultipleComponent")
	defer w.endStructural()

	w.checkEntity(e)
	removed := false
	for _, ct := range types {
		if w.removeComponent(e, ct) {
			removed = true
		}
	}
	if removed {
		w.updateArchetype(e)
	}
	return removed
}

func (w *World) removeComponent(e Entity, ct ComponentType) bool {
	w.types.check(ct)
	if w.entities.Metadata(e, ct).IsNone() {
		return false
	}
	w.detach(e, ct)
	w.invalidateDependents(e, ct)
	return true
}

// DependOnEntityComponent makes dependent resolve ct through target. Whatever
// dependent held for ct before is detached. When target later loses ct,
// dependent loses it too.
func (w *World) DependOnEntityComponent(dependent, target Entity, ct ComponentType) {
	w.beginStructural("DependOnEntityComponent")
	defer w.endStructural()

	w.checkEntity(dependent)
	w.checkEntity(target)
	w.types.check(ct)

	depth := 0
	for current := target; ; depth++ {
		if current == dependent || depth >= w.config.recursionLimit {
			panic(eris.Wrapf(ErrRecursionLimit, "entity %d sharing %s from %d", dependent, w.typeName(ct), target))
		}
		meta := w.entities.Metadata(current, ct)
		if _, ok := meta.Row(); ok {
			break
		}
		next, ok := meta.Shared()
		if !ok {
			panic(eris.Wrapf(ErrComponentNotFound, "entity %d has no %s to share", target, w.typeName(ct)))
		}
		current = next
	}
	if below := w.shareDepth(dependent, ct, w.config.recursionLimit); depth+1+below > w.config.recursionLimit {
		panic(eris.Wrapf(ErrRecursionLimit, "entity %d sharing %s from %d with %d sharers below", dependent, w.typeName(ct), target, below))
	}

	if current, ok := w.entities.Metadata(dependent, ct).Shared(); ok && current == target {
		return
	}
	w.detach(dependent, ct)
	w.entities.SetMetadata(dependent, ct, SharedFrom(target))
	w.entities.Link(target, dependent)
	w.updateArchetype(dependent)
}

// HasComponent reports whether e holds ct, directly or through a share.
func (w *World) HasComponent(e Entity, ct ComponentType) bool {
	w.checkEntity(e)
	w.types.check(ct)
	_, ok := w.resolve(e, ct)
	return ok
}

// ComponentRefOf resolves the component row e uses for ct, following shares.
func (w *World) ComponentRefOf(e Entity, ct ComponentType) (ComponentRef, bool) {
	w.checkEntity(e)
	w.types.check(ct)
	row, ok := w.resolve(e, ct)
	if !ok {
		return ComponentRef{}, false
	}
	return ComponentRef{Type: ct, Row: row}, true
}

// Owns reports whether e holds ct by reference and is the row's owner.
func (w *World) Owns(e Entity, ct ComponentType) bool {
	w.checkEntity(e)
	row, ok := w.entities.Metadata(e, ct).Row()
	if !ok {
		return false
	}
	board := w.types.Board(ct)
	return !board.Kind().TracksReferences() || board.Owner(row) == e
}

// GetComponentData returns e's component of type T, following shares.
func GetComponentData[T any](w *World, e Entity) (*T, bool) {
	ct := TypeOf[T](w)
	w.checkEntity(e)
	row, ok := w.resolve(e, ct)
	if !ok {
		return nil, false
	}
	switch board := w.types.Board(ct).(type) {
	case *SingleBoard[T]:
		return board.Read(row), true
	case *TagBoard[T]:
		return board.Read(row), true
	case *ExternalBoard[T]:
		return board.Read(row), true
	}
	panic(w.kindError(ct, "GetComponentData"))
}

// GetBufferData returns e's buffer of element type T, following shares. The
// returned slice header points into board storage, so appends through it are
// visible to every entity referencing the row.
func GetBufferData[T any](w *World, e Entity) (*[]T, bool) {
	ct := BufferTypeOf[T](w)
	w.checkEntity(e)
	row, ok := w.resolve(e, ct)
	if !ok {
		return nil, false
	}
	board, isBuffer := w.types.Board(ct).(*BufferBoard[T])
	if !isBuffer {
		panic(w.kindError(ct, "GetBufferData"))
	}
	return board.Buffer(row), true
}

// ArchetypeOf returns the archetype e is classified under.
func (w *World) ArchetypeOf(e Entity) ArchetypeID {
	return w.entities.Archetype(e)
}

// Components returns the sorted component types e currently holds.
func (w *World) Components(e Entity) []ComponentType {
	return w.archetypes.Types(w.entities.Archetype(e))
}

// UpdateArchetype recomputes e's component set and moves it to the matching
// archetype.
func (w *World) UpdateArchetype(e Entity) ArchetypeID {
	w.beginStructural("UpdateArchetype")
	defer w.endStructural()

	w.checkEntity(e)
	return w.updateArchetype(e)
}

// resolve follows e's metadata for ct to a component row. Chains longer than
// the recursion limit are treated as cycles.
func (w *World) resolve(e Entity, ct ComponentType) (Row, bool) {
	current := e
	for depth := 0; ; depth++ {
		if depth > w.config.recursionLimit {
			panic(eris.Wrapf(ErrRecursionLimit, "resolving %s on entity %d", w.typeName(ct), e))
		}
		meta := w.entities.Metadata(current, ct)
		if row, ok := meta.Row(); ok {
			return row, true
		}
		target, ok := meta.Shared()
		if !ok {
			return InvalidRow, false
		}
		current = target
	}
}

func (w *World) addOwned(e Entity, ct ComponentType, board ComponentBoard) ComponentRef {
	w.detach(e, ct)
	row := board.CreateRow()
	board.SetOwner(row, e)
	board.AddReference(row, e)
	w.entities.SetMetadata(e, ct, Reference(row))
	w.updateArchetype(e)
	return ComponentRef{Type: ct, Row: row}
}

// detach clears e's metadata for ct. A referenced row is deleted only once
// its reference list is empty and it has no owner.
func (w *World) detach(e Entity, ct ComponentType) {
	meta := w.entities.Metadata(e, ct)
	w.entities.SetMetadata(e, ct, ComponentMetadata{})

	if row, ok := meta.Row(); ok {
		board := w.types.Board(ct)
		if !board.Kind().TracksReferences() {
			return
		}
		remaining := board.RemoveReference(row, e)
		if board.Owner(row) == e {
			board.SetOwner(row, InvalidEntity)
		}
		if remaining == 0 && board.Owner(row) == InvalidEntity {
			board.DeleteRow(row)
		}
		return
	}
	if target, ok := meta.Shared(); ok && !w.sharesFrom(e, target) {
		w.entities.Unlink(target, e)
	}
}

// shareDepth returns the longest chain of entities resolving ct through e,
// giving up once it passes limit.
func (w *World) shareDepth(e Entity, ct ComponentType, limit int) int {
	deepest := 0
	for _, dep := range w.entities.Linked(e) {
		if target, ok := w.entities.Metadata(dep, ct).Shared(); !ok || target != e {
			continue
		}
		if limit <= 0 {
			return 1
		}
		deepest = max(deepest, 1+w.shareDepth(dep, ct, limit-1))
	}
	return deepest
}

func (w *World) sharesFrom(e, target Entity) bool {
	for ct := range w.types.All() {
		if current, ok := w.entities.Metadata(e, ct).Shared(); ok && current == target {
			return true
		}
	}
	return false
}

// invalidateDependents strips ct from every entity that reaches it through
// source, transitively.
func (w *World) invalidateDependents(source Entity, ct ComponentType) {
	pending := []Entity{source}
	for len(pending) > 0 {
		src := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, dep := range slices.Clone(w.entities.Linked(src)) {
			target, ok := w.entities.Metadata(dep, ct).Shared()
			if !ok || target != src {
				continue
			}
			w.detach(dep, ct)
			w.updateArchetype(dep)
			pending = append(pending, dep)
		}
	}
}

// updateArchetype collects the types e resolves, in ascending id order, and
// reattaches e to the archetype interned for that exact set.
func (w *World) updateArchetype(e Entity) ArchetypeID {
	w.scratch = w.scratch[:0]
	for ct := range w.types.All() {
		if _, ok := w.resolve(e, ct); ok {
			w.scratch = append(w.scratch, ct)
		}
	}
	id, created := w.archetypes.Intern(w.scratch)
	if created {
		w.log.Debug().
			Uint32("archetype", uint32(id)).
			Int("types", len(w.scratch)).
			Msg("archetype created")
	}
	w.moveToArchetype(e, id)
	return id
}

func (w *World) moveToArchetype(e Entity, id ArchetypeID) {
	current := w.entities.Archetype(e)
	if current == id {
		return
	}
	if current != 0 {
		w.leaveArchetype(e, current)
	}
	slot := w.archetypes.attach(id, e)
	w.entities.setArchetype(e, id, slot)
}

func (w *World) leaveArchetype(e Entity, id ArchetypeID) {
	slot := w.entities.slot(e)
	if moved, ok := w.archetypes.detach(id, slot); ok {
		w.entities.setArchetype(moved, id, slot)
	}
	w.entities.setArchetype(e, 0, 0)
}

func (w *World) checkEntity(e Entity) {
	if !w.entities.Alive(e) {
		panic(eris.Wrapf(ErrInvalidEntity, "entity %d", e))
	}
}

func (w *World) typeName(ct ComponentType) string {
	if !w.types.Contains(ct) {
		return "<unregistered>"
	}
	return w.types.names[ct]
}

func (w *World) kindError(ct ComponentType, op string) error {
	info := w.types.Info(ct)
	return eris.Wrapf(ErrBoardKind, "%s on %s board %q", op, info.Kind, info.Name)
}
