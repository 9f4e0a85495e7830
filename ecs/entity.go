package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// Entity is a row in the entity table.
type Entity Row

// InvalidEntity is the null entity.
const InvalidEntity Entity = 0

// ComponentType is a row in the component type registry. Handles are stable
// for the lifetime of the World that issued them.
type ComponentType Row

// ArchetypeID is a row in the archetype table.
type ArchetypeID Row

type metadataKind uint8

const (
	metadataNone metadataKind = iota
	metadataReference
	metadataShared
)

// ComponentMetadata records how an entity holds one component type: not at
// all, by referencing a row in the type's board, or by sharing the component
// of another entity.
type ComponentMetadata struct {
	kind  metadataKind
	value uint32
}

// Reference is metadata pointing at a component row.
func Reference(row Row) ComponentMetadata {
	return ComponentMetadata{kind: metadataReference, value: uint32(row)}
}

// SharedFrom is metadata delegating resolution to target.
func SharedFrom(target Entity) ComponentMetadata {
	return ComponentMetadata{kind: metadataShared, value: uint32(target)}
}

// IsNone reports whether the entity holds nothing for this type.
func (m ComponentMetadata) IsNone() bool { return m.kind == metadataNone }

// Row returns the referenced component row.
func (m ComponentMetadata) Row() (Row, bool) {
	return Row(m.value), m.kind == metadataReference
}

// Shared returns the entity this metadata delegates to.
func (m ComponentMetadata) Shared() (Entity, bool) {
	return Entity(m.value), m.kind == metadataShared
}

// ComponentRef names an existing component instance.
type ComponentRef struct {
	Type ComponentType
	Row  Row
}

// Valid reports whether both halves of the reference are set.
func (r ComponentRef) Valid() bool {
	return r.Type != 0 && r.Row != InvalidRow
}

// EntityTable is the per-entity bookkeeping: archetype membership, dependents
// and one sparse metadata column per component type.
type EntityTable struct {
	rows        *RowTable
	archetypes  []ArchetypeID
	slots       []int32
	generations []uint32
	linked      [][]Entity
	metadata    []*intmap.Map[Entity, ComponentMetadata]
}

// NewEntityTable creates an entity table.
func NewEntityTable(initialCapacity int) *EntityTable {
	t := &EntityTable{
		rows:     NewRowTable(initialCapacity),
		metadata: make([]*intmap.Map[Entity, ComponentMetadata], 1),
	}
	t.rows.OnGrow(func(capacity int) {
		t.archetypes = growColumn(t.archetypes, capacity)
		t.slots = growColumn(t.slots, capacity)
		t.generations = growColumn(t.generations, capacity)
		t.linked = growColumn(t.linked, capacity)
	})
	return t
}

// Rows exposes the underlying row table.
func (t *EntityTable) Rows() *RowTable { return t.rows }

// Create allocates a new entity with no archetype.
func (t *EntityTable) Create() Entity {
	return Entity(t.rows.CreateRow())
}

// CreateBulk allocates n entities.
func (t *EntityTable) CreateBulk(n int) []Entity {
	rows := t.rows.CreateRowBulk(n)
	entities := make([]Entity, len(rows))
	for i, row := range rows {
		entities[i] = Entity(row)
	}
	return entities
}

// Release recycles the entity row. Metadata must already be cleared.
func (t *EntityTable) Release(e Entity) bool {
	if !t.rows.TryReleaseRow(Row(e)) {
		return false
	}
	t.archetypes[e] = 0
	t.slots[e] = 0
	t.generations[e]++
	t.linked[e] = t.linked[e][:0]
	return true
}

// Generation counts how many times e's row has been released, whether or not
// the row is currently alive.
func (t *EntityTable) Generation(e Entity) uint32 {
	if int(e) >= len(t.generations) {
		return 0
	}
	return t.generations[e]
}

// Alive reports whether e is a live entity.
func (t *EntityTable) Alive(e Entity) bool {
	return t.rows.Alive(Row(e))
}

// Count returns the number of live entities.
func (t *EntityTable) Count() int {
	return t.rows.Count()
}

// Archetype returns the archetype e is currently classified under.
func (t *EntityTable) Archetype(e Entity) ArchetypeID {
	return t.archetypes[t.check(e)]
}

// Linked returns the entities that share components from e.
func (t *EntityTable) Linked(e Entity) []Entity {
	return t.linked[t.check(e)]
}

// Link records dependent as sharing from e. The set keeps insertion order.
func (t *EntityTable) Link(e, dependent Entity) {
	linked := &t.linked[t.check(e)]
	if !slices.Contains(*linked, dependent) {
		*linked = append(*linked, dependent)
	}
}

// Unlink removes dependent from e's linked set, preserving order.
func (t *EntityTable) Unlink(e, dependent Entity) {
	linked := &t.linked[t.check(e)]
	if i := slices.Index(*linked, dependent); i >= 0 {
		*linked = slices.Delete(*linked, i, i+1)
	}
}

// AddComponentType grows the metadata columns to cover ct.
func (t *EntityTable) AddComponentType(ct ComponentType) {
	for int(ct) >= len(t.metadata) {
		t.metadata = append(t.metadata, intmap.New[Entity, ComponentMetadata](64))
	}
}

// Metadata returns how e holds ct.
func (t *EntityTable) Metadata(e Entity, ct ComponentType) ComponentMetadata {
	meta, _ := t.column(ct).Get(e)
	return meta
}

// SetMetadata records how e holds ct. Setting the zero value clears the slot.
func (t *EntityTable) SetMetadata(e Entity, ct ComponentType, meta ComponentMetadata) {
	column := t.column(ct)
	if meta.IsNone() {
		column.Del(e)
		return
	}
	column.Put(e, meta)
}

// Holders returns the number of entities with any metadata for ct.
func (t *EntityTable) Holders(ct ComponentType) int {
	return t.column(ct).Len()
}

func (t *EntityTable) column(ct ComponentType) *intmap.Map[Entity, ComponentMetadata] {
	if ct == 0 || int(ct) >= len(t.metadata) {
		panic(eris.Wrapf(ErrInvalidComponentType, "component type %d", ct))
	}
	return t.metadata[ct]
}

func (t *EntityTable) setArchetype(e Entity, id ArchetypeID, slot int) {
	t.archetypes[e] = id
	t.slots[e] = int32(slot)
}

func (t *EntityTable) slot(e Entity) int {
	return int(t.slots[e])
}

func (t *EntityTable) check(e Entity) Entity {
	if !t.rows.Alive(Row(e)) {
		panic(eris.Wrapf(ErrInvalidEntity, "entity %d", e))
	}
	return e
}
