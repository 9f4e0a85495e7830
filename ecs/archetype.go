package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// EmptyArchetype holds entities that have no components.
const EmptyArchetype ArchetypeID = 1

// ArchetypeTable interns component type sets. Archetypes are content addressed
// by their sorted type list and are never removed.
type ArchetypeTable struct {
	rows    *RowTable
	types   [][]ComponentType
	sums    []uint64
	members [][]Entity
	bySum   *intmap.Map[uint64, []ArchetypeID]
}

// NewArchetypeTable creates a table containing only the empty archetype.
func NewArchetypeTable(initialCapacity int) *ArchetypeTable {
	t := &ArchetypeTable{
		rows:  NewRowTable(initialCapacity),
		bySum: intmap.New[uint64, []ArchetypeID](initialCapacity),
	}
	t.rows.OnGrow(func(capacity int) {
		t.types = growColumn(t.types, capacity)
		t.sums = growColumn(t.sums, capacity)
		t.members = growColumn(t.members, capacity)
	})
	t.create(nil, 0)
	return t
}

func sumTypes(types []ComponentType) uint64 {
	var sum uint64
	for _, ct := range types {
		sum += uint64(ct)
	}
	return sum
}

// Lookup returns the archetype for a sorted type list, if interned.
func (t *ArchetypeTable) Lookup(sorted []ComponentType) (ArchetypeID, bool) {
	return t.lookup(sorted, sumTypes(sorted))
}

func (t *ArchetypeTable) lookup(sorted []ComponentType, sum uint64) (ArchetypeID, bool) {
	candidates, _ := t.bySum.Get(sum)
	for _, id := range candidates {
		if slices.Equal(t.types[id], sorted) {
			return id, true
		}
	}
	return 0, false
}

// Intern returns the archetype for a sorted type list, creating it on first
// use. The second result reports whether it was created. sorted is copied.
func (t *ArchetypeTable) Intern(sorted []ComponentType) (ArchetypeID, bool) {
	sum := sumTypes(sorted)
	if id, ok := t.lookup(sorted, sum); ok {
		return id, false
	}
	return t.create(slices.Clone(sorted), sum), true
}

func (t *ArchetypeTable) create(types []ComponentType, sum uint64) ArchetypeID {
	id := ArchetypeID(t.rows.CreateRow())
	t.types[id] = types
	t.sums[id] = sum
	candidates, _ := t.bySum.Get(sum)
	t.bySum.Put(sum, append(candidates, id))
	return id
}

// Count returns the number of interned archetypes, including the empty one.
// Archetype ids run from 1 to Count.
func (t *ArchetypeTable) Count() int {
	return t.rows.Count()
}

// Types returns the sorted component types of an archetype.
func (t *ArchetypeTable) Types(id ArchetypeID) []ComponentType {
	return t.types[t.check(id)]
}

// Has reports whether the archetype contains ct.
func (t *ArchetypeTable) Has(id ArchetypeID, ct ComponentType) bool {
	_, found := slices.BinarySearch(t.types[t.check(id)], ct)
	return found
}

// Members returns the live member list of an archetype. The slice aliases
// table storage and is only stable until the next structural change.
func (t *ArchetypeTable) Members(id ArchetypeID) []Entity {
	return t.members[t.check(id)]
}

// attach appends e to the member list and returns its slot.
func (t *ArchetypeTable) attach(id ArchetypeID, e Entity) int {
	t.members[id] = append(t.members[id], e)
	return len(t.members[id]) - 1
}

// detach swap-removes the member at slot and returns the entity that was
// moved into it, if any.
func (t *ArchetypeTable) detach(id ArchetypeID, slot int) (Entity, bool) {
	members := t.members[id]
	last := len(members) - 1
	moved := members[last]
	members[slot] = moved
	t.members[id] = members[:last]
	return moved, slot != last
}

func (t *ArchetypeTable) check(id ArchetypeID) ArchetypeID {
	if !t.rows.Alive(Row(id)) {
		panic(eris.Wrapf(ErrInvalidArchetype, "archetype %d", id))
	}
	return id
}
