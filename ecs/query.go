package ecs

import (
	"iter"
	"slices"

	"github.com/rotisserie/eris"
)

// Filter selects archetypes by component types. All types in All must be
// present, at least one of Any must be present when Any is non-empty, and no
// type in None may be present.
type Filter struct {
	All  []ComponentType
	Any  []ComponentType
	None []ComponentType
}

func (f Filter) normalize() Filter {
	return Filter{
		All:  sortedUnique(f.All),
		Any:  sortedUnique(f.Any),
		None: sortedUnique(f.None),
	}
}

func sortedUnique(types []ComponentType) []ComponentType {
	out := slices.Clone(types)
	slices.Sort(out)
	return slices.Compact(out)
}

// Matches evaluates the filter against a sorted type list.
func (f Filter) Matches(types []ComponentType) bool {
	for _, ct := range f.All {
		if _, found := slices.BinarySearch(types, ct); !found {
			return false
		}
	}
	for _, ct := range f.None {
		if _, found := slices.BinarySearch(types, ct); found {
			return false
		}
	}
	if len(f.Any) == 0 {
		return true
	}
	for _, ct := range f.Any {
		if _, found := slices.BinarySearch(types, ct); found {
			return true
		}
	}
	return false
}

// Query caches which archetypes satisfy a filter. Because archetypes are only
// ever appended, each call to CheckForNewArchetypes classifies just the
// archetypes created since the previous call.
type Query struct {
	world       *World
	filter      Filter
	classified  int
	valid       []bool
	matched     []ArchetypeID
	evaluations uint64
}

// NewQuery creates a query over w. No archetypes are classified until
// CheckForNewArchetypes runs.
func NewQuery(w *World, filter Filter) *Query {
	filter = filter.normalize()
	for _, types := range [][]ComponentType{filter.All, filter.Any, filter.None} {
		for _, ct := range types {
			w.types.check(ct)
		}
	}
	return &Query{
		world:  w,
		filter: filter,
		valid:  make([]bool, 1),
	}
}

// Filter returns the normalized filter.
func (q *Query) Filter() Filter {
	return q.filter
}

// CheckForNewArchetypes classifies archetypes created since the last call and
// returns how many of them matched.
func (q *Query) CheckForNewArchetypes() int {
	archetypes := q.world.archetypes
	count := archetypes.Count()
	if count == q.classified {
		return 0
	}
	q.valid = growColumn(q.valid, count+1)
	added := 0
	for id := ArchetypeID(q.classified + 1); int(id) <= count; id++ {
		q.evaluations++
		if q.filter.Matches(archetypes.Types(id)) {
			q.valid[id] = true
			q.matched = append(q.matched, id)
			added++
		}
	}
	q.classified = count
	return added
}

// Classified returns the archetype high-water mark.
func (q *Query) Classified() int {
	return q.classified
}

// Evaluations returns how many archetype checks this query has performed.
func (q *Query) Evaluations() uint64 {
	return q.evaluations
}

// Archetypes returns the matched archetypes in creation order.
func (q *Query) Archetypes() []ArchetypeID {
	return q.matched
}

// MatchArchetype reports whether a classified archetype matches.
func (q *Query) MatchArchetype(id ArchetypeID) bool {
	if id == 0 || int(id) > q.classified {
		panic(eris.Wrapf(ErrArchetypeNotClassified, "archetype %d, classified %d", id, q.classified))
	}
	return q.valid[id]
}

// MatchAgainst reports whether e's current archetype matches. It panics if the
// archetype has not been classified yet.
func (q *Query) MatchAgainst(e Entity) bool {
	return q.MatchArchetype(q.world.entities.Archetype(e))
}

// Chunks refreshes the cache and iterates matched archetypes with their live
// member lists. Empty archetypes are skipped.
func (q *Query) Chunks() iter.Seq2[ArchetypeID, []Entity] {
	return func(yield func(ArchetypeID, []Entity) bool) {
		q.CheckForNewArchetypes()
		for _, id := range q.matched {
			members := q.world.archetypes.Members(id)
			if len(members) == 0 {
				continue
			}
			if !yield(id, members) {
				return
			}
		}
	}
}

// Entities iterates matched entities archetype by archetype.
func (q *Query) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, members := range q.Chunks() {
			for _, e := range members {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Count returns how many entities currently match.
func (q *Query) Count() int {
	q.CheckForNewArchetypes()
	total := 0
	for _, id := range q.matched {
		total += len(q.world.archetypes.Members(id))
	}
	return total
}
