package ecs

// WorldStats is a snapshot of a world's table sizes.
type WorldStats struct {
	EntityCount        int
	ArchetypeCount     int
	ComponentTypeCount int
	SingletonCount     int
	ArchetypeBreakdown []ArchetypeStats
	ComponentBreakdown []ComponentStats
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	ID          ArchetypeID
	Types       []string
	EntityCount int
}

// ComponentStats describes one component type.
type ComponentStats struct {
	Name    string
	Kind    BoardKind
	Rows    int
	Holders int
}

// Stats collects the current table sizes. Empty archetypes are omitted from
// the breakdown.
func (w *World) Stats() WorldStats {
	stats := WorldStats{
		EntityCount:        w.entities.Count(),
		ArchetypeCount:     w.archetypes.Count(),
		ComponentTypeCount: w.types.Count(),
	}
	for _, h := range w.singletons {
		if w.current(h) {
			stats.SingletonCount++
		}
	}
	for id := ArchetypeID(1); int(id) <= w.archetypes.Count(); id++ {
		members := w.archetypes.Members(id)
		if len(members) == 0 {
			continue
		}
		types := w.archetypes.Types(id)
		names := make([]string, len(types))
		for i, ct := range types {
			names[i] = w.typeName(ct)
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:          id,
			Types:       names,
			EntityCount: len(members),
		})
	}
	for ct := range w.types.All() {
		board := w.types.Board(ct)
		stats.ComponentBreakdown = append(stats.ComponentBreakdown, ComponentStats{
			Name:    w.typeName(ct),
			Kind:    board.Kind(),
			Rows:    board.Rows().Count(),
			Holders: w.entities.Holders(ct),
		})
	}
	return stats
}
