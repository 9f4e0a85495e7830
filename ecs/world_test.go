package ecs_test

import (
	"testing"

	"github.com/plus3/tabecs/ecs"
	"github.com/stretchr/testify/assert"
)

func TestWorldEntities(t *testing.T) {
	t.Run("new entities start in the empty archetype", func(t *testing.T) {
		w, _ := newTestWorld(t)
		e := w.CreateEntity()

		assert.True(t, w.Alive(e))
		assert.Equal(t, ecs.EmptyArchetype, w.ArchetypeOf(e))
		assert.Empty(t, w.Components(e))
		assert.Contains(t, w.Archetypes().Members(ecs.EmptyArchetype), e)
	})

	t.Run("bulk creation", func(t *testing.T) {
		w, _ := newTestWorld(t)
		entities := w.CreateEntities(100)

		assert.Len(t, entities, 100)
		assert.Equal(t, 100, w.Entities().Count())
		assert.Len(t, w.Archetypes().Members(ecs.EmptyArchetype), 100)
	})

	t.Run("removed entities leave their archetype", func(t *testing.T) {
		w, types := newTestWorld(t)
		a := w.CreateEntity()
		b := w.CreateEntity()
		ecs.AddComponent(w, a, Position{X: 1})
		ecs.AddComponent(w, a, Health{Current: 10})
		ecs.AddComponent(w, b, Position{X: 2})
		ecs.AddComponent(w, b, Health{Current: 20})
		archetype := w.ArchetypeOf(a)

		w.RemoveEntity(a)

		assert.False(t, w.Alive(a))
		assert.Equal(t, []ecs.Entity{b}, w.Archetypes().Members(archetype))

		revived := w.CreateEntity()
		assert.Equal(t, a, revived, "rows are recycled")
		assert.False(t, w.HasComponent(revived, types.Position))
		assert.False(t, w.HasComponent(revived, types.Health))
		assert.Equal(t, ecs.EmptyArchetype, w.ArchetypeOf(revived))
	})

	t.Run("component rows are reclaimed with their owner", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		ecs.AddComponent(w, e, Position{})
		board := w.Types().Board(types.Position)
		assert.Equal(t, 1, board.Rows().Count())

		w.RemoveEntity(e)
		assert.Equal(t, 0, board.Rows().Count())
	})

	t.Run("dead entities panic", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		w.RemoveEntity(e)

		assertPanicsWith(t, ecs.ErrInvalidEntity, func() { w.RemoveEntity(e) })
		assertPanicsWith(t, ecs.ErrInvalidEntity, func() { ecs.AddComponent(w, e, Position{}) })
		assertPanicsWith(t, ecs.ErrInvalidEntity, func() { w.HasComponent(e, types.Position) })
	})
}

func TestWorldArchetypes(t *testing.T) {
	t.Run("same set in any order gives the same archetype", func(t *testing.T) {
		w, _ := newTestWorld(t)
		a := w.CreateEntity()
		ecs.AddComponent(w, a, Position{})
		ecs.AddComponent(w, a, Velocity{})
		ecs.AddComponent(w, a, Health{})

		b := w.CreateEntity()
		ecs.AddComponent(w, b, Health{})
		ecs.AddComponent(w, b, Position{})
		ecs.AddComponent(w, b, Velocity{})

		c := w.CreateEntity()
		ecs.AddComponent(w, c, Position{})
		ecs.AddComponent(w, c, Velocity{})

		assert.Equal(t, w.ArchetypeOf(a), w.ArchetypeOf(b))
		assert.NotEqual(t, w.ArchetypeOf(a), w.ArchetypeOf(c))
	})

	t.Run("add then remove returns to the original archetype", func(t *testing.T) {
		w, types := newTestWorld(t)
		plain := w.CreateEntity()
		ecs.AddComponent(w, plain, Position{})

		e := w.CreateEntity()
		ecs.AddComponent(w, e, Position{})
		count := w.Archetypes().Count()
		ecs.AddComponent(w, e, Velocity{})
		assert.True(t, w.RemoveComponent(e, types.Velocity))

		assert.Equal(t, w.ArchetypeOf(plain), w.ArchetypeOf(e))
		assert.Equal(t, count+1, w.Archetypes().Count(), "only the {Position, Velocity} archetype was added")
		assert.False(t, w.RemoveComponent(e, types.Velocity), "nothing left to remove")
	})

	t.Run("components are sorted", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		ecs.AddComponent(w, e, Health{})
		ecs.AddComponent(w, e, Position{})

		assert.Equal(t, []ecs.ComponentType{types.Position, types.Health}, w.Components(e))
		id, ok := w.Archetypes().Lookup([]ecs.ComponentType{types.Position, types.Health})
		assert.True(t, ok)
		assert.Equal(t, w.ArchetypeOf(e), id)
		assert.True(t, w.Archetypes().Has(id, types.Health))
		assert.False(t, w.Archetypes().Has(id, types.Velocity))
	})

	t.Run("sets with equal sums stay distinct", func(t *testing.T) {
		w, types := newTestWorld(t)
		// Position(1)+Health(4) and Velocity(2)+Name(3) share the sum 5.
		a := w.CreateEntity()
		ecs.AddComponent(w, a, Position{})
		ecs.AddComponent(w, a, Health{})
		b := w.CreateEntity()
		ecs.AddComponent(w, b, Velocity{})
		ecs.AddComponent(w, b, Name{})

		assert.Equal(t, uint32(types.Position+types.Health), uint32(types.Velocity+types.Name))
		assert.NotEqual(t, w.ArchetypeOf(a), w.ArchetypeOf(b))
	})

	t.Run("remove multiple", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		ecs.AddComponent(w, e, Position{})
		ecs.AddComponent(w, e, Velocity{})
		ecs.AddComponent(w, e, Health{})

		assert.True(t, w.RemoveMultipleComponent(e, types.Position, types.Health, types.Name))
		assert.Equal(t, []ecs.ComponentType{types.Velocity}, w.Components(e))
		assert.False(t, w.RemoveMultipleComponent(e, types.Position, types.Name))
	})

	t.Run("member lists use swap removal", func(t *testing.T) {
		w, _ := newTestWorld(t)
		entities := w.CreateEntities(4)
		for _, e := range entities {
			ecs.AddComponent(w, e, Position{})
		}
		archetype := w.ArchetypeOf(entities[0])
		assert.Equal(t, entities, w.Archetypes().Members(archetype))

		w.RemoveEntity(entities[1])

		assert.Equal(t, []ecs.Entity{entities[0], entities[3], entities[2]}, w.Archetypes().Members(archetype))
		w.RemoveEntity(entities[3])
		assert.Equal(t, []ecs.Entity{entities[0], entities[2]}, w.Archetypes().Members(archetype))
	})
}

func TestWorldComponents(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		ref := ecs.AddComponent(w, e, Position{X: 3, Y: 4})

		got, ok := ecs.GetComponentData[Position](w, e)
		assert.True(t, ok)
		assert.Equal(t, Position{X: 3, Y: 4}, *got)
		assert.True(t, w.HasComponent(e, types.Position))
		assert.True(t, w.Owns(e, types.Position))
		assert.Equal(t, types.Position, ref.Type)
		assert.True(t, ref.Valid())
	})

	t.Run("missing components", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()

		got, ok := ecs.GetComponentData[Position](w, e)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.False(t, w.HasComponent(e, types.Position))
		_, ok = w.ComponentRefOf(e, types.Position)
		assert.False(t, ok)
	})

	t.Run("adding again replaces the owned row", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		first := ecs.AddComponent(w, e, Score(1))
		second := ecs.AddComponent(w, e, Score(2))

		got, _ := ecs.GetComponentData[Score](w, e)
		assert.Equal(t, Score(2), *got)
		assert.Equal(t, 1, w.Types().Board(types.Score).Rows().Count(), "the first row was reclaimed")
		assert.Equal(t, first.Row, second.Row, "the reclaimed row is reused")
	})

	t.Run("tags", func(t *testing.T) {
		w, types := newTestWorld(t)
		a := w.CreateEntity()
		b := w.CreateEntity()
		ecs.AddComponent(w, a, Frozen{})
		ecs.AddComponent(w, b, Frozen{})

		ta, ok := ecs.GetComponentData[Frozen](w, a)
		assert.True(t, ok)
		tb, _ := ecs.GetComponentData[Frozen](w, b)
		assert.Same(t, ta, tb)
		assert.Equal(t, w.ArchetypeOf(a), w.ArchetypeOf(b))

		assert.True(t, w.RemoveComponent(a, types.Frozen))
		assert.True(t, w.HasComponent(b, types.Frozen))
	})

	t.Run("buffers", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		ecs.AddBuffer(w, e, Waypoint{X: 1}, Waypoint{X: 2})

		buf, ok := ecs.GetBufferData[Waypoint](w, e)
		assert.True(t, ok)
		assert.Len(t, *buf, 2)
		*buf = append(*buf, Waypoint{X: 3})

		again, _ := ecs.GetBufferData[Waypoint](w, e)
		assert.Equal(t, []Waypoint{{X: 1}, {X: 2}, {X: 3}}, *again)
		assert.True(t, w.HasComponent(e, types.Waypoints))
	})

	t.Run("board kind mismatch panics", func(t *testing.T) {
		w := ecs.NewWorld()
		_, err := ecs.RegisterExternal(w, ecs.NewExternalBoard([]Name{{Value: "ext"}}))
		assert.NoError(t, err)
		e := w.CreateEntity()
		assertPanicsWith(t, ecs.ErrBoardKind, func() { ecs.AddComponent(w, e, Name{}) })
		assertPanicsWith(t, ecs.ErrInvalidComponentType, func() { ecs.AddBuffer[Name](w, e) })
	})

	t.Run("external rows can be assigned", func(t *testing.T) {
		w := ecs.NewWorld()
		board := ecs.NewExternalBoard([]Temperature{-4, 38})
		ct, err := ecs.RegisterExternal(w, board)
		assert.NoError(t, err)

		e := w.CreateEntity()
		w.AssignComponent(e, ecs.ComponentRef{Type: ct, Row: 2})

		got, ok := ecs.GetComponentData[Temperature](w, e)
		assert.True(t, ok)
		assert.Equal(t, Temperature(38), *got)
		assert.True(t, w.RemoveComponent(e, ct))
		assert.Equal(t, 2, board.Rows().Count(), "external rows are never deleted")
	})
}

func TestWorldReferences(t *testing.T) {
	t.Run("assigned rows are shared but not owned", func(t *testing.T) {
		w, types := newTestWorld(t)
		owner := w.CreateEntity()
		ref := ecs.AddComponent(w, owner, Health{Current: 50})

		viewer := w.CreateEntity()
		w.AssignComponent(viewer, ref)

		got, _ := ecs.GetComponentData[Health](w, viewer)
		got.Current = 40
		ownerHealth, _ := ecs.GetComponentData[Health](w, owner)
		assert.Equal(t, 40, ownerHealth.Current)

		assert.False(t, w.Owns(viewer, types.Health))
		assert.ElementsMatch(t, []ecs.Entity{owner, viewer}, w.Types().Board(types.Health).References(ref.Row))
	})

	t.Run("owned rows outlive non-owning references", func(t *testing.T) {
		w, types := newTestWorld(t)
		owner := w.CreateEntity()
		ref := ecs.AddComponent(w, owner, Health{Current: 50})
		viewer := w.CreateEntity()
		w.AssignComponent(viewer, ref)

		w.RemoveEntity(viewer)
		assert.True(t, w.Types().Board(types.Health).Alive(ref.Row))

		w.RemoveEntity(owner)
		assert.False(t, w.Types().Board(types.Health).Alive(ref.Row))
	})

	t.Run("rows survive while referenced after the owner left", func(t *testing.T) {
		w, types := newTestWorld(t)
		owner := w.CreateEntity()
		ref := ecs.AddComponent(w, owner, Health{Current: 50})
		viewer := w.CreateEntity()
		w.AssignComponent(viewer, ref)

		w.RemoveEntity(owner)
		board := w.Types().Board(types.Health)
		assert.True(t, board.Alive(ref.Row))
		assert.Equal(t, ecs.InvalidEntity, board.Owner(ref.Row))

		got, ok := ecs.GetComponentData[Health](w, viewer)
		assert.True(t, ok)
		assert.Equal(t, 50, got.Current)
	})

	t.Run("ownership transfer", func(t *testing.T) {
		w, types := newTestWorld(t)
		first := w.CreateEntity()
		ref := ecs.AddComponent(w, first, Name{Value: "crown"})
		second := w.CreateEntity()

		w.AssignComponentAsOwner(second, ref)

		assert.True(t, w.Owns(second, types.Name))
		assert.False(t, w.Owns(first, types.Name))
		w.RemoveEntity(first)
		assert.True(t, w.Types().Board(types.Name).Alive(ref.Row))
	})

	t.Run("dead rows cannot be assigned", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		assertPanicsWith(t, ecs.ErrInvalidComponentRow, func() {
			w.AssignComponent(e, ecs.ComponentRef{Type: types.Health, Row: 7})
		})
	})
}

func TestWorldSharing(t *testing.T) {
	t.Run("dependents resolve through the target", func(t *testing.T) {
		w, types := newTestWorld(t)
		target := w.CreateEntity()
		ecs.AddComponent(w, target, Position{X: 1, Y: 1})
		dependent := w.CreateEntity()

		w.DependOnEntityComponent(dependent, target, types.Position)

		assert.True(t, w.HasComponent(dependent, types.Position))
		assert.Equal(t, []ecs.ComponentType{types.Position}, w.Components(dependent))
		mine, _ := ecs.GetComponentData[Position](w, dependent)
		theirs, _ := ecs.GetComponentData[Position](w, target)
		assert.Same(t, theirs, mine)

		theirs.X = 10
		assert.Equal(t, float32(10), mine.X)
		assert.False(t, w.Owns(dependent, types.Position))
		assert.Equal(t, []ecs.Entity{dependent}, w.Entities().Linked(target))
	})

	t.Run("an owned update diverges from the target", func(t *testing.T) {
		w, types := newTestWorld(t)
		target := w.CreateEntity()
		ecs.AddComponent(w, target, Position{X: 1})
		dependent := w.CreateEntity()
		w.DependOnEntityComponent(dependent, target, types.Position)

		ecs.UpdateOwnedComponent(w, dependent, Position{X: 2})

		mine, _ := ecs.GetComponentData[Position](w, dependent)
		theirs, _ := ecs.GetComponentData[Position](w, target)
		assert.Equal(t, float32(2), mine.X)
		assert.Equal(t, float32(1), theirs.X)
		theirs.X = 5
		assert.Equal(t, float32(2), mine.X)
		assert.True(t, w.Owns(dependent, types.Position))
		assert.Empty(t, w.Entities().Linked(target))
	})

	t.Run("update in place keeps the row", func(t *testing.T) {
		w, _ := newTestWorld(t)
		e := w.CreateEntity()
		first := ecs.UpdateOwnedComponent(w, e, Health{Current: 1})
		second := ecs.UpdateOwnedComponent(w, e, Health{Current: 2})

		assert.Equal(t, first, second)
		got, _ := ecs.GetComponentData[Health](w, e)
		assert.Equal(t, 2, got.Current)
	})

	t.Run("update of a referenced row allocates an owned copy", func(t *testing.T) {
		w, _ := newTestWorld(t)
		owner := w.CreateEntity()
		ref := ecs.AddComponent(w, owner, Health{Current: 1})
		viewer := w.CreateEntity()
		w.AssignComponent(viewer, ref)

		updated := ecs.UpdateOwnedComponent(w, viewer, Health{Current: 9})

		assert.NotEqual(t, ref.Row, updated.Row)
		got, _ := ecs.GetComponentData[Health](w, owner)
		assert.Equal(t, 1, got.Current)
	})

	t.Run("chains resolve transitively", func(t *testing.T) {
		w, types := newTestWorld(t)
		root := w.CreateEntity()
		ecs.AddComponent(w, root, Name{Value: "root"})
		middle := w.CreateEntity()
		leaf := w.CreateEntity()
		w.DependOnEntityComponent(middle, root, types.Name)
		w.DependOnEntityComponent(leaf, middle, types.Name)

		got, ok := ecs.GetComponentData[Name](w, leaf)
		assert.True(t, ok)
		assert.Equal(t, "root", got.Value)
	})

	t.Run("removing from the target invalidates dependents transitively", func(t *testing.T) {
		w, types := newTestWorld(t)
		root := w.CreateEntity()
		ecs.AddComponent(w, root, Name{Value: "root"})
		ecs.AddComponent(w, root, Health{})
		middle := w.CreateEntity()
		ecs.AddComponent(w, middle, Velocity{})
		leaf := w.CreateEntity()
		w.DependOnEntityComponent(middle, root, types.Name)
		w.DependOnEntityComponent(leaf, middle, types.Name)
		w.DependOnEntityComponent(leaf, root, types.Health)

		w.RemoveComponent(root, types.Name)

		assert.False(t, w.HasComponent(middle, types.Name))
		assert.False(t, w.HasComponent(leaf, types.Name))
		assert.Equal(t, []ecs.ComponentType{types.Velocity}, w.Components(middle))
		assert.Equal(t, []ecs.ComponentType{types.Health}, w.Components(leaf), "other shares are untouched")
		assert.Equal(t, []ecs.Entity{leaf}, w.Entities().Linked(root))
		assert.Empty(t, w.Entities().Linked(middle))
	})

	t.Run("removing the target entity invalidates dependents", func(t *testing.T) {
		w, types := newTestWorld(t)
		target := w.CreateEntity()
		ecs.AddComponent(w, target, Position{})
		dependent := w.CreateEntity()
		w.DependOnEntityComponent(dependent, target, types.Position)

		w.RemoveEntity(target)

		assert.False(t, w.HasComponent(dependent, types.Position))
		assert.Equal(t, ecs.EmptyArchetype, w.ArchetypeOf(dependent))
	})

	t.Run("targets must hold the component", func(t *testing.T) {
		w, types := newTestWorld(t)
		target := w.CreateEntity()
		dependent := w.CreateEntity()
		assertPanicsWith(t, ecs.ErrComponentNotFound, func() {
			w.DependOnEntityComponent(dependent, target, types.Position)
		})
	})

	t.Run("cycles are rejected", func(t *testing.T) {
		w, types := newTestWorld(t)
		a := w.CreateEntity()
		ecs.AddComponent(w, a, Position{})
		b := w.CreateEntity()
		w.DependOnEntityComponent(b, a, types.Position)

		assertPanicsWith(t, ecs.ErrRecursionLimit, func() {
			w.DependOnEntityComponent(a, b, types.Position)
		})
		assertPanicsWith(t, ecs.ErrRecursionLimit, func() {
			w.DependOnEntityComponent(a, a, types.Position)
		})
	})

	t.Run("chains longer than the recursion limit are rejected", func(t *testing.T) {
		w, types := newTestWorld(t, ecs.WithRecursionLimit(3))
		prev := w.CreateEntity()
		ecs.AddComponent(w, prev, Position{})
		for range 3 {
			next := w.CreateEntity()
			w.DependOnEntityComponent(next, prev, types.Position)
			prev = next
		}
		last := w.CreateEntity()
		assertPanicsWith(t, ecs.ErrRecursionLimit, func() {
			w.DependOnEntityComponent(last, prev, types.Position)
		})
	})

	t.Run("splicing a chain counts the sharers below the dependent", func(t *testing.T) {
		w, types := newTestWorld(t)
		chain := func(head ecs.Entity, hops int) ecs.Entity {
			prev := head
			for range hops {
				next := w.CreateEntity()
				w.DependOnEntityComponent(next, prev, types.Name)
				prev = next
			}
			return prev
		}
		upper := spawn(w, with(Name{Value: "upper"}))
		upperTail := chain(upper, 5)
		mid := spawn(w, with(Name{Value: "mid"}))
		leaf := chain(mid, 8)

		assertPanicsWith(t, ecs.ErrRecursionLimit, func() {
			w.DependOnEntityComponent(mid, upperTail, types.Name)
		})
		assert.True(t, w.Owns(mid, types.Name), "a rejected splice changes nothing")
		got, ok := ecs.GetComponentData[Name](w, leaf)
		assert.True(t, ok)
		assert.Equal(t, "mid", got.Value)
		ecs.AddComponent(w, leaf, Position{})
		assert.ElementsMatch(t, []ecs.ComponentType{types.Position, types.Name}, w.Components(leaf))

		short := spawn(w, with(Name{Value: "short"}))
		shortLeaf := chain(short, 4)
		w.DependOnEntityComponent(short, upperTail, types.Name)
		got, ok = ecs.GetComponentData[Name](w, shortLeaf)
		assert.True(t, ok)
		assert.Equal(t, "upper", got.Value)
	})
}

func TestWorldStructuralGuard(t *testing.T) {
	t.Run("frozen worlds reject structural calls", func(t *testing.T) {
		w, types := newTestWorld(t)
		e := w.CreateEntity()
		ecs.AddComponent(w, e, Position{X: 1})

		token := w.Freeze()
		assert.True(t, w.Frozen())
		assertPanicsWith(t, ecs.ErrWorldFrozen, func() { w.CreateEntity() })
		assertPanicsWith(t, ecs.ErrWorldFrozen, func() { w.RemoveComponent(e, types.Position) })

		got, ok := ecs.GetComponentData[Position](w, e)
		assert.True(t, ok, "reads are allowed while frozen")
		assert.Equal(t, float32(1), got.X)

		w.Thaw(token)
		assert.False(t, w.Frozen())
		assert.True(t, w.RemoveComponent(e, types.Position))
	})

	t.Run("tokens are single use", func(t *testing.T) {
		w, _ := newTestWorld(t)
		token := w.Freeze()
		assertPanicsWith(t, ecs.ErrWorldFrozen, func() { w.Freeze() })
		w.Thaw(token)
		assertPanicsWith(t, ecs.ErrStaleFreezeToken, func() { w.Thaw(token) })

		next := w.Freeze()
		assertPanicsWith(t, ecs.ErrStaleFreezeToken, func() { w.Thaw(token) })
		w.Thaw(next)
	})

	t.Run("checks can be disabled", func(t *testing.T) {
		w, _ := newTestWorld(t, ecs.WithStructuralChecks(false))
		token := w.Freeze()
		assert.NotPanics(t, func() { w.CreateEntity() })
		w.Thaw(token)
	})

	t.Run("a panicking call releases the guard", func(t *testing.T) {
		w, _ := newTestWorld(t)
		assertPanicsWith(t, ecs.ErrInvalidEntity, func() { w.RemoveEntity(99) })
		assert.NotPanics(t, func() { w.CreateEntity() })
	})
}
