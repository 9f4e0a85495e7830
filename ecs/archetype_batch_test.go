package ecs_test

import (
	"context"
	"sync"
	"testing"

	"github.com/plus3/tabecs/batch"
	"github.com/plus3/tabecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchetypeBatch(t *testing.T) {
	w, types := newTestWorld(t)
	for i := range 10 {
		e := spawn(w, with(Position{}))
		if i%2 == 0 {
			ecs.AddComponent(w, e, Velocity{})
		}
	}
	query := ecs.NewQuery(w, ecs.Filter{All: []ecs.ComponentType{types.Position}})

	t.Run("one unit per archetype", func(t *testing.T) {
		job := ecs.NewArchetypeBatch(query, func(ecs.ArchetypeID, []ecs.Entity, int) {})
		assert.Equal(t, 2, job.PrepareBatch(1))
	})

	t.Run("split archetypes", func(t *testing.T) {
		var mu sync.Mutex
		var sizes []int
		job := ecs.NewArchetypeBatch(query, func(_ ecs.ArchetypeID, members []ecs.Entity, _ int) {
			mu.Lock()
			sizes = append(sizes, len(members))
			mu.Unlock()
		})
		job.SplitSize = 2

		n := job.PrepareBatch(1)
		assert.Equal(t, 6, n)
		for i := range n {
			job.Execute(i, n, 0, 1)
		}
		assert.ElementsMatch(t, []int{2, 2, 1, 2, 2, 1}, sizes)
	})
}

func TestRunQuery(t *testing.T) {
	w, types := newTestWorld(t)
	var all []ecs.Entity
	for i := range 64 {
		e := spawn(w, with(Position{}), with(Score(i)))
		switch i % 4 {
		case 1:
			ecs.AddComponent(w, e, Velocity{})
		case 2:
			ecs.AddComponent(w, e, Health{})
		case 3:
			ecs.AddComponent(w, e, Name{})
		}
		all = append(all, e)
	}
	query := ecs.NewQuery(w, ecs.Filter{All: []ecs.ComponentType{types.Position}})

	runner := batch.NewRunner(context.Background(), batch.WithWorkers(3))
	defer runner.Close()

	visit := func(t *testing.T, r *batch.Runner) map[ecs.Entity]int {
		var mu sync.Mutex
		seen := map[ecs.Entity]int{}
		err := w.RunQuery(context.Background(), r, query, func(_ ecs.ArchetypeID, members []ecs.Entity, taskID int) {
			assert.True(t, w.Frozen())
			mu.Lock()
			defer mu.Unlock()
			for _, e := range members {
				seen[e]++
			}
		})
		require.NoError(t, err)
		return seen
	}

	t.Run("every entity is visited once", func(t *testing.T) {
		seen := visit(t, runner)
		assert.Len(t, seen, len(all))
		for _, e := range all {
			assert.Equal(t, 1, seen[e])
		}
		assert.False(t, w.Frozen())
	})

	t.Run("serial fallback", func(t *testing.T) {
		seen := visit(t, nil)
		assert.Len(t, seen, len(all))
	})

	t.Run("structural changes are rejected while running", func(t *testing.T) {
		var recovered any
		err := w.RunQuery(context.Background(), nil, query, func(ecs.ArchetypeID, []ecs.Entity, int) {
			defer func() {
				if r := recover(); r != nil {
					recovered = r
				}
			}()
			w.CreateEntity()
		})
		require.NoError(t, err)
		if assert.NotNil(t, recovered) {
			assert.ErrorIs(t, recovered.(error), ecs.ErrWorldFrozen)
		}
	})

	t.Run("commands apply after the run", func(t *testing.T) {
		commands := ecs.NewCommands(w)
		err := w.RunQuery(context.Background(), runner, query, func(_ ecs.ArchetypeID, members []ecs.Entity, _ int) {
			for _, e := range members {
				if s, _ := ecs.GetComponentData[Score](w, e); *s%8 == 0 {
					commands.RemoveEntity(e)
				}
			}
		})
		require.NoError(t, err)
		commands.Flush()
		assert.Equal(t, len(all)-8, query.Count())
	})
}
