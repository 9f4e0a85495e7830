package ecs_test

import (
	"context"
	"testing"

	"github.com/plus3/tabecs/batch"
	"github.com/plus3/tabecs/ecs"
)

func BenchmarkCreateEntity(b *testing.B) {
	w, _ := newTestWorld(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := w.CreateEntity()
		ecs.AddComponent(w, e, Position{X: 1.0, Y: 2.0})
		ecs.AddComponent(w, e, Velocity{DX: 0.5, DY: 0.5})
	}
}

func BenchmarkCreateEntityWithMultipleComponents(b *testing.B) {
	w, _ := newTestWorld(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		spawn(w,
			with(Position{X: 1.0, Y: 2.0}),
			with(Velocity{DX: 0.5, DY: 0.5}),
			with(Health{Current: 100, Max: 100}),
			with(Name{Value: "Entity"}),
		)
	}
}

func BenchmarkRemoveEntity(b *testing.B) {
	w, _ := newTestWorld(b)

	ids := make([]ecs.Entity, b.N)
	for i := 0; i < b.N; i++ {
		ids[i] = spawn(w, with(Position{X: 1.0, Y: 2.0}), with(Velocity{DX: 0.5, DY: 0.5}))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.RemoveEntity(ids[i])
	}
}

func BenchmarkGetComponentData(b *testing.B) {
	w, _ := newTestWorld(b)
	e := spawn(w, with(Position{X: 1.0, Y: 2.0}), with(Velocity{DX: 0.5, DY: 0.5}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ecs.GetComponentData[Position](w, e)
	}
}

func BenchmarkGetSharedComponentData(b *testing.B) {
	w, types := newTestWorld(b)
	prev := spawn(w, with(Position{X: 1.0, Y: 2.0}))
	for range 5 {
		next := w.CreateEntity()
		w.DependOnEntityComponent(next, prev, types.Position)
		prev = next
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ecs.GetComponentData[Position](w, prev)
	}
}

func BenchmarkAddRemoveComponent(b *testing.B) {
	w, types := newTestWorld(b)
	e := spawn(w, with(Position{X: 1.0, Y: 2.0}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ecs.AddComponent(w, e, Velocity{DX: 1})
		w.RemoveComponent(e, types.Velocity)
	}
}

func BenchmarkUpdateOwnedComponent(b *testing.B) {
	w, _ := newTestWorld(b)
	e := spawn(w, with(Health{Current: 1}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ecs.UpdateOwnedComponent(w, e, Health{Current: i})
	}
}

func BenchmarkViewGet(b *testing.B) {
	w, _ := newTestWorld(b)
	e := spawn(w, with(Position{X: 1.0, Y: 2.0}), with(Velocity{DX: 0.5, DY: 0.5}))
	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](w)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = view.Get(e)
	}
}

func BenchmarkViewIterLarge(b *testing.B) {
	w, _ := newTestWorld(b)
	for i := 0; i < 10000; i++ {
		spawn(w, with(Position{X: float32(i), Y: float32(i)}), with(Velocity{DX: 1, DY: 1}))
	}
	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](w)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for item := range view.Iter() {
			item.Position.X += item.Velocity.DX
		}
	}
}

func BenchmarkQueryCheckForNewArchetypes(b *testing.B) {
	w, types := newTestWorld(b)
	spawn(w, with(Position{}), with(Velocity{}))
	spawn(w, with(Position{}), with(Health{}))
	query := ecs.NewQuery(w, ecs.Filter{All: []ecs.ComponentType{types.Position}})
	query.CheckForNewArchetypes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		query.CheckForNewArchetypes()
	}
}

func BenchmarkRunQueryParallel(b *testing.B) {
	w, types := newTestWorld(b)
	for i := 0; i < 10000; i++ {
		e := spawn(w, with(Position{}), with(Velocity{DX: 1}))
		if i%4 == 0 {
			ecs.AddComponent(w, e, Score(i))
		}
	}
	runner := batch.NewRunner(context.Background())
	defer runner.Close()
	query := ecs.NewQuery(w, ecs.Filter{All: []ecs.ComponentType{types.Position, types.Velocity}})
	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](w)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := w.RunQuery(ctx, runner, query, func(_ ecs.ArchetypeID, members []ecs.Entity, _ int) {
			for _, item := range view.Members(members) {
				item.Position.X += item.Velocity.DX
			}
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

type benchMovementSystem struct {
	Entities ecs.View[struct {
		*Position
		*Velocity
	}]
}

func (s *benchMovementSystem) Execute(frame *ecs.UpdateFrame) {
	for item := range s.Entities.Iter() {
		item.Position.X += item.Velocity.DX * float32(frame.DeltaTime)
		item.Position.Y += item.Velocity.DY * float32(frame.DeltaTime)
	}
}

func BenchmarkSchedulerOnce(b *testing.B) {
	w, _ := newTestWorld(b)
	for i := 0; i < 1000; i++ {
		spawn(w, with(Position{}), with(Velocity{DX: 1, DY: 1}))
	}
	scheduler := ecs.NewScheduler(w, nil)
	scheduler.Register(&benchMovementSystem{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scheduler.Once(0.016)
	}
}
