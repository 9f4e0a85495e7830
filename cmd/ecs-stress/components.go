package main

import (
	"math/rand"

	"github.com/plus3/tabecs/ecs"
)

type Position struct{ X, Y float64 }

type Velocity struct{ DX, DY float64 }

type Health struct{ Current, Max float64 }

type Lifetime struct{ Remaining float64 }

type Heat struct{ Celsius float64 }

type Mass struct{ Kg float64 }

type Team struct{ ID int }

type Sleeping struct{}

type TrailPoint struct{ X, Y float64 }

// adders attach one component each with a random value. The order is the
// order in which the -components flag enables them.
var adders = []func(w *ecs.World, e ecs.Entity, r *rand.Rand){
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Position{X: r.Float64() * 1000, Y: r.Float64() * 1000})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Velocity{DX: r.Float64()*2 - 1, DY: r.Float64()*2 - 1})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Health{Current: 50 + r.Float64()*50, Max: 100})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Lifetime{Remaining: 1 + r.Float64()*4})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Heat{Celsius: r.Float64() * 40})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Mass{Kg: 1 + r.Float64()*10})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddComponent(w, e, Team{ID: r.Intn(4)})
	},
	func(w *ecs.World, e ecs.Entity, _ *rand.Rand) {
		ecs.AddComponent(w, e, Sleeping{})
	},
	func(w *ecs.World, e ecs.Entity, r *rand.Rand) {
		ecs.AddBuffer(w, e, TrailPoint{X: r.Float64(), Y: r.Float64()})
	},
}

func registerComponents(w *ecs.World) {
	ecs.MustRegisterComponent[Position](w)
	ecs.MustRegisterComponent[Velocity](w)
	ecs.MustRegisterComponent[Health](w)
	ecs.MustRegisterComponent[Lifetime](w)
	ecs.MustRegisterComponent[Heat](w)
	ecs.MustRegisterComponent[Mass](w)
	ecs.MustRegisterComponent[Team](w)
	ecs.MustRegisterComponent[Sleeping](w)
	if _, err := ecs.RegisterBuffer[TrailPoint](w); err != nil {
		panic(err)
	}
}

// spawner creates entities holding between one and five of its first kinds
// component types. Every entity gets a Position so movement has work.
type spawner struct {
	world *ecs.World
	rand  *rand.Rand
	types []ecs.ComponentType
	kinds int
}

func newSpawner(w *ecs.World, seed int64, kinds int) *spawner {
	types := []ecs.ComponentType{
		ecs.TypeOf[Position](w),
		ecs.TypeOf[Velocity](w),
		ecs.TypeOf[Health](w),
		ecs.TypeOf[Lifetime](w),
		ecs.TypeOf[Heat](w),
		ecs.TypeOf[Mass](w),
		ecs.TypeOf[Team](w),
		ecs.TypeOf[Sleeping](w),
		ecs.BufferTypeOf[TrailPoint](w),
	}
	return &spawner{
		world: w,
		rand:  rand.New(rand.NewSource(seed)),
		types: types,
		kinds: min(max(kinds, 1), len(types)),
	}
}

func (s *spawner) spawn() ecs.Entity {
	e := s.world.CreateEntity()
	s.populate(s.world, e)
	return e
}

func (s *spawner) populate(w *ecs.World, e ecs.Entity) {
	adders[0](w, e, s.rand)
	for range s.rand.Intn(5) {
		i := s.rand.Intn(s.kinds)
		if w.HasComponent(e, s.types[i]) {
			continue
		}
		adders[i](w, e, s.rand)
	}
}
