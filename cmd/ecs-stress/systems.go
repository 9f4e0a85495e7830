package main

import (
	"github.com/plus3/tabecs/ecs"
	"github.com/rs/zerolog"
)

type MovementSystem struct {
	view ecs.View[struct {
		Position *Position
		Velocity *Velocity
		Sleeping *Sleeping `ecs:"exclude"`
	}]
	log zerolog.Logger
}

func (s *MovementSystem) Setup(w *ecs.World) {
	s.view.Init(w)
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	dt := frame.DeltaTime
	err := frame.RunQuery(s.view.Query(), func(_ ecs.ArchetypeID, members []ecs.Entity, _ int) {
		for _, item := range s.view.Members(members) {
			item.Position.X += item.Velocity.DX * dt
			item.Position.Y += item.Velocity.DY * dt
		}
	})
	if err != nil {
		s.log.Error().Err(err).Msg("movement")
	}
}

type HeatSystem struct {
	view ecs.View[struct {
		Heat *Heat
		Mass *Mass `ecs:"optional"`
	}]
	log zerolog.Logger
}

func (s *HeatSystem) Setup(w *ecs.World) {
	s.view.Init(w)
}

func (s *HeatSystem) Execute(frame *ecs.UpdateFrame) {
	dt := frame.DeltaTime
	err := frame.RunQuery(s.view.Query(), func(_ ecs.ArchetypeID, members []ecs.Entity, _ int) {
		for _, item := range s.view.Members(members) {
			rate := 1.0
			if item.Mass != nil {
				rate /= item.Mass.Kg
			}
			item.Heat.Celsius -= item.Heat.Celsius * rate * dt
		}
	})
	if err != nil {
		s.log.Error().Err(err).Msg("heat")
	}
}

const trailLength = 16

type TrailSystem struct {
	view ecs.View[struct {
		Position *Position
		Trail    *[]TrailPoint
	}]
	log zerolog.Logger
}

func (s *TrailSystem) Setup(w *ecs.World) {
	s.view.Init(w)
}

func (s *TrailSystem) Execute(frame *ecs.UpdateFrame) {
	err := frame.RunQuery(s.view.Query(), func(_ ecs.ArchetypeID, members []ecs.Entity, _ int) {
		for _, item := range s.view.Members(members) {
			trail := append(*item.Trail, TrailPoint{X: item.Position.X, Y: item.Position.Y})
			if len(trail) > trailLength {
				trail = trail[len(trail)-trailLength:]
			}
			*item.Trail = trail
		}
	})
	if err != nil {
		s.log.Error().Err(err).Msg("trail")
	}
}

// LifetimeSystem expires entities and replaces each with a fresh random one,
// which keeps the population steady while churning archetype membership.
type LifetimeSystem struct {
	Entities ecs.View[struct{ *Lifetime }]

	spawner *spawner
	expired int
}

func (s *LifetimeSystem) Execute(frame *ecs.UpdateFrame) {
	for e, item := range s.Entities.All() {
		item.Lifetime.Remaining -= frame.DeltaTime
		if item.Lifetime.Remaining > 0 {
			continue
		}
		s.expired++
		frame.Commands.RemoveEntity(e)
		frame.Commands.CreateEntity(s.spawner.populate)
	}
}

// DecaySystem drains health and wakes sleeping entities once they are hurt.
type DecaySystem struct {
	Entities ecs.View[struct {
		Health   *Health
		Sleeping *Sleeping `ecs:"optional"`
	}]
	sleeping ecs.ComponentType
}

func (s *DecaySystem) Setup(w *ecs.World) {
	s.sleeping = ecs.TypeOf[Sleeping](w)
}

func (s *DecaySystem) Execute(frame *ecs.UpdateFrame) {
	for e, item := range s.Entities.All() {
		item.Health.Current -= frame.DeltaTime
		if item.Health.Current <= 0 {
			item.Health.Current = item.Health.Max
		}
		if item.Sleeping != nil && item.Health.Current < item.Health.Max/2 {
			frame.Commands.RemoveComponent(e, s.sleeping)
		}
	}
}
