package ecs_test

import (
	"testing"

	"github.com/plus3/tabecs/ecs"
	"github.com/stretchr/testify/assert"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type Frozen struct{}

type PlayerController struct{}

type Waypoint struct {
	X, Y float32
}

type Score int32

type Temperature float64

// testTypes holds the ids issued by newTestWorld.
type testTypes struct {
	Position    ecs.ComponentType
	Velocity    ecs.ComponentType
	Name        ecs.ComponentType
	Health      ecs.ComponentType
	Frozen      ecs.ComponentType
	Player      ecs.ComponentType
	Waypoints   ecs.ComponentType
	Score       ecs.ComponentType
	Temperature ecs.ComponentType
}

func newTestWorld(t testing.TB, opts ...ecs.Option) (*ecs.World, testTypes) {
	t.Helper()
	w := ecs.NewWorld(opts...)
	types := testTypes{
		Position:    ecs.MustRegisterComponent[Position](w),
		Velocity:    ecs.MustRegisterComponent[Velocity](w),
		Name:        ecs.MustRegisterComponent[Name](w),
		Health:      ecs.MustRegisterComponent[Health](w),
		Frozen:      ecs.MustRegisterComponent[Frozen](w),
		Player:      ecs.MustRegisterComponent[PlayerController](w),
		Score:       ecs.MustRegisterComponent[Score](w),
		Temperature: ecs.MustRegisterComponent[Temperature](w),
	}
	waypoints, err := ecs.RegisterBuffer[Waypoint](w)
	assert.NoError(t, err)
	types.Waypoints = waypoints
	return w, types
}

// with returns a setup step adding value to an entity.
func with[T any](value T) func(*ecs.World, ecs.Entity) {
	return func(w *ecs.World, e ecs.Entity) {
		ecs.AddComponent(w, e, value)
	}
}

// spawn creates an entity and runs the setup steps on it in order.
func spawn(w *ecs.World, steps ...func(*ecs.World, ecs.Entity)) ecs.Entity {
	e := w.CreateEntity()
	for _, step := range steps {
		step(w, e)
	}
	return e
}
