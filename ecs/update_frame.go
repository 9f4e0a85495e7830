package ecs

import (
	"context"

	"github.com/plus3/tabecs/batch"
)

// UpdateFrame is handed to every system during one scheduler tick.
type UpdateFrame struct {
	DeltaTime float64
	Commands  *Commands
	World     *World
	Runner    *batch.Runner

	ctx context.Context
}

func newUpdateFrame(ctx context.Context, dt float64, world *World, runner *batch.Runner) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  NewCommands(world),
		World:     world,
		Runner:    runner,
		ctx:       ctx,
	}
}

// Context returns the context of the tick.
func (f *UpdateFrame) Context() context.Context {
	return f.ctx
}

// RunQuery runs fn over q's archetypes on the frame's runner.
func (f *UpdateFrame) RunQuery(q *Query, fn func(id ArchetypeID, members []Entity, taskID int)) error {
	return f.World.RunQuery(f.ctx, f.Runner, q, fn)
}
