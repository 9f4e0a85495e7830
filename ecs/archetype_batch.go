package ecs

import (
	"context"

	"github.com/plus3/tabecs/batch"
)

type chunk struct {
	archetype ArchetypeID
	members   []Entity
}

// ArchetypeBatch runs fn once per matched archetype, or once per slice of at
// most SplitSize members when SplitSize is set. The member lists are captured
// when the job is prepared, so the world must not change structurally until
// the job completes.
type ArchetypeBatch struct {
	query     *Query
	fn        func(id ArchetypeID, members []Entity, taskID int)
	chunks    []chunk
	SplitSize int
}

// NewArchetypeBatch wraps q as a batch job.
func NewArchetypeBatch(q *Query, fn func(id ArchetypeID, members []Entity, taskID int)) *ArchetypeBatch {
	return &ArchetypeBatch{query: q, fn: fn}
}

func (b *ArchetypeBatch) PrepareBatch(int) int {
	b.chunks = b.chunks[:0]
	for id, members := range b.query.Chunks() {
		if b.SplitSize <= 0 {
			b.chunks = append(b.chunks, chunk{archetype: id, members: members})
			continue
		}
		for start := 0; start < len(members); start += b.SplitSize {
			end := min(start+b.SplitSize, len(members))
			b.chunks = append(b.chunks, chunk{archetype: id, members: members[start:end]})
		}
	}
	return len(b.chunks)
}

func (b *ArchetypeBatch) Execute(index, _, taskID, _ int) {
	c := b.chunks[index]
	b.fn(c.archetype, c.members, taskID)
}

// RunQuery freezes the world and runs fn over q's matched archetypes on
// runner, returning once every unit finished. With a nil runner the units run
// serially on the caller with task id 0. fn may read and write component data
// of the entities it is handed but must not make structural changes; queue
// those through Commands instead.
func (w *World) RunQuery(ctx context.Context, runner *batch.Runner, q *Query, fn func(id ArchetypeID, members []Entity, taskID int)) error {
	token := w.Freeze()
	defer w.Thaw(token)

	job := NewArchetypeBatch(q, fn)
	if runner == nil {
		n := job.PrepareBatch(1)
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			job.Execute(i, n, 0, 1)
		}
		return nil
	}

	req, err := runner.Submit(job)
	if err != nil {
		return err
	}
	if err := runner.WaitForCompletion(ctx, req); err != nil {
		// Units already handed out still read the world, so it stays frozen
		// until they drain.
		_ = runner.WaitForCompletion(context.Background(), req)
		return err
	}
	return nil
}
