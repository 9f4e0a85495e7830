package ecs

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
)

// structuralGuard asserts that structural calls on a World never overlap and
// never run while the world is frozen for a parallel read phase.
type structuralGuard struct {
	enabled bool
	busy    atomic.Bool
	frozen  atomic.Uint64
	epoch   atomic.Uint64
}

func (g *structuralGuard) enter(op string) {
	if !g.enabled {
		return
	}
	if !g.busy.CompareAndSwap(false, true) {
		panic(eris.Wrapf(ErrConcurrentStructural, "%s", op))
	}
	if g.frozen.Load() != 0 {
		g.busy.Store(false)
		panic(eris.Wrapf(ErrWorldFrozen, "%s", op))
	}
}

func (g *structuralGuard) exit() {
	if g.enabled {
		g.busy.Store(false)
	}
}

// FreezeToken is the capability returned by Freeze. Only the matching token
// can thaw the world.
type FreezeToken struct {
	epoch uint64
}

// Freeze opens a read phase. Until Thaw is called with the returned token,
// every structural call panics with ErrWorldFrozen. Freezing an already
// frozen world panics.
func (w *World) Freeze() FreezeToken {
	if w.guard.busy.Load() {
		panic(eris.Wrap(ErrConcurrentStructural, "freeze during structural change"))
	}
	epoch := w.guard.epoch.Add(1)
	if !w.guard.frozen.CompareAndSwap(0, epoch) {
		panic(eris.Wrap(ErrWorldFrozen, "world already frozen"))
	}
	return FreezeToken{epoch: epoch}
}

// Thaw closes the read phase opened by token.
func (w *World) Thaw(token FreezeToken) {
	if token.epoch == 0 || !w.guard.frozen.CompareAndSwap(token.epoch, 0) {
		panic(eris.Wrapf(ErrStaleFreezeToken, "epoch %d", token.epoch))
	}
}

// Frozen reports whether a read phase is open.
func (w *World) Frozen() bool {
	return w.guard.frozen.Load() != 0
}

func (w *World) beginStructural(op string) {
	w.guard.enter(op)
}

func (w *World) endStructural() {
	w.guard.exit()
}
