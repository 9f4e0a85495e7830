package ecs

import "github.com/rotisserie/eris"

// Errors raised by the store. Programmer errors are raised as panics carrying
// one of these values (wrapped with context), so callers that recover can
// still match them with errors.Is.
var (
	ErrInvalidEntity          = eris.New("invalid entity")
	ErrInvalidComponentType   = eris.New("invalid component type")
	ErrInvalidComponentRow    = eris.New("invalid component row")
	ErrInvalidArchetype       = eris.New("invalid archetype")
	ErrComponentNotFound      = eris.New("component not present on entity")
	ErrRecursionLimit         = eris.New("shared component recursion limit exceeded")
	ErrBoardKind              = eris.New("operation not supported by board kind")
	ErrBoardReadOnly          = eris.New("board is read-only")
	ErrDuplicateComponent     = eris.New("component type already registered")
	ErrArchetypeNotClassified = eris.New("archetype not yet classified by query")
	ErrWorldFrozen            = eris.New("world is frozen for a read phase")
	ErrConcurrentStructural   = eris.New("concurrent structural change")
	ErrStaleFreezeToken       = eris.New("stale freeze token")
)
