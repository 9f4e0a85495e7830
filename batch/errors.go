package batch

import "github.com/rotisserie/eris"

var (
	ErrCapacityExhausted = eris.New("no free batch slot")
	ErrInvalidRequest    = eris.New("invalid batch request")
	ErrRunnerClosed      = eris.New("batch runner closed")
	ErrCriticalBusy      = eris.New("critical section already open")
	ErrCriticalToken     = eris.New("critical token does not match the open section")
	ErrCriticalOverrun   = eris.New("critical section exceeded its window")
)
