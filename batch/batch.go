// Package batch runs index-partitioned jobs on a fixed pool of workers.
//
// A job implements Batch. When submitted it is asked how many work units it
// wants, and every unit is then executed exactly once by some worker or by a
// caller that diverges into the job while waiting for it.
package batch

// Batch is a job split into independent work units.
type Batch interface {
	// PrepareBatch returns the number of units to run. It is called once, on
	// the submitting goroutine, before any unit executes. taskCount is the
	// number of distinct task ids Execute may observe.
	PrepareBatch(taskCount int) int

	// Execute runs unit index of maxIndex. taskID identifies the executing
	// worker, or taskCount-1 when a waiting caller runs the unit itself.
	Execute(index, maxIndex, taskID, taskCount int)
}

// Completer is implemented by jobs that want a callback after their last unit
// finished. OnComplete runs before waiters observe completion.
type Completer interface {
	OnComplete(req Request)
}

// Conditional is implemented by jobs whose units may not be ready yet. A unit
// that reports false is put aside and retried in a later round.
type Conditional interface {
	CanExecute(index, maxIndex int) bool
}

// Request identifies a submitted job. A request stays valid after its job
// completed; it then simply reports completion.
type Request struct {
	ID      int
	Version uint32
}

// Func adapts a function to Batch.
type Func struct {
	Units int
	Fn    func(index, maxIndex, taskID, taskCount int)
}

func (f Func) PrepareBatch(int) int { return f.Units }

func (f Func) Execute(index, maxIndex, taskID, taskCount int) {
	f.Fn(index, maxIndex, taskID, taskCount)
}
