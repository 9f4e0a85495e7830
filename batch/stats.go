package batch

// Stats is a snapshot of runner counters.
type Stats struct {
	Workers   int
	Slots     int
	InFlight  int
	Queued    int
	Submitted uint64
	Completed uint64
	Executed  uint64
	Requeued  uint64
	Diverged  uint64
}

// Stats returns the current counters.
func (r *Runner) Stats() Stats {
	inFlight := 0
	for i := range r.slots {
		if r.slots[i].state.Load() != slotFree {
			inFlight++
		}
	}
	return Stats{
		Workers:   r.config.workers,
		Slots:     len(r.slots),
		InFlight:  inFlight,
		Queued:    r.queue.len(),
		Submitted: r.submitted.Load(),
		Completed: r.completed.Load(),
		Executed:  r.executed.Load(),
		Requeued:  r.requeued.Load(),
		Diverged:  r.diverged.Load(),
	}
}
