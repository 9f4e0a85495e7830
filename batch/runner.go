package batch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	slotFree int32 = iota
	slotPreparing
	slotRunning
)

type slot struct {
	state     atomic.Int32
	version   atomic.Uint32
	succeeded atomic.Int32
	job       Batch
	cond      Conditional
	done      Completer
}

// Runner executes submitted jobs on a pool of worker goroutines. Submit,
// IsComplete, WaitForCompletion and TryDivergeRequest are safe for concurrent
// use.
type Runner struct {
	config config
	log    zerolog.Logger
	slots  []slot
	queue  workQueue
	wake   chan struct{}

	group  *errgroup.Group
	cancel context.CancelFunc
	closed atomic.Bool

	criticalMu    sync.Mutex
	criticalEpoch uint64
	deadline      atomic.Int64

	submitted atomic.Uint64
	completed atomic.Uint64
	executed  atomic.Uint64
	requeued  atomic.Uint64
	diverged  atomic.Uint64
}

// NewRunner starts the worker pool. The workers stop when ctx is cancelled or
// Close is called.
func NewRunner(ctx context.Context, opts ...Option) *Runner {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	r := &Runner{
		config: cfg,
		log:    cfg.logger.With().Str("component", "batch").Logger(),
		slots:  make([]slot, cfg.slots),
		wake:   make(chan struct{}, cfg.workers),
		group:  group,
		cancel: cancel,
	}
	for i := range cfg.workers {
		group.Go(func() error {
			r.work(ctx, i)
			return nil
		})
	}
	r.log.Debug().Int("workers", cfg.workers).Int("slots", cfg.slots).Msg("runner started")
	return r
}

// Workers returns the size of the worker pool.
func (r *Runner) Workers() int {
	return r.config.workers
}

// TaskCount is the number of distinct task ids passed to Execute: one per
// worker plus one shared by diverging callers.
func (r *Runner) TaskCount() int {
	return r.config.workers + 1
}

// CallerTaskID is the task id units observe when run by a waiting caller.
func (r *Runner) CallerTaskID() int {
	return r.config.workers
}

// Submit schedules job. It returns ErrCapacityExhausted when every slot holds
// an unfinished job. A job that asks for no units completes immediately.
func (r *Runner) Submit(job Batch) (Request, error) {
	if r.closed.Load() {
		return Request{}, ErrRunnerClosed
	}
	id := -1
	for i := range r.slots {
		if r.slots[i].state.CompareAndSwap(slotFree, slotPreparing) {
			id = i
			break
		}
	}
	if id < 0 {
		return Request{}, eris.Wrapf(ErrCapacityExhausted, "%d jobs in flight", len(r.slots))
	}

	s := &r.slots[id]
	s.job = job
	s.cond, _ = job.(Conditional)
	s.done, _ = job.(Completer)
	s.succeeded.Store(0)
	req := Request{ID: id, Version: s.version.Load()}
	r.submitted.Add(1)

	n := max(job.PrepareBatch(r.TaskCount()), 0)
	if n == 0 {
		r.finish(s, req)
		return req, nil
	}
	s.state.Store(slotRunning)

	units := make([]unit, n)
	for i := range units {
		units[i] = unit{slot: int32(id), index: int32(i), maxIndex: int32(n), version: req.Version}
	}
	r.queue.push(units...)
	r.signal(n)
	return req, nil
}

// Run submits job and waits for it.
func (r *Runner) Run(ctx context.Context, job Batch) error {
	req, err := r.Submit(job)
	if err != nil {
		return err
	}
	return r.WaitForCompletion(ctx, req)
}

// IsComplete reports whether the job behind req has finished. It panics with
// ErrInvalidRequest for a request this runner never issued.
func (r *Runner) IsComplete(req Request) bool {
	if req.ID < 0 || req.ID >= len(r.slots) {
		panic(eris.Wrapf(ErrInvalidRequest, "request %d of %d slots", req.ID, len(r.slots)))
	}
	return r.slots[req.ID].version.Load() != req.Version
}

// TryDivergeRequest runs one queued unit of req's job on the calling
// goroutine and returns how many it executed. Units of other jobs stay
// queued, and the rest of the job is left for idle workers to claim.
func (r *Runner) TryDivergeRequest(req Request) int {
	if r.IsComplete(req) {
		return 0
	}
	var buf [1]unit
	units := r.queue.take(buf[:0], int32(req.ID), req.Version, len(buf))
	if len(units) == 0 {
		return 0
	}
	u := units[0]
	if !r.ready(u) {
		r.queue.push(u)
		r.requeued.Add(1)
		return 0
	}
	r.execute(u, r.CallerTaskID())
	r.diverged.Add(1)
	return 1
}

// WaitForCompletion blocks until req's job finished or ctx is done. While
// waiting it spins briefly, then helps by diverging into the job, and finally
// sleeps between checks.
func (r *Runner) WaitForCompletion(ctx context.Context, req Request) error {
	var timer *time.Timer
	for attempt := 0; ; attempt++ {
		if r.IsComplete(req) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "wait for job %d", req.ID)
		}
		if attempt < r.config.spins {
			continue
		}
		if r.TryDivergeRequest(req) > 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(r.config.idleSleep)
			defer timer.Stop()
		} else {
			timer.Reset(r.config.idleSleep)
		}
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

// Close stops the workers and waits for them to exit. Units still queued are
// dropped.
func (r *Runner) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.cancel()
	err := r.group.Wait()
	r.log.Debug().Uint64("completed", r.completed.Load()).Msg("runner stopped")
	return err
}

func (r *Runner) ready(u unit) bool {
	s := &r.slots[u.slot]
	return s.cond == nil || s.cond.CanExecute(int(u.index), int(u.maxIndex))
}

// execute runs u and finishes the job if u was its last unit. The unit count
// travels with the unit, so the comparison never reads slot state a later
// job may already have replaced.
func (r *Runner) execute(u unit, taskID int) {
	s := &r.slots[u.slot]
	s.job.Execute(int(u.index), int(u.maxIndex), taskID, r.TaskCount())
	r.executed.Add(1)
	if s.succeeded.Add(1) == u.maxIndex {
		r.finish(s, Request{ID: int(u.slot), Version: u.version})
	}
}

func (r *Runner) finish(s *slot, req Request) {
	if s.done != nil {
		s.done.OnComplete(req)
	}
	s.job, s.cond, s.done = nil, nil, nil
	s.version.Add(1)
	s.state.Store(slotFree)
	r.completed.Add(1)
}

func (r *Runner) signal(n int) {
	for range min(n, r.config.workers) {
		select {
		case r.wake <- struct{}{}:
		default:
			return
		}
	}
}

func (r *Runner) work(ctx context.Context, taskID int) {
	log := r.log.With().Int("task", taskID).Logger()
	log.Debug().Msg("worker started")
	defer log.Debug().Msg("worker stopped")

	timer := time.NewTimer(r.config.idleSleep)
	timer.Stop()
	var deferred []unit
	idle := 0
	for ctx.Err() == nil {
		u, ok := r.queue.pop()
		if !ok {
			if len(deferred) > 0 {
				r.queue.push(deferred...)
				r.requeued.Add(uint64(len(deferred)))
				deferred = deferred[:0]
			}
			r.backoff(ctx, timer, idle)
			idle++
			continue
		}
		if !r.ready(u) {
			deferred = append(deferred, u)
			continue
		}
		r.execute(u, taskID)
		idle = 0
	}
}

// backoff escalates from spinning to yielding to sleeping. Inside a critical
// section workers only spin so they pick up work without scheduler latency.
func (r *Runner) backoff(ctx context.Context, timer *time.Timer, idle int) {
	if r.inCritical() || idle < r.config.spins {
		return
	}
	if idle < r.config.spins+r.config.yields {
		runtime.Gosched()
		return
	}
	timer.Reset(r.config.idleSleep)
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-r.wake:
		timer.Stop()
	case <-timer.C:
	}
}
