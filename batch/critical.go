package batch

import (
	"time"

	"github.com/rotisserie/eris"
)

// CriticalToken identifies an open critical section.
type CriticalToken struct {
	epoch    uint64
	opened   time.Time
	deadline time.Time
}

// Deadline is when the section expires on its own.
func (t CriticalToken) Deadline() time.Time {
	return t.deadline
}

// BeginCritical opens a window in which idle workers spin instead of yielding
// or sleeping, so short latency-sensitive jobs start immediately. The window
// closes at EndCritical or after the configured critical window, whichever
// comes first. Only one section may be open at a time.
func (r *Runner) BeginCritical() (CriticalToken, error) {
	r.criticalMu.Lock()
	defer r.criticalMu.Unlock()
	now := time.Now()
	if r.inCriticalAt(now) {
		return CriticalToken{}, ErrCriticalBusy
	}
	r.criticalEpoch++
	token := CriticalToken{
		epoch:    r.criticalEpoch,
		opened:   now,
		deadline: now.Add(r.config.criticalWindow),
	}
	r.deadline.Store(token.deadline.UnixNano())
	r.signal(r.config.workers)
	return token, nil
}

// EndCritical closes the section opened with token. It returns
// ErrCriticalOverrun when the section outlived its window, in which case the
// workers already fell back to normal backoff at the deadline.
func (r *Runner) EndCritical(token CriticalToken) error {
	r.criticalMu.Lock()
	defer r.criticalMu.Unlock()
	if token.epoch == 0 || token.epoch != r.criticalEpoch || r.deadline.Load() == 0 {
		return eris.Wrapf(ErrCriticalToken, "epoch %d", token.epoch)
	}
	r.deadline.Store(0)
	held := time.Since(token.opened)
	if held > r.config.criticalWindow {
		r.log.Warn().Dur("held", held).Dur("window", r.config.criticalWindow).Msg("critical section overrun")
		return eris.Wrapf(ErrCriticalOverrun, "held %s, window %s", held, r.config.criticalWindow)
	}
	return nil
}

// InCritical reports whether a critical section is open and unexpired.
func (r *Runner) InCritical() bool {
	return r.inCritical()
}

func (r *Runner) inCritical() bool {
	return r.inCriticalAt(time.Now())
}

func (r *Runner) inCriticalAt(now time.Time) bool {
	deadline := r.deadline.Load()
	return deadline != 0 && now.UnixNano() < deadline
}
