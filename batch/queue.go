package batch

import "sync"

type unit struct {
	slot     int32
	index    int32
	maxIndex int32
	version  uint32
}

// workQueue is a FIFO of units shared by all workers.
type workQueue struct {
	mu    sync.Mutex
	items []unit
	head  int
}

func (q *workQueue) push(units ...unit) {
	if len(units) == 0 {
		return
	}
	q.mu.Lock()
	if q.head > 1024 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, units...)
	q.mu.Unlock()
}

func (q *workQueue) pop() (unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return unit{}, false
	}
	u := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return u, true
}

// take removes up to limit units belonging to the given job and appends them
// to dst. The order of the remaining units is preserved.
func (q *workQueue) take(dst []unit, slot int32, version uint32, limit int) []unit {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:q.head]
	taken := 0
	for _, u := range q.items[q.head:] {
		if taken < limit && u.slot == slot && u.version == version {
			taken++
			dst = append(dst, u)
			continue
		}
		kept = append(kept, u)
	}
	q.items = kept
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return dst
}

func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
