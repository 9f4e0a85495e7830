package ecs

import (
	"iter"
)

// Row is a dense identifier naming a slot in a columnar table. Row 0 is
// reserved and never handed out.
type Row uint32

// InvalidRow is the null row.
const InvalidRow Row = 0

// RowTable allocates dense row ids from a free list. Columns that are indexed
// by row register a grow callback (or use GetColumn) and are resized whenever
// the id watermark passes the current capacity.
type RowTable struct {
	alive    []bool
	free     []Row
	maxID    Row
	count    int
	capacity int
	onGrow   []func(capacity int)
}

// NewRowTable creates a row table with room for initialCapacity rows before
// the first resize.
func NewRowTable(initialCapacity int) *RowTable {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	// row 0 is reserved, so capacity counts it
	capacity := initialCapacity + 1
	return &RowTable{
		alive:    make([]bool, capacity),
		capacity: capacity,
	}
}

// OnGrow registers a callback invoked with the new capacity whenever the table
// grows. The callback is invoked immediately with the current capacity so the
// column starts at the right size.
func (rt *RowTable) OnGrow(fn func(capacity int)) {
	rt.onGrow = append(rt.onGrow, fn)
	fn(rt.capacity)
}

// CreateRow returns a recycled row if one is available, otherwise mints the
// next id.
func (rt *RowTable) CreateRow() Row {
	var row Row
	if n := len(rt.free); n > 0 {
		row = rt.free[n-1]
		rt.free = rt.free[:n-1]
	} else {
		rt.maxID++
		row = rt.maxID
		if int(row) >= rt.capacity {
			rt.grow(int(rt.maxID+1) * 2)
		}
	}
	rt.alive[row] = true
	rt.count++
	return row
}

// CreateRowBulk creates n rows, growing the columns at most once.
func (rt *RowTable) CreateRowBulk(n int) []Row {
	if n <= 0 {
		return nil
	}
	fresh := n - len(rt.free)
	if fresh > 0 && int(rt.maxID)+fresh >= rt.capacity {
		rt.grow((int(rt.maxID) + fresh + 1) * 2)
	}
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = rt.CreateRow()
	}
	return rows
}

// TryReleaseRow returns a row to the free list. It reports false if the row
// was never minted or is already free.
func (rt *RowTable) TryReleaseRow(row Row) bool {
	if !rt.Alive(row) {
		return false
	}
	rt.alive[row] = false
	rt.free = append(rt.free, row)
	rt.count--
	return true
}

// Alive reports whether row is currently allocated.
func (rt *RowTable) Alive(row Row) bool {
	return row != InvalidRow && row <= rt.maxID && rt.alive[row]
}

// Count returns the number of live rows.
func (rt *RowTable) Count() int {
	return rt.count
}

// Capacity returns the length every registered column is kept at.
func (rt *RowTable) Capacity() int {
	return rt.capacity
}

// MaxID returns the highest row id ever minted.
func (rt *RowTable) MaxID() Row {
	return rt.maxID
}

// Clear releases every row. Capacity and columns are kept.
func (rt *RowTable) Clear() {
	clear(rt.alive)
	rt.free = rt.free[:0]
	rt.maxID = 0
	rt.count = 0
}

// Rows iterates live rows in id order.
func (rt *RowTable) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for row := Row(1); row <= rt.maxID; row++ {
			if rt.alive[row] && !yield(row) {
				return
			}
		}
	}
}

func (rt *RowTable) grow(capacity int) {
	if capacity <= rt.capacity {
		return
	}
	alive := make([]bool, capacity)
	copy(alive, rt.alive)
	rt.alive = alive
	rt.capacity = capacity
	for _, fn := range rt.onGrow {
		fn(capacity)
	}
}

// GetColumn returns a pointer to row's slot in column, growing the column to
// the table capacity first if needed.
func GetColumn[T any](rt *RowTable, row Row, column *[]T) *T {
	if int(row) >= len(*column) {
		*column = growColumn(*column, rt.capacity)
	}
	return &(*column)[row]
}

func growColumn[T any](column []T, capacity int) []T {
	if len(column) >= capacity {
		return column
	}
	if cap(column) >= capacity {
		return column[:capacity]
	}
	grown := make([]T, capacity)
	copy(grown, column)
	return grown
}
