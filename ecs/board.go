package ecs

import (
	"reflect"
	"slices"
	"unsafe"

	"github.com/rotisserie/eris"
)

// BoardKind is the closed set of component storage layouts.
type BoardKind uint8

const (
	// BoardSingle stores one fixed-size value per row.
	BoardSingle BoardKind = iota + 1
	// BoardBuffer stores a growable slice per row.
	BoardBuffer
	// BoardTag stores nothing; every read returns the same default instance.
	BoardTag
	// BoardReadOnly is filled by an external source and cannot be mutated
	// structurally through the store.
	BoardReadOnly
)

func (k BoardKind) String() string {
	switch k {
	case BoardSingle:
		return "single"
	case BoardBuffer:
		return "buffer"
	case BoardTag:
		return "tag"
	case BoardReadOnly:
		return "read-only"
	}
	return "unknown"
}

// CanCreate reports whether rows can be created through the store.
func (k BoardKind) CanCreate() bool {
	return k == BoardSingle || k == BoardBuffer || k == BoardTag
}

// TracksReferences reports whether the board keeps an owner and a reference
// list per row.
func (k BoardKind) TracksReferences() bool {
	return k == BoardSingle || k == BoardBuffer
}

// StoresValue reports whether rows resolve to a single *T.
func (k BoardKind) StoresValue() bool {
	return k == BoardSingle || k == BoardTag || k == BoardReadOnly
}

// StoresBuffer reports whether rows resolve to a *[]T.
func (k BoardKind) StoresBuffer() bool {
	return k == BoardBuffer
}

// ComponentBoard is the type-erased contract every board kind satisfies. The
// owner/reference methods are no-ops on kinds that do not track references.
type ComponentBoard interface {
	Kind() BoardKind
	ElemType() reflect.Type
	Rows() *RowTable
	CreateRow() Row
	DeleteRow(row Row) bool
	Alive(row Row) bool
	Owner(row Row) Entity
	SetOwner(row Row, owner Entity)
	AddReference(row Row, e Entity)
	RemoveReference(row Row, e Entity) int
	References(row Row) []Entity
	Clear()

	pointer(row Row) unsafe.Pointer
}

// refColumns holds the owner and reference bookkeeping shared by single and
// buffer boards.
type refColumns struct {
	rows   *RowTable
	owners []Entity
	refs   [][]Entity
}

func newRefColumns(initialCapacity int) refColumns {
	rc := refColumns{rows: NewRowTable(initialCapacity)}
	return rc
}

func (rc *refColumns) bind() {
	rc.rows.OnGrow(func(capacity int) {
		rc.owners = growColumn(rc.owners, capacity)
		rc.refs = growColumn(rc.refs, capacity)
	})
}

func (rc *refColumns) Rows() *RowTable      { return rc.rows }
func (rc *refColumns) Alive(row Row) bool   { return rc.rows.Alive(row) }
func (rc *refColumns) Owner(row Row) Entity { return rc.owners[rc.check(row)] }
func (rc *refColumns) References(row Row) []Entity {
	return rc.refs[rc.check(row)]
}

func (rc *refColumns) SetOwner(row Row, owner Entity) {
	rc.owners[rc.check(row)] = owner
}

func (rc *refColumns) AddReference(row Row, e Entity) {
	refs := &rc.refs[rc.check(row)]
	if !slices.Contains(*refs, e) {
		*refs = append(*refs, e)
	}
}

// RemoveReference drops e from the row's reference list and returns how many
// references remain. The row itself is left allocated.
func (rc *refColumns) RemoveReference(row Row, e Entity) int {
	refs := &rc.refs[rc.check(row)]
	if i := slices.Index(*refs, e); i >= 0 {
		last := len(*refs) - 1
		(*refs)[i] = (*refs)[last]
		*refs = (*refs)[:last]
	}
	return len(*refs)
}

func (rc *refColumns) release(row Row) bool {
	if !rc.rows.TryReleaseRow(row) {
		return false
	}
	rc.owners[row] = InvalidEntity
	rc.refs[row] = rc.refs[row][:0]
	return true
}

func (rc *refColumns) clear() {
	rc.rows.Clear()
	clear(rc.owners)
	clear(rc.refs)
}

func (rc *refColumns) check(row Row) Row {
	if !rc.rows.Alive(row) {
		panic(eris.Wrapf(ErrInvalidComponentRow, "row %d", row))
	}
	return row
}

// SingleBoard stores one T per row.
type SingleBoard[T any] struct {
	refColumns
	values []T
}

// NewSingleBoard creates a single-value board.
func NewSingleBoard[T any](initialCapacity int) *SingleBoard[T] {
	b := &SingleBoard[T]{refColumns: newRefColumns(initialCapacity)}
	b.bind()
	b.rows.OnGrow(func(capacity int) {
		b.values = growColumn(b.values, capacity)
	})
	return b
}

func (b *SingleBoard[T]) Kind() BoardKind        { return BoardSingle }
func (b *SingleBoard[T]) ElemType() reflect.Type { return reflect.TypeFor[T]() }

// CreateRow allocates a zeroed row.
func (b *SingleBoard[T]) CreateRow() Row {
	return b.rows.CreateRow()
}

// DeleteRow zeroes and releases a row regardless of its references.
func (b *SingleBoard[T]) DeleteRow(row Row) bool {
	if !b.rows.Alive(row) {
		return false
	}
	var zero T
	b.values[row] = zero
	return b.release(row)
}

// Read returns a pointer to the row's value.
func (b *SingleBoard[T]) Read(row Row) *T {
	return &b.values[b.check(row)]
}

// Write overwrites the row's value.
func (b *SingleBoard[T]) Write(row Row, value T) {
	b.values[b.check(row)] = value
}

func (b *SingleBoard[T]) Clear() {
	b.clear()
	clear(b.values)
}

func (b *SingleBoard[T]) pointer(row Row) unsafe.Pointer {
	return unsafe.Pointer(b.Read(row))
}

// BufferBoard stores a growable []T per row.
type BufferBoard[T any] struct {
	refColumns
	buffers [][]T
}

// NewBufferBoard creates a buffer board.
func NewBufferBoard[T any](initialCapacity int) *BufferBoard[T] {
	b := &BufferBoard[T]{refColumns: newRefColumns(initialCapacity)}
	b.bind()
	b.rows.OnGrow(func(capacity int) {
		b.buffers = growColumn(b.buffers, capacity)
	})
	return b
}

func (b *BufferBoard[T]) Kind() BoardKind        { return BoardBuffer }
func (b *BufferBoard[T]) ElemType() reflect.Type { return reflect.TypeFor[T]() }

func (b *BufferBoard[T]) CreateRow() Row {
	return b.rows.CreateRow()
}

// DeleteRow releases the row and truncates its buffer, keeping the backing
// array for reuse.
func (b *BufferBoard[T]) DeleteRow(row Row) bool {
	if !b.rows.Alive(row) {
		return false
	}
	clear(b.buffers[row])
	b.buffers[row] = b.buffers[row][:0]
	return b.release(row)
}

// Append adds values to the end of the row's buffer.
func (b *BufferBoard[T]) Append(row Row, values ...T) {
	row = b.check(row)
	b.buffers[row] = append(b.buffers[row], values...)
}

// At returns a pointer to the i-th element of the row's buffer.
func (b *BufferBoard[T]) At(row Row, i int) *T {
	return &b.buffers[b.check(row)][i]
}

// Len returns the length of the row's buffer.
func (b *BufferBoard[T]) Len(row Row) int {
	return len(b.buffers[b.check(row)])
}

// Values returns the row's buffer. The slice aliases board storage.
func (b *BufferBoard[T]) Values(row Row) []T {
	return b.buffers[b.check(row)]
}

// Truncate shortens the row's buffer to n elements.
func (b *BufferBoard[T]) Truncate(row Row, n int) {
	row = b.check(row)
	buf := b.buffers[row]
	clear(buf[n:])
	b.buffers[row] = buf[:n]
}

// Buffer returns a pointer to the row's slice header.
func (b *BufferBoard[T]) Buffer(row Row) *[]T {
	return &b.buffers[b.check(row)]
}

func (b *BufferBoard[T]) Clear() {
	b.clear()
	clear(b.buffers)
}

func (b *BufferBoard[T]) pointer(row Row) unsafe.Pointer {
	return unsafe.Pointer(b.Buffer(row))
}

// tagRow is the single row every tag board hands out.
const tagRow Row = 1

// TagBoard backs zero-size component types. It owns a single row that every
// entity points at, so reads never allocate and carry no payload.
type TagBoard[T any] struct {
	rows  *RowTable
	value T
}

// NewTagBoard creates a tag board.
func NewTagBoard[T any]() *TagBoard[T] {
	b := &TagBoard[T]{rows: NewRowTable(1)}
	b.rows.CreateRow()
	return b
}

func (b *TagBoard[T]) Kind() BoardKind                 { return BoardTag }
func (b *TagBoard[T]) ElemType() reflect.Type          { return reflect.TypeFor[T]() }
func (b *TagBoard[T]) Rows() *RowTable                 { return b.rows }
func (b *TagBoard[T]) CreateRow() Row                  { return tagRow }
func (b *TagBoard[T]) DeleteRow(Row) bool              { return false }
func (b *TagBoard[T]) Alive(row Row) bool              { return row == tagRow }
func (b *TagBoard[T]) Owner(Row) Entity                { return InvalidEntity }
func (b *TagBoard[T]) SetOwner(Row, Entity)            {}
func (b *TagBoard[T]) AddReference(Row, Entity)        {}
func (b *TagBoard[T]) RemoveReference(Row, Entity) int { return 0 }
func (b *TagBoard[T]) References(Row) []Entity         { return nil }
func (b *TagBoard[T]) Clear()                          {}
func (b *TagBoard[T]) pointer(Row) unsafe.Pointer      { return unsafe.Pointer(&b.value) }

// Read returns the shared default instance.
func (b *TagBoard[T]) Read(Row) *T {
	return &b.value
}

// ExternalBoard exposes values owned by an external data source. Entities can
// reference its rows but the store never creates or deletes them.
type ExternalBoard[T any] struct {
	rows   *RowTable
	values []T
}

// NewExternalBoard creates a read-only board seeded with values. Row i+1 holds
// values[i].
func NewExternalBoard[T any](values []T) *ExternalBoard[T] {
	b := &ExternalBoard[T]{rows: NewRowTable(len(values))}
	b.Publish(values)
	return b
}

func (b *ExternalBoard[T]) Kind() BoardKind                 { return BoardReadOnly }
func (b *ExternalBoard[T]) ElemType() reflect.Type          { return reflect.TypeFor[T]() }
func (b *ExternalBoard[T]) Rows() *RowTable                 { return b.rows }
func (b *ExternalBoard[T]) Alive(row Row) bool              { return b.rows.Alive(row) }
func (b *ExternalBoard[T]) Owner(Row) Entity                { return InvalidEntity }
func (b *ExternalBoard[T]) SetOwner(Row, Entity)            {}
func (b *ExternalBoard[T]) AddReference(Row, Entity)        {}
func (b *ExternalBoard[T]) RemoveReference(Row, Entity) int { return 0 }
func (b *ExternalBoard[T]) References(Row) []Entity         { return nil }

func (b *ExternalBoard[T]) CreateRow() Row {
	panic(eris.Wrapf(ErrBoardReadOnly, "create row on %s", b.ElemType()))
}

func (b *ExternalBoard[T]) DeleteRow(row Row) bool {
	panic(eris.Wrapf(ErrBoardReadOnly, "delete row %d on %s", row, b.ElemType()))
}

func (b *ExternalBoard[T]) Clear() {
	panic(eris.Wrapf(ErrBoardReadOnly, "clear %s", b.ElemType()))
}

// Publish replaces the board contents. Entities holding rows beyond the new
// length must be reassigned by the publisher.
func (b *ExternalBoard[T]) Publish(values []T) {
	b.rows.Clear()
	b.rows.CreateRowBulk(len(values))
	b.values = make([]T, len(values)+1)
	copy(b.values[1:], values)
}

// Read returns a pointer to the row's value.
func (b *ExternalBoard[T]) Read(row Row) *T {
	if !b.rows.Alive(row) {
		panic(eris.Wrapf(ErrInvalidComponentRow, "row %d", row))
	}
	return &b.values[row]
}

func (b *ExternalBoard[T]) pointer(row Row) unsafe.Pointer {
	return unsafe.Pointer(b.Read(row))
}
