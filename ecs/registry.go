package ecs

import (
	"iter"
	"reflect"

	"github.com/rotisserie/eris"
)

// ComponentTypeInfo describes a registered component type.
type ComponentTypeInfo struct {
	ID     ComponentType
	Name   string
	Size   uintptr
	GoType reflect.Type
	Kind   BoardKind
	Parent ComponentType
}

// ComponentTypeRegistry is a board of component type metadata. Each World owns
// its own registry, so several independent stores can coexist.
type ComponentTypeRegistry struct {
	rows    *RowTable
	names   []string
	sizes   []uintptr
	goTypes []reflect.Type
	boards  []ComponentBoard
	parents []ComponentType
	byName  map[string]ComponentType
	byType  map[reflect.Type]ComponentType
}

// NewComponentTypeRegistry creates an empty registry.
func NewComponentTypeRegistry() *ComponentTypeRegistry {
	r := &ComponentTypeRegistry{
		rows:   NewRowTable(16),
		byName: make(map[string]ComponentType),
		byType: make(map[reflect.Type]ComponentType),
	}
	r.rows.OnGrow(func(capacity int) {
		r.names = growColumn(r.names, capacity)
		r.sizes = growColumn(r.sizes, capacity)
		r.goTypes = growColumn(r.goTypes, capacity)
		r.boards = growColumn(r.boards, capacity)
		r.parents = growColumn(r.parents, capacity)
	})
	return r
}

// Register interns a component type. Both the name and the go type must be
// unused in this registry.
func (r *ComponentTypeRegistry) Register(name string, goType reflect.Type, board ComponentBoard, parent ComponentType) (ComponentType, error) {
	if _, exists := r.byName[name]; exists {
		return 0, eris.Wrapf(ErrDuplicateComponent, "name %q", name)
	}
	if _, exists := r.byType[goType]; exists {
		return 0, eris.Wrapf(ErrDuplicateComponent, "type %s", goType)
	}
	if parent != 0 && !r.rows.Alive(Row(parent)) {
		return 0, eris.Wrapf(ErrInvalidComponentType, "parent %d of %q", parent, name)
	}

	ct := ComponentType(r.rows.CreateRow())
	r.names[ct] = name
	r.sizes[ct] = board.ElemType().Size()
	r.goTypes[ct] = goType
	r.boards[ct] = board
	r.parents[ct] = parent
	r.byName[name] = ct
	r.byType[goType] = ct
	return ct, nil
}

// Info returns the metadata of ct.
func (r *ComponentTypeRegistry) Info(ct ComponentType) ComponentTypeInfo {
	r.check(ct)
	return ComponentTypeInfo{
		ID:     ct,
		Name:   r.names[ct],
		Size:   r.sizes[ct],
		GoType: r.goTypes[ct],
		Kind:   r.boards[ct].Kind(),
		Parent: r.parents[ct],
	}
}

// Board returns the board backing ct.
func (r *ComponentTypeRegistry) Board(ct ComponentType) ComponentBoard {
	return r.boards[r.check(ct)]
}

// Lookup finds a component type by name.
func (r *ComponentTypeRegistry) Lookup(name string) (ComponentType, bool) {
	ct, ok := r.byName[name]
	return ct, ok
}

// LookupGoType finds a component type by its registration key.
func (r *ComponentTypeRegistry) LookupGoType(t reflect.Type) (ComponentType, bool) {
	ct, ok := r.byType[t]
	return ct, ok
}

// Contains reports whether ct was issued by this registry.
func (r *ComponentTypeRegistry) Contains(ct ComponentType) bool {
	return r.rows.Alive(Row(ct))
}

// Count returns the number of registered types.
func (r *ComponentTypeRegistry) Count() int {
	return r.rows.Count()
}

// All iterates registered types in ascending id order.
func (r *ComponentTypeRegistry) All() iter.Seq[ComponentType] {
	return func(yield func(ComponentType) bool) {
		for row := range r.rows.Rows() {
			if !yield(ComponentType(row)) {
				return
			}
		}
	}
}

// Children returns the sub-components registered with parent.
func (r *ComponentTypeRegistry) Children(parent ComponentType) []ComponentType {
	r.check(parent)
	var children []ComponentType
	for ct := range r.All() {
		if r.parents[ct] == parent {
			children = append(children, ct)
		}
	}
	return children
}

func (r *ComponentTypeRegistry) check(ct ComponentType) ComponentType {
	if !r.rows.Alive(Row(ct)) {
		panic(eris.Wrapf(ErrInvalidComponentType, "component type %d", ct))
	}
	return ct
}

// TypeOption customises a component type at registration.
type TypeOption func(*typeConfig)

type typeConfig struct {
	name   string
	parent ComponentType
}

// WithName overrides the default name, which is the go type's string form.
func WithName(name string) TypeOption {
	return func(c *typeConfig) {
		c.name = name
	}
}

// WithParent registers the type as a sub-component of parent.
func WithParent(parent ComponentType) TypeOption {
	return func(c *typeConfig) {
		c.parent = parent
	}
}

// RegisterComponent registers T with a single-value board, or a tag board if
// T has zero size.
func RegisterComponent[T any](w *World, opts ...TypeOption) (ComponentType, error) {
	var board ComponentBoard
	if reflect.TypeFor[T]().Size() == 0 {
		board = NewTagBoard[T]()
	} else {
		board = NewSingleBoard[T](w.config.initialCapacity)
	}
	return w.registerBoard(reflect.TypeFor[T](), board, opts)
}

// MustRegisterComponent is RegisterComponent that panics on error.
func MustRegisterComponent[T any](w *World, opts ...TypeOption) ComponentType {
	ct, err := RegisterComponent[T](w, opts...)
	if err != nil {
		panic(err)
	}
	return ct
}

// RegisterBuffer registers a component type holding a growable []T per entity.
func RegisterBuffer[T any](w *World, opts ...TypeOption) (ComponentType, error) {
	return w.registerBoard(reflect.TypeFor[[]T](), NewBufferBoard[T](w.config.initialCapacity), opts)
}

// RegisterExternal registers T backed by a read-only board filled elsewhere.
func RegisterExternal[T any](w *World, board *ExternalBoard[T], opts ...TypeOption) (ComponentType, error) {
	return w.registerBoard(reflect.TypeFor[T](), board, opts)
}

// TypeOf returns the component type registered for T. It panics if T is not
// registered.
func TypeOf[T any](w *World) ComponentType {
	ct, ok := w.types.LookupGoType(reflect.TypeFor[T]())
	if !ok {
		panic(eris.Wrapf(ErrInvalidComponentType, "%s not registered", reflect.TypeFor[T]()))
	}
	return ct
}

// BufferTypeOf returns the component type registered with RegisterBuffer[T].
func BufferTypeOf[T any](w *World) ComponentType {
	return TypeOf[[]T](w)
}
