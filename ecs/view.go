package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

type viewField struct {
	offset   uintptr
	ct       ComponentType
	board    ComponentBoard
	optional bool
}

// View fills a struct of component pointers for matching entities. T must be
// a struct whose fields are pointers to registered component types; buffer
// components are requested as *[]E. Named fields may be tagged
// `ecs:"optional"` to allow a nil pointer when the entity lacks the type, or
// `ecs:"exclude"` to skip entities that hold it. Embedded fields are always
// required.
type View[T any] struct {
	world  *World
	query  *Query
	fields []viewField
	filter Filter
}

// NewView builds a view over w.
func NewView[T any](w *World) *View[T] {
	v := &View[T]{}
	v.Init(w)
	return v
}

// Init binds the view to w. The scheduler calls it for View fields of
// registered systems.
func (v *View[T]) Init(w *World) {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic(eris.Errorf("view type %s must be a struct", structType))
	}

	v.world = w
	v.fields = v.fields[:0]
	var filter Filter
	for i := range structType.NumField() {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Pointer {
			panic(eris.Errorf("view field %s.%s must be a pointer", structType, field.Name))
		}
		ct, ok := w.types.LookupGoType(field.Type.Elem())
		if !ok {
			panic(eris.Wrapf(ErrInvalidComponentType, "view field %s.%s: %s not registered", structType, field.Name, field.Type.Elem()))
		}

		tag := ""
		if !field.Anonymous {
			tag = field.Tag.Get("ecs")
		}
		switch tag {
		case "":
			filter.All = append(filter.All, ct)
		case "optional":
		case "exclude":
			filter.None = append(filter.None, ct)
			continue
		default:
			panic(eris.Errorf("invalid ecs tag %q on %s.%s", tag, structType, field.Name))
		}
		v.fields = append(v.fields, viewField{
			offset:   field.Offset,
			ct:       ct,
			board:    w.types.Board(ct),
			optional: tag == "optional",
		})
	}
	v.query = NewQuery(w, filter)
	v.filter = v.query.Filter()
}

// Query returns the query selecting the view's archetypes.
func (v *View[T]) Query() *Query {
	return v.query
}

// Filter returns the filter derived from T.
func (v *View[T]) Filter() Filter {
	return v.filter
}

// Fill points the fields of out at e's components, following shares. It
// returns false if e lacks a required component or holds an excluded one.
func (v *View[T]) Fill(e Entity, out *T) bool {
	w := v.world
	if !w.entities.Alive(e) {
		return false
	}
	for _, ct := range v.filter.None {
		if _, ok := w.resolve(e, ct); ok {
			return false
		}
	}
	base := unsafe.Pointer(out)
	for _, f := range v.fields {
		dst := (*unsafe.Pointer)(unsafe.Add(base, f.offset))
		row, ok := w.resolve(e, f.ct)
		if !ok {
			if !f.optional {
				return false
			}
			*dst = nil
			continue
		}
		*dst = f.board.pointer(row)
	}
	return true
}

// Get returns a filled struct for e, or nil if e does not match.
func (v *View[T]) Get(e Entity) *T {
	var result T
	if !v.Fill(e, &result) {
		return nil
	}
	return &result
}

// All iterates every matching entity with its filled struct.
func (v *View[T]) All() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		var item T
		for e := range v.query.Entities() {
			if !v.Fill(e, &item) {
				continue
			}
			if !yield(e, item) {
				return
			}
		}
	}
}

// Iter iterates filled structs of matching entities.
func (v *View[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range v.All() {
			if !yield(item) {
				return
			}
		}
	}
}

// Members fills and yields the structs for a member list handed out by
// RunQuery or Query.Chunks.
func (v *View[T]) Members(members []Entity) iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		var item T
		for _, e := range members {
			if !v.Fill(e, &item) {
				continue
			}
			if !yield(e, item) {
				return
			}
		}
	}
}
