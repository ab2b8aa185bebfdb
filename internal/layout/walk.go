package layout

import (
	"fmt"
	"reflect"
	"unsafe"
)

// VisitFunc receives one field per invocation: its verified descriptor and
// a pointer to the field's value. For Indirect fields the pointer is the
// dereferenced target, which may be nil when the field itself is nil.
type VisitFunc func(f *Field, p unsafe.Pointer)

// Walk visits the declared fields of v in declaration order.
//
// v must be a non-nil pointer to the registered struct type. Discriminated
// variant fields are visited only when their discriminator currently holds
// the declared tag value, so each walk sees exactly one variant per
// discriminator regardless of how many are declared.
func (s *Spec) Walk(v any, visit VisitFunc) {
	base := s.pointerTo(v)
	for i := range s.fields {
		s.visitField(&s.fields[i], base, visit)
	}
}

// ReverseWalk visits the declared fields of v in reverse declaration
// order. It mirrors Walk exactly, including variant dispatch.
func (s *Spec) ReverseWalk(v any, visit VisitFunc) {
	base := s.pointerTo(v)
	for i := len(s.fields) - 1; i >= 0; i-- {
		s.visitField(&s.fields[i], base, visit)
	}
}

func (s *Spec) visitField(f *Field, base unsafe.Pointer, visit VisitFunc) {
	if f.Tagged && f.tag.readInt(base) != f.TagValue {
		return
	}
	visit(f, f.resolve(base))
}

// FieldPointer returns the address of f's value within the struct v,
// resolving one level of indirection for Indirect fields. Callers do not
// need to know which storage kind the field declared.
func (s *Spec) FieldPointer(v any, f *Field) unsafe.Pointer {
	return f.resolve(s.pointerTo(v))
}

func (f *Field) resolve(base unsafe.Pointer) unsafe.Pointer {
	p := unsafe.Add(base, f.Offset)
	if f.Storage == Indirect {
		return *(*unsafe.Pointer)(p)
	}
	return p
}

// readInt reads the discriminator's current value.
func (f *Field) readInt(base unsafe.Pointer) int64 {
	return reflect.NewAt(f.typ, unsafe.Add(base, f.Offset)).Elem().Int()
}

// pointerTo checks that v is a non-nil *T for the registered type and
// returns its address. A wrong type is a caller bug and panics.
func (s *Spec) pointerTo(v any) unsafe.Pointer {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != s.typ {
		panic(fmt.Sprintf("layout: walk of %T, registered type is *%v", v, s.typ))
	}
	if rv.IsNil() {
		panic(fmt.Sprintf("layout: walk of nil *%v", s.typ))
	}
	return unsafe.Pointer(rv.Pointer())
}

// As reinterprets a visited field pointer as *T. T must match the field's
// declared type; this is the typed counterpart of VisitFunc's raw pointer.
func As[T any](p unsafe.Pointer) *T {
	return (*T)(p)
}
