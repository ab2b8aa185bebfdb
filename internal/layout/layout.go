package layout

import (
	"fmt"
	"reflect"
)

// StorageKind describes how a field's value is stored.
type StorageKind uint8

const (
	// Inline fields hold their value directly in the struct.
	Inline StorageKind = iota

	// Indirect fields hold a pointer; visitation and accessors resolve
	// one level of indirection so callers never special-case them.
	Indirect
)

func (k StorageKind) String() string {
	switch k {
	case Inline:
		return "inline"
	case Indirect:
		return "indirect"
	default:
		return fmt.Sprintf("StorageKind(%d)", uint8(k))
	}
}

// Decl declares one struct field for registration.
// Declarations must cover every field of the struct, in declaration order.
type Decl struct {
	Name    string
	Storage StorageKind

	// TagField/TagValue mark this declaration as a discriminated variant:
	// the field is visited only while the named sibling discriminator field
	// currently holds TagValue.
	TagField string
	TagValue int64
}

// F declares an inline field.
func F(name string) Decl {
	return Decl{Name: name, Storage: Inline}
}

// Ptr declares an indirect field. The struct field must be a pointer;
// accessors dereference it on read.
func Ptr(name string) Decl {
	return Decl{Name: name, Storage: Indirect}
}

// Case declares a discriminated variant field. The field participates in
// layout verification like any other field, but visitation dispatches on
// the sibling discriminator: the field is visited iff tagField == tagValue.
func Case(name, tagField string, tagValue int64) Decl {
	return Decl{Name: name, Storage: Inline, TagField: tagField, TagValue: tagValue}
}

// Field is the verified descriptor of one declared field.
type Field struct {
	Name    string
	Index   int
	Offset  uintptr
	Size    uintptr
	Align   uintptr
	Storage StorageKind

	// Tagged is true for discriminated variant fields.
	Tagged   bool
	TagValue int64

	tag *Field // discriminator descriptor, nil unless Tagged
	typ reflect.Type
}

// Type returns the field's declared Go type.
func (f *Field) Type() reflect.Type { return f.typ }

// Spec is the verified layout of one registered struct type.
type Spec struct {
	typ    reflect.Type
	fields []Field
	byName map[string]int
}

// Register verifies the declared field sequence of T against the
// compiler-computed layout and returns the resulting Spec.
//
// Verification panics (never returns an error) on:
//   - a declaration list that does not name every field, in order
//   - a declared offset that disagrees with the accumulated aligned size
//     of the fields before it
//   - an accumulated size that, rounded to the struct's alignment, does
//     not equal the struct's actual size
//   - an Indirect declaration on a non-pointer field
//   - a Case declaration whose discriminator is not an earlier signed
//     integer field
//
// Call Register from package init so violations abort at startup.
func Register[T any](decls ...Decl) *Spec {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("layout: %v is not a struct", typ))
	}

	if len(decls) != typ.NumField() {
		panic(fmt.Sprintf("layout: %v has %d fields but %d were declared",
			typ, typ.NumField(), len(decls)))
	}

	s := &Spec{
		typ:    typ,
		fields: make([]Field, len(decls)),
		byName: make(map[string]int, len(decls)),
	}

	var acc uintptr // accumulated aligned size of fields seen so far
	for i, d := range decls {
		sf := typ.Field(i)
		if sf.Name != d.Name {
			panic(fmt.Sprintf("layout: %v field %d is %q, declared as %q",
				typ, i, sf.Name, d.Name))
		}
		if d.Storage == Indirect && sf.Type.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("layout: %v.%s declared indirect but is %v",
				typ, sf.Name, sf.Type))
		}

		f := Field{
			Name:    sf.Name,
			Index:   i,
			Offset:  sf.Offset,
			Size:    sf.Type.Size(),
			Align:   uintptr(sf.Type.Align()),
			Storage: d.Storage,
			typ:     sf.Type,
		}

		// The accumulated aligned size must land exactly on the offset the
		// compiler chose. This is the structural integrity check: it fails
		// when a declaration skips a field or misorders the sequence.
		acc = roundUp(acc, f.Align)
		if acc != f.Offset {
			panic(fmt.Sprintf(
				"layout: %v.%s declared at accumulated offset %d, compiler placed it at %d",
				typ, sf.Name, acc, f.Offset))
		}
		acc += f.Size

		if d.TagField != "" {
			ti, ok := s.byName[d.TagField]
			if !ok {
				panic(fmt.Sprintf("layout: %v.%s tagged by %q, which is not an earlier field",
					typ, sf.Name, d.TagField))
			}
			tag := &s.fields[ti]
			switch tag.typ.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			default:
				panic(fmt.Sprintf("layout: %v.%s discriminator %q must be a signed integer, is %v",
					typ, sf.Name, d.TagField, tag.typ))
			}
			f.Tagged = true
			f.TagValue = d.TagValue
			f.tag = tag
		}

		s.fields[i] = f
		s.byName[sf.Name] = i
	}

	if got := roundUp(acc, uintptr(typ.Align())); got != typ.Size() {
		panic(fmt.Sprintf("layout: %v declared fields sum to %d bytes, struct is %d",
			typ, got, typ.Size()))
	}

	return s
}

// Type returns the registered struct type.
func (s *Spec) Type() reflect.Type { return s.typ }

// FieldCount returns the total number of declared fields, independent of
// any discriminator's current value.
func (s *Spec) FieldCount() int { return len(s.fields) }

// FieldAt returns the descriptor at the given declaration index.
func (s *Spec) FieldAt(i int) *Field { return &s.fields[i] }

// FieldByName returns the descriptor for the named field.
func (s *Spec) FieldByName(name string) (*Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.fields[i], true
}

func roundUp(n, align uintptr) uintptr {
	return (n + align - 1) / align * align
}
