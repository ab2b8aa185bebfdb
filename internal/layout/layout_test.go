package layout

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plain struct {
	A int64
	B int32
	C bool
	D string
}

func TestRegister_VerifiesAgainstCompilerLayout(t *testing.T) {
	s := Register[plain](F("A"), F("B"), F("C"), F("D"))

	require.Equal(t, 4, s.FieldCount())

	typ := reflect.TypeOf(plain{})
	for i := 0; i < s.FieldCount(); i++ {
		f := s.FieldAt(i)
		sf := typ.Field(i)
		assert.Equal(t, sf.Name, f.Name)
		assert.Equal(t, sf.Offset, f.Offset, "offset of %s", f.Name)
		assert.Equal(t, sf.Type.Size(), f.Size, "size of %s", f.Name)
		assert.Equal(t, uintptr(sf.Type.Align()), f.Align, "align of %s", f.Name)
	}
}

func TestRegister_AccumulatedSizeEqualsStructSize(t *testing.T) {
	s := Register[plain](F("A"), F("B"), F("C"), F("D"))

	var acc uintptr
	for i := 0; i < s.FieldCount(); i++ {
		f := s.FieldAt(i)
		acc = (acc + f.Align - 1) / f.Align * f.Align
		acc += f.Size
	}
	align := uintptr(reflect.TypeOf(plain{}).Align())
	acc = (acc + align - 1) / align * align
	assert.Equal(t, reflect.TypeOf(plain{}).Size(), acc)
}

func TestRegister_PanicsOnMisdeclaration(t *testing.T) {
	tests := []struct {
		name  string
		decls []Decl
	}{
		{"missing field", []Decl{F("A"), F("B"), F("C")}},
		{"wrong order", []Decl{F("B"), F("A"), F("C"), F("D")}},
		{"unknown name", []Decl{F("A"), F("B"), F("C"), F("X")}},
		{"indirect on value field", []Decl{Ptr("A"), F("B"), F("C"), F("D")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { Register[plain](tt.decls...) })
		})
	}
}

func TestRegister_PanicsOnBadDiscriminator(t *testing.T) {
	type tagged struct {
		Kind  int32
		Value int64
	}
	assert.Panics(t, func() {
		// Discriminator must be declared before the variant.
		Register[tagged](Case("Kind", "Value", 1), F("Value"))
	})

	type strTag struct {
		Kind  string
		Value int64
	}
	assert.Panics(t, func() {
		Register[strTag](F("Kind"), Case("Value", "Kind", 1))
	})
}

func TestRegister_NonStructPanics(t *testing.T) {
	assert.Panics(t, func() { Register[int]() })
}

func TestFieldByName(t *testing.T) {
	s := Register[plain](F("A"), F("B"), F("C"), F("D"))

	f, ok := s.FieldByName("C")
	require.True(t, ok)
	assert.Equal(t, 2, f.Index)

	_, ok = s.FieldByName("nope")
	assert.False(t, ok)
}

func TestWalk_ForwardThenReverseMirror(t *testing.T) {
	s := Register[plain](F("A"), F("B"), F("C"), F("D"))
	v := plain{A: 1, B: 2, C: true, D: "d"}

	var forward, reverse []string
	s.Walk(&v, func(f *Field, _ unsafe.Pointer) { forward = append(forward, f.Name) })
	s.ReverseWalk(&v, func(f *Field, _ unsafe.Pointer) { reverse = append(reverse, f.Name) })

	require.Equal(t, []string{"A", "B", "C", "D"}, forward)
	require.Len(t, reverse, len(forward))
	for i, name := range forward {
		assert.Equal(t, name, reverse[len(reverse)-1-i])
	}
}

func TestWalk_TypedAccessAndMutation(t *testing.T) {
	s := Register[plain](F("A"), F("B"), F("C"), F("D"))
	v := plain{A: 41, D: "before"}

	s.Walk(&v, func(f *Field, p unsafe.Pointer) {
		switch f.Name {
		case "A":
			*As[int64](p)++
		case "D":
			*As[string](p) = "after"
		}
	})

	assert.Equal(t, int64(42), v.A)
	assert.Equal(t, "after", v.D)
}

func TestWalk_WrongTypePanics(t *testing.T) {
	s := Register[plain](F("A"), F("B"), F("C"), F("D"))

	assert.Panics(t, func() { s.Walk(&struct{ X int }{}, func(*Field, unsafe.Pointer) {}) })
	assert.Panics(t, func() { s.Walk((*plain)(nil), func(*Field, unsafe.Pointer) {}) })
}
