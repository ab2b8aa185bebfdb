package layout

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindInt int64 = iota + 1
	kindStr
)

type variant struct {
	Kind int64
	Num  int64
	Str  string
}

func variantSpec() *Spec {
	return Register[variant](
		F("Kind"),
		Case("Num", "Kind", kindInt),
		Case("Str", "Kind", kindStr),
	)
}

func TestTaggedDispatch_ExactlyOneVariantPerWalk(t *testing.T) {
	s := variantSpec()
	v := variant{Kind: kindInt, Num: 7, Str: "ignored"}

	var visited []string
	s.Walk(&v, func(f *Field, _ unsafe.Pointer) { visited = append(visited, f.Name) })

	// Discriminator plus the single active variant.
	assert.Equal(t, []string{"Kind", "Num"}, visited)
}

func TestTaggedDispatch_FollowsDiscriminator(t *testing.T) {
	s := variantSpec()
	v := variant{Kind: kindStr, Str: "live"}

	var got string
	s.Walk(&v, func(f *Field, p unsafe.Pointer) {
		if f.Name == "Str" {
			got = *As[string](p)
		}
		assert.NotEqual(t, "Num", f.Name, "inactive variant must not be visited")
	})
	assert.Equal(t, "live", got)

	// Flipping the discriminator flips the dispatched variant but the
	// declared field count is unchanged.
	v.Kind = kindInt
	v.Num = 3
	var names []string
	s.Walk(&v, func(f *Field, _ unsafe.Pointer) { names = append(names, f.Name) })
	assert.Equal(t, []string{"Kind", "Num"}, names)
	assert.Equal(t, 3, s.FieldCount())
}

func TestTaggedDispatch_NoMatchVisitsNoVariant(t *testing.T) {
	s := variantSpec()
	v := variant{Kind: 99}

	var visited []string
	s.Walk(&v, func(f *Field, _ unsafe.Pointer) { visited = append(visited, f.Name) })
	assert.Equal(t, []string{"Kind"}, visited)
}

func TestTaggedDispatch_ReverseWalkDispatchesToo(t *testing.T) {
	s := variantSpec()
	v := variant{Kind: kindStr, Str: "x"}

	var visited []string
	s.ReverseWalk(&v, func(f *Field, _ unsafe.Pointer) { visited = append(visited, f.Name) })
	assert.Equal(t, []string{"Str", "Kind"}, visited)
}

type indirect struct {
	Inline int64
	Boxed  *int64
}

func TestIndirect_TransparentDereference(t *testing.T) {
	s := Register[indirect](F("Inline"), Ptr("Boxed"))

	n := int64(10)
	v := indirect{Inline: 5, Boxed: &n}

	var sum int64
	s.Walk(&v, func(f *Field, p unsafe.Pointer) {
		// Same read path for both storage kinds.
		sum += *As[int64](p)
	})
	assert.Equal(t, int64(15), sum)

	// Mutation through the resolved pointer reaches the boxed value.
	f, ok := s.FieldByName("Boxed")
	require.True(t, ok)
	*As[int64](s.FieldPointer(&v, f)) = 99
	assert.Equal(t, int64(99), n)
}

func TestIndirect_NilTargetYieldsNilPointer(t *testing.T) {
	s := Register[indirect](F("Inline"), Ptr("Boxed"))
	v := indirect{Inline: 1}

	s.Walk(&v, func(f *Field, p unsafe.Pointer) {
		if f.Name == "Boxed" {
			assert.Nil(t, p)
		}
	})
}
