package instr

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"

	"github.com/tensorlane/tensorlane/internal/layout"
)

// Instruction is the unit of scheduled work. It is created with one
// reference; ownership moves between creator, list, and worker rather than
// being copied. When the last reference is released the object is torn
// down exactly once, fields cleared in reverse declaration order.
type Instruction struct {
	typeID   TypeID
	id       string
	label    string
	operands []Operand
	deps     []string
	link     listLink
	refs     atomic.Int32
}

// InstructionLayout is the verified layout of Instruction. The declaration
// covers every field in order; registration panics at startup otherwise.
var InstructionLayout = layout.Register[Instruction](
	layout.F("typeID"),
	layout.F("id"),
	layout.F("label"),
	layout.F("operands"),
	layout.F("deps"),
	layout.F("link"),
	layout.F("refs"),
)

// Wire is the parsed wire-descriptor form of one instruction entry.
// Label names the entry so later entries can depend on it; it is distinct
// from the generated instruction ID.
type Wire struct {
	Op        string
	Label     string
	Routing   RoutingClass
	Operands  []Operand
	DependsOn []string
}

// New constructs an instruction from an operator name. The caller owns the
// single initial reference.
func New(name string, class RoutingClass, operands ...Operand) *Instruction {
	in := &Instruction{
		typeID:   NewTypeID(name, class),
		id:       uuid.NewString(),
		operands: operands,
	}
	in.refs.Store(1)
	return in
}

// FromWire constructs an instruction from a parsed wire entry.
func FromWire(w Wire) (*Instruction, error) {
	if w.Op == "" {
		return nil, fmt.Errorf("instruction entry missing operator name")
	}
	in := New(w.Op, w.Routing, w.Operands...)
	in.label = w.Label
	in.deps = append([]string(nil), w.DependsOn...)
	return in, nil
}

// Label returns the wire-level name other instructions depend on, empty
// when the entry was unlabeled.
func (in *Instruction) Label() string { return in.label }

// TypeID returns the operator identity, routing class included.
func (in *Instruction) TypeID() TypeID { return in.typeID }

// ID returns the instruction's unique identity.
func (in *Instruction) ID() string { return in.id }

// Operands returns the operand payload. The slice is owned by the
// instruction; callers must not mutate it.
func (in *Instruction) Operands() []Operand { return in.operands }

// DependsOn returns the instruction IDs this one waits on.
func (in *Instruction) DependsOn() []string { return in.deps }

// InList reports whether the instruction currently belongs to a list.
func (in *Instruction) InList() bool { return in.link.owner != nil }

// Retain adds a reference. Two holders of the same instruction share
// identity; neither may outlive the final Release.
func (in *Instruction) Retain() {
	if in.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("instr: retain of released instruction %s", in.id))
	}
}

// Release drops a reference. At zero the instruction is torn down exactly
// once; releasing again, or releasing while still listed, is a bug and
// panics.
func (in *Instruction) Release() {
	n := in.refs.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("instr: double release of instruction %s", in.id))
	}
	if n > 0 {
		return
	}
	if in.InList() {
		panic(fmt.Sprintf("instr: instruction %s released while listed", in.id))
	}
	in.teardown()
}

// teardown clears fields in reverse declaration order through the layout
// walk, mirroring construction order the way the wire objects were built.
func (in *Instruction) teardown() {
	InstructionLayout.ReverseWalk(in, func(f *layout.Field, p unsafe.Pointer) {
		reflect.NewAt(f.Type(), p).Elem().SetZero()
	})
}

func (in *Instruction) String() string {
	return fmt.Sprintf("%s#%s", in.typeID, shortID(in.id))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
