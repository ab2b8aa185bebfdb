package instr

import (
	"fmt"
	"unsafe"

	"github.com/tensorlane/tensorlane/internal/layout"
)

// OperandKind discriminates the active variant of an Operand.
type OperandKind int64

const (
	// OperandNone is the zero operand; no variant is active.
	OperandNone OperandKind = iota

	// OperandInt64 carries a plain integer (sizes, counts, object ids).
	OperandInt64

	// OperandSymbol names an object in the run environment.
	OperandSymbol

	// OperandMirrored names a per-device-replicated object. Storage-wise
	// identical to a symbol; kernels resolve it against the device the
	// worker executes on.
	OperandMirrored
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandInt64:
		return "int64"
	case OperandSymbol:
		return "symbol"
	case OperandMirrored:
		return "mirrored"
	default:
		return fmt.Sprintf("OperandKind(%d)", int64(k))
	}
}

// Operand is a discriminated operand payload. Exactly the variant selected
// by Kind is meaningful; the layout registration below declares the
// variants so generic walks dispatch on Kind.
type Operand struct {
	Kind     OperandKind
	Int64    int64
	Symbol   string
	Mirrored string
}

// OperandLayout is the verified layout of Operand, including its variant
// table. Registered at init; a mismatch with the compiled layout panics
// before any instruction can be built.
var OperandLayout = layout.Register[Operand](
	layout.F("Kind"),
	layout.Case("Int64", "Kind", int64(OperandInt64)),
	layout.Case("Symbol", "Kind", int64(OperandSymbol)),
	layout.Case("Mirrored", "Kind", int64(OperandMirrored)),
)

// Int64Operand builds an integer operand.
func Int64Operand(n int64) Operand {
	return Operand{Kind: OperandInt64, Int64: n}
}

// SymbolOperand builds a symbol operand naming a run-environment object.
func SymbolOperand(name string) Operand {
	return Operand{Kind: OperandSymbol, Symbol: name}
}

// MirroredOperand builds a mirrored-symbol operand.
func MirroredOperand(name string) Operand {
	return Operand{Kind: OperandMirrored, Mirrored: name}
}

// Value returns the active variant's value via layout dispatch: the walk
// visits the discriminator plus exactly the variant Kind selects.
func (o Operand) Value() any {
	var v any
	OperandLayout.Walk(&o, func(f *layout.Field, p unsafe.Pointer) {
		switch f.Name {
		case "Int64":
			v = *layout.As[int64](p)
		case "Symbol", "Mirrored":
			v = *layout.As[string](p)
		}
	})
	return v
}

func (o Operand) String() string {
	if o.Kind == OperandNone {
		return "none"
	}
	return fmt.Sprintf("%s:%v", o.Kind, o.Value())
}
