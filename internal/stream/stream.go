// Package stream parses the textual instruction-list descriptor into wire
// instruction entries and tensor object declarations.
//
// The descriptor is a CUE document validated against an embedded schema;
// anything the schema rejects surfaces as a *ParseError, never a crash.
package stream

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/tensor"
)

// schema constrains instruction descriptors. Routing is closed over the
// two recognized tags at the schema level, so an unroutable instruction
// cannot survive parsing. #Int64 exists because a bare int64 reference
// inside #Operand would resolve to the sibling field label of the same
// name, not the predeclared type.
const schema = `
#Int64: int64
#Dim:   int64 & >=0

#Operand: {int64: #Int64} | {symbol: string} | {mirrored: string}

#Object: {
	name:   string & !=""
	shape:  [...#Dim]
	dtype:  *"float32" | "byte" | "int32" | "int64" | "float64"
	device: *"host" | "accel"
	fill:   *0 | (int & >=0 & <=255)
}

#Instruction: {
	op:      string & !=""
	label:   *"" | string
	routing: "local" | "remote"
	operands: *[] | [...#Operand]
	depends_on: *[] | [...string]
}

objects: *[] | [...#Object]
instructions: [...#Instruction]
`

// Object declares a named tensor the driver materializes in the run
// environment before scheduling starts.
type Object struct {
	Name   string
	Shape  tensor.Shape
	DType  tensor.DType
	Device tensor.DeviceKind
	Fill   byte
}

// Document is a parsed instruction-list descriptor.
type Document struct {
	Objects      []Object
	Instructions []instr.Wire
}

// ParseError reports a malformed descriptor. It is a recoverable boundary
// error: the caller decides what to do, nothing has executed.
type ParseError struct {
	Detail string
	err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("instruction list parse failed: %s", e.Detail)
}

func (e *ParseError) Unwrap() error { return e.err }

func parseError(err error) *ParseError {
	return &ParseError{Detail: cueerrors.Details(err, nil), err: err}
}

// raw* mirror the schema for CUE decoding. Operand presence is detected
// through pointer fields.
type rawOperand struct {
	Int64    *int64  `json:"int64"`
	Symbol   *string `json:"symbol"`
	Mirrored *string `json:"mirrored"`
}

type rawObject struct {
	Name   string  `json:"name"`
	Shape  []int64 `json:"shape"`
	DType  string  `json:"dtype"`
	Device string  `json:"device"`
	Fill   int64   `json:"fill"`
}

type rawInstr struct {
	Op        string       `json:"op"`
	Label     string       `json:"label"`
	Routing   string       `json:"routing"`
	Operands  []rawOperand `json:"operands"`
	DependsOn []string     `json:"depends_on"`
}

type rawDoc struct {
	Objects      []rawObject `json:"objects"`
	Instructions []rawInstr  `json:"instructions"`
}

// Parse validates and decodes a descriptor.
func Parse(src string) (*Document, error) {
	ctx := cuecontext.New()

	sv := ctx.CompileString(schema, cue.Filename("stream_schema.cue"))
	if err := sv.Err(); err != nil {
		// The schema ships with the binary; failing to compile it is a
		// build defect, not an input problem.
		panic(fmt.Sprintf("stream: embedded schema invalid: %v", err))
	}

	v := ctx.CompileString(src, cue.Filename("instruction_list"))
	if err := v.Err(); err != nil {
		return nil, parseError(err)
	}

	u := sv.Unify(v)
	if err := u.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, parseError(err)
	}

	var raw rawDoc
	if err := u.Decode(&raw); err != nil {
		return nil, parseError(err)
	}
	return assemble(raw)
}

// ParseFile reads and parses a descriptor file.
func ParseFile(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruction list: %w", err)
	}
	return Parse(string(src))
}

func assemble(raw rawDoc) (*Document, error) {
	doc := &Document{}

	for _, ro := range raw.Objects {
		dtype, err := tensor.ParseDType(ro.DType)
		if err != nil {
			return nil, &ParseError{Detail: fmt.Sprintf("object %q: %v", ro.Name, err), err: err}
		}
		device, err := tensor.ParseDevice(ro.Device)
		if err != nil {
			return nil, &ParseError{Detail: fmt.Sprintf("object %q: %v", ro.Name, err), err: err}
		}
		doc.Objects = append(doc.Objects, Object{
			Name:   ro.Name,
			Shape:  tensor.Shape(ro.Shape),
			DType:  dtype,
			Device: device,
			Fill:   byte(ro.Fill),
		})
	}

	for i, ri := range raw.Instructions {
		routing, err := instr.ParseRouting(ri.Routing)
		if err != nil {
			return nil, &ParseError{Detail: fmt.Sprintf("instruction %d: %v", i, err), err: err}
		}
		w := instr.Wire{
			Op:        ri.Op,
			Label:     ri.Label,
			Routing:   routing,
			DependsOn: ri.DependsOn,
		}
		for j, ro := range ri.Operands {
			op, err := decodeOperand(ro)
			if err != nil {
				return nil, &ParseError{
					Detail: fmt.Sprintf("instruction %d operand %d: %v", i, j, err),
					err:    err,
				}
			}
			w.Operands = append(w.Operands, op)
		}
		doc.Instructions = append(doc.Instructions, w)
	}

	return doc, nil
}

func decodeOperand(ro rawOperand) (instr.Operand, error) {
	switch {
	case ro.Int64 != nil:
		return instr.Int64Operand(*ro.Int64), nil
	case ro.Symbol != nil:
		return instr.SymbolOperand(*ro.Symbol), nil
	case ro.Mirrored != nil:
		return instr.MirroredOperand(*ro.Mirrored), nil
	default:
		return instr.Operand{}, fmt.Errorf("operand has no recognized variant")
	}
}
