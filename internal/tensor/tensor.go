// Package tensor provides the minimal tensor model the kernels compute
// over: a shape, an element type, and a device-associated byte buffer,
// plus the device-parameterized copy primitive.
package tensor

import (
	"fmt"
)

// DType is a tensor element type.
type DType uint8

const (
	Byte DType = iota
	Int32
	Int64
	Float32
	Float64
)

// ByteSize returns the per-element size in bytes.
func (d DType) ByteSize() int64 {
	switch d {
	case Byte:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		panic(fmt.Sprintf("tensor: unknown dtype %d", uint8(d)))
	}
}

func (d DType) String() string {
	switch d {
	case Byte:
		return "byte"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", uint8(d))
	}
}

// ParseDType maps a wire dtype name.
func ParseDType(s string) (DType, error) {
	switch s {
	case "byte":
		return Byte, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", s)
	}
}

// Shape is the dimension vector of a tensor.
type Shape []int64

// ElemCount returns the product of the dimensions. A rank-0 shape holds
// one element.
func (s Shape) ElemCount() int64 {
	n := int64(1)
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports dimension-wise equality.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	out := "("
	for i, d := range s {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", d)
	}
	return out + ")"
}

// Tensor is a device-associated buffer with shape and element type. The
// buffer is exclusively owned by whichever instruction carries the tensor
// until a worker claims it for a compute step.
type Tensor struct {
	shape  Shape
	dtype  DType
	device DeviceKind
	data   []byte
}

// New allocates a tensor with a cache-line-aligned buffer.
func New(shape Shape, dtype DType, device DeviceKind) *Tensor {
	size := shape.ElemCount() * dtype.ByteSize()
	return &Tensor{
		shape:  append(Shape(nil), shape...),
		dtype:  dtype,
		device: device,
		data:   AlignedBytes(int(size)),
	}
}

// NewShared wraps an existing buffer without copying; used when an
// in-place alias proposal is honored. The buffer length must match the
// shape and dtype exactly.
func NewShared(shape Shape, dtype DType, device DeviceKind, data []byte) *Tensor {
	if int64(len(data)) != shape.ElemCount()*dtype.ByteSize() {
		panic(fmt.Sprintf("tensor: buffer of %d bytes cannot back shape %s dtype %s",
			len(data), shape, dtype))
	}
	return &Tensor{
		shape:  append(Shape(nil), shape...),
		dtype:  dtype,
		device: device,
		data:   data,
	}
}

// Shape returns the dimension vector. Callers must not mutate it.
func (t *Tensor) Shape() Shape { return t.shape }

// DType returns the element type.
func (t *Tensor) DType() DType { return t.dtype }

// Device returns the device the buffer is associated with.
func (t *Tensor) Device() DeviceKind { return t.device }

// Bytes returns the raw buffer.
func (t *Tensor) Bytes() []byte { return t.data }

// ByteSize returns the buffer length in bytes.
func (t *Tensor) ByteSize() int64 { return int64(len(t.data)) }

func (t *Tensor) String() string {
	return fmt.Sprintf("%s%s@%s", t.dtype, t.shape, t.device)
}
