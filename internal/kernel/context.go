package kernel

import (
	"fmt"

	"github.com/tensorlane/tensorlane/internal/tensor"
)

// Context grants a kernel access to its named input and output tensors
// and the device the claiming worker executes on. A missing binding at
// Compute time is an upstream planning bug, not a runtime condition, so
// lookups panic rather than return errors.
type Context struct {
	device tensor.DeviceKind
	ins    map[string]*tensor.Tensor
	outs   map[string]*tensor.Tensor
}

// NewContext builds an empty context for one compute step.
func NewContext(device tensor.DeviceKind) *Context {
	return &Context{
		device: device,
		ins:    make(map[string]*tensor.Tensor),
		outs:   make(map[string]*tensor.Tensor),
	}
}

// Device returns the executing device kind.
func (c *Context) Device() tensor.DeviceKind { return c.device }

// BindInput attaches an input tensor under a port name.
func (c *Context) BindInput(name string, t *tensor.Tensor) { c.ins[name] = t }

// BindOutput attaches an output tensor under a port name.
func (c *Context) BindOutput(name string, t *tensor.Tensor) { c.outs[name] = t }

// Input returns the input bound under name.
func (c *Context) Input(name string) *tensor.Tensor {
	t, ok := c.ins[name]
	if !ok {
		panic(fmt.Sprintf("kernel: no input bound at %q", name))
	}
	return t
}

// Output returns the output bound under name.
func (c *Context) Output(name string) *tensor.Tensor {
	t, ok := c.outs[name]
	if !ok {
		panic(fmt.Sprintf("kernel: no output bound at %q", name))
	}
	return t
}

// HasOutput reports whether an output is already bound under name.
func (c *Context) HasOutput(name string) bool {
	_, ok := c.outs[name]
	return ok
}

// AllocOutput binds an output for the port, honoring the kernel's alias
// proposal when the proposed input's buffer is byte-compatible with the
// requested shape and dtype; otherwise a fresh buffer is allocated. An
// already-bound output is left untouched.
func (c *Context) AllocOutput(k Kernel, name string, shape tensor.Shape, dtype tensor.DType) *tensor.Tensor {
	if t, ok := c.outs[name]; ok {
		return t
	}
	if inName, ok := AliasFor(k, name); ok {
		if in, bound := c.ins[inName]; bound &&
			shape.ElemCount()*dtype.ByteSize() == in.ByteSize() {
			t := tensor.NewShared(shape, dtype, c.device, in.Bytes())
			c.outs[name] = t
			return t
		}
	}
	t := tensor.New(shape, dtype, c.device)
	c.outs[name] = t
	return t
}
