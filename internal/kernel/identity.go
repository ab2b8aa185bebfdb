package kernel

import (
	"fmt"

	"github.com/tensorlane/tensorlane/internal/tensor"
)

// Identity copies its input to its output byte for byte. Ports: "in",
// "out". It proposes computing in place; when the proposal is honored the
// buffers alias and the copy is skipped.
type Identity struct{}

// Compute aborts on a shape or element-type mismatch between the declared
// output and the input: that indicates an upstream planning bug, and
// truncating or padding silently would corrupt downstream tensors.
func (Identity) Compute(c *Context) {
	in := c.Input("in")
	out := c.Output("out")

	if !in.Shape().Equal(out.Shape()) {
		panic(fmt.Sprintf("identity: output shape %s differs from input shape %s",
			out.Shape(), in.Shape()))
	}
	if in.DType() != out.DType() {
		panic(fmt.Sprintf("identity: output dtype %s differs from input dtype %s",
			out.DType(), in.DType()))
	}

	if in.ByteSize() == 0 || &in.Bytes()[0] == &out.Bytes()[0] {
		return // aliased buffers, nothing to move
	}
	tensor.Memcpy(c.Device(), out.Bytes(), in.Bytes(), int(in.ByteSize()))
}

// ProposedAliases declares that "out" may reuse "in"'s buffer.
func (Identity) ProposedAliases() []Alias {
	return []Alias{{Output: "out", Input: "in"}}
}
