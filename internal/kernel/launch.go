package kernel

import "fmt"

// Step is one operator invocation inside a compiled subgraph.
type Step struct {
	Op string
}

// Program is a pre-compiled subgraph: an ordered list of steps executed
// against a shared context.
type Program []Step

// Launch runs a compiled subgraph as a single leaf operator. The driver
// sees one instruction; the steps inside share the launch context's
// bindings, so a step's outputs are visible to later steps as inputs.
//
// Obtained through Registry.RegisterProgram, which checks every step
// against the registry up front.
type Launch struct {
	registry *Registry
	prog     Program
}

func (l *Launch) Compute(c *Context) {
	for _, step := range l.prog {
		reg, ok := l.registry.Lookup(step.Op)
		if !ok {
			// RegisterProgram verified the steps; a miss here means the
			// registry changed underneath a compiled program.
			panic(fmt.Sprintf("launch: kernel %q vanished from registry", step.Op))
		}
		sub := reg.New()
		l.bridge(c, reg, sub)
		sub.Compute(c)
	}
}

// bridge makes earlier steps' outputs available as this step's inputs and
// allocates the step's outputs against the shared context.
func (l *Launch) bridge(c *Context, reg Registration, sub Kernel) {
	for _, port := range reg.Spec.Inputs {
		if _, ok := c.ins[port]; ok {
			continue
		}
		if t, ok := c.outs[port]; ok {
			c.BindInput(port, t)
		}
	}
	for _, port := range reg.Spec.Outputs {
		if c.HasOutput(port) {
			continue
		}
		// Shape the output after the step's first input; leaf kernels
		// assert the stricter per-operator contracts themselves.
		if len(reg.Spec.Inputs) > 0 {
			if in, ok := c.ins[reg.Spec.Inputs[0]]; ok {
				c.AllocOutput(sub, port, in.Shape(), in.DType())
			}
		}
	}
}
