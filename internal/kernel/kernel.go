// Package kernel defines the compute-kernel boundary the VM dispatches
// into: a kernel sees named input/output tensors through a Context and
// performs one synchronous compute step. Kernels are leaf units; the VM
// treats them as opaque.
package kernel

import (
	"fmt"
	"sort"
)

// Kernel is one operator's compute step. Compute runs synchronously on
// the worker that claimed the instruction and has exclusive mutation
// rights over the context's tensors for the duration of the call.
type Kernel interface {
	Compute(c *Context)
}

// Alias is an in-place proposal: the named output may reuse the named
// input's buffer. The allocation side honors or rejects the proposal.
type Alias struct {
	Output string
	Input  string
}

// AliasProposer is implemented by kernels that can compute in place.
type AliasProposer interface {
	ProposedAliases() []Alias
}

// AliasFor returns the input a kernel proposes to reuse for the given
// output, if any.
func AliasFor(k Kernel, output string) (string, bool) {
	p, ok := k.(AliasProposer)
	if !ok {
		return "", false
	}
	for _, a := range p.ProposedAliases() {
		if a.Output == output {
			return a.Input, true
		}
	}
	return "", false
}

// Spec declares a kernel's port names in binding order. The executor zips
// an instruction's symbol operands onto Inputs then Outputs.
type Spec struct {
	Inputs  []string
	Outputs []string
}

// Registration ties an operator name to a kernel factory.
type Registration struct {
	Name string
	Spec Spec
	New  func() Kernel
}

// Registry maps operator names to kernel registrations. It is an explicit
// object handed to the executor rather than ambient package state, so a
// process can carry differently-provisioned registries side by side.
type Registry struct {
	regs map[string]Registration
}

// NewRegistry returns a registry pre-populated with the built-in kernels.
func NewRegistry() *Registry {
	r := &Registry{regs: make(map[string]Registration)}
	// Built-ins; registration cannot collide in a fresh map.
	_ = r.Register(Registration{
		Name: "Identity",
		Spec: Spec{Inputs: []string{"in"}, Outputs: []string{"out"}},
		New:  func() Kernel { return Identity{} },
	})
	return r
}

// Register adds a registration; duplicate names are rejected.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("kernel registration missing name")
	}
	if reg.New == nil {
		return fmt.Errorf("kernel %q registration missing factory", reg.Name)
	}
	if _, dup := r.regs[reg.Name]; dup {
		return fmt.Errorf("kernel %q already registered", reg.Name)
	}
	r.regs[reg.Name] = reg
	return nil
}

// RegisterProgram registers a compiled-subgraph launch kernel under its
// own operator name. Every step must already be registered.
func (r *Registry) RegisterProgram(name string, spec Spec, prog Program) error {
	for _, step := range prog {
		if _, ok := r.regs[step.Op]; !ok {
			return fmt.Errorf("program %q references unregistered kernel %q", name, step.Op)
		}
	}
	return r.Register(Registration{
		Name: name,
		Spec: spec,
		New:  func() Kernel { return &Launch{registry: r, prog: prog} },
	})
}

// Lookup resolves an operator name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	reg, ok := r.regs[name]
	return reg, ok
}

// Names returns the registered operator names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.regs))
	for name := range r.regs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
