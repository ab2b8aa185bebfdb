package vm

import (
	"context"
	"fmt"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/kernel"
	"github.com/tensorlane/tensorlane/internal/tensor"
)

// Executor runs one instruction's compute step. Implementations are
// invoked synchronously by the worker that claimed the instruction.
type Executor interface {
	Execute(ctx context.Context, in *instr.Instruction) error
}

// KernelExecutor resolves instructions against a kernel registry and a
// run environment. Symbol operands are zipped onto the kernel's declared
// ports: inputs first, then outputs. Inputs must already exist in the
// environment; missing outputs are allocated, honoring the kernel's
// in-place alias proposals, and published back to the environment.
type KernelExecutor struct {
	Registry *kernel.Registry
	Env      *Env
	Device   tensor.DeviceKind
}

func (x *KernelExecutor) Execute(ctx context.Context, in *instr.Instruction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reg, ok := x.Registry.Lookup(in.TypeID().Name)
	if !ok {
		return fmt.Errorf("no kernel registered for operator %q", in.TypeID().Name)
	}

	symbols := symbolOperands(in)
	ports := len(reg.Spec.Inputs) + len(reg.Spec.Outputs)
	if len(symbols) < ports {
		return fmt.Errorf("operator %q needs %d symbol operands, instruction carries %d",
			in.TypeID().Name, ports, len(symbols))
	}

	k := reg.New()
	kctx := kernel.NewContext(x.Device)

	for i, port := range reg.Spec.Inputs {
		t, ok := x.Env.Get(symbols[i])
		if !ok {
			return fmt.Errorf("operator %q input %q: no object %q in environment",
				in.TypeID().Name, port, symbols[i])
		}
		kctx.BindInput(port, t)
	}

	for i, port := range reg.Spec.Outputs {
		name := symbols[len(reg.Spec.Inputs)+i]
		if t, ok := x.Env.Get(name); ok {
			kctx.BindOutput(port, t)
			continue
		}
		// Undeclared output: allocate after the first input and publish.
		ref, ok := firstInput(kctx, reg)
		if !ok {
			return fmt.Errorf("operator %q output %q: object %q undeclared and no input to shape it after",
				in.TypeID().Name, port, name)
		}
		t := kctx.AllocOutput(k, port, ref.Shape(), ref.DType())
		if err := x.Env.Put(name, t); err != nil {
			return err
		}
	}

	k.Compute(kctx)
	return nil
}

// symbolOperands extracts symbol and mirrored operand names in order.
func symbolOperands(in *instr.Instruction) []string {
	var out []string
	for _, op := range in.Operands() {
		switch op.Kind {
		case instr.OperandSymbol:
			out = append(out, op.Symbol)
		case instr.OperandMirrored:
			out = append(out, op.Mirrored)
		}
	}
	return out
}

func firstInput(kctx *kernel.Context, reg kernel.Registration) (*tensor.Tensor, bool) {
	if len(reg.Spec.Inputs) == 0 {
		return nil, false
	}
	return kctx.Input(reg.Spec.Inputs[0]), true
}
