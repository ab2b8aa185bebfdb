package vm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/kernel"
	"github.com/tensorlane/tensorlane/internal/stream"
	"github.com/tensorlane/tensorlane/internal/tensor"
	"github.com/tensorlane/tensorlane/internal/topology"
)

// Options bundles the run configuration. Zero value plus defaults from
// applyDefaults gives a single-machine run with an in-memory recorder.
type Options struct {
	Topology  topology.Config
	Registry  *kernel.Registry
	Recorder  Recorder
	RunID     string
	MaxPasses int
	Now       func() time.Time
}

// Option mutates run options.
type Option func(*Options)

// WithTopology sets the machine and worker layout.
func WithTopology(cfg topology.Config) Option {
	return func(o *Options) { o.Topology = cfg }
}

// WithRegistry sets the kernel registry instructions resolve against.
func WithRegistry(r *kernel.Registry) Option {
	return func(o *Options) { o.Registry = r }
}

// WithRecorder sets where execution records go.
func WithRecorder(r Recorder) Option {
	return func(o *Options) { o.Recorder = r }
}

// WithRunID fixes the run identity instead of generating one.
func WithRunID(id string) Option {
	return func(o *Options) { o.RunID = id }
}

// WithMaxPasses bounds the scheduling loop. Zero means unbounded.
func WithMaxPasses(n int) Option {
	return func(o *Options) { o.MaxPasses = n }
}

// WithNow overrides the timestamp source, for deterministic traces.
func WithNow(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

func applyDefaults(o *Options) {
	if o.Topology == (topology.Config{}) {
		o.Topology = *topology.Default()
	}
	if o.Registry == nil {
		o.Registry = kernel.NewRegistry()
	}
	if o.Recorder == nil {
		o.Recorder = &MemoryRecorder{}
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Report summarizes a finished run.
type Report struct {
	RunID    string
	Passes   int
	Executed int64
	Env      *Env
}

// Run parses an instruction-list descriptor and drives it to quiescence.
//
// The flow is fixed: validate the topology, parse, materialize declared
// objects, split instructions by routing class onto two independent
// engines, then alternate scheduling passes and worker polls until both
// engines report empty. A descriptor that fails to parse executes
// nothing.
func Run(ctx context.Context, src string, opts ...Option) (*Report, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	applyDefaults(&o)

	if err := o.Topology.Validate(); err != nil {
		return nil, err
	}
	if o.Topology.MachineCount() > 1 {
		return nil, fmt.Errorf("%w: topology declares %d machines",
			ErrMultiMachine, o.Topology.MachineCount())
	}

	doc, err := stream.Parse(src)
	if err != nil {
		return nil, err
	}
	return runDocument(ctx, doc, &o)
}

// RunDocument drives an already-parsed descriptor to quiescence.
func RunDocument(ctx context.Context, doc *stream.Document, opts ...Option) (*Report, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	applyDefaults(&o)

	if err := o.Topology.Validate(); err != nil {
		return nil, err
	}
	if o.Topology.MachineCount() > 1 {
		return nil, fmt.Errorf("%w: topology declares %d machines",
			ErrMultiMachine, o.Topology.MachineCount())
	}
	return runDocument(ctx, doc, &o)
}

func runDocument(ctx context.Context, doc *stream.Document, o *Options) (*Report, error) {
	env := NewEnv()
	if err := materialize(env, doc.Objects); err != nil {
		return nil, err
	}

	var localQueue, remoteQueue instr.List
	if err := partition(doc.Instructions, &localQueue, &remoteQueue); err != nil {
		localQueue.Clear()
		remoteQueue.Clear()
		return nil, err
	}

	clock := NewClock()
	hook := recordingHook(o, clock)

	local := NewEngine(instr.RoutingLocal, o.Topology.LocalWorkers,
		&KernelExecutor{Registry: o.Registry, Env: env, Device: tensor.Host},
		WithCompletionHook(hook))
	remote := NewEngine(instr.RoutingRemote, o.Topology.RemoteWorkers,
		&KernelExecutor{Registry: o.Registry, Env: env, Device: tensor.Host},
		WithCompletionHook(hook))

	local.Receive(&localQueue)
	remote.Receive(&remoteQueue)

	slog.Info("run starting",
		"run", o.RunID,
		"objects", env.Len(),
		"local", local.Pending(),
		"remote", remote.Pending(),
	)

	report := &Report{RunID: o.RunID, Env: env}
	for pass := 1; ; pass++ {
		report.Passes = pass
		if err := ctx.Err(); err != nil {
			drain(local, remote)
			return report, err
		}

		before := local.CompletedCount() + remote.CompletedCount()

		local.Schedule()
		for _, w := range local.Workers() {
			w.TryReceiveAndRun(ctx)
		}
		remote.Schedule()
		for _, w := range remote.Workers() {
			w.TryReceiveAndRun(ctx)
		}

		report.Executed = local.CompletedCount() + remote.CompletedCount()
		if local.Empty() && remote.Empty() {
			break
		}

		// Workers run synchronously inside the pass, so a pass that
		// completed nothing while instructions remain can never make
		// progress later: every remaining dependency is unresolvable.
		if report.Executed == before {
			stall := &StallError{
				LocalPending:  local.Pending(),
				RemotePending: remote.Pending(),
			}
			drain(local, remote)
			return report, stall
		}

		if o.MaxPasses > 0 && pass >= o.MaxPasses {
			drain(local, remote)
			return report, fmt.Errorf("%w: %d passes", ErrPassLimit, pass)
		}
	}

	slog.Info("run quiesced",
		"run", o.RunID,
		"passes", report.Passes,
		"executed", report.Executed,
	)
	return report, nil
}

// materialize allocates each declared object and fills its buffer.
// The parser already rejects negative dimensions; the check here guards
// documents assembled programmatically.
func materialize(env *Env, objects []stream.Object) error {
	for _, obj := range objects {
		for _, d := range obj.Shape {
			if d < 0 {
				return fmt.Errorf("object %q: negative dimension %d in shape %s",
					obj.Name, d, obj.Shape)
			}
		}
		t := tensor.New(obj.Shape, obj.DType, obj.Device)
		if obj.Fill != 0 {
			buf := t.Bytes()
			for i := range buf {
				buf[i] = obj.Fill
			}
		}
		if err := env.Put(obj.Name, t); err != nil {
			return err
		}
	}
	return nil
}

// partition splits wire entries into per-class queues, preserving
// descriptor order within each class.
func partition(wires []instr.Wire, local, remote *instr.List) error {
	for _, w := range wires {
		in, err := instr.FromWire(w)
		if err != nil {
			return err
		}
		switch in.TypeID().Class {
		case instr.RoutingLocal:
			local.PushBack(in)
		case instr.RoutingRemote:
			remote.PushBack(in)
		default:
			unroutable(in)
		}
	}
	return nil
}

// recordingHook builds the completion observer: stamp with the shared
// clock, wrap into an execution record, hand to the recorder. Recorder
// failures are logged, never fatal to the run.
func recordingHook(o *Options, clock *Clock) CompletionHook {
	return func(e *Engine, w *Worker, in *instr.Instruction, err error) {
		x := Execution{
			RunID:   o.RunID,
			Seq:     clock.Next(),
			InstrID: in.ID(),
			Label:   in.Label(),
			Op:      in.TypeID().Name,
			Routing: e.Class(),
			Worker:  w.Index(),
			At:      o.Now(),
		}
		if err != nil {
			x.Err = err.Error()
		}
		if rerr := o.Recorder.RecordExecution(x); rerr != nil {
			slog.Error("execution record dropped", "run", o.RunID, "error", rerr)
		}
	}
}

func drain(engines ...*Engine) {
	for _, e := range engines {
		e.Drain()
	}
}
