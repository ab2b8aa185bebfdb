package vm

import (
	"log/slog"

	"github.com/tensorlane/tensorlane/internal/instr"
)

// CompletionHook observes every finished compute step on an engine. The
// driver installs one to stamp and record executions; err carries the
// executor's failure, nil on success.
type CompletionHook func(e *Engine, w *Worker, in *instr.Instruction, err error)

// Engine schedules instructions of one routing class onto a fixed pool of
// workers. It owns a pending queue and a completion set; instructions
// become ready when every entry they depend on has completed on this
// engine. The two engines of a run share nothing, so a dependency on an
// entry routed to the other class can never be satisfied.
//
// Engine methods are driven from the run loop's single control flow and
// are not safe for concurrent use.
type Engine struct {
	class   instr.RoutingClass
	exec    Executor
	workers []*Worker

	pending   instr.List
	done      map[string]struct{}
	completed int64
	hook      CompletionHook
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithCompletionHook installs the completion observer.
func WithCompletionHook(h CompletionHook) EngineOption {
	return func(e *Engine) { e.hook = h }
}

// NewEngine creates an engine for one routing class with numWorkers
// execution contexts. numWorkers must be at least 1.
func NewEngine(class instr.RoutingClass, numWorkers int, exec Executor, opts ...EngineOption) *Engine {
	if numWorkers < 1 {
		numWorkers = 1
	}
	e := &Engine{
		class: class,
		exec:  exec,
		done:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.workers = make([]*Worker, numWorkers)
	for i := range e.workers {
		e.workers[i] = &Worker{index: i, engine: e}
	}
	return e
}

// Class returns the routing class this engine serves.
func (e *Engine) Class() instr.RoutingClass { return e.class }

// Workers returns the engine's execution contexts, for polling.
func (e *Engine) Workers() []*Worker { return e.workers }

// Receive moves every instruction from l into the pending queue,
// preserving order. References move with the instructions.
func (e *Engine) Receive(l *instr.List) {
	l.SpliceInto(&e.pending)
}

// Pending returns the number of queued, not yet dispatched instructions.
func (e *Engine) Pending() int { return e.pending.Len() }

// CompletedCount returns the number of compute steps finished so far,
// failed ones included. The driver compares counts across passes to
// detect a stalled queue.
func (e *Engine) CompletedCount() int64 { return e.completed }

// Empty reports quiescence: nothing queued, nothing assigned or running.
func (e *Engine) Empty() bool {
	if !e.pending.Empty() {
		return false
	}
	for _, w := range e.workers {
		if !w.Idle() {
			return false
		}
	}
	return true
}

// Schedule makes one non-blocking dispatch pass: every pending
// instruction whose dependencies have completed is assigned to a free
// worker, in queue order. Instructions that are not ready, or for which
// no worker slot is free, stay queued for a later pass. Schedule never
// blocks and never executes anything itself.
func (e *Engine) Schedule() {
	free := e.freeWorkers()
	if len(free) == 0 {
		return
	}
	e.pending.ForEach(func(in *instr.Instruction) bool {
		if !e.ready(in) {
			return true
		}
		w := free[0]
		if !w.assign(in) {
			// Slot raced shut between the free scan and now; retry the
			// same instruction against the next worker on a later pass.
			return true
		}
		e.pending.Remove(in)
		free = free[1:]
		slog.Debug("instruction dispatched",
			"class", e.class.String(),
			"worker", w.Index(),
			"instruction", in.String(),
		)
		return len(free) > 0
	})
}

// ready reports whether every dependency label or ID has completed on
// this engine.
func (e *Engine) ready(in *instr.Instruction) bool {
	for _, dep := range in.DependsOn() {
		if _, ok := e.done[dep]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) freeWorkers() []*Worker {
	var free []*Worker
	for _, w := range e.workers {
		if w.Idle() {
			free = append(free, w)
		}
	}
	return free
}

// Drain detaches and releases everything still pending. Called on the
// error paths so abandoned instructions are torn down rather than leaked
// in the queue.
func (e *Engine) Drain() {
	e.pending.Clear()
}

// complete marks an instruction finished, under both its generated ID and
// its wire label, then notifies the hook. Failed steps still complete;
// dependents observe completion, not success, and failures surface
// through the hook and the run log.
func (e *Engine) complete(w *Worker, in *instr.Instruction, err error) {
	e.done[in.ID()] = struct{}{}
	if label := in.Label(); label != "" {
		e.done[label] = struct{}{}
	}
	e.completed++
	if err != nil {
		slog.Error("compute step failed",
			"class", e.class.String(),
			"worker", w.Index(),
			"instruction", in.String(),
			"error", err,
		)
	}
	if e.hook != nil {
		e.hook(e, w, in, err)
	}
}
