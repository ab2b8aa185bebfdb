package vm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tensorlane/tensorlane/internal/instr"
)

// Worker is a poll-driven execution context. The engine's scheduling pass
// places at most one runnable instruction in the worker's slot; the
// worker claims and runs it on the next poll. A worker never holds more
// than one instruction.
type Worker struct {
	index  int
	engine *Engine

	mu      sync.Mutex
	slot    *instr.Instruction
	running bool
}

// Index returns the worker's position within its engine.
func (w *Worker) Index() int { return w.index }

// Idle reports whether the worker holds no assigned or executing
// instruction.
func (w *Worker) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slot == nil && !w.running
}

// assign hands an instruction to the worker. Returns false if the slot
// is occupied. The instruction's queue reference moves into the slot.
func (w *Worker) assign(in *instr.Instruction) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.slot != nil || w.running {
		return false
	}
	w.slot = in
	return true
}

// TryReceiveAndRun is a non-blocking poll: if an instruction has been
// assigned to this context, execute its compute step synchronously;
// otherwise return immediately with no effect.
func (w *Worker) TryReceiveAndRun(ctx context.Context) {
	w.mu.Lock()
	in := w.slot
	w.slot = nil
	if in != nil {
		w.running = true
	}
	w.mu.Unlock()
	if in == nil {
		return
	}

	slog.Debug("worker claimed instruction",
		"class", w.engine.class.String(),
		"worker", w.index,
		"instruction", in.String(),
	)

	err := w.engine.exec.Execute(ctx, in)

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.engine.complete(w, in, err)
	in.Release()
}
