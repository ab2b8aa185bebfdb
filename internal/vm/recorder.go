package vm

import (
	"sync"
	"time"

	"github.com/tensorlane/tensorlane/internal/instr"
)

// Execution is the record of one finished compute step. Seq comes from
// the run's shared clock, so sorting by Seq reconstructs the global
// interleaving of both engines.
type Execution struct {
	RunID   string
	Seq     int64
	InstrID string
	Label   string
	Op      string
	Routing instr.RoutingClass
	Worker  int
	At      time.Time
	Err     string
}

// Failed reports whether the compute step returned an error.
func (x Execution) Failed() bool { return x.Err != "" }

// Recorder receives execution records as they complete. Implementations
// must tolerate being called from the run loop between scheduling passes.
type Recorder interface {
	RecordExecution(x Execution) error
}

// MemoryRecorder accumulates execution records in order. It is the
// default recorder and the one tests inspect.
type MemoryRecorder struct {
	mu   sync.Mutex
	recs []Execution
}

func (r *MemoryRecorder) RecordExecution(x Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, x)
	return nil
}

// Executions returns a copy of the records in recorded order.
func (r *MemoryRecorder) Executions() []Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Execution(nil), r.recs...)
}

// ByOp returns the records for one operator name, in recorded order.
func (r *MemoryRecorder) ByOp(op string) []Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Execution
	for _, x := range r.recs {
		if x.Op == op {
			out = append(out, x)
		}
	}
	return out
}
