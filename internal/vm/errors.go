package vm

import (
	"errors"
	"fmt"

	"github.com/tensorlane/tensorlane/internal/instr"
)

// ErrMultiMachine is returned by Run before anything is scheduled when
// the topology reports more than one participating machine. Cross-machine
// execution is a known unsupported path, failed fast rather than silently
// degraded.
var ErrMultiMachine = errors.New("multi-machine execution not yet supported")

// ErrStalled is returned when a full scheduling pass makes no progress
// while instructions remain: their dependencies can never be satisfied
// (missing or cross-engine labels, dependency cycles). Workers run
// synchronously inside the pass, so a zero-progress pass is permanent.
var ErrStalled = errors.New("scheduling stalled")

// ErrPassLimit is returned when a caller-imposed pass budget runs out
// before quiescence. The loop itself runs unbounded unless a limit is
// set.
var ErrPassLimit = errors.New("scheduling pass limit exceeded")

// StallError carries the queue depths at the moment a stall was detected.
type StallError struct {
	LocalPending  int
	RemotePending int
}

func (e *StallError) Error() string {
	return fmt.Sprintf("%v: %d local and %d remote instructions cannot become ready",
		ErrStalled, e.LocalPending, e.RemotePending)
}

func (e *StallError) Unwrap() error { return ErrStalled }

// unroutable panics: an instruction that matches neither routing class is
// an upstream planning bug, fatal by design rather than a recoverable
// error. The stream schema prevents it for parsed descriptors.
func unroutable(in *instr.Instruction) {
	panic(fmt.Sprintf("vm: instruction %s has unimplemented routing class %d",
		in, uint8(in.TypeID().Class)))
}
