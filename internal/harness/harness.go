// Package harness runs conformance scenarios: declarative YAML files
// pairing an instruction-list descriptor with expectations about the
// resulting trace, verified directly and against golden snapshots.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/tensorlane/tensorlane/internal/vm"
)

// Result holds a finished scenario run.
type Result struct {
	Report *vm.Report
	Trace  []vm.Execution
}

// scenarioEpoch is the fixed timestamp scenarios run at, so traces carry
// no wall-clock noise.
var scenarioEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario's instruction list and returns the trace.
// The run ID and timestamps are pinned to the scenario so repeated runs
// are identical.
func Run(scenario *Scenario) (*Result, error) {
	rec := &vm.MemoryRecorder{}
	opts := []vm.Option{
		vm.WithRecorder(rec),
		vm.WithRunID(scenario.Name),
		vm.WithNow(func() time.Time { return scenarioEpoch }),
	}
	if scenario.Topology != nil {
		opts = append(opts, vm.WithTopology(*scenario.Topology))
	}

	rep, err := vm.Run(context.Background(), scenario.Stream, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	return &Result{Report: rep, Trace: rec.Executions()}, nil
}

// Check verifies a result against the scenario's expectations.
func Check(scenario *Scenario, result *Result) error {
	if got := len(result.Trace); got != scenario.Expect.Steps {
		return fmt.Errorf("scenario %q: %d step(s) finished, expected %d",
			scenario.Name, got, scenario.Expect.Steps)
	}

	failures := 0
	for _, x := range result.Trace {
		if x.Failed() {
			failures++
		}
	}
	if failures != scenario.Expect.Failures {
		return fmt.Errorf("scenario %q: %d step(s) failed, expected %d",
			scenario.Name, failures, scenario.Expect.Failures)
	}

	if len(scenario.Expect.Order) > 0 {
		var labels []string
		for _, x := range result.Trace {
			if x.Label != "" {
				labels = append(labels, x.Label)
			}
		}
		if len(labels) != len(scenario.Expect.Order) {
			return fmt.Errorf("scenario %q: %d labeled step(s), expected %d",
				scenario.Name, len(labels), len(scenario.Expect.Order))
		}
		for i, want := range scenario.Expect.Order {
			if labels[i] != want {
				return fmt.Errorf("scenario %q: step %d completed %q, expected %q",
					scenario.Name, i, labels[i], want)
			}
		}
	}

	for _, name := range scenario.Expect.Objects {
		if _, ok := result.Report.Env.Get(name); !ok {
			return fmt.Errorf("scenario %q: object %q missing from environment",
				scenario.Name, name)
		}
	}
	return nil
}
