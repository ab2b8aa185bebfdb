package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/tensorlane/tensorlane/internal/vm"
)

// TraceSnapshot is the golden-file form of a scenario trace. Generated
// instruction IDs and wall-clock times are excluded; everything kept is
// deterministic across runs.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// TraceEvent is one finished compute step in snapshot form.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Label   string `json:"label,omitempty"`
	Routing string `json:"routing"`
	Worker  int    `json:"worker"`
	Err     string `json:"err,omitempty"`
}

func snapshot(name string, trace []vm.Execution) TraceSnapshot {
	s := TraceSnapshot{Scenario: name, Trace: []TraceEvent{}}
	for _, x := range trace {
		s.Trace = append(s.Trace, TraceEvent{
			Seq:     x.Seq,
			Op:      x.Op,
			Label:   x.Label,
			Routing: x.Routing.String(),
			Worker:  x.Worker,
			Err:     x.Err,
		})
	}
	return s
}

// RunWithGolden executes a scenario, checks its expectations, and
// compares the trace snapshot against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if err := Check(scenario, result); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot(scenario.Name, result.Trace), "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
