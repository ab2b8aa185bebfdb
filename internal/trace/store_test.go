package trace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/testutil"
	"github.com/tensorlane/tensorlane/internal/vm"
)

var _ vm.Recorder = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func exec(runID string, seq int64, op, label string, routing instr.RoutingClass, errMsg string) vm.Execution {
	return vm.Execution{
		RunID:   runID,
		Seq:     seq,
		InstrID: label + "-id",
		Label:   label,
		Op:      op,
		Routing: routing,
		Worker:  0,
		At:      testutil.Epoch.Add(time.Duration(seq) * time.Second),
		Err:     errMsg,
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.WriteExecution(context.Background(),
		exec("r1", 1, "Identity", "a", instr.RoutingLocal, "")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Executions(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteExecution_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := exec("r1", 1, "Identity", "a", instr.RoutingRemote, "boom")
	require.NoError(t, s.WriteExecution(ctx, want))

	got, err := s.Executions(ctx, Filter{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
	assert.True(t, got[0].Failed())
}

func TestWriteExecution_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	x := exec("r1", 1, "Identity", "a", instr.RoutingLocal, "")
	require.NoError(t, s.WriteExecution(ctx, x))
	require.NoError(t, s.WriteExecution(ctx, x))

	got, err := s.Executions(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestExecutions_FilterAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of sequence order; reads must come back ordered.
	require.NoError(t, s.WriteExecution(ctx, exec("r1", 3, "Identity", "c", instr.RoutingRemote, "")))
	require.NoError(t, s.WriteExecution(ctx, exec("r1", 1, "Identity", "a", instr.RoutingLocal, "")))
	require.NoError(t, s.WriteExecution(ctx, exec("r1", 2, "Scale", "b", instr.RoutingLocal, "bad dtype")))
	require.NoError(t, s.WriteExecution(ctx, exec("r2", 1, "Identity", "a", instr.RoutingLocal, "")))

	tests := []struct {
		name   string
		filter Filter
		labels []string
	}{
		{"all ordered", Filter{}, []string{"a", "b", "c", "a"}},
		{"by run", Filter{RunID: "r1"}, []string{"a", "b", "c"}},
		{"by op", Filter{Op: "Scale"}, []string{"b"}},
		{"by routing", Filter{RunID: "r1", Routing: "local"}, []string{"a", "b"}},
		{"failed only", Filter{FailedOnly: true}, []string{"b"}},
		{"with limit", Filter{RunID: "r1", Limit: 2}, []string{"a", "b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Executions(ctx, tc.filter)
			require.NoError(t, err)
			var labels []string
			for _, x := range got {
				labels = append(labels, x.Label)
			}
			assert.Equal(t, tc.labels, labels)
		})
	}
}

func TestExecutions_RejectsBadRoutingFilter(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Executions(context.Background(), Filter{Routing: "elsewhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized routing filter")
}

func TestRuns_Summaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteExecution(ctx, exec("r1", 1, "Identity", "a", instr.RoutingLocal, "")))
	require.NoError(t, s.WriteExecution(ctx, exec("r1", 2, "Identity", "b", instr.RoutingLocal, "boom")))
	require.NoError(t, s.WriteExecution(ctx, exec("r2", 1, "Identity", "a", instr.RoutingRemote, "")))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, RunSummary{RunID: "r1", Steps: 2, Failures: 1, LastSeq: 2}, runs[0])
	assert.Equal(t, RunSummary{RunID: "r2", Steps: 1, Failures: 0, LastSeq: 1}, runs[1])
}

func TestStore_RecordsLiveRun(t *testing.T) {
	s := openTestStore(t)

	src := `
objects: [{name: "x", shape: [4], fill: 9}]
instructions: [
	{op: "Identity", label: "copy", routing: "local", operands: [{symbol: "x"}, {symbol: "y"}]},
]
`
	_, err := vm.Run(context.Background(), src,
		vm.WithRecorder(s),
		vm.WithRunID("live"),
		vm.WithNow(testutil.FixedNow()))
	require.NoError(t, err)

	got, err := s.Executions(context.Background(), Filter{RunID: "live"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "copy", got[0].Label)
	assert.Equal(t, "Identity", got[0].Op)
	assert.False(t, got[0].Failed())
}
