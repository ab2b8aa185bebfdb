package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/stream"
	"github.com/tensorlane/tensorlane/internal/tensor"
	"github.com/tensorlane/tensorlane/internal/testutil"
	"github.com/tensorlane/tensorlane/internal/topology"
)

func testRun(t *testing.T, src string, opts ...Option) (*Report, *MemoryRecorder, error) {
	t.Helper()
	rec := &MemoryRecorder{}
	opts = append([]Option{
		WithRecorder(rec),
		WithRunID("test-run"),
		WithNow(testutil.FixedNow()),
	}, opts...)
	rep, err := Run(context.Background(), src, opts...)
	return rep, rec, err
}

func TestRun_MixedRoutingQuiesces(t *testing.T) {
	src := `
objects: [
	{name: "a", shape: [4]},
	{name: "b", shape: [4]},
	{name: "c", shape: [4]},
	{name: "d", shape: [4]},
	{name: "e", shape: [4]},
]
instructions: [
	{op: "Identity", routing: "local", operands: [{symbol: "a"}, {symbol: "a1"}]},
	{op: "Identity", routing: "local", operands: [{symbol: "b"}, {symbol: "b1"}]},
	{op: "Identity", routing: "local", operands: [{symbol: "c"}, {symbol: "c1"}]},
	{op: "Identity", routing: "remote", operands: [{symbol: "d"}, {symbol: "d1"}]},
	{op: "Identity", routing: "remote", operands: [{symbol: "e"}, {symbol: "e1"}]},
]
`
	rep, rec, err := testRun(t, src)
	require.NoError(t, err)
	require.EqualValues(t, 5, rep.Executed)

	execs := rec.Executions()
	require.Len(t, execs, 5)

	var local, remote int
	for _, x := range execs {
		assert.Equal(t, "test-run", x.RunID)
		assert.Equal(t, "Identity", x.Op)
		assert.False(t, x.Failed())
		switch x.Routing {
		case instr.RoutingLocal:
			local++
		case instr.RoutingRemote:
			remote++
		}
	}
	assert.Equal(t, 3, local)
	assert.Equal(t, 2, remote)

	// One shared clock: sequence numbers are strictly increasing across
	// both engines.
	for i := 1; i < len(execs); i++ {
		assert.Greater(t, execs[i].Seq, execs[i-1].Seq)
	}
}

func TestRun_IdentityCopiesBits(t *testing.T) {
	src := `
objects: [
	{name: "src", shape: [2, 3], dtype: "int64", fill: 7},
]
instructions: [
	{op: "Identity", routing: "local", operands: [{symbol: "src"}, {symbol: "dst"}]},
]
`
	rep, _, err := testRun(t, src)
	require.NoError(t, err)

	srcT, ok := rep.Env.Get("src")
	require.True(t, ok)
	dstT, ok := rep.Env.Get("dst")
	require.True(t, ok)

	assert.True(t, srcT.Shape().Equal(dstT.Shape()))
	assert.Equal(t, srcT.DType(), dstT.DType())
	assert.Equal(t, srcT.Bytes(), dstT.Bytes())
	for _, b := range dstT.Bytes() {
		assert.EqualValues(t, 7, b)
	}
}

func TestRun_ParseErrorExecutesNothing(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `instructions: [`},
		{"missing instructions", `objects: []`},
		{"unknown routing", `instructions: [{op: "Identity", routing: "elsewhere"}]`},
		{"empty op", `instructions: [{op: "", routing: "local"}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep, rec, err := testRun(t, tc.src)
			require.Error(t, err)
			var perr *stream.ParseError
			assert.ErrorAs(t, err, &perr)
			assert.Nil(t, rep)
			assert.Empty(t, rec.Executions())
		})
	}
}

func TestRun_MultiMachineFailsFast(t *testing.T) {
	src := `instructions: [{op: "Identity", routing: "local", operands: [{symbol: "x"}, {symbol: "y"}]}]`
	rep, rec, err := testRun(t, src,
		WithTopology(topology.Config{Machines: 3, LocalWorkers: 2, RemoteWorkers: 2}))
	require.ErrorIs(t, err, ErrMultiMachine)
	assert.Nil(t, rep)
	assert.Empty(t, rec.Executions())
}

func TestRun_DependencyChainOrdersExecutions(t *testing.T) {
	src := `
objects: [{name: "x", shape: [4], fill: 1}]
instructions: [
	{op: "Identity", label: "third", routing: "local", depends_on: ["second"], operands: [{symbol: "x2"}, {symbol: "x3"}]},
	{op: "Identity", label: "second", routing: "local", depends_on: ["first"], operands: [{symbol: "x1"}, {symbol: "x2"}]},
	{op: "Identity", label: "first", routing: "local", operands: [{symbol: "x"}, {symbol: "x1"}]},
]
`
	rep, rec, err := testRun(t, src)
	require.NoError(t, err)
	require.GreaterOrEqual(t, rep.Passes, 3)

	execs := rec.Executions()
	require.Len(t, execs, 3)
	assert.Equal(t, "first", execs[0].Label)
	assert.Equal(t, "second", execs[1].Label)
	assert.Equal(t, "third", execs[2].Label)

	x3, ok := rep.Env.Get("x3")
	require.True(t, ok)
	for _, b := range x3.Bytes() {
		assert.EqualValues(t, 1, b)
	}
}

func TestRun_StallOnUnsatisfiableDependency(t *testing.T) {
	src := `
instructions: [
	{op: "Identity", routing: "local", depends_on: ["nowhere"], operands: [{symbol: "x"}, {symbol: "y"}]},
]
`
	rep, rec, err := testRun(t, src)
	require.ErrorIs(t, err, ErrStalled)

	var stall *StallError
	require.ErrorAs(t, err, &stall)
	assert.Equal(t, 1, stall.LocalPending)
	assert.Equal(t, 0, stall.RemotePending)
	assert.EqualValues(t, 0, rep.Executed)
	assert.Empty(t, rec.Executions())
}

func TestRun_CrossClassDependencyStalls(t *testing.T) {
	// The two engines share no completion state, so a remote instruction
	// waiting on a local label can never become ready.
	src := `
objects: [{name: "x", shape: [4]}]
instructions: [
	{op: "Identity", label: "a", routing: "local", operands: [{symbol: "x"}, {symbol: "y"}]},
	{op: "Identity", routing: "remote", depends_on: ["a"], operands: [{symbol: "y"}, {symbol: "z"}]},
]
`
	rep, rec, err := testRun(t, src)
	require.ErrorIs(t, err, ErrStalled)

	var stall *StallError
	require.ErrorAs(t, err, &stall)
	assert.Equal(t, 0, stall.LocalPending)
	assert.Equal(t, 1, stall.RemotePending)
	assert.EqualValues(t, 1, rep.Executed)
	require.Len(t, rec.Executions(), 1)
	assert.Equal(t, instr.RoutingLocal, rec.Executions()[0].Routing)
}

func TestRun_PassLimit(t *testing.T) {
	src := `
objects: [{name: "x", shape: [4]}]
instructions: [
	{op: "Identity", label: "a", routing: "local", operands: [{symbol: "x"}, {symbol: "y"}]},
	{op: "Identity", routing: "local", depends_on: ["a"], operands: [{symbol: "y"}, {symbol: "z"}]},
]
`
	_, _, err := testRun(t, src, WithMaxPasses(1))
	require.ErrorIs(t, err, ErrPassLimit)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := `instructions: [{op: "Identity", routing: "local", operands: [{symbol: "x"}, {symbol: "y"}]}]`
	rec := &MemoryRecorder{}
	_, err := Run(ctx, src, WithRecorder(rec))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Executions())
}

func TestRun_UnknownOperatorRecordsFailure(t *testing.T) {
	src := `
objects: [{name: "x", shape: [4]}]
instructions: [
	{op: "NoSuchOp", routing: "local", operands: [{symbol: "x"}]},
	{op: "Identity", routing: "local", operands: [{symbol: "x"}, {symbol: "y"}]},
]
`
	rep, rec, err := testRun(t, src)
	require.NoError(t, err)
	require.EqualValues(t, 2, rep.Executed)

	failed := rec.ByOp("NoSuchOp")
	require.Len(t, failed, 1)
	assert.True(t, failed[0].Failed())
	assert.Contains(t, failed[0].Err, "no kernel registered")

	ok := rec.ByOp("Identity")
	require.Len(t, ok, 1)
	assert.False(t, ok[0].Failed())
}

func TestRun_BadTopologyRejected(t *testing.T) {
	src := `instructions: []`
	_, _, err := testRun(t, src,
		WithTopology(topology.Config{Machines: 1, LocalWorkers: 0, RemoteWorkers: 1}))
	require.Error(t, err)
}

func TestRun_EmptyDescriptorQuiesces(t *testing.T) {
	rep, rec, err := testRun(t, `instructions: []`)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rep.Executed)
	assert.Empty(t, rec.Executions())
}

func TestRun_NegativeShapeRejectedAtParse(t *testing.T) {
	src := `
objects: [{name: "x", shape: [-4]}]
instructions: []
`
	rep, rec, err := testRun(t, src)
	require.Error(t, err)
	var perr *stream.ParseError
	assert.ErrorAs(t, err, &perr)
	assert.Nil(t, rep)
	assert.Empty(t, rec.Executions())
}

func TestRunDocument_NegativeShapeRejected(t *testing.T) {
	doc := &stream.Document{
		Objects: []stream.Object{{Name: "x", Shape: tensor.Shape{2, -3}, DType: tensor.Float32}},
	}
	_, err := RunDocument(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative dimension")
}

func TestRunDocument_DuplicateObjectRejected(t *testing.T) {
	doc, err := stream.Parse(`
objects: [
	{name: "x", shape: [4]},
	{name: "x", shape: [8]},
]
instructions: []
`)
	require.NoError(t, err)
	_, derr := RunDocument(context.Background(), doc)
	require.Error(t, derr)
	assert.Contains(t, derr.Error(), "already defined")
}
