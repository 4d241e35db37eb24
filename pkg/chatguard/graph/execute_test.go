package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_Linear tests sequential execution through simple edges.
func TestRun_Linear(t *testing.T) {
	var order []string
	compiled, err := New[State]().
		AddNode("first", makeTrackingNode("first", &order)).
		AddNode("second", makeTrackingNode("second", &order)).
		AddEdge("first", "second").
		AddEdge("second", END).
		SetEntry("first").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"first", "second"}, result.Progress)
}

// TestRun_ConditionalRouting tests that the router's decision selects the
// next node.
func TestRun_ConditionalRouting(t *testing.T) {
	var order []string
	build := func() *CompiledGraph[State] {
		compiled, err := New[State]().
			AddNode("gate", makeTrackingNode("gate", &order)).
			AddNode("work", makeTrackingNode("work", &order)).
			AddConditionalEdge("gate", func(ctx Context, s State) string {
				if s.Halt {
					return END
				}
				return "work"
			}).
			AddEdge("work", END).
			SetEntry("gate").
			Compile()
		require.NoError(t, err)
		return compiled
	}

	// Continue path executes both nodes.
	order = nil
	_, err := build().Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gate", "work"}, order)

	// Halt path terminates after the gate.
	order = nil
	_, err = build().Run(testCtx(), State{Halt: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"gate"}, order)
}

// TestRun_NilContext tests that a nil context is rejected.
func TestRun_NilContext(t *testing.T) {
	compiled, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(nil, Counter{})
	assert.ErrorIs(t, err, ErrNilContext)
}

// TestRun_NodeError tests that node failures are wrapped with node identity.
func TestRun_NodeError(t *testing.T) {
	nodeErr := errors.New("boom")
	compiled, err := New[State]().
		AddNode("fail", makeFailingNode(nodeErr)).
		AddEdge("fail", END).
		SetEntry("fail").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, nodeErr)

	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "fail", ne.NodeID)
}

// TestRun_PanicRecovery tests that a panicking node becomes a PanicError.
func TestRun_PanicRecovery(t *testing.T) {
	compiled, err := New[State]().
		AddNode("explode", makePanicNode("kaboom")).
		AddEdge("explode", END).
		SetEntry("explode").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	require.Error(t, err)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "explode", pe.NodeID)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

// TestRun_Cancellation tests that a canceled context stops execution
// before the next node.
func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	compiled, err := New[State]().
		AddNode("first", func(c Context, s State) (State, error) {
			cancel() // Cancel while the first node runs.
			return s, nil
		}).
		AddNode("second", makeFailingNode(errors.New("should not run"))).
		AddEdge("first", "second").
		AddEdge("second", END).
		SetEntry("first").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(ctx), State{})
	require.Error(t, err)

	var ce *CancellationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "second", ce.NodeID)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_MaxIterations tests loop protection.
func TestRun_MaxIterations(t *testing.T) {
	compiled, err := New[Counter]().
		AddNode("loop", increment).
		AddConditionalEdge("loop", func(ctx Context, s Counter) string {
			return "loop" // Never terminates on its own.
		}).
		SetEntry("loop").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithMaxIterations(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxIterations)

	var me *MaxIterationsError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 5, me.Max)
}

// TestRun_RouterEmptyResult tests rejection of an empty router result.
func TestRun_RouterEmptyResult(t *testing.T) {
	compiled, err := New[State]().
		AddNode("gate", makeFailingNode(nil)).
		AddConditionalEdge("gate", func(ctx Context, s State) string {
			return ""
		}).
		SetEntry("gate").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	assert.ErrorIs(t, err, ErrInvalidRouterResult)
}

// TestRun_RouterUnknownTarget tests rejection of an unknown router target.
func TestRun_RouterUnknownTarget(t *testing.T) {
	compiled, err := New[State]().
		AddNode("gate", makeFailingNode(nil)).
		AddConditionalEdge("gate", func(ctx Context, s State) string {
			return "nowhere"
		}).
		SetEntry("gate").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	require.ErrorIs(t, err, ErrRouterTargetNotFound)

	var re *RouterError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "gate", re.FromNode)
	assert.Equal(t, "nowhere", re.Returned)
}

// TestRun_Checkpoints tests that state is checkpointed after each node.
func TestRun_Checkpoints(t *testing.T) {
	saver := &memorySaver{}

	compiled, err := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{}, WithCheckpoints(saver, "thread-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Value)

	require.Len(t, saver.saves, 2)
	assert.Equal(t, "thread-1", saver.saves[0].threadID)
	assert.Equal(t, "a", saver.saves[0].nodeID)
	assert.Equal(t, "b", saver.saves[1].nodeID)
	assert.JSONEq(t, `{"Value":1}`, string(saver.saves[0].data))
	assert.JSONEq(t, `{"Value":2}`, string(saver.saves[1].data))
}

// TestRun_CheckpointFailure tests that a failed checkpoint write fails
// the turn.
func TestRun_CheckpointFailure(t *testing.T) {
	saver := &memorySaver{err: errors.New("disk full")}

	compiled, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithCheckpoints(saver, "thread-1"))
	require.Error(t, err)

	var cpe *CheckpointError
	require.ErrorAs(t, err, &cpe)
	assert.Equal(t, "a", cpe.NodeID)
	assert.Equal(t, "save", cpe.Op)
}

// TestRun_CheckpointRequiresThreadID tests that a saver without a thread
// ID is rejected up front.
func TestRun_CheckpointRequiresThreadID(t *testing.T) {
	compiled, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithCheckpoints(&memorySaver{}, ""))
	assert.ErrorIs(t, err, ErrThreadIDRequired)
}

// TestRun_ConcurrentRuns tests that one compiled graph serves concurrent
// runs with independent state.
func TestRun_ConcurrentRuns(t *testing.T) {
	compiled, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	done := make(chan Counter, 10)
	for i := 0; i < 10; i++ {
		go func(start int) {
			result, runErr := compiled.Run(testCtx(), Counter{Value: start})
			require.NoError(t, runErr)
			done <- result
		}(i)
	}

	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		seen[(<-done).Value] = true
	}
	assert.Len(t, seen, 10)
}
