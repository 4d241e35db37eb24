package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompile_Valid tests compilation of a well-formed graph.
func TestCompile_Valid(t *testing.T) {
	compiled, err := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	require.NotNil(t, compiled)
	assert.Equal(t, "a", compiled.EntryPoint())
	assert.True(t, compiled.HasNode("a"))
	assert.True(t, compiled.HasNode("b"))
	assert.False(t, compiled.HasNode("c"))
	assert.ElementsMatch(t, []string{"a", "b"}, compiled.NodeIDs())
}

// TestCompile_NoEntryPoint tests that a missing entry point fails.
func TestCompile_NoEntryPoint(t *testing.T) {
	_, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		Compile()

	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

// TestCompile_EntryNotFound tests that an unknown entry point fails.
func TestCompile_EntryNotFound(t *testing.T) {
	_, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("missing").
		Compile()

	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Contains(t, err.Error(), "missing")
}

// TestCompile_EdgeTargetNotFound tests that a dangling edge target fails.
func TestCompile_EdgeTargetNotFound(t *testing.T) {
	_, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

// TestCompile_EdgeSourceNotFound tests that a dangling edge source fails.
func TestCompile_EdgeSourceNotFound(t *testing.T) {
	_, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		AddEdge("ghost", END).
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompile_ConditionalEdgeSourceNotFound tests dangling router sources.
func TestCompile_ConditionalEdgeSourceNotFound(t *testing.T) {
	_, err := New[State]().
		AddNode("a", makeFailingNode(nil)).
		AddEdge("a", END).
		AddConditionalEdge("ghost", func(ctx Context, s State) string { return END }).
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompile_NoPathToEnd tests detection of graphs that cannot terminate.
func TestCompile_NoPathToEnd(t *testing.T) {
	_, err := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNoPathToEnd)
}

// TestCompile_ConditionalAssumedToReachEnd tests that a router is assumed
// to potentially return END.
func TestCompile_ConditionalAssumedToReachEnd(t *testing.T) {
	compiled, err := New[State]().
		AddNode("a", makeFailingNode(nil)).
		AddConditionalEdge("a", func(ctx Context, s State) string { return END }).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.True(t, compiled.IsConditional("a"))
}

// TestCompile_MultipleErrors tests that all validation errors are reported.
func TestCompile_MultipleErrors(t *testing.T) {
	_, err := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompile_BuilderIsolation tests that mutating the builder after
// compilation does not affect the compiled graph.
func TestCompile_BuilderIsolation(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a")

	compiled, err := g.Compile()
	require.NoError(t, err)

	g.AddNode("b", increment).AddEdge("a", "b")

	assert.False(t, compiled.HasNode("b"))
	assert.Equal(t, []string{END}, compiled.getEdges("a"))
}
