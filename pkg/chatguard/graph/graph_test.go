package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNew verifies basic graph creation.
func TestNew(t *testing.T) {
	g := New[Counter]()
	assert.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.NotNil(t, g.edges)
	assert.NotNil(t, g.conditionalEdges)
	assert.Empty(t, g.entryPoint)
}

// TestGraph_AddNode tests successful node addition.
func TestGraph_AddNode(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment)

	assert.Len(t, g.nodes, 2)
	assert.Contains(t, g.nodes, "a")
	assert.Contains(t, g.nodes, "b")
}

// TestGraph_AddNode_Chaining tests fluent API chaining.
func TestGraph_AddNode_Chaining(t *testing.T) {
	g := New[Counter]()
	result := g.AddNode("a", increment)
	assert.Same(t, g, result) // Should return same pointer for chaining
}

// TestGraph_AddNode_EmptyID_Panics tests that empty node ID panics.
func TestGraph_AddNode_EmptyID_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "graph: node ID cannot be empty", func() {
		New[Counter]().AddNode("", increment)
	})
}

// TestGraph_AddNode_ReservedID_Panics tests that reserved IDs panic.
func TestGraph_AddNode_ReservedID_Panics(t *testing.T) {
	testCases := []struct {
		name string
		id   string
	}{
		{"END uppercase", "END"},
		{"end lowercase", "end"},
		{"End mixed case", "End"},
		{"__end__ literal", "__end__"},
		{"__END__ uppercase", "__END__"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.PanicsWithValue(t, "graph: node ID cannot be reserved word 'END'", func() {
				New[Counter]().AddNode(tc.id, increment)
			})
		})
	}
}

// TestGraph_AddNode_WhitespaceID_Panics tests that IDs with whitespace panic.
func TestGraph_AddNode_WhitespaceID_Panics(t *testing.T) {
	testCases := []struct {
		name string
		id   string
	}{
		{"space", "node a"},
		{"tab", "node\ta"},
		{"newline", "node\na"},
		{"leading space", " node"},
		{"trailing space", "node "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.PanicsWithValue(t, "graph: node ID cannot contain whitespace", func() {
				New[Counter]().AddNode(tc.id, increment)
			})
		})
	}
}

// TestGraph_AddNode_NilFunc_Panics tests that nil function panics.
func TestGraph_AddNode_NilFunc_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "graph: node function cannot be nil", func() {
		New[Counter]().AddNode("a", nil)
	})
}

// TestGraph_AddNode_DuplicateID_Panics tests that duplicate IDs panic.
func TestGraph_AddNode_DuplicateID_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "graph: duplicate node ID: a", func() {
		New[Counter]().
			AddNode("a", increment).
			AddNode("a", increment)
	})
}

// TestGraph_AddEdge tests edge addition.
func TestGraph_AddEdge(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END)

	assert.Equal(t, []string{"b"}, g.edges["a"])
	assert.Equal(t, []string{END}, g.edges["b"])
}

// TestGraph_AddConditionalEdge_NilRouter_Panics tests nil router rejection.
func TestGraph_AddConditionalEdge_NilRouter_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "graph: router function cannot be nil", func() {
		New[Counter]().
			AddNode("a", increment).
			AddConditionalEdge("a", nil)
	})
}

// TestGraph_SetEntry tests entry point assignment.
func TestGraph_SetEntry(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		SetEntry("a")

	assert.Equal(t, "a", g.entryPoint)
}
