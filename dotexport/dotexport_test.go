package dotexport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/graph"
	"github.com/vdodev-go/flowmesh/packet"
)

func TestExportIncludesNodesAndEdges(t *testing.T) {
	g := graph.New("TestGraph")
	_, err := g.CreateNode("Node 1", true, true)
	require.NoError(t, err)
	_, err = g.CreateNode("Node 2", true, true)
	require.NoError(t, err)
	_, err = g.CreateNode("Node 3", true, true)
	require.NoError(t, err)

	_, err = g.Connect("Node 1", packet.Channel("onNode1Output"), "Node 2", graph.DirectToTarget)
	require.NoError(t, err)
	_, err = g.Connect("Node 1", packet.Channel("onNode1ProducedSomethingElse"), "Node 3", graph.DirectToTarget)
	require.NoError(t, err)
	_, err = g.Connect("Node 2", packet.Channel("onNode2Output"), "Node 3", graph.DirectToTarget)
	require.NoError(t, err)

	out, err := Export(g)
	require.NoError(t, err)

	assert.Contains(t, out, "strict digraph")
	assert.Contains(t, out, "TestGraph")
	assert.Contains(t, out, "Node 1")
	assert.Contains(t, out, "Node 2")
	assert.Contains(t, out, "Node 3")
	assert.Contains(t, out, "onNode1Output")
	assert.Contains(t, out, "onNode1ProducedSomethingElse")
	assert.Contains(t, out, "onNode2Output")
}

func TestExportEmptyGraph(t *testing.T) {
	g := graph.New("Empty")
	out, err := Export(g)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Empty"))
}

func TestExportOmitsRemovedNode(t *testing.T) {
	g := graph.New("G")
	_, err := g.CreateNode("A", true, true)
	require.NoError(t, err)
	_, err = g.CreateNode("B", true, true)
	require.NoError(t, err)
	_, err = g.Connect("A", packet.Channel("out"), "B", graph.DirectToTarget)
	require.NoError(t, err)

	g.RemoveNode("B")

	out, err := Export(g)
	require.NoError(t, err)
	assert.NotContains(t, out, `"B"`)
}
