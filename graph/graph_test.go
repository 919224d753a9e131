package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
)

func mustCreate(t *testing.T, g *Graph, name string, in, out bool) *Node {
	t.Helper()
	n, err := g.CreateNode(name, in, out)
	require.NoError(t, err)
	return n
}

func TestCreateNodeDuplicate(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", true, true)

	_, err := g.CreateNode("a", true, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))
}

func TestConnectAndGetNode(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)

	edge, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)
	assert.Equal(t, packet.Channel("out"), edge.Channel)

	a, ok := g.GetNode("a")
	require.True(t, ok)
	edges := a.ForwardEdges("out")
	require.Len(t, edges, 1)
	assert.Equal(t, "b", edges[0].Next.Name)

	b, _ := g.GetNode("b")
	assert.Equal(t, 1, b.BackEdgeCount())
}

func TestConnectIdempotent(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)

	e1, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)
	e2, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)
	assert.Same(t, e1, e2)

	a, _ := g.GetNode("a")
	assert.Len(t, a.ForwardEdges("out"), 1)

	b, _ := g.GetNode("b")
	assert.Equal(t, 1, b.BackEdgeCount())
}

func TestConnectUnknownNode(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)

	_, err := g.Connect("a", packet.Channel("out"), "missing", DirectToTarget)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnknownNode))
}

func TestConnectEmptyChannel(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)

	_, err := g.Connect("a", packet.Channel(""), "b", DirectToTarget)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMalformedGraph))
}

func TestConnectIncompatibleCapability(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, false) // no outgoing
	mustCreate(t, g, "b", false, false) // no incoming

	_, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIncompatibleCapability))
}

func TestDisconnectRemovesBothEdges(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)
	_, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)

	require.NoError(t, g.Disconnect("a", packet.Channel("out"), "b"))

	a, _ := g.GetNode("a")
	assert.Empty(t, a.ForwardEdges("out"))
	b, _ := g.GetNode("b")
	assert.Equal(t, 0, b.BackEdgeCount())
}

func TestDisconnectNoOpWhenAbsent(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)

	assert.NoError(t, g.Disconnect("a", packet.Channel("out"), "b"))
}

func TestCleanUpEmptyEdges(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)
	_, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)
	require.NoError(t, g.Disconnect("a", packet.Channel("out"), "b"))

	g.CleanUpEmptyEdges()

	a, _ := g.GetNode("a")
	assert.NotContains(t, a.forwardEdges, packet.Channel("out"))
}

func TestRemoveNodePurgesBackEdgeLazily(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, false)
	_, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)

	g.RemoveNode("a")
	_, ok := g.GetNode("a")
	assert.False(t, ok)

	b, _ := g.GetNode("b")
	assert.Equal(t, 1, b.BackEdgeCount(), "back edge purged lazily, not immediately")

	g.CleanUpEmptyEdges()
	assert.Equal(t, 0, b.BackEdgeCount())
}

func TestVisitNodesHeadsLast(t *testing.T) {
	g := New("g")
	mustCreate(t, g, "a", false, true)
	mustCreate(t, g, "b", true, true)
	mustCreate(t, g, "c", true, false)
	_, err := g.Connect("a", packet.Channel("out"), "b", DirectToTarget)
	require.NoError(t, err)
	_, err = g.Connect("b", packet.Channel("out"), "c", DirectToTarget)
	require.NoError(t, err)

	var order []string
	g.VisitNodesHeadsLast(func(n *Node) {
		order = append(order, n.Name)
	})

	require.Len(t, order, 3)
	// "a" has no back edges, so it must come after both "b" and "c".
	posA, posB, posC := indexOf(order, "a"), indexOf(order, "b"), indexOf(order, "c")
	assert.Greater(t, posA, posB)
	assert.Greater(t, posA, posC)
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
