// Package graph implements pure topology: named nodes connected by
// channel-keyed edges, with lazy back-edge cleanup and a visitor API
// for head-last traversal. Graph holds no dispatch logic — it answers
// "what connects to what", nothing about delivery (spec.md §4.1,
// grounded on original_source's graph/Graph.h and GraphImpl.h, whose
// adjacency-map-of-weak-back-edges shape maps directly onto a Go map
// keyed by node name).
package graph

import (
	"fmt"

	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// DeliveryMode selects whether an edge's delivery may bypass the
// dispatch queue when the producer already runs on the loop thread
// (spec.md §4.3.3).
type DeliveryMode int

const (
	// DirectToTarget permits tail-call delivery when the producer is
	// already executing on the loop thread.
	DirectToTarget DeliveryMode = iota
	// AlwaysQueue forces every push on this edge through the dispatch
	// queue, bounding stack depth and letting re-entrant pushers
	// interleave.
	AlwaysQueue
)

// Edge is one forward connection out of a node, labelled by channel.
type Edge struct {
	Channel      packet.Channel
	Next         *Node
	DeliveryMode DeliveryMode
}

// Node is a point in the graph topology, identified by name. Node
// carries the runtime-visible state the dispatch engine needs
// (pusher, lastReceivedParameters) alongside pure topology
// (forward/back edges), since spec.md §3 defines GraphNode as the
// union of both — splitting them into separate maps keyed by the same
// name would only reintroduce the lookup this package exists to avoid.
type Node struct {
	Name           string
	AllowsIncoming bool
	AllowsOutgoing bool
	InstanceName   string

	// Pusher is bound by the dispatch engine once this node's instance
	// resolves to a source- or pathable-capable implementation.
	Pusher packet.Pusher

	// LastReceivedParameters holds the most recent packet parameters
	// observed entering this node, used for downstream parameter
	// accumulation (spec.md §4.3.1).
	LastReceivedParameters param.Parameters

	// backEdges holds every node with a forward edge into this one.
	// These are "weak" in the sense spec.md intends: the graph is the
	// sole owner of every Node (via the name map in Graph), and
	// backEdges exists purely for cleanup bookkeeping — it must never
	// be treated as an ownership reference, and dead entries (nodes
	// removed from the graph) are purged lazily by CleanUpEmptyEdges
	// and Connect.
	backEdges []*Node
	removed   bool

	// forwardEdges buckets outgoing edges by channel.
	forwardEdges map[packet.Channel][]Edge
}

func newNode(name string, allowsIncoming, allowsOutgoing bool) *Node {
	return &Node{
		Name:           name,
		AllowsIncoming: allowsIncoming,
		AllowsOutgoing: allowsOutgoing,
		forwardEdges:   make(map[packet.Channel][]Edge),
	}
}

// ForwardEdges returns the edges registered on the given channel, or
// nil if none. The returned slice must be treated as read-only.
func (n *Node) ForwardEdges(channel packet.Channel) []Edge {
	return n.forwardEdges[channel]
}

// AllForwardEdges returns every forward edge regardless of channel, in
// unspecified order. Used by dot export, which needs to walk every edge
// without knowing channel names up front.
func (n *Node) AllForwardEdges() []Edge {
	var all []Edge
	for _, edges := range n.forwardEdges {
		all = append(all, edges...)
	}
	return all
}

// BackEdgeCount returns the number of (possibly stale) back edges. Used
// by VisitNodesHeadsLast to classify nodes into "has back edges" vs
// "head" groups without exposing the slice itself.
func (n *Node) BackEdgeCount() int {
	return len(n.backEdges)
}

// Removed reports whether this node has been taken out of its graph via
// RemoveNode. A pusher or dispatch record holding a pointer to a removed
// node treats it as a silent no-op / drop target rather than an error
// (spec.md §4.3.5, §4.4).
func (n *Node) Removed() bool {
	return n.removed
}

// Graph is a named-node topology: a map from node name to Node, plus
// the operations spec.md §4.1 requires. All methods are documented as
// loop-thread-only, matching spec.md §5's restriction that graph
// mutation happens exclusively on the dispatch loop thread; Graph adds
// no internal locking, mirroring the original's own lack of one.
type Graph struct {
	name  string
	nodes map[string]*Node
}

// New creates an empty, named Graph.
func New(name string) *Graph {
	return &Graph{name: name, nodes: make(map[string]*Node)}
}

// Name returns the graph's name, used by the dot exporter as the
// `strict digraph NAME` header.
func (g *Graph) Name() string {
	return g.name
}

// CreateNode adds a new node. Returns errs.ErrAlreadyExists if name is
// already taken.
func (g *Graph) CreateNode(name string, allowsIncoming, allowsOutgoing bool) (*Node, error) {
	if _, exists := g.nodes[name]; exists {
		return nil, errs.Wrap(fmt.Sprintf("creating node %q", name), errs.ErrAlreadyExists)
	}
	n := newNode(name, allowsIncoming, allowsOutgoing)
	g.nodes[name] = n
	return n, nil
}

// GetNode looks up a node by name.
func (g *Graph) GetNode(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Connect creates a forward edge from→channel→to, idempotently: if an
// identical (from, channel, to) edge already exists it is returned
// unchanged rather than duplicated (spec.md §4.1, §8 property 4). Both
// endpoints must already exist; channel must be non-empty; from must
// allow outgoing and to must allow incoming, or ErrIncompatibleCapability
// is returned before any edge is created.
func (g *Graph) Connect(fromName string, channel packet.Channel, toName string, mode DeliveryMode) (*Edge, error) {
	if !channel.Valid() {
		return nil, errs.Wrap("connect: channel label must be non-empty", errs.ErrMalformedGraph)
	}
	from, ok := g.nodes[fromName]
	if !ok {
		return nil, errs.Wrap(fmt.Sprintf("connect: unknown source node %q", fromName), errs.ErrUnknownNode)
	}
	to, ok := g.nodes[toName]
	if !ok {
		return nil, errs.Wrap(fmt.Sprintf("connect: unknown destination node %q", toName), errs.ErrUnknownNode)
	}
	if !from.AllowsOutgoing {
		return nil, errs.Wrap(fmt.Sprintf("connect: %q does not allow outgoing edges", fromName), errs.ErrIncompatibleCapability)
	}
	if !to.AllowsIncoming {
		return nil, errs.Wrap(fmt.Sprintf("connect: %q does not allow incoming edges", toName), errs.ErrIncompatibleCapability)
	}

	for i := range from.forwardEdges[channel] {
		existing := &from.forwardEdges[channel][i]
		if existing.Next == to {
			return existing, nil
		}
	}

	edge := Edge{Channel: channel, Next: to, DeliveryMode: mode}
	from.forwardEdges[channel] = append(from.forwardEdges[channel], edge)
	to.backEdges = purgeDead(append(to.backEdges, from))

	idx := len(from.forwardEdges[channel]) - 1
	return &from.forwardEdges[channel][idx], nil
}

// Disconnect removes the forward edge from→channel→to and the
// corresponding back edge. A no-op if no such edge exists.
func (g *Graph) Disconnect(fromName string, channel packet.Channel, toName string) error {
	from, ok := g.nodes[fromName]
	if !ok {
		return errs.Wrap(fmt.Sprintf("disconnect: unknown source node %q", fromName), errs.ErrUnknownNode)
	}
	to, ok := g.nodes[toName]
	if !ok {
		return errs.Wrap(fmt.Sprintf("disconnect: unknown destination node %q", toName), errs.ErrUnknownNode)
	}

	edges := from.forwardEdges[channel]
	found := false
	for i, e := range edges {
		if e.Next == to {
			from.forwardEdges[channel] = append(edges[:i], edges[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	if len(from.forwardEdges[channel]) == 0 {
		delete(from.forwardEdges, channel)
	}

	for i, b := range to.backEdges {
		if b == from {
			to.backEdges = append(to.backEdges[:i], to.backEdges[i+1:]...)
			break
		}
	}
	return nil
}

// RemoveNode deletes a node from the graph entirely, dropping every
// forward edge it owns. Back edges pointing to it are left for lazy
// cleanup (CleanUpEmptyEdges, or the next Connect into the same
// destination), matching spec.md §4.3.5's "any already-enqueued packet whose
// target is the removed node is silently dropped on delivery attempt" —
// the dispatch engine, not Graph, is what makes that drop safe; Graph
// only needs to stop resolving the name and mark the node so stale
// back-edge pointers can recognize it as gone.
func (g *Graph) RemoveNode(name string) {
	n, ok := g.nodes[name]
	if !ok {
		return
	}
	n.removed = true
	n.forwardEdges = make(map[packet.Channel][]Edge)
	delete(g.nodes, name)
}

// purgeDead drops back-edge entries pointing at nodes that have been
// removed from the graph.
func purgeDead(backEdges []*Node) []*Node {
	filtered := backEdges[:0]
	for _, n := range backEdges {
		if !n.removed {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

// CleanUpEmptyEdges drops forward-edge channel buckets whose slice has
// become empty and purges expired back edges on every node.
func (g *Graph) CleanUpEmptyEdges() {
	for _, n := range g.nodes {
		for ch, edges := range n.forwardEdges {
			if len(edges) == 0 {
				delete(n.forwardEdges, ch)
			}
		}
		n.backEdges = purgeDead(n.backEdges)
	}
}

// Visitor is called once per node during a traversal.
type Visitor func(n *Node)

// VisitNodes calls visit once for every node in the graph, in
// unspecified order.
func (g *Graph) VisitNodes(visit Visitor) {
	for _, n := range g.nodes {
		visit(n)
	}
}

// VisitNodesHeadsLast calls visit for every node with at least one back
// edge first, then every node with none ("heads"). Ordering within each
// group is unspecified — spec.md §9 leaves the exact order an open
// question and explicitly warns against relying on one, so this uses
// whatever order Go's map iteration gives within each group.
func (g *Graph) VisitNodesHeadsLast(visit Visitor) {
	var heads []*Node
	for _, n := range g.nodes {
		if n.BackEdgeCount() > 0 {
			visit(n)
		} else {
			heads = append(heads, n)
		}
	}
	for _, n := range heads {
		visit(n)
	}
}
