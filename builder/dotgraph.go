package builder

import (
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/iterator"
)

// dotNode and dotEdge adapt flowmesh's textual node/edge attributes onto
// gonum's graph.Node/graph.Edge plus the encoding.AttributeSetter and
// dot.DOTIDSetter hooks dot.Unmarshal uses to report parsed "key=value"
// attribute lists and quoted node identifiers back to the caller.
type dotNode struct {
	id    int64
	dotID string
	attrs map[string]string
}

func (n *dotNode) ID() int64          { return n.id }
func (n *dotNode) SetDOTID(id string) { n.dotID = id }

func (n *dotNode) SetAttribute(attr encoding.Attribute) error {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[attr.Key] = attr.Value
	return nil
}

type dotEdge struct {
	from, to *dotNode
	channel  string
}

func (e *dotEdge) From() gonumgraph.Node { return e.from }
func (e *dotEdge) To() gonumgraph.Node   { return e.to }

func (e *dotEdge) ReversedEdge() gonumgraph.Edge {
	return &dotEdge{from: e.to, to: e.from, channel: e.channel}
}

func (e *dotEdge) SetAttribute(attr encoding.Attribute) error {
	if attr.Key == "label" {
		e.channel = attr.Value
	}
	return nil
}

// dotBuilder is a minimal graph.Builder that collects the nodes and
// edges gonum's dot.Unmarshal parses out of a textual description,
// before they are translated into a flowmesh graph.Graph plus
// instance.Instance bindings by Build.
type dotBuilder struct {
	nodes  map[int64]*dotNode
	byDOT  map[string]*dotNode
	edges  []*dotEdge
	nextID int64
}

func newDotBuilder() *dotBuilder {
	return &dotBuilder{
		nodes: make(map[int64]*dotNode),
		byDOT: make(map[string]*dotNode),
	}
}

func (b *dotBuilder) NewNode() gonumgraph.Node {
	n := &dotNode{id: b.nextID}
	b.nextID++
	return n
}

func (b *dotBuilder) AddNode(n gonumgraph.Node) {
	dn := n.(*dotNode)
	b.nodes[dn.id] = dn
	if dn.dotID != "" {
		b.byDOT[dn.dotID] = dn
	}
}

func (b *dotBuilder) NewEdge(from, to gonumgraph.Node) gonumgraph.Edge {
	return &dotEdge{from: from.(*dotNode), to: to.(*dotNode)}
}

func (b *dotBuilder) SetEdge(e gonumgraph.Edge) {
	b.edges = append(b.edges, e.(*dotEdge))
}

func (b *dotBuilder) Node(id int64) gonumgraph.Node {
	n, ok := b.nodes[id]
	if !ok {
		return nil
	}
	return n
}

func (b *dotBuilder) Nodes() gonumgraph.Nodes {
	ns := make([]gonumgraph.Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		ns = append(ns, n)
	}
	return iterator.NewOrderedNodes(ns)
}

func (b *dotBuilder) From(id int64) gonumgraph.Nodes {
	var ns []gonumgraph.Node
	for _, e := range b.edges {
		if e.from.id == id {
			ns = append(ns, e.to)
		}
	}
	return iterator.NewOrderedNodes(ns)
}

func (b *dotBuilder) HasEdgeBetween(xid, yid int64) bool {
	for _, e := range b.edges {
		if (e.from.id == xid && e.to.id == yid) || (e.from.id == yid && e.to.id == xid) {
			return true
		}
	}
	return false
}

func (b *dotBuilder) Edge(uid, vid int64) gonumgraph.Edge {
	for _, e := range b.edges {
		if e.from.id == uid && e.to.id == vid {
			return e
		}
	}
	return nil
}
