// Package dotexport serializes a graph.Graph's current topology back to
// the textual "strict digraph" form (spec.md §4.7), the inverse of what
// builder.Build parses. Grounded on original_source's
// src/DotExporter.cpp: visit every node, emit one "from" -> "to"
// [label="channel"] line per forward edge, in a "strict digraph NAME {"
// block. Uses gonum's dot.Marshal over a small read-only
// graph.Graph-shaped adapter rather than hand-building the string, the
// same "delegate structural DOT formatting to gonum" split builder uses
// for parsing.
package dotexport

import (
	"fmt"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/iterator"

	"github.com/vdodev-go/flowmesh/graph"
)

// exportNode adapts a graph.Node into gonum's graph.Node plus the
// dot.DOTIDSetter-compatible interface dot.Marshal consults for the
// quoted node identifier it prints.
type exportNode struct {
	id   int64
	name string
}

func (n *exportNode) ID() int64     { return n.id }
func (n *exportNode) DOTID() string { return n.name }

// exportEdge adapts one graph.Edge into gonum's graph.Edge plus the
// single "label" attribute DotExporter.cpp emits per edge.
type exportEdge struct {
	from, to *exportNode
	channel  string
}

func (e *exportEdge) From() gonumgraph.Node { return e.from }
func (e *exportEdge) To() gonumgraph.Node   { return e.to }
func (e *exportEdge) ReversedEdge() gonumgraph.Edge {
	return &exportEdge{from: e.to, to: e.from, channel: e.channel}
}

func (e *exportEdge) Attributes() []encoding.Attribute {
	if e.channel == "" {
		return nil
	}
	return []encoding.Attribute{{Key: "label", Value: fmt.Sprintf("%q", e.channel)}}
}

// snapshot is a read-only gonum graph.Graph view over a graph.Graph at
// the moment Export is called; it never outlives one call.
type snapshot struct {
	nodes    map[int64]*exportNode
	byName   map[string]*exportNode
	edgesOut map[int64][]*exportEdge
}

func newSnapshot(g *graph.Graph) *snapshot {
	s := &snapshot{
		nodes:    make(map[int64]*exportNode),
		byName:   make(map[string]*exportNode),
		edgesOut: make(map[int64][]*exportEdge),
	}

	var id int64
	g.VisitNodes(func(n *graph.Node) {
		en := &exportNode{id: id, name: n.Name}
		s.nodes[id] = en
		s.byName[n.Name] = en
		id++
	})

	g.VisitNodes(func(n *graph.Node) {
		from := s.byName[n.Name]
		for _, e := range n.AllForwardEdges() {
			to, ok := s.byName[e.Next.Name]
			if !ok {
				continue
			}
			s.edgesOut[from.id] = append(s.edgesOut[from.id], &exportEdge{from: from, to: to, channel: string(e.Channel)})
		}
	})

	return s
}

func (s *snapshot) Node(id int64) gonumgraph.Node {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return n
}

func (s *snapshot) Nodes() gonumgraph.Nodes {
	ns := make([]gonumgraph.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		ns = append(ns, n)
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].(*exportNode).name < ns[j].(*exportNode).name })
	return iterator.NewOrderedNodes(ns)
}

func (s *snapshot) From(id int64) gonumgraph.Nodes {
	edges := s.edgesOut[id]
	ns := make([]gonumgraph.Node, 0, len(edges))
	for _, e := range edges {
		ns = append(ns, e.to)
	}
	return iterator.NewOrderedNodes(ns)
}

func (s *snapshot) HasEdgeBetween(xid, yid int64) bool {
	for _, e := range s.edgesOut[xid] {
		if e.to.id == yid {
			return true
		}
	}
	for _, e := range s.edgesOut[yid] {
		if e.to.id == xid {
			return true
		}
	}
	return false
}

// HasEdgeFromTo and To make snapshot a gonum graph.Directed, which
// dot.Marshal checks before printing "digraph" and "->" edges.
func (s *snapshot) HasEdgeFromTo(uid, vid int64) bool {
	return s.Edge(uid, vid) != nil
}

func (s *snapshot) To(id int64) gonumgraph.Nodes {
	var ns []gonumgraph.Node
	for _, edges := range s.edgesOut {
		for _, e := range edges {
			if e.to.id == id {
				ns = append(ns, e.from)
			}
		}
	}
	return iterator.NewOrderedNodes(ns)
}

func (s *snapshot) Edge(uid, vid int64) gonumgraph.Edge {
	for _, e := range s.edgesOut[uid] {
		if e.to.id == vid {
			return e
		}
	}
	return nil
}

// Export renders g as a "strict digraph" description naming every
// current node and forward edge, suitable for feeding back into
// builder.Build.
func Export(g *graph.Graph) (string, error) {
	s := newSnapshot(g)
	b, err := dot.Marshal(s, g.Name(), "", "    ")
	if err != nil {
		return "", fmt.Errorf("dotexport: marshaling graph %q: %w", g.Name(), err)
	}
	return string(b), nil
}
