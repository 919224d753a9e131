package dispatch

import "github.com/vdodev-go/flowmesh/graph"

// SubgraphAware is implemented by components that need access to a
// SubgraphContext, which offers self-removal, beyond the
// plain capability interfaces in package component (spec.md §9's
// "subgraph context" glossary entry). Engine.BindNode detects this
// interface and calls SetSubgraphContext once, before the component
// starts receiving packets.
type SubgraphAware interface {
	SetSubgraphContext(ctx *SubgraphContext)
}

// SubgraphContext is handed to implementations that declare
// SubgraphAware, granting the ability to request their own removal from
// the graph. It exposes no handle to the dispatch loop itself; the only
// operation it offers is RemoveFromGraph.
type SubgraphContext struct {
	engine *Engine
	node   *graph.Node
}

// RemoveFromGraph removes this context's node from the graph, dropping
// all its edges and its instance binding. Any packet already enqueued
// targeting the node is silently dropped on delivery attempt (spec.md
// §4.3.5).
func (s *SubgraphContext) RemoveFromGraph() {
	s.engine.RemoveNode(s.node)
}

// RemoveNode removes node from the engine's graph and drops its
// instance binding. Safe to call from the loop thread (the usual case,
// via SubgraphContext.RemoveFromGraph) or from a component's own
// goroutine during teardown.
func (e *Engine) RemoveNode(node *graph.Node) {
	e.mu.Lock()
	delete(e.instancesByNode, node)
	e.mu.Unlock()
	e.graph.RemoveNode(node.Name)
}
