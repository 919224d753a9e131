package dispatch

import (
	"github.com/vdodev-go/flowmesh/graph"
	"github.com/vdodev-go/flowmesh/packet"
)

// enginePusher is the Pusher handed to a source- or pathable-capable
// component: it is weakly tied to the node it serves (spec.md §4.4) —
// pushing after the node has been removed from the graph is a no-op
// rather than an error, since the component has no other way to learn
// its node disappeared mid-flight.
type enginePusher struct {
	engine *Engine
	node   *graph.Node
}

// Push implements packet.Pusher. Safe to call from any goroutine.
func (p *enginePusher) Push(channel packet.Channel, pkt packet.Packet) error {
	return p.engine.push(p.node, channel, pkt)
}
