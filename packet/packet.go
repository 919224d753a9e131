// Package packet defines the unit of data flowing along a channel: a
// Packet (structured parameters plus an ordered list of binary buffers)
// and PathablePacket, the reply-capable envelope delivered to pathable
// components (spec.md §4.3, §4.4).
package packet

import (
	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/param"
)

// Packet is the value carried across a channel: a Parameters tree plus
// zero or more ordered binary buffers. The zero value is an empty packet
// ready to use.
type Packet struct {
	Parameters param.Parameters
	Buffers    []buffer.Buffer
}

// New builds a Packet from parameters and buffers. Buffers are taken by
// reference (not copied); buffer.Buffer itself is a cheap, refcounted
// view so this is safe to call with buffers shared across packets.
func New(parameters param.Parameters, buffers ...buffer.Buffer) Packet {
	return Packet{Parameters: parameters, Buffers: buffers}
}

// Channel identifies a named edge out of a graph node. The zero value
// (empty string) is never a valid channel name; spec.md §4.1 requires
// edge labels to be non-empty.
type Channel string

// Valid reports whether c is a non-empty channel name.
func (c Channel) Valid() bool {
	return c != ""
}

// PathableId names one of a pathable component's entry points — the
// multiplexed "port" a packet is pushed into. Unlike Channel, which
// labels outgoing edges, PathableId labels incoming routes on the
// destination side (spec.md §4.4).
type PathableId string

// Pusher delivers a packet to whatever channel routing decides it
// belongs on. Implementations must be safe to call concurrently from any
// goroutine, since a node may be handed its own SourcePusher and invoke
// it from a worker pool or I/O callback outside the dispatch loop
// (spec.md §5).
type Pusher interface {
	// Push enqueues packet for delivery to the named channel. It never
	// blocks on downstream processing; it only blocks as long as it
	// takes to enqueue.
	Push(channel Channel, packet Packet) error
}

// PathablePacket is what a pathable component receives: the delivered
// packet bundled with a Pusher bound to the receiving pathable node's
// own outgoing edges, so a reply can be routed without the component
// needing to know who it was called by (spec.md §4.4).
type PathablePacket struct {
	Packet Packet
	Pusher Pusher
}
