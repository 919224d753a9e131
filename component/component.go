// Package component declares the capability interfaces a graph node
// implementation may satisfy — Sink, Source, Pathable, Group — and a
// small embeddable Base that gives a concrete implementation sane
// no-op defaults for the capabilities it doesn't need, following the
// interface-plus-embeddable-base pattern the teacher uses for agent
// implementations (spec.md §3).
package component

import (
	"context"

	"github.com/vdodev-go/flowmesh/packet"
)

// Instantiator is the minimal contract every implementation must
// satisfy: a name used in diagnostics and dot export. All the
// capability interfaces below are optional on top of this.
type Instantiator interface {
	// Name returns the implementation's registered type name.
	Name() string
}

// Sink receives packets pushed to it along an incoming edge. Most graph
// nodes are sinks; it is the primary way data enters a component.
type Sink interface {
	Instantiator

	// HandlePacket processes an incoming packet delivered on the given
	// channel. Implementations must not block the caller for longer
	// than the processing itself requires; long-running work belongs on
	// a worker pool that posts results back through a Pusher obtained
	// from SetSourcePusher or a PathablePacket.
	HandlePacket(ctx context.Context, channel packet.Channel, pkt packet.Packet) error
}

// Source is a component that can emit packets without first receiving
// one, by being handed a Pusher it may call from any goroutine at any
// time (spec.md §5). dispatch.Engine.BindNode calls SetSourcePusher, at
// most once per instance (through Instance.SetSourcePusher).
type Source interface {
	Instantiator

	// SetSourcePusher binds the Pusher this component should use to
	// emit packets. Called exactly once, before the component starts
	// producing; implementations should hold onto pusher for their
	// entire lifetime.
	SetSourcePusher(pusher packet.Pusher)
}

// Pathable is a component whose incoming packets carry their own reply
// route: rather than a plain HandlePacket, it receives a
// PathablePacket bundling the packet with a Pusher scoped to the
// receiving node's own outgoing edges (spec.md §4.4). Context routers and group
// templates are the primary consumers of this capability.
type Pathable interface {
	Instantiator

	// HandlePathablePacket processes a packet delivered on the given
	// pathable id, using pp.Pusher to route any reply.
	HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error
}

// Group is a cohesive collection of sub-instances addressed through a
// named interface (spec.md §4.2's implementationFromGroup /
// instanceToInterfaceMap). A group template's sub-instances are created
// lazily by a context router, which enumerates Names() once at
// construction to build one sub-router per named sub-interface
// (spec.md §4.5).
type Group interface {
	Instantiator

	// Interface returns the sub-instance registered under the given
	// interface name within this group, or ok=false if no such
	// interface is registered.
	Interface(name string) (instance any, ok bool)

	// Names returns every sub-interface name this group exposes, fixed
	// for the lifetime of the group template.
	Names() []string
}

// Base is an embeddable helper that gives a concrete implementation a
// Name() and, for the implementations that need to push packets
// out-of-band, a place to stash a bound Pusher. Embed Base and override
// only the capability interfaces actually needed, mirroring the
// teacher's agent.BaseAgent pattern.
//
// Base deliberately does NOT define SetSourcePusher: since Go interface
// satisfaction is structural, a promoted SetSourcePusher would make
// every Base-embedder satisfy component.Source whether or not that was
// intended, defeating §3's "pathable is mutually exclusive with sink
// and source" rule for any Pathable-only component that embeds Base. A
// type that is genuinely source-capable implements its own
// SetSourcePusher and calls SetPusher from it (see nodes.SendOnce,
// router.Router).
type Base struct {
	name   string
	pusher packet.Pusher
}

// NewBase constructs a Base with the given implementation name.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name implements Instantiator.
func (b *Base) Name() string {
	return b.name
}

// SetPusher stores pusher for later retrieval via Pusher. It is not
// named SetSourcePusher on purpose, so embedding Base alone never
// satisfies component.Source (see the Base doc comment).
func (b *Base) SetPusher(pusher packet.Pusher) {
	b.pusher = pusher
}

// Pusher returns the pusher last bound via SetPusher, or nil if none
// has been bound yet.
func (b *Base) Pusher() packet.Pusher {
	return b.pusher
}
