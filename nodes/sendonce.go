package nodes

import (
	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
)

// SendOnce is a one-shot source: as soon as it is bound to a pusher it
// emits a single fixed packet on a fixed channel, then does nothing
// further. Used to seed a graph at startup (spec.md §8 scenario S2's
// one-shot emitter). Grounded on original_source's
// include-private/nodes/SendOnce.h (no accompanying .cpp was retrieved;
// behavior is inferred from the header's ISource-only capability and
// constructor signature, which takes the packet to send).
type SendOnce struct {
	component.Base
	channel packet.Channel
	payload packet.Packet
}

// NewSendOnce constructs a SendOnce that pushes payload on channel as
// soon as SetSourcePusher is called.
func NewSendOnce(channel packet.Channel, payload packet.Packet) *SendOnce {
	s := &SendOnce{channel: channel, payload: payload}
	s.Base = component.NewBase("Send Once")
	return s
}

// SetSourcePusher implements component.Source, firing the one packet
// this component ever sends.
func (s *SendOnce) SetSourcePusher(pusher packet.Pusher) {
	s.Base.SetPusher(pusher)
	_ = pusher.Push(s.channel, s.payload)
}
