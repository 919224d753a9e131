package nodes

import (
	"context"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
)

// Channels OrderedPacketSender pushes each incoming packet on, in order.
const (
	ChannelFirst = packet.Channel("first")
	ChannelLast  = packet.Channel("last")
)

// OrderedPacketSender re-emits every incoming packet twice, once on
// "first" and once on "last", letting downstream consumers bracket work
// around a single packet's arrival without the sender needing to know
// about both edges. Grounded on original_source's
// src/nodes/OrderedPacketSender.cpp.
type OrderedPacketSender struct {
	component.Base
}

// NewOrderedPacketSender constructs an OrderedPacketSender.
func NewOrderedPacketSender() *OrderedPacketSender {
	o := &OrderedPacketSender{}
	o.Base = component.NewBase("Ordered Packet Sender")
	return o
}

func (o *OrderedPacketSender) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	if err := pp.Pusher.Push(ChannelFirst, pp.Packet); err != nil {
		return err
	}
	return pp.Pusher.Push(ChannelLast, pp.Packet)
}
