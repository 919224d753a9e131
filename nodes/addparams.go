package nodes

import (
	"context"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// ChannelAddedParameters is where AddParameters pushes its result.
const ChannelAddedParameters = packet.Channel("Added Parameters")

// AddParameters merges a fixed set of parameters, given at construction
// time, onto every packet it receives. Grounded on original_source's
// src/nodes/AddParametersNode.cpp.
type AddParameters struct {
	component.Base
	toAdd param.Parameters
}

// NewAddParameters constructs an AddParameters pathable that merges
// toAdd onto every incoming packet's parameters, toAdd's keys winning
// on conflict.
func NewAddParameters(toAdd param.Parameters) *AddParameters {
	a := &AddParameters{toAdd: toAdd}
	a.Base = component.NewBase("Add Parameters")
	return a
}

func (a *AddParameters) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	merged := param.Merge(pp.Packet.Parameters, a.toAdd)
	out := packet.New(merged, pp.Packet.Buffers...)
	return pp.Pusher.Push(ChannelAddedParameters, out)
}
