package nodes

import (
	"context"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
)

// PassThrough forwards every incoming packet unchanged to a fixed
// output channel, decided at construction time. Grounded on
// original_source's src/nodes/PassThroughNode.cpp.
type PassThrough struct {
	component.Base
	outputChannel packet.Channel
}

// NewPassThrough constructs a PassThrough that relabels every incoming
// packet onto outputChannel.
func NewPassThrough(outputChannel packet.Channel) *PassThrough {
	p := &PassThrough{outputChannel: outputChannel}
	p.Base = component.NewBase("Pass Through")
	return p
}

func (p *PassThrough) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	return pp.Pusher.Push(p.outputChannel, pp.Packet)
}
