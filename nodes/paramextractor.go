package nodes

import (
	"context"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// ChannelExtractedParameter is where ParameterExtractor pushes its
// result.
const ChannelExtractedParameter = packet.Channel("Extracted Parameter")

// ParameterExtractor pulls a single named parameter out of every
// incoming packet and pushes a new packet carrying only that value,
// dropping packets that lack the key. Grounded on original_source's
// src/nodes/ParameterExtractor.cpp, which extracts via a JSON pointer;
// this looks the key up with param.Parameters.Get, so a "/"-separated
// path reaches nested values the same way the routing nodes' keys do.
type ParameterExtractor struct {
	component.Base
	key string
}

// NewParameterExtractor constructs a ParameterExtractor that pulls key
// out of every incoming packet's parameters.
func NewParameterExtractor(key string) *ParameterExtractor {
	p := &ParameterExtractor{key: key}
	p.Base = component.NewBase("Parameter Extractor")
	return p
}

func (p *ParameterExtractor) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	v, ok := pp.Packet.Parameters.Get(p.key)
	if !ok {
		return nil
	}

	out := param.New()
	if m, ok := v.(map[string]any); ok {
		out = param.FromMap(m)
	} else {
		out.Set("value", v)
	}

	return pp.Pusher.Push(ChannelExtractedParameter, packet.New(out))
}
