package nodes

import (
	"context"
	"fmt"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
)

// ParameterRouter forwards every incoming packet unchanged to a channel
// named by the value of a configured parameter key, letting the textual
// graph description's static edges act as a dynamic dispatch table
// (spec.md §8 scenario S4). Grounded on original_source's
// src/nodes/ParameterRouter.cpp.
type ParameterRouter struct {
	component.Base
	routingKey string
}

// NewParameterRouter constructs a ParameterRouter keyed on routingKey
// (a param.Parameters path, e.g. "tag").
func NewParameterRouter(routingKey string) (*ParameterRouter, error) {
	if routingKey == "" {
		return nil, errs.Wrap("parameter router requires a non-empty routing key", errs.ErrMalformedGraph)
	}
	r := &ParameterRouter{routingKey: routingKey}
	r.Base = component.NewBase("Parameter Router")
	return r, nil
}

func (r *ParameterRouter) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	v, ok := pp.Packet.Parameters.GetString(r.routingKey)
	if !ok {
		return errs.Wrap(fmt.Sprintf("packet missing routing key %q", r.routingKey), errs.ErrMissingRoutingKey)
	}
	return pp.Pusher.Push(packet.Channel(v), pp.Packet)
}
