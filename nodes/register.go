package nodes

import (
	"fmt"

	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/factory"
	"github.com/vdodev-go/flowmesh/nodes/kvstore"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Register adds every support component this package provides to reg
// under its original_source type name, so a graph built from a textual
// description can reference them by name in its implementation-binding
// JSON. Matches original_source's process-global registration with an
// explicit call the host makes once at startup instead (spec.md §9's
// "process-global factory registry becomes an explicit registry value").
//
// SendOnce and OffLoopWorker are deliberately absent: both take
// constructor arguments (a fixed payload packet, a Work closure) that
// have no representation in initParameters JSON, so they stay
// programmatic-only, wired directly by Go code that builds a graph
// rather than by a textual implementation binding.
func Register(reg *factory.Registry) error {
	registrations := []factory.Registration{
		{
			Name:        "Add Parameters",
			Description: "merges a fixed set of parameters onto every incoming packet",
			New: func(p param.Parameters) (any, error) {
				return NewAddParameters(p), nil
			},
		},
		{
			Name:        "Parameter Extractor",
			Description: "extracts a single named parameter into a new packet",
			New: func(p param.Parameters) (any, error) {
				key, ok := p.GetString("extractParameter")
				if !ok {
					return nil, errs.Wrap("Parameter Extractor requires initParameters.extractParameter", errs.ErrMalformedGraph)
				}
				return NewParameterExtractor(key), nil
			},
		},
		{
			Name:        "Parameter Router",
			Description: "forwards a packet to a channel named by one of its parameters",
			New: func(p param.Parameters) (any, error) {
				key, ok := p.GetString("routingKey")
				if !ok {
					return nil, errs.Wrap("Parameter Router requires initParameters.routingKey", errs.ErrMalformedGraph)
				}
				return NewParameterRouter(key)
			},
		},
		{
			Name:        "Pass Through",
			Description: "relabels every incoming packet onto a fixed output channel",
			New: func(p param.Parameters) (any, error) {
				ch, ok := p.GetString("outputChannel")
				if !ok {
					return nil, errs.Wrap("Pass Through requires initParameters.outputChannel", errs.ErrMalformedGraph)
				}
				return NewPassThrough(packet.Channel(ch)), nil
			},
		},
		{
			Name:        "Ordered Packet Sender",
			Description: "re-emits each packet on both a first and a last channel",
			New: func(p param.Parameters) (any, error) {
				return NewOrderedPacketSender(), nil
			},
		},
		{
			Name:        "Buffer Accumulator",
			Description: "group of append/send/clear sub-interfaces sharing buffer slots",
			New: func(p param.Parameters) (any, error) {
				return NewBufferAccumulator(), nil
			},
		},
		{
			Name:        "Volatile Key Value Store",
			Description: "in-memory set/get store keyed by a configured parameter",
			New: func(p param.Parameters) (any, error) {
				key, ok := p.GetString("key")
				if !ok {
					return nil, errs.Wrap("Volatile Key Value Store requires initParameters.key", errs.ErrMalformedGraph)
				}
				retain, _ := p.Get("retainBuffers")
				retainBuffers, _ := retain.(bool)
				return kvstore.New(key, retainBuffers), nil
			},
		},
	}

	for _, reg2 := range registrations {
		if err := reg.Register(reg2); err != nil {
			return fmt.Errorf("nodes: registering %q: %w", reg2.Name, err)
		}
	}
	return nil
}
