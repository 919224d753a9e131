package router

import (
	"context"
	"fmt"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Remover is the paired sub-component that tears down a Router's inner
// instances: a packet carrying the configured routing key removes that
// key's instance and emits a "Removed Key" packet on channel "removed"
// echoing the key (spec.md §4.5, §8 scenario S5). Removing an absent
// key is a silent no-op — no packet is emitted.
type Remover struct {
	component.Base
	router *Router
}

// NewRemover binds a Remover to router.
func NewRemover(router *Router) *Remover {
	r := &Remover{router: router}
	r.Base = component.NewBase("router-remover:" + router.templateTypeName)
	return r
}

// SetSourcePusher implements component.Source: Remover is a sink that
// also emits out-of-band, so it declares the capability explicitly
// rather than relying on Base's storage alone (component.Base doc).
func (r *Remover) SetSourcePusher(pusher packet.Pusher) {
	r.Base.SetPusher(pusher)
}

// HandlePacket implements component.Sink.
func (r *Remover) HandlePacket(ctx context.Context, ch packet.Channel, pkt packet.Packet) error {
	key, err := r.router.routingKey(pkt)
	if err != nil {
		return err
	}
	if !r.router.Remove(key) {
		return nil
	}

	out := param.New()
	out.Set("removedKey", key)
	pusher := r.Pusher()
	if pusher == nil {
		return errs.Wrap(fmt.Sprintf("remover: no pusher bound, dropping Removed Key for %q", key), errs.ErrClosed)
	}
	return pusher.Push(packet.Channel("removed"), packet.New(out))
}
