package nodes

import (
	"context"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
)

// Channel BufferAccumulator's "send" interface pushes on.
const ChannelAccumulatedBuffersReady = packet.Channel("Buffers Ready")

// Interface names exposed by BufferAccumulator's Group.
const (
	InterfaceAppendBuffers          = "Append Buffers"
	InterfaceSendAccumulatedBuffers = "Send Accumulated Buffers"
	InterfaceClearBuffers           = "Clear Buffers"
)

// bufferSlot accumulates bytes appended across multiple packets at a
// fixed positional index, mirroring original_source's per-index
// BufferInfo: the first packet's buffer 0 and a later packet's buffer 0
// append into the same output buffer, not separate ones.
type bufferSlot struct {
	data []byte
}

// BufferAccumulator is a group of three pathables sharing one set of
// positional buffer slots: appending bytes onto them, flushing the
// accumulated bytes as a single outgoing packet, and resetting them.
// Grounded on original_source's src/nodes/BufferAccumulatorNode.cpp
// (spec.md §8 scenario S6).
type BufferAccumulator struct {
	component.Base
	slots    []*bufferSlot
	append   *bufferAppender
	send     *bufferSender
	clear    *bufferClearer
}

// NewBufferAccumulator constructs a BufferAccumulator group exposing
// the "Append Buffers", "Send Accumulated Buffers", and "Clear Buffers"
// sub-interfaces.
func NewBufferAccumulator() *BufferAccumulator {
	b := &BufferAccumulator{}
	b.Base = component.NewBase("Buffer Accumulator")
	b.append = &bufferAppender{acc: b}
	b.append.Base = component.NewBase(InterfaceAppendBuffers)
	b.send = &bufferSender{acc: b}
	b.send.Base = component.NewBase(InterfaceSendAccumulatedBuffers)
	b.clear = &bufferClearer{acc: b}
	b.clear.Base = component.NewBase(InterfaceClearBuffers)
	return b
}

// Interface implements component.Group.
func (b *BufferAccumulator) Interface(name string) (any, bool) {
	switch name {
	case InterfaceAppendBuffers:
		return b.append, true
	case InterfaceSendAccumulatedBuffers:
		return b.send, true
	case InterfaceClearBuffers:
		return b.clear, true
	default:
		return nil, false
	}
}

// Names implements component.Group.
func (b *BufferAccumulator) Names() []string {
	return []string{InterfaceAppendBuffers, InterfaceSendAccumulatedBuffers, InterfaceClearBuffers}
}

func (b *BufferAccumulator) slotAt(i int) *bufferSlot {
	for len(b.slots) <= i {
		b.slots = append(b.slots, &bufferSlot{})
	}
	return b.slots[i]
}

type bufferAppender struct {
	component.Base
	acc *BufferAccumulator
}

func (a *bufferAppender) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	for i, buf := range pp.Packet.Buffers {
		slot := a.acc.slotAt(i)
		slot.data = append(slot.data, buf.Bytes()...)
	}
	return nil
}

type bufferSender struct {
	component.Base
	acc *BufferAccumulator
}

func (s *bufferSender) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	out := make([]buffer.Buffer, len(s.acc.slots))
	for i, slot := range s.acc.slots {
		out[i] = buffer.New(append([]byte(nil), slot.data...))
	}
	return pp.Pusher.Push(ChannelAccumulatedBuffersReady, packet.New(pp.Packet.Parameters, out...))
}

type bufferClearer struct {
	component.Base
	acc *BufferAccumulator
}

func (c *bufferClearer) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	for _, slot := range c.acc.slots {
		slot.data = slot.data[:0]
	}
	return nil
}
