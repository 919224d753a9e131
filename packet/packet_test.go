package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/param"
)

func TestNewPacket(t *testing.T) {
	p := param.New()
	p.Set("key", "value")

	pkt := New(p, buffer.FromString("payload"))

	assert.Len(t, pkt.Buffers, 1)
	assert.Equal(t, "payload", string(pkt.Buffers[0].Bytes()))

	v, ok := pkt.Parameters.GetString("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestChannelValid(t *testing.T) {
	assert.True(t, Channel("out").Valid())
	assert.False(t, Channel("").Valid())
}

func TestZeroValuePacket(t *testing.T) {
	var pkt Packet
	assert.Empty(t, pkt.Buffers)
	assert.True(t, pkt.Parameters.IsZero())
}

type recordingPusher struct {
	pushed []Packet
}

func (r *recordingPusher) Push(channel Channel, packet Packet) error {
	r.pushed = append(r.pushed, packet)
	return nil
}

func TestPathablePacket(t *testing.T) {
	pusher := &recordingPusher{}
	pp := PathablePacket{Packet: New(param.New()), Pusher: pusher}

	require := assert.New(t)
	require.NoError(pp.Pusher.Push(Channel("reply"), pp.Packet))
	require.Len(pusher.pushed, 1)
}
