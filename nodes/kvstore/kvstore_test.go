package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

type recordingPusher struct {
	channel packet.Channel
	packet  packet.Packet
	called  bool
}

func (r *recordingPusher) Push(channel packet.Channel, pkt packet.Packet) error {
	r.channel = channel
	r.packet = pkt
	r.called = true
	return nil
}

func TestSetThenGet(t *testing.T) {
	store := New("sessionId", true)
	setIface, ok := store.Interface(InterfaceSet)
	require.True(t, ok)
	getIface, ok := store.Interface(InterfaceGet)
	require.True(t, ok)

	setParams := param.New()
	setParams.Set("sessionId", "abc")
	setParams.Set("payload", "data")

	ctx := context.Background()
	err := setIface.(*setter).HandlePathablePacket(ctx, "", packet.PathablePacket{
		Packet: packet.New(setParams),
		Pusher: &recordingPusher{},
	})
	require.NoError(t, err)

	getParams := param.New()
	getParams.Set("sessionId", "abc")
	pusher := &recordingPusher{}
	err = getIface.(*getter).HandlePathablePacket(ctx, "", packet.PathablePacket{
		Packet: packet.New(getParams),
		Pusher: pusher,
	})
	require.NoError(t, err)
	require.True(t, pusher.called)
	assert.Equal(t, ChannelGotValue, pusher.channel)

	payload, ok := pusher.packet.Parameters.GetString("payload")
	require.True(t, ok)
	assert.Equal(t, "data", payload)
}

func TestGetMissingKey(t *testing.T) {
	store := New("sessionId", false)
	getIface, _ := store.Interface(InterfaceGet)

	p := param.New()
	p.Set("sessionId", "nope")
	pusher := &recordingPusher{}
	err := getIface.(*getter).HandlePathablePacket(context.Background(), "", packet.PathablePacket{
		Packet: packet.New(p),
		Pusher: pusher,
	})
	require.NoError(t, err)
	assert.Equal(t, ChannelKeyNotFound, pusher.channel)
}

func TestUnknownInterface(t *testing.T) {
	store := New("k", false)
	_, ok := store.Interface("nope")
	assert.False(t, ok)
}
