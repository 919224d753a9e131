package httpcoding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

type recordedPush struct {
	channel packet.Channel
	packet  packet.Packet
}

type recordingPusher struct {
	pushes []recordedPush
}

func (r *recordingPusher) Push(channel packet.Channel, pkt packet.Packet) error {
	r.pushes = append(r.pushes, recordedPush{channel: channel, packet: pkt})
	return nil
}

func TestRequestDecoderParsesCompleteRequest(t *testing.T) {
	raw := "GET /hello HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nworld"

	d := NewRequestDecoder()
	pusher := &recordingPusher{}

	err := d.handle(packet.PathablePacket{
		Packet: packet.New(param.New(), buffer.FromString(raw)),
		Pusher: pusher,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pusher.pushes), 1)

	headerPush := pusher.pushes[0]
	assert.Equal(t, ChannelNewRequest, headerPush.channel)
	method, ok := headerPush.packet.Parameters.GetString(ParamHTTPMethod)
	require.True(t, ok)
	assert.Equal(t, "GET", method)

	path, _ := headerPush.packet.Parameters.GetString(ParamHTTPPath)
	assert.Equal(t, "/hello", path)
}

func TestResponseEncoderWritesStatusLine(t *testing.T) {
	e := NewResponseEncoder()

	p := param.New()
	p.Set(ParamHTTPStatusCode, float64(200))
	pkt := packet.New(p, buffer.FromString("hi"))

	pusher := &recordingPusher{}
	err := e.HandlePathablePacket(context.Background(), "", packet.PathablePacket{
		Packet: pkt,
		Pusher: pusher,
	})
	require.NoError(t, err)
	require.Len(t, pusher.pushes, 1)
	assert.Equal(t, ChannelHTTPData, pusher.pushes[0].channel)

	out := string(pusher.pushes[0].packet.Buffers[0].Bytes())
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "hi")
}
