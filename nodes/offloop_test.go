package nodes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

type syncPusher struct {
	mu     sync.Mutex
	pushes []recordedPush
	done   chan struct{}
}

func newSyncPusher() *syncPusher {
	return &syncPusher{done: make(chan struct{}, 8)}
}

func (s *syncPusher) Push(channel packet.Channel, pkt packet.Packet) error {
	s.mu.Lock()
	s.pushes = append(s.pushes, recordedPush{channel: channel, packet: pkt})
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *syncPusher) waitForPush(t *testing.T) recordedPush {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for off-loop push")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes[len(s.pushes)-1]
}

func TestOffLoopWorkerRejoinsOnSuccess(t *testing.T) {
	w, err := NewOffLoopWorker(2, func(in []byte) ([]byte, error) {
		out := make([]byte, len(in))
		for i, b := range in {
			out[i] = b + 1
		}
		return out, nil
	})
	require.NoError(t, err)
	defer w.Release()

	pusher := newSyncPusher()
	w.SetSourcePusher(pusher)

	in := packet.New(param.New(), buffer.FromString("AAA"))
	require.NoError(t, w.HandlePacket(context.Background(), packet.Channel("in"), in))

	push := pusher.waitForPush(t)
	assert.Equal(t, ChannelWorkDone, push.channel)
	assert.Equal(t, "BBB", string(push.packet.Buffers[0].Bytes()))
}

func TestOffLoopWorkerRejoinsOnFailure(t *testing.T) {
	w, err := NewOffLoopWorker(1, func(in []byte) ([]byte, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	defer w.Release()

	pusher := newSyncPusher()
	w.SetSourcePusher(pusher)

	in := packet.New(param.New())
	require.NoError(t, w.HandlePacket(context.Background(), packet.Channel("in"), in))

	push := pusher.waitForPush(t)
	assert.Equal(t, errs.ErrorChannel, push.channel)
	name, ok := push.packet.Parameters.GetString("errorName")
	require.True(t, ok)
	assert.Equal(t, errorNameWorkFailed, name)
	msg, ok := push.packet.Parameters.GetString("errorMessage")
	require.True(t, ok)
	assert.Equal(t, "boom", msg)
}
