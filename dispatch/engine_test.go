package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/graph"
	"github.com/vdodev-go/flowmesh/instance"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// countingSink is a sink-only component recording every packet it
// receives and signaling a channel so tests can wait for delivery
// instead of sleeping.
type countingSink struct {
	component.Base
	mu       sync.Mutex
	received []packet.Packet
	notify   chan struct{}
}

func newCountingSink(name string) *countingSink {
	s := &countingSink{notify: make(chan struct{}, 16)}
	s.Base = component.NewBase(name)
	return s
}

func (s *countingSink) HandlePacket(ctx context.Context, ch packet.Channel, pkt packet.Packet) error {
	s.mu.Lock()
	s.received = append(s.received, pkt)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *countingSink) waitForCount(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		got := len(s.received)
		s.mu.Unlock()
		if got >= n {
			return
		}
		select {
		case <-s.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d packets, got %d", n, got)
		}
	}
}

// oneShotSource pushes an empty packet on "initialized" as soon as it
// is bound a pusher (spec.md §8 scenario S2).
type oneShotSource struct {
	component.Base
}

func (s *oneShotSource) SetSourcePusher(pusher packet.Pusher) {
	s.Base.SetPusher(pusher)
	_ = pusher.Push(packet.Channel("initialized"), packet.New(param.New()))
}

// passThrough is both sink and source: on receiving a packet it emits a
// new packet with an extra parameter on channel "out2" (spec.md §8
// scenario S3).
type passThrough struct {
	component.Base
}

func (p *passThrough) SetSourcePusher(pusher packet.Pusher) {
	p.Base.SetPusher(pusher)
}

func (p *passThrough) HandlePacket(ctx context.Context, ch packet.Channel, pkt packet.Packet) error {
	out := param.New()
	out.Set("k2", "v2")
	return p.Pusher().Push(packet.Channel("out2"), packet.New(out))
}

func newEngineWithGraph(t *testing.T) (*Engine, *graph.Graph) {
	t.Helper()
	g := graph.New("test")
	e := New(g)
	return e, g
}

func TestS1DirectSend(t *testing.T) {
	e, g := newEngineWithGraph(t)
	sinkNode, err := g.CreateNode("Sink", true, false)
	require.NoError(t, err)

	sink := newCountingSink("counting-sink")
	inst := instance.New("counting-sink")
	inst.SetImplementation(sink)
	require.NoError(t, e.BindNode(sinkNode, inst))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	require.NoError(t, e.SendPacket(packet.New(param.New()), sinkNode))
	sink.waitForCount(t, 1)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.received, 1)
}

func TestS2SourceToSink(t *testing.T) {
	e, g := newEngineWithGraph(t)
	sourceNode, err := g.CreateNode("Source", false, true)
	require.NoError(t, err)
	sinkNode, err := g.CreateNode("Sink", true, false)
	require.NoError(t, err)

	_, err = g.Connect("Source", packet.Channel("initialized"), "Sink", graph.DirectToTarget)
	require.NoError(t, err)

	source := &oneShotSource{Base: component.NewBase("one-shot-source")}
	sourceInst := instance.New("one-shot-source")
	sourceInst.SetImplementation(source)

	sink := newCountingSink("counting-sink")
	sinkInst := instance.New("counting-sink")
	sinkInst.SetImplementation(sink)
	require.NoError(t, e.BindNode(sinkNode, sinkInst))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	// Binding the source after Start mirrors the runtime starting
	// before every implementation is wired; the pusher fires as soon as
	// it is bound, not before.
	require.NoError(t, e.BindNode(sourceNode, sourceInst))

	sink.waitForCount(t, 1)
}

func TestS3ParameterAccumulation(t *testing.T) {
	e, g := newEngineWithGraph(t)
	aNode, err := g.CreateNode("A", false, true)
	require.NoError(t, err)
	bNode, err := g.CreateNode("B", true, true)
	require.NoError(t, err)
	cNode, err := g.CreateNode("C", true, false)
	require.NoError(t, err)

	_, err = g.Connect("A", packet.Channel("out"), "B", graph.DirectToTarget)
	require.NoError(t, err)
	_, err = g.Connect("B", packet.Channel("out2"), "C", graph.DirectToTarget)
	require.NoError(t, err)

	b := &passThrough{Base: component.NewBase("pass-through")}
	bInst := instance.New("pass-through")
	bInst.SetImplementation(b)
	require.NoError(t, e.BindNode(bNode, bInst))

	c := newCountingSink("c-sink")
	cInst := instance.New("c-sink")
	cInst.SetImplementation(c)
	require.NoError(t, e.BindNode(cNode, cInst))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	p := param.New()
	p.Set("k1", "v1")
	require.NoError(t, e.push(aNode, packet.Channel("out"), packet.New(p)))

	c.waitForCount(t, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	v1, ok := c.received[0].Parameters.GetString("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v1)
	v2, ok := c.received[0].Parameters.GetString("k2")
	assert.True(t, ok)
	assert.Equal(t, "v2", v2)
}

func TestDropOnNoMatchingEdge(t *testing.T) {
	e, g := newEngineWithGraph(t)
	aNode, err := g.CreateNode("A", false, true)
	require.NoError(t, err)

	var dropped []string
	done := make(chan struct{}, 1)
	e.OnDrop(func(reason string, info PushedPacketInfo) {
		dropped = append(dropped, reason)
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	require.NoError(t, e.push(aNode, packet.Channel("nowhere"), packet.New(param.New())))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drop hook")
	}
	assert.NotEmpty(t, dropped)
}

func TestBindNodeRejectsIncompatibleCapability(t *testing.T) {
	e, g := newEngineWithGraph(t)
	node, err := g.CreateNode("X", true, true)
	require.NoError(t, err)

	inst := instance.New("nothing")
	inst.SetImplementation(struct{}{})

	err = e.BindNode(node, inst)
	require.Error(t, err)
}

// sinkAndPathable wrongly declares both component.Sink and
// component.Pathable, which spec.md §3 forbids: "pathable is mutually
// exclusive with sink and source".
type sinkAndPathable struct {
	component.Base
}

func (s *sinkAndPathable) HandlePacket(ctx context.Context, ch packet.Channel, pkt packet.Packet) error {
	return nil
}

func (s *sinkAndPathable) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	return nil
}

func TestBindNodeRejectsSinkAndPathableTogether(t *testing.T) {
	e, g := newEngineWithGraph(t)
	node, err := g.CreateNode("X", true, true)
	require.NoError(t, err)

	inst := instance.New("sink-and-pathable")
	inst.SetImplementation(&sinkAndPathable{Base: component.NewBase("sink-and-pathable")})

	err = e.BindNode(node, inst)
	require.Error(t, err)
}

// pathableOnly is a well-formed pathable-only component, used to verify
// one Instance can be bound to several graph nodes (spec.md §3's
// (instance, pathableId) multiplexing) without tripping the
// source-capable "bind at most once" rule, which only applies to
// component.Source.
type pathableOnly struct {
	component.Base
}

func (p *pathableOnly) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	return nil
}

func TestBindNodeAllowsOnePathableInstanceOnMultipleNodes(t *testing.T) {
	e, g := newEngineWithGraph(t)
	nodeA, err := g.CreateNode("A", true, true)
	require.NoError(t, err)
	nodeB, err := g.CreateNode("B", true, true)
	require.NoError(t, err)

	inst := instance.New("shared-pathable")
	inst.SetImplementation(&pathableOnly{Base: component.NewBase("shared-pathable")})

	require.NoError(t, e.BindNode(nodeA, inst))
	require.NoError(t, e.BindNode(nodeB, inst))
}

func TestPushToRemovedNodeIsNoop(t *testing.T) {
	e, g := newEngineWithGraph(t)
	node, err := g.CreateNode("A", false, true)
	require.NoError(t, err)

	e.RemoveNode(node)

	err = e.push(node, packet.Channel("out"), packet.New(param.New()))
	assert.NoError(t, err)
}
