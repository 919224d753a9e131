// Package dispatch implements the runtime's core: a multi-producer,
// single-consumer packet queue, a loop-thread drain, per-edge delivery,
// and parameter accumulation (spec.md §4.3). It is grounded on
// original_source's DataGraph.h/.cpp, nodes/DataGraphNode.cpp,
// BlockOnEmptyConcurrentQueue.h and UvLoopRunner.h/.cpp for the
// queue-plus-wake-plus-drain shape, and on the teacher's runner/runner.go
// for the "compose components, expose a running engine" packaging.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/graph"
	"github.com/vdodev-go/flowmesh/instance"
	"github.com/vdodev-go/flowmesh/log"
	"github.com/vdodev-go/flowmesh/metrics"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
	"github.com/vdodev-go/flowmesh/telemetry"
)

// PushedPacketInfo is one record on the dispatch queue: either a
// channel-routed push from a node (From + Channel set, DirectTarget
// nil) or a direct send to a specific node (DirectTarget set).
type PushedPacketInfo struct {
	Packet       packet.Packet
	From         *graph.Node
	DirectTarget *graph.Node
	Channel      packet.Channel
}

// DropHook is called whenever the engine discards a packet instead of
// delivering it, e.g. for a host to surface drops without parsing log
// output (grounded on original_source's graph/SignalBroadcaster.cpp
// fan-out notification pattern).
type DropHook func(reason string, info PushedPacketInfo)

// Engine is the runtime's dispatch loop: it owns a Graph's delivery
// semantics (not its topology mutation, which stays on graph.Graph
// directly) plus the instance bindings needed to resolve a node to a
// concrete component implementation.
type Engine struct {
	graph *graph.Graph

	mu    sync.Mutex
	queue []PushedPacketInfo
	wake  chan struct{}

	instancesByNode map[*graph.Node]*instance.Instance

	logger   log.Logger
	clk      clock.Clock
	metrics  *metrics.Metrics
	batchCap int

	onLoop   atomic.Bool
	loopDone chan struct{}
	started  atomic.Bool

	runCtx context.Context

	dropHooksMu sync.Mutex
	dropHooks   []DropHook
}

// New constructs an Engine dispatching over g. The engine does not
// start draining until Start is called.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:           g,
		wake:            make(chan struct{}, 1),
		instancesByNode: make(map[*graph.Node]*instance.Instance),
		logger:          log.Default,
		clk:             clock.WallClock,
		metrics:         metrics.Noop(),
		batchCap:        100,
		loopDone:        make(chan struct{}),
		runCtx:          context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the topology this engine dispatches over.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// OnDrop registers a hook invoked on every dropped packet. Safe to call
// before or after Start.
func (e *Engine) OnDrop(hook DropHook) {
	e.dropHooksMu.Lock()
	defer e.dropHooksMu.Unlock()
	e.dropHooks = append(e.dropHooks, hook)
}

// BindNode associates inst with node: its implementation will receive
// packets delivered to node, and, if source- or pathable-capable, will
// be handed a pusher scoped to node. Returns errs.ErrIncompatibleCapability
// if inst's implementation declares none of {sink, source, pathable}, or
// declares pathable alongside sink or source (spec.md §3's "a component
// must declare at least one" and "pathable is mutually exclusive with
// sink and source").
func (e *Engine) BindNode(node *graph.Node, inst *instance.Instance) error {
	impl := inst.Implementation()
	if err := validateCapability(impl); err != nil {
		return err
	}

	e.mu.Lock()
	e.instancesByNode[node] = inst
	e.mu.Unlock()

	if needsPusher(impl) {
		pusher := e.pusherFor(node)
		// Instance.SetSourcePusher enforces "at most one pusher" for
		// source-capable instances only (spec.md §3); a pathable
		// instance may legitimately be bound to several nodes sharing
		// one instance name (§3's (instance, pathableId) multiplexing),
		// so it must not go through that bookkeeping.
		if source, ok := impl.(component.Source); ok {
			if err := inst.SetSourcePusher(pusher); err != nil {
				return err
			}
			source.SetSourcePusher(pusher)
		}
	}

	if aware, ok := impl.(SubgraphAware); ok {
		aware.SetSubgraphContext(&SubgraphContext{engine: e, node: node})
	}
	return nil
}

func needsPusher(impl any) bool {
	switch impl.(type) {
	case component.Source, component.Pathable:
		return true
	default:
		return false
	}
}

func validateCapability(impl any) error {
	_, isSink := impl.(component.Sink)
	_, isSource := impl.(component.Source)
	_, isPathable := impl.(component.Pathable)
	if !isSink && !isSource && !isPathable {
		return errs.Wrap("binding node: implementation declares no sink/source/pathable capability", errs.ErrIncompatibleCapability)
	}
	if isPathable && (isSink || isSource) {
		return errs.Wrap("binding node: implementation declares pathable alongside sink or source, which are mutually exclusive", errs.ErrIncompatibleCapability)
	}
	return nil
}

func (e *Engine) instanceFor(node *graph.Node) *instance.Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instancesByNode[node]
}

// pusherFor returns node's bound pusher, creating and caching one the
// first time it's needed (e.g. lazily, for a pathable node's reply
// route).
func (e *Engine) pusherFor(node *graph.Node) packet.Pusher {
	if node.Pusher != nil {
		return node.Pusher
	}
	p := &enginePusher{engine: e, node: node}
	node.Pusher = p
	return p
}

// SendPacket enqueues packet for direct delivery to toNode, bypassing
// channel-based edge resolution. toNode must be sink-capable (spec.md
// §4.3.4); otherwise ErrIncompatibleCapability.
func (e *Engine) SendPacket(pkt packet.Packet, toNode *graph.Node) error {
	if toNode == nil || toNode.Removed() {
		return errs.Wrap("sendPacket: unknown or removed target node", errs.ErrUnknownNode)
	}
	inst := e.instanceFor(toNode)
	if inst == nil {
		return errs.Wrap("sendPacket: no instance bound to target node", errs.ErrMissingFactory)
	}
	if _, ok := inst.Implementation().(component.Sink); !ok {
		return errs.Wrap(fmt.Sprintf("sendPacket: target node %q is not sink-capable", toNode.Name), errs.ErrIncompatibleCapability)
	}
	return e.enqueue(PushedPacketInfo{Packet: pkt, DirectTarget: toNode})
}

// push is the shared implementation behind every pusher: accumulate
// parameters against the owning node's last-observed parameters, then
// enqueue a channel-routed record (spec.md §4.3.1, §4.4). A push to a
// node that has been removed from the graph is a silent no-op.
func (e *Engine) push(node *graph.Node, channel packet.Channel, pkt packet.Packet) error {
	if node.Removed() {
		return nil
	}
	merged := pkt
	merged.Parameters = param.Merge(node.LastReceivedParameters, pkt.Parameters)
	return e.enqueue(PushedPacketInfo{Packet: merged, From: node, Channel: channel})
}

func (e *Engine) enqueue(info PushedPacketInfo) error {
	e.mu.Lock()
	e.queue = append(e.queue, info)
	depth := len(e.queue)
	e.mu.Unlock()

	e.metrics.QueueDepth.Set(float64(depth))
	e.signalWake()
	return nil
}

func (e *Engine) signalWake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Start launches the dispatch loop on its own goroutine. The loop runs
// until ctx is cancelled. Start must be called at most once per Engine.
func (e *Engine) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	e.runCtx = ctx
	go e.loop(ctx)
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.loopDone)
	e.signalWake() // drain anything enqueued before Start
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
			e.drainOnce()
		}
	}
}

// drainOnce processes up to batchCap queued records. If more remain, it
// re-signals the wake channel so the loop keeps draining without
// waiting for an external enqueue (spec.md §4.3's "drain in bulk up to
// a cap until N are processed").
func (e *Engine) drainOnce() {
	e.onLoop.Store(true)
	defer e.onLoop.Store(false)

	e.mu.Lock()
	n := len(e.queue)
	if n > e.batchCap {
		n = e.batchCap
	}
	batch := make([]PushedPacketInfo, n)
	copy(batch, e.queue[:n])
	e.queue = e.queue[n:]
	remaining := len(e.queue)
	e.mu.Unlock()

	e.metrics.QueueDepth.Set(float64(remaining))

	for _, info := range batch {
		e.dispatchOne(info)
	}

	if remaining > 0 {
		e.signalWake()
	}
}

func (e *Engine) dispatchOne(info PushedPacketInfo) {
	ctx, span := telemetry.Tracer.Start(e.runCtx, "dispatch.deliver")
	span.SetAttributes(attribute.String("flowmesh.correlation_id", newCorrelationID()))
	defer span.End()

	if info.DirectTarget != nil {
		e.deliverToNode(ctx, info.DirectTarget, info.Channel, info.Packet)
		return
	}

	edges := info.From.ForwardEdges(info.Channel)
	if len(edges) == 0 {
		e.drop("no matching edge", info)
		return
	}
	for _, edge := range edges {
		switch edge.DeliveryMode {
		case graph.AlwaysQueue:
			e.enqueue(PushedPacketInfo{Packet: info.Packet, DirectTarget: edge.Next, Channel: edge.Channel})
		default: // graph.DirectToTarget
			e.deliverToNode(ctx, edge.Next, edge.Channel, info.Packet)
		}
	}
}

// deliverToNode implements spec.md §4.3.2: record the packet's
// parameters as the node's most recent, then dispatch by capability.
func (e *Engine) deliverToNode(ctx context.Context, node *graph.Node, channel packet.Channel, pkt packet.Packet) {
	if node == nil || node.Removed() {
		return
	}
	node.LastReceivedParameters = pkt.Parameters

	inst := e.instanceFor(node)
	if inst == nil {
		e.drop(fmt.Sprintf("node %q has no bound instance", node.Name), PushedPacketInfo{Packet: pkt, DirectTarget: node, Channel: channel})
		return
	}

	var err error
	switch impl := inst.Implementation().(type) {
	case component.Pathable:
		pp := packet.PathablePacket{Packet: pkt, Pusher: e.pusherFor(node)}
		err = impl.HandlePathablePacket(ctx, packet.PathableId(node.Name), pp)
	case component.Sink:
		err = impl.HandlePacket(ctx, channel, pkt)
	default:
		e.drop(fmt.Sprintf("node %q implementation has no inbound capability", node.Name), PushedPacketInfo{Packet: pkt, DirectTarget: node, Channel: channel})
		return
	}

	e.metrics.PacketsDispatched.WithLabelValues(string(channel)).Inc()
	if err != nil {
		e.logger.Errorf("component %q returned error handling packet on channel %q: %v", node.Name, channel, err)
	}
}

func (e *Engine) drop(reason string, info PushedPacketInfo) {
	e.metrics.PacketsDropped.WithLabelValues(reason).Inc()
	if info.Channel == errs.ErrorChannel {
		e.logger.Warnf("dropped packet on channel %q: %s", info.Channel, reason)
	} else {
		e.logger.Debugf("dropped packet on channel %q: %s", info.Channel, reason)
	}

	e.dropHooksMu.Lock()
	hooks := append([]DropHook(nil), e.dropHooks...)
	e.dropHooksMu.Unlock()
	for _, hook := range hooks {
		hook(reason, info)
	}
}

// WaitForExit blocks until the dispatch loop has exited (its context
// was cancelled and drain finished), or until timeout elapses. A
// timeout of zero waits indefinitely. Returns true if the loop exited
// within the timeout.
func (e *Engine) WaitForExit(timeout time.Duration) bool {
	if timeout <= 0 {
		<-e.loopDone
		return true
	}
	select {
	case <-e.loopDone:
		return true
	case <-e.clk.After(timeout):
		return false
	}
}

// newCorrelationID returns a fresh packet trace-correlation id for
// telemetry spans, per spec.md §9's guidance to attach identifiers
// useful for observing a packet across node boundaries.
func newCorrelationID() string {
	return uuid.NewString()
}
