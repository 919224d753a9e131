package nodes

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// ChannelWorkDone is the channel OffLoopWorker emits successful results
// on. Failures go out on errs.ErrorChannel instead, per spec.md §6's
// error packet convention.
const ChannelWorkDone = packet.Channel("Work Done")

// errorNameWorkFailed identifies OffLoopWorker failures in the shared
// error packet's errorName field.
const errorNameWorkFailed = "off loop work failed"

// Work is the off-loop computation OffLoopWorker submits to its pool.
// It receives the incoming packet's buffers concatenated into one byte
// slice and returns the bytes to attach to the outgoing packet.
type Work func(buffers []byte) ([]byte, error)

// OffLoopWorker demonstrates spec.md §5's suspension-point rule:
// handlePacket must never block the loop, so long work is submitted to
// a bounded goroutine pool and the result is rejoined through the
// pusher the runtime bound through SetSourcePusher — the only two calls
// spec.md allows from outside the loop thread. Grounded on the
// teacher's submit-to-pool-then-signal-back shape in
// knowledge/default.go, adapted from a WaitGroup-gated source loader
// into a per-packet sink/source pair.
type OffLoopWorker struct {
	component.Base

	pool *ants.Pool
	work Work
}

// NewOffLoopWorker constructs an OffLoopWorker backed by a pool of at
// most poolSize concurrent goroutines, running work for each incoming
// packet.
func NewOffLoopWorker(poolSize int, work Work) (*OffLoopWorker, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("nodes: creating off-loop worker pool: %w", err)
	}
	w := &OffLoopWorker{pool: pool, work: work}
	w.Base = component.NewBase("Off Loop Worker")
	return w, nil
}

// SetSourcePusher implements component.Source: OffLoopWorker is a sink
// that rejoins results out-of-band from pool goroutines, so it declares
// the capability explicitly rather than relying on Base's storage alone
// (component.Base doc).
func (w *OffLoopWorker) SetSourcePusher(pusher packet.Pusher) {
	w.Base.SetPusher(pusher)
}

// Release closes the pool so it accepts no new work. It returns without
// waiting for submissions already running to finish.
func (w *OffLoopWorker) Release() {
	w.pool.Release()
}

// HandlePacket implements component.Sink: it submits the packet's
// buffers to the pool and returns immediately, never blocking the loop
// thread on the work itself.
func (w *OffLoopWorker) HandlePacket(ctx context.Context, channel packet.Channel, pkt packet.Packet) error {
	var flat []byte
	for _, b := range pkt.Buffers {
		flat = append(flat, b.Bytes()...)
	}

	pusher := w.Pusher()
	work := w.work

	return w.pool.Submit(func() {
		result, err := work(flat)
		if pusher == nil {
			return
		}
		if err != nil {
			_ = errs.PushError(pusher, errorNameWorkFailed, err.Error())
			return
		}
		_ = pusher.Push(ChannelWorkDone, packet.New(param.New(), buffer.New(result)))
	})
}
