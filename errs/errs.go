// Package errs collects the sentinel errors shared across the runtime,
// following the standard wrap-with-%w convention so callers can test
// for a specific failure with errors.Is/errors.As regardless of which
// package raised it.
package errs

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Sentinel errors. Each is raised by one or more packages, wrapped with
// context via fmt.Errorf("...: %w", err) so the original sentinel
// survives errors.Is checks.
var (
	// ErrAlreadyExists is returned when creating a graph node, or
	// registering a factory name, that is already present.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnknownNode is returned when an operation references a graph
	// node name that has not been created.
	ErrUnknownNode = errors.New("unknown node")

	// ErrIncompatibleCapability is returned when a graph or router
	// operation requires a capability (Sink, Source, Pathable, Group)
	// that the target instance's implementation does not provide.
	ErrIncompatibleCapability = errors.New("incompatible capability")

	// ErrDuplicatePusher is returned by Instance.SetSourcePusher when a
	// source pusher has already been bound.
	ErrDuplicatePusher = errors.New("duplicate pusher")

	// ErrMissingRoutingKey is returned by the context router when an
	// incoming packet's parameters do not contain the configured routing
	// key path.
	ErrMissingRoutingKey = errors.New("missing routing key")

	// ErrMissingFactory is returned when a graph builder or router needs
	// to instantiate a named implementation that is not registered.
	ErrMissingFactory = errors.New("missing factory")

	// ErrMalformedGraph is returned when a textual graph description
	// cannot be parsed, or parses but violates a structural invariant
	// (e.g. an edge with an empty channel label).
	ErrMalformedGraph = errors.New("malformed graph description")

	// ErrMalformedPacket is returned by the wire codec when a framed
	// packet's length prefixes or MessagePack payload are invalid.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrClosed is returned when a router (or its Remover) is asked to
	// push before a source pusher has been bound to it.
	ErrClosed = errors.New("closed")
)

// Wrap attaches context to err while preserving it for errors.Is/As.
func Wrap(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// ErrorChannel is the channel convention components use to report a
// runtime failure without tearing down the graph (spec.md §6's "Error
// packet convention"): the engine logs packets on this channel at
// warning severity instead of debug-level drop logging.
const ErrorChannel = packet.Channel("error")

// NewErrorPacket builds the packet convention's error shape: a packet
// on ErrorChannel whose parameters carry errorName and errorMessage.
// Component authors should use this (or PushError) rather than
// constructing an ad hoc error packet, so every error packet in the
// graph carries the same two keys regardless of which component raised
// it.
func NewErrorPacket(errorName, errorMessage string) packet.Packet {
	p := param.New()
	p.Set("errorName", errorName)
	p.Set("errorMessage", errorMessage)
	return packet.New(p)
}

// PushError is the convenience "push this error" routine spec.md §6
// asks for: it builds an error packet via NewErrorPacket and pushes it
// on ErrorChannel through pusher.
func PushError(pusher packet.Pusher, errorName, errorMessage string) error {
	return pusher.Push(ErrorChannel, NewErrorPacket(errorName, errorMessage))
}

// Aggregate collects multiple independent failures (e.g. from tearing
// down several router-managed instances) into a single error via
// hashicorp/go-multierror, so a caller sees every failure instead of
// only the first. Returns nil if errs is empty or contains only nils.
func Aggregate(errs ...error) error {
	var result *multierror.Error
	for _, e := range errs {
		if e != nil {
			result = multierror.Append(result, e)
		}
	}
	return result.ErrorOrNil()
}
