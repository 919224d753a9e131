// Package instance describes one named instantiation of a graph
// node — its implementation type, construction parameters, and the
// thread group it should run on — before it is resolved against a
// factory registry and wired into a graph (spec.md §4.2).
package instance

import (
	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/factory"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Instance is the builder-time description of a graph node: what type
// to construct, what parameters to hand its constructor, which thread
// group (dispatch loop) it should be bound to, and — once resolved — the
// concrete implementation value itself.
type Instance struct {
	typeName        string
	implementation  any
	initParameters  param.Parameters
	threadGroupName string
	sourcePusher    packet.Pusher
}

// New creates an unresolved Instance of the given implementation type
// name, to be resolved later by a factory registry.
func New(typeName string) *Instance {
	return &Instance{typeName: typeName, initParameters: param.New()}
}

// TypeName returns the registered implementation type name this
// instance resolves to.
func (i *Instance) TypeName() string {
	return i.typeName
}

// SetType changes the implementation type name and, if it actually
// changed, rebuilds the implementation (spec.md §4.2): a no-op if
// typeName equals the current type name; otherwise the current
// implementation is cleared and, if typeName is non-empty, a fresh one
// is constructed via registry using this instance's init parameters. If
// the new implementation is source-capable and a pusher is already
// registered on this instance, the pusher is rebound to it.
func (i *Instance) SetType(typeName string, registry *factory.Registry) error {
	if typeName == i.typeName {
		return nil
	}
	i.typeName = typeName
	i.implementation = nil
	if typeName == "" {
		return nil
	}
	impl, err := registry.New(typeName, i.initParameters)
	if err != nil {
		return err
	}
	i.implementation = impl
	i.rebindPusher()
	return nil
}

// Implementation returns the resolved concrete implementation, or nil
// if neither SetType nor SetImplementation has bound one.
func (i *Instance) Implementation() any {
	return i.implementation
}

// SetImplementation directly binds impl as this instance's concrete
// implementation, bypassing the registry (spec.md §4.2). If impl is
// source-capable and a pusher is already registered on this instance,
// the pusher is rebound to it, the same as SetType.
func (i *Instance) SetImplementation(impl any) {
	i.implementation = impl
	i.rebindPusher()
}

// rebindPusher hands this instance's already-bound source pusher, if
// any, to the current implementation, if it is source-capable.
func (i *Instance) rebindPusher() {
	if i.sourcePusher == nil {
		return
	}
	if source, ok := i.implementation.(component.Source); ok {
		source.SetSourcePusher(i.sourcePusher)
	}
}

// InitParameters returns the parameters to pass to this instance's
// constructor.
func (i *Instance) InitParameters() param.Parameters {
	return i.initParameters
}

// SetInitParameters replaces the construction parameters.
func (i *Instance) SetInitParameters(p param.Parameters) {
	i.initParameters = p
}

// ThreadGroupName returns the name of the dispatch loop this instance's
// packets should be processed on. An empty name means the graph's
// default thread group.
func (i *Instance) ThreadGroupName() string {
	return i.threadGroupName
}

// SetThreadGroupName assigns this instance to a named thread group.
func (i *Instance) SetThreadGroupName(name string) {
	i.threadGroupName = name
}

// SourcePusher returns the pusher bound via SetSourcePusher, or nil.
func (i *Instance) SourcePusher() packet.Pusher {
	return i.sourcePusher
}

// SetSourcePusher binds the Pusher a Source implementation should use
// to emit packets. It may be called at most once per instance;
// subsequent calls return errs.ErrDuplicatePusher, mirroring
// spec.md §4.2's "binding a second pusher to an instance is an error".
func (i *Instance) SetSourcePusher(pusher packet.Pusher) error {
	if i.sourcePusher != nil {
		return errs.ErrDuplicatePusher
	}
	i.sourcePusher = pusher
	return nil
}
