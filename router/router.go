// Package router implements the context router: a meta-component that
// lazily instantiates one inner instance per observed routing key and
// presents the same capability surface as its template (spec.md §4.5).
// Grounded on original_source's src/nodes/ContextualNode.cpp for the
// lazy-create/lookup/remove routing policy, and on the teacher's
// session/inmemory/in_memory_session_service.go for the
// map-plus-mutex-plus-lazy-create shape idiomatic to Go.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/factory"
	"github.com/vdodev-go/flowmesh/log"
	"github.com/vdodev-go/flowmesh/metrics"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Option configures a Router at construction time.
type Option func(*Router)

// WithLogger overrides the router's logger. Defaults to log.Default.
func WithLogger(logger log.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMetrics overrides the router's metrics bundle, used to report the
// live-instance gauge under the given router name label.
func WithMetrics(m *metrics.Metrics, routerName string) Option {
	return func(r *Router) {
		r.metrics = m
		r.routerName = routerName
	}
}

// Router is a context router bound to one template implementation type.
// It implements component.Sink, component.Source, and component.Pathable
// by delegating to whichever inner instance the incoming packet's
// routing key resolves to, constructing that instance on first
// observation. When the template also reports component.Group, Router
// additionally implements component.Group itself: it builds one
// subRouter per named sub-interface at construction time, each of which
// is, in effect, a single-name router sharing the outer router's keyed
// instances (spec.md §4.5's "group template" fan-out, grounded on
// original_source's ContextualNode.cpp CohesiveGroupRouter/
// SingleNodeRouter pair).
type Router struct {
	component.Base

	templateTypeName string
	registry         *factory.Registry
	routingKeyPath   string

	groupNames []string
	subRouters map[string]*subRouter

	logger     log.Logger
	metrics    *metrics.Metrics
	routerName string

	mu        sync.Mutex
	instances map[string]any // key -> inner implementation
	reverse   map[any]string // inner implementation -> key
	pushers   map[string]*innerPusher
}

// New constructs a Router whose inner instances are of templateTypeName
// (resolved via registry) and are selected by the string value at
// routingKeyPath in each incoming packet's parameters. Returns
// errs.ErrIncompatibleCapability if the template type, probed once at
// construction, is neither sink, source, pathable, nor group.
func New(templateTypeName string, registry *factory.Registry, routingKeyPath string, opts ...Option) (*Router, error) {
	template, err := registry.New(templateTypeName, param.New())
	if err != nil {
		return nil, err
	}
	if !hasAnyCapability(template) {
		return nil, errs.Wrap(fmt.Sprintf("router: template %q has no recognized capability", templateTypeName), errs.ErrIncompatibleCapability)
	}

	r := &Router{
		Base:             component.NewBase("router:" + templateTypeName),
		templateTypeName: templateTypeName,
		registry:         registry,
		routingKeyPath:   routingKeyPath,
		logger:           log.Default,
		metrics:          metrics.Noop(),
		routerName:       templateTypeName,
		instances:        make(map[string]any),
		reverse:          make(map[any]string),
		pushers:          make(map[string]*innerPusher),
	}
	for _, opt := range opts {
		opt(r)
	}

	if group, ok := template.(component.Group); ok {
		r.groupNames = group.Names()
		r.subRouters = make(map[string]*subRouter, len(r.groupNames))
		for _, name := range r.groupNames {
			r.subRouters[name] = &subRouter{router: r, name: name}
		}
	}

	return r, nil
}

// Interface implements component.Group, returning the single-name
// subRouter built for name at construction time. When the template is
// not a group, no subRouters exist and it returns ok=false.
func (r *Router) Interface(name string) (any, bool) {
	sub, ok := r.subRouters[name]
	return sub, ok
}

// Names implements component.Group, mirroring the template's own
// sub-interface names.
func (r *Router) Names() []string {
	return r.groupNames
}

func hasAnyCapability(impl any) bool {
	if _, ok := impl.(component.Sink); ok {
		return true
	}
	if _, ok := impl.(component.Source); ok {
		return true
	}
	if _, ok := impl.(component.Pathable); ok {
		return true
	}
	if _, ok := impl.(component.Group); ok {
		return true
	}
	return false
}

// HandlePacket implements component.Sink: resolves the routing key and
// delegates to (lazily creating) the matching inner instance.
func (r *Router) HandlePacket(ctx context.Context, ch packet.Channel, pkt packet.Packet) error {
	key, err := r.routingKey(pkt)
	if err != nil {
		return err
	}
	inner, err := r.innerFor(key)
	if err != nil {
		return err
	}
	sink, ok := inner.(component.Sink)
	if !ok {
		return errs.Wrap(fmt.Sprintf("router: inner instance for key %q is not sink-capable", key), errs.ErrIncompatibleCapability)
	}
	return sink.HandlePacket(ctx, ch, pkt)
}

// HandlePathablePacket implements component.Pathable the same way as
// HandlePacket, passing pp.Pusher through unchanged: the engine already
// scopes that pusher to the router's own node, so replies are routed
// relative to it, not to the inner instance directly (spec.md
// §4.5: "binds its pusher ... routed back through the router so
// downstream edges fire relative to the router's node").
func (r *Router) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	key, err := r.routingKey(pp.Packet)
	if err != nil {
		return err
	}
	inner, err := r.innerFor(key)
	if err != nil {
		return err
	}
	pathable, ok := inner.(component.Pathable)
	if !ok {
		return errs.Wrap(fmt.Sprintf("router: inner instance for key %q is not pathable", key), errs.ErrIncompatibleCapability)
	}
	return pathable.HandlePathablePacket(ctx, id, packet.PathablePacket{Packet: pp.Packet, Pusher: pp.Pusher})
}

// SetSourcePusher implements component.Source for the router itself:
// every inner instance's outgoing pusher is wrapped to emit through
// this shared pusher, so all inner instances' pushes flow out the
// router's own graph node.
func (r *Router) SetSourcePusher(pusher packet.Pusher) {
	r.Base.SetPusher(pusher)
}

func (r *Router) routingKey(pkt packet.Packet) (string, error) {
	key, ok := pkt.Parameters.GetString(r.routingKeyPath)
	if !ok {
		return "", errs.Wrap(fmt.Sprintf("router: packet missing routing key %q", r.routingKeyPath), errs.ErrMissingRoutingKey)
	}
	return key, nil
}

// innerFor returns the inner instance for key, constructing one via the
// registry on first observation.
func (r *Router) innerFor(key string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inner, ok := r.instances[key]; ok {
		return inner, nil
	}

	inner, err := r.registry.New(r.templateTypeName, param.New())
	if err != nil {
		return nil, err
	}

	ip := &innerPusher{router: r, key: key}
	if source, ok := inner.(component.Source); ok {
		source.SetSourcePusher(ip)
	}
	if group, ok := inner.(component.Group); ok {
		for _, name := range group.Names() {
			sub, ok := group.Interface(name)
			if !ok {
				continue
			}
			if source, ok := sub.(component.Source); ok {
				source.SetSourcePusher(ip)
			}
		}
	}

	r.instances[key] = inner
	r.reverse[inner] = key
	r.pushers[key] = ip
	r.metrics.RouterInstances.WithLabelValues(r.routerName).Set(float64(len(r.instances)))
	return inner, nil
}

// Remove destroys the inner instance for key, if one exists. A second
// removal for the same (now-absent) key is a silent no-op, matching
// spec.md §4.5's Remover contract.
func (r *Router) Remove(key string) (removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inner, ok := r.instances[key]
	if !ok {
		return false
	}
	delete(r.instances, key)
	delete(r.reverse, inner)
	delete(r.pushers, key)
	r.metrics.RouterInstances.WithLabelValues(r.routerName).Set(float64(len(r.instances)))
	return true
}

// KeyFor returns the routing key an inner implementation was created
// under, via the reverse map, so a component can find its own key
// without the router telling it directly (e.g. for self-removal).
func (r *Router) KeyFor(inner any) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.reverse[inner]
	return key, ok
}

// InstanceCount returns the number of live inner instances.
func (r *Router) InstanceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// innerPusher is handed to an inner instance's SetSourcePusher: it
// forwards pushes through the router's own bound pusher, so downstream
// edges fire relative to the router's node (spec.md §4.5).
type innerPusher struct {
	router *Router
	key    string
}

func (p *innerPusher) Push(channel packet.Channel, pkt packet.Packet) error {
	outer := p.router.Pusher()
	if outer == nil {
		return errs.Wrap("router: push before router's own pusher is bound", errs.ErrClosed)
	}
	return outer.Push(channel, pkt)
}

// subRouter is the outer router's per-name exposed interface when its
// template is a component.Group: a single-node router (spec.md §4.5)
// that resolves the routing key exactly as the outer router does, then
// delegates to the name'd sub-interface of that key's inner group
// instance. Every Group in this module exposes pathable-only
// sub-interfaces (nodes.BufferAccumulator, nodes/kvstore.Store), so
// subRouter implements component.Pathable only — declaring Sink too
// would make it structurally both sink and pathable, which §3 forbids
// regardless of what the delegate actually supports. It never binds its
// own pusher: a sub-interface that is source-capable is wired directly
// to the outer router's shared innerPusher inside innerFor, the same
// way the group's other sub-interfaces are.
type subRouter struct {
	router *Router
	name   string
}

// Name implements component.Instantiator.
func (s *subRouter) Name() string {
	return s.router.templateTypeName + ":" + s.name
}

// HandlePathablePacket implements component.Pathable for the name'd
// sub-interface.
func (s *subRouter) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	key, err := s.router.routingKey(pp.Packet)
	if err != nil {
		return err
	}
	inner, err := s.router.innerFor(key)
	if err != nil {
		return err
	}
	group, ok := inner.(component.Group)
	if !ok {
		return errs.Wrap(fmt.Sprintf("router: inner instance for key %q is not a group", key), errs.ErrIncompatibleCapability)
	}
	sub, ok := group.Interface(s.name)
	if !ok {
		return errs.Wrap(fmt.Sprintf("router: group has no sub-interface %q", s.name), errs.ErrIncompatibleCapability)
	}
	pathable, ok := sub.(component.Pathable)
	if !ok {
		return errs.Wrap(fmt.Sprintf("router: sub-interface %q is not pathable", s.name), errs.ErrIncompatibleCapability)
	}
	return pathable.HandlePathablePacket(ctx, id, pp)
}
