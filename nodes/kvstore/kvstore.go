// Package kvstore implements a volatile, in-memory key/value store
// exposed as a component.Group with "set" and "get" sub-interfaces,
// grounded on original_source's src/nodes/VolatileKeyValueStore.cpp.
package kvstore

import (
	"context"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
)

const (
	// InterfaceSet is the Group sub-interface name that stores a packet
	// keyed by the configured parameter.
	InterfaceSet = "set"
	// InterfaceGet is the Group sub-interface name that looks up a
	// stored packet by the configured parameter.
	InterfaceGet = "get"

	// ChannelGotValue is where a successful get pushes the stored packet.
	ChannelGotValue = packet.Channel("gotValue")
	// ChannelKeyNotFound is where a failed get pushes a lookup miss.
	ChannelKeyNotFound = packet.Channel("keyNotFound")
)

// Store is a volatile key/value store keyed by a configured parameter
// name, exposing Set and Get as separate graph-addressable
// sub-interfaces sharing the same backing map.
type Store struct {
	component.Base

	keyName       string
	retainBuffers bool

	data map[string]packet.Packet

	setter *setter
	getter *getter
}

// New constructs a Store keyed by keyName. When retainBuffers is false,
// only a set packet's parameters are retained; its buffers are dropped,
// matching original_source's default.
func New(keyName string, retainBuffers bool) *Store {
	s := &Store{
		keyName:       keyName,
		retainBuffers: retainBuffers,
		data:          make(map[string]packet.Packet),
	}
	s.Base = component.NewBase("Volatile Key Value Store")
	s.setter = &setter{store: s}
	s.setter.Base = component.NewBase(InterfaceSet)
	s.getter = &getter{store: s}
	s.getter.Base = component.NewBase(InterfaceGet)
	return s
}

// Interface implements component.Group.
func (s *Store) Interface(name string) (any, bool) {
	switch name {
	case InterfaceSet:
		return s.setter, true
	case InterfaceGet:
		return s.getter, true
	default:
		return nil, false
	}
}

// Names implements component.Group.
func (s *Store) Names() []string {
	return []string{InterfaceSet, InterfaceGet}
}

type setter struct {
	component.Base
	store *Store
}

func (s *setter) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	key, ok := pp.Packet.Parameters.GetString(s.store.keyName)
	if !ok {
		return nil
	}

	toStore := pp.Packet
	if !s.store.retainBuffers {
		toStore = packet.New(pp.Packet.Parameters)
	}
	s.store.data[key] = toStore
	return nil
}

type getter struct {
	component.Base
	store *Store
}

func (g *getter) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	key, ok := pp.Packet.Parameters.GetString(g.store.keyName)
	if !ok {
		return nil
	}

	found, ok := g.store.data[key]
	if !ok {
		missParams := pp.Packet.Parameters.Clone()
		missParams.Set("keyNotPresent", key)
		return pp.Pusher.Push(ChannelKeyNotFound, packet.New(missParams))
	}
	return pp.Pusher.Push(ChannelGotValue, found)
}
