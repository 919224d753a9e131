package instance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/factory"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

func TestNewInstanceDefaults(t *testing.T) {
	i := New("kv-store")
	assert.Equal(t, "kv-store", i.TypeName())
	assert.Nil(t, i.Implementation())
	assert.Empty(t, i.ThreadGroupName())
	assert.True(t, i.InitParameters().IsZero())
}

func newTestRegistry() *factory.Registry {
	reg := factory.NewRegistry()
	reg.MustRegister(factory.Registration{
		Name: "renamed",
		New: func(p param.Parameters) (any, error) {
			return struct{ x int }{x: 1}, nil
		},
	})
	reg.MustRegister(factory.Registration{
		Name: "source-type",
		New: func(p param.Parameters) (any, error) {
			return &stubSource{Base: component.NewBase("source-type")}, nil
		},
	})
	return reg
}

func TestSetTypeNoopWhenUnchanged(t *testing.T) {
	i := New("kv-store")
	require.NoError(t, i.SetType("kv-store", newTestRegistry()))
	assert.Equal(t, "kv-store", i.TypeName())
	assert.Nil(t, i.Implementation())
}

func TestSetTypeConstructsViaFactory(t *testing.T) {
	i := New("kv-store")
	reg := newTestRegistry()

	require.NoError(t, i.SetType("renamed", reg))
	assert.Equal(t, "renamed", i.TypeName())
	assert.Equal(t, struct{ x int }{x: 1}, i.Implementation())

	require.NoError(t, i.SetType("", reg))
	assert.Empty(t, i.TypeName())
	assert.Nil(t, i.Implementation())
}

// stubSource is a component.Source test double that records every
// pusher it is bound to, so rebind tests can assert SetSourcePusher was
// called again after a retype/reimplementation.
type stubSource struct {
	component.Base
	pusher packet.Pusher
}

func (s *stubSource) SetSourcePusher(pusher packet.Pusher) {
	s.pusher = pusher
}

func TestSetTypeRebindsPusher(t *testing.T) {
	i := New("")
	require.NoError(t, i.SetSourcePusher(nopPusher{}))

	reg := newTestRegistry()
	require.NoError(t, i.SetType("source-type", reg))

	source := i.Implementation().(*stubSource)
	assert.Equal(t, nopPusher{}, source.pusher)
}

func TestSetImplementation(t *testing.T) {
	i := New("kv-store")
	impl := struct{ x int }{x: 1}
	i.SetImplementation(impl)
	assert.Equal(t, impl, i.Implementation())
}

func TestSetImplementationRebindsPusher(t *testing.T) {
	i := New("producer")
	require.NoError(t, i.SetSourcePusher(nopPusher{}))

	source := &stubSource{Base: component.NewBase("producer")}
	i.SetImplementation(source)

	assert.Equal(t, nopPusher{}, source.pusher)
}

func TestSetInitParameters(t *testing.T) {
	i := New("kv-store")
	p := i.InitParameters()
	p.Set("capacity", float64(10))
	i.SetInitParameters(p)

	v, ok := i.InitParameters().GetString("missing")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestThreadGroupName(t *testing.T) {
	i := New("kv-store")
	i.SetThreadGroupName("io-workers")
	assert.Equal(t, "io-workers", i.ThreadGroupName())
}

type nopPusher struct{}

func (nopPusher) Push(channel packet.Channel, pkt packet.Packet) error { return nil }

func TestSetSourcePusherOnce(t *testing.T) {
	i := New("producer")
	require.NoError(t, i.SetSourcePusher(nopPusher{}))

	err := i.SetSourcePusher(nopPusher{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDuplicatePusher))
}
