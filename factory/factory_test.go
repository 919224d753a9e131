package factory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/param"
)

type fakeNode struct{ capacity float64 }

func TestRegisterAndNew(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Registration{
		Name: "kv-store",
		New: func(initParameters param.Parameters) (any, error) {
			v, _ := initParameters.Get("capacity")
			capacity, _ := v.(float64)
			return &fakeNode{capacity: capacity}, nil
		},
	}))

	p := param.New()
	p.Set("capacity", float64(10))

	impl, err := reg.New("kv-store", p)
	require.NoError(t, err)
	node, ok := impl.(*fakeNode)
	require.True(t, ok)
	assert.Equal(t, float64(10), node.capacity)
}

func TestRegisterDuplicateFails(t *testing.T) {
	reg := NewRegistry()
	registration := Registration{Name: "x", New: func(param.Parameters) (any, error) { return nil, nil }}
	require.NoError(t, reg.Register(registration))

	err := reg.Register(registration)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))
}

func TestNewMissingFactory(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.New("nope", param.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMissingFactory))
}

func TestHasAndList(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Has("a"))

	require.NoError(t, reg.Register(Registration{Name: "b", New: func(param.Parameters) (any, error) { return nil, nil }}))
	require.NoError(t, reg.Register(Registration{Name: "a", New: func(param.Parameters) (any, error) { return nil, nil }}))

	assert.True(t, reg.Has("a"))
	assert.Equal(t, []string{"a", "b"}, reg.List())
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	registration := Registration{Name: "x", New: func(param.Parameters) (any, error) { return nil, nil }}
	reg.MustRegister(registration)

	assert.Panics(t, func() { reg.MustRegister(registration) })
}
