package handle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
)

func TestEncodeDecode(t *testing.T) {
	h := Encode(7, 42)
	require.EqualValues(t, 7, h.TypeTag())
	require.EqualValues(t, 42, h.Sequence())
}

func TestRefCountedManager_RegisterLookupClose(t *testing.T) {
	m := NewRefCountedManager(1)

	h, err := m.Register("payload")
	require.NoError(t, err)
	require.EqualValues(t, 1, m.Len())

	obj, shared, err := m.Lookup(h)
	require.NoError(t, err)
	require.Equal(t, "payload", obj)
	require.NotEqual(t, h, shared)
	require.EqualValues(t, 2, m.Len())

	require.NoError(t, m.Close(h))
	// The object is still reachable through the shared handle.
	obj2, err := m.Peek(shared)
	require.NoError(t, err)
	require.Equal(t, "payload", obj2)

	require.NoError(t, m.Close(shared))
	require.EqualValues(t, 0, m.Len())
}

func TestRefCountedManager_CloseRunsCloser(t *testing.T) {
	m := NewRefCountedManager(1)
	closed := false
	h, err := m.Register(closerFunc(func() error { closed = true; return nil }))
	require.NoError(t, err)

	require.NoError(t, m.Close(h))
	require.True(t, closed)
}

func TestRefCountedManager_DoubleCloseFails(t *testing.T) {
	m := NewRefCountedManager(1)
	h, err := m.Register("x")
	require.NoError(t, err)

	require.NoError(t, m.Close(h))
	err = m.Close(h)
	require.ErrorIs(t, err, vmerr.Closed)
}

func TestRefCountedManager_WrongTypeTag(t *testing.T) {
	m := NewRefCountedManager(1)
	other := Encode(2, 0)
	_, err := m.Peek(other)
	require.ErrorIs(t, err, vmerr.Closed)
}

func TestByReferenceManager_InvalidateInvalidatesLookups(t *testing.T) {
	m := NewByReferenceManager(3)
	h, err := m.Register("x")
	require.NoError(t, err)

	m.Invalidate(h)
	_, err = m.Lookup(h)
	require.ErrorIs(t, err, vmerr.Closed)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
