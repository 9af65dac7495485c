package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemory(min uint32, max *uint32) *MemoryInstance {
	return NewMemoryInstance(&MemoryType{Limits: Limits{Min: min, Max: max}})
}

func TestMemoryInstance_ReadWrite(t *testing.T) {
	m := newMemory(1, nil)
	require.NoError(t, m.Write(0, []byte{1, 2, 3, 4}))

	b, err := m.Read(0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, b)

	// Read is write-through: mutating the view mutates guest memory.
	b[0] = 9
	b2, err := m.Read(0, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{9}, b2)
}

func TestMemoryInstance_OutOfBounds(t *testing.T) {
	m := newMemory(1, nil)
	_, err := m.Read(MemoryPageSize-1, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)

	err = m.Write(MemoryPageSize-1, []byte{1, 2})
	require.ErrorIs(t, err, ErrOutOfBounds)

	// Overflowing offset+length must not wrap back into bounds.
	_, err = m.Read(^uint32(0), 2)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMemoryInstance_RawPointer(t *testing.T) {
	m := newMemory(1, nil)
	require.NoError(t, m.Write(0, []byte{1, 2, 3}))
	require.Equal(t, []byte{1, 2, 3}, m.RawPointer(0, 3))
	require.Nil(t, m.RawPointer(MemoryPageSize, 1))
}

func TestMemoryInstance_Grow(t *testing.T) {
	max := uint32(2)
	m := newMemory(1, &max)

	old, err := m.Grow(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, old)
	require.EqualValues(t, 2, m.SizePages())

	_, err = m.Grow(1)
	require.ErrorIs(t, err, ErrOutOfBounds)

	old, err = m.Grow(0)
	require.NoError(t, err)
	require.EqualValues(t, 2, old)
}
