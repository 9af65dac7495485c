package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

func TestStats_CountNoLimit(t *testing.T) {
	s := New(nil, 0)
	require.NoError(t, s.Count(wasm.OpI32Add))
	require.NoError(t, s.Count(wasm.OpI32Add))
	require.EqualValues(t, 2, s.InstructionCount())
	require.EqualValues(t, 0, s.CostUsed())
}

func TestStats_CostLimitExceeded(t *testing.T) {
	table := CostTable{wasm.OpI32Add: 5}
	s := New(table, 8)

	require.NoError(t, s.Count(wasm.OpI32Add))
	require.EqualValues(t, 5, s.CostUsed())

	err := s.Count(wasm.OpI32Add)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.CostLimitExceeded, trap.Code)
}

func TestStats_NilReceiverIsSafe(t *testing.T) {
	var s *Stats
	require.NoError(t, s.Count(wasm.OpNop))
	require.EqualValues(t, 0, s.InstructionCount())
	require.EqualValues(t, 0, s.CostUsed())
	require.EqualValues(t, 0, s.CostLimit())
	s.RecordTrap(vmerr.Unreachable)
}

func TestStats_PrivateRegistryAvoidsCollisions(t *testing.T) {
	a := New(nil, 0)
	b := New(nil, 0)
	require.NotSame(t, a.Registry(), b.Registry())
}
