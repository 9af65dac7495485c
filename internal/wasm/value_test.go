package wasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	require.Equal(t, int32(-7), ValI32(-7).I32())
	require.Equal(t, uint32(7), ValU32(7).U32())
	require.Equal(t, int64(-7), ValI64(-7).I64())
	require.Equal(t, uint64(7), ValU64(7).U64())
	require.Equal(t, math.Float32bits(1.5), ValF32(math.Float32bits(1.5)).F32Bits())
	require.Equal(t, math.Float64bits(1.5), ValF64(math.Float64bits(1.5)).F64Bits())
}

func TestValueTypeEquality(t *testing.T) {
	require.Equal(t, I32(), I32())
	require.NotEqual(t, I32(), I64())
	require.Equal(t, FuncRef(true), FuncRef(true))
	require.NotEqual(t, FuncRef(true), FuncRef(false))
}

func TestAssignableFrom(t *testing.T) {
	require.True(t, I32().AssignableFrom(I32()))
	require.False(t, I32().AssignableFrom(I64()))

	anyFunc := FuncRef(true)
	typed := FuncRefTo(3, true)
	require.True(t, anyFunc.AssignableFrom(typed), "a slot accepting any func accepts a typed ref")
	require.False(t, typed.AssignableFrom(anyFunc), "a slot constrained to one type rejects any-func")
	require.True(t, typed.AssignableFrom(FuncRefTo(3, true)))
	require.False(t, typed.AssignableFrom(FuncRefTo(4, true)))
}

func TestNullFuncRef(t *testing.T) {
	v := ValNullFuncRef(FuncRef(true))
	require.True(t, v.IsNullRef())
	require.Nil(t, v.FuncRefInstance())
}

func TestFuncRefRoundTrip(t *testing.T) {
	fi := &FunctionInstance{DebugName: "f"}
	v := ValFuncRef(FuncRef(false), fi)
	require.False(t, v.IsNullRef())
	require.Same(t, fi, v.FuncRefInstance())
}
