package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalInstance_GetSet(t *testing.T) {
	g := NewGlobalInstance(GlobalType{ValType: I32(), Mutable: true}, ValI32(1))
	require.True(t, g.Mutable())
	require.Equal(t, ValI32(1), g.Get())

	require.NoError(t, g.Set(ValI32(2)))
	require.Equal(t, ValI32(2), g.Get())
}

func TestGlobalInstance_Set_Errors(t *testing.T) {
	tests := []struct {
		name    string
		global  *GlobalInstance
		val     Value
		wantErr error
	}{
		{
			name:    "immutable",
			global:  NewGlobalInstance(GlobalType{ValType: I32(), Mutable: false}, ValI32(1)),
			val:     ValI32(2),
			wantErr: ErrSetConstant,
		},
		{
			name:    "type mismatch",
			global:  NewGlobalInstance(GlobalType{ValType: I32(), Mutable: true}, ValI32(1)),
			val:     ValI64(2),
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "non-null required",
			global:  NewGlobalInstance(GlobalType{ValType: FuncRef(false), Mutable: true}, ValNullFuncRef(FuncRef(false))),
			val:     ValNullFuncRef(FuncRef(false)),
			wantErr: ErrNonNullRequired,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.global.Set(tc.val), tc.wantErr)
		})
	}
}
