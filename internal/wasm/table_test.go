package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newFuncTable(min uint32, max *uint32) *TableInstance {
	return NewTableInstance(&TableType{ElemType: FuncRef(true), Limits: Limits{Min: min, Max: max}})
}

func TestNewTableInstance(t *testing.T) {
	tbl := newFuncTable(3, nil)
	require.EqualValues(t, 3, tbl.Size())
	for i := uint32(0); i < 3; i++ {
		v, err := tbl.Get(i)
		require.NoError(t, err)
		require.True(t, v.IsNullRef())
	}
}

func TestTableInstance_Get(t *testing.T) {
	tbl := newFuncTable(2, nil)
	_, err := tbl.Get(2)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestTableInstance_Set(t *testing.T) {
	tests := []struct {
		name    string
		table   *TableInstance
		idx     uint32
		val     Value
		wantErr error
	}{
		{
			name:  "ok",
			table: newFuncTable(1, nil),
			idx:   0,
			val:   ValNullFuncRef(FuncRef(true)),
		},
		{
			name:    "out of bounds",
			table:   newFuncTable(1, nil),
			idx:     1,
			val:     ValNullFuncRef(FuncRef(true)),
			wantErr: ErrOutOfBounds,
		},
		{
			name:    "type mismatch",
			table:   newFuncTable(1, nil),
			idx:     0,
			val:     ValI32(1),
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "non-null required",
			table:   NewTableInstance(&TableType{ElemType: FuncRef(false), Limits: Limits{Min: 1}}),
			idx:     0,
			val:     ValNullFuncRef(FuncRef(false)),
			wantErr: ErrNonNullRequired,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Set(tc.idx, tc.val)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTableInstance_Grow(t *testing.T) {
	max := uint32(3)
	tbl := newFuncTable(1, &max)

	old, err := tbl.Grow(2, ValNullFuncRef(FuncRef(true)))
	require.NoError(t, err)
	require.EqualValues(t, 1, old)
	require.EqualValues(t, 3, tbl.Size())

	_, err = tbl.Grow(1, ValNullFuncRef(FuncRef(true)))
	require.ErrorIs(t, err, ErrOutOfBounds)

	old, err = tbl.Grow(0, ValNullFuncRef(FuncRef(true)))
	require.NoError(t, err)
	require.EqualValues(t, 3, old, "growing by zero is a no-op that still reports the current size")
}

func TestTableInstance_Grow_InitValidation(t *testing.T) {
	tests := []struct {
		name    string
		table   *TableInstance
		init    Value
		wantErr error
	}{
		{
			name:    "scalar init",
			table:   newFuncTable(1, nil),
			init:    ValI32(1),
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "incompatible reference kind",
			table:   newFuncTable(1, nil),
			init:    Value{Type: ExternRef(true)},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "null init for non-nullable element type",
			table:   NewTableInstance(&TableType{ElemType: FuncRef(false), Limits: Limits{Min: 1}}),
			init:    ValNullFuncRef(FuncRef(false)),
			wantErr: ErrNonNullRequired,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.table.Grow(1, tc.init)
			require.ErrorIs(t, err, tc.wantErr)
			require.EqualValues(t, 1, tc.table.Size(), "a rejected grow must not resize the table")
		})
	}
}
