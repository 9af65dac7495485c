package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

func i32i32ToI32() *wasm.FunctionType {
	return &wasm.FunctionType{Params: []wasm.ValueType{wasm.I32(), wasm.I32()}, Results: []wasm.ValueType{wasm.I32()}}
}

func newGuestFunc(mod *wasm.ModuleInstance, ft *wasm.FunctionType, instrs []wasm.Instr) *wasm.FunctionInstance {
	return &wasm.FunctionInstance{
		Type:   ft,
		Module: mod,
		Local:  &wasm.LocalFunction{Code: &wasm.Code{Instrs: instrs, MaxStack: 4}},
	}
}

func TestExecutor_InvokeAdd(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	fi := newGuestFunc(mod, i32i32ToI32(), []wasm.Instr{
		{Op: wasm.OpLocalGet, A: 0},
		{Op: wasm.OpLocalGet, A: 1},
		{Op: wasm.OpI32Add},
	})
	mod.Functions = append(mod.Functions, fi)

	ex := New(nil)
	results := make([]wasm.Value, 1)
	err := ex.Invoke(mod, fi, []wasm.Value{wasm.ValI32(2), wasm.ValI32(3)}, results)
	require.NoError(t, err)
	require.Equal(t, int32(5), results[0].I32())
}

func TestExecutor_DivideByZeroTrap(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	fi := newGuestFunc(mod, i32i32ToI32(), []wasm.Instr{
		{Op: wasm.OpLocalGet, A: 0},
		{Op: wasm.OpLocalGet, A: 1},
		{Op: wasm.OpI32DivS},
	})
	mod.Functions = append(mod.Functions, fi)

	ex := New(nil)
	err := ex.Invoke(mod, fi, []wasm.Value{wasm.ValI32(1), wasm.ValI32(0)}, nil)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.DivideByZero, trap.Code)
}

func TestExecutor_CheckArgsSignatureMismatch(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	fi := newGuestFunc(mod, i32i32ToI32(), nil)
	ex := New(nil)
	err := ex.Invoke(mod, fi, []wasm.Value{wasm.ValI32(1)}, nil)
	require.ErrorIs(t, err, vmerr.FuncSigMismatch)
}

func TestExecutor_NullArgForNonNullableParam(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	ft := &wasm.FunctionType{Params: []wasm.ValueType{wasm.FuncRef(false)}}
	fi := newGuestFunc(mod, ft, []wasm.Instr{{Op: wasm.OpNop}})

	ex := New(nil)
	err := ex.Invoke(mod, fi, []wasm.Value{wasm.ValNullFuncRef(wasm.FuncRef(false))}, nil)
	require.ErrorIs(t, err, wasm.ErrNonNullRequired)
}

func TestExecutor_CallStackExhausted(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	ft := &wasm.FunctionType{}
	fi := newGuestFunc(mod, ft, []wasm.Instr{{Op: wasm.OpCall, A: 0}})
	mod.Functions = append(mod.Functions, fi)

	ex := New(&Config{CallStackCeiling: 16})
	err := ex.Invoke(mod, fi, nil, nil)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.CallStackExhausted, trap.Code)
}

func TestExecutor_Cancellation(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	fi := newGuestFunc(mod, &wasm.FunctionType{}, []wasm.Instr{{Op: wasm.OpNop}})

	ex := New(nil)
	ex.Cancel()
	err := ex.Invoke(mod, fi, nil, nil)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.Interrupted, trap.Code)

	ex.Reset()
	require.NoError(t, ex.Invoke(mod, fi, nil, nil))
}

func TestExecutor_HostFunctionSuccess(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	hf := &wasm.HostFunction{
		Type: i32i32ToI32(),
		Thunk: func(data, frame interface{}, args, results []wasm.Value) (wasm.HostCategory, uint32) {
			results[0] = wasm.ValI32(args[0].I32() + args[1].I32())
			return wasm.HostSuccess, 0
		},
	}
	fi := &wasm.FunctionInstance{Type: hf.Type, Module: mod, Host: hf}

	ex := New(nil)
	results := make([]wasm.Value, 1)
	require.NoError(t, ex.Invoke(mod, fi, []wasm.Value{wasm.ValI32(4), wasm.ValI32(5)}, results))
	require.Equal(t, int32(9), results[0].I32())
}

func TestExecutor_HostFunctionTerminated(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	hf := &wasm.HostFunction{
		Type: &wasm.FunctionType{},
		Thunk: func(data, frame interface{}, args, results []wasm.Value) (wasm.HostCategory, uint32) {
			exitCode := uint32(3)
			return wasm.HostWASM, uint32(vmerr.Terminated) | exitCode<<8
		},
	}
	fi := &wasm.FunctionInstance{Type: hf.Type, Module: mod, Host: hf}

	ex := New(nil)
	err := ex.Invoke(mod, fi, nil, nil)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.Terminated, trap.Code)
	require.EqualValues(t, 3, trap.ExitCode)
}

func TestExecutor_HostFunctionUserError(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	hf := &wasm.HostFunction{
		Type: &wasm.FunctionType{},
		Thunk: func(data, frame interface{}, args, results []wasm.Value) (wasm.HostCategory, uint32) {
			return wasm.HostUserLevelError, 99
		},
	}
	fi := &wasm.FunctionInstance{Type: hf.Type, Module: mod, Host: hf}

	ex := New(nil)
	err := ex.Invoke(mod, fi, nil, nil)
	hostErr, ok := err.(*vmerr.HostError)
	require.True(t, ok)
	require.EqualValues(t, 99, hostErr.Code)
}

func TestExecutor_CallIndirect(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	addFn := newGuestFunc(mod, i32i32ToI32(), []wasm.Instr{
		{Op: wasm.OpLocalGet, A: 0},
		{Op: wasm.OpLocalGet, A: 1},
		{Op: wasm.OpI32Add},
	})
	mod.Functions = append(mod.Functions, addFn)
	mod.Types = []*wasm.FunctionType{i32i32ToI32()}

	table := wasm.NewTableInstance(&wasm.TableType{ElemType: wasm.FuncRef(true), Limits: wasm.Limits{Min: 1}})
	require.NoError(t, table.Set(0, wasm.ValFuncRef(wasm.FuncRef(false), addFn)))
	mod.Tables = append(mod.Tables, table)

	caller := newGuestFunc(mod, i32i32ToI32(), []wasm.Instr{
		{Op: wasm.OpLocalGet, A: 0},
		{Op: wasm.OpLocalGet, A: 1},
		{Op: wasm.OpI32Const, C: 0}, // table index 0
		{Op: wasm.OpCallIndirect, A: 0, B: 0},
	})
	mod.Functions = append(mod.Functions, caller)

	ex := New(nil)
	results := make([]wasm.Value, 1)
	err := ex.Invoke(mod, caller, []wasm.Value{wasm.ValI32(10), wasm.ValI32(20)}, results)
	require.NoError(t, err)
	require.Equal(t, int32(30), results[0].I32())
}

// TestExecutor_TableFillZeroLengthBounds checks that a zero-length
// table.fill is still bounds-checked: dst == size is in bounds, dst > size
// traps.
func TestExecutor_TableFillZeroLengthBounds(t *testing.T) {
	newMod := func() *wasm.ModuleInstance {
		mod := wasm.NewModuleInstance("m")
		table := wasm.NewTableInstance(&wasm.TableType{ElemType: wasm.FuncRef(true), Limits: wasm.Limits{Min: 2}})
		mod.Tables = append(mod.Tables, table)
		return mod
	}
	fill := func(dst uint32) []wasm.Instr {
		return []wasm.Instr{
			{Op: wasm.OpI32Const, C: uint64(dst)},
			{Op: wasm.OpRefNull, Type: wasm.FuncRef(true)},
			{Op: wasm.OpI32Const, C: 0}, // n
			{Op: wasm.OpTableFill, A: 0},
		}
	}

	ex := New(nil)

	mod := newMod()
	inBounds := newGuestFunc(mod, &wasm.FunctionType{}, fill(2))
	require.NoError(t, ex.Invoke(mod, inBounds, nil, nil))

	mod = newMod()
	outOfBounds := newGuestFunc(mod, &wasm.FunctionType{}, fill(3))
	err := ex.Invoke(mod, outOfBounds, nil, nil)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.OutOfBounds, trap.Code)
}

func TestExecutor_CallIndirectTypeMismatch(t *testing.T) {
	mod := wasm.NewModuleInstance("m")
	wrongTypeFn := newGuestFunc(mod, &wasm.FunctionType{}, nil)
	mod.Functions = append(mod.Functions, wrongTypeFn)
	mod.Types = []*wasm.FunctionType{i32i32ToI32()}

	table := wasm.NewTableInstance(&wasm.TableType{ElemType: wasm.FuncRef(true), Limits: wasm.Limits{Min: 1}})
	require.NoError(t, table.Set(0, wasm.ValFuncRef(wasm.FuncRef(false), wrongTypeFn)))
	mod.Tables = append(mod.Tables, table)

	caller := newGuestFunc(mod, &wasm.FunctionType{Results: []wasm.ValueType{wasm.I32()}}, []wasm.Instr{
		{Op: wasm.OpI32Const, C: 0},
		{Op: wasm.OpCallIndirect, A: 0, B: 0},
	})
	mod.Functions = append(mod.Functions, caller)

	ex := New(nil)
	err := ex.Invoke(mod, caller, nil, nil)
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.IndirectCallTypeMismatch, trap.Code)
}
