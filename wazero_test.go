package wasmcore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	wasmcore "github.com/wasmedge-go/wasmcore"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

func addModule() *wasm.Module {
	ft := &wasm.FunctionType{Params: []wasm.ValueType{wasm.I32(), wasm.I32()}, Results: []wasm.ValueType{wasm.I32()}}
	return &wasm.Module{
		Types: []*wasm.FunctionType{ft},
		Functions: []*wasm.LocalFunction{{
			TypeIndex: 0,
			Code: &wasm.Code{MaxStack: 2, Instrs: []wasm.Instr{
				{Op: wasm.OpLocalGet, A: 0},
				{Op: wasm.OpLocalGet, A: 1},
				{Op: wasm.OpI32Add},
			}},
			Name: "add",
		}},
		Exports: []*wasm.Export{{Name: "add", Kind: wasm.ExternKindFunc, Index: 0}},
	}
}

func TestRuntime_InstantiateModuleAndExecute(t *testing.T) {
	rt := wasmcore.NewRuntime(nil)
	v, err := rt.InstantiateModule(addModule(), wasmcore.NewModuleConfig().WithName("m"))
	require.NoError(t, err)

	results := make([]wasm.Value, 1)
	require.NoError(t, v.Execute("add", []wasm.Value{wasm.ValI32(19), wasm.ValI32(23)}, results))
	require.Equal(t, int32(42), results[0].I32())
}

func TestRuntime_VMImportsFromSharedStore(t *testing.T) {
	rt := wasmcore.NewRuntime(nil)
	host := wasm.NewModuleInstance("env")
	host.AddGlobal("base", wasm.NewGlobalInstance(wasm.GlobalType{ValType: wasm.I32()}, wasm.ValI32(100)))
	require.NoError(t, rt.Store().Register(host))

	mod := &wasm.Module{
		Imports: []*wasm.Import{{Module: "env", Name: "base", Kind: wasm.ExternKindGlobal, GlobalType: &wasm.GlobalType{ValType: wasm.I32()}}},
	}
	v, err := rt.InstantiateModule(mod, nil)
	require.NoError(t, err)
	require.Len(t, v.ActiveModule().Globals, 1)
	require.Equal(t, int32(100), v.ActiveModule().Globals[0].Get().I32())
}

func TestRuntimeConfig_Builder(t *testing.T) {
	base := wasmcore.NewRuntimeConfig()
	derived := base.WithCallStackCeiling(10).WithCostLimit(1000)
	require.NotSame(t, base, derived)
}
