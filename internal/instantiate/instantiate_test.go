package instantiate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmedge-go/wasmcore/internal/executor"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

func addType() *wasm.FunctionType {
	return &wasm.FunctionType{Params: []wasm.ValueType{wasm.I32(), wasm.I32()}, Results: []wasm.ValueType{wasm.I32()}}
}

func nullaryType() *wasm.FunctionType { return &wasm.FunctionType{} }

func baseModule() *wasm.Module {
	startIdx := uint32(1)
	return &wasm.Module{
		Types: []*wasm.FunctionType{addType(), nullaryType()},
		Functions: []*wasm.LocalFunction{
			{
				TypeIndex: 0,
				Code: &wasm.Code{Instrs: []wasm.Instr{
					{Op: wasm.OpLocalGet, A: 0},
					{Op: wasm.OpLocalGet, A: 1},
					{Op: wasm.OpI32Add},
				}, MaxStack: 2},
				Name: "add",
			},
			{
				TypeIndex: 1,
				Code:      &wasm.Code{Instrs: []wasm.Instr{{Op: wasm.OpNop}}},
				Name:      "start",
			},
		},
		Tables:   []*wasm.TableType{{ElemType: wasm.FuncRef(true), Limits: wasm.Limits{Min: 2}}},
		Memories: []*wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Globals: []*wasm.GlobalDecl{
			{Type: wasm.GlobalType{ValType: wasm.I32()}, Init: wasm.ConstExpr{Value: wasm.ValI32(42)}},
		},
		Data: []*wasm.DataSegment{
			{Mode: wasm.SegmentActive, MemoryIndex: 0, Offset: wasm.ConstExpr{Value: wasm.ValI32(0)}, Init: []byte{1, 2, 3, 4}},
		},
		Elements: []*wasm.ElementSegment{
			{
				Mode: wasm.SegmentActive, TableIndex: 0,
				Offset: wasm.ConstExpr{Value: wasm.ValI32(0)},
				Type:   wasm.FuncRef(true),
				Init:   []wasm.ConstExpr{{IsFunc: true, FuncIdx: 0}},
			},
		},
		Exports: []*wasm.Export{
			{Name: "add", Kind: wasm.ExternKindFunc, Index: 0},
			{Name: "mem", Kind: wasm.ExternKindMemory, Index: 0},
			{Name: "g", Kind: wasm.ExternKindGlobal, Index: 0},
		},
		StartFunctionIndex: &startIdx,
	}
}

func TestInstantiate_FullPipeline(t *testing.T) {
	store := wasm.NewStore()
	ex := executor.New(nil)
	in := New(store, ex)

	mi, err := in.Instantiate(baseModule(), "m")
	require.NoError(t, err)

	add := mi.FindFunction("add")
	require.NotNil(t, add)
	results := make([]wasm.Value, 1)
	require.NoError(t, ex.Invoke(mi, add, []wasm.Value{wasm.ValI32(2), wasm.ValI32(3)}, results))
	require.Equal(t, int32(5), results[0].I32())

	mem := mi.FindMemory("mem")
	require.NotNil(t, mem)
	b, err := mem.Read(0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, b)

	g := mi.FindGlobal("g")
	require.NotNil(t, g)
	require.Equal(t, int32(42), g.Get().I32())

	v, err := mi.Tables[0].Get(0)
	require.NoError(t, err)
	require.Same(t, mi.Functions[0], v.FuncRefInstance())

	require.NoError(t, store.Register(mi))
}

func TestInstantiate_UnknownImport(t *testing.T) {
	store := wasm.NewStore()
	ex := executor.New(nil)
	in := New(store, ex)

	mod := &wasm.Module{
		Imports: []*wasm.Import{{Module: "env", Name: "missing", Kind: wasm.ExternKindFunc, FuncTypeIndex: 0}},
		Types:   []*wasm.FunctionType{nullaryType()},
	}
	_, err := in.Instantiate(mod, "m")
	require.ErrorIs(t, err, vmerr.UnknownImport)
}

func TestInstantiate_IncompatibleImportType(t *testing.T) {
	store := wasm.NewStore()
	ex := executor.New(nil)
	in := New(store, ex)

	host := wasm.NewModuleInstance("env")
	host.AddGlobal("g", wasm.NewGlobalInstance(wasm.GlobalType{ValType: wasm.I32()}, wasm.ValI32(0)))
	require.NoError(t, store.Register(host))

	mod := &wasm.Module{
		Imports: []*wasm.Import{{Module: "env", Name: "g", Kind: wasm.ExternKindFunc, FuncTypeIndex: 0}},
		Types:   []*wasm.FunctionType{nullaryType()},
	}
	_, err := in.Instantiate(mod, "m")
	require.ErrorIs(t, err, vmerr.IncompatibleImportType)
}

func TestInstantiate_ActiveDataSegmentOutOfBounds(t *testing.T) {
	store := wasm.NewStore()
	ex := executor.New(nil)
	in := New(store, ex)

	mod := &wasm.Module{
		Memories: []*wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Data: []*wasm.DataSegment{
			{Mode: wasm.SegmentActive, MemoryIndex: 0, Offset: wasm.ConstExpr{Value: wasm.ValI32(wasm.MemoryPageSize)}, Init: []byte{1}},
		},
	}
	_, err := in.Instantiate(mod, "m")
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.OutOfBounds, trap.Code)
}

func TestInstantiate_StartFunctionTrapFailsInstantiation(t *testing.T) {
	store := wasm.NewStore()
	ex := executor.New(nil)
	in := New(store, ex)

	startIdx := uint32(0)
	mod := &wasm.Module{
		Types: []*wasm.FunctionType{nullaryType()},
		Functions: []*wasm.LocalFunction{
			{TypeIndex: 0, Code: &wasm.Code{Instrs: []wasm.Instr{{Op: wasm.OpUnreachable}}}},
		},
		StartFunctionIndex: &startIdx,
	}
	_, err := in.Instantiate(mod, "m")
	trap, ok := vmerr.AsTrap(err)
	require.True(t, ok)
	require.Equal(t, vmerr.Unreachable, trap.Code)
}

func TestInstantiate_ImportedGlobalUsedByConstExpr(t *testing.T) {
	store := wasm.NewStore()
	ex := executor.New(nil)
	in := New(store, ex)

	host := wasm.NewModuleInstance("env")
	host.AddGlobal("base", wasm.NewGlobalInstance(wasm.GlobalType{ValType: wasm.I32()}, wasm.ValI32(7)))
	require.NoError(t, store.Register(host))

	mod := &wasm.Module{
		Imports: []*wasm.Import{
			{Module: "env", Name: "base", Kind: wasm.ExternKindGlobal, GlobalType: &wasm.GlobalType{ValType: wasm.I32()}},
		},
		Globals: []*wasm.GlobalDecl{
			{Type: wasm.GlobalType{ValType: wasm.I32()}, Init: wasm.ConstExpr{IsGlobal: true, GlobalIdx: 0}},
		},
	}
	mi, err := in.Instantiate(mod, "m")
	require.NoError(t, err)
	require.Len(t, mi.Globals, 2)
	require.Equal(t, int32(7), mi.Globals[1].Get().I32())
}
