// Package instantiate implements the instantiation pipeline: resolve
// imports against a store, allocate instances in declaration order,
// evaluate constant expressions, materialize element/data segments, bind
// exports, and run the start function. Any failure from import resolution
// onward discards the partially built module instance instead of mutating
// the store: since nothing is registered with the store until the caller
// explicitly does so, rollback is simply returning an error and letting
// the unfinished *wasm.ModuleInstance fall out of scope.
package instantiate

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wasmedge-go/wasmcore/internal/executor"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// Instantiator runs the pipeline against one store, using ex to invoke a
// module's start function (step 6).
type Instantiator struct {
	store *wasm.Store
	ex    *executor.Executor
	log   *logrus.Entry
}

func New(store *wasm.Store, ex *executor.Executor) *Instantiator {
	return &Instantiator{store: store, ex: ex, log: logrus.WithField("component", "instantiate")}
}

// Instantiate runs the full pipeline against mod, producing a module
// instance named name. The returned instance is not registered with the
// store; callers that want it addressable by name call store.Register
// themselves.
func (in *Instantiator) Instantiate(mod *wasm.Module, name string) (*wasm.ModuleInstance, error) {
	mi := wasm.NewModuleInstance(name)
	mi.Types = mod.Types

	resolved, err := in.resolveImports(mod)
	if err != nil {
		return nil, err
	}

	allocateFunctions(mi, mod, resolved)
	allocateTables(mi, mod, resolved)
	allocateMemories(mi, mod, resolved)
	if err := allocateGlobals(mi, mod, resolved); err != nil {
		return nil, err
	}
	allocateTags(mi, mod, resolved)

	if err := materializeSegments(mi, mod); err != nil {
		return nil, err
	}

	bindExports(mi, mod)

	if mod.StartFunctionIndex != nil {
		fi := mi.Functions[*mod.StartFunctionIndex]
		if err := in.ex.Invoke(mi, fi, nil, nil); err != nil {
			in.log.WithFields(logrus.Fields{"module": name, "err": err}).Debug("start function trapped")
			return nil, err
		}
	}

	in.log.WithField("module", name).Debug("module instantiated")
	return mi, nil
}

// resolvedImports collects the store-side export each import bound to,
// indexed the same way mod.Imports is indexed.
type resolvedImports struct {
	exports []*wasm.ExportInstance
}

func (in *Instantiator) resolveImports(mod *wasm.Module) (*resolvedImports, error) {
	out := &resolvedImports{exports: make([]*wasm.ExportInstance, len(mod.Imports))}
	for i, imp := range mod.Imports {
		e, err := in.store.FindExport(imp.Module, imp.Name, imp.Kind)
		if err != nil {
			return nil, err
		}
		if err := checkImportType(mod, imp, e); err != nil {
			return nil, err
		}
		out.exports[i] = e
	}
	return out, nil
}

func checkImportType(mod *wasm.Module, imp *wasm.Import, e *wasm.ExportInstance) error {
	switch imp.Kind {
	case wasm.ExternKindFunc:
		want := mod.Types[imp.FuncTypeIndex]
		if !e.Function.Type.Equals(want) {
			return fmt.Errorf("%w: %q.%q function signature", vmerr.IncompatibleImportType, imp.Module, imp.Name)
		}
	case wasm.ExternKindTable:
		if !refTypeCompatible(e.Table.ElemType, imp.TableType.ElemType) || !tableLimitsCompatible(e.Table, imp.TableType.Limits) {
			return fmt.Errorf("%w: %q.%q table type", vmerr.IncompatibleImportType, imp.Module, imp.Name)
		}
	case wasm.ExternKindMemory:
		if !memoryLimitsCompatible(e.Memory, imp.MemoryType.Limits) {
			return fmt.Errorf("%w: %q.%q memory limits", vmerr.IncompatibleImportType, imp.Module, imp.Name)
		}
	case wasm.ExternKindGlobal:
		if e.Global.Type != imp.GlobalType.ValType || e.Global.Mutable() != imp.GlobalType.Mutable {
			return fmt.Errorf("%w: %q.%q global type", vmerr.IncompatibleImportType, imp.Module, imp.Name)
		}
	case wasm.ExternKindTag:
		want := mod.Types[imp.TagTypeIndex]
		if !e.Tag.Type.Equals(want) {
			return fmt.Errorf("%w: %q.%q tag type", vmerr.IncompatibleImportType, imp.Module, imp.Name)
		}
	}
	return nil
}

func refTypeCompatible(a, b wasm.ValueType) bool {
	if a.Kind != b.Kind || a.Referent != b.Referent {
		return false
	}
	return a.Referent != wasm.ReferentTypeIndex || a.TypeIndex == b.TypeIndex
}

func tableLimitsCompatible(ti *wasm.TableInstance, required wasm.Limits) bool {
	if ti.Size() < required.Min {
		return false
	}
	if required.Max == nil {
		return true
	}
	return ti.Max != nil && *ti.Max <= *required.Max
}

func memoryLimitsCompatible(mem *wasm.MemoryInstance, required wasm.Limits) bool {
	if mem.SizePages() < required.Min {
		return false
	}
	if required.Max == nil {
		return true
	}
	return mem.Max != nil && *mem.Max <= *required.Max
}

func allocateFunctions(mi *wasm.ModuleInstance, mod *wasm.Module, r *resolvedImports) {
	for i, imp := range mod.Imports {
		if imp.Kind == wasm.ExternKindFunc {
			mi.Functions = append(mi.Functions, r.exports[i].Function)
		}
	}
	for _, lf := range mod.Functions {
		mi.Functions = append(mi.Functions, &wasm.FunctionInstance{
			Type:      mod.Types[lf.TypeIndex],
			Module:    mi,
			Local:     lf,
			Index:     uint32(len(mi.Functions)),
			DebugName: lf.Name,
		})
	}
}

func allocateTables(mi *wasm.ModuleInstance, mod *wasm.Module, r *resolvedImports) {
	for i, imp := range mod.Imports {
		if imp.Kind == wasm.ExternKindTable {
			mi.Tables = append(mi.Tables, r.exports[i].Table)
		}
	}
	for _, tt := range mod.Tables {
		mi.Tables = append(mi.Tables, wasm.NewTableInstance(tt))
	}
}

func allocateMemories(mi *wasm.ModuleInstance, mod *wasm.Module, r *resolvedImports) {
	for i, imp := range mod.Imports {
		if imp.Kind == wasm.ExternKindMemory {
			mi.Memories = append(mi.Memories, r.exports[i].Memory)
		}
	}
	for _, mt := range mod.Memories {
		mi.Memories = append(mi.Memories, wasm.NewMemoryInstance(mt))
	}
}

// allocateGlobals appends imported globals, then evaluates and allocates
// declared globals one at a time in declaration order: a later global may
// never be referenced by an earlier one, but a declared global may be
// initialized from any already-allocated function or an earlier,
// already-imported global.
func allocateGlobals(mi *wasm.ModuleInstance, mod *wasm.Module, r *resolvedImports) error {
	for i, imp := range mod.Imports {
		if imp.Kind == wasm.ExternKindGlobal {
			mi.Globals = append(mi.Globals, r.exports[i].Global)
		}
	}
	for _, gd := range mod.Globals {
		v, err := evalConst(mi, gd.Init)
		if err != nil {
			return err
		}
		mi.Globals = append(mi.Globals, wasm.NewGlobalInstance(gd.Type, v))
	}
	return nil
}

func allocateTags(mi *wasm.ModuleInstance, mod *wasm.Module, r *resolvedImports) {
	for i, imp := range mod.Imports {
		if imp.Kind == wasm.ExternKindTag {
			mi.Tags = append(mi.Tags, r.exports[i].Tag)
		}
	}
	for _, td := range mod.Tags {
		mi.Tags = append(mi.Tags, wasm.NewTagInstance(mod.Types[td.TypeIndex]))
	}
}

// evalConst evaluates a constant expression against an already-partially-
// allocated module instance.
func evalConst(mi *wasm.ModuleInstance, ce wasm.ConstExpr) (wasm.Value, error) {
	switch {
	case ce.IsFunc:
		if int(ce.FuncIdx) >= len(mi.Functions) {
			return wasm.Value{}, vmerr.Structural("constant expression references unknown function")
		}
		return wasm.ValFuncRef(wasm.FuncRef(false), mi.Functions[ce.FuncIdx]), nil
	case ce.IsGlobal:
		if int(ce.GlobalIdx) >= len(mi.Globals) {
			return wasm.Value{}, vmerr.Structural("constant expression references unknown global")
		}
		return mi.Globals[ce.GlobalIdx].Get(), nil
	default:
		return ce.Value, nil
	}
}

// materializeSegments allocates the data/element instances and writes
// active segments into their target table/memory. Declarative element
// segments, and any segment once actively materialized, are dropped
// immediately: neither is reachable from guest code afterward, since
// table.init/memory.init against them is forbidden.
func materializeSegments(mi *wasm.ModuleInstance, mod *wasm.Module) error {
	for _, ds := range mod.Data {
		init := make([]byte, len(ds.Init))
		copy(init, ds.Init)
		di := wasm.NewDataInstance(init)
		mi.Data = append(mi.Data, di)

		if ds.Mode != wasm.SegmentActive {
			continue
		}
		offVal, err := evalConst(mi, ds.Offset)
		if err != nil {
			return err
		}
		mem := mi.Memories[ds.MemoryIndex]
		if err := mem.Write(offVal.U32(), di.Bytes()); err != nil {
			return vmerr.NewTrap(vmerr.OutOfBounds)
		}
		di.Drop()
	}

	for _, es := range mod.Elements {
		refs := make([]wasm.Value, len(es.Init))
		for i, ce := range es.Init {
			v, err := evalConst(mi, ce)
			if err != nil {
				return err
			}
			refs[i] = v
		}
		ei := wasm.NewElementInstance(es.Type, refs)
		mi.Elements = append(mi.Elements, ei)

		switch es.Mode {
		case wasm.SegmentActive:
			offVal, err := evalConst(mi, es.Offset)
			if err != nil {
				return err
			}
			off := offVal.U32()
			table := mi.Tables[es.TableIndex]
			if uint64(off)+uint64(len(refs)) > uint64(table.Size()) {
				return vmerr.NewTrap(vmerr.OutOfBounds)
			}
			for i, v := range refs {
				if err := table.Set(off+uint32(i), v); err != nil {
					return vmerr.NewTrap(vmerr.OutOfBounds)
				}
			}
			ei.Drop()
		case wasm.SegmentDeclarative:
			ei.Drop()
		}
	}
	return nil
}

func bindExports(mi *wasm.ModuleInstance, mod *wasm.Module) {
	for _, exp := range mod.Exports {
		mi.BindExport(exp.Name, exp.Kind, exp.Index)
	}
}
