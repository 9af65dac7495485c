package vm

import (
	"github.com/wasmedge-go/wasmcore/internal/executor"
	"github.com/wasmedge-go/wasmcore/internal/handle"
	"github.com/wasmedge-go/wasmcore/internal/stats"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// Type tags for each externally visible object kind. The encoding itself
// lives in internal/handle; this package only assigns the tag space.
const (
	tagStore byte = iota + 1
	tagModuleInstance
	tagFunctionInstance
	tagTable
	tagMemory
	tagGlobal
	tagAsyncTask
	tagExecutor
	tagConfiguration
	tagStatistics
)

// HandleTable is the handle-oriented façade over the store, module
// instances, and their owned kinds. Store, module instance, function
// instance, table, memory, global, executor, configuration and statistics
// are exposed as non-owning references (their lifetime belongs to the
// store or the module instance that owns them, not to the handle); async
// tasks are shared-ownership, since a task's completion may be awaited
// from more than one holder.
type HandleTable struct {
	store      *handle.ByReferenceManager
	modules    *handle.ByReferenceManager
	functions  *handle.ByReferenceManager
	tables     *handle.ByReferenceManager
	memories   *handle.ByReferenceManager
	globals    *handle.ByReferenceManager
	tasks      *handle.RefCountedManager
	executors  *handle.ByReferenceManager
	configs    *handle.ByReferenceManager
	statistics *handle.ByReferenceManager

	storeHandle handle.Handle
}

func newHandleTable(store *wasm.Store) *HandleTable {
	t := &HandleTable{
		store:      handle.NewByReferenceManager(tagStore),
		modules:    handle.NewByReferenceManager(tagModuleInstance),
		functions:  handle.NewByReferenceManager(tagFunctionInstance),
		tables:     handle.NewByReferenceManager(tagTable),
		memories:   handle.NewByReferenceManager(tagMemory),
		globals:    handle.NewByReferenceManager(tagGlobal),
		tasks:      handle.NewRefCountedManager(tagAsyncTask),
		executors:  handle.NewByReferenceManager(tagExecutor),
		configs:    handle.NewByReferenceManager(tagConfiguration),
		statistics: handle.NewByReferenceManager(tagStatistics),
	}
	h, _ := t.store.Register(store)
	t.storeHandle = h
	return t
}

func (t *HandleTable) StoreHandle() handle.Handle { return t.storeHandle }

func (t *HandleTable) RegisterModule(mi *wasm.ModuleInstance) handle.Handle {
	h, _ := t.modules.Register(mi)
	return h
}

func (t *HandleTable) Module(h handle.Handle) (*wasm.ModuleInstance, error) {
	obj, err := t.modules.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*wasm.ModuleInstance), nil
}

func (t *HandleTable) RegisterFunction(fi *wasm.FunctionInstance) handle.Handle {
	h, _ := t.functions.Register(fi)
	return h
}

func (t *HandleTable) Function(h handle.Handle) (*wasm.FunctionInstance, error) {
	obj, err := t.functions.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*wasm.FunctionInstance), nil
}

func (t *HandleTable) RegisterTable(ti *wasm.TableInstance) handle.Handle {
	h, _ := t.tables.Register(ti)
	return h
}

func (t *HandleTable) Table(h handle.Handle) (*wasm.TableInstance, error) {
	obj, err := t.tables.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*wasm.TableInstance), nil
}

func (t *HandleTable) RegisterMemory(mem *wasm.MemoryInstance) handle.Handle {
	h, _ := t.memories.Register(mem)
	return h
}

func (t *HandleTable) Memory(h handle.Handle) (*wasm.MemoryInstance, error) {
	obj, err := t.memories.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*wasm.MemoryInstance), nil
}

func (t *HandleTable) RegisterGlobal(g *wasm.GlobalInstance) handle.Handle {
	h, _ := t.globals.Register(g)
	return h
}

func (t *HandleTable) Global(h handle.Handle) (*wasm.GlobalInstance, error) {
	obj, err := t.globals.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*wasm.GlobalInstance), nil
}

func (t *HandleTable) RegisterExecutor(ex *executor.Executor) handle.Handle {
	h, _ := t.executors.Register(ex)
	return h
}

func (t *HandleTable) Executor(h handle.Handle) (*executor.Executor, error) {
	obj, err := t.executors.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*executor.Executor), nil
}

func (t *HandleTable) RegisterConfiguration(cfg *executor.Config) handle.Handle {
	h, _ := t.configs.Register(cfg)
	return h
}

func (t *HandleTable) Configuration(h handle.Handle) (*executor.Config, error) {
	obj, err := t.configs.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*executor.Config), nil
}

func (t *HandleTable) RegisterStatistics(s *stats.Stats) handle.Handle {
	h, _ := t.statistics.Register(s)
	return h
}

func (t *HandleTable) Statistics(h handle.Handle) (*stats.Stats, error) {
	obj, err := t.statistics.Lookup(h)
	if err != nil {
		return nil, err
	}
	return obj.(*stats.Stats), nil
}

// RegisterTask hands out a fresh owning handle to task; CloseTask releases
// this holder's share.
func (t *HandleTable) RegisterTask(task *AsyncTask) (handle.Handle, error) {
	return t.tasks.Register(task)
}

func (t *HandleTable) Task(h handle.Handle) (*AsyncTask, error) {
	obj, err := t.tasks.Peek(h)
	if err != nil {
		return nil, err
	}
	task, ok := obj.(*AsyncTask)
	if !ok {
		return nil, vmerr.WrongInstanceAddress
	}
	return task, nil
}

func (t *HandleTable) CloseTask(h handle.Handle) error { return t.tasks.Close(h) }
