// Package vm implements the handle-oriented façade over the execution core:
// a VM lifecycle state machine layered on top of internal/wasm's store,
// internal/instantiate's pipeline, and internal/executor's call executor,
// exposing every externally visible object (store, module instance,
// function instance, table, memory, global, async task, executor,
// configuration, statistics) as an opaque 32-bit handle suitable for a
// C-style embedding API or foreign-language bindings.
package vm

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wasmedge-go/wasmcore/internal/executor"
	"github.com/wasmedge-go/wasmcore/internal/instantiate"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// State is a VM's position in its lifecycle.
type State uint8

const (
	Inited State = iota
	Loaded
	Validated
	Instantiated
)

func (s State) String() string {
	switch s {
	case Inited:
		return "inited"
	case Loaded:
		return "loaded"
	case Validated:
		return "validated"
	case Instantiated:
		return "instantiated"
	default:
		return "unknown"
	}
}

// VM drives one active module through Inited -> Loaded -> Validated ->
// Instantiated. Transitions are one-way and cumulative; Load
// regresses the state to Loaded even from Instantiated, discarding the
// previously active module instance. Registration of additional modules
// (Register) is legal in any state and never changes the active module's
// state.
type VM struct {
	mu    sync.Mutex
	state State

	store *wasm.Store
	ex    *executor.Executor
	inst  *instantiate.Instantiator

	loaded *wasm.Module
	active *wasm.ModuleInstance

	handles *HandleTable
	log     *logrus.Entry
}

// New creates a VM sharing store and ex with whatever else in the process
// addresses the same store. Executors sharing a store must operate on
// disjoint module instances at any given instant.
func New(store *wasm.Store, ex *executor.Executor) *VM {
	return &VM{
		state:   Inited,
		store:   store,
		ex:      ex,
		inst:    instantiate.New(store, ex),
		handles: newHandleTable(store),
		log:     logrus.WithField("component", "vm"),
	}
}

func (v *VM) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Load moves the VM to Loaded with mod as the pending module, regardless of
// current state. A fresh load always lands at Loaded, even from
// Instantiated.
func (v *VM) Load(mod *wasm.Module) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = mod
	v.active = nil
	v.state = Loaded
	v.log.Debug("module loaded")
}

// Validate moves Loaded -> Validated; from Validated or Instantiated it is a
// no-op. The runtime never re-validates bytes
// itself; this transition records that the caller's decoder+validator has
// already vetted the loaded module.
func (v *VM) Validate() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state < Loaded {
		return vmerr.WrongVMWorkflow
	}
	if v.state < Validated {
		v.state = Validated
	}
	return nil
}

// Instantiate runs the instantiation pipeline against the
// loaded module and moves Validated -> Instantiated. On failure the VM
// stays at Validated so the caller may retry or Load a different module.
func (v *VM) Instantiate(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != Validated {
		return vmerr.WrongVMWorkflow
	}
	mi, err := v.inst.Instantiate(v.loaded, name)
	if err != nil {
		return err
	}
	v.active = mi
	v.state = Instantiated
	return nil
}

// Register adds mi to the store. Legal in any VM state and never affects
// the active module's state.
func (v *VM) Register(mi *wasm.ModuleInstance) error {
	return v.store.Register(mi)
}

// ActiveModule returns the instantiated module instance, or nil if the VM
// has not reached Instantiated.
func (v *VM) ActiveModule() *wasm.ModuleInstance {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// Execute invokes a function exported by the active module instance. Legal
// only in Instantiated.
func (v *VM) Execute(funcName string, args, results []wasm.Value) error {
	v.mu.Lock()
	if v.state != Instantiated {
		v.mu.Unlock()
		return vmerr.WrongVMWorkflow
	}
	active := v.active
	v.mu.Unlock()

	fi := active.FindFunction(funcName)
	if fi == nil {
		return vmerr.FuncNotFound
	}
	return v.ex.Invoke(active, fi, args, results)
}

// ExecuteAsync wraps Execute in an async task.
func (v *VM) ExecuteAsync(funcName string, args []wasm.Value, resultArity int) *AsyncTask {
	return newAsyncTask(v.ex, func() ([]wasm.Value, error) {
		results := make([]wasm.Value, resultArity)
		if err := v.Execute(funcName, args, results); err != nil {
			return nil, err
		}
		return results, nil
	})
}

// Executor exposes the underlying call executor, e.g. for Cancel.
func (v *VM) Executor() *executor.Executor { return v.ex }

// Store exposes the underlying module registry.
func (v *VM) Store() *wasm.Store { return v.store }

// Handles exposes the handle façade.
func (v *VM) Handles() *HandleTable { return v.handles }
