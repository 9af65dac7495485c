// Package wasmcore is the top-level entry point of the execution core: it
// ties the store (internal/wasm), the call executor (internal/executor),
// the instantiation pipeline (internal/instantiate) and the handle-oriented
// VM façade (vm) into the builder-configured Runtime a host actually embeds.
//
// RuntimeConfig and ModuleConfig are immutable, chainable value builders:
// each With* returns a copy, so a base config can safely be shared and
// derived from. Decoding and compilation are not part of this module; the
// Runtime consumes already-decoded module descriptions.
package wasmcore

import (
	"github.com/sirupsen/logrus"

	"github.com/wasmedge-go/wasmcore/internal/executor"
	"github.com/wasmedge-go/wasmcore/internal/stats"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
	"github.com/wasmedge-go/wasmcore/vm"
)

// RuntimeConfig controls the call executor every VM spun off a Runtime
// shares the shape of. With* methods return a copy.
type RuntimeConfig struct {
	callStackCeiling int
	costTable        stats.CostTable
	costLimit        uint64
}

// NewRuntimeConfig returns the default configuration: the executor's
// built-in call-stack ceiling, no cost table, no cost limit.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{callStackCeiling: executor.DefaultConfig().CallStackCeiling}
}

// WithCallStackCeiling bounds recursive call depth before the executor
// raises CallStackExhausted.
func (c *RuntimeConfig) WithCallStackCeiling(n int) *RuntimeConfig {
	ret := *c
	ret.callStackCeiling = n
	return &ret
}

// WithCostTable installs a per-opcode cost table accumulated by the
// executor's statistics component.
func (c *RuntimeConfig) WithCostTable(t stats.CostTable) *RuntimeConfig {
	ret := *c
	ret.costTable = t
	return &ret
}

// WithCostLimit sets the budget enforced against the cost table; 0 means
// unlimited.
func (c *RuntimeConfig) WithCostLimit(limit uint64) *RuntimeConfig {
	ret := *c
	ret.costLimit = limit
	return &ret
}

func (c *RuntimeConfig) toExecutorConfig() *executor.Config {
	return &executor.Config{
		CallStackCeiling: c.callStackCeiling,
		CostTable:        c.costTable,
		CostLimit:        c.costLimit,
	}
}

// ModuleConfig names a module instance about to be instantiated. WASI-style
// environment and filesystem wiring is a capability concern layered above
// this runtime: a host publishes such capabilities as host modules against
// Runtime.Store rather than through this config.
type ModuleConfig struct {
	name string
}

// NewModuleConfig returns a ModuleConfig for an anonymous module instance
// (the empty name).
func NewModuleConfig() *ModuleConfig { return &ModuleConfig{} }

// WithName sets the module instance's name, which is the name it is
// registered under if the caller registers it with the store.
func (c *ModuleConfig) WithName(name string) *ModuleConfig {
	ret := *c
	ret.name = name
	return &ret
}

// Runtime owns the process-wide store shared by every VM it spins off. A
// process typically holds one Runtime; tests and embedders
// needing isolated stores construct more than one.
type Runtime struct {
	store *wasm.Store
	cfg   *RuntimeConfig
	log   *logrus.Entry
}

// NewRuntime creates a Runtime with a fresh, empty store. cfg may be nil,
// in which case NewRuntimeConfig() applies.
func NewRuntime(cfg *RuntimeConfig) *Runtime {
	if cfg == nil {
		cfg = NewRuntimeConfig()
	}
	return &Runtime{
		store: wasm.NewStore(),
		cfg:   cfg,
		log:   logrus.WithField("component", "runtime"),
	}
}

// Store exposes the shared module registry, e.g. to register host modules
// built directly against internal/wasm's Module-instance Add* methods
// before instantiating a guest module that imports from them.
func (r *Runtime) Store() *wasm.Store { return r.store }

// NewVM spins off a fresh VM state machine bound to this Runtime's store
// but driven by its own call executor, so that cancelling one VM's
// in-flight call never affects another VM sharing the same store. Callers
// sharing a store across VMs must keep each executor on disjoint module
// instances at any given instant.
func (r *Runtime) NewVM() *vm.VM {
	return vm.New(r.store, executor.New(r.cfg.toExecutorConfig()))
}

// InstantiateModule runs a VM through Load -> Validate -> Instantiate in one
// call, the common case where the caller does not need to inspect the
// intermediate states. mod is the already-decoded AST; cfg names
// the resulting module instance. The VM backing the result is returned so
// the caller can Execute against it, cancel it, or register it with the
// store.
func (r *Runtime) InstantiateModule(mod *wasm.Module, cfg *ModuleConfig) (*vm.VM, error) {
	if cfg == nil {
		cfg = NewModuleConfig()
	}
	v := r.NewVM()
	v.Load(mod)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := v.Instantiate(cfg.name); err != nil {
		return nil, err
	}
	r.log.WithField("module", cfg.name).Debug("module instantiated via Runtime")
	return v, nil
}
