// Package executor implements the call executor: a single-threaded,
// reentrant interpreter of the flattened instruction set defined in
// internal/wasm, including trap semantics, host-function re-entry, and
// cost/cancellation check points.
package executor

import (
	"github.com/wasmedge-go/wasmcore/internal/stats"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// Config is the executor's configuration, exposed to host functions via
// their calling frame.
type Config struct {
	CostTable        stats.CostTable
	CostLimit        uint64
	CallStackCeiling int
}

// DefaultConfig bounds recursion at a depth safe for the default goroutine
// stack; hosts running deeply recursive guests raise it explicitly.
func DefaultConfig() *Config {
	return &Config{CallStackCeiling: 2000}
}

// Frame is the ephemeral calling-frame object passed to a host function,
// valid only for the duration of one host call. It exposes the caller's
// memory-at-index-0 and the executor's configuration, and must not be
// retained past the call.
type Frame struct {
	caller *wasm.ModuleInstance
	config *Config
}

// Memory returns the active module instance's memory at index 0, or nil if
// it has none.
func (f *Frame) Memory() *wasm.MemoryInstance {
	if f.caller == nil || len(f.caller.Memories) == 0 {
		return nil
	}
	return f.caller.Memories[0]
}

// CallerModule returns the module instance that is executing the call this
// frame was issued from, for capability modules that need more than memory.
func (f *Frame) CallerModule() *wasm.ModuleInstance { return f.caller }

func (f *Frame) Config() *Config { return f.config }
