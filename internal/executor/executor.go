package executor

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/wasmedge-go/wasmcore/internal/stats"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// Executor is a single-threaded, reentrant interpreter. A call is made on a
// well-defined OS thread and must complete on that thread unless explicitly
// cancelled via Cancel.
type Executor struct {
	config    *Config
	stats     *stats.Stats
	cancelled int32 // atomic bool, set by Cancel
	log       *logrus.Entry
}

func New(config *Config) *Executor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Executor{
		config: config,
		stats:  stats.New(config.CostTable, config.CostLimit),
		log:    logrus.WithField("component", "executor"),
	}
}

func (e *Executor) Stats() *stats.Stats { return e.stats }

// Cancel requests interruption at the next check point: it does not
// interrupt an in-progress host function.
func (e *Executor) Cancel() { atomic.StoreInt32(&e.cancelled, 1) }

// Reset clears a prior cancellation so the executor can be reused for a new
// top-level call.
func (e *Executor) Reset() { atomic.StoreInt32(&e.cancelled, 0) }

func (e *Executor) isCancelled() bool { return atomic.LoadInt32(&e.cancelled) != 0 }

// checkPoint is invoked at least once per basic block and once at every
// call/return. It raises the cost or cancellation trap as appropriate.
func (e *Executor) checkPoint(op wasm.Op) error {
	if e.isCancelled() {
		return vmerr.NewTrap(vmerr.Interrupted)
	}
	if err := e.stats.Count(op); err != nil {
		return err
	}
	return nil
}

// Invoke runs fi to completion, returning a trap, a host error, or nil.
//
// caller is the module instance in whose context the call originates; for a
// top-level invocation this is fi.Module itself. results is the caller's
// output buffer: a shorter buffer silently discards excess returns, and a
// nil or zero-length buffer is permitted for side-effect-only calls.
func (e *Executor) Invoke(caller *wasm.ModuleInstance, fi *wasm.FunctionInstance, args []wasm.Value, results []wasm.Value) error {
	if caller == nil {
		caller = fi.Module
	}
	if err := checkArgs(fi.Type, args); err != nil {
		return err
	}
	ce := &callEngine{ex: e, callDepth: 0}
	rets, err := ce.call(caller, fi, args)
	if err != nil {
		if t, ok := vmerr.AsTrap(err); ok {
			e.stats.RecordTrap(t.Code)
			e.log.WithFields(logrus.Fields{"function": fi.DebugName, "trap": t.Code.String()}).Debug("call trapped")
		}
		return err
	}
	for i := range results {
		if i >= len(rets) {
			break
		}
		results[i] = rets[i]
	}
	return nil
}

func checkArgs(t *wasm.FunctionType, args []wasm.Value) error {
	if len(args) != len(t.Params) {
		return vmerr.FuncSigMismatch
	}
	for i, p := range t.Params {
		if args[i].Type.Kind != p.Kind {
			return vmerr.FuncSigMismatch
		}
		if p.IsRef() && !p.Nullable && args[i].IsNullRef() {
			return wasm.ErrNonNullRequired
		}
	}
	return nil
}
