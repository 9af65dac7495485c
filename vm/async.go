package vm

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wasmedge-go/wasmcore/internal/executor"
	"github.com/wasmedge-go/wasmcore/internal/vmerr"
	"github.com/wasmedge-go/wasmcore/internal/wasm"
)

// AsyncTask wraps one Invoke in an off-thread task with wait/cancel/deadline
// semantics. The underlying call runs on a goroutine of its own, so the
// caller blocks only when it calls Wait or WaitFor.
type AsyncTask struct {
	ex *executor.Executor

	done chan struct{}

	mu      sync.Mutex
	results []wasm.Value
	err     error
}

// newAsyncTask starts fn in its own goroutine via an errgroup, closing done
// once it returns. ex is the executor fn ultimately calls into; Cancel
// forwards to it so a pending task can be interrupted at the next check
// point.
func newAsyncTask(ex *executor.Executor, fn func() ([]wasm.Value, error)) *AsyncTask {
	t := &AsyncTask{ex: ex, done: make(chan struct{})}

	var g errgroup.Group
	g.Go(func() error {
		results, err := fn()
		t.mu.Lock()
		t.results, t.err = results, err
		t.mu.Unlock()
		return err
	})
	go func() {
		_ = g.Wait()
		close(t.done)
	}()
	return t
}

// Wait blocks until the task completes, returning its terminal error (a
// trap, a *vmerr.HostError, a structural error such as vmerr.FuncNotFound,
// or nil).
func (t *AsyncTask) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// WaitFor reports whether the task completed by deadline.
func (t *AsyncTask) WaitFor(deadline time.Time) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-t.done:
		return true
	case <-timer.C:
		return false
	}
}

// Done reports whether the task has completed, without blocking.
func (t *AsyncTask) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Cancel signals the owning executor to raise Interrupted at the next check
// point. Cancellation is cooperative and edge-triggered: it does not
// interrupt an in-progress host function, and once Get has observed
// completion, Cancel is a no-op.
func (t *AsyncTask) Cancel() {
	if t.ex != nil && !t.Done() {
		t.ex.Cancel()
	}
}

// Get copies out the typed results once the task has completed, or
// propagates its error. It is a structural error to call Get before
// completion; callers should Wait or WaitFor first.
func (t *AsyncTask) Get(results []wasm.Value) error {
	if !t.Done() {
		return vmerr.Structural("async task has not completed")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range results {
		if i >= len(t.results) {
			break
		}
		results[i] = t.results[i]
	}
	return t.err
}
